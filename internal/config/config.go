// Package config provides configuration types, defaults, loading and
// rendering for wordshard binaries.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dreamware/wordshard/internal/partition"
	"github.com/dreamware/wordshard/internal/tracing"
	"github.com/dreamware/wordshard/internal/transport"
)

// EnvPrefix is prepended to every environment override, with dots replaced
// by underscores: WORDSHARD_RETRY_ATTEMPTS sets retry.attempts.
const EnvPrefix = "WORDSHARD"

// Roles a binary can run as.
const (
	RoleCoordinator = "coordinator"
	RoleWorker      = "worker"
	RoleValidator   = "validator"
	RoleAggregator  = "aggregator"
)

// DefaultPorts are the well-known listen ports per role.
var DefaultPorts = map[string]int{
	RoleCoordinator: 1001,
	RoleWorker:      1002,
	RoleValidator:   1004,
	RoleAggregator:  1006,
}

// Config holds everything a wordshard process reads at startup.
type Config struct {
	Listen         string         `mapstructure:"listen" yaml:"listen"`
	PublicURL      string         `mapstructure:"public_url" yaml:"public_url"`           // URL peers use to reach this node
	CoordinatorURL string         `mapstructure:"coordinator_url" yaml:"coordinator_url"` // required for every role but the coordinator
	Log            LogConfig      `mapstructure:"log" yaml:"log"`
	Source         SourceConfig   `mapstructure:"source" yaml:"source"`
	Worker         WorkerConfig   `mapstructure:"worker" yaml:"worker"`
	Tracing        tracing.Config `mapstructure:"tracing" yaml:"tracing"`
	Retry          RetryConfig    `mapstructure:"retry" yaml:"retry"`
	RegisterDelay  time.Duration  `mapstructure:"register_delay" yaml:"register_delay"` // wait before self-registering
	Health         HealthConfig   `mapstructure:"health" yaml:"health"`
}

// RetryConfig is the transport retry policy.
type RetryConfig struct {
	Attempts int           `mapstructure:"attempts" yaml:"attempts"`
	Delay    time.Duration `mapstructure:"delay" yaml:"delay"`
}

type WorkerConfig struct {
	Range  string `mapstructure:"range" yaml:"range"`     // initial range, e.g. "A-M"; empty waits for the coordinator
	FanOut int    `mapstructure:"fan_out" yaml:"fan_out"` // validators per batch
}

type SourceConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"` // documents are resolved under Dir; empty means as given
}

type HealthConfig struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval"` // 0 disables the monitor
}

type LogConfig struct {
	Mode  string `mapstructure:"mode" yaml:"mode"` // "dev" (default) or "prod"
	File  string `mapstructure:"file" yaml:"file"`
	Level string `mapstructure:"level" yaml:"level"`
}

// Defaults returns the configuration for role before any file, environment
// or flag is applied.
func Defaults(role string) Config {
	port, ok := DefaultPorts[role]
	if !ok {
		port = DefaultPorts[RoleCoordinator]
	}
	return Config{
		Listen:         fmt.Sprintf(":%d", port),
		PublicURL:      fmt.Sprintf("http://127.0.0.1:%d", port),
		CoordinatorURL: fmt.Sprintf("http://127.0.0.1:%d", DefaultPorts[RoleCoordinator]),
		RegisterDelay:  time.Second,
		Retry:          RetryConfig{Attempts: 3, Delay: time.Second},
		Worker:         WorkerConfig{FanOut: 2},
		Health:         HealthConfig{Interval: 5 * time.Second},
		Log:            LogConfig{Mode: "dev", Level: "info"},
		Tracing:        tracing.Config{Exporter: "none", ServiceName: "wordshard-" + role},
	}
}

// SetDefaults registers Defaults(role) with v and enables WORDSHARD_*
// environment overrides. Every key must have a default for the environment
// to reach Unmarshal.
func SetDefaults(v *viper.Viper, role string) {
	d := Defaults(role)
	v.SetDefault("listen", d.Listen)
	v.SetDefault("public_url", d.PublicURL)
	v.SetDefault("coordinator_url", d.CoordinatorURL)
	v.SetDefault("register_delay", d.RegisterDelay)
	v.SetDefault("retry.attempts", d.Retry.Attempts)
	v.SetDefault("retry.delay", d.Retry.Delay)
	v.SetDefault("worker.range", d.Worker.Range)
	v.SetDefault("worker.fan_out", d.Worker.FanOut)
	v.SetDefault("source.dir", d.Source.Dir)
	v.SetDefault("health.interval", d.Health.Interval)
	v.SetDefault("log.mode", d.Log.Mode)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// ReadFile merges a YAML config file into v. An empty path is a no-op.
func ReadFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	return nil
}

// Load unmarshals v and validates the result.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings shared by every role.
func (c Config) Validate() error {
	var errs []error
	if c.Listen == "" {
		errs = append(errs, errors.New("listen is required"))
	}
	if c.Retry.Attempts < 1 {
		errs = append(errs, fmt.Errorf("retry.attempts must be at least 1, got %d", c.Retry.Attempts))
	}
	if c.Retry.Delay < 0 {
		errs = append(errs, fmt.Errorf("retry.delay must not be negative, got %s", c.Retry.Delay))
	}
	if c.RegisterDelay < 0 {
		errs = append(errs, fmt.Errorf("register_delay must not be negative, got %s", c.RegisterDelay))
	}
	if c.Health.Interval < 0 {
		errs = append(errs, fmt.Errorf("health.interval must not be negative, got %s", c.Health.Interval))
	}
	if c.Worker.FanOut < 1 {
		errs = append(errs, fmt.Errorf("worker.fan_out must be at least 1, got %d", c.Worker.FanOut))
	}
	if c.Worker.Range != "" {
		if _, err := partition.Parse(c.Worker.Range); err != nil {
			errs = append(errs, fmt.Errorf("worker.range: %w", err))
		}
	}
	switch strings.ToLower(c.Log.Mode) {
	case "", "dev", "development", "prod", "production":
	default:
		errs = append(errs, fmt.Errorf("log.mode must be dev or prod, got %q", c.Log.Mode))
	}
	switch c.Tracing.Exporter {
	case "", "none", "stdout", "file":
	default:
		errs = append(errs, fmt.Errorf("tracing.exporter must be none, stdout or file, got %q", c.Tracing.Exporter))
	}
	return errors.Join(errs...)
}

// ValidateNode additionally checks the addresses a non-coordinator needs to
// register itself.
func (c Config) ValidateNode() error {
	var errs []error
	if err := checkURL("coordinator_url", c.CoordinatorURL); err != nil {
		errs = append(errs, err)
	}
	if err := checkURL("public_url", c.PublicURL); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func checkURL(key, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", key)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", key, raw)
	}
	return nil
}

// InitialRange parses Worker.Range; nil when unset.
func (c Config) InitialRange() (*partition.Range, error) {
	if c.Worker.Range == "" {
		return nil, nil
	}
	r, err := partition.Parse(c.Worker.Range)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// RetryPolicy converts the retry settings for the transport.
func (c Config) RetryPolicy() transport.RetryPolicy {
	return transport.RetryPolicy{MaxAttempts: c.Retry.Attempts, Delay: c.Retry.Delay}
}

// Dump renders cfg as YAML.
func Dump(cfg Config) ([]byte, error) {
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return out, nil
}
