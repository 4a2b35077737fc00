// Package main implements the wordshard coordinator, the control node of a
// word-count cluster.
//
// The coordinator accepts registrations from workers, validators and the
// aggregator, splits the alphabet across the registered workers, pushes the
// full topology to every node after each change, and streams documents to
// the workers one line at a time when POST /start is called.
//
// Configuration is layered: built-in defaults, then an optional YAML file
// (--config), then WORDSHARD_* environment variables, then flags.
//
// Example usage:
//
//	# Start with defaults (listen :1001, documents read relative to cwd)
//	./coordinator
//
//	# Serve documents from a directory and check node health every 10s
//	WORDSHARD_HEALTH_INTERVAL=10s ./coordinator --source-dir ./docs
//
//	# Process a document once nodes have registered
//	curl -X POST localhost:1001/start -d '{"filename":"sample.txt"}'
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dreamware/wordshard/internal/config"
	"github.com/dreamware/wordshard/internal/coordinator"
	"github.com/dreamware/wordshard/internal/node"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	config.SetDefaults(v, config.RoleCoordinator)
	var cfgFile string

	cmd := &cobra.Command{
		Use:          "coordinator",
		Short:        "Run the wordshard coordinator",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return config.ReadFile(v, cfgFile)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	d := config.Defaults(config.RoleCoordinator)
	flags := cmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "path to a YAML config file")
	flags.String("listen", d.Listen, "address to listen on")
	flags.String("source-dir", d.Source.Dir, "directory documents are read from")
	flags.Duration("health-interval", d.Health.Interval, "node health check interval (0 disables)")
	flags.String("log-level", d.Log.Level, "log level")
	_ = v.BindPFlag("listen", flags.Lookup("listen"))
	_ = v.BindPFlag("source.dir", flags.Lookup("source-dir"))
	_ = v.BindPFlag("health.interval", flags.Lookup("health-interval"))
	_ = v.BindPFlag("log.level", flags.Lookup("log-level"))

	cmd.AddCommand(newConfigCmd(v))
	return cmd
}

// newConfigCmd prints the effective configuration.
func newConfigCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			out, err := config.Dump(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func run(ctx context.Context, cfg config.Config) error {
	env, err := node.Setup(cfg, config.RoleCoordinator)
	if err != nil {
		return err
	}
	defer env.Close(context.Background())

	var monitor *coordinator.HealthMonitor
	if cfg.Health.Interval > 0 {
		monitor = coordinator.NewHealthMonitor(cfg.Health.Interval, env.Log.With("component", "health"))
	}

	coord := coordinator.New(coordinator.Options{
		Sender:  env.Sender,
		Source:  coordinator.FileSource{Dir: cfg.Source.Dir},
		Logger:  env.Log,
		Tracer:  env.Tracing.Tracer(),
		Monitor: monitor,
	})

	opts := node.Options{
		Handler: coord.Handler(),
		Listen:  cfg.Listen,
		Sender:  env.Sender,
		Logger:  env.Log,
	}
	if monitor != nil {
		opts.Tasks = append(opts.Tasks, func(ctx context.Context) error {
			monitor.Start(ctx, coord.Members)
			return nil
		})
	}

	env.Log.Info("coordinator starting", "listen", cfg.Listen, "source_dir", cfg.Source.Dir, "health_interval", cfg.Health.Interval)
	if err := node.Run(ctx, opts); err != nil {
		return fmt.Errorf("coordinator: %w", err)
	}
	return nil
}
