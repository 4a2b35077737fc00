// Package tracing sets up OpenTelemetry spans for outbound protocol sends.
package tracing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config configures the tracing subsystem.
type Config struct {
	// Exporter is "stdout", "file" or "none".
	Exporter string `mapstructure:"exporter" yaml:"exporter"`
	// FilePath is the JSON-lines output for the "file" exporter.
	FilePath string `mapstructure:"file_path" yaml:"file_path"`
	// ServiceName identifies this node in exported spans.
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	// Enabled controls whether spans are recorded at all. When false a
	// no-op tracer is returned.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// Provider owns the tracer provider and any exporter output it opened.
type Provider struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	out      io.Closer
}

// NewProvider builds a provider for cfg. Disabled tracing costs nothing: the
// returned tracer is a no-op.
func NewProvider(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{tracer: noop.NewTracerProvider().Tracer("noop")}, nil
	}

	var (
		exporter sdktrace.SpanExporter
		out      io.Closer
		err      error
	)
	switch cfg.Exporter {
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "file":
		if cfg.FilePath == "" {
			return nil, errors.New("file_path required for file exporter")
		}
		f, ferr := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if ferr != nil {
			return nil, fmt.Errorf("open trace file: %w", ferr)
		}
		out = f
		exporter, err = stdouttrace.New(stdouttrace.WithWriter(f))
	case "none", "":
	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", cfg.Exporter)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s exporter: %w", cfg.Exporter, err)
	}

	name := cfg.ServiceName
	if name == "" {
		name = "wordshard"
	}
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", name))),
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}
	provider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)

	return &Provider{provider: provider, tracer: provider.Tracer(name), out: out}, nil
}

func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Shutdown flushes pending spans and closes the exporter output.
func (p *Provider) Shutdown(ctx context.Context) error {
	var err error
	if p.provider != nil {
		err = p.provider.Shutdown(ctx)
	}
	if p.out != nil {
		err = errors.Join(err, p.out.Close())
	}
	return err
}
