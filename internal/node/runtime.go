package node

import (
	"context"
	"fmt"

	"github.com/dreamware/wordshard/internal/cluster"
	"github.com/dreamware/wordshard/internal/config"
	"github.com/dreamware/wordshard/internal/logger"
	"github.com/dreamware/wordshard/internal/tracing"
	"github.com/dreamware/wordshard/internal/transport"
)

// Env bundles the ambient services every role builds from its Config.
type Env struct {
	Config  config.Config
	Log     *logger.Logger
	Tracing *tracing.Provider
	Sender  *transport.HTTPSender
}

// Setup builds the logger, tracer provider and retrying sender for cfg.
// Callers must Close the returned Env.
func Setup(cfg config.Config, role string) (*Env, error) {
	log, err := logger.New(logger.Options{
		Mode:  cfg.Log.Mode,
		File:  cfg.Log.File,
		Level: cfg.Log.Level,
		Node:  role,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	tp, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	sender := transport.NewHTTPSender(cfg.RetryPolicy(),
		transport.WithLogger(log),
		transport.WithTracer(tp.Tracer()))

	return &Env{Config: cfg, Log: log, Tracing: tp, Sender: sender}, nil
}

// Close flushes spans and log buffers.
func (e *Env) Close(ctx context.Context) {
	if err := e.Tracing.Shutdown(ctx); err != nil {
		e.Log.Warn("tracing shutdown", "error", err)
	}
	e.Log.Sync()
}

// Registration returns the startup registration for a non-coordinator role.
func (e *Env) Registration(role string) (*Registration, error) {
	typ, err := cluster.ParseNodeType(role)
	if err != nil {
		return nil, err
	}
	return &Registration{
		CoordinatorURL: e.Config.CoordinatorURL,
		PublicURL:      e.Config.PublicURL,
		Delay:          e.Config.RegisterDelay,
		Type:           typ,
	}, nil
}
