// Package node runs a wordshard process: an HTTP server, the one-shot
// self-registration with the coordinator, and any background tasks, all in
// one errgroup that shuts down together.
package node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dreamware/wordshard/internal/cluster"
	"github.com/dreamware/wordshard/internal/logger"
	"github.com/dreamware/wordshard/internal/transport"
)

// DefaultShutdownTimeout bounds graceful shutdown.
const DefaultShutdownTimeout = 5 * time.Second

// Registration describes the startup call to the coordinator.
type Registration struct {
	CoordinatorURL string
	PublicURL      string
	Delay          time.Duration
	Type           cluster.NodeType
}

// Task is a background job that runs until ctx is done.
type Task func(ctx context.Context) error

// Options configures Run. Handler is required; Listen is ignored when
// Listener is set.
type Options struct {
	Handler  http.Handler
	Listener net.Listener
	Sender   transport.Sender
	Logger   *logger.Logger
	// Register, when set, is performed once after Delay using Sender.
	Register        *Registration
	Listen          string
	Tasks           []Task
	ShutdownTimeout time.Duration
}

// Run serves until ctx is canceled or the server fails, then shuts down
// gracefully. A failed registration is logged; the node keeps serving.
func Run(ctx context.Context, opts Options) error {
	log := opts.Logger
	if log == nil {
		log = logger.NewNop()
	}
	timeout := opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}

	srv := &http.Server{
		Addr:              opts.Listen,
		Handler:           opts.Handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if opts.Listener != nil {
			log.Info("listening", "addr", opts.Listener.Addr().String())
			err = srv.Serve(opts.Listener)
		} else {
			log.Info("listening", "addr", opts.Listen)
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		log.Info("server stopped")
		return nil
	})

	if opts.Register != nil {
		reg := *opts.Register
		g.Go(func() error {
			if err := Register(gctx, opts.Sender, reg, log); err != nil && gctx.Err() == nil {
				log.Error("registration failed", "coordinator", reg.CoordinatorURL, "error", err)
			}
			return nil
		})
	}

	for _, task := range opts.Tasks {
		g.Go(func() error { return task(gctx) })
	}

	return g.Wait()
}

// Register waits reg.Delay and then announces this node to the coordinator.
func Register(ctx context.Context, sender transport.Sender, reg Registration, log *logger.Logger) error {
	if reg.Delay > 0 {
		timer := time.NewTimer(reg.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	body := cluster.RegisterRequest{Type: reg.Type.String(), URL: reg.PublicURL}
	resp, err := sender.Send(ctx, reg.CoordinatorURL+"/register", body)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("coordinator rejected registration: http %d: %s", resp.StatusCode, resp.Body)
	}
	log.Info("registered with coordinator", "coordinator", reg.CoordinatorURL, "type", body.Type, "url", body.URL)
	return nil
}
