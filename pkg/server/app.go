package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"SolPulse/pkg/config"
	xhttp "SolPulse/pkg/http"
	applogger "SolPulse/pkg/logger"
)

// Component is a background service started before the HTTP server and
// stopped after it, in reverse registration order.
type Component struct {
	Name  string
	Start func() error
	Stop  func(ctx context.Context) error
}

type closer struct {
	name  string
	close func() error
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	httpServer *xhttp.Server
	components []Component
	closers    []closer
	started    []Component
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, httpServer *xhttp.Server) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{cfg: cfg, l: l, httpServer: httpServer}
}

func (a *App) AddComponent(c Component) { a.components = append(a.components, c) }

// AddCloser registers a resource released after every component stopped.
func (a *App) AddCloser(name string, fn func() error) {
	a.closers = append(a.closers, closer{name: name, close: fn})
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts every component and the HTTP server, then shuts down
// when ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	if err := a.start(); err != nil {
		_ = a.shutdown()
		return err
	}
	<-ctx.Done()
	a.l.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) start() error {
	for _, c := range a.components {
		if err := c.Start(); err != nil {
			a.l.Error("component start error", applogger.String("component", c.Name), applogger.Error(err))
			return fmt.Errorf("start %s: %w", c.Name, err)
		}
		a.started = append(a.started, c)
		a.l.Info("component started", applogger.String("component", c.Name))
	}
	if a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			return fmt.Errorf("start http server: %w", err)
		}
	}
	return nil
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.l.Error("http shutdown error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	for i := len(a.started) - 1; i >= 0; i-- {
		c := a.started[i]
		if err := c.Stop(ctx); err != nil {
			a.l.Warn("component stop error", applogger.String("component", c.Name), applogger.Error(err))
			errs = append(errs, fmt.Errorf("stop %s: %w", c.Name, err))
		}
	}
	a.started = nil

	for _, c := range a.closers {
		if err := c.close(); err != nil {
			a.l.Warn("close error", applogger.String("resource", c.name), applogger.Error(err))
			errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
		}
	}
	a.closers = nil

	a.l.Info("shutdown complete")
	return errors.Join(errs...)
}
