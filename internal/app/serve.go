package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cadbridge/internal/config"
)

// shutdownGrace bounds how long shutdown waits for the call in flight.
const shutdownGrace = 30 * time.Second

// Serve runs the MCP server until the transport ends or the process is
// interrupted. The config file is watched and live settings are applied as it
// changes.
func Serve(ctx context.Context, opts Options) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}
	a, err := New(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, done := context.WithTimeout(context.Background(), shutdownGrace)
		defer done()
		if err := a.Close(closeCtx); err != nil {
			fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
		}
	}()

	if err := a.StartPruning(ctx); err != nil {
		a.logger.Warn("journal pruning disabled", "error", err)
	}

	if _, statErr := os.Stat(opts.ConfigPath); opts.ConfigPath != "" && statErr == nil {
		w := config.NewWatcher(opts.ConfigPath, cfg, a.logger)
		w.OnChange(a.ApplyConfig)
		if err := w.Start(ctx); err != nil {
			a.logger.Warn("config hot reload disabled", "error", err)
		} else {
			defer w.Stop()
		}
	}

	a.logger.Info("cadbridge ready",
		"host", a.cfg.Host.Mode,
		"transport", a.cfg.Server.Transport,
		"tools", len(a.server.Tools()),
		"journal", a.journal != nil)

	switch strings.ToLower(a.cfg.Server.Transport) {
	case "http":
		err = a.server.ServeHTTP(ctx, a.cfg.Server.Addr)
	default:
		err = serveStdio(ctx, a)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// serveStdio returns when stdin closes or ctx is cancelled. The stdio server
// itself only watches stdin, so cancellation is raced here.
func serveStdio(ctx context.Context, a *App) error {
	errc := make(chan error, 1)
	go func() { errc <- a.server.ServeStdio() }()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		a.logger.Info("interrupted, shutting down")
		return nil
	}
}
