// Package cli provides the costledger command tree and the initialization
// shared by cmd/costledger and cmd/costledger-worker.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"costledger/internal/backend"
	"costledger/internal/config"
	applog "costledger/internal/log"
)

// ShutdownTimeout bounds graceful shutdown of long-running commands.
const ShutdownTimeout = 30 * time.Second

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SetupLogger builds the application logger from cfg, writing to out, and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, out io.Writer) *applog.Logger {
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: applog.ComponentApp,
		Output:    out,
	})
	applog.SetDefault(logger)
	return logger
}

// LedgerOptions adjust how OpenLedger wires the backend.
type LedgerOptions struct {
	// Publish sends cost events to the broker when one is configured.
	Publish bool

	// Location derives calendar fields; time.Local when nil.
	Location *time.Location
}

// OpenLedger wires the configured backend.
func OpenLedger(ctx context.Context, cfg *config.Config, logger *applog.Logger, opts LedgerOptions) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	bcfg.PublishEvents = opts.Publish && cfg.EventsEnabled()
	bcfg.Location = opts.Location
	return backend.NewFactory(logger.Logger).CreateBackend(ctx, bcfg)
}

// ShutdownContext returns a context cancelled on SIGINT or SIGTERM.
func ShutdownContext(parent context.Context, logger *applog.Logger) (context.Context, context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := contextUntilSignal(parent, logger, sigChan)
	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

func contextUntilSignal(parent context.Context, logger *applog.Logger, sigChan <-chan os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// RunUntilDone runs serve and, once ctx is cancelled, calls shutdown with
// a timeout-bound context. serve must return after shutdown is called.
// An error from either side cancels the other.
func RunUntilDone(ctx context.Context, timeout time.Duration, serve func() error, shutdown func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	stopped := make(chan struct{})

	g.Go(func() error {
		defer close(stopped)
		return serve()
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
		case <-stopped:
			return nil
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
