package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/aogosto/order-triage/api"
	"github.com/aogosto/order-triage/api/routes"
	"github.com/aogosto/order-triage/pkg/config"
	"github.com/aogosto/order-triage/pkg/logger"
)

const serviceName = "order-triage"

var errNoSource = errors.New("no source enabled")

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "order triage stopped", err)
		os.Exit(1)
	}
}

// run owns every resource it wires, so all of them are closed before main
// decides the exit code.
func run(cfg *config.Config, logg *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)

	app, err := build(ctx, cfg, logg)
	if err != nil {
		return fmt.Errorf("wire service: %w", err)
	}
	return serve(ctx, cfg, logg, app)
}

// serve runs the pollers and the status server, then closes app.
func serve(ctx context.Context, cfg *config.Config, logg *logger.Logger, app *service) error {
	defer app.close(context.Background())
	if app.pollers.Len() == 0 {
		return errNoSource
	}

	server := api.NewServer(cfg.HTTP, routes.NewRouter(cfg, logg, nil), logg)

	logg.Info(ctx, "order triage starting")
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return app.pollers.Run(ctx) })
	eg.Go(func() error { return ignoreCanceled(server.Run(ctx)) })
	if err := eg.Wait(); err != nil {
		return err
	}
	logg.Info(ctx, "order triage shutting down gracefully")
	return nil
}
