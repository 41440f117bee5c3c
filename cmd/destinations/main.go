package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/playperu/destinations/internal/api"
	"github.com/playperu/destinations/internal/app"
	"github.com/playperu/destinations/internal/config"
	"github.com/playperu/destinations/internal/geolocation"
	"github.com/playperu/destinations/internal/handler/health"
	"github.com/playperu/destinations/internal/server"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- Places backend ---
	client := api.NewClient(cfg.BackendURL, cfg.RequestTimeout, logger)
	logger.Info("using places backend", "url", cfg.BackendURL)

	// --- Geolocation ---
	locator, err := geolocation.NewLocator(ctx, cfg.LocatorURI)
	if err != nil {
		return fmt.Errorf("creating locator: %w", err)
	}
	logger.Info("using locator", "uri", cfg.LocatorURI, "schemes", geolocation.Schemes())

	a := app.New(client, locator, cfg.LocateTimeout, logger)

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, a, cfg.SPADir, func(r chi.Router) {
		r.Mount("/healthz", health.NewHandler(logger, map[string]health.Checker{
			"backend": health.CheckerFunc(client.Ping),
		}).Routes())
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Activate(gctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}
