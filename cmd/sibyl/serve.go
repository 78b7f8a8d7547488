// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomtom215/sibyl/internal/config"
	"github.com/tomtom215/sibyl/internal/logging"
	"github.com/tomtom215/sibyl/internal/supervisor"
	"github.com/tomtom215/sibyl/internal/supervisor/services"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve risk|weather|sentiment|all...",
		Short: "Run one or more prediction services",
		Long: `Run prediction services over HTTP. Each service listens on its own port
(server.risk_port, server.weather_port, server.sentiment_port) and exposes
/api/v1/health/live, /api/v1/health/ready and /metrics.

The sentiment service trains its network before its listener opens; the
other services start immediately.`,
		Example: `  # One service per process
  sibyl serve risk

  # Everything in one process
  WEATHER_API_KEY=... sibyl serve all`,
		Args:      cobra.MinimumNArgs(1),
		ValidArgs: append(slices.Clone(allServices), "all"),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := resolveServices(args)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, names)
		},
	}
}

// resolveServices expands "all" and removes duplicates, keeping a stable
// order.
func resolveServices(args []string) ([]string, error) {
	want := map[string]bool{}
	for _, a := range args {
		switch {
		case a == "all":
			for _, s := range allServices {
				want[s] = true
			}
		case slices.Contains(allServices, a):
			want[a] = true
		default:
			return nil, fmt.Errorf("%w %q (want risk, weather, sentiment or all)", errUnknownService, a)
		}
	}
	var out []string
	for _, s := range allServices {
		if want[s] {
			out = append(out, s)
		}
	}
	return out, nil
}

// runServe builds the requested services, runs them under the supervisor
// tree and blocks until ctx is canceled or startup fails.
func runServe(ctx context.Context, cfg *config.Config, names []string) error {
	logging.Info().Strs("services", names).Str("config", cfg.String()).Msg("Starting sibyl")

	app, err := newApplication(cfg, slices.Contains(names, serviceRisk))
	if err != nil {
		return err
	}
	defer app.Close()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		app.shutdownNATS()
		return fmt.Errorf("failed to create supervisor tree: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		startupMu  sync.Mutex
		startupErr error
	)
	fail := func(err error) {
		startupMu.Lock()
		if startupErr == nil {
			startupErr = err
		}
		startupMu.Unlock()
		cancel()
	}

	timeout := cfg.Server.ShutdownTimeout
	for _, name := range names {
		port := app.port(name)
		switch name {
		case serviceRisk:
			h, err := app.riskRouter()
			if err != nil {
				app.shutdownNATS()
				return err
			}
			tree.AddAPIService(services.NewHTTPServerService("risk-http", app.newHTTPServer(port, h), timeout))

		case serviceWeather:
			h, cache, err := app.weatherRouter()
			if err != nil {
				app.shutdownNATS()
				return err
			}
			defer func() {
				if err := cache.Close(); err != nil {
					logging.Warn().Err(err).Msg("Error closing weather cache")
				}
			}()
			tree.AddAPIService(services.NewHTTPServerService("weather-http", app.newHTTPServer(port, h), timeout))

		case serviceSentiment:
			h, train, err := app.sentimentRouter()
			if err != nil {
				app.shutdownNATS()
				return err
			}
			srv := app.newHTTPServer(port, h)
			job := services.NewJobService("sentiment-training", 1, func(ctx context.Context) error {
				if err := train(ctx); err != nil {
					return err
				}
				tree.AddAPIService(services.NewHTTPServerService("sentiment-http", srv, timeout))
				logging.Info().Str("addr", srv.Addr).Msg("Sentiment service listening")
				return nil
			})
			tree.AddJobService(job)
			go func() {
				select {
				case <-job.Done():
					if err := job.Err(); err != nil {
						fail(fmt.Errorf("sentiment training failed: %w", err))
					}
				case <-ctx.Done():
				}
			}()
			continue
		}
		logging.Info().Str("service", name).Str("addr", cfg.Server.Addr(port)).Msg("Service added to supervisor tree")
	}

	if app.natsSrv != nil {
		tree.AddMessagingService(services.NewNATSServerService(app.natsSrv, timeout))
	}

	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}
	tree.LogUnstopped()

	startupMu.Lock()
	defer startupMu.Unlock()
	if startupErr != nil {
		return startupErr
	}
	logging.Info().Msg("Sibyl stopped gracefully")
	return nil
}
