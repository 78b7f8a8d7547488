// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

// Package main is the sibyl command.
//
// Sibyl bundles three small prediction services and their tooling:
//
//	sibyl serve risk        # heart-disease risk classifier   (:5000)
//	sibyl serve weather     # OpenWeatherMap forecaster        (:5001)
//	sibyl serve sentiment   # Indonesian sentiment classifier  (:5002)
//	sibyl serve all         # all three under one supervisor tree
//	sibyl train risk --data heart.csv --out model
//	sibyl plotcheck --out test_plot.png
//
// # Configuration
//
// Settings come from built-in defaults, then an optional YAML file
// (--config, CONFIG_PATH, ./config.yaml or /etc/sibyl/config.yaml), then
// environment variables such as WEATHER_API_KEY, DUCKDB_PATH and
// NATS_ENABLED. See internal/config for the full mapping.
//
// # Signal Handling
//
// SIGINT and SIGTERM cancel the supervisor tree; every HTTP server is
// shut down gracefully within server.shutdown_timeout.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "sibyl",
		Short: "Demo prediction services: heart risk, weather forecast, sentiment",
		Long: `sibyl runs three small prediction services over HTTP and the offline
tooling that feeds them.

  risk       scores a 13-field clinical feature vector with a boosted classifier
  weather    fits per-target regressors on an OpenWeatherMap feed and plots them
  sentiment  trains a recurrent network on a labeled dataset at startup`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	flags.StringVar(&opts.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
	flags.StringVar(&opts.logFormat, "log-format", "", "override logging.format (json, console)")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newTrainCmd(opts))
	root.AddCommand(newPlotcheckCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
