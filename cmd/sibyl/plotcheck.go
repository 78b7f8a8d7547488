// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package main

import (
	"github.com/spf13/cobra"

	"github.com/tomtom215/sibyl/internal/plotcheck"
)

func newPlotcheckCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "plotcheck",
		Short: "Print plotting library versions and draw a test chart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return plotcheck.Run(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&out, "out", plotcheck.DefaultOutput, "output image path")
	return cmd
}
