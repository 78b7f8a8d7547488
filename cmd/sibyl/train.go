// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package main

import (
	"github.com/spf13/cobra"

	"github.com/tomtom215/sibyl/internal/risk"
)

func newTrainCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train offline models",
	}
	cmd.AddCommand(newTrainRiskCmd(opts))
	return cmd
}

type trainRiskOptions struct {
	data     string
	out      string
	testSize float64
	seed     int64
}

func newTrainRiskCmd(opts *rootOptions) *cobra.Command {
	def := risk.DefaultTrainOptions()
	o := &trainRiskOptions{}

	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Train the heart-disease risk classifier from a CSV",
		Long: `Read a CSV with a header row, binarize "num" into num > 0, fill missing
cells with the column mean, split train/test, fit a standard scaler and a
gradient-boosted classifier, print the evaluation report and write
heart_gbm_model.json and scaler.json into the output directory.`,
		Example: `  sibyl train risk --data heart.csv --out model`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			topts := risk.DefaultTrainOptions()
			topts.DataPath = o.data
			topts.OutDir = o.out
			topts.TestSize = cfg.Risk.TestSize
			topts.Seed = cfg.Risk.Seed
			if cmd.Flags().Changed("test-size") {
				topts.TestSize = o.testSize
			}
			if cmd.Flags().Changed("seed") {
				topts.Seed = o.seed
			}

			res, err := risk.Train(topts)
			if err != nil {
				return err
			}
			return res.WriteSummary(cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&o.data, "data", "", "input CSV with the 13 feature columns and num")
	cmd.Flags().StringVar(&o.out, "out", def.OutDir, "directory for the model and scaler artifacts")
	cmd.Flags().Float64Var(&o.testSize, "test-size", def.TestSize, "fraction of rows held out for evaluation (default from risk.test_size)")
	cmd.Flags().Int64Var(&o.seed, "seed", def.Seed, "shuffle seed (default from risk.seed)")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}
