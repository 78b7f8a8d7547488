// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

// Package gbm implements second-order gradient-boosted regression trees
// with L1/L2 leaf regularization and per-tree column subsampling.
//
// Two objectives are supported: squared-error regression, used by the
// weather forecaster, and binary logistic classification, used by the
// risk classifier. Trained boosters serialize to JSON and are immutable
// afterwards, so Predict is safe for concurrent use.
//
//	b, err := gbm.Train(x, y, gbm.RegressionParams())
//	yhat := b.Predict(row)
package gbm

import (
	"errors"
	"fmt"
)

// Objective selects the loss being minimized.
type Objective string

const (
	// SquaredError fits real-valued targets.
	SquaredError Objective = "reg:squarederror"
	// BinaryLogistic fits 0/1 targets and predicts P(y=1).
	BinaryLogistic Objective = "binary:logistic"
)

// Params configures training.
type Params struct {
	Objective Objective `json:"objective"`
	Rounds    int       `json:"rounds"`
	// LearningRate shrinks each tree's contribution (eta).
	LearningRate float64 `json:"learning_rate"`
	MaxDepth     int     `json:"max_depth"`
	// Lambda is the L2 penalty on leaf weights.
	Lambda float64 `json:"lambda"`
	// Alpha is the L1 penalty on leaf weights.
	Alpha float64 `json:"alpha"`
	// Gamma is the minimum loss reduction required to split.
	Gamma          float64 `json:"gamma"`
	MinChildWeight float64 `json:"min_child_weight"`
	// ColsampleByTree is the fraction of features each tree may use.
	ColsampleByTree float64 `json:"colsample_bytree"`
	Seed            int64   `json:"seed"`
}

// RegressionParams returns the forecaster defaults: 100 rounds,
// learning rate 0.1, depth 5, alpha 10, colsample 0.3.
func RegressionParams() Params {
	return Params{
		Objective:       SquaredError,
		Rounds:          100,
		LearningRate:    0.1,
		MaxDepth:        5,
		Lambda:          1,
		Alpha:           10,
		MinChildWeight:  1,
		ColsampleByTree: 0.3,
		Seed:            42,
	}
}

// ClassifierParams returns the conventional boosted-classifier defaults:
// 100 rounds, learning rate 0.3, depth 6, no column subsampling.
func ClassifierParams() Params {
	return Params{
		Objective:       BinaryLogistic,
		Rounds:          100,
		LearningRate:    0.3,
		MaxDepth:        6,
		Lambda:          1,
		MinChildWeight:  1,
		ColsampleByTree: 1,
		Seed:            42,
	}
}

// ErrInvalidParams wraps every parameter validation failure.
var ErrInvalidParams = errors.New("invalid boosting parameters")

// Validate reports the first out-of-range parameter.
func (p Params) Validate() error {
	switch {
	case p.Objective != SquaredError && p.Objective != BinaryLogistic:
		return fmt.Errorf("%w: unknown objective %q", ErrInvalidParams, p.Objective)
	case p.Rounds < 1:
		return fmt.Errorf("%w: rounds must be >= 1, got %d", ErrInvalidParams, p.Rounds)
	case p.LearningRate <= 0 || p.LearningRate > 1:
		return fmt.Errorf("%w: learning_rate must be in (0, 1], got %v", ErrInvalidParams, p.LearningRate)
	case p.MaxDepth < 1:
		return fmt.Errorf("%w: max_depth must be >= 1, got %d", ErrInvalidParams, p.MaxDepth)
	case p.Lambda < 0 || p.Alpha < 0 || p.Gamma < 0 || p.MinChildWeight < 0:
		return fmt.Errorf("%w: regularization terms must be non-negative", ErrInvalidParams)
	case p.ColsampleByTree <= 0 || p.ColsampleByTree > 1:
		return fmt.Errorf("%w: colsample_bytree must be in (0, 1], got %v", ErrInvalidParams, p.ColsampleByTree)
	}
	return nil
}
