// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package ml

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/goccy/go-json"
)

// ErrDimensionMismatch is returned when a row has the wrong width.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// StandardScaler removes the mean and scales to unit variance per column.
// Constant columns keep a scale of 1, matching the usual convention.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitScaler computes column means and population standard deviations.
func FitScaler(x [][]float64) (*StandardScaler, error) {
	if len(x) == 0 {
		return nil, errors.New("fit scaler: no rows")
	}
	dim := len(x[0])
	if dim == 0 {
		return nil, errors.New("fit scaler: zero columns")
	}

	mean := make([]float64, dim)
	for i, row := range x {
		if len(row) != dim {
			return nil, fmt.Errorf("fit scaler: row %d has %d columns, want %d: %w", i, len(row), dim, ErrDimensionMismatch)
		}
		for j, v := range row {
			mean[j] += v
		}
	}
	n := float64(len(x))
	for j := range mean {
		mean[j] /= n
	}

	scale := make([]float64, dim)
	for _, row := range x {
		for j, v := range row {
			d := v - mean[j]
			scale[j] += d * d
		}
	}
	for j := range scale {
		scale[j] = math.Sqrt(scale[j] / n)
		if scale[j] == 0 {
			scale[j] = 1
		}
	}

	return &StandardScaler{Mean: mean, Scale: scale}, nil
}

// Dim returns the number of columns the scaler was fitted on.
func (s *StandardScaler) Dim() int {
	return len(s.Mean)
}

// TransformRow returns a scaled copy of row.
func (s *StandardScaler) TransformRow(row []float64) ([]float64, error) {
	if len(row) != s.Dim() {
		return nil, fmt.Errorf("scaler expects %d features, got %d: %w", s.Dim(), len(row), ErrDimensionMismatch)
	}
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Mean[j]) / s.Scale[j]
	}
	return out, nil
}

// Transform scales every row of x.
func (s *StandardScaler) Transform(x [][]float64) ([][]float64, error) {
	out := make([][]float64, len(x))
	for i, row := range x {
		scaled, err := s.TransformRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = scaled
	}
	return out, nil
}

// WriteJSON serializes the scaler.
func (s *StandardScaler) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// ReadScaler decodes and checks a scaler written by WriteJSON.
func ReadScaler(r io.Reader) (*StandardScaler, error) {
	var s StandardScaler
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode scaler: %w", err)
	}
	if len(s.Mean) == 0 || len(s.Mean) != len(s.Scale) {
		return nil, fmt.Errorf("scaler has %d means and %d scales: %w", len(s.Mean), len(s.Scale), ErrDimensionMismatch)
	}
	for j, sc := range s.Scale {
		if sc == 0 || math.IsNaN(sc) || math.IsInf(sc, 0) {
			return nil, fmt.Errorf("scaler column %d has invalid scale %v", j, sc)
		}
	}
	return &s, nil
}
