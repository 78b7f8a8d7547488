// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package gbm

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"

	"github.com/goccy/go-json"
)

// ErrFeatureMismatch is returned when a row's width differs from the
// width the booster was trained on.
var ErrFeatureMismatch = errors.New("feature count mismatch")

// Booster is a trained additive tree ensemble.
type Booster struct {
	Params      Params  `json:"params"`
	NumFeatures int     `json:"num_features"`
	BaseMargin  float64 `json:"base_margin"`
	Trees       []Tree  `json:"trees"`
}

// Train fits a booster on x (rows of equal width) and targets y. For
// BinaryLogistic, y must contain only 0 and 1.
func Train(x [][]float64, y []float64, params Params) (*Booster, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(x) == 0 {
		return nil, errors.New("train: no rows")
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("train: %d rows but %d targets", len(x), len(y))
	}
	nf := len(x[0])
	if nf == 0 {
		return nil, errors.New("train: zero features")
	}
	for i, row := range x {
		if len(row) != nf {
			return nil, fmt.Errorf("train: row %d has %d features, want %d: %w", i, len(row), nf, ErrFeatureMismatch)
		}
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("train: target %d is not finite", i)
		}
		if params.Objective == BinaryLogistic && v != 0 && v != 1 {
			return nil, fmt.Errorf("train: binary target %d is %v, want 0 or 1", i, v)
		}
	}

	b := &Booster{
		Params:      params,
		NumFeatures: nf,
		BaseMargin:  baseMargin(y, params.Objective),
		Trees:       make([]Tree, 0, params.Rounds),
	}

	n := len(x)
	margin := make([]float64, n)
	for i := range margin {
		margin[i] = b.BaseMargin
	}
	grad := make([]float64, n)
	hess := make([]float64, n)
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}

	rng := rand.New(rand.NewSource(params.Seed)) //nolint:gosec // reproducible column sampling
	ncols := int(math.Round(params.ColsampleByTree * float64(nf)))
	if ncols < 1 {
		ncols = 1
	}
	builder := &treeBuilder{x: x, grad: grad, hess: hess, params: &b.Params}

	for round := 0; round < params.Rounds; round++ {
		gradients(params.Objective, margin, y, grad, hess)

		builder.features = rng.Perm(nf)[:ncols]
		tree := builder.build(rows)
		for k := range tree.Nodes {
			if tree.Nodes[k].Leaf {
				tree.Nodes[k].Value *= params.LearningRate
			}
		}
		for i := range margin {
			margin[i] += tree.predict(x[i])
		}
		b.Trees = append(b.Trees, tree)
	}

	return b, nil
}

func baseMargin(y []float64, obj Objective) float64 {
	var mean float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))
	if obj == BinaryLogistic {
		p := math.Min(math.Max(mean, 1e-6), 1-1e-6)
		return math.Log(p / (1 - p))
	}
	return mean
}

func gradients(obj Objective, margin, y, grad, hess []float64) {
	switch obj {
	case BinaryLogistic:
		for i := range margin {
			p := sigmoid(margin[i])
			grad[i] = p - y[i]
			hess[i] = math.Max(p*(1-p), 1e-16)
		}
	default:
		for i := range margin {
			grad[i] = margin[i] - y[i]
			hess[i] = 1
		}
	}
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// PredictMargin returns the raw additive score for one row.
func (b *Booster) PredictMargin(x []float64) (float64, error) {
	if len(x) != b.NumFeatures {
		return 0, fmt.Errorf("booster expects %d features, got %d: %w", b.NumFeatures, len(x), ErrFeatureMismatch)
	}
	m := b.BaseMargin
	for i := range b.Trees {
		m += b.Trees[i].predict(x)
	}
	return m, nil
}

// Predict returns the regression value, or P(y=1) for BinaryLogistic.
func (b *Booster) Predict(x []float64) (float64, error) {
	m, err := b.PredictMargin(x)
	if err != nil {
		return 0, err
	}
	if b.Params.Objective == BinaryLogistic {
		return sigmoid(m), nil
	}
	return m, nil
}

// PredictProba returns [P(y=0), P(y=1)] for a binary classifier.
func (b *Booster) PredictProba(x []float64) ([2]float64, error) {
	if b.Params.Objective != BinaryLogistic {
		return [2]float64{}, fmt.Errorf("predict proba on %s booster", b.Params.Objective)
	}
	p, err := b.Predict(x)
	if err != nil {
		return [2]float64{}, err
	}
	return [2]float64{1 - p, p}, nil
}

// PredictBatch predicts every row of x.
func (b *Booster) PredictBatch(x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i, row := range x {
		v, err := b.Predict(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// WriteJSON serializes the booster.
func (b *Booster) WriteJSON(w io.Writer) error {
	return json.NewEncoder(w).Encode(b)
}

// ReadBooster decodes a booster and checks that every tree is well formed.
func ReadBooster(r io.Reader) (*Booster, error) {
	var b Booster
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode booster: %w", err)
	}
	if err := b.Params.Validate(); err != nil {
		return nil, err
	}
	if b.NumFeatures < 1 {
		return nil, fmt.Errorf("booster has %d features", b.NumFeatures)
	}
	if len(b.Trees) == 0 {
		return nil, errors.New("booster has no trees")
	}
	for ti := range b.Trees {
		if err := b.Trees[ti].check(b.NumFeatures); err != nil {
			return nil, fmt.Errorf("tree %d: %w", ti, err)
		}
	}
	return &b, nil
}

// check verifies node references point forward and features are in range,
// which also rules out cycles.
func (t *Tree) check(numFeatures int) error {
	if len(t.Nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, n := range t.Nodes {
		if n.Leaf {
			continue
		}
		if n.Feature < 0 || n.Feature >= numFeatures {
			return fmt.Errorf("node %d splits on feature %d of %d", i, n.Feature, numFeatures)
		}
		if n.Left <= i || n.Right <= i || n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d has invalid children %d/%d", i, n.Left, n.Right)
		}
	}
	return nil
}
