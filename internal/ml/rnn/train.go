// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package rnn

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// TrainConfig controls Fit.
type TrainConfig struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
	// ClipNorm caps the global gradient norm per batch; 0 disables.
	ClipNorm float64
	Seed     int64
}

// DefaultTrainConfig returns 5 epochs of batch 32 at learning rate 0.005.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{Epochs: 5, BatchSize: 32, LearningRate: 0.005, ClipNorm: 5, Seed: 42}
}

// EpochStats summarizes one training epoch.
type EpochStats struct {
	Epoch         int
	Loss          float64
	TrainAccuracy float64
	// ValAccuracy is NaN when no validation set was given.
	ValAccuracy float64
}

// Dataset is a set of padded sequences with class labels.
type Dataset struct {
	X [][]int
	Y []int
}

func (d Dataset) check(m *Model) error {
	if len(d.X) != len(d.Y) {
		return fmt.Errorf("%d sequences but %d labels", len(d.X), len(d.Y))
	}
	for i := range d.X {
		if err := m.check(d.X[i]); err != nil {
			return fmt.Errorf("sequence %d: %w", i, err)
		}
		if d.Y[i] < 0 || d.Y[i] >= m.Config.Classes {
			return fmt.Errorf("sequence %d: label %d not in [0, %d)", i, d.Y[i], m.Config.Classes)
		}
	}
	return nil
}

// Fit trains the model in place with shuffled mini-batches. onEpoch, when
// non-nil, is called after every epoch. Fit stops early with ctx.Err()
// if ctx is canceled between batches.
func (m *Model) Fit(ctx context.Context, train, val Dataset, cfg TrainConfig, onEpoch func(EpochStats)) ([]EpochStats, error) {
	if cfg.Epochs < 1 || cfg.BatchSize < 1 || cfg.LearningRate <= 0 {
		return nil, fmt.Errorf("invalid training config: epochs=%d batch=%d lr=%v", cfg.Epochs, cfg.BatchSize, cfg.LearningRate)
	}
	if len(train.X) == 0 {
		return nil, errors.New("fit: empty training set")
	}
	if err := train.check(m); err != nil {
		return nil, fmt.Errorf("fit: training set: %w", err)
	}
	if err := val.check(m); err != nil {
		return nil, fmt.Errorf("fit: validation set: %w", err)
	}

	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // reproducible shuffling
	opt := newAdam(m, cfg.LearningRate)
	g := newGradients(m)

	history := make([]EpochStats, 0, cfg.Epochs)
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		order := rng.Perm(len(train.X))
		var lossSum float64
		hits := 0

		for start := 0; start < len(order); start += cfg.BatchSize {
			if err := ctx.Err(); err != nil {
				return history, err
			}
			end := start + cfg.BatchSize
			if end > len(order) {
				end = len(order)
			}

			g.reset()
			for _, i := range order[start:end] {
				tr := m.forward(train.X[i])
				p := tr.probs[train.Y[i]]
				lossSum -= math.Log(math.Max(p, 1e-12))
				if argmax(tr.probs) == train.Y[i] {
					hits++
				}
				m.backward(tr, train.Y[i], g)
			}
			g.scale(1 / float64(end-start))
			if cfg.ClipNorm > 0 {
				g.clip(cfg.ClipNorm)
			}
			opt.step(m, g)
		}

		stats := EpochStats{
			Epoch:         epoch,
			Loss:          lossSum / float64(len(train.X)),
			TrainAccuracy: float64(hits) / float64(len(train.X)),
			ValAccuracy:   math.NaN(),
		}
		if len(val.X) > 0 {
			acc, err := m.Evaluate(val.X, val.Y)
			if err != nil {
				return history, err
			}
			stats.ValAccuracy = acc
		}
		history = append(history, stats)
		if onEpoch != nil {
			onEpoch(stats)
		}
	}
	return history, nil
}

// gradients mirrors Model. Embedding gradients are sparse by row.
type gradients struct {
	embedding map[int][]float64
	wx, wh    []float64
	bh        []float64
	wo, bo    []float64
	dim       int
}

func newGradients(m *Model) *gradients {
	return &gradients{
		embedding: make(map[int][]float64),
		wx:        make([]float64, len(m.Wx)),
		wh:        make([]float64, len(m.Wh)),
		bh:        make([]float64, len(m.Bh)),
		wo:        make([]float64, len(m.Wo)),
		bo:        make([]float64, len(m.Bo)),
		dim:       m.Config.EmbeddingDim,
	}
}

func (g *gradients) dense() [][]float64 {
	return [][]float64{g.wx, g.wh, g.bh, g.wo, g.bo}
}

func (g *gradients) reset() {
	for _, s := range g.dense() {
		clear(s)
	}
	clear(g.embedding)
}

func (g *gradients) embeddingRow(id int) []float64 {
	row, ok := g.embedding[id]
	if !ok {
		row = make([]float64, g.dim)
		g.embedding[id] = row
	}
	return row
}

// rows returns the touched embedding ids in ascending order, so
// floating-point sums do not depend on map iteration order.
func (g *gradients) rows() []int {
	ids := make([]int, 0, len(g.embedding))
	for id := range g.embedding {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (g *gradients) each(fn func(s []float64)) {
	for _, s := range g.dense() {
		fn(s)
	}
	for _, id := range g.rows() {
		fn(g.embedding[id])
	}
}

func (g *gradients) scale(f float64) {
	g.each(func(s []float64) {
		for i := range s {
			s[i] *= f
		}
	})
}

func (g *gradients) clip(maxNorm float64) {
	var sq float64
	g.each(func(s []float64) {
		for _, v := range s {
			sq += v * v
		}
	})
	if norm := math.Sqrt(sq); norm > maxNorm {
		g.scale(maxNorm / norm)
	}
}

// backward accumulates the cross-entropy gradient of one example into g.
func (m *Model) backward(tr *trace, label int, g *gradients) {
	d, h := m.Config.EmbeddingDim, m.Config.HiddenDim
	last := tr.states[len(tr.states)-1]

	dh := make([]float64, h)
	for c, p := range tr.probs {
		dz := p
		if c == label {
			dz--
		}
		g.bo[c] += dz
		wo := m.Wo[c*h : (c+1)*h]
		gwo := g.wo[c*h : (c+1)*h]
		for k := range last {
			gwo[k] += dz * last[k]
			dh[k] += dz * wo[k]
		}
	}

	da := make([]float64, h)
	for t := len(tr.tokens) - 1; t >= 0; t-- {
		cur, prev := tr.states[t+1], tr.states[t]
		id := tr.tokens[t]
		x := m.Embedding[id*d : (id+1)*d]
		gx := g.embeddingRow(id)

		for i := 0; i < h; i++ {
			da[i] = dh[i] * (1 - cur[i]*cur[i])
		}
		clear(dh)
		for i := 0; i < h; i++ {
			a := da[i]
			if a == 0 {
				continue
			}
			g.bh[i] += a
			wx := m.Wx[i*d : (i+1)*d]
			gwx := g.wx[i*d : (i+1)*d]
			for k := range x {
				gwx[k] += a * x[k]
				gx[k] += a * wx[k]
			}
			wh := m.Wh[i*h : (i+1)*h]
			gwh := g.wh[i*h : (i+1)*h]
			for k := range prev {
				gwh[k] += a * prev[k]
				dh[k] += a * wh[k]
			}
		}
	}
}

// adam holds first and second moment estimates per parameter.
type adam struct {
	lr, beta1, beta2, eps float64
	t                     int

	m, v       [][]float64 // dense parameters, same order as gradients.dense
	embM, embV []float64
}

func newAdam(model *Model, lr float64) *adam {
	a := &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-7}
	for _, p := range model.dense() {
		a.m = append(a.m, make([]float64, len(p)))
		a.v = append(a.v, make([]float64, len(p)))
	}
	a.embM = make([]float64, len(model.Embedding))
	a.embV = make([]float64, len(model.Embedding))
	return a
}

func (m *Model) dense() [][]float64 {
	return [][]float64{m.Wx, m.Wh, m.Bh, m.Wo, m.Bo}
}

func (a *adam) update(param, grad, mom, vel []float64, lrT float64) {
	for i, gv := range grad {
		mom[i] = a.beta1*mom[i] + (1-a.beta1)*gv
		vel[i] = a.beta2*vel[i] + (1-a.beta2)*gv*gv
		param[i] -= lrT * mom[i] / (math.Sqrt(vel[i]) + a.eps)
	}
}

// step applies one update. Embedding rows absent from the batch keep
// their moments and weights unchanged.
func (a *adam) step(model *Model, g *gradients) {
	a.t++
	lrT := a.lr * math.Sqrt(1-math.Pow(a.beta2, float64(a.t))) / (1 - math.Pow(a.beta1, float64(a.t)))

	params := model.dense()
	for k, grad := range g.dense() {
		a.update(params[k], grad, a.m[k], a.v[k], lrT)
	}

	d := model.Config.EmbeddingDim
	for _, id := range g.rows() {
		lo, hi := id*d, (id+1)*d
		a.update(model.Embedding[lo:hi], g.embedding[id], a.embM[lo:hi], a.embV[lo:hi], lrT)
	}
}
