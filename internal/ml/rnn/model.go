// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

// Package rnn implements a small sequence classifier: an embedding table,
// one Elman recurrent layer with tanh activation and a softmax output.
// Padding id 0 is masked, so trailing padding never changes the state.
//
// Training uses full backpropagation through time with the Adam
// optimizer and global-norm gradient clipping. A trained Model is
// read-only and Predict is safe for concurrent use.
package rnn

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// Config sizes the network.
type Config struct {
	VocabSize    int   `json:"vocab_size"`
	EmbeddingDim int   `json:"embedding_dim"`
	HiddenDim    int   `json:"hidden_dim"`
	Classes      int   `json:"classes"`
	Seed         int64 `json:"seed"`
}

// Validate checks that every dimension is positive.
func (c Config) Validate() error {
	if c.VocabSize < 2 || c.EmbeddingDim < 1 || c.HiddenDim < 1 || c.Classes < 2 {
		return fmt.Errorf("invalid network size: vocab=%d embedding=%d hidden=%d classes=%d",
			c.VocabSize, c.EmbeddingDim, c.HiddenDim, c.Classes)
	}
	return nil
}

// ErrTokenOutOfRange is returned for ids outside [0, VocabSize).
var ErrTokenOutOfRange = errors.New("token id out of range")

// Model holds the network weights. Matrices are row-major.
type Model struct {
	Config Config `json:"config"`

	Embedding []float64 `json:"embedding"` // VocabSize x EmbeddingDim
	Wx        []float64 `json:"wx"`        // HiddenDim x EmbeddingDim
	Wh        []float64 `json:"wh"`        // HiddenDim x HiddenDim
	Bh        []float64 `json:"bh"`        // HiddenDim
	Wo        []float64 `json:"wo"`        // Classes x HiddenDim
	Bo        []float64 `json:"bo"`        // Classes
}

// New returns a model with seeded random weights.
func New(cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // reproducible init

	v, d, h, c := cfg.VocabSize, cfg.EmbeddingDim, cfg.HiddenDim, cfg.Classes
	m := &Model{
		Config:    cfg,
		Embedding: uniform(rng, v*d, 0.05),
		Wx:        uniform(rng, h*d, math.Sqrt(6/float64(h+d))),
		Wh:        uniform(rng, h*h, math.Sqrt(6/float64(2*h))),
		Bh:        make([]float64, h),
		Wo:        uniform(rng, c*h, math.Sqrt(6/float64(c+h))),
		Bo:        make([]float64, c),
	}
	return m, nil
}

func uniform(rng *rand.Rand, n int, limit float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * limit
	}
	return out
}

// trace keeps the activations of one forward pass for backpropagation.
type trace struct {
	tokens []int       // unmasked ids in order
	states [][]float64 // states[0] is the zero state, states[t+1] follows tokens[t]
	probs  []float64
}

func (m *Model) check(seq []int) error {
	for i, id := range seq {
		if id < 0 || id >= m.Config.VocabSize {
			return fmt.Errorf("position %d: id %d not in [0, %d): %w", i, id, m.Config.VocabSize, ErrTokenOutOfRange)
		}
	}
	return nil
}

func (m *Model) forward(seq []int) *trace {
	d, h := m.Config.EmbeddingDim, m.Config.HiddenDim
	tr := &trace{states: [][]float64{make([]float64, h)}}

	for _, id := range seq {
		if id == 0 {
			continue
		}
		prev := tr.states[len(tr.states)-1]
		x := m.Embedding[id*d : (id+1)*d]
		next := make([]float64, h)
		for i := 0; i < h; i++ {
			a := m.Bh[i]
			wx := m.Wx[i*d : (i+1)*d]
			for k, xv := range x {
				a += wx[k] * xv
			}
			wh := m.Wh[i*h : (i+1)*h]
			for k, hv := range prev {
				a += wh[k] * hv
			}
			next[i] = math.Tanh(a)
		}
		tr.tokens = append(tr.tokens, id)
		tr.states = append(tr.states, next)
	}

	last := tr.states[len(tr.states)-1]
	logits := make([]float64, m.Config.Classes)
	for c := range logits {
		z := m.Bo[c]
		wo := m.Wo[c*h : (c+1)*h]
		for k, hv := range last {
			z += wo[k] * hv
		}
		logits[c] = z
	}
	tr.probs = softmax(logits)
	return tr
}

func softmax(z []float64) []float64 {
	maxZ := z[0]
	for _, v := range z[1:] {
		if v > maxZ {
			maxZ = v
		}
	}
	out := make([]float64, len(z))
	var sum float64
	for i, v := range z {
		out[i] = math.Exp(v - maxZ)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// Probabilities returns the class distribution for one padded sequence.
func (m *Model) Probabilities(seq []int) ([]float64, error) {
	if err := m.check(seq); err != nil {
		return nil, err
	}
	return m.forward(seq).probs, nil
}

// Predict returns the argmax class for one padded sequence.
func (m *Model) Predict(seq []int) (int, error) {
	p, err := m.Probabilities(seq)
	if err != nil {
		return 0, err
	}
	return argmax(p), nil
}

func argmax(p []float64) int {
	best := 0
	for i, v := range p {
		if v > p[best] {
			best = i
		}
	}
	return best
}

// Evaluate returns the accuracy over a labeled set.
func (m *Model) Evaluate(x [][]int, y []int) (float64, error) {
	if len(x) != len(y) {
		return 0, fmt.Errorf("evaluate: %d sequences but %d labels", len(x), len(y))
	}
	if len(x) == 0 {
		return 0, nil
	}
	hits := 0
	for i, seq := range x {
		pred, err := m.Predict(seq)
		if err != nil {
			return 0, fmt.Errorf("sequence %d: %w", i, err)
		}
		if pred == y[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(x)), nil
}
