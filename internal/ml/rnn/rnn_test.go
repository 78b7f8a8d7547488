// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package rnn

import (
	"context"
	"errors"
	"math"
	"testing"
)

func smallModel(t *testing.T) *Model {
	t.Helper()
	m, err := New(Config{VocabSize: 12, EmbeddingDim: 6, HiddenDim: 8, Classes: 3, Seed: 7})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return m
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	bad := []Config{
		{VocabSize: 1, EmbeddingDim: 4, HiddenDim: 4, Classes: 3},
		{VocabSize: 10, EmbeddingDim: 0, HiddenDim: 4, Classes: 3},
		{VocabSize: 10, EmbeddingDim: 4, HiddenDim: 0, Classes: 3},
		{VocabSize: 10, EmbeddingDim: 4, HiddenDim: 4, Classes: 1},
	}
	for _, cfg := range bad {
		if _, err := New(cfg); err == nil {
			t.Errorf("New(%+v) accepted invalid config", cfg)
		}
	}
}

func TestProbabilitiesAndMasking(t *testing.T) {
	t.Parallel()

	m := smallModel(t)
	p, err := m.Probabilities([]int{3, 5, 0, 0, 0})
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, v := range p {
		if v < 0 {
			t.Fatalf("negative probability %v", p)
		}
		sum += v
	}
	if math.Abs(sum-1) > 1e-12 {
		t.Errorf("probabilities sum to %v", sum)
	}

	short, _ := m.Probabilities([]int{3, 5})
	lead, _ := m.Probabilities([]int{0, 0, 3, 5})
	for i := range p {
		if p[i] != short[i] || p[i] != lead[i] {
			t.Fatalf("padding changed output: %v / %v / %v", p, short, lead)
		}
	}
}

func TestPredictRejectsOutOfRange(t *testing.T) {
	t.Parallel()

	m := smallModel(t)
	for _, seq := range [][]int{{12}, {-1}} {
		if _, err := m.Predict(seq); !errors.Is(err, ErrTokenOutOfRange) {
			t.Errorf("Predict(%v) error = %v", seq, err)
		}
	}
}

func loss(m *Model, seq []int, label int) float64 {
	return -math.Log(m.forward(seq).probs[label])
}

func TestBackwardMatchesNumericalGradient(t *testing.T) {
	t.Parallel()

	m := smallModel(t)
	seq := []int{4, 9, 2, 0}
	label := 1

	g := newGradients(m)
	m.backward(m.forward(seq), label, g)

	const eps = 1e-6
	check := func(name string, param []float64, grad []float64, idx int) {
		t.Helper()
		orig := param[idx]
		param[idx] = orig + eps
		up := loss(m, seq, label)
		param[idx] = orig - eps
		down := loss(m, seq, label)
		param[idx] = orig

		num := (up - down) / (2 * eps)
		if diff := math.Abs(num - grad[idx]); diff > 1e-6*math.Max(1, math.Abs(num)) {
			t.Errorf("%s[%d]: analytic %v, numerical %v", name, idx, grad[idx], num)
		}
	}

	for _, idx := range []int{0, 7, 20, 47} {
		check("wx", m.Wx, g.wx, idx)
	}
	for _, idx := range []int{0, 9, 33, 63} {
		check("wh", m.Wh, g.wh, idx)
	}
	for _, idx := range []int{0, 5} {
		check("bh", m.Bh, g.bh, idx)
	}
	for _, idx := range []int{0, 11, 23} {
		check("wo", m.Wo, g.wo, idx)
	}
	check("bo", m.Bo, g.bo, 2)

	d := m.Config.EmbeddingDim
	for _, id := range []int{4, 9, 2} {
		row := m.Embedding[id*d : (id+1)*d]
		for k := 0; k < d; k += 2 {
			check("embedding", row, g.embedding[id], k)
		}
	}
	if _, ok := g.embedding[0]; ok {
		t.Error("padding row received a gradient")
	}
}

// toyData labels each sequence by its last real token: 2, 3, 4 map to
// classes 0, 1, 2. Earlier tokens are noise.
func toyData(n int) Dataset {
	var ds Dataset
	for i := 0; i < n; i++ {
		label := i % 3
		noise := 5 + (i*7)%6
		ds.X = append(ds.X, []int{noise, 2 + label, 0, 0})
		ds.Y = append(ds.Y, label)
	}
	return ds
}

func TestFitLearnsToyTask(t *testing.T) {
	t.Parallel()

	m := smallModel(t)
	cfg := TrainConfig{Epochs: 40, BatchSize: 8, LearningRate: 0.05, ClipNorm: 5, Seed: 42}

	var seen int
	history, err := m.Fit(context.Background(), toyData(60), toyData(15), cfg, func(EpochStats) { seen++ })
	if err != nil {
		t.Fatalf("Fit() error = %v", err)
	}
	if len(history) != 40 || seen != 40 {
		t.Fatalf("history = %d epochs, callback = %d", len(history), seen)
	}
	if history[39].Loss >= history[0].Loss {
		t.Errorf("loss did not decrease: %v -> %v", history[0].Loss, history[39].Loss)
	}
	if acc := history[39].ValAccuracy; acc < 0.9 {
		t.Errorf("validation accuracy = %v, want >= 0.9", acc)
	}
}

func TestFitDeterministic(t *testing.T) {
	t.Parallel()

	cfg := TrainConfig{Epochs: 3, BatchSize: 4, LearningRate: 0.01, ClipNorm: 5, Seed: 1}
	probe := []int{6, 3, 0, 0}

	var outs [2][]float64
	for i := range outs {
		m := smallModel(t)
		if _, err := m.Fit(context.Background(), toyData(20), Dataset{}, cfg, nil); err != nil {
			t.Fatal(err)
		}
		outs[i], _ = m.Probabilities(probe)
	}
	for k := range outs[0] {
		if outs[0][k] != outs[1][k] {
			t.Fatalf("same seed trained to different weights: %v vs %v", outs[0], outs[1])
		}
	}
}

func TestFitNoValidationReportsNaN(t *testing.T) {
	t.Parallel()

	m := smallModel(t)
	cfg := TrainConfig{Epochs: 1, BatchSize: 4, LearningRate: 0.01, Seed: 1}
	history, err := m.Fit(context.Background(), toyData(6), Dataset{}, cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(history[0].ValAccuracy) {
		t.Errorf("ValAccuracy = %v, want NaN", history[0].ValAccuracy)
	}
}

func TestFitErrors(t *testing.T) {
	t.Parallel()

	m := smallModel(t)
	cfg := DefaultTrainConfig()

	if _, err := m.Fit(context.Background(), Dataset{}, Dataset{}, cfg, nil); err == nil {
		t.Error("empty training set accepted")
	}
	bad := Dataset{X: [][]int{{1}}, Y: []int{5}}
	if _, err := m.Fit(context.Background(), bad, Dataset{}, cfg, nil); err == nil {
		t.Error("out-of-range label accepted")
	}
	cfg.Epochs = 0
	if _, err := m.Fit(context.Background(), toyData(3), Dataset{}, cfg, nil); err == nil {
		t.Error("zero epochs accepted")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := m.Fit(ctx, toyData(6), Dataset{}, DefaultTrainConfig(), nil); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled Fit() error = %v", err)
	}
}
