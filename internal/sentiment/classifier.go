// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package sentiment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/tomtom215/sibyl/internal/config"
	"github.com/tomtom215/sibyl/internal/logging"
	"github.com/tomtom215/sibyl/internal/metrics"
	"github.com/tomtom215/sibyl/internal/ml"
	"github.com/tomtom215/sibyl/internal/ml/rnn"
	"github.com/tomtom215/sibyl/internal/ml/text"
)

// Split fractions.
const (
	ValidationFraction = 0.2
	TestFraction       = 0.2
)

// Options configures Train.
type Options struct {
	VocabSize    int
	MaxLen       int
	EmbeddingDim int
	HiddenDim    int
	Epochs       int
	BatchSize    int
	LearningRate float64
	Seed         int64
	Stopwords    text.Stopwords
}

// DefaultOptions mirrors the config defaults.
func DefaultOptions() Options {
	return Options{
		VocabSize:    10000,
		MaxLen:       100,
		EmbeddingDim: 64,
		HiddenDim:    64,
		Epochs:       5,
		BatchSize:    32,
		LearningRate: 0.005,
		Seed:         42,
		Stopwords:    text.IndonesianStopwords(),
	}
}

// OptionsFrom maps the sentiment config section. A configured stopword
// file replaces the built-in list.
func OptionsFrom(cfg config.SentimentConfig) (Options, error) {
	opts := Options{
		VocabSize:    cfg.VocabSize,
		MaxLen:       cfg.MaxLen,
		EmbeddingDim: cfg.EmbeddingDim,
		HiddenDim:    cfg.HiddenDim,
		Epochs:       cfg.Epochs,
		BatchSize:    cfg.BatchSize,
		LearningRate: cfg.LearningRate,
		Seed:         cfg.Seed,
		Stopwords:    text.IndonesianStopwords(),
	}
	if cfg.StopwordsPath != "" {
		f, err := os.Open(cfg.StopwordsPath)
		if err != nil {
			return opts, fmt.Errorf("open stopwords: %w", err)
		}
		defer f.Close()
		if opts.Stopwords, err = text.ReadStopwords(f); err != nil {
			return opts, fmt.Errorf("read stopwords %s: %w", cfg.StopwordsPath, err)
		}
	}
	return opts, nil
}

// Report summarizes a training run.
type Report struct {
	TrainRows          int
	ValidationRows     int
	TestRows           int
	Skipped            int
	VocabSize          int
	Epochs             []rnn.EpochStats
	ValidationAccuracy float64
	TestAccuracy       float64
	Duration           time.Duration
}

// Classifier is a trained text pipeline and network. It is read-only after
// Train and safe for concurrent use.
type Classifier struct {
	cleaner   *text.Cleaner
	tokenizer *text.Tokenizer
	model     *rnn.Model
	maxLen    int
}

// Prediction is the result for one text.
type Prediction struct {
	Label         string
	Class         int
	Cleaned       string
	Probabilities []float64
}

// Train fits a classifier on ds. Per-epoch progress is logged.
func Train(ctx context.Context, ds *Dataset, opts Options) (*Classifier, *Report, error) {
	if ds == nil || ds.Len() < 3 {
		return nil, nil, errors.New("sentiment dataset needs at least 3 labeled rows")
	}
	if opts.MaxLen < 1 {
		return nil, nil, fmt.Errorf("max length must be positive, got %d", opts.MaxLen)
	}
	start := time.Now()

	cleaner := text.NewCleaner(opts.Stopwords)
	cleaned := make([]string, ds.Len())
	for i, s := range ds.Texts {
		cleaned[i] = cleaner.Clean(s)
	}

	trainIdx, valIdx, testIdx, err := ml.ThreeWaySplit(ds.Len(), ValidationFraction, TestFraction, opts.Seed)
	if err != nil {
		return nil, nil, fmt.Errorf("split dataset: %w", err)
	}
	trainTexts := ml.SelectRows(cleaned, trainIdx)

	tokenizer := text.NewTokenizer(opts.VocabSize)
	tokenizer.Fit(trainTexts)

	encode := func(idx []int) rnn.Dataset {
		return rnn.Dataset{
			X: text.PadAll(tokenizer.Sequences(ml.SelectRows(cleaned, idx)), opts.MaxLen),
			Y: ml.SelectRows(ds.Labels, idx),
		}
	}
	train, val, test := encode(trainIdx), encode(valIdx), encode(testIdx)

	model, err := rnn.New(rnn.Config{
		VocabSize:    tokenizer.VocabSize(),
		EmbeddingDim: opts.EmbeddingDim,
		HiddenDim:    opts.HiddenDim,
		Classes:      len(Labels),
		Seed:         opts.Seed,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("build network: %w", err)
	}

	trainCfg := rnn.DefaultTrainConfig()
	trainCfg.Epochs = opts.Epochs
	trainCfg.BatchSize = opts.BatchSize
	trainCfg.LearningRate = opts.LearningRate
	trainCfg.Seed = opts.Seed

	history, err := model.Fit(ctx, train, val, trainCfg, func(s rnn.EpochStats) {
		logging.Info().
			Int("epoch", s.Epoch).
			Int("epochs", trainCfg.Epochs).
			Float64("loss", s.Loss).
			Float64("train_accuracy", s.TrainAccuracy).
			Float64("val_accuracy", s.ValAccuracy).
			Msg("Sentiment epoch complete")
	})
	if err != nil {
		return nil, nil, fmt.Errorf("train network: %w", err)
	}

	testAcc, err := model.Evaluate(test.X, test.Y)
	if err != nil {
		return nil, nil, fmt.Errorf("evaluate test split: %w", err)
	}

	report := &Report{
		TrainRows:          len(trainIdx),
		ValidationRows:     len(valIdx),
		TestRows:           len(testIdx),
		Skipped:            ds.Skipped,
		VocabSize:          tokenizer.VocabSize(),
		Epochs:             history,
		ValidationAccuracy: history[len(history)-1].ValAccuracy,
		TestAccuracy:       testAcc,
		Duration:           time.Since(start),
	}
	metrics.RecordTraining(serviceName, report.Duration)
	if !math.IsNaN(report.ValidationAccuracy) {
		metrics.SetAccuracy(serviceName, "validation", report.ValidationAccuracy)
	}
	metrics.SetAccuracy(serviceName, "test", testAcc)

	logging.Info().
		Int("train_rows", report.TrainRows).
		Int("validation_rows", report.ValidationRows).
		Int("test_rows", report.TestRows).
		Int("skipped_rows", report.Skipped).
		Int("vocab_size", report.VocabSize).
		Float64("validation_accuracy", report.ValidationAccuracy).
		Float64("test_accuracy", testAcc).
		Dur("duration", report.Duration).
		Msg("Sentiment classifier trained")

	return &Classifier{cleaner: cleaner, tokenizer: tokenizer, model: model, maxLen: opts.MaxLen}, report, nil
}

// Encode runs the cleaning, tokenizing and padding pipeline on s.
func (c *Classifier) Encode(s string) (cleaned string, seq []int) {
	cleaned = c.cleaner.Clean(s)
	return cleaned, text.Pad(c.tokenizer.Sequence(cleaned), c.maxLen)
}

// Predict classifies one raw text.
func (c *Classifier) Predict(s string) (Prediction, error) {
	cleaned, seq := c.Encode(s)
	probs, err := c.model.Probabilities(seq)
	if err != nil {
		return Prediction{}, fmt.Errorf("predict: %w", err)
	}
	class := 0
	for i, p := range probs {
		if p > probs[class] {
			class = i
		}
	}
	return Prediction{Label: Labels[class], Class: class, Cleaned: cleaned, Probabilities: probs}, nil
}
