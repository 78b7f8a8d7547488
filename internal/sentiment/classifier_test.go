// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package sentiment

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/tomtom215/sibyl/internal/config"
	"github.com/tomtom215/sibyl/internal/ml/text"
)

var classWords = [][]string{
	{"bagus", "senang", "mantap", "keren", "hebat"},
	{"buruk", "kecewa", "jelek", "parah", "lambat"},
	{"informasi", "jadwal", "pengumuman", "laporan", "rapat"},
}

// syntheticDataset builds texts whose content words identify the class,
// with digits, URLs and punctuation for the cleaner to strip.
func syntheticDataset(n int, seed int64) *Dataset {
	rng := rand.New(rand.NewSource(seed))
	ds := &Dataset{}
	for i := 0; i < n; i++ {
		class := i % len(classWords)
		words := classWords[class]
		s := fmt.Sprintf("%s %s, %s! %d https://t.co/x%d",
			words[rng.Intn(len(words))], words[rng.Intn(len(words))], words[rng.Intn(len(words))], rng.Intn(1000), i)
		ds.Texts = append(ds.Texts, s)
		ds.Labels = append(ds.Labels, class)
	}
	return ds
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.MaxLen = 10
	opts.EmbeddingDim = 8
	opts.HiddenDim = 8
	opts.Epochs = 20
	opts.BatchSize = 8
	opts.LearningRate = 0.05
	return opts
}

var (
	sharedOnce       sync.Once
	sharedClassifier *Classifier
	sharedReport     *Report
	sharedErr        error
)

func trainedClassifier(t *testing.T) (*Classifier, *Report) {
	t.Helper()
	sharedOnce.Do(func() {
		sharedClassifier, sharedReport, sharedErr = Train(context.Background(), syntheticDataset(150, 1), testOptions())
	})
	if sharedErr != nil {
		t.Fatalf("Train() error = %v", sharedErr)
	}
	return sharedClassifier, sharedReport
}

func TestTrainReport(t *testing.T) {
	t.Parallel()

	_, report := trainedClassifier(t)
	if report.TrainRows+report.ValidationRows+report.TestRows != 150 {
		t.Errorf("split sizes %d/%d/%d do not cover the dataset", report.TrainRows, report.ValidationRows, report.TestRows)
	}
	if report.TrainRows != 90 || report.ValidationRows != 30 || report.TestRows != 30 {
		t.Errorf("split = %d/%d/%d, want 90/30/30", report.TrainRows, report.ValidationRows, report.TestRows)
	}
	if len(report.Epochs) != testOptions().Epochs {
		t.Errorf("epochs = %d", len(report.Epochs))
	}
	if report.TestAccuracy < 0.8 {
		t.Errorf("test accuracy = %.3f, want >= 0.8", report.TestAccuracy)
	}
	// 15 content words, the OOV id and the padding id.
	if report.VocabSize != 17 {
		t.Errorf("vocab size = %d, want 17", report.VocabSize)
	}
}

func TestPredict(t *testing.T) {
	t.Parallel()

	c, _ := trainedClassifier(t)
	tests := []struct {
		text string
		want string
	}{
		{"Pelayanan BAGUS, saya senang sekali!!", LabelPositive},
		{"sangat kecewa... jelek http://example.com 123", LabelNegative},
		{"pengumuman jadwal rapat", LabelNeutral},
	}
	for _, tt := range tests {
		p, err := c.Predict(tt.text)
		if err != nil {
			t.Fatalf("Predict(%q) error = %v", tt.text, err)
		}
		if p.Label != tt.want {
			t.Errorf("Predict(%q) = %s (%v), want %s", tt.text, p.Label, p.Probabilities, tt.want)
		}
		again, _ := c.Predict(tt.text)
		if again.Label != p.Label {
			t.Errorf("Predict(%q) not stable", tt.text)
		}
	}

	p, err := c.Predict("kata asing sekali")
	if err != nil {
		t.Fatal(err)
	}
	if p.Class < 0 || p.Class >= len(Labels) || Labels[p.Class] != p.Label {
		t.Errorf("unknown-word prediction = %+v", p)
	}
}

func TestEncode(t *testing.T) {
	t.Parallel()

	c, _ := trainedClassifier(t)
	cleaned, seq := c.Encode("Bagus!! 2024 https://x.y/z yang mantap")
	if cleaned != "bagus mantap" {
		t.Errorf("cleaned = %q, want %q", cleaned, "bagus mantap")
	}
	if len(seq) != 10 || seq[0] == text.PadIndex || seq[1] == text.PadIndex || seq[2] != text.PadIndex {
		t.Errorf("seq = %v, want two ids then padding", seq)
	}
}

func TestTrainDeterministic(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	opts.Epochs = 3
	ds := syntheticDataset(60, 9)
	a, ra, err := Train(context.Background(), ds, opts)
	if err != nil {
		t.Fatal(err)
	}
	b, rb, err := Train(context.Background(), ds, opts)
	if err != nil {
		t.Fatal(err)
	}
	if ra.TestAccuracy != rb.TestAccuracy || ra.Epochs[2].Loss != rb.Epochs[2].Loss {
		t.Errorf("reports differ: %+v vs %+v", ra, rb)
	}
	pa, _ := a.Predict("bagus jelek rapat")
	pb, _ := b.Predict("bagus jelek rapat")
	for i := range pa.Probabilities {
		if pa.Probabilities[i] != pb.Probabilities[i] {
			t.Fatalf("probabilities differ: %v vs %v", pa.Probabilities, pb.Probabilities)
		}
	}
}

func TestTrainErrors(t *testing.T) {
	t.Parallel()

	if _, _, err := Train(context.Background(), &Dataset{Texts: []string{"a"}, Labels: []int{0}}, testOptions()); err == nil {
		t.Error("tiny dataset should fail")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := Train(ctx, syntheticDataset(30, 2), testOptions()); err == nil {
		t.Error("canceled context should fail")
	}
}

func TestOptionsFrom(t *testing.T) {
	t.Parallel()

	cfg := config.SentimentConfig{VocabSize: 500, MaxLen: 20, EmbeddingDim: 4, HiddenDim: 4, Epochs: 2, BatchSize: 4, LearningRate: 0.01, Seed: 7}
	opts, err := OptionsFrom(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if opts.VocabSize != 500 || opts.MaxLen != 20 || !opts.Stopwords.Contains("yang") {
		t.Errorf("opts = %+v", opts)
	}

	path := filepath.Join(t.TempDir(), "stop.txt")
	if err := os.WriteFile(path, []byte("# custom\nbagus\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg.StopwordsPath = path
	opts, err = OptionsFrom(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if !opts.Stopwords.Contains("bagus") || opts.Stopwords.Contains("yang") {
		t.Error("custom stopword file should replace the built-in list")
	}

	cfg.StopwordsPath = filepath.Join(t.TempDir(), "missing.txt")
	if _, err := OptionsFrom(cfg); err == nil {
		t.Error("missing stopword file should fail")
	}
}
