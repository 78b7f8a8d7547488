// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package risk

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/sibyl/internal/logging"
	"github.com/tomtom215/sibyl/internal/metrics"
	"github.com/tomtom215/sibyl/internal/ml"
	"github.com/tomtom215/sibyl/internal/ml/gbm"
)

// Artifact file names written by Train.
const (
	ModelFile  = "heart_gbm_model.json"
	ScalerFile = "scaler.json"
)

// ErrMissingColumn is returned when the CSV header lacks a required column.
var ErrMissingColumn = errors.New("missing column")

// ClassLabels names the classifier outputs in index order.
var ClassLabels = []string{LabelNoRisk, LabelAtRisk}

// TrainOptions configures Train.
type TrainOptions struct {
	DataPath string
	OutDir   string
	TestSize float64
	Seed     int64
	Params   gbm.Params
}

// DefaultTrainOptions returns a 70/30 split with seed 42 and the
// classifier defaults.
func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		OutDir:   "model",
		TestSize: 0.3,
		Seed:     42,
		Params:   gbm.ClassifierParams(),
	}
}

// Dataset is a loaded feature matrix with binary labels.
type Dataset struct {
	X [][]float64
	Y []int
}

// TrainResult summarizes a training run.
type TrainResult struct {
	Model      *Model
	TrainRows  int
	TestRows   int
	Accuracy   float64
	Confusion  [][]int
	Report     ml.Report
	ModelPath  string
	ScalerPath string
}

// WriteSummary prints accuracy, the confusion matrix and the report.
func (r *TrainResult) WriteSummary(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Train rows: %d, test rows: %d\n", r.TrainRows, r.TestRows)
	fmt.Fprintf(&b, "Accuracy: %.4f\n\n", r.Accuracy)
	b.WriteString("Confusion matrix (rows = truth, columns = prediction):\n")
	fmt.Fprintf(&b, "%12s", "")
	for _, l := range ClassLabels {
		fmt.Fprintf(&b, " %10s", l)
	}
	b.WriteString("\n")
	for i, row := range r.Confusion {
		fmt.Fprintf(&b, "%12s", ClassLabels[i])
		for _, n := range row {
			fmt.Fprintf(&b, " %10d", n)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nClassification report:\n")
	b.WriteString(r.Report.String())
	if r.ModelPath != "" {
		fmt.Fprintf(&b, "\nWrote %s and %s\n", r.ModelPath, r.ScalerPath)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// ReadDataset parses a CSV with a header row. The feature columns and
// the target column are selected by name; other columns are ignored.
// Empty or unparseable cells are replaced with the column mean, and the
// target is binarized as num > 0.
func ReadDataset(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	columns := make([]int, NumFeatures+1)
	for i, name := range FeatureNames {
		col, ok := index[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		columns[i] = col
	}
	target, ok := index[TargetColumn]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, TargetColumn)
	}
	columns[NumFeatures] = target

	var raw [][]float64
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV line %d: %w", line, err)
		}
		row := make([]float64, len(columns))
		for j, col := range columns {
			row[j] = parseCell(record, col)
		}
		raw = append(raw, row)
	}
	if len(raw) == 0 {
		return nil, errors.New("dataset has no rows")
	}

	if err := fillMissing(raw); err != nil {
		return nil, err
	}

	ds := &Dataset{X: make([][]float64, len(raw)), Y: make([]int, len(raw))}
	for i, row := range raw {
		ds.X[i] = row[:NumFeatures]
		if row[NumFeatures] > 0 {
			ds.Y[i] = 1
		}
	}
	return ds, nil
}

func parseCell(record []string, col int) float64 {
	if col >= len(record) {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}

// fillMissing replaces NaN cells with their column mean.
func fillMissing(rows [][]float64) error {
	width := len(rows[0])
	for j := 0; j < width; j++ {
		var sum float64
		var n int
		for _, row := range rows {
			if !math.IsNaN(row[j]) {
				sum += row[j]
				n++
			}
		}
		if n == 0 {
			name := TargetColumn
			if j < NumFeatures {
				name = FeatureNames[j]
			}
			return fmt.Errorf("column %s has no numeric values", name)
		}
		mean := sum / float64(n)
		for _, row := range rows {
			if math.IsNaN(row[j]) {
				row[j] = mean
			}
		}
	}
	return nil
}

// Train runs the full pipeline: read, split, scale, fit, evaluate and
// persist. An empty OutDir skips writing artifacts.
func Train(opts TrainOptions) (*TrainResult, error) {
	f, err := os.Open(opts.DataPath)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, err := ReadDataset(f)
	if err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", opts.DataPath, err)
	}
	return TrainDataset(ds, opts)
}

// TrainDataset is Train for an already loaded dataset.
func TrainDataset(ds *Dataset, opts TrainOptions) (*TrainResult, error) {
	start := time.Now()

	trainIdx, testIdx, err := ml.TrainTestSplit(len(ds.X), opts.TestSize, opts.Seed)
	if err != nil {
		return nil, fmt.Errorf("split dataset: %w", err)
	}
	xTrain, yTrain := ml.SelectRows(ds.X, trainIdx), ml.SelectRows(ds.Y, trainIdx)
	xTest, yTest := ml.SelectRows(ds.X, testIdx), ml.SelectRows(ds.Y, testIdx)

	scaler, err := ml.FitScaler(xTrain)
	if err != nil {
		return nil, fmt.Errorf("fit scaler: %w", err)
	}
	xTrainScaled, err := scaler.Transform(xTrain)
	if err != nil {
		return nil, fmt.Errorf("scale train split: %w", err)
	}

	targets := make([]float64, len(yTrain))
	for i, y := range yTrain {
		targets[i] = float64(y)
	}
	params := opts.Params
	params.Objective = gbm.BinaryLogistic
	classifier, err := gbm.Train(xTrainScaled, targets, params)
	if err != nil {
		return nil, fmt.Errorf("fit classifier: %w", err)
	}

	model, err := NewModel(scaler, classifier)
	if err != nil {
		return nil, err
	}

	pred := make([]int, len(xTest))
	for i, row := range xTest {
		p, err := model.Predict(row)
		if err != nil {
			return nil, fmt.Errorf("evaluate test split: %w", err)
		}
		if p.Label == LabelAtRisk {
			pred[i] = 1
		}
	}

	res := &TrainResult{
		Model:     model,
		TrainRows: len(xTrain),
		TestRows:  len(xTest),
		Accuracy:  ml.Accuracy(yTest, pred),
		Confusion: ml.ConfusionMatrix(yTest, pred, len(ClassLabels)),
		Report:    ml.ClassificationReport(yTest, pred, ClassLabels),
	}
	metrics.RecordTraining(serviceName, time.Since(start))
	metrics.SetAccuracy(serviceName, "test", res.Accuracy)

	if opts.OutDir != "" {
		res.ModelPath = filepath.Join(opts.OutDir, ModelFile)
		res.ScalerPath = filepath.Join(opts.OutDir, ScalerFile)
		if err := saveArtifacts(model, res.ModelPath, res.ScalerPath); err != nil {
			return nil, err
		}
	}

	logging.Info().
		Int("train_rows", res.TrainRows).
		Int("test_rows", res.TestRows).
		Float64("accuracy", res.Accuracy).
		Dur("duration", time.Since(start)).
		Msg("Risk classifier trained")
	return res, nil
}

func saveArtifacts(m *Model, modelPath, scalerPath string) error {
	var buf bytes.Buffer
	if err := m.classifier.WriteJSON(&buf); err != nil {
		return fmt.Errorf("encode classifier: %w", err)
	}
	if err := atomicWrite(modelPath, buf.Bytes()); err != nil {
		return fmt.Errorf("write classifier: %w", err)
	}

	buf.Reset()
	if err := m.scaler.WriteJSON(&buf); err != nil {
		return fmt.Errorf("encode scaler: %w", err)
	}
	if err := atomicWrite(scalerPath, buf.Bytes()); err != nil {
		return fmt.Errorf("write scaler: %w", err)
	}
	return nil
}

// atomicWrite writes to a sibling temp file and renames it into place.
func atomicWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
