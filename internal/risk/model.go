// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package risk

import (
	"errors"
	"fmt"
	"os"

	"github.com/tomtom215/sibyl/internal/ml"
	"github.com/tomtom215/sibyl/internal/ml/gbm"
)

// ErrFeatureMismatch is returned when the scaler, classifier and request
// disagree on the number of features.
var ErrFeatureMismatch = errors.New("feature count mismatch")

// Prediction is the scored result for one patient.
type Prediction struct {
	ProbNoRisk float64
	ProbAtRisk float64
	Label      string
}

// Model pairs the fitted scaler with the classifier. It is immutable and
// safe for concurrent use.
type Model struct {
	scaler     *ml.StandardScaler
	classifier *gbm.Booster
}

// NewModel checks that scaler and classifier agree on NumFeatures inputs.
func NewModel(scaler *ml.StandardScaler, classifier *gbm.Booster) (*Model, error) {
	if scaler == nil || classifier == nil {
		return nil, errors.New("scaler and classifier are required")
	}
	if classifier.Params.Objective != gbm.BinaryLogistic {
		return nil, fmt.Errorf("classifier objective is %s, want %s", classifier.Params.Objective, gbm.BinaryLogistic)
	}
	if scaler.Dim() != NumFeatures || classifier.NumFeatures != NumFeatures {
		return nil, fmt.Errorf("scaler has %d features, classifier %d, want %d: %w",
			scaler.Dim(), classifier.NumFeatures, NumFeatures, ErrFeatureMismatch)
	}
	return &Model{scaler: scaler, classifier: classifier}, nil
}

// LoadModel reads the two artifacts written by Train.
func LoadModel(modelPath, scalerPath string) (*Model, error) {
	scaler, err := loadScaler(scalerPath)
	if err != nil {
		return nil, err
	}
	classifier, err := loadClassifier(modelPath)
	if err != nil {
		return nil, err
	}
	return NewModel(scaler, classifier)
}

func loadScaler(path string) (*ml.StandardScaler, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("open scaler: %w", err)
	}
	defer f.Close()
	s, err := ml.ReadScaler(f)
	if err != nil {
		return nil, fmt.Errorf("load scaler %s: %w", path, err)
	}
	return s, nil
}

func loadClassifier(path string) (*gbm.Booster, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("open classifier: %w", err)
	}
	defer f.Close()
	b, err := gbm.ReadBooster(f)
	if err != nil {
		return nil, fmt.Errorf("load classifier %s: %w", path, err)
	}
	return b, nil
}

// Predict scales features and returns both class probabilities. The
// label is LabelAtRisk when P(at risk) > 0.5.
func (m *Model) Predict(features []float64) (Prediction, error) {
	if len(features) != NumFeatures {
		return Prediction{}, fmt.Errorf("got %d features, want %d: %w", len(features), NumFeatures, ErrFeatureMismatch)
	}
	scaled, err := m.scaler.TransformRow(features)
	if err != nil {
		return Prediction{}, fmt.Errorf("scale features: %w", err)
	}
	proba, err := m.classifier.PredictProba(scaled)
	if err != nil {
		return Prediction{}, fmt.Errorf("score features: %w", err)
	}

	p := Prediction{ProbNoRisk: proba[0], ProbAtRisk: proba[1], Label: LabelNoRisk}
	if p.ProbAtRisk > 0.5 {
		p.Label = LabelAtRisk
	}
	return p, nil
}
