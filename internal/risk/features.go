// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package risk

import (
	"bytes"
	"errors"
	"math"

	"github.com/goccy/go-json"

	"github.com/tomtom215/sibyl/internal/validation"
)

// FeatureNames lists the model inputs in canonical order.
var FeatureNames = [NumFeatures]string{
	"age", "sex", "cp", "trestbps", "chol", "fbs", "restecg",
	"thalach", "exang", "oldpeak", "slope", "ca", "thal",
}

// NumFeatures is the width of every feature vector.
const NumFeatures = 13

var errNotNumber = errors.New("not a JSON number")

// TargetColumn is the CSV column holding the diagnosis (0 = healthy).
const TargetColumn = "num"

// Risk labels.
const (
	LabelAtRisk = "at risk"
	LabelNoRisk = "no risk"
)

// PredictRequest is the body of POST /predict. Pointers distinguish a
// missing field from an explicit zero.
type PredictRequest struct {
	Name string `json:"name,omitempty" validate:"omitempty,max=200"`

	Age      *float64 `json:"age" validate:"required"`
	Sex      *float64 `json:"sex" validate:"required"`
	CP       *float64 `json:"cp" validate:"required"`
	Trestbps *float64 `json:"trestbps" validate:"required"`
	Chol     *float64 `json:"chol" validate:"required"`
	FBS      *float64 `json:"fbs" validate:"required"`
	Restecg  *float64 `json:"restecg" validate:"required"`
	Thalach  *float64 `json:"thalach" validate:"required"`
	Exang    *float64 `json:"exang" validate:"required"`
	Oldpeak  *float64 `json:"oldpeak" validate:"required"`
	Slope    *float64 `json:"slope" validate:"required"`
	CA       *float64 `json:"ca" validate:"required"`
	Thal     *float64 `json:"thal" validate:"required"`
}

func (r *PredictRequest) fields() [NumFeatures]*float64 {
	return [NumFeatures]*float64{
		r.Age, r.Sex, r.CP, r.Trestbps, r.Chol, r.FBS, r.Restecg,
		r.Thalach, r.Exang, r.Oldpeak, r.Slope, r.CA, r.Thal,
	}
}

// Validate checks presence and finiteness of every feature.
func (r *PredictRequest) Validate() *validation.RequestValidationError {
	if verr := validation.ValidateStruct(r); verr != nil {
		return verr
	}
	for i, v := range r.fields() {
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			return validation.NewFieldError(FeatureNames[i], "finite", FeatureNames[i]+" must be a finite number")
		}
	}
	return nil
}

// Vector returns the features in canonical order. Call Validate first.
func (r *PredictRequest) Vector() []float64 {
	out := make([]float64, NumFeatures)
	for i, v := range r.fields() {
		out[i] = *v
	}
	return out
}

func (r *PredictRequest) slots() [NumFeatures]**float64 {
	return [NumFeatures]**float64{
		&r.Age, &r.Sex, &r.CP, &r.Trestbps, &r.Chol, &r.FBS, &r.Restecg,
		&r.Thalach, &r.Exang, &r.Oldpeak, &r.Slope, &r.CA, &r.Thal,
	}
}

// DecodePredictRequest builds a request from the top-level body fields,
// reporting a non-numeric feature against its own name. Absent and null
// features stay nil for Validate to report.
func DecodePredictRequest(raw map[string]json.RawMessage) (*PredictRequest, *validation.RequestValidationError) {
	req := &PredictRequest{}
	if v, ok := raw["name"]; ok && !isNull(v) {
		if err := json.Unmarshal(v, &req.Name); err != nil {
			return nil, validation.NewFieldError("name", "string", "name must be a string")
		}
	}
	slots := req.slots()
	for i, name := range FeatureNames {
		v, ok := raw[name]
		if !ok || isNull(v) {
			continue
		}
		f, err := parseNumber(v)
		if err != nil {
			return nil, validation.NewFieldError(name, "number", name+" must be a number")
		}
		*slots[i] = &f
	}
	return req, nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// parseNumber accepts only JSON number literals; quoted numbers and
// booleans are rejected.
func parseNumber(v json.RawMessage) (float64, error) {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || (v[0] != '-' && (v[0] < '0' || v[0] > '9')) {
		return 0, errNotNumber
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		return 0, err
	}
	return f, nil
}
