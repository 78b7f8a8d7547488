// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package models

import "time"

// PatientRecord is a stored heart-risk prediction.
type PatientRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	Age      float64 `json:"age"`
	Sex      float64 `json:"sex"`
	CP       float64 `json:"cp"`
	Trestbps float64 `json:"trestbps"`
	Chol     float64 `json:"chol"`
	FBS      float64 `json:"fbs"`
	Restecg  float64 `json:"restecg"`
	Thalach  float64 `json:"thalach"`
	Exang    float64 `json:"exang"`
	Oldpeak  float64 `json:"oldpeak"`
	Slope    float64 `json:"slope"`
	CA       float64 `json:"ca"`
	Thal     float64 `json:"thal"`

	Risk       string    `json:"risk"`
	ProbNoRisk float64   `json:"prob_no_risk"`
	ProbAtRisk float64   `json:"prob_at_risk"`
	CreatedAt  time.Time `json:"created_at"`
}

// SetFeatures copies a 13-value vector in canonical order
// (age, sex, cp, trestbps, chol, fbs, restecg, thalach, exang, oldpeak,
// slope, ca, thal). It panics on any other length.
func (p *PatientRecord) SetFeatures(v []float64) {
	_ = v[12]
	p.Age, p.Sex, p.CP, p.Trestbps, p.Chol = v[0], v[1], v[2], v[3], v[4]
	p.FBS, p.Restecg, p.Thalach, p.Exang, p.Oldpeak = v[5], v[6], v[7], v[8], v[9]
	p.Slope, p.CA, p.Thal = v[10], v[11], v[12]
}

// Features returns the 13 inputs in canonical order.
func (p *PatientRecord) Features() []float64 {
	return []float64{
		p.Age, p.Sex, p.CP, p.Trestbps, p.Chol, p.FBS, p.Restecg,
		p.Thalach, p.Exang, p.Oldpeak, p.Slope, p.CA, p.Thal,
	}
}
