// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package models

import "time"

// Event types, used as the last subject tokens and the Type field.
const (
	EventRiskPredicted      = "risk.predicted"
	EventSentimentPredicted = "sentiment.predicted"
	EventWeatherForecasted  = "weather.forecasted"
)

// EventEnvelope wraps every published payload.
type EventEnvelope struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	Source     string      `json:"source"`
	OccurredAt time.Time   `json:"occurred_at"`
	RequestID  string      `json:"request_id,omitempty"`
	Payload    interface{} `json:"payload"`
}

// RiskPredictedEvent is published after each heart-risk prediction.
type RiskPredictedEvent struct {
	PatientName string    `json:"patient_name,omitempty"`
	Features    []float64 `json:"features"`
	ProbNoRisk  float64   `json:"prob_no_risk"`
	ProbAtRisk  float64   `json:"prob_at_risk"`
	Risk        string    `json:"risk"`
}

// SentimentPredictedEvent is published after each sentiment prediction.
type SentimentPredictedEvent struct {
	InputText      string `json:"input_text"`
	CleanedText    string `json:"cleaned_text"`
	PredictedLabel string `json:"predicted_label"`
}

// WeatherForecastedEvent is published after each rendered forecast.
type WeatherForecastedEvent struct {
	City        string             `json:"city"`
	Days        int                `json:"days"`
	Observed    int                `json:"observed"`
	Predicted   int                `json:"predicted"`
	HoldoutRMSE map[string]float64 `json:"holdout_rmse"`
	CacheHit    bool               `json:"cache_hit"`
}
