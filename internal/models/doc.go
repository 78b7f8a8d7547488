// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

/*
Package models defines the records shared between the prediction services,
the DuckDB history store and the event publisher.

  - PatientRecord: one stored risk prediction with its 13 input features
  - RiskPredictedEvent, SentimentPredictedEvent, WeatherForecastedEvent:
    payloads published to NATS after a successful prediction

Models carry JSON tags only; validation lives with the request types in
each service package.
*/
package models
