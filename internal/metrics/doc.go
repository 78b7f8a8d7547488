// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

// Package metrics defines the Prometheus instruments exported on /metrics
// by every Sibyl service.
//
// Instruments are registered on the default registry through promauto, so
// several services running in one process ("sibyl serve all") share one
// set of collectors and are told apart by the service label.
//
// Families:
//
//   - api_*: HTTP request count, latency, in-flight and rate-limit rejections
//   - prediction_*: per-service prediction outcomes and latency
//   - model_training_*: training duration and holdout accuracy
//   - weather_*: upstream fetch latency, failures and feed cache efficiency
//   - circuit_breaker_*: gobreaker state and outcomes
//   - events_*: NATS publish outcomes
//   - duckdb_*: prediction history query latency and errors
package metrics
