// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"service", "method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"service", "method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of in-flight API requests",
		},
		[]string{"service"},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"service", "endpoint"},
	)

	// Prediction Metrics
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of predictions served, by predicted label",
		},
		[]string{"service", "label"},
	)

	PredictionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prediction_errors_total",
			Help: "Total number of failed prediction requests",
		},
		[]string{"service", "reason"}, // reason: "validation", "upstream", "model", "render"
	)

	PredictionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "prediction_duration_seconds",
			Help:    "Time spent computing a prediction, excluding transport",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 15},
		},
		[]string{"service"},
	)

	// Training Metrics
	ModelTrainingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "model_training_duration_seconds",
			Help:    "Duration of model training runs",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"model"},
	)

	ModelAccuracy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "model_accuracy_ratio",
			Help: "Accuracy measured on a held-out split after training",
		},
		[]string{"model", "split"},
	)

	// Weather Upstream Metrics
	WeatherFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "weather_fetch_duration_seconds",
			Help:    "Duration of OpenWeatherMap forecast requests",
			Buckets: prometheus.DefBuckets,
		},
	)

	WeatherFetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_fetch_errors_total",
			Help: "Total number of failed forecast feed fetches",
		},
		[]string{"reason"}, // "not_found", "unauthorized", "upstream", "circuit_open", "decode"
	)

	WeatherCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_cache_hits_total",
			Help: "Total number of forecast feed cache hits",
		},
		[]string{"backend"},
	)

	WeatherCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weather_cache_misses_total",
			Help: "Total number of forecast feed cache misses",
		},
		[]string{"backend"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Event Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Total number of prediction events published to NATS",
		},
		[]string{"topic"},
	)

	EventPublishErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_publish_errors_total",
			Help: "Total number of prediction events that failed to publish",
		},
		[]string{"topic"},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)
)

// RecordAPIRequest records one completed HTTP request.
func RecordAPIRequest(service, method, endpoint, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(service, method, endpoint, status).Inc()
	APIRequestDuration.WithLabelValues(service, method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest moves the in-flight gauge up or down.
func TrackActiveRequest(service string, inc bool) {
	if inc {
		APIActiveRequests.WithLabelValues(service).Inc()
	} else {
		APIActiveRequests.WithLabelValues(service).Dec()
	}
}

// RecordPrediction records a successful prediction.
func RecordPrediction(service, label string, duration time.Duration) {
	PredictionsTotal.WithLabelValues(service, label).Inc()
	PredictionDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// RecordPredictionError records a failed prediction request.
func RecordPredictionError(service, reason string) {
	PredictionErrors.WithLabelValues(service, reason).Inc()
}

// RecordTraining records a finished training run.
func RecordTraining(model string, duration time.Duration) {
	ModelTrainingDuration.WithLabelValues(model).Observe(duration.Seconds())
}

// SetAccuracy publishes a holdout accuracy.
func SetAccuracy(model, split string, accuracy float64) {
	ModelAccuracy.WithLabelValues(model, split).Set(accuracy)
}

// RecordWeatherFetch records one upstream feed request. reason is ignored
// when err is nil.
func RecordWeatherFetch(duration time.Duration, reason string, err error) {
	WeatherFetchDuration.Observe(duration.Seconds())
	if err != nil {
		WeatherFetchErrors.WithLabelValues(reason).Inc()
	}
}

// RecordWeatherCache records a feed cache lookup.
func RecordWeatherCache(backend string, hit bool) {
	if hit {
		WeatherCacheHits.WithLabelValues(backend).Inc()
	} else {
		WeatherCacheMisses.WithLabelValues(backend).Inc()
	}
}

// RecordEventPublish records a publish attempt.
func RecordEventPublish(topic string, err error) {
	if err != nil {
		EventPublishErrors.WithLabelValues(topic).Inc()
		return
	}
	EventsPublished.WithLabelValues(topic).Inc()
}

// RecordDBQuery records a database query.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}
