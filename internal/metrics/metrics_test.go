// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	io_prometheus_client "github.com/prometheus/client_model/go"
)

func histogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	m, ok := o.(prometheus.Metric)
	if !ok {
		t.Fatalf("observer %T is not a metric", o)
	}
	var pb io_prometheus_client.Metric
	if err := m.Write(&pb); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return pb.GetHistogram().GetSampleCount()
}

func TestRecordAPIRequest(t *testing.T) {
	counter := APIRequestsTotal.WithLabelValues("risk", "POST", "/predict", "200")
	before := testutil.ToFloat64(counter)
	hist := APIRequestDuration.WithLabelValues("risk", "POST", "/predict")
	beforeCount := histogramCount(t, hist)

	RecordAPIRequest("risk", "POST", "/predict", "200", 12*time.Millisecond)

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("api_requests_total delta = %v, want 1", got)
	}
	if got := histogramCount(t, hist) - beforeCount; got != 1 {
		t.Errorf("histogram sample delta = %v, want 1", got)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	gauge := APIActiveRequests.WithLabelValues("weather")
	before := testutil.ToFloat64(gauge)

	TrackActiveRequest("weather", true)
	if got := testutil.ToFloat64(gauge); got != before+1 {
		t.Errorf("after inc = %v, want %v", got, before+1)
	}
	TrackActiveRequest("weather", false)
	if got := testutil.ToFloat64(gauge); got != before {
		t.Errorf("after dec = %v, want %v", got, before)
	}
}

func TestRecordPrediction(t *testing.T) {
	counter := PredictionsTotal.WithLabelValues("sentiment", "positive")
	before := testutil.ToFloat64(counter)

	RecordPrediction("sentiment", "positive", time.Millisecond)
	RecordPrediction("sentiment", "positive", time.Millisecond)

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("predictions_total delta = %v, want 2", got)
	}
}

func TestRecordWeatherFetch(t *testing.T) {
	counter := WeatherFetchErrors.WithLabelValues("not_found")
	before := testutil.ToFloat64(counter)

	RecordWeatherFetch(time.Second, "not_found", nil)
	if got := testutil.ToFloat64(counter); got != before {
		t.Errorf("success must not count as error: %v -> %v", before, got)
	}

	RecordWeatherFetch(time.Second, "not_found", errors.New("city not found"))
	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("error delta = %v, want 1", got)
	}
}

func TestRecordEventPublish(t *testing.T) {
	ok := EventsPublished.WithLabelValues("sibyl.risk.predicted")
	failed := EventPublishErrors.WithLabelValues("sibyl.risk.predicted")
	okBefore, failedBefore := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	RecordEventPublish("sibyl.risk.predicted", nil)
	RecordEventPublish("sibyl.risk.predicted", errors.New("no responders"))

	if got := testutil.ToFloat64(ok) - okBefore; got != 1 {
		t.Errorf("published delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(failed) - failedBefore; got != 1 {
		t.Errorf("error delta = %v, want 1", got)
	}
}

func TestSetAccuracy(t *testing.T) {
	SetAccuracy("risk", "test", 0.87)
	if got := testutil.ToFloat64(ModelAccuracy.WithLabelValues("risk", "test")); got != 0.87 {
		t.Errorf("model_accuracy_ratio = %v, want 0.87", got)
	}
}
