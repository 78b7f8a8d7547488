// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package sentiment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/sibyl/internal/api"
	"github.com/tomtom215/sibyl/internal/models"
)

type capturePublisher struct {
	mu       sync.Mutex
	payloads []models.SentimentPredictedEvent
}

func (p *capturePublisher) Publish(_ context.Context, _, eventType string, payload interface{}) error {
	if ev, ok := payload.(models.SentimentPredictedEvent); ok && eventType == models.EventSentimentPredicted {
		p.mu.Lock()
		p.payloads = append(p.payloads, ev)
		p.mu.Unlock()
	}
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func newSentimentRouter(h *Handler) chi.Router {
	cfg := api.DefaultChiMiddlewareConfig(serviceName)
	cfg.RateLimitDisabled = true
	mw := api.NewChiMiddleware(cfg)
	r := api.NewRouter(mw, api.NewHealthHandler(serviceName))
	h.Register(r, mw)
	return r
}

func postText(r http.Handler, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestPredictHandler(t *testing.T) {
	t.Parallel()

	c, report := trainedClassifier(t)
	r := newSentimentRouter(NewHandler(c, report, nil))

	input := "Pengumuman: jadwal rapat diundur"
	rec := postText(r, url.Values{"text": {input}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp PredictResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.InputText != input {
		t.Errorf("input_text = %q, want %q", resp.InputText, input)
	}
	valid := map[string]bool{LabelPositive: true, LabelNegative: true, LabelNeutral: true}
	if !valid[resp.PredictedLabel] {
		t.Errorf("predicted_label = %q", resp.PredictedLabel)
	}

	second := postText(r, url.Values{"text": {input}})
	if second.Body.String() != rec.Body.String() {
		t.Errorf("identical input gave %s then %s", rec.Body.String(), second.Body.String())
	}
}

func TestPredictHandlerEmptyText(t *testing.T) {
	t.Parallel()

	c, report := trainedClassifier(t)
	r := newSentimentRouter(NewHandler(c, report, nil))

	for _, form := range []url.Values{{}, {"text": {""}}, {"text": {"   "}}} {
		rec := postText(r, form)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		var env api.APIResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatal(err)
		}
		if env.Error == nil || env.Error.Code != api.ErrCodeValidation || env.Error.Message != "text is required" {
			t.Errorf("error = %+v", env.Error)
		}
	}
}

func TestPredictHandlerNotTrained(t *testing.T) {
	t.Parallel()

	h := NewHandler(nil, nil, nil)
	if err := h.Ready(context.Background()); err == nil {
		t.Error("Ready() should fail before training")
	}
	rec := postText(newSentimentRouter(h), url.Values{"text": {"halo"}})
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}

	c, report := trainedClassifier(t)
	h.SetClassifier(c, report)
	if err := h.Ready(context.Background()); err != nil {
		t.Errorf("Ready() error = %v", err)
	}
}

func TestIndexHandler(t *testing.T) {
	t.Parallel()

	c, report := trainedClassifier(t)
	for _, h := range []*Handler{NewHandler(nil, nil, nil), NewHandler(c, report, nil)} {
		rec := httptest.NewRecorder()
		newSentimentRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `name="text"`) {
			t.Error("form missing text field")
		}
	}
}

func TestPredictHandlerEmitsEvent(t *testing.T) {
	t.Parallel()

	c, report := trainedClassifier(t)
	pub := &capturePublisher{}
	r := newSentimentRouter(NewHandler(c, report, pub))

	rec := postText(r, url.Values{"text": {"Bagus sekali, mantap!"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.payloads) != 1 {
		t.Fatalf("events = %d, want 1", len(pub.payloads))
	}
	ev := pub.payloads[0]
	if ev.InputText != "Bagus sekali, mantap!" || ev.CleanedText != "bagus mantap" {
		t.Errorf("event = %+v", ev)
	}
}
