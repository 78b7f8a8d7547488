// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package sentiment

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/sibyl/internal/api"
	"github.com/tomtom215/sibyl/internal/events"
	"github.com/tomtom215/sibyl/internal/logging"
	"github.com/tomtom215/sibyl/internal/metrics"
	"github.com/tomtom215/sibyl/internal/models"
	"github.com/tomtom215/sibyl/internal/validation"
)

const serviceName = "sentiment"

// maxTextBytes caps the predict form body.
const maxTextBytes = 64 << 10

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// PredictResponse is the body of a successful POST /predict.
type PredictResponse struct {
	InputText      string `json:"input_text"`
	PredictedLabel string `json:"predicted_label"`
}

// Handler serves the sentiment routes.
type Handler struct {
	mu         sync.RWMutex
	classifier *Classifier
	report     *Report

	publisher events.Publisher
}

// NewHandler creates a handler. classifier may be nil until SetClassifier
// is called; publisher may be nil.
func NewHandler(classifier *Classifier, report *Report, publisher events.Publisher) *Handler {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Handler{classifier: classifier, report: report, publisher: publisher}
}

// SetClassifier installs a trained classifier.
func (h *Handler) SetClassifier(c *Classifier, report *Report) {
	h.mu.Lock()
	h.classifier, h.report = c, report
	h.mu.Unlock()
}

func (h *Handler) current() (*Classifier, *Report) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.classifier, h.report
}

// Ready is a readiness check reporting whether training finished.
func (h *Handler) Ready(context.Context) error {
	if c, _ := h.current(); c == nil {
		return errors.New("sentiment classifier not trained")
	}
	return nil
}

// Register mounts the routes on r. POST /predict is rate limited.
func (h *Handler) Register(r chi.Router, mw *api.ChiMiddleware) {
	r.Get("/", h.Index)
	r.With(mw.RateLimit()).Post("/predict", h.Predict)
}

// Index renders the input form.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	c, report := h.current()
	data := struct {
		Ready        bool
		TestAccuracy float64
	}{Ready: c != nil && report != nil}
	if data.Ready {
		data.TestAccuracy = report.TestAccuracy * 100
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, data); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Template render failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// Predict handles POST /predict with form field text.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	rw := api.NewResponseWriter(w, r)
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, maxTextBytes)
	if err := r.ParseForm(); err != nil {
		rw.ValidationError(validation.NewFieldError("text", "form", "could not read form: "+err.Error()))
		return
	}
	input := r.PostForm.Get("text")
	if strings.TrimSpace(input) == "" {
		metrics.RecordPredictionError(serviceName, "invalid_input")
		rw.ValidationError(validation.NewFieldError("text", "required", "text is required"))
		return
	}

	c, _ := h.current()
	if c == nil {
		metrics.RecordPredictionError(serviceName, "model_unavailable")
		rw.ServiceUnavailable("sentiment classifier not trained")
		return
	}

	pred, err := c.Predict(input)
	if err != nil {
		metrics.RecordPredictionError(serviceName, "model_error")
		logging.Ctx(r.Context()).Error().Err(err).Msg("Sentiment prediction failed")
		rw.InternalError(err.Error())
		return
	}
	metrics.RecordPrediction(serviceName, pred.Label, time.Since(start))

	events.Emit(r.Context(), h.publisher, serviceName, models.EventSentimentPredicted, models.SentimentPredictedEvent{
		InputText:      input,
		CleanedText:    pred.Cleaned,
		PredictedLabel: pred.Label,
	})
	rw.JSON(http.StatusOK, PredictResponse{InputText: input, PredictedLabel: pred.Label})
}
