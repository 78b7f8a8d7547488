// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package risk

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/sibyl/internal/api"
	"github.com/tomtom215/sibyl/internal/events"
	"github.com/tomtom215/sibyl/internal/logging"
	"github.com/tomtom215/sibyl/internal/metrics"
	"github.com/tomtom215/sibyl/internal/models"
	"github.com/tomtom215/sibyl/internal/validation"
)

const serviceName = "risk"

// Default and maximum page sizes for the history endpoints.
const (
	defaultPageSize = 50
	maxPageSize     = 1000
)

// PatientStore persists predictions. *database.DB implements it.
type PatientStore interface {
	InsertPatient(ctx context.Context, rec *models.PatientRecord) error
	ListPatients(ctx context.Context, limit, offset int) ([]models.PatientRecord, int, error)
	SearchPatients(ctx context.Context, name string, limit int) ([]models.PatientRecord, error)
}

// Probability is the probability pair of a PredictResponse.
type Probability struct {
	NoRisk float64 `json:"no_risk"`
	AtRisk float64 `json:"at_risk"`
}

// PredictResponse is the body of a successful POST /predict.
type PredictResponse struct {
	Probability Probability `json:"probability"`
	Risk        string      `json:"risk"`
}

// Handler serves the risk endpoints.
type Handler struct {
	model     *Model
	store     PatientStore
	publisher events.Publisher
}

// NewHandler creates a handler. store may be nil to disable history;
// publisher may be nil to disable events.
func NewHandler(model *Model, store PatientStore, publisher events.Publisher) *Handler {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Handler{model: model, store: store, publisher: publisher}
}

// Ready is a readiness check reporting whether a model is loaded.
func (h *Handler) Ready(context.Context) error {
	if h.model == nil {
		return errors.New("risk model not loaded")
	}
	return nil
}

// Register mounts the routes on r. POST routes are rate limited.
func (h *Handler) Register(r chi.Router, mw *api.ChiMiddleware) {
	r.With(mw.RateLimit()).Post("/predict", h.Predict)
	r.Get("/patients", h.ListPatients)
	r.Get("/patients/search", h.SearchPatients)
}

// Predict handles POST /predict.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	rw := api.NewResponseWriter(w, r)
	start := time.Now()

	var raw map[string]json.RawMessage
	if err := api.DecodeJSON(w, r, &raw); err != nil {
		metrics.RecordPredictionError(serviceName, "invalid_input")
		rw.ValidationError(validation.NewFieldError("body", "json", err.Error()))
		return
	}
	req, verr := DecodePredictRequest(raw)
	if verr == nil {
		verr = req.Validate()
	}
	if verr != nil {
		metrics.RecordPredictionError(serviceName, "invalid_input")
		rw.ValidationError(verr)
		return
	}

	model := h.model
	if model == nil {
		metrics.RecordPredictionError(serviceName, "model_unavailable")
		rw.ServiceUnavailable("risk model not loaded")
		return
	}

	features := req.Vector()
	pred, err := model.Predict(features)
	if err != nil {
		metrics.RecordPredictionError(serviceName, "model_error")
		logging.Ctx(r.Context()).Error().Err(err).Msg("Risk prediction failed")
		rw.InternalError(err.Error())
		return
	}
	metrics.RecordPrediction(serviceName, pred.Label, time.Since(start))

	name := strings.TrimSpace(req.Name)
	if name != "" {
		h.record(r.Context(), name, features, pred)
	}
	events.Emit(r.Context(), h.publisher, serviceName, models.EventRiskPredicted, models.RiskPredictedEvent{
		PatientName: name,
		Features:    features,
		ProbNoRisk:  pred.ProbNoRisk,
		ProbAtRisk:  pred.ProbAtRisk,
		Risk:        pred.Label,
	})

	rw.JSON(http.StatusOK, PredictResponse{
		Probability: Probability{NoRisk: pred.ProbNoRisk, AtRisk: pred.ProbAtRisk},
		Risk:        pred.Label,
	})
}

// record stores a named prediction. Failures are logged only.
func (h *Handler) record(ctx context.Context, name string, features []float64, pred Prediction) {
	if h.store == nil {
		return
	}
	rec := &models.PatientRecord{
		Name:       name,
		Risk:       pred.Label,
		ProbNoRisk: pred.ProbNoRisk,
		ProbAtRisk: pred.ProbAtRisk,
	}
	rec.SetFeatures(features)
	if err := h.store.InsertPatient(ctx, rec); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("patient", name).Msg("Failed to store patient record")
	}
}

// ListPatients handles GET /patients.
func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	rw := api.NewResponseWriter(w, r)
	if h.store == nil {
		rw.ServiceUnavailable("patient history is disabled")
		return
	}

	limit, verr := intParam(r, "limit", defaultPageSize, 1, maxPageSize)
	if verr != nil {
		rw.ValidationError(verr)
		return
	}
	offset, verr := intParam(r, "offset", 0, 0, -1)
	if verr != nil {
		rw.ValidationError(verr)
		return
	}

	records, total, err := h.store.ListPatients(r.Context(), limit, offset)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to list patients")
		rw.InternalError("failed to list patients")
		return
	}
	rw.SuccessWithPagination(records, &api.PaginationMeta{
		Count:   len(records),
		Offset:  offset,
		Limit:   limit,
		HasMore: offset+len(records) < total,
	})
}

// SearchPatients handles GET /patients/search.
func (h *Handler) SearchPatients(w http.ResponseWriter, r *http.Request) {
	rw := api.NewResponseWriter(w, r)
	if h.store == nil {
		rw.ServiceUnavailable("patient history is disabled")
		return
	}

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		rw.ValidationError(validation.NewFieldError("name", "required", "name is required"))
		return
	}
	limit, verr := intParam(r, "limit", defaultPageSize, 1, maxPageSize)
	if verr != nil {
		rw.ValidationError(verr)
		return
	}

	records, err := h.store.SearchPatients(r.Context(), name, limit)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to search patients")
		rw.InternalError("failed to search patients")
		return
	}
	rw.Success(records)
}

// intParam parses an optional integer query parameter. max < 0 means
// unbounded.
func intParam(r *http.Request, name string, def, minVal, maxVal int) (int, *validation.RequestValidationError) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, validation.NewFieldError(name, "number", name+" must be an integer")
	}
	if v < minVal {
		return 0, validation.NewFieldError(name, "gte", name+" must be greater than or equal to "+strconv.Itoa(minVal))
	}
	if maxVal >= 0 && v > maxVal {
		return 0, validation.NewFieldError(name, "lte", name+" must be less than or equal to "+strconv.Itoa(maxVal))
	}
	return v, nil
}
