// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package weather

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/tomtom215/sibyl/internal/api"
	"github.com/tomtom215/sibyl/internal/logging"
	"github.com/tomtom215/sibyl/internal/validation"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// maxFormBytes caps the forecast form body.
const maxFormBytes = 64 << 10

// previewHours is how many predicted rows the result page tabulates.
const previewHours = 24

// defaultFormDays pre-fills the days field.
const defaultFormDays = 3

// Handler serves the weather routes.
type Handler struct {
	svc *Service
}

// NewHandler creates a Handler for svc.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Register mounts the routes on r with response compression. POST
// routes are rate limited.
func (h *Handler) Register(r chi.Router, mw *api.ChiMiddleware) {
	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Compress(5, "text/html", "application/json"))
		r.Get("/", h.Index)
		r.With(mw.RateLimit()).Post("/forecast", h.ForecastForm)
		r.With(mw.RateLimit()).Post("/api/v1/forecast", h.ForecastAPI)
	})
}

type indexPage struct {
	Cities        []string
	City          string
	MaxDays       int
	Days          int
	HasDefaultKey bool
}

type rmseRow struct {
	Name  string
	Value float64
}

type resultPage struct {
	City      string
	Days      int
	Observed  int
	Predicted int
	CacheHit  bool
	Image     template.URL
	RMSE      []rmseRow
	Head      []Sample
}

type errorPage struct {
	Status     int
	StatusText string
	Message    string
}

// Index renders the city picker.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	page := indexPage{
		Cities:        h.svc.Cities(),
		MaxDays:       h.svc.MaxDays(),
		Days:          defaultFormDays,
		HasDefaultKey: h.svc.HasDefaultKey(),
	}
	if page.Days > page.MaxDays {
		page.Days = page.MaxDays
	}
	if len(page.Cities) > 0 {
		page.City = page.Cities[0]
	}
	h.render(w, r, http.StatusOK, "index.html", page)
}

// ForecastForm handles POST /forecast and answers with HTML.
func (h *Handler) ForecastForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "Could not read the form: "+err.Error())
		return
	}

	req := Request{
		APIKey: r.PostForm.Get("api_key"),
		City:   r.PostForm.Get("city"),
	}
	daysRaw := strings.TrimSpace(r.PostForm.Get("days"))
	days, err := strconv.Atoi(daysRaw)
	if err != nil {
		h.renderError(w, r, http.StatusBadRequest, "days must be an integer, got \""+daysRaw+"\"")
		return
	}
	req.Days = days

	fc, err := h.svc.Forecast(r.Context(), req)
	if err != nil {
		status, _, msg := classify(err)
		h.logFailure(r, status, err)
		h.renderError(w, r, status, msg)
		return
	}

	image, err := RenderBase64(fc)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Forecast render failed")
		h.renderError(w, r, http.StatusInternalServerError, "Failed to render the forecast chart")
		return
	}

	page := resultPage{
		City:      fc.City,
		Days:      fc.Days,
		Observed:  len(fc.Observed),
		Predicted: len(fc.Predicted),
		CacheHit:  fc.CacheHit,
		Image:     template.URL("data:image/png;base64," + image), //nolint:gosec // base64 produced by RenderBase64
		Head:      fc.Predicted[:min(previewHours, len(fc.Predicted))],
	}
	for _, target := range Targets {
		page.RMSE = append(page.RMSE, rmseRow{Name: target, Value: fc.HoldoutRMSE[target]})
	}
	h.render(w, r, http.StatusOK, "result.html", page)
}

// ForecastAPI handles POST /api/v1/forecast and answers with JSON.
func (h *Handler) ForecastAPI(w http.ResponseWriter, r *http.Request) {
	rw := api.NewResponseWriter(w, r)

	var req Request
	if err := api.DecodeJSON(w, r, &req); err != nil {
		rw.ValidationError(validation.NewFieldError("body", "json", err.Error()))
		return
	}

	fc, err := h.svc.Forecast(r.Context(), req)
	if err != nil {
		var verr *validation.RequestValidationError
		if errors.As(err, &verr) {
			rw.ValidationError(verr)
			return
		}
		status, code, msg := classify(err)
		h.logFailure(r, status, err)
		rw.Error(status, code, msg)
		return
	}
	rw.Success(fc)
}

// classify maps a pipeline error to a status, an API error code and a
// user-facing message.
func classify(err error) (int, string, string) {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, api.ErrCodeValidation, verr.Error()
	case errors.Is(err, ErrInvalidAPIKey):
		return http.StatusBadRequest, api.ErrCodeBadRequest, "The weather API rejected the API key"
	case errors.Is(err, ErrCityNotFound):
		return http.StatusNotFound, api.ErrCodeNotFound, "City not found"
	case errors.Is(err, ErrEmptyFeed), errors.Is(err, ErrTooFewSamples):
		return http.StatusUnprocessableEntity, api.ErrCodeUnprocessable, "The weather feed has too little data to forecast"
	case errors.Is(err, ErrUpstream):
		return http.StatusBadGateway, api.ErrCodeExternalServiceFail, "The weather service is unavailable, try again later"
	default:
		return http.StatusInternalServerError, api.ErrCodeInternalError, "Forecast failed: " + err.Error()
	}
}

func (h *Handler) logFailure(r *http.Request, status int, err error) {
	event := logging.Ctx(r.Context()).Warn()
	if status >= http.StatusInternalServerError {
		event = logging.Ctx(r.Context()).Error()
	}
	event.Err(err).Int("status", status).Msg("Weather forecast failed")
}

func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.render(w, r, status, "error.html", errorPage{
		Status:     status,
		StatusText: http.StatusText(status),
		Message:    message,
	})
}

// render executes into a buffer so a template failure can still send 500.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("template", name).Msg("Template render failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
