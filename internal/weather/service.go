// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package weather

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/sibyl/internal/events"
	"github.com/tomtom215/sibyl/internal/logging"
	"github.com/tomtom215/sibyl/internal/metrics"
	"github.com/tomtom215/sibyl/internal/ml/gbm"
	"github.com/tomtom215/sibyl/internal/models"
	"github.com/tomtom215/sibyl/internal/validation"
)

const serviceName = "weather"

// ErrMissingAPIKey is returned when neither the request nor the config
// supplies an API key.
var ErrMissingAPIKey = errors.New("api_key is required")

// Request is a forecast request from the form or the JSON API.
type Request struct {
	APIKey string `json:"api_key" validate:"omitempty,max=128"`
	City   string `json:"city" validate:"required,max=100"`
	Days   int    `json:"days" validate:"required,gte=1"`
}

// Options configures a Service.
type Options struct {
	Cities        []string
	MaxDays       int
	DefaultAPIKey string
	Params        gbm.Params
	Seed          int64
}

// Service runs the fetch, fit, extrapolate pipeline.
type Service struct {
	source     FeedSource
	cache      FeedCache
	forecaster *Forecaster
	publisher  events.Publisher
	opts       Options
}

// NewService wires the pipeline. cache and publisher may be nil.
func NewService(source FeedSource, cache FeedCache, publisher events.Publisher, opts Options) *Service {
	if cache == nil {
		cache = noCache{}
	}
	if publisher == nil {
		publisher = events.Noop{}
	}
	if opts.MaxDays < 1 {
		opts.MaxDays = 14
	}
	if opts.Params.Rounds == 0 {
		opts.Params = gbm.RegressionParams()
	}
	return &Service{
		source:     source,
		cache:      cache,
		forecaster: NewForecaster(opts.Params, opts.Seed),
		publisher:  publisher,
		opts:       opts,
	}
}

// Cities returns the configured city choices.
func (s *Service) Cities() []string { return s.opts.Cities }

// MaxDays returns the largest accepted days value.
func (s *Service) MaxDays() int { return s.opts.MaxDays }

// HasDefaultKey reports whether a server-side API key is configured.
func (s *Service) HasDefaultKey() bool { return s.opts.DefaultAPIKey != "" }

// Validate normalizes req and checks it against the service limits.
func (s *Service) Validate(req *Request) error {
	req.City = strings.TrimSpace(req.City)
	req.APIKey = strings.TrimSpace(req.APIKey)
	if verr := validation.ValidateStruct(req); verr != nil {
		return verr
	}
	if req.Days > s.opts.MaxDays {
		return validation.NewFieldError("days", "lte",
			"days must be less than or equal to "+strconv.Itoa(s.opts.MaxDays))
	}
	if req.APIKey == "" && s.opts.DefaultAPIKey == "" {
		return validation.NewFieldError("api_key", "required", ErrMissingAPIKey.Error())
	}
	return nil
}

// Forecast validates req, fetches or reuses the feed, and fits the
// forecast.
func (s *Service) Forecast(ctx context.Context, req Request) (*Forecast, error) {
	if err := s.Validate(&req); err != nil {
		return nil, err
	}
	apiKey := req.APIKey
	if apiKey == "" {
		apiKey = s.opts.DefaultAPIKey
	}
	start := time.Now()

	feed, cacheHit, err := s.feed(ctx, req.City, apiKey)
	if err != nil {
		metrics.RecordPredictionError(serviceName, failureReason(err))
		return nil, err
	}

	observed, err := Flatten(feed)
	if err != nil {
		metrics.RecordPredictionError(serviceName, "empty_feed")
		return nil, err
	}
	fc, err := s.forecaster.Forecast(observed, req.Days)
	if err != nil {
		metrics.RecordPredictionError(serviceName, "model_error")
		return nil, err
	}
	fc.City = req.City
	if feed.City.Name != "" {
		fc.City = feed.City.Name
	}
	fc.CacheHit = cacheHit
	metrics.RecordPrediction(serviceName, "forecast", time.Since(start))

	logging.Ctx(ctx).Debug().
		Str("city", fc.City).
		Int("days", fc.Days).
		Int("observed", len(fc.Observed)).
		Bool("cache_hit", cacheHit).
		Msg("Weather forecast fitted")

	events.Emit(ctx, s.publisher, serviceName, models.EventWeatherForecasted, models.WeatherForecastedEvent{
		City:        fc.City,
		Days:        fc.Days,
		Observed:    len(fc.Observed),
		Predicted:   len(fc.Predicted),
		HoldoutRMSE: fc.HoldoutRMSE,
		CacheHit:    cacheHit,
	})
	return fc, nil
}

func (s *Service) feed(ctx context.Context, city, apiKey string) (*Feed, bool, error) {
	key := CacheKey(city, apiKey)
	if feed, ok := s.cache.Get(ctx, key); ok {
		return feed, true, nil
	}
	feed, err := s.source.Forecast(ctx, city, apiKey)
	if err != nil {
		return nil, false, fmt.Errorf("fetch %s: %w", city, err)
	}
	if len(feed.List) > 0 {
		s.cache.Set(ctx, key, feed)
	}
	return feed, false, nil
}
