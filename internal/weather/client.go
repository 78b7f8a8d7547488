// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tomtom215/sibyl/internal/breaker"
	"github.com/tomtom215/sibyl/internal/config"
	"github.com/tomtom215/sibyl/internal/metrics"
)

// Upstream failure classes.
var (
	ErrCityNotFound  = errors.New("city not found")
	ErrInvalidAPIKey = errors.New("weather API key rejected")
	ErrUpstream      = errors.New("weather API request failed")
)

// maxErrorBodySize bounds how much of an error response is read.
const maxErrorBodySize = 64 * 1024

// maxFeedBytes bounds a decoded forecast response.
const maxFeedBytes = 4 << 20

// FeedSource fetches a forecast feed for a city.
type FeedSource interface {
	Forecast(ctx context.Context, city, apiKey string) (*Feed, error)
}

// ClientConfig configures Client.
type ClientConfig struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second; 0 disables
	RateBurst int

	// Breaker overrides the circuit breaker settings when Name is set.
	Breaker breaker.Settings
}

// ClientConfigFrom maps the weather config section.
func ClientConfigFrom(cfg config.WeatherConfig) ClientConfig {
	return ClientConfig{
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.Timeout,
		RateLimit: cfg.RateLimit,
		RateBurst: cfg.RateBurst,
	}
}

// Client calls the OpenWeatherMap forecast endpoint.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	breaker *breaker.Breaker
}

// NewClient creates a client with its own circuit breaker and token
// bucket.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}

	settings := cfg.Breaker
	if settings.Name == "" {
		settings = breaker.DefaultSettings("openweathermap")
	}
	settings.IsSuccessful = func(err error) bool {
		// A bad city or key says nothing about upstream health.
		return err == nil || errors.Is(err, ErrCityNotFound) || errors.Is(err, ErrInvalidAPIKey)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
		breaker: breaker.New(settings),
	}
}

// Forecast fetches the feed for city. Failures wrap ErrCityNotFound,
// ErrInvalidAPIKey or ErrUpstream.
func (c *Client) Forecast(ctx context.Context, city, apiKey string) (*Feed, error) {
	start := time.Now()

	if err := c.limiter.Wait(ctx); err != nil {
		err = fmt.Errorf("%w: rate limiter: %w", ErrUpstream, err)
		metrics.RecordWeatherFetch(time.Since(start), "rate_limited", err)
		return nil, err
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, city, apiKey)
	})
	if err != nil {
		reason := failureReason(err)
		if breaker.IsRejected(err) {
			err = fmt.Errorf("%w: %w", ErrUpstream, err)
		}
		metrics.RecordWeatherFetch(time.Since(start), reason, err)
		return nil, err
	}

	metrics.RecordWeatherFetch(time.Since(start), "", nil)
	feed, ok := result.(*Feed)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected result type %T", ErrUpstream, result)
	}
	return feed, nil
}

func (c *Client) fetch(ctx context.Context, city, apiKey string) (*Feed, error) {
	params := url.Values{}
	params.Set("q", city)
	params.Set("appid", apiKey)
	params.Set("units", "metric")
	reqURL := fmt.Sprintf("%s/data/2.5/forecast?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrCityNotFound, city)
	case http.StatusUnauthorized:
		return nil, ErrInvalidAPIKey
	default:
		return nil, fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, readBodyForError(resp.Body))
	}

	var feed Feed
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxFeedBytes)).Decode(&feed); err != nil {
		return nil, fmt.Errorf("%w: decode feed: %w", ErrUpstream, err)
	}
	return &feed, nil
}

func readBodyForError(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return "(failed to read response body)"
	}
	return strings.TrimSpace(string(body))
}

func failureReason(err error) string {
	switch {
	case breaker.IsRejected(err):
		return "circuit_open"
	case errors.Is(err, ErrCityNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidAPIKey):
		return "unauthorized"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	default:
		return "upstream"
	}
}
