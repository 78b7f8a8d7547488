// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateRisk(); err != nil {
		return err
	}
	if err := c.validateWeather(); err != nil {
		return err
	}
	if err := c.validateSentiment(); err != nil {
		return err
	}
	if err := c.validateNATS(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	ports := map[string]int{
		"RISK_PORT":      c.Server.RiskPort,
		"WEATHER_PORT":   c.Server.WeatherPort,
		"SENTIMENT_PORT": c.Server.SentimentPort,
	}
	for name, port := range ports {
		if port < 1 || port > 65535 {
			return fmt.Errorf("%s must be between 1 and 65535, got %d", name, port)
		}
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateRisk() error {
	if c.Risk.ModelPath == "" || c.Risk.ScalerPath == "" {
		return fmt.Errorf("risk.model_path and risk.scaler_path are required")
	}
	if c.Risk.TestSize <= 0 || c.Risk.TestSize >= 1 {
		return fmt.Errorf("risk.test_size must be in (0, 1), got %g", c.Risk.TestSize)
	}
	return nil
}

func (c *Config) validateWeather() error {
	if err := validateHTTPURL(c.Weather.BaseURL, "WEATHER_BASE_URL"); err != nil {
		return err
	}
	if len(c.Weather.Cities) == 0 {
		return fmt.Errorf("WEATHER_CITIES must list at least one city")
	}
	if c.Weather.MaxDays < 1 {
		return fmt.Errorf("WEATHER_MAX_DAYS must be at least 1, got %d", c.Weather.MaxDays)
	}
	if c.Weather.Timeout <= 0 {
		return fmt.Errorf("WEATHER_TIMEOUT must be positive")
	}
	if c.Weather.RateLimit < 0 {
		return fmt.Errorf("WEATHER_RATE_LIMIT must not be negative")
	}

	switch c.Weather.CacheBackend {
	case "none", "memory":
	case "badger":
		if c.Weather.CacheDir == "" {
			return fmt.Errorf("WEATHER_CACHE_DIR is required when WEATHER_CACHE_BACKEND=badger")
		}
	default:
		return fmt.Errorf("WEATHER_CACHE_BACKEND must be none, memory, or badger, got %q", c.Weather.CacheBackend)
	}
	if c.Weather.CacheBackend != "none" && c.Weather.CacheTTL <= 0 {
		return fmt.Errorf("WEATHER_CACHE_TTL must be positive when caching is enabled")
	}
	return nil
}

func (c *Config) validateSentiment() error {
	s := c.Sentiment
	if s.DatasetPath == "" {
		return fmt.Errorf("SENTIMENT_DATASET_PATH is required")
	}
	checks := []struct {
		name  string
		value int
	}{
		{"sentiment.epochs", s.Epochs},
		{"sentiment.batch_size", s.BatchSize},
		{"sentiment.vocab_size", s.VocabSize},
		{"sentiment.max_len", s.MaxLen},
		{"sentiment.embedding_dim", s.EmbeddingDim},
		{"sentiment.hidden_dim", s.HiddenDim},
	}
	for _, chk := range checks {
		if chk.value < 1 {
			return fmt.Errorf("%s must be at least 1, got %d", chk.name, chk.value)
		}
	}
	if s.VocabSize < 3 {
		return fmt.Errorf("sentiment.vocab_size must leave room for padding and <OOV>")
	}
	if s.LearningRate <= 0 {
		return fmt.Errorf("sentiment.learning_rate must be positive")
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if c.NATS.SubjectPrefix == "" {
		return fmt.Errorf("NATS_SUBJECT_PREFIX is required when NATS is enabled")
	}
	if c.NATS.EmbeddedServer {
		if c.NATS.EmbeddedPort < -1 || c.NATS.EmbeddedPort > 65535 {
			return fmt.Errorf("NATS_EMBEDDED_PORT out of range: %d", c.NATS.EmbeddedPort)
		}
		return nil
	}
	if err := validateNATSURL(c.NATS.URL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1, got %d", c.Security.RateLimitReqs)
	}
	if c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, got %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// validateHTTPURL accepts http(s) base URLs without query parameters.
func validateHTTPURL(rawURL, fieldName string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %q", fieldName, parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	if parsed.RawQuery != "" {
		return fmt.Errorf("%s should not contain query parameters", fieldName)
	}
	return nil
}

func validateNATSURL(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}
	switch parsed.Scheme {
	case "nats", "tls", "ws", "wss":
	default:
		return fmt.Errorf("scheme must be nats, tls, ws, or wss, got: %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("host is required (e.g., localhost:4222)")
	}
	return nil
}
