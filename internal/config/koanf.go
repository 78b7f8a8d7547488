// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the locations searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/sibyl/config.yaml",
	"/etc/sibyl/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultCities is the city picker shown by the weather service.
var DefaultCities = []string{"Jakarta", "Surabaya", "Bandung", "Yogyakarta", "Medan"}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			RiskPort:        5000,
			WeatherPort:     5001,
			SentimentPort:   5002,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second, // forecast fits three boosters per request
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Risk: RiskConfig{
			ModelPath:  "model/heart_gbm_model.json",
			ScalerPath: "model/scaler.json",
			TestSize:   0.3,
			Seed:       42,
		},
		Weather: WeatherConfig{
			BaseURL:      "http://api.openweathermap.org",
			Cities:       append([]string(nil), DefaultCities...),
			MaxDays:      14,
			Timeout:      15 * time.Second,
			RateLimit:    1, // free tier allows 60 calls/minute
			RateBurst:    5,
			CacheBackend: "memory",
			CacheTTL:     10 * time.Minute,
			CacheDir:     "data/weather-cache",
			Seed:         42,
		},
		Sentiment: SentimentConfig{
			DatasetPath:  "datasets/Indonlu_Sentiment.xlsx",
			Epochs:       5,
			BatchSize:    32,
			VocabSize:    10000,
			MaxLen:       100,
			EmbeddingDim: 64,
			HiddenDim:    64,
			LearningRate: 0.005,
			Seed:         42,
		},
		Database: DatabaseConfig{
			Path:      "",
			MaxMemory: "512MB",
			Threads:   0,
		},
		NATS: NATSConfig{
			Enabled:        false,
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: false,
			EmbeddedPort:   4222,
			SubjectPrefix:  "sibyl",
			MaxReconnects:  10,
			ReconnectWait:  2 * time.Second,
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Default returns the built-in configuration without reading any source.
// Tests and the trainer use it directly.
func Default() *Config {
	return defaultConfig()
}

// Load builds the configuration from defaults, the config file and the
// environment, then validates it. explicitPath, when non-empty, must exist.
func Load(explicitPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath, err := resolveConfigFile(explicitPath)
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func resolveConfigFile(explicitPath string) (string, error) {
	if explicitPath != "" {
		if _, err := os.Stat(explicitPath); err != nil {
			return "", fmt.Errorf("config file %s: %w", explicitPath, err)
		}
		return explicitPath, nil
	}
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"weather.cities",
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	// Server
	"server_host":      "server.host",
	"risk_port":        "server.risk_port",
	"weather_port":     "server.weather_port",
	"sentiment_port":   "server.sentiment_port",
	"read_timeout":     "server.read_timeout",
	"write_timeout":    "server.write_timeout",
	"shutdown_timeout": "server.shutdown_timeout",

	// Risk
	"risk_model_path":  "risk.model_path",
	"risk_scaler_path": "risk.scaler_path",

	// Weather
	"weather_api_key":       "weather.api_key",
	"openweather_api_key":   "weather.api_key",
	"weather_base_url":      "weather.base_url",
	"weather_cities":        "weather.cities",
	"weather_max_days":      "weather.max_days",
	"weather_timeout":       "weather.timeout",
	"weather_rate_limit":    "weather.rate_limit",
	"weather_cache_backend": "weather.cache_backend",
	"weather_cache_ttl":     "weather.cache_ttl",
	"weather_cache_dir":     "weather.cache_dir",

	// Sentiment
	"sentiment_dataset_path":   "sentiment.dataset_path",
	"sentiment_sheet_name":     "sentiment.sheet_name",
	"sentiment_stopwords_path": "sentiment.stopwords_path",
	"sentiment_epochs":         "sentiment.epochs",
	"sentiment_batch_size":     "sentiment.batch_size",
	"sentiment_seed":           "sentiment.seed",

	// Database
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	// NATS
	"nats_enabled":        "nats.enabled",
	"nats_url":            "nats.url",
	"nats_embedded":       "nats.embedded_server",
	"nats_embedded_port":  "nats.embedded_port",
	"nats_subject_prefix": "nats.subject_prefix",

	// Security
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its koanf path.
//
//	WEATHER_API_KEY -> weather.api_key
//	DUCKDB_PATH     -> database.path
//	LOG_LEVEL       -> logging.level
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
