// Sibyl - Demo Prediction Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sibyl

package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config is the root configuration shared by every sibyl command.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Risk      RiskConfig      `koanf:"risk"`
	Weather   WeatherConfig   `koanf:"weather"`
	Sentiment SentimentConfig `koanf:"sentiment"`
	Database  DatabaseConfig  `koanf:"database"`
	NATS      NATSConfig      `koanf:"nats"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds listener settings. Each service binds its own port
// so that "serve all" can run them side by side.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	RiskPort        int           `koanf:"risk_port"`
	WeatherPort     int           `koanf:"weather_port"`
	SentimentPort   int           `koanf:"sentiment_port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// Addr returns host:port for the given port.
func (s ServerConfig) Addr(port int) string {
	return net.JoinHostPort(s.Host, strconv.Itoa(port))
}

// RiskConfig points at the artifacts written by "sibyl train risk".
type RiskConfig struct {
	ModelPath  string `koanf:"model_path"`
	ScalerPath string `koanf:"scaler_path"`

	// Trainer settings
	TestSize float64 `koanf:"test_size"`
	Seed     int64   `koanf:"seed"`
}

// WeatherConfig configures the OpenWeatherMap client and the forecaster.
type WeatherConfig struct {
	BaseURL string        `koanf:"base_url"`
	APIKey  string        `koanf:"api_key"` // fallback when the form leaves api_key empty
	Cities  []string      `koanf:"cities"`
	MaxDays int           `koanf:"max_days"`
	Timeout time.Duration `koanf:"timeout"`

	// Outbound token bucket, in requests per second.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`

	// CacheBackend is one of: none, memory, badger.
	CacheBackend string        `koanf:"cache_backend"`
	CacheTTL     time.Duration `koanf:"cache_ttl"`
	CacheDir     string        `koanf:"cache_dir"`

	Seed int64 `koanf:"seed"`
}

// SentimentConfig configures dataset loading and network training.
type SentimentConfig struct {
	DatasetPath   string  `koanf:"dataset_path"`
	SheetName     string  `koanf:"sheet_name"` // empty selects the first sheet
	StopwordsPath string  `koanf:"stopwords_path"`
	Epochs        int     `koanf:"epochs"`
	BatchSize     int     `koanf:"batch_size"`
	VocabSize     int     `koanf:"vocab_size"`
	MaxLen        int     `koanf:"max_len"`
	EmbeddingDim  int     `koanf:"embedding_dim"`
	HiddenDim     int     `koanf:"hidden_dim"`
	LearningRate  float64 `koanf:"learning_rate"`
	Seed          int64   `koanf:"seed"`
}

// DatabaseConfig configures the DuckDB prediction history. An empty Path
// disables persistence.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// Enabled reports whether prediction history is stored.
func (d DatabaseConfig) Enabled() bool {
	return d.Path != ""
}

// NATSConfig configures prediction event publishing.
type NATSConfig struct {
	Enabled        bool          `koanf:"enabled"`
	URL            string        `koanf:"url"`
	EmbeddedServer bool          `koanf:"embedded_server"`
	EmbeddedPort   int           `koanf:"embedded_port"`
	SubjectPrefix  string        `koanf:"subject_prefix"`
	MaxReconnects  int           `koanf:"max_reconnects"`
	ReconnectWait  time.Duration `koanf:"reconnect_wait"`
}

// SecurityConfig holds the inbound HTTP guards.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// String summarizes the config for startup logs without secrets.
func (c *Config) String() string {
	return fmt.Sprintf("risk=%s weather=%s sentiment=%s db=%t nats=%t",
		c.Server.Addr(c.Server.RiskPort),
		c.Server.Addr(c.Server.WeatherPort),
		c.Server.Addr(c.Server.SentimentPort),
		c.Database.Enabled(),
		c.NATS.Enabled,
	)
}
