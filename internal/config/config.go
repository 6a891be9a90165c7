package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/basaa-mt/translator-api/pkg/log"
	"github.com/robfig/cron/v3"
)

// Config holds all application configuration, read from environment
// variables with defaults matching the reference deployment.
//
// Environment Variables:
// HTTP:
// - HTTP_ADDR: listen address (default: :7860)
// - HTTP_PROXY_PREFIX: path prefix stripped before routing (default: /proxy)
//
// Model:
// - MODEL_PATH: local checkpoint directory (default: app/model)
// - MODEL_SERVER_URL: inference server base URL (default: http://127.0.0.1:8081)
// - MODEL_API_KEY: bearer token for the inference server (optional)
// - MODEL_TIMEOUT: request timeout in seconds (default: 60)
// - MODEL_PROBE_CRON: reload schedule while the model is unavailable (default: @every 5m, empty disables)
//
// Cache:
// - CACHE_CAPACITY: translation cache entries (default: 1000)
// - CACHE_MAX_TEXT_LEN: inputs this long or longer skip the cache (default: 100)
//
// Corrections:
// - CORRECTIONS_LOG: append-only correction log (default: corrections.log)
// - CORRECTIONS_DB: SQLite mirror of corrections (optional)
//
// Service:
// - SERVICE_VERSION: reported by /health (default: 0.1.25)
// - SERVICE_TITLE: human-readable service name
// - LOG_LEVEL: debug, info, warn, error (default: info)
// - LOG_FILE: write logs to this file instead of stdout (optional)
type Config struct {
	HTTP        HTTPConfig        `json:"http"`
	Model       ModelConfig       `json:"model"`
	Cache       CacheConfig       `json:"cache"`
	Corrections CorrectionsConfig `json:"corrections"`
	Service     ServiceConfig     `json:"service"`
}

type HTTPConfig struct {
	Addr        string `json:"addr"`
	ProxyPrefix string `json:"proxy_prefix"`
}

type ModelConfig struct {
	Path      string `json:"path"`
	ServerURL string `json:"server_url"`
	APIKey    string `json:"-"`
	Timeout   int    `json:"timeout"`
	ProbeCron string `json:"probe_cron"`
}

type CacheConfig struct {
	Capacity   int `json:"capacity"`
	MaxTextLen int `json:"max_text_len"`
}

type CorrectionsConfig struct {
	LogPath string `json:"log_path"`
	DBPath  string `json:"db_path"`
}

type ServiceConfig struct {
	Version  string       `json:"version"`
	Title    string       `json:"title"`
	LogLevel log.LogLevel `json:"log_level"`
	LogFile  string       `json:"log_file"`
}

// Option is a function type for configuring Config
type Option func(*Config)

// NewFromEnv creates a new Config instance with values from environment variables and options
func NewFromEnv(opts ...Option) (*Config, error) {
	config := &Config{
		HTTP: HTTPConfig{
			Addr:        getEnvString("HTTP_ADDR", ":7860"),
			ProxyPrefix: getEnvString("HTTP_PROXY_PREFIX", "/proxy"),
		},
		Model: ModelConfig{
			Path:      getEnvString("MODEL_PATH", "app/model"),
			ServerURL: getEnvString("MODEL_SERVER_URL", "http://127.0.0.1:8081"),
			APIKey:    getEnvString("MODEL_API_KEY", ""),
			Timeout:   getEnvInt("MODEL_TIMEOUT", 60),
			ProbeCron: getEnvOptional("MODEL_PROBE_CRON", "@every 5m"),
		},
		Cache: CacheConfig{
			Capacity:   getEnvInt("CACHE_CAPACITY", 1000),
			MaxTextLen: getEnvInt("CACHE_MAX_TEXT_LEN", 100),
		},
		Corrections: CorrectionsConfig{
			LogPath: getEnvString("CORRECTIONS_LOG", "corrections.log"),
			DBPath:  getEnvString("CORRECTIONS_DB", ""),
		},
		Service: ServiceConfig{
			Version:  getEnvString("SERVICE_VERSION", "0.1.25"),
			Title:    getEnvString("SERVICE_TITLE", "Traducteur Bassa ↔ Français"),
			LogLevel: log.ParseLevel(getEnvString("LOG_LEVEL", "info")),
			LogFile:  getEnvString("LOG_FILE", ""),
		},
	}

	for _, opt := range opts {
		opt(config)
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	log.Debug("Config: %+v", config.redacted())
	return config, nil
}

// redacted returns a copy safe to log.
func (c Config) redacted() Config {
	if c.Model.APIKey != "" {
		c.Model.APIKey = "***"
	}
	return c
}

// validate checks if all required configuration is properly set
func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("HTTP_ADDR is required")
	}
	if c.HTTP.ProxyPrefix != "" && !strings.HasPrefix(c.HTTP.ProxyPrefix, "/") {
		return fmt.Errorf("HTTP_PROXY_PREFIX must start with /")
	}
	if c.Model.Timeout < 1 {
		return fmt.Errorf("MODEL_TIMEOUT must be greater than 0")
	}
	if c.Cache.Capacity < 1 {
		return fmt.Errorf("CACHE_CAPACITY must be greater than 0")
	}
	if c.Cache.MaxTextLen < 1 {
		return fmt.Errorf("CACHE_MAX_TEXT_LEN must be greater than 0")
	}
	if c.Model.ProbeCron != "" {
		if _, err := cron.ParseStandard(c.Model.ProbeCron); err != nil {
			return fmt.Errorf("invalid MODEL_PROBE_CRON: %w", err)
		}
	}
	return nil
}

// getEnvString gets a string value from environment variables with default
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOptional is like getEnvString but an explicitly empty variable
// overrides the default.
func getEnvOptional(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

// getEnvInt gets an integer value from environment variables with default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
