// Package config provides process configuration, read once at startup.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds everything the process needs: model endpoint credentials,
// loop bounds, server settings and tool backends. Precedence is defaults,
// then the TOML file, then environment variables.
type Config struct {
	// Model endpoint
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`

	// Orchestrator bounds
	MaxTurns       int           `toml:"max_turns"`
	RequestTimeout time.Duration `toml:"-"`

	// HTTP server
	HTTPAddr string `toml:"http_addr"`

	// Tool backends
	DatabaseDSN   string        `toml:"database_dsn"`
	CorpusPath    string        `toml:"corpus_path"`
	PolicyPath    string        `toml:"policy_path"`
	RunnerCommand string        `toml:"runner_command"`
	RunnerTimeout time.Duration `toml:"-"`

	// Logging
	LogLevel string `toml:"log_level"`

	// Raw millisecond values for the TOML file; resolved into the
	// Duration fields by Load.
	RequestTimeoutMs int `toml:"request_timeout_ms"`
	RunnerTimeoutMs  int `toml:"runner_timeout_ms"`
}

// ErrMissingAPIKey reports absent model endpoint credentials. Surfaced
// before any network call is attempted.
var ErrMissingAPIKey = errors.New("api key is not configured (set ANTHROPIC_API_KEY or api_key)")

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BaseURL:          "https://api.anthropic.com",
		Model:            "claude-sonnet-4-20250514",
		MaxTokens:        1024,
		MaxTurns:         16,
		HTTPAddr:         ":8080",
		DatabaseDSN:      ":memory:",
		RunnerCommand:    "python3",
		LogLevel:         "info",
		RequestTimeoutMs: 120000,
		RunnerTimeoutMs:  15000,
	}
}

// Load builds the configuration from defaults, an optional TOML file and
// environment overrides. A missing file at path is not an error; a
// malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := toml.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.APIKey = getEnv("PATTER_API_KEY", getEnv("ANTHROPIC_API_KEY", cfg.APIKey))
	cfg.BaseURL = getEnv("PATTER_BASE_URL", cfg.BaseURL)
	cfg.Model = getEnv("PATTER_MODEL", cfg.Model)
	cfg.MaxTokens = getEnvInt("PATTER_MAX_TOKENS", cfg.MaxTokens)
	cfg.MaxTurns = getEnvInt("PATTER_MAX_TURNS", cfg.MaxTurns)
	cfg.HTTPAddr = getEnv("PATTER_HTTP_ADDR", cfg.HTTPAddr)
	cfg.DatabaseDSN = getEnv("PATTER_DATABASE_DSN", cfg.DatabaseDSN)
	cfg.CorpusPath = getEnv("PATTER_CORPUS_PATH", cfg.CorpusPath)
	cfg.PolicyPath = getEnv("PATTER_POLICY_PATH", cfg.PolicyPath)
	cfg.RunnerCommand = getEnv("PATTER_RUNNER_COMMAND", cfg.RunnerCommand)
	cfg.LogLevel = getEnv("PATTER_LOG_LEVEL", cfg.LogLevel)
	cfg.RequestTimeoutMs = getEnvInt("PATTER_REQUEST_TIMEOUT_MS", cfg.RequestTimeoutMs)
	cfg.RunnerTimeoutMs = getEnvInt("PATTER_RUNNER_TIMEOUT_MS", cfg.RunnerTimeoutMs)

	cfg.RequestTimeout = time.Duration(cfg.RequestTimeoutMs) * time.Millisecond
	cfg.RunnerTimeout = time.Duration(cfg.RunnerTimeoutMs) * time.Millisecond
	return cfg, nil
}

// ValidateCredentials reports the configuration-fatal case of a missing
// API key.
func (c *Config) ValidateCredentials() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
