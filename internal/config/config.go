// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrOpenAIAPIKeyRequired is returned when OPENAI_API_KEY is not set.
	ErrOpenAIAPIKeyRequired = errors.New("config: OPENAI_API_KEY is required")
	// ErrDatabaseURLRequired is returned when DATABASE_URL is not set.
	ErrDatabaseURLRequired = errors.New("config: DATABASE_URL is required")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// OpenAI settings
	OpenAIAPIKey  string `env:"OPENAI_API_KEY, required" json:"-"` // Masked in JSON
	OpenAIBaseURL string `env:"OPENAI_BASE_URL, default=https://api.openai.com/v1" json:"openai_base_url"`

	// Model selection per endpoint
	ChatModel          string `env:"CHAT_MODEL, default=gpt-4.1-mini" json:"chat_model"`
	AnalysisModel      string `env:"ANALYSIS_MODEL, default=gpt-4o-mini" json:"analysis_model"`
	TranscriptionModel string `env:"TRANSCRIPTION_MODEL, default=whisper-1" json:"transcription_model"`

	// Project store settings
	DatabaseURL string `env:"DATABASE_URL, required" json:"-"` // Masked in JSON

	// Upload settings
	TempDir            string `env:"TEMP_DIR, default=/tmp/dirthalo" json:"temp_dir"`
	MaxUploadMB        int64  `env:"MAX_UPLOAD_MB, default=200" json:"max_upload_mb"`
	TranscriptMaxChars int    `env:"TRANSCRIPT_MAX_CHARS, default=4000" json:"transcript_max_chars"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// MaxUploadBytes returns the upload size cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB * 1024 * 1024
}

// Load reads configuration from environment variables using go-envconfig.
// It returns an error if required variables are not set.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		// Map envconfig errors to our domain errors for required fields
		if strings.Contains(err.Error(), "OPENAI_API_KEY") {
			return nil, ErrOpenAIAPIKeyRequired
		}
		if strings.Contains(err.Error(), "DATABASE_URL") {
			return nil, ErrDatabaseURLRequired
		}
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration is present.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return ErrOpenAIAPIKeyRequired
	}
	if c.DatabaseURL == "" {
		return ErrDatabaseURLRequired
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, OpenAIBaseURL: %s, ChatModel: %s, AnalysisModel: %s, TranscriptionModel: %s, TempDir: %s, MaxUploadMB: %d, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.OpenAIBaseURL,
		c.ChatModel,
		c.AnalysisModel,
		c.TranscriptionModel,
		c.TempDir,
		c.MaxUploadMB,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
