// Package server provides configuration helpers that define runtime defaults
// and validation for the DriftChat service.
package server

import (
	"strings"
	"time"
)

// Config holds the server configuration settings. Values are populated from
// the environment via go-env tags; Sanitize repairs anything unusable so the
// server always starts with workable settings.
type Config struct {
	Port            string        `env:"SERVER_PORT,default=:8080"`
	AllowedOrigins  string        `env:"ALLOWED_ORIGINS,default=http://localhost:8080"`
	MaxMessageSize  int64         `env:"MAX_MESSAGE_SIZE,default=4096"`
	SendBufferSize  int           `env:"SEND_BUFFER_SIZE,default=256"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
}

// NewConfig creates a Config instance populated with default values for all
// settings.
func NewConfig() Config {
	return Config{
		Port:            ":8080",
		AllowedOrigins:  "http://localhost:8080",
		MaxMessageSize:  4096,
		SendBufferSize:  256,
		LogLevel:        "info",
		ShutdownTimeout: 10 * time.Second,
	}
}

// Sanitize replaces invalid or missing values with defaults and returns the
// repaired configuration.
func (c Config) Sanitize() Config {
	defaults := NewConfig()

	if strings.TrimSpace(c.Port) == "" {
		c.Port = defaults.Port
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = defaults.MaxMessageSize
	}
	if c.SendBufferSize <= 0 {
		c.SendBufferSize = defaults.SendBufferSize
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = defaults.LogLevel
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaults.ShutdownTimeout
	}
	return c
}

// Origins splits the comma-separated allow-list into individual origins.
func (c Config) Origins() []string {
	parts := strings.Split(c.AllowedOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
