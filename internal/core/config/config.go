// Package config provides configuration management for the formrules service.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"
)

// ServerConfig holds configuration for the HTTP API service.
type ServerConfig struct {
	Host            string
	Port            int
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	DatabaseURL     string

	// Dispatcher settings.
	WebhookTimeout time.Duration
	DebounceWindow time.Duration
}

// DefaultServerConfig returns configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		DatabaseURL:     "sqlite://./formrules.db",
		WebhookTimeout:  10 * time.Second,
		DebounceWindow:  2 * time.Second,
	}
}

// WebhookSecret reads the webhook signing secret from FR_WEBHOOK_SECRET.
// The value is base64-encoded and must decode to at least 32 bytes.
// Returns nil without error when unset: webhook signing is then disabled.
func WebhookSecret() ([]byte, error) {
	val := strings.TrimSpace(os.Getenv("FR_WEBHOOK_SECRET"))
	if val == "" {
		return nil, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(val)
	if err != nil {
		return nil, fmt.Errorf("FR_WEBHOOK_SECRET: invalid base64 encoding: %w", err)
	}
	if len(decoded) < 32 {
		return nil, fmt.Errorf("FR_WEBHOOK_SECRET: secret must be at least 32 bytes, got %d", len(decoded))
	}
	return decoded, nil
}
