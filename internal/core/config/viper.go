package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*ServerConfig, error) {
	v := viper.New()

	// Set defaults matching DefaultServerConfig
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.database_url", "sqlite://./formrules.db")
	v.SetDefault("dispatch.webhook_timeout", "10s")
	v.SetDefault("dispatch.debounce_window", "2s")

	// Bind environment variables with FR_ prefix
	v.SetEnvPrefix("FR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets must be environment-only per 12-factor principles
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &ServerConfig{
		Host:            v.GetString("server.host"),
		Port:            v.GetInt("server.port"),
		RequestTimeout:  v.GetDuration("server.request_timeout"),
		ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		DatabaseURL:     v.GetString("server.database_url"),
		WebhookTimeout:  v.GetDuration("dispatch.webhook_timeout"),
		DebounceWindow:  v.GetDuration("dispatch.debounce_window"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks port range and positive timeouts.
func validateConfig(cfg *ServerConfig) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.RequestTimeout)
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown_timeout must be positive, got %v", cfg.ShutdownTimeout)
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("database_url must be set")
	}
	if cfg.WebhookTimeout <= 0 {
		return fmt.Errorf("webhook_timeout must be positive, got %v", cfg.WebhookTimeout)
	}
	if cfg.DebounceWindow < 0 {
		return fmt.Errorf("debounce_window must not be negative, got %v", cfg.DebounceWindow)
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only secrets.
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.IsSet("webhook_secret") || v.IsSet("dispatch.webhook_secret") {
		return fmt.Errorf("webhook secrets not allowed in config files (use FR_WEBHOOK_SECRET environment variable)")
	}
	return nil
}
