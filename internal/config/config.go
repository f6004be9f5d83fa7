// Package config provides configuration management for the risk assessment
// MCP server, backed by Viper with file, environment, and default sources.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/cvd-risk-mcp-server/internal/domain"
)

// Manager implements the ConfigManager interface using Viper.
type Manager struct {
	config *domain.Config
}

// NewManager creates a new configuration manager.
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources.
func (m *Manager) loadConfig() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/cvd-risk-mcp-server/")

	viper.SetEnvPrefix("CVDRISK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	m.setDefaults()

	// Config file is optional; defaults and environment variables suffice.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values.
func (m *Manager) setDefaults() {
	// Logging defaults. MCP mode writes logs to stderr regardless so the
	// stdout protocol stream stays clean.
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	// Engine defaults. Strict validation is the production policy: missing
	// required fields fail a calculation rather than computing with zeros.
	viper.SetDefault("engine.validation_mode", "strict")
	viper.SetDefault("engine.default_model", "prevent")

	// Assessment report cache defaults
	viper.SetDefault("cache.max_entries", 1000)
	viper.SetDefault("cache.ttl", "15m")

	// Tool-invocation rate limiting defaults
	viper.SetDefault("ratelimit.enabled", true)
	viper.SetDefault("ratelimit.requests_per_minute", 120)
	viper.SetDefault("ratelimit.burst", 10)

	// Cohort assessment defaults
	viper.SetDefault("cohort.max_members", 1000)
	viper.SetDefault("cohort.workers", 5)
}

// GetConfig returns the complete configuration.
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// Reload reloads the configuration.
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration.
func (m *Manager) Validate() error {
	config := m.config

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	if _, err := domain.ParseValidationMode(config.Engine.ValidationMode); err != nil {
		return fmt.Errorf("invalid validation mode: %w", err)
	}
	if config.Engine.DefaultModel == "" {
		return fmt.Errorf("default model is required")
	}

	if config.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache max entries must be positive: %d", config.Cache.MaxEntries)
	}
	if config.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive: %s", config.Cache.TTL)
	}

	if config.RateLimit.Enabled {
		if config.RateLimit.RequestsPerMinute <= 0 {
			return fmt.Errorf("rate limit requests per minute must be positive: %d", config.RateLimit.RequestsPerMinute)
		}
		if config.RateLimit.Burst <= 0 {
			return fmt.Errorf("rate limit burst must be positive: %d", config.RateLimit.Burst)
		}
	}

	if config.Cohort.MaxMembers <= 0 {
		return fmt.Errorf("cohort max members must be positive: %d", config.Cohort.MaxMembers)
	}
	if config.Cohort.Workers <= 0 {
		return fmt.Errorf("cohort workers must be positive: %d", config.Cohort.Workers)
	}

	return nil
}
