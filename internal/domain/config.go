package domain

import (
	"time"
)

// Config represents the complete application configuration.
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging" json:"logging"`
	Engine    EngineConfig    `mapstructure:"engine" json:"engine"`
	Cache     CacheConfig     `mapstructure:"cache" json:"cache"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit" json:"ratelimit"`
	Cohort    CohortConfig    `mapstructure:"cohort" json:"cohort"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level" json:"level"`
	Format string `mapstructure:"format" json:"format"`
}

// EngineConfig contains risk engine configuration. ValidationMode selects
// the missing-field policy (strict or lenient); DefaultModel is the registry
// id used when a request names no model.
type EngineConfig struct {
	ValidationMode string `mapstructure:"validation_mode" json:"validation_mode"`
	DefaultModel   string `mapstructure:"default_model" json:"default_model"`
}

// CacheConfig contains assessment report cache configuration.
type CacheConfig struct {
	MaxEntries int           `mapstructure:"max_entries" json:"max_entries"`
	TTL        time.Duration `mapstructure:"ttl" json:"ttl"`
}

// RateLimitConfig contains tool-invocation rate limiting configuration.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled" json:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute" json:"requests_per_minute"`
	Burst             int  `mapstructure:"burst" json:"burst"`
}

// CohortConfig bounds cohort batch assessment: the largest accepted cohort
// and the number of concurrent member evaluations.
type CohortConfig struct {
	MaxMembers int `mapstructure:"max_members" json:"max_members"`
	Workers    int `mapstructure:"workers" json:"workers"`
}
