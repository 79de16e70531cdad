// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) initializer to build a Config with defaults.
// - All future functions must accept context.Context as the first parameter.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"context"
	"runtime"
	"time"
)

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath locates the SQLite ball-by-ball event store.
	DBPath string `koanf:"db_path"`

	// AliasPath optionally locates a YAML alias table for entity names.
	AliasPath string `koanf:"alias_path"`

	// QueryTimeoutMS bounds one row store execution.
	QueryTimeoutMS int `koanf:"query_timeout_ms"`

	// MaxInFlightQueries bounds concurrent row store executions.
	MaxInFlightQueries int `koanf:"max_in_flight_queries"`

	// SimilarityFloor is the minimum fuzzy-match similarity (0-1).
	SimilarityFloor float64 `koanf:"similarity_floor"`

	// DefaultLimit applies to leaderboards when the question states no top-N.
	DefaultLimit int `koanf:"default_limit"`

	// MaxLimit caps any requested top-N.
	MaxLimit int `koanf:"max_limit"`

	// CacheSize bounds the answer cache (0 disables it).
	CacheSize int `koanf:"cache_size"`

	// Thresholds are the fixed default minimum-sample sizes injected into
	// leaderboard aggregates when the question states none. Keys are metric
	// names; values are the minimum sample.
	Thresholds map[string]int `koanf:"thresholds"`

	// PhaseThreshold is the minimum valid balls for phase breakdowns.
	PhaseThreshold int `koanf:"phase_threshold"`

	// GeminiAPIKey enables the language-model fallback suggester when set.
	GeminiAPIKey string `koanf:"gemini_api_key"`

	// GeminiModel names the model used for fallback suggestions.
	GeminiModel string `koanf:"gemini_model"`
}

// QueryTimeout returns the row store deadline as a duration.
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutMS) * time.Millisecond
}

// New creates a Config using defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use and currently
// unused.
func New(_ context.Context) *Config {
	c := &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9090",
		DBPath:             "crease.db",
		QueryTimeoutMS:     5000,
		MaxInFlightQueries: runtime.NumCPU() * 2,
		SimilarityFloor:    0.75,
		DefaultLimit:       10,
		MaxLimit:           100,
		CacheSize:          1024,
		Thresholds: map[string]int{
			"strike_rate":     200, // valid balls faced
			"batting_average": 500, // runs off bat
			"economy_rate":    300, // valid balls bowled
			"bowling_average": 300, // valid balls bowled
			"total_runs":      100, // valid balls faced
			"total_wickets":   100, // valid balls bowled
		},
		PhaseThreshold: 60,
		GeminiModel:    "gemini-2.0-flash",
	}
	return c
}
