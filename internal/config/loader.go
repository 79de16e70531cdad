package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New(ctx))
//  2. file (YAML) if CREASE_CONFIG is set
//  3. env (prefix CREASE_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New(ctx)

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("CREASE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// Environment variables: CREASE_ADDR, CREASE_DB_PATH, ...
	// Map env keys like CREASE_QUERY_TIMEOUT_MS -> query_timeout_ms (flat keys)
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("CREASE_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "crease_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Basic validation
	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if cfg.DBPath == "" {
		return nil, fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	}
	if cfg.SimilarityFloor < 0 || cfg.SimilarityFloor > 1 {
		return nil, fmt.Errorf("%w: similarity_floor must be within [0, 1]", ErrInvalidConfig)
	}
	if cfg.QueryTimeoutMS <= 0 {
		return nil, fmt.Errorf("%w: query_timeout_ms must be positive", ErrInvalidConfig)
	}
	if cfg.MaxLimit < cfg.DefaultLimit {
		return nil, fmt.Errorf("%w: max_limit must be at least default_limit", ErrInvalidConfig)
	}
	return &cfg, nil
}
