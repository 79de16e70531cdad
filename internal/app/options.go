package service

import (
	"time"

	"github.com/deshmukhh/crease/internal/adapters/llm"
	"github.com/deshmukhh/crease/internal/adapters/rowstore"
	"github.com/deshmukhh/crease/pkg/logger"
)

// Option configures the service.
type Option func(*Service)

// WithDBPath sets the event log path. Use ":memory:" for an ephemeral store.
func WithDBPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dbPath = path
		}
	}
}

// WithAliasPath points the registry at a YAML file of extra name aliases.
func WithAliasPath(path string) Option {
	return func(s *Service) {
		s.aliasPath = path
	}
}

// WithSimilarityFloor sets the fuzzy-match acceptance floor.
func WithSimilarityFloor(floor float64) Option {
	return func(s *Service) {
		if floor > 0 && floor <= 1 {
			s.similarityFloor = floor
		}
	}
}

// WithQueryTimeout bounds row store execution per question.
func WithQueryTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.queryTimeout = timeout
		}
	}
}

// WithMaxInFlight caps concurrent row store queries.
func WithMaxInFlight(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxInFlight = n
		}
	}
}

// WithDefaultLimit sets the leaderboard row count when the question
// names none.
func WithDefaultLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.defaultLimit = n
		}
	}
}

// WithMaxLimit caps the row count a question may request.
func WithMaxLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithThresholds sets the per-metric qualification minimums injected
// into rate leaderboards.
func WithThresholds(thresholds map[string]int) Option {
	return func(s *Service) {
		if thresholds != nil {
			s.thresholds = thresholds
		}
	}
}

// WithPhaseThreshold sets the per-phase ball minimum for rate metrics.
func WithPhaseThreshold(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.phaseThreshold = n
		}
	}
}

// WithCacheSize bounds the answer cache.
func WithCacheSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.cacheSize = n
		}
	}
}

// WithSuggester enables the model fallback for questions the rules
// cannot classify.
func WithSuggester(sg llm.Suggester) Option {
	return func(s *Service) {
		s.suggester = sg
	}
}

// WithStore injects a pre-opened row store. The service will not open
// its own and takes over closing this one.
func WithStore(store rowstore.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}
