package assemble

import "github.com/deshmukhh/crease/internal/domain/model"

// Option applies a configuration option to the Assembler.
type Option func(*Assembler)

// WithDefaultLimit sets the result count used when the question states
// none.
func WithDefaultLimit(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.defaultLimit = n
		}
	}
}

// WithMaxLimit caps the result count no matter what the question asks.
func WithMaxLimit(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.maxLimit = n
		}
	}
}

// WithThresholds sets the default qualification bars per ranked metric,
// keyed by metric name.
func WithThresholds(th map[string]int) Option {
	return func(a *Assembler) {
		for name, value := range th {
			if value > 0 {
				a.thresholds[model.Metric(name)] = value
			}
		}
	}
}

// WithPhaseThreshold sets the per-phase qualification bar, in balls,
// for rate metrics in a phase breakdown.
func WithPhaseThreshold(n int) Option {
	return func(a *Assembler) {
		if n > 0 {
			a.phaseThreshold = n
		}
	}
}
