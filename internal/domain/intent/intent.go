// Package intent classifies a question into one of the supported query
// shapes and merges the extraction passes into a single intent.
package intent

import (
	"github.com/deshmukhh/crease/internal/domain/filters"
	"github.com/deshmukhh/crease/internal/domain/model"
	"github.com/deshmukhh/crease/internal/domain/qerror"
	"github.com/deshmukhh/crease/internal/domain/vocab"
	"github.com/deshmukhh/crease/pkg/metrics"
)

// Input carries the outputs of the three extraction passes. Unknown
// holds proper nouns the resolver could not anchor; they only matter
// when the shape needs a subject the question failed to provide.
type Input struct {
	Entities []model.Entity
	Unknown  []string
	Vocab    *vocab.Analysis
	Numeric  *filters.Extraction
}

// Classify merges the passes into an intent. The shape is decided by
// the strongest cue present: an opposition beats everything, then a
// ranking cue, then an explicit comparison, then a phase breakdown,
// and a lone entity falls through to the single-entity shape.
func Classify(in Input) (*model.Intent, error) {
	subjects := subjectsOf(in.Entities)
	opponents := rolesOf(in.Entities, model.RoleOpponent)

	merged, err := mergeFilters(in.Vocab.Filters, in.Numeric.Filters)
	if err != nil {
		return nil, err
	}

	intent := &model.Intent{
		Entities:       in.Entities,
		Filters:        merged,
		Limit:          in.Numeric.Limit,
		BowlingContext: in.Vocab.BowlingContext,
	}

	intent.Metrics = pickMetrics(in.Vocab, in.Numeric)
	if th := resolveThreshold(in.Numeric.Threshold, in.Vocab.BowlingContext); th != nil {
		intent.Threshold = th
	}

	switch {
	case len(subjects) > 0 && len(opponents) > 0:
		intent.Shape = model.ShapeMatchup

	case rankingCue(in) && len(subjects) <= 1:
		// A ranking verb with at most one named entity is a leaderboard;
		// the lone subject narrows the field rather than become the row.
		intent.Shape = model.ShapeLeaderboard

	case len(subjects) >= 2:
		if !sameKind(subjects) {
			return nil, qerror.New(qerror.CodeUnresolvableIntent,
				"cannot compare entities of different kinds")
		}
		intent.Shape = model.ShapeComparison

	case in.Vocab.PhaseBreakdown:
		intent.Shape = model.ShapePhaseBreakdown

	case len(subjects) == 1:
		intent.Shape = model.ShapeSingleEntity

	case len(opponents) > 0:
		// "wickets against CSK" with no subject reads as a leaderboard
		// restricted to that opposition.
		intent.Shape = model.ShapeLeaderboard

	default:
		if len(in.Unknown) > 0 {
			metrics.RecordQuestionFailure(string(qerror.CodeNoEntityFound))
			return nil, qerror.Newf(qerror.CodeNoEntityFound,
				"no player, team or venue matches %q", in.Unknown[0])
		}
		metrics.RecordQuestionFailure(string(qerror.CodeUnresolvableIntent))
		return nil, qerror.New(qerror.CodeUnresolvableIntent,
			"the question names no entity and asks for no ranking")
	}

	intent.SortKey, intent.SortDesc = sortFor(intent.Metrics, in.Vocab)
	metrics.RecordQuestionShape(string(intent.Shape))
	return intent, nil
}

// pickMetrics keeps the question's metric phrases, minus the one that
// only appeared inside the qualification clause, and falls back to the
// context default when nothing was named.
func pickMetrics(v *vocab.Analysis, n *filters.Extraction) []model.Metric {
	out := v.Metrics

	if n.Threshold != nil && len(out) > 1 {
		thMetric := thresholdMetric(n.Threshold.Unit, v.BowlingContext)
		trimmed := out[:0]
		for _, m := range out {
			if m != thMetric {
				trimmed = append(trimmed, m)
			}
		}
		out = trimmed
	}

	if len(out) == 0 {
		if v.BowlingContext {
			out = []model.Metric{model.MetricTotalWickets}
		} else {
			out = []model.Metric{model.MetricTotalRuns}
		}
	}
	return out
}

// resolveThreshold maps the clause's unit to a metric now that the
// batting or bowling reading is known.
func resolveThreshold(tc *filters.ThresholdClause, bowling bool) *model.Threshold {
	if tc == nil {
		return nil
	}
	return &model.Threshold{
		Metric:   thresholdMetric(tc.Unit, bowling),
		Value:    tc.Value,
		Explicit: true,
	}
}

func thresholdMetric(unit string, bowling bool) model.Metric {
	switch unit {
	case "runs":
		return model.MetricTotalRuns
	case "wickets":
		return model.MetricTotalWickets
	case "innings":
		return model.MetricDismissals
	default: // balls
		if bowling {
			return model.MetricBallsBowled
		}
		return model.MetricBallsFaced
	}
}

// sortFor orders results by the primary metric. "Best" follows the
// metric's natural direction; "worst" flips it.
func sortFor(ms []model.Metric, v *vocab.Analysis) (model.Metric, bool) {
	if len(ms) == 0 {
		return "", false
	}
	primary := ms[0]
	desc := !primary.Ascending()
	if v.Worst {
		desc = !desc
	}
	return primary, desc
}

// mergeFilters joins the vocabulary and numeric filters, rejecting two
// different restrictions of the same column.
func mergeFilters(a, b []model.Filter) ([]model.Filter, error) {
	merged := make([]model.Filter, 0, len(a)+len(b))
	merged = append(merged, a...)

outer:
	for _, f := range b {
		for _, seen := range merged {
			if seen.Column != f.Column {
				continue
			}
			if seen.Op == f.Op && seen.Value == f.Value && seen.Value2 == f.Value2 {
				continue outer // same restriction twice, keep one
			}
			return nil, qerror.Newf(qerror.CodeConflictingFilter,
				"%q and %q restrict %s differently", seen.Source, f.Source, f.Column)
		}
		merged = append(merged, f)
	}
	return merged, nil
}

func rankingCue(in Input) bool {
	return in.Vocab.Superlative || in.Numeric.Limit > 0
}

func subjectsOf(ents []model.Entity) []model.Entity {
	return rolesOf(ents, model.RoleSubject)
}

func rolesOf(ents []model.Entity, role model.Role) []model.Entity {
	var out []model.Entity
	for _, e := range ents {
		if e.Role == role {
			out = append(out, e)
		}
	}
	return out
}

func sameKind(ents []model.Entity) bool {
	for _, e := range ents[1:] {
		if e.Kind != ents[0].Kind {
			return false
		}
	}
	return true
}
