// Package assemble turns a classified intent into a structured query
// description. Every shape has one template here; nothing downstream
// invents query structure.
package assemble

import (
	"fmt"

	"github.com/deshmukhh/crease/internal/domain/model"
	"github.com/deshmukhh/crease/internal/domain/qerror"
	"github.com/deshmukhh/crease/pkg/metrics"
)

// Default result-set bounds, overridable through options.
const (
	defaultResultLimit = 10
	maxResultLimit     = 100
)

// Assembler builds query descriptions from intents.
type Assembler struct {
	defaultLimit   int
	maxLimit       int
	thresholds     map[model.Metric]int
	phaseThreshold int
}

// New creates an assembler. Without options it injects no qualification
// thresholds at all.
func New(opts ...Option) *Assembler {
	a := &Assembler{
		defaultLimit: defaultResultLimit,
		maxLimit:     maxResultLimit,
		thresholds:   map[model.Metric]int{},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble builds the query for one intent and reports anything it
// decided on the caller's behalf as warnings.
func (a *Assembler) Assemble(in *model.Intent) (*model.QueryDescription, []string, error) {
	var warnings []string

	var (
		qd  *model.QueryDescription
		err error
	)
	switch in.Shape {
	case model.ShapeSingleEntity:
		qd, err = a.singleEntity(in)
	case model.ShapeMatchup:
		qd, err = a.matchup(in)
	case model.ShapeLeaderboard:
		qd, err = a.leaderboard(in, &warnings)
	case model.ShapePhaseBreakdown:
		qd, err = a.phaseBreakdown(in, &warnings)
	case model.ShapeComparison:
		qd, err = a.comparison(in)
	default:
		return nil, nil, qerror.Newf(qerror.CodeUnsupportedShape,
			"no template for shape %q", in.Shape)
	}
	if err != nil {
		return nil, nil, err
	}

	qd.Table = model.DeliveriesTable
	qd.Where = append(qd.Where, in.Filters...)
	qd.Where = append(qd.Where, venueFilters(in)...)
	a.applyThreshold(in, qd, &warnings)

	return qd, warnings, nil
}

// singleEntity aggregates one player's or team's record, optionally
// narrowed by the shared filters.
func (a *Assembler) singleEntity(in *model.Intent) (*model.QueryDescription, error) {
	subject, err := oneSubject(in)
	if err != nil {
		return nil, err
	}

	col := subjectColumn(subject.Kind, in.BowlingContext)
	qd := &model.QueryDescription{
		Selects: append(
			[]model.SelectExpr{{Kind: model.SelectColumn, Column: col, Alias: groupAlias(subject.Kind)}},
			metricSelects(in.Metrics)...,
		),
		Where:   []model.Filter{equal(col, subject.Name)},
		GroupBy: []string{col},
		Limit:   1,
	}
	return qd, nil
}

// matchup narrows to the deliveries where both sides met. A team against
// a team keeps both directions, one row per batting side.
func (a *Assembler) matchup(in *model.Intent) (*model.QueryDescription, error) {
	subject, err := oneSubject(in)
	if err != nil {
		return nil, err
	}
	opponent, err := oneOpponent(in)
	if err != nil {
		return nil, err
	}

	if subject.Kind == model.KindTeam && opponent.Kind == model.KindTeam {
		// Two teams head to head is a match-level question: matches
		// played, wins per side, average innings score. The shared
		// filters still narrow which matches count.
		return &model.QueryDescription{
			Matchup: &model.TeamMatchup{TeamA: subject.Name, TeamB: opponent.Name},
			Limit:   2,
		}, nil
	}

	subjectCol := subjectColumn(subject.Kind, in.BowlingContext)
	opponentCol := opponentColumn(opponent.Kind, in.BowlingContext)
	if subjectCol == opponentCol {
		return nil, qerror.New(qerror.CodeUnresolvableIntent,
			"both sides of the matchup map to the same column")
	}

	return &model.QueryDescription{
		Selects: append([]model.SelectExpr{
			{Kind: model.SelectColumn, Column: subjectCol, Alias: "subject"},
			{Kind: model.SelectColumn, Column: opponentCol, Alias: "opponent"},
		}, metricSelects(in.Metrics)...),
		Where: []model.Filter{
			equal(subjectCol, subject.Name),
			equal(opponentCol, opponent.Name),
		},
		GroupBy: []string{subjectCol, opponentCol},
		Limit:   1,
	}, nil
}

// leaderboard ranks every player on the primary metric. Opposition,
// venue and a lone subject mention all become filters rather than
// group keys; "top scorers for RCB" narrows the field to one side.
func (a *Assembler) leaderboard(in *model.Intent, warnings *[]string) (*model.QueryDescription, error) {
	groupCol := model.ColBatterName
	if in.BowlingContext {
		groupCol = model.ColBowlerName
	}

	where := opponentFilters(in)
	for _, s := range subjectsOf(in) {
		where = append(where, equal(subjectColumn(s.Kind, in.BowlingContext), s.Name))
	}

	limit := in.Limit
	if limit == 0 {
		limit = a.defaultLimit
	}
	if limit > a.maxLimit {
		limit = a.maxLimit
		*warnings = append(*warnings, fmt.Sprintf("result count capped at %d", a.maxLimit))
	}

	qd := &model.QueryDescription{
		Selects: append(
			[]model.SelectExpr{{Kind: model.SelectColumn, Column: groupCol, Alias: "player"}},
			metricSelects(in.Metrics)...,
		),
		Where:   where,
		GroupBy: []string{groupCol},
		OrderBy: orderBy(in),
		Limit:   limit,
	}
	return qd, nil
}

// phaseBreakdown splits an entity's record across the three phases.
func (a *Assembler) phaseBreakdown(in *model.Intent, warnings *[]string) (*model.QueryDescription, error) {
	qd := &model.QueryDescription{
		Selects: append(
			[]model.SelectExpr{{Kind: model.SelectPhase, Alias: "phase"}},
			metricSelects(in.Metrics)...,
		),
		GroupBy: []string{"phase"},
		OrderBy: []model.OrderTerm{{Alias: "phase"}},
		Limit:   3,
	}

	subjects := subjectsOf(in)
	if len(subjects) == 1 {
		col := subjectColumn(subjects[0].Kind, in.BowlingContext)
		qd.Where = append(qd.Where, equal(col, subjects[0].Name))
	} else if len(subjects) == 0 {
		*warnings = append(*warnings, "no entity named; breaking down the whole event log by phase")
	}
	qd.Where = append(qd.Where, opponentFilters(in)...)

	return qd, nil
}

// comparison puts the named subjects side by side, ranked on the
// primary metric.
func (a *Assembler) comparison(in *model.Intent) (*model.QueryDescription, error) {
	subjects := subjectsOf(in)
	if len(subjects) < 2 {
		return nil, qerror.New(qerror.CodeUnresolvableIntent,
			"a comparison needs at least two entities")
	}

	col := subjectColumn(subjects[0].Kind, in.BowlingContext)
	names := make([]any, len(subjects))
	for i, s := range subjects {
		names[i] = s.Name
	}

	return &model.QueryDescription{
		Selects: append(
			[]model.SelectExpr{{Kind: model.SelectColumn, Column: col, Alias: groupAlias(subjects[0].Kind)}},
			metricSelects(in.Metrics)...,
		),
		Where:   []model.Filter{{Column: col, Op: model.OpIn, Values: names, Source: "comparison"}},
		GroupBy: []string{col},
		OrderBy: orderBy(in),
		Limit:   len(subjects),
	}, nil
}

// applyThreshold attaches the qualification bar: the explicit one when
// stated, otherwise the configured default for ranked rate metrics.
func (a *Assembler) applyThreshold(in *model.Intent, qd *model.QueryDescription, warnings *[]string) {
	if qd.Matchup != nil {
		// The head-to-head template aggregates matches, not deliveries;
		// a per-delivery sample bar has nothing to constrain.
		return
	}
	if in.Threshold != nil {
		qd.Having = append(qd.Having, model.HavingPred{
			Metric: in.Threshold.Metric,
			Op:     model.OpGte,
			Value:  in.Threshold.Value,
		})
		return
	}

	// Unqualified rate rankings reward three-ball careers; only ranked
	// shapes get a default bar.
	if in.Shape != model.ShapeLeaderboard && in.Shape != model.ShapePhaseBreakdown {
		return
	}
	primary := primaryMetric(in)
	value := a.thresholds[primary]
	if in.Shape == model.ShapePhaseBreakdown {
		if !isRate(primary) {
			return
		}
		value = a.phaseThreshold
	}
	if value <= 0 {
		return
	}

	sample := sampleMetric(primary, in.BowlingContext)
	qd.Having = append(qd.Having, model.HavingPred{
		Metric:   sample,
		Op:       model.OpGte,
		Value:    value,
		Injected: true,
	})
	*warnings = append(*warnings, fmt.Sprintf(
		"no qualification stated; requiring at least %d %s", value, sampleUnit(sample)))
	metrics.RecordThresholdInjected(string(primary))
}

// metricSelects maps the intent metrics plus their supporting counts
// into the select list.
func metricSelects(ms []model.Metric) []model.SelectExpr {
	seen := map[model.Metric]bool{}
	var out []model.SelectExpr
	add := func(m model.Metric) {
		if seen[m] {
			return
		}
		seen[m] = true
		out = append(out, model.SelectExpr{Kind: model.SelectMetric, Metric: m, Alias: string(m)})
	}

	for _, m := range ms {
		add(m)
	}
	// Rate metrics carry their inputs so a reader can judge the sample.
	for _, m := range ms {
		for _, s := range supportingMetrics(m) {
			add(s)
		}
	}
	return out
}

func supportingMetrics(m model.Metric) []model.Metric {
	switch m {
	case model.MetricStrikeRate:
		return []model.Metric{model.MetricTotalRuns, model.MetricBallsFaced}
	case model.MetricBattingAverage:
		return []model.Metric{model.MetricTotalRuns, model.MetricDismissals}
	case model.MetricEconomyRate:
		return []model.Metric{model.MetricBallsBowled}
	case model.MetricBowlingAverage:
		return []model.Metric{model.MetricTotalWickets}
	default:
		return nil
	}
}

// sampleMetric is what the injected qualification bar counts for a
// given ranked metric.
func sampleMetric(m model.Metric, bowling bool) model.Metric {
	switch m {
	case model.MetricBattingAverage:
		return model.MetricTotalRuns
	case model.MetricEconomyRate, model.MetricBowlingAverage:
		return model.MetricBallsBowled
	case model.MetricStrikeRate:
		return model.MetricBallsFaced
	default:
		if bowling {
			return model.MetricBallsBowled
		}
		return model.MetricBallsFaced
	}
}

func isRate(m model.Metric) bool {
	switch m {
	case model.MetricStrikeRate, model.MetricBattingAverage,
		model.MetricEconomyRate, model.MetricBowlingAverage:
		return true
	default:
		return false
	}
}

func sampleUnit(m model.Metric) string {
	switch m {
	case model.MetricTotalRuns:
		return "runs"
	case model.MetricTotalWickets:
		return "wickets"
	default:
		return "balls"
	}
}

func primaryMetric(in *model.Intent) model.Metric {
	if in.SortKey != "" {
		return in.SortKey
	}
	if len(in.Metrics) > 0 {
		return in.Metrics[0]
	}
	return model.MetricTotalRuns
}

func orderBy(in *model.Intent) []model.OrderTerm {
	primary := primaryMetric(in)
	return []model.OrderTerm{{Alias: string(primary), Desc: in.SortDesc}}
}

// subjectColumn is where the subject's name lives for the question's
// batting or bowling reading.
func subjectColumn(kind model.EntityKind, bowling bool) string {
	switch kind {
	case model.KindTeam:
		if bowling {
			return model.ColBowlingTeam
		}
		return model.ColBattingTeam
	default:
		if bowling {
			return model.ColBowlerName
		}
		return model.ColBatterName
	}
}

// opponentColumn is the other side of the same reading.
func opponentColumn(kind model.EntityKind, bowling bool) string {
	switch kind {
	case model.KindTeam:
		if bowling {
			return model.ColBattingTeam
		}
		return model.ColBowlingTeam
	default:
		if bowling {
			return model.ColBatterName
		}
		return model.ColBowlerName
	}
}

func groupAlias(kind model.EntityKind) string {
	if kind == model.KindTeam {
		return "team"
	}
	return "player"
}

func venueFilters(in *model.Intent) []model.Filter {
	var out []model.Filter
	for _, e := range in.EntitiesOf(model.KindVenue) {
		out = append(out, model.Filter{
			Column: model.ColVenue,
			Op:     model.OpEq,
			Value:  e.Name,
			Source: e.Mention,
		})
	}
	return out
}

func opponentFilters(in *model.Intent) []model.Filter {
	var out []model.Filter
	for _, e := range in.Entities {
		if e.Role != model.RoleOpponent {
			continue
		}
		out = append(out, equal(opponentColumn(e.Kind, in.BowlingContext), e.Name))
	}
	return out
}

func subjectsOf(in *model.Intent) []model.Entity {
	var out []model.Entity
	for _, e := range in.Entities {
		if e.Role == model.RoleSubject {
			out = append(out, e)
		}
	}
	return out
}

func oneSubject(in *model.Intent) (model.Entity, error) {
	subjects := subjectsOf(in)
	if len(subjects) == 0 {
		return model.Entity{}, qerror.New(qerror.CodeNoEntityFound,
			"this shape needs a named subject")
	}
	return subjects[0], nil
}

func oneOpponent(in *model.Intent) (model.Entity, error) {
	for _, e := range in.Entities {
		if e.Role == model.RoleOpponent {
			return e, nil
		}
	}
	return model.Entity{}, qerror.New(qerror.CodeNoEntityFound,
		"a matchup needs an opposition")
}

func equal(column, value string) model.Filter {
	return model.Filter{Column: column, Op: model.OpEq, Value: value, Source: value}
}
