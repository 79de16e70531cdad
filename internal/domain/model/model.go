// Package model contains domain models passed between layers.
package model

import "time"

// EntityKind discriminates the canonical reference tables.
type EntityKind string

const (
	KindPlayer EntityKind = "player"
	KindTeam   EntityKind = "team"
	KindVenue  EntityKind = "venue"
)

// Role is the grammatical role an entity plays in the question.
type Role string

const (
	RoleSubject  Role = "subject"  // the batter/bowler/team the question is about
	RoleOpponent Role = "opponent" // the other side of a "vs"/"against"
	RoleVenue    Role = "venue"
)

// Entity is one resolved mention from the question text.
type Entity struct {
	Name       string     `json:"name"` // canonical name
	Kind       EntityKind `json:"kind"`
	Role       Role       `json:"role"`
	Mention    string     `json:"mention"`    // the phrase in the question that matched
	Confidence float64    `json:"confidence"` // 1.0 exact/alias, lower for fuzzy
}

// Shape is the closed set of query shapes the engine can answer.
type Shape string

const (
	ShapeSingleEntity   Shape = "single_entity"
	ShapeMatchup        Shape = "matchup"
	ShapeLeaderboard    Shape = "leaderboard"
	ShapePhaseBreakdown Shape = "phase_breakdown"
	ShapeComparison     Shape = "comparison"
)

// Metric identifies a computed statistic. The assembler knows the exact
// formula for each; nothing else in the pipeline does arithmetic.
type Metric string

const (
	MetricStrikeRate     Metric = "strike_rate"
	MetricBattingAverage Metric = "batting_average"
	MetricEconomyRate    Metric = "economy_rate"
	MetricBowlingAverage Metric = "bowling_average"
	MetricTotalRuns      Metric = "total_runs"
	MetricTotalWickets   Metric = "total_wickets"
	MetricFours          Metric = "fours"
	MetricSixes          Metric = "sixes"
	MetricDismissals     Metric = "dismissals"
	MetricDotBalls       Metric = "dot_balls"
	MetricBallsFaced     Metric = "balls_faced"
	MetricBallsBowled    Metric = "balls_bowled"
)

// Ascending reports whether smaller values of the metric rank better
// ("best economy" means lowest economy).
func (m Metric) Ascending() bool {
	switch m {
	case MetricEconomyRate, MetricBowlingAverage:
		return true
	default:
		return false
	}
}

// Op is a comparison operator in a predicate.
type Op string

const (
	OpEq      Op = "="
	OpNeq     Op = "!="
	OpGte     Op = ">="
	OpLte     Op = "<="
	OpGt      Op = ">"
	OpLt      Op = "<"
	OpBetween Op = "between" // Value and Value2 inclusive
	OpIn      Op = "in"      // Values
)

// Filter is one predicate extracted from the question, with the phrase it
// came from kept for transparency and conflict reporting.
type Filter struct {
	Column string `json:"column"`
	Op     Op     `json:"op"`
	Value  any    `json:"value"`
	Value2 any    `json:"value2,omitempty"` // upper bound for between
	Values []any  `json:"values,omitempty"` // members for in
	Source string `json:"source"`           // phrase that produced this filter
}

// Threshold is a minimum-sample constraint (HAVING) on an aggregate.
type Threshold struct {
	Metric   Metric `json:"metric"` // what is being counted (total_runs, balls_faced, ...)
	Value    int    `json:"value"`
	Explicit bool   `json:"explicit"` // false when system-injected
}

// Intent is the engine's internal representation of one question.
// Built fresh per request and never persisted.
type Intent struct {
	Shape     Shape      `json:"shape"`
	Entities  []Entity   `json:"entities"`
	Filters   []Filter   `json:"filters"`
	Metrics   []Metric   `json:"metrics"`
	SortKey   Metric     `json:"sort_key,omitempty"`
	SortDesc  bool       `json:"sort_desc"`
	Limit     int        `json:"limit,omitempty"` // 0 means not stated
	Threshold *Threshold `json:"threshold,omitempty"`

	// BowlingContext is true when the question is about bowling figures;
	// it disambiguates "average" and the default metric.
	BowlingContext bool `json:"bowling_context"`
}

// EntityNames returns the canonical names of the resolved entities in order.
func (in *Intent) EntityNames() []string {
	names := make([]string, len(in.Entities))
	for i, e := range in.Entities {
		names[i] = e.Name
	}
	return names
}

// EntitiesOf returns the resolved entities of a kind, preserving order.
func (in *Intent) EntitiesOf(kind EntityKind) []Entity {
	var out []Entity
	for _, e := range in.Entities {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Event-row schema columns. The row store holds one row per delivery; these
// names are the only columns a predicate may reference.
const (
	ColMatchID        = "match_id"
	ColSeason         = "season"
	ColVenue          = "venue"
	ColOverNumber     = "over_number"
	ColBallValid      = "ball_valid"
	ColBatterName     = "batter_name"
	ColBowlerName     = "bowler_name"
	ColBattingTeam    = "batting_team"
	ColBowlingTeam    = "bowling_team"
	ColRunsOffBat     = "runs_off_bat"
	ColRunsTotal      = "runs_total"
	ColIsFour         = "is_four"
	ColIsSix          = "is_six"
	ColIsWicket       = "is_wicket"
	ColDismissed      = "player_dismissed"
	ColBowlingType    = "bowling_delivery_type"
	ColBattingHand    = "batting_hand"
	ColWinner         = "winner"
	DeliveriesTable   = "deliveries"
)

// SelectKind discriminates the select-list entries of a query description.
type SelectKind string

const (
	SelectColumn SelectKind = "column"
	SelectMetric SelectKind = "metric"
	// SelectPhase is the derived phase label of a delivery, computed by
	// the executor from the over number.
	SelectPhase SelectKind = "phase"
)

// SelectExpr is one entry of the select list: either a grouping column or a
// symbolic metric the executor renders into its native aggregate expression.
type SelectExpr struct {
	Kind   SelectKind `json:"kind"`
	Column string     `json:"column,omitempty"`
	Metric Metric     `json:"metric,omitempty"`
	Alias  string     `json:"alias"`
}

// HavingPred constrains an aggregate after grouping.
type HavingPred struct {
	Metric Metric `json:"metric"`
	Op     Op     `json:"op"`
	Value  any    `json:"value"`
	// Injected marks a system-default threshold, surfaced in warnings.
	Injected bool `json:"injected"`
}

// OrderTerm orders the result set by a select alias.
type OrderTerm struct {
	Alias string `json:"alias"`
	Desc  bool   `json:"desc"`
}

// TeamMatchup asks for the match-level head-to-head between two teams:
// matches played, wins per side from the match winner, and each side's
// average innings total. The row store renders it as a two-stage query
// that first collapses deliveries into per-match innings totals.
type TeamMatchup struct {
	TeamA string `json:"team_a"`
	TeamB string `json:"team_b"`
}

// QueryDescription is the structured, store-agnostic query the assembler
// emits. The row store renders it into its native query language; all values
// travel as parameters, never as spliced text. When Matchup is set the
// select list is implied by the head-to-head template and Selects is empty.
type QueryDescription struct {
	Table   string       `json:"table"`
	Selects []SelectExpr `json:"selects,omitempty"`
	Matchup *TeamMatchup `json:"matchup,omitempty"`
	Where   []Filter     `json:"where"`
	GroupBy []string     `json:"group_by"`
	Having  []HavingPred `json:"having"`
	OrderBy []OrderTerm  `json:"order_by"`
	Limit   int          `json:"limit"`
}

// Row is one result row keyed by column alias.
type Row map[string]any

// Result is what the row store hands back for one executed description.
type Result struct {
	Columns       []string      `json:"columns"` // aliases in select order
	Rows          []Row         `json:"rows"`
	QueryText     string        `json:"query_text"` // rendered native query, for transparency
	Params        []any         `json:"params"`
	ExecutionTime time.Duration `json:"execution_time"`
}

// Answer is the engine's response contract for one question.
type Answer struct {
	RequestID        string   `json:"request_id"`
	Narrative        string   `json:"narrative"`
	Columns          []string `json:"columns"`
	Rows             []Row    `json:"rows"`
	GeneratedQuery   string   `json:"generated_query_text"`
	Parameters       []any    `json:"parameters"`
	ResolvedEntities []string `json:"resolved_entities"`
	Shape            Shape    `json:"intent_shape"`
	ExecutionTimeMS  float64  `json:"execution_time_ms"`
	Warnings         []string `json:"warnings"`
}
