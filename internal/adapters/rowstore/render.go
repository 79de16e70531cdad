// Package rowstore executes query descriptions against the SQLite copy
// of the ball-by-ball event log.
package rowstore

import (
	"fmt"
	"strings"

	"github.com/deshmukhh/crease/internal/domain/model"
)

// allowedColumns is the only vocabulary a rendered query may reference.
// Anything else never reaches the database.
var allowedColumns = map[string]bool{
	model.ColMatchID:     true,
	model.ColSeason:      true,
	model.ColVenue:       true,
	model.ColOverNumber:  true,
	model.ColBallValid:   true,
	model.ColBatterName:  true,
	model.ColBowlerName:  true,
	model.ColBattingTeam: true,
	model.ColBowlingTeam: true,
	model.ColRunsOffBat:  true,
	model.ColRunsTotal:   true,
	model.ColIsFour:      true,
	model.ColIsSix:       true,
	model.ColIsWicket:    true,
	model.ColDismissed:   true,
	model.ColBowlingType: true,
	model.ColBattingHand: true,
	model.ColWinner:      true,
}

// phaseExpr derives the phase label from the over number.
const phaseExpr = "CASE WHEN over_number BETWEEN 1 AND 6 THEN 'Powerplay' " +
	"WHEN over_number BETWEEN 7 AND 15 THEN 'Middle' ELSE 'Death' END"

// metricExprs holds the aggregate formula of every metric. Averages
// divide by NULLIF so an empty denominator yields NULL, never a panic
// or an infinity.
var metricExprs = map[model.Metric]string{
	model.MetricStrikeRate: "100.0 * SUM(runs_off_bat) / NULLIF(SUM(ball_valid), 0)",
	model.MetricBattingAverage: "CAST(SUM(runs_off_bat) AS REAL) / " +
		"NULLIF(SUM(CASE WHEN player_dismissed = batter_name THEN 1 ELSE 0 END), 0)",
	model.MetricEconomyRate:    "6.0 * SUM(runs_total) / NULLIF(SUM(ball_valid), 0)",
	model.MetricBowlingAverage: "CAST(SUM(runs_total) AS REAL) / NULLIF(SUM(is_wicket), 0)",
	model.MetricTotalRuns:      "SUM(runs_off_bat)",
	model.MetricTotalWickets:   "SUM(is_wicket)",
	model.MetricFours:          "SUM(is_four)",
	model.MetricSixes:          "SUM(is_six)",
	model.MetricDismissals:     "SUM(CASE WHEN player_dismissed = batter_name THEN 1 ELSE 0 END)",
	model.MetricDotBalls:       "SUM(CASE WHEN runs_total = 0 AND ball_valid = 1 THEN 1 ELSE 0 END)",
	model.MetricBallsFaced:     "SUM(ball_valid)",
	model.MetricBallsBowled:    "SUM(ball_valid)",
}

// render turns a query description into one parameterized SQL statement.
// Every value travels through the params slice; the SQL text contains
// only schema vocabulary and placeholders.
func render(qd *model.QueryDescription) (string, []any, error) {
	if qd.Matchup != nil {
		return renderTeamMatchup(qd)
	}

	var (
		b      strings.Builder
		params []any
	)

	selects, aliasSet, err := renderSelects(qd.Selects)
	if err != nil {
		return "", nil, err
	}
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(selects, ", "))
	b.WriteString(" FROM ")
	b.WriteString(model.DeliveriesTable)

	if len(qd.Where) > 0 {
		preds, whereParams, err := renderPredicates(qd.Where)
		if err != nil {
			return "", nil, err
		}
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(preds, " AND "))
		params = append(params, whereParams...)
	}

	if len(qd.GroupBy) > 0 {
		groups := make([]string, len(qd.GroupBy))
		for i, g := range qd.GroupBy {
			switch {
			case g == "phase":
				groups[i] = phaseExpr
			case allowedColumns[g]:
				groups[i] = g
			default:
				return "", nil, fmt.Errorf("%w: %s", ErrUnknownColumn, g)
			}
		}
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(groups, ", "))
	}

	if len(qd.Having) > 0 {
		havings := make([]string, len(qd.Having))
		for i, h := range qd.Having {
			expr, ok := metricExprs[h.Metric]
			if !ok {
				return "", nil, fmt.Errorf("%w: %s", ErrUnknownMetric, h.Metric)
			}
			op, err := renderOp(h.Op)
			if err != nil {
				return "", nil, err
			}
			havings[i] = fmt.Sprintf("%s %s ?", expr, op)
			params = append(params, h.Value)
		}
		b.WriteString(" HAVING ")
		b.WriteString(strings.Join(havings, " AND "))
	}

	if len(qd.OrderBy) > 0 {
		orders := make([]string, len(qd.OrderBy))
		for i, o := range qd.OrderBy {
			if o.Alias == "phase" {
				// Phases read in innings order, not alphabetically.
				orders[i] = "MIN(over_number)"
				continue
			}
			if !aliasSet[o.Alias] {
				return "", nil, fmt.Errorf("%w: order alias %s", ErrUnknownColumn, o.Alias)
			}
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			orders[i] = fmt.Sprintf("%s %s NULLS LAST", quoteAlias(o.Alias), dir)
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(orders, ", "))
	}

	if qd.Limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, qd.Limit)
	}

	return b.String(), params, nil
}

// renderTeamMatchup builds the two-stage head-to-head query: deliveries
// collapse into per-match innings totals first, then each side's matches,
// wins and average score come off that. Extra predicates narrow which
// deliveries feed the first stage.
func renderTeamMatchup(qd *model.QueryDescription) (string, []any, error) {
	m := qd.Matchup
	var (
		b      strings.Builder
		params []any
	)

	b.WriteString("WITH match_totals AS (")
	b.WriteString("SELECT match_id, batting_team, SUM(runs_total) AS innings_runs, ")
	b.WriteString("MAX(winner) AS match_winner FROM ")
	b.WriteString(model.DeliveriesTable)
	b.WriteString(" WHERE batting_team IN (?, ?) AND bowling_team IN (?, ?)")
	params = append(params, m.TeamA, m.TeamB, m.TeamA, m.TeamB)

	if len(qd.Where) > 0 {
		preds, whereParams, err := renderPredicates(qd.Where)
		if err != nil {
			return "", nil, err
		}
		b.WriteString(" AND ")
		b.WriteString(strings.Join(preds, " AND "))
		params = append(params, whereParams...)
	}

	b.WriteString(" GROUP BY match_id, batting_team) ")
	b.WriteString(`SELECT batting_team AS "team", `)
	b.WriteString(`COUNT(DISTINCT match_id) AS "matches", `)
	b.WriteString(`SUM(CASE WHEN match_winner = batting_team THEN 1 ELSE 0 END) AS "wins", `)
	b.WriteString(`AVG(innings_runs) AS "average_score" `)
	b.WriteString("FROM match_totals GROUP BY batting_team ")
	b.WriteString(`ORDER BY "wins" DESC, "team" ASC`)

	if qd.Limit > 0 {
		b.WriteString(" LIMIT ?")
		params = append(params, qd.Limit)
	}

	return b.String(), params, nil
}

func renderSelects(selects []model.SelectExpr) ([]string, map[string]bool, error) {
	out := make([]string, len(selects))
	aliasSet := make(map[string]bool, len(selects))
	for i, s := range selects {
		switch s.Kind {
		case model.SelectColumn:
			if !allowedColumns[s.Column] {
				return nil, nil, fmt.Errorf("%w: %s", ErrUnknownColumn, s.Column)
			}
			out[i] = fmt.Sprintf("%s AS %s", s.Column, quoteAlias(s.Alias))
		case model.SelectMetric:
			expr, ok := metricExprs[s.Metric]
			if !ok {
				return nil, nil, fmt.Errorf("%w: %s", ErrUnknownMetric, s.Metric)
			}
			out[i] = fmt.Sprintf("%s AS %s", expr, quoteAlias(s.Alias))
		case model.SelectPhase:
			out[i] = fmt.Sprintf("%s AS %s", phaseExpr, quoteAlias(s.Alias))
		default:
			return nil, nil, fmt.Errorf("%w: select kind %s", ErrUnknownColumn, s.Kind)
		}
		aliasSet[s.Alias] = true
	}
	return out, aliasSet, nil
}

func renderPredicates(filters []model.Filter) ([]string, []any, error) {
	preds := make([]string, len(filters))
	var params []any
	for i, f := range filters {
		if !allowedColumns[f.Column] {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnknownColumn, f.Column)
		}
		switch f.Op {
		case model.OpBetween:
			preds[i] = fmt.Sprintf("%s BETWEEN ? AND ?", f.Column)
			params = append(params, f.Value, f.Value2)
		case model.OpIn:
			if len(f.Values) == 0 {
				return nil, nil, fmt.Errorf("%w: empty IN list for %s", ErrBadOperator, f.Column)
			}
			placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(f.Values)), ", ")
			preds[i] = fmt.Sprintf("%s IN (%s)", f.Column, placeholders)
			params = append(params, f.Values...)
		default:
			op, err := renderOp(f.Op)
			if err != nil {
				return nil, nil, err
			}
			preds[i] = fmt.Sprintf("%s %s ?", f.Column, op)
			params = append(params, f.Value)
		}
	}
	return preds, params, nil
}

func renderOp(op model.Op) (string, error) {
	switch op {
	case model.OpEq, model.OpNeq, model.OpGte, model.OpLte, model.OpGt, model.OpLt:
		return string(op), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrBadOperator, op)
	}
}

// quoteAlias keeps aliases inert even though they are engine-generated.
func quoteAlias(alias string) string {
	return `"` + strings.ReplaceAll(alias, `"`, ``) + `"`
}
