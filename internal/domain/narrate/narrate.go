// Package narrate renders one deterministic sentence per answer. No
// templates are learned and no text leaves the closed phrasing here.
package narrate

import (
	"fmt"
	"strings"

	"github.com/deshmukhh/crease/internal/domain/model"
)

// metricLabels is the human reading of each metric alias.
var metricLabels = map[model.Metric]string{
	model.MetricStrikeRate:     "strike rate",
	model.MetricBattingAverage: "batting average",
	model.MetricEconomyRate:    "economy rate",
	model.MetricBowlingAverage: "bowling average",
	model.MetricTotalRuns:      "runs",
	model.MetricTotalWickets:   "wickets",
	model.MetricFours:          "fours",
	model.MetricSixes:          "sixes",
	model.MetricDismissals:     "dismissals",
	model.MetricDotBalls:       "dot balls",
	model.MetricBallsFaced:     "balls faced",
	model.MetricBallsBowled:    "balls bowled",
}

// Render writes the narrative for one answered question. Warnings are
// folded into the text so a caller reading only the sentence still
// learns what was decided for them.
func Render(in *model.Intent, res *model.Result, warnings []string) string {
	var b strings.Builder

	if len(res.Rows) == 0 {
		b.WriteString("No deliveries match this question")
		if subj := firstSubject(in); subj != "" {
			fmt.Fprintf(&b, " for %s", subj)
		}
		b.WriteString(".")
	} else {
		switch in.Shape {
		case model.ShapeSingleEntity:
			b.WriteString(singleEntity(in, res))
		case model.ShapeMatchup:
			b.WriteString(matchup(in, res))
		case model.ShapeLeaderboard:
			b.WriteString(leaderboard(in, res))
		case model.ShapePhaseBreakdown:
			b.WriteString(phaseBreakdown(in, res))
		case model.ShapeComparison:
			b.WriteString(comparison(in, res))
		default:
			b.WriteString(fmt.Sprintf("%d rows returned.", len(res.Rows)))
		}
	}

	for _, w := range warnings {
		b.WriteString(" Note: ")
		b.WriteString(w)
		b.WriteString(".")
	}
	return b.String()
}

func singleEntity(in *model.Intent, res *model.Result) string {
	row := res.Rows[0]
	name := firstSubject(in)
	primary := primaryMetric(in)

	value, ok := row[string(primary)]
	if !ok || value == nil {
		if primary == model.MetricBattingAverage || primary == model.MetricBowlingAverage {
			return fmt.Sprintf("%s was never dismissed in this span, so the %s is undefined.",
				name, label(primary))
		}
		return fmt.Sprintf("No %s recorded for %s in this span.", label(primary), name)
	}

	s := fmt.Sprintf("%s has a %s of %s", name, label(primary), formatValue(value))
	if extra := supportClause(row, primary); extra != "" {
		s += " (" + extra + ")"
	}
	return s + "."
}

func matchup(in *model.Intent, res *model.Result) string {
	subject := firstSubject(in)
	opponent := firstOpponent(in)
	primary := primaryMetric(in)

	if len(res.Rows) > 0 && res.Rows[0]["wins"] != nil {
		// Team head-to-head: one row per side with matches, wins and
		// average innings score.
		parts := make([]string, 0, len(res.Rows))
		for _, row := range res.Rows {
			parts = append(parts, fmt.Sprintf("%s won %s of %s matches, averaging %s per innings",
				str(row["team"]), formatValue(row["wins"]), formatValue(row["matches"]),
				formatValue(row["average_score"])))
		}
		return fmt.Sprintf("%s vs %s. %s.", subject, opponent, strings.Join(parts, "; "))
	}

	row := res.Rows[0]
	value := row[string(primary)]
	if value == nil {
		return fmt.Sprintf("%s vs %s: the %s is undefined in this span.", subject, opponent, label(primary))
	}
	s := fmt.Sprintf("%s vs %s: %s %s", subject, opponent, label(primary), formatValue(value))
	if extra := supportClause(row, primary); extra != "" {
		s += " (" + extra + ")"
	}
	return s + "."
}

func leaderboard(in *model.Intent, res *model.Result) string {
	primary := primaryMetric(in)
	direction := "Top"
	if !in.SortDesc && primary.Ascending() {
		direction = "Best"
	}

	shown := len(res.Rows)
	if shown > 3 {
		shown = 3
	}
	parts := make([]string, 0, shown)
	for i := 0; i < shown; i++ {
		row := res.Rows[i]
		parts = append(parts, fmt.Sprintf("%d. %s (%s)",
			i+1, str(row["player"]), formatValue(row[string(primary)])))
	}

	s := fmt.Sprintf("%s %d by %s: %s.", direction, len(res.Rows), label(primary), strings.Join(parts, ", "))
	return s
}

func phaseBreakdown(in *model.Intent, res *model.Result) string {
	primary := primaryMetric(in)
	parts := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		parts = append(parts, fmt.Sprintf("%s %s", str(row["phase"]), formatValue(row[string(primary)])))
	}
	subject := firstSubject(in)
	if subject == "" {
		subject = "All batters"
	}
	return fmt.Sprintf("%s by phase, %s: %s.", subject, label(primary), strings.Join(parts, "; "))
}

func comparison(in *model.Intent, res *model.Result) string {
	primary := primaryMetric(in)
	if len(res.Rows) < 2 {
		row := res.Rows[0]
		return fmt.Sprintf("Only %s qualifies here, with a %s of %s.",
			nameOf(row), label(primary), formatValue(row[string(primary)]))
	}

	lead, next := res.Rows[0], res.Rows[1]
	return fmt.Sprintf("%s leads %s on %s: %s to %s.",
		nameOf(lead), nameOf(next), label(primary),
		formatValue(lead[string(primary)]), formatValue(next[string(primary)]))
}

// supportClause renders the sample behind a rate metric, e.g.
// "4008 runs off 3048 balls".
func supportClause(row model.Row, primary model.Metric) string {
	switch primary {
	case model.MetricStrikeRate:
		if r, b := row["total_runs"], row["balls_faced"]; r != nil && b != nil {
			return fmt.Sprintf("%s runs off %s balls", formatValue(r), formatValue(b))
		}
	case model.MetricBattingAverage:
		if r, d := row["total_runs"], row["dismissals"]; r != nil && d != nil {
			return fmt.Sprintf("%s runs, dismissed %s times", formatValue(r), formatValue(d))
		}
	case model.MetricEconomyRate:
		if b := row["balls_bowled"]; b != nil {
			return fmt.Sprintf("across %s balls", formatValue(b))
		}
	case model.MetricBowlingAverage:
		if w := row["total_wickets"]; w != nil {
			return fmt.Sprintf("%s wickets", formatValue(w))
		}
	}
	return ""
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

func label(m model.Metric) string {
	if l, ok := metricLabels[m]; ok {
		return l
	}
	return string(m)
}

func firstSubject(in *model.Intent) string {
	for _, e := range in.Entities {
		if e.Role == model.RoleSubject {
			return e.Name
		}
	}
	return ""
}

func firstOpponent(in *model.Intent) string {
	for _, e := range in.Entities {
		if e.Role == model.RoleOpponent {
			return e.Name
		}
	}
	return ""
}

// nameOf finds the grouping value of a row, whichever alias it uses.
func nameOf(row model.Row) string {
	for _, alias := range []string{"player", "team", "subject", "batting_team"} {
		if v, ok := row[alias]; ok {
			return str(v)
		}
	}
	return "unknown"
}

func str(v any) string {
	if v == nil {
		return "unknown"
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// formatValue prints counts as integers and rates with two decimals.
func formatValue(v any) string {
	switch n := v.(type) {
	case nil:
		return "undefined"
	case float64:
		if n == float64(int64(n)) {
			return fmt.Sprintf("%d", int64(n))
		}
		return fmt.Sprintf("%.2f", n)
	case float32:
		return formatValue(float64(n))
	case int64:
		return fmt.Sprintf("%d", n)
	case int:
		return fmt.Sprintf("%d", n)
	default:
		return fmt.Sprintf("%v", v)
	}
}
