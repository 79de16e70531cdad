// Package filters extracts the numeric constraints of a question:
// qualification thresholds, over ranges, season restrictions and
// result-count limits.
package filters

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/deshmukhh/crease/internal/domain/model"
	"github.com/deshmukhh/crease/internal/domain/qerror"
)

// ThresholdClause is an explicit qualification bar like "min 500 runs".
// The unit is resolved to a metric later, once the batting or bowling
// context of the question is known.
type ThresholdClause struct {
	Unit   string // runs, balls, wickets, innings
	Value  int
	Source string
}

// Extraction is everything the numeric pass pulled out of one question.
type Extraction struct {
	Filters   []model.Filter
	Threshold *ThresholdClause
	Limit     int // 0 when the question states no count
}

var (
	topRe          = regexp.MustCompile(`\btop\s+(\d+)\b`)
	thresholdRe    = regexp.MustCompile(`\b(?:min|minimum|at\s+least)\s+(\d+)\s+(runs|balls|deliveries|wickets|innings)\b`)
	overRangeRe    = regexp.MustCompile(`\bovers?\s+(\d+)\s*(?:to|through|-)\s*(\d+)\b`)
	seasonSpanRe   = regexp.MustCompile(`\b(?:from|between)\s+(20\d{2})(?:[/-]\d{2})?\s*(?:to|and|-)\s*(20\d{2})(?:[/-]\d{2})?\b`)
	seasonSinceRe  = regexp.MustCompile(`\bsince\s+(20\d{2})(?:[/-]\d{2})?\b`)
	seasonBeforeRe = regexp.MustCompile(`\bbefore\s+(20\d{2})(?:[/-]\d{2})?\b`)
	seasonYearRe   = regexp.MustCompile(`\b(20\d{2})(?:[/-]\d{2})?\b`)
)

// Extract runs the numeric patterns over the question. Patterns consume
// their text, so the bare-year pass never re-reads a season range.
func Extract(question string) (*Extraction, error) {
	text := strings.ToLower(question)
	ex := &Extraction{}

	text = extractLimit(text, ex)
	text = extractThreshold(text, ex)

	var err error
	if text, err = extractOverRange(text, ex); err != nil {
		return nil, err
	}
	if err := extractSeasons(text, ex); err != nil {
		return nil, err
	}

	return ex, nil
}

func extractLimit(text string, ex *Extraction) string {
	m := topRe.FindStringSubmatch(text)
	if m == nil {
		return text
	}
	ex.Limit, _ = strconv.Atoi(m[1])
	return topRe.ReplaceAllString(text, " ")
}

func extractThreshold(text string, ex *Extraction) string {
	m := thresholdRe.FindStringSubmatch(text)
	if m == nil {
		return text
	}
	value, _ := strconv.Atoi(m[1])
	unit := m[2]
	if unit == "deliveries" {
		unit = "balls"
	}
	ex.Threshold = &ThresholdClause{
		Unit:   unit,
		Value:  value,
		Source: strings.Join(strings.Fields(m[0]), " "),
	}
	return thresholdRe.ReplaceAllString(text, " ")
}

func extractOverRange(text string, ex *Extraction) (string, error) {
	m := overRangeRe.FindStringSubmatch(text)
	if m == nil {
		return text, nil
	}
	from, _ := strconv.Atoi(m[1])
	to, _ := strconv.Atoi(m[2])
	if from > to {
		return "", qerror.Newf(qerror.CodeConflictingFilter,
			"over range %d to %d runs backwards", from, to)
	}
	ex.Filters = append(ex.Filters, model.Filter{
		Column: model.ColOverNumber,
		Op:     model.OpBetween,
		Value:  from,
		Value2: to,
		Source: strings.Join(strings.Fields(m[0]), " "),
	})
	return overRangeRe.ReplaceAllString(text, " "), nil
}

// extractSeasons resolves season restrictions. "2023/24" style names
// count as their first year. A span, a "since", a "before" and bare
// years may not contradict each other.
func extractSeasons(text string, ex *Extraction) error {
	var seasonFilters []model.Filter

	if m := seasonSpanRe.FindStringSubmatch(text); m != nil {
		from, _ := strconv.Atoi(m[1])
		to, _ := strconv.Atoi(m[2])
		if from > to {
			return qerror.Newf(qerror.CodeConflictingFilter,
				"season range %d to %d runs backwards", from, to)
		}
		seasonFilters = append(seasonFilters, model.Filter{
			Column: model.ColSeason,
			Op:     model.OpBetween,
			Value:  from,
			Value2: to,
			Source: strings.Join(strings.Fields(m[0]), " "),
		})
		text = seasonSpanRe.ReplaceAllString(text, " ")
	}

	if m := seasonSinceRe.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		seasonFilters = append(seasonFilters, model.Filter{
			Column: model.ColSeason,
			Op:     model.OpGte,
			Value:  year,
			Source: strings.Join(strings.Fields(m[0]), " "),
		})
		text = seasonSinceRe.ReplaceAllString(text, " ")
	}

	if m := seasonBeforeRe.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		seasonFilters = append(seasonFilters, model.Filter{
			Column: model.ColSeason,
			Op:     model.OpLt,
			Value:  year,
			Source: strings.Join(strings.Fields(m[0]), " "),
		})
		text = seasonBeforeRe.ReplaceAllString(text, " ")
	}

	years := seasonYearRe.FindAllStringSubmatch(text, -1)
	switch {
	case len(years) == 1:
		year, _ := strconv.Atoi(years[0][1])
		seasonFilters = append(seasonFilters, model.Filter{
			Column: model.ColSeason,
			Op:     model.OpEq,
			Value:  year,
			Source: years[0][0],
		})
	case len(years) > 1:
		values := make([]any, 0, len(years))
		sources := make([]string, 0, len(years))
		for _, m := range years {
			year, _ := strconv.Atoi(m[1])
			values = append(values, year)
			sources = append(sources, m[0])
		}
		seasonFilters = append(seasonFilters, model.Filter{
			Column: model.ColSeason,
			Op:     model.OpIn,
			Values: values,
			Source: strings.Join(sources, ", "),
		})
	}

	if len(seasonFilters) > 1 {
		return qerror.Newf(qerror.CodeConflictingFilter,
			"%q and %q restrict the season differently",
			seasonFilters[0].Source, seasonFilters[1].Source)
	}
	ex.Filters = append(ex.Filters, seasonFilters...)
	return nil
}
