package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/deshmukhh/crease/internal/adapters/rowstore"
)

// ErrMissingColumn is returned when the CSV header lacks a required column.
var ErrMissingColumn = errors.New("missing required column")

// requiredColumns must all be present in the header.
var requiredColumns = []string{
	"match_id", "season", "venue", "ball",
	"batting_team", "bowling_team", "striker", "bowler",
	"runs_off_bat", "extras",
}

// header maps column names to their index in a CSV record.
type header map[string]int

func parseHeader(record []string) (header, error) {
	h := make(header, len(record))
	for i, name := range record {
		h[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := h[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}
	return h, nil
}

// field returns the named column of record, or "" when the column is
// absent. Optional columns go through this path.
func (h header) field(record []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (h header) intField(record []string, name string) int {
	n, _ := strconv.Atoi(h.field(record, name))
	return n
}

// parseSeason accepts plain years and split-season forms like "2020/21",
// keeping the first year.
func parseSeason(s string) (int, error) {
	if i := strings.IndexAny(s, "/-"); i > 0 {
		s = s[:i]
	}
	year, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("bad season %q: %w", s, err)
	}
	return year, nil
}

// normalizeBowlingStyle collapses recorded bowling styles into the
// pace/spin domain the query vocabulary filters on. Styles that name
// neither family stay empty rather than guessing.
func normalizeBowlingStyle(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	for _, w := range []string{"legbreak", "offbreak", "orthodox", "chinaman", "googly", "wrist", "spin"} {
		if strings.Contains(s, w) {
			return "spin"
		}
	}
	for _, w := range []string{"fast", "medium", "seam", "pace"} {
		if strings.Contains(s, w) {
			return "pace"
		}
	}
	return ""
}

// normalizeBattingHand maps recorded hand descriptions onto LHB/RHB.
func normalizeBattingHand(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case s == "":
		return ""
	case s == "lhb" || strings.Contains(s, "left"):
		return "LHB"
	case s == "rhb" || strings.Contains(s, "right"):
		return "RHB"
	default:
		return ""
	}
}

// parseRecord converts one CSV row into a delivery. The ball column is
// the cricsheet "over.ball" decimal with overs counted from zero.
func parseRecord(h header, record []string) (rowstore.Delivery, error) {
	season, err := parseSeason(h.field(record, "season"))
	if err != nil {
		return rowstore.Delivery{}, err
	}

	ball := h.field(record, "ball")
	overPart, _, _ := strings.Cut(ball, ".")
	over, err := strconv.Atoi(overPart)
	if err != nil {
		return rowstore.Delivery{}, fmt.Errorf("bad ball %q: %w", ball, err)
	}

	runsOffBat := h.intField(record, "runs_off_bat")
	extras := h.intField(record, "extras")
	wides := h.intField(record, "wides")
	noballs := h.intField(record, "noballs")

	wicketType := h.field(record, "wicket_type")
	isWicket := wicketType != "" && wicketType != "retired hurt"

	return rowstore.Delivery{
		MatchID:     h.field(record, "match_id"),
		Season:      season,
		Venue:       h.field(record, "venue"),
		Over:        over + 1,
		Valid:       wides == 0 && noballs == 0,
		Batter:      h.field(record, "striker"),
		Bowler:      h.field(record, "bowler"),
		BattingTeam: h.field(record, "batting_team"),
		BowlingTeam: h.field(record, "bowling_team"),
		RunsOffBat:  runsOffBat,
		RunsTotal:   runsOffBat + extras,
		IsFour:      runsOffBat == 4,
		IsSix:       runsOffBat == 6,
		IsWicket:    isWicket,
		Dismissed:   h.field(record, "player_dismissed"),
		BowlingType: normalizeBowlingStyle(h.field(record, "bowling_style")),
		BattingHand: normalizeBattingHand(h.field(record, "batting_hand")),
		Winner:      h.field(record, "winner"),
	}, nil
}

// parseCSV streams deliveries from r, skipping malformed rows and
// counting them in stats.
func parseCSV(r io.Reader, stats *Stats) ([]rowstore.Delivery, error) {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	first, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	h, err := parseHeader(first)
	if err != nil {
		return nil, err
	}

	var out []rowstore.Delivery
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading record: %w", err)
		}
		stats.RowsRead++

		d, err := parseRecord(h, record)
		if err != nil {
			stats.RowsSkipped++
			continue
		}
		out = append(out, d)
	}
	return out, nil
}
