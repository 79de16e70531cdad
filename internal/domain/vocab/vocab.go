// Package vocab interprets the cricket vocabulary of a question: metric
// phrases, phase names, bowling styles and batting hands.
package vocab

import (
	"strings"

	"github.com/deshmukhh/crease/internal/domain/model"
	"github.com/deshmukhh/crease/internal/domain/qerror"
)

// Phase names and their over windows. Overs are 1-based and the bounds
// are inclusive.
const (
	PhasePowerplay = "Powerplay"
	PhaseMiddle    = "Middle"
	PhaseDeath     = "Death"
)

// PhaseWindow is the inclusive over range of one phase.
type PhaseWindow struct {
	Name string
	From int
	To   int
}

// Windows lists the three phases in innings order.
func Windows() []PhaseWindow {
	return []PhaseWindow{
		{Name: PhasePowerplay, From: 1, To: 6},
		{Name: PhaseMiddle, From: 7, To: 15},
		{Name: PhaseDeath, From: 16, To: 20},
	}
}

// Analysis is what the vocabulary pass extracted from one question.
type Analysis struct {
	Metrics        []model.Metric
	Filters        []model.Filter
	BowlingContext bool
	PhaseBreakdown bool
	Comparison     bool
	Superlative    bool
	Worst          bool
}

// metricPhrases maps question phrases to metrics. Longer phrases are
// matched first so "strike rate" never decays into a bare "rate".
var metricPhrases = []struct {
	phrase string
	metric model.Metric
}{
	{"strike rate", model.MetricStrikeRate},
	{"economy rate", model.MetricEconomyRate},
	{"economy", model.MetricEconomyRate},
	{"dot balls", model.MetricDotBalls},
	{"dot ball percentage", model.MetricDotBalls},
	{"balls faced", model.MetricBallsFaced},
	{"balls bowled", model.MetricBallsBowled},
	{"dismissals", model.MetricDismissals},
	{"dismissed", model.MetricDismissals},
	{"wickets", model.MetricTotalWickets},
	{"wicket", model.MetricTotalWickets},
	{"sixes", model.MetricSixes},
	{"fours", model.MetricFours},
	{"boundaries", model.MetricFours},
	{"runs", model.MetricTotalRuns},
}

// bowlingContextPhrases flip ambiguous words like "average" to their
// bowling reading.
var bowlingContextPhrases = []string{
	"bowling", "bowler", "bowlers", "economy", "wickets", "wicket",
	"conceded", "bowled",
}

// styleQualifiedPhrases are phrasings where "bowling"/"bowlers" names
// the attack being faced, not the side the question is about. "Kohli
// vs spin bowling" keeps its batting reading.
var styleQualifiedPhrases = []string{
	"spin bowling", "pace bowling", "fast bowling", "seam bowling",
	"spin bowlers", "pace bowlers", "fast bowlers", "seam bowlers",
	"spin bowler", "pace bowler", "fast bowler", "seam bowler",
}

var comparisonPhrases = []string{"compare", "compared", "better", "head to head", "head-to-head"}

var superlativePhrases = []string{"top", "most", "best", "highest", "worst", "lowest", "least", "leading"}

var worstPhrases = []string{"worst", "lowest", "least"}

var breakdownPhrases = []string{
	"by phase", "across phases", "phase breakdown", "phase-wise",
	"phase wise", "each phase", "per phase", "across the phases",
	"in each phase",
}

// Analyze scans the question for cricket vocabulary. It fails only when
// the question asks for mutually exclusive things at once.
func Analyze(question string) (*Analysis, error) {
	text := normalize(question)
	a := &Analysis{}

	contextText := text
	for _, p := range styleQualifiedPhrases {
		contextText = strings.ReplaceAll(contextText, p, " ")
	}
	for _, p := range bowlingContextPhrases {
		if containsWord(contextText, p) {
			a.BowlingContext = true
			break
		}
	}
	for _, p := range comparisonPhrases {
		if strings.Contains(text, p) {
			a.Comparison = true
			break
		}
	}
	for _, p := range superlativePhrases {
		if containsWord(text, p) {
			a.Superlative = true
			break
		}
	}
	for _, p := range worstPhrases {
		if containsWord(text, p) {
			a.Worst = true
			break
		}
	}
	for _, p := range breakdownPhrases {
		if strings.Contains(text, p) {
			a.PhaseBreakdown = true
			break
		}
	}

	a.Metrics = extractMetrics(text, a.BowlingContext)

	phaseFilter, err := extractPhase(text, a.PhaseBreakdown)
	if err != nil {
		return nil, err
	}
	if phaseFilter != nil {
		a.Filters = append(a.Filters, *phaseFilter)
	}

	styleFilter, err := extractBowlingStyle(text)
	if err != nil {
		return nil, err
	}
	if styleFilter != nil {
		a.Filters = append(a.Filters, *styleFilter)
	}

	handFilter, err := extractBattingHand(text)
	if err != nil {
		return nil, err
	}
	if handFilter != nil {
		a.Filters = append(a.Filters, *handFilter)
	}

	return a, nil
}

// extractMetrics collects every metric phrase in the text, resolving
// the ambiguous "average" by bowling context. The batting reading wins
// when nothing signals bowling.
func extractMetrics(text string, bowling bool) []model.Metric {
	consumed := text
	var out []model.Metric

	add := func(m model.Metric) {
		for _, seen := range out {
			if seen == m {
				return
			}
		}
		out = append(out, m)
	}

	for _, mp := range metricPhrases {
		if strings.Contains(consumed, mp.phrase) {
			add(mp.metric)
			// Blank the phrase so "strike rate" does not also match "rate"
			// and "dot balls" does not also match "balls".
			consumed = strings.ReplaceAll(consumed, mp.phrase, " ")
		}
	}

	if containsWord(consumed, "average") || containsWord(consumed, "averages") {
		if bowling {
			add(model.MetricBowlingAverage)
		} else {
			add(model.MetricBattingAverage)
		}
	}

	return out
}

// extractPhase finds the phase the question restricts to. Two different
// phases in one question conflict unless a breakdown across phases was
// asked for, in which case no phase filter applies at all.
func extractPhase(text string, breakdown bool) (*model.Filter, error) {
	type hit struct {
		window PhaseWindow
		phrase string
	}
	var hits []hit

	for _, w := range Windows() {
		for _, phrase := range phasePhrases(w.Name) {
			if strings.Contains(text, phrase) {
				hits = append(hits, hit{window: w, phrase: phrase})
				break
			}
		}
	}

	if breakdown || len(hits) == 0 {
		return nil, nil
	}
	if len(hits) > 1 {
		return nil, qerror.Newf(qerror.CodeConflictingFilter,
			"%q and %q restrict the same overs to different phases", hits[0].phrase, hits[1].phrase)
	}

	w := hits[0].window
	return &model.Filter{
		Column: model.ColOverNumber,
		Op:     model.OpBetween,
		Value:  w.From,
		Value2: w.To,
		Source: hits[0].phrase,
	}, nil
}

func phasePhrases(name string) []string {
	switch name {
	case PhasePowerplay:
		return []string{"powerplay", "power play", "first six overs"}
	case PhaseMiddle:
		return []string{"middle overs", "middle phase"}
	case PhaseDeath:
		return []string{"death overs", "at the death", "death phase", "slog overs"}
	default:
		return nil
	}
}

// extractBowlingStyle finds an "against spin"/"against pace" restriction.
func extractBowlingStyle(text string) (*model.Filter, error) {
	spin := containsWord(text, "spin") || containsWord(text, "spinners") || containsWord(text, "spinner")
	pace := containsWord(text, "pace") || containsWord(text, "pacers") || containsWord(text, "pacer") ||
		containsWord(text, "seam") || strings.Contains(text, "fast bowl")

	switch {
	case spin && pace:
		return nil, qerror.New(qerror.CodeConflictingFilter,
			"spin and pace restrict the delivery type to different values")
	case spin:
		return &model.Filter{
			Column: model.ColBowlingType,
			Op:     model.OpEq,
			Value:  "spin",
			Source: "spin",
		}, nil
	case pace:
		return &model.Filter{
			Column: model.ColBowlingType,
			Op:     model.OpEq,
			Value:  "pace",
			Source: "pace",
		}, nil
	default:
		return nil, nil
	}
}

// extractBattingHand finds a left-hander/right-hander restriction. The
// filter values match the LHB/RHB domain the event log stores.
func extractBattingHand(text string) (*model.Filter, error) {
	left := strings.Contains(text, "left-handed") || strings.Contains(text, "left handed") ||
		strings.Contains(text, "left-hander") || strings.Contains(text, "left hander") ||
		strings.Contains(text, "left-arm") || strings.Contains(text, "left arm") ||
		containsWord(text, "lhb")
	right := strings.Contains(text, "right-handed") || strings.Contains(text, "right handed") ||
		strings.Contains(text, "right-hander") || strings.Contains(text, "right hander") ||
		strings.Contains(text, "right-arm") || strings.Contains(text, "right arm") ||
		containsWord(text, "rhb")

	switch {
	case left && right:
		return nil, qerror.New(qerror.CodeConflictingFilter,
			"left-handed and right-handed restrict the batting hand to different values")
	case left:
		return &model.Filter{
			Column: model.ColBattingHand,
			Op:     model.OpEq,
			Value:  "LHB",
			Source: "left-handed",
		}, nil
	case right:
		return &model.Filter{
			Column: model.ColBattingHand,
			Op:     model.OpEq,
			Value:  "RHB",
			Source: "right-handed",
		}, nil
	default:
		return nil, nil
	}
}

func normalize(question string) string {
	return strings.ToLower(strings.TrimSpace(question))
}

// containsWord reports whether text contains the word with boundaries,
// so "pace" does not fire inside "space".
func containsWord(text, word string) bool {
	idx := 0
	for {
		j := strings.Index(text[idx:], word)
		if j < 0 {
			return false
		}
		start := idx + j
		end := start + len(word)
		beforeOK := start == 0 || !isWordChar(text[start-1])
		afterOK := end == len(text) || !isWordChar(text[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9'
}
