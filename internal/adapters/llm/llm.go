// Package llm is the optional fallback intent suggester. When the rule
// pipeline cannot classify a question, a generative model may propose
// an intent; the proposal is parsed strictly and re-validated by the
// normal assembly path before anything touches the row store.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deshmukhh/crease/internal/domain/model"
	"github.com/deshmukhh/crease/internal/domain/qerror"
	"google.golang.org/genai"
)

// Suggester proposes an intent for a question the rules gave up on.
type Suggester interface {
	SuggestIntent(ctx context.Context, question string, knownEntities []model.Entity) (*model.Intent, error)
}

// GeminiSuggester implements Suggester over the Gemini API.
type GeminiSuggester struct {
	client *genai.Client
	model  string
}

// New creates a suggester. The API key is required; without one the
// engine simply runs without a fallback.
func New(ctx context.Context, apiKey, modelName string) (*GeminiSuggester, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}
	return &GeminiSuggester{client: client, model: modelName}, nil
}

// wireIntent is the only JSON shape accepted back from the model.
type wireIntent struct {
	Shape    string   `json:"shape"`
	Metrics  []string `json:"metrics"`
	Entities []struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
		Role string `json:"role"`
	} `json:"entities"`
	Limit          int  `json:"limit"`
	BowlingContext bool `json:"bowling_context"`
}

// SuggestIntent asks the model for a structured intent and parses the
// reply strictly. Free text, SQL, or unknown enum values are rejected.
func (g *GeminiSuggester) SuggestIntent(ctx context.Context, question string, knownEntities []model.Entity) (*model.Intent, error) {
	prompt := buildPrompt(question, knownEntities)
	content := genai.NewContentFromText(prompt, genai.RoleUser)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, []*genai.Content{content}, nil)
	if err != nil {
		return nil, fmt.Errorf("generating intent suggestion: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in suggestion response")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			text.WriteString(part.Text)
		}
	}

	return ParseIntent([]byte(extractJSON(text.String())))
}

// buildPrompt pins the closed vocabulary so the model can only fill in
// blanks, never invent query text.
func buildPrompt(question string, known []model.Entity) string {
	var b strings.Builder
	b.WriteString("Classify this cricket statistics question into JSON.\n")
	b.WriteString("Allowed shapes: single_entity, matchup, leaderboard, phase_breakdown, comparison.\n")
	b.WriteString("Allowed metrics: strike_rate, batting_average, economy_rate, bowling_average, ")
	b.WriteString("total_runs, total_wickets, fours, sixes, dismissals, dot_balls, balls_faced, balls_bowled.\n")
	b.WriteString("Allowed entity kinds: player, team, venue. Allowed roles: subject, opponent, venue.\n")
	b.WriteString(`Reply with only a JSON object like {"shape":"...","metrics":[...],"entities":[{"name":"...","kind":"...","role":"..."}],"limit":0,"bowling_context":false}.` + "\n")
	if len(known) > 0 {
		b.WriteString("Entities already resolved from the question: ")
		names := make([]string, len(known))
		for i, e := range known {
			names[i] = fmt.Sprintf("%s (%s)", e.Name, e.Kind)
		}
		b.WriteString(strings.Join(names, ", "))
		b.WriteString(". Use these canonical names.\n")
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}

// extractJSON trims markdown fences and any prose around the object.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

// ParseIntent validates a suggestion against the closed vocabulary.
func ParseIntent(raw []byte) (*model.Intent, error) {
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.DisallowUnknownFields()

	var w wireIntent
	if err := dec.Decode(&w); err != nil {
		return nil, qerror.Wrap(qerror.CodeUnresolvableIntent, "suggestion is not valid intent JSON", err)
	}

	shape := model.Shape(w.Shape)
	switch shape {
	case model.ShapeSingleEntity, model.ShapeMatchup, model.ShapeLeaderboard,
		model.ShapePhaseBreakdown, model.ShapeComparison:
	default:
		return nil, qerror.Newf(qerror.CodeUnsupportedShape, "suggested shape %q is not supported", w.Shape)
	}

	in := &model.Intent{
		Shape:          shape,
		Limit:          w.Limit,
		BowlingContext: w.BowlingContext,
	}

	for _, m := range w.Metrics {
		metric := model.Metric(m)
		if _, ok := validMetrics[metric]; !ok {
			return nil, qerror.Newf(qerror.CodeUnresolvableIntent, "suggested metric %q is not supported", m)
		}
		in.Metrics = append(in.Metrics, metric)
	}
	if len(in.Metrics) > 0 {
		in.SortKey = in.Metrics[0]
		in.SortDesc = !in.Metrics[0].Ascending()
	}

	for _, e := range w.Entities {
		kind := model.EntityKind(e.Kind)
		role := model.Role(e.Role)
		if kind != model.KindPlayer && kind != model.KindTeam && kind != model.KindVenue {
			return nil, qerror.Newf(qerror.CodeUnresolvableIntent, "suggested entity kind %q is not supported", e.Kind)
		}
		if role != model.RoleSubject && role != model.RoleOpponent && role != model.RoleVenue {
			return nil, qerror.Newf(qerror.CodeUnresolvableIntent, "suggested role %q is not supported", e.Role)
		}
		if strings.TrimSpace(e.Name) == "" {
			return nil, qerror.New(qerror.CodeUnresolvableIntent, "suggested entity has no name")
		}
		in.Entities = append(in.Entities, model.Entity{
			Name: e.Name, Kind: kind, Role: role, Mention: e.Name, Confidence: 0.5,
		})
	}

	return in, nil
}

var validMetrics = map[model.Metric]struct{}{
	model.MetricStrikeRate:     {},
	model.MetricBattingAverage: {},
	model.MetricEconomyRate:    {},
	model.MetricBowlingAverage: {},
	model.MetricTotalRuns:      {},
	model.MetricTotalWickets:   {},
	model.MetricFours:          {},
	model.MetricSixes:          {},
	model.MetricDismissals:     {},
	model.MetricDotBalls:       {},
	model.MetricBallsFaced:     {},
	model.MetricBallsBowled:    {},
}
