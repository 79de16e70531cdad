package entity

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"github.com/deshmukhh/crease/internal/domain/model"
	"github.com/deshmukhh/crease/internal/domain/qerror"
	"github.com/deshmukhh/crease/pkg/metrics"
)

const (
	// defaultSimilarityFloor is the minimum normalized similarity a fuzzy
	// match must reach before it is trusted.
	defaultSimilarityFloor = 0.75

	// maxMentionTokens bounds how many consecutive words one mention may
	// span ("royal challengers bangalore" is three).
	maxMentionTokens = 4
)

// Resolution is the outcome of one resolver pass: the entities it could
// anchor to the registry plus the proper nouns it could not. An unknown
// mention is not an error here; whether the pipeline can proceed without
// it depends on the shape the classifier infers.
type Resolution struct {
	Entities []model.Entity
	Unknown  []string
}

// Resolver maps free-text mentions in a question to canonical entities.
type Resolver interface {
	// Resolve extracts every entity mention it can from the question.
	// An empty result is not an error; leaderboard questions name no one.
	Resolve(ctx context.Context, question string) (*Resolution, error)
}

type registryResolver struct {
	reg   *Registry
	floor float64
}

// NewResolver creates a resolver backed by the given registry.
func NewResolver(reg *Registry, opts ...ResolverOption) Resolver {
	r := &registryResolver{
		reg:   reg,
		floor: defaultSimilarityFloor,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// token is one word of the question with its original casing kept for
// proper-noun detection and mention reporting.
type token struct {
	lower    string
	orig     string
	consumed bool
}

// Resolve runs three passes over the question: exact variation lookup
// (longest mention first), a fuzzy pass for the leftovers, and finally
// a check for proper nouns that matched nothing.
func (r *registryResolver) Resolve(ctx context.Context, question string) (*Resolution, error) {
	tokens := tokenize(question)
	res := &Resolution{}

	// Exact pass, longest window first so "rohit sharma" wins over the
	// ambiguous bare "sharma".
	for n := maxMentionTokens; n >= 1; n-- {
		for i := 0; i+n <= len(tokens); i++ {
			if anyConsumed(tokens[i : i+n]) {
				continue
			}
			key := joinLower(tokens[i : i+n])
			kind, targets := r.lookupAllKinds(key, kindOrder(tokens, i))
			if len(targets) == 0 {
				continue
			}
			if len(targets) > 1 {
				metrics.RecordResolverOutcome("ambiguous")
				sort.Strings(targets)
				return nil, qerror.Newf(qerror.CodeAmbiguousEntity,
					"%q could refer to more than one %s", mention(tokens[i:i+n]), kind).
					WithCandidates(targets...)
			}

			consume(tokens[i : i+n])
			res.Entities = append(res.Entities, model.Entity{
				Name:       targets[0],
				Kind:       kind,
				Role:       roleFor(kind, tokens, i),
				Mention:    mention(tokens[i : i+n]),
				Confidence: 1.0,
			})
			metrics.RecordResolverOutcome("exact")
		}
	}

	// Fuzzy pass over what is left. Only windows of plausible name words
	// are tried, so "strike rate" never gets force-matched to a player.
	for n := 2; n >= 1; n-- {
		for i := 0; i+n <= len(tokens); i++ {
			window := tokens[i : i+n]
			if anyConsumed(window) || !nameLike(window) {
				continue
			}
			ent, ok, err := r.fuzzyMatch(window, kindOrder(tokens, i))
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			consume(window)
			ent.Role = roleFor(ent.Kind, tokens, i)
			res.Entities = append(res.Entities, ent)
			metrics.RecordResolverOutcome("fuzzy")
		}
	}

	// A capitalized word mid-sentence that survived both passes is a
	// name the event log has never seen. Record it and move on; the
	// classifier decides whether the question works without it.
	for i, t := range tokens {
		if t.consumed || i == 0 || !looksProperNoun(t) {
			continue
		}
		metrics.RecordResolverOutcome("unknown")
		res.Unknown = append(res.Unknown, t.orig)
	}

	sortByMentionOrder(res.Entities, tokens)
	return res, nil
}

// lookupAllKinds tries the variation key against each kind in order and
// returns the first kind that has any targets.
func (r *registryResolver) lookupAllKinds(key string, order []model.EntityKind) (model.EntityKind, []string) {
	for _, kind := range order {
		if targets := r.reg.Lookup(kind, key); len(targets) > 0 {
			out := make([]string, len(targets))
			copy(out, targets)
			return kind, out
		}
	}
	return "", nil
}

// Tie windows for the fuzzy pass. Scores within simTieEpsilon are the
// same score; scores within simContestWindow of the best are close
// enough to contest it.
const (
	simTieEpsilon    = 1e-9
	simContestWindow = 0.02
)

// fuzzyMatch finds the closest canonical names of any kind for the
// window. Every variation key at or above the floor is scored, so a
// near-tie between two names surfaces as an ambiguity instead of a
// silent map-order pick.
func (r *registryResolver) fuzzyMatch(window []token, order []model.EntityKind) (model.Entity, bool, error) {
	key := joinLower(window)

	for _, kind := range order {
		best := map[string]float64{} // canonical name -> best similarity
		for _, candidate := range r.reg.variationKeys(kind) {
			// Single-word mentions only fuzz against single-word keys,
			// otherwise surname typos drown in full-name keys.
			if strings.Count(candidate, " ") != strings.Count(key, " ") {
				continue
			}
			sim := similarity(key, candidate)
			if sim < r.floor {
				continue
			}
			for _, name := range r.reg.Lookup(kind, candidate) {
				if sim > best[name] {
					best[name] = sim
				}
			}
		}
		if len(best) == 0 {
			// A confident hit in a preferred kind beats searching the
			// rest; no hit here means trying the next kind.
			continue
		}

		names := make([]string, 0, len(best))
		for name := range best {
			names = append(names, name)
		}
		sort.Slice(names, func(i, j int) bool {
			if best[names[i]] != best[names[j]] {
				return best[names[i]] > best[names[j]]
			}
			return names[i] < names[j]
		})

		winner, ok := pickFuzzyWinner(names, best)
		if !ok {
			metrics.RecordResolverOutcome("ambiguous")
			contenders := contestedNames(names, best)
			return model.Entity{}, false, qerror.Newf(qerror.CodeAmbiguousEntity,
				"%q could refer to more than one %s", mention(window), kind).
				WithCandidates(contenders...)
		}

		return model.Entity{
			Name:       winner,
			Kind:       kind,
			Mention:    mention(window),
			Confidence: best[winner],
		}, true, nil
	}

	return model.Entity{}, false, nil
}

// pickFuzzyWinner applies the tie rules to a score-sorted name list:
// a clear margin wins outright, an exact score tie goes to the unique
// shortest name, and anything still contested is ambiguous.
func pickFuzzyWinner(names []string, score map[string]float64) (string, bool) {
	if len(names) == 1 {
		return names[0], true
	}
	top, second := score[names[0]], score[names[1]]
	if top-second > simContestWindow {
		return names[0], true
	}
	if top-second <= simTieEpsilon {
		tied := []string{names[0]}
		for _, n := range names[1:] {
			if top-score[n] <= simTieEpsilon {
				tied = append(tied, n)
			}
		}
		shortest, unique := tied[0], true
		for _, n := range tied[1:] {
			switch {
			case len(n) < len(shortest):
				shortest, unique = n, true
			case len(n) == len(shortest):
				unique = false
			}
		}
		if unique {
			return shortest, true
		}
	}
	return "", false
}

// contestedNames returns every name within the contest window of the
// best score, sorted for stable candidate lists.
func contestedNames(names []string, score map[string]float64) []string {
	top := score[names[0]]
	var out []string
	for _, n := range names {
		if top-score[n] <= simContestWindow {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// similarity is the levenshtein distance normalized into [0, 1].
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

// kindOrder decides which kind to try first for a mention at position i.
// "at Eden Gardens" should hit venues before a team named Eden would.
func kindOrder(tokens []token, i int) []model.EntityKind {
	if prev, ok := previousWord(tokens, i); ok && (prev == "at" || prev == "in") {
		return []model.EntityKind{model.KindVenue, model.KindTeam, model.KindPlayer}
	}
	return []model.EntityKind{model.KindPlayer, model.KindTeam, model.KindVenue}
}

// roleFor tags the grammatical role: mentions right after "vs", "versus"
// or "against" are the opposition, venues are always venues, everything
// else is the subject.
func roleFor(kind model.EntityKind, tokens []token, i int) model.Role {
	if kind == model.KindVenue {
		return model.RoleVenue
	}
	if prev, ok := previousWord(tokens, i); ok {
		switch prev {
		case "vs", "versus", "against":
			return model.RoleOpponent
		}
	}
	return model.RoleSubject
}

// previousWord returns the word just before position i, skipping nothing.
func previousWord(tokens []token, i int) (string, bool) {
	if i == 0 {
		return "", false
	}
	return tokens[i-1].lower, true
}

func tokenize(question string) []token {
	fields := strings.Fields(question)
	out := make([]token, 0, len(fields))
	for _, f := range fields {
		orig := strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if orig == "" {
			continue
		}
		lower := strings.ToLower(orig)
		// Drop possessives so "Kohli's" still matches "kohli".
		lower = strings.TrimSuffix(lower, "'s")
		orig = strings.TrimSuffix(strings.TrimSuffix(orig, "'s"), "'S")
		out = append(out, token{lower: lower, orig: orig})
	}
	return out
}

func anyConsumed(window []token) bool {
	for _, t := range window {
		if t.consumed {
			return true
		}
	}
	return false
}

func consume(window []token) {
	for i := range window {
		window[i].consumed = true
	}
}

func joinLower(window []token) string {
	parts := make([]string, len(window))
	for i, t := range window {
		parts[i] = t.lower
	}
	return strings.Join(parts, " ")
}

func mention(window []token) string {
	parts := make([]string, len(window))
	for i, t := range window {
		parts[i] = t.orig
	}
	return strings.Join(parts, " ")
}

// nameLike reports whether every word in the window could plausibly be
// part of a name: alphabetic, at least three letters, and not part of
// the question vocabulary.
func nameLike(window []token) bool {
	for _, t := range window {
		if len(t.lower) < 3 || questionVocabulary[t.lower] {
			return false
		}
		for _, r := range t.lower {
			if !unicode.IsLetter(r) {
				return false
			}
		}
	}
	return true
}

// looksProperNoun reports whether a token is capitalized like a name.
func looksProperNoun(t token) bool {
	if len(t.orig) < 3 || questionVocabulary[t.lower] {
		return false
	}
	first := []rune(t.orig)[0]
	return unicode.IsUpper(first)
}

func sortByMentionOrder(ents []model.Entity, tokens []token) {
	pos := func(mention string) int {
		first := strings.ToLower(strings.Fields(mention)[0])
		for i, t := range tokens {
			if t.lower == first {
				return i
			}
		}
		return len(tokens)
	}
	sort.SliceStable(ents, func(i, j int) bool {
		return pos(ents[i].Mention) < pos(ents[j].Mention)
	})
}

// questionVocabulary is every word the engine itself gives meaning to.
// These can never be entity mentions, no matter the casing.
var questionVocabulary = map[string]bool{
	"what": true, "who": true, "which": true, "how": true, "many": true,
	"much": true, "show": true, "list": true, "give": true, "tell": true,
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"was": true, "were": true, "did": true, "does": true, "has": true,
	"have": true, "his": true, "her": true, "their": true, "best": true,
	"worst": true, "top": true, "most": true, "least": true, "highest": true,
	"lowest": true, "runs": true, "run": true, "wickets": true, "wicket": true,
	"average": true, "strike": true, "rate": true, "economy": true,
	"balls": true, "ball": true, "overs": true, "over": true, "sixes": true,
	"fours": true, "dot": true, "dots": true, "dismissals": true,
	"powerplay": true, "death": true, "middle": true, "phase": true,
	"phases": true, "season": true, "seasons": true, "year": true,
	"years": true, "batting": true, "bowling": true, "batter": true,
	"batters": true, "batsman": true, "batsmen": true, "bowler": true,
	"bowlers": true, "player": true, "players": true, "team": true,
	"teams": true, "spin": true, "spinners": true, "pace": true,
	"pacers": true, "left": true, "right": true, "handed": true,
	"arm": true, "against": true, "versus": true, "between": true,
	"compare": true, "compared": true, "record": true, "stats": true,
	"statistics": true, "scored": true, "score": true, "conceded": true,
	"taken": true, "took": true, "faced": true, "bowled": true,
	"minimum": true, "since": true, "during": true,
	"per": true, "innings": true, "match": true, "matches": true,
	"head": true, "overall": true, "career": true, "performance": true,
	"better": true, "breakdown": true, "across": true, "all": true,
	"time": true, "qualification": true, "qualified": true,
}
