// Package entity maintains the canonical entity registry and resolves
// free-text mentions against it.
package entity

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/deshmukhh/crease/internal/domain/model"
	"github.com/deshmukhh/crease/pkg/metrics"
	"gopkg.in/yaml.v3"
)

// Source abstracts where canonical names come from. The row store
// implements it by scanning distinct values of the event log.
type Source interface {
	DistinctPlayers(ctx context.Context) ([]string, error)
	DistinctTeams(ctx context.Context) ([]string, error)
	DistinctVenues(ctx context.Context) ([]string, error)
}

// aliasFile is the on-disk shape of the optional alias table.
type aliasFile struct {
	Players map[string]string `yaml:"players"`
	Teams   map[string]string `yaml:"teams"`
	Venues  map[string]string `yaml:"venues"`
}

// Registry holds the canonical names per kind plus a lookup index of
// name variations. Built once at startup from the row store; questions
// never mutate it, so reads take the shared lock only.
type Registry struct {
	mu        sync.RWMutex
	canonical map[model.EntityKind][]string
	// index maps a lowercased variation to the canonical names it could
	// mean. More than one target means the variation is ambiguous.
	index map[model.EntityKind]map[string][]string

	aliasPath string
}

// NewRegistry creates an empty registry. Call Load before resolving.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		canonical: make(map[model.EntityKind][]string),
		index:     make(map[model.EntityKind]map[string][]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load scans the source for distinct canonical names, builds the
// variation index and merges the alias table if one is configured.
func (r *Registry) Load(ctx context.Context, src Source) error {
	players, err := src.DistinctPlayers(ctx)
	if err != nil {
		return fmt.Errorf("loading players: %w", err)
	}
	teams, err := src.DistinctTeams(ctx)
	if err != nil {
		return fmt.Errorf("loading teams: %w", err)
	}
	venues, err := src.DistinctVenues(ctx)
	if err != nil {
		return fmt.Errorf("loading venues: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.canonical = map[model.EntityKind][]string{
		model.KindPlayer: players,
		model.KindTeam:   teams,
		model.KindVenue:  venues,
	}
	r.index = map[model.EntityKind]map[string][]string{
		model.KindPlayer: {},
		model.KindTeam:   {},
		model.KindVenue:  {},
	}

	for _, name := range players {
		for _, v := range playerVariations(name) {
			r.addVariation(model.KindPlayer, v, name)
		}
	}
	for _, name := range teams {
		for _, v := range teamVariations(name) {
			r.addVariation(model.KindTeam, v, name)
		}
	}
	for _, name := range venues {
		r.addVariation(model.KindVenue, strings.ToLower(name), name)
	}

	if r.aliasPath != "" {
		if err := r.mergeAliases(r.aliasPath); err != nil {
			return err
		}
	}

	metrics.UpdateRegistryEntities(string(model.KindPlayer), len(players))
	metrics.UpdateRegistryEntities(string(model.KindTeam), len(teams))
	metrics.UpdateRegistryEntities(string(model.KindVenue), len(venues))

	return nil
}

// addVariation records variation -> canonical, keeping targets unique.
// Must be called with r.mu held.
func (r *Registry) addVariation(kind model.EntityKind, variation, canonical string) {
	variation = strings.TrimSpace(variation)
	if variation == "" {
		return
	}
	targets := r.index[kind][variation]
	for _, t := range targets {
		if t == canonical {
			return
		}
	}
	r.index[kind][variation] = append(targets, canonical)
}

// mergeAliases layers a hand-maintained alias table on top of the
// generated variations. Aliases point at exactly one canonical name,
// so they override any ambiguity the generated index has for that key.
// Must be called with r.mu held.
func (r *Registry) mergeAliases(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading alias file: %w", err)
	}
	var af aliasFile
	if err := yaml.Unmarshal(raw, &af); err != nil {
		return fmt.Errorf("parsing alias file: %w", err)
	}
	for alias, canonical := range af.Players {
		r.index[model.KindPlayer][strings.ToLower(alias)] = []string{canonical}
	}
	for alias, canonical := range af.Teams {
		r.index[model.KindTeam][strings.ToLower(alias)] = []string{canonical}
	}
	for alias, canonical := range af.Venues {
		r.index[model.KindVenue][strings.ToLower(alias)] = []string{canonical}
	}
	return nil
}

// Lookup returns the canonical names a lowercased variation could mean.
// An empty slice means the variation is unknown; more than one entry
// means it is ambiguous.
func (r *Registry) Lookup(kind model.EntityKind, variation string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.index[kind][variation]
}

// All returns the canonical names of a kind, sorted.
func (r *Registry) All(kind model.EntityKind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.canonical[kind]))
	copy(out, r.canonical[kind])
	sort.Strings(out)
	return out
}

// Count returns how many canonical names of a kind are registered.
func (r *Registry) Count(kind model.EntityKind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.canonical[kind])
}

// Search returns canonical names of a kind containing the query,
// case-insensitively, up to limit results.
func (r *Registry) Search(kind model.EntityKind, query string, limit int) []string {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []string
	for _, name := range r.canonical[kind] {
		if strings.Contains(strings.ToLower(name), query) {
			out = append(out, name)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// variationKeys returns every indexed variation of a kind. Used by the
// fuzzy pass of the resolver.
func (r *Registry) variationKeys(kind model.EntityKind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.index[kind]))
	for k := range r.index[kind] {
		keys = append(keys, k)
	}
	return keys
}

// playerVariations generates the lookup keys for one canonical player
// name. Scorecard names come as "V Kohli" or "Rohit Sharma"; a question
// may use the surname alone, the first name alone, or "R Sharma".
func playerVariations(name string) []string {
	lower := strings.ToLower(name)
	tokens := strings.Fields(lower)
	vars := []string{lower}
	if len(tokens) < 2 {
		return vars
	}

	first := tokens[0]
	last := tokens[len(tokens)-1]
	tail := strings.Join(tokens[1:], " ")

	// Surname alone, and the full tail for names like "de Villiers".
	if len(last) > 2 {
		vars = append(vars, last)
	}
	if tail != last {
		vars = append(vars, tail)
	}
	// First name alone, but never single initials.
	if len(first) > 2 {
		vars = append(vars, first)
		// "rohit sharma" also answers to "r sharma".
		vars = append(vars, first[:1]+" "+last)
	}
	return vars
}

// teamVariations generates the lookup keys for one canonical team name:
// the full name, the leading city word, and the initialism fans use
// ("Chennai Super Kings" -> "csk").
func teamVariations(name string) []string {
	lower := strings.ToLower(name)
	tokens := strings.Fields(lower)
	vars := []string{lower}
	if len(tokens) < 2 {
		return vars
	}

	if len(tokens[0]) > 2 {
		vars = append(vars, tokens[0])
	}

	var initials strings.Builder
	for _, t := range tokens {
		initials.WriteByte(t[0])
	}
	vars = append(vars, initials.String())

	// Nickname form without the city ("super kings").
	vars = append(vars, strings.Join(tokens[1:], " "))
	return vars
}
