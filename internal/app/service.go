// Package service wires the question pipeline together and implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/deshmukhh/crease/internal/adapters/llm"
	"github.com/deshmukhh/crease/internal/adapters/rowstore"
	"github.com/deshmukhh/crease/internal/domain/assemble"
	"github.com/deshmukhh/crease/internal/domain/entity"
	"github.com/deshmukhh/crease/internal/domain/filters"
	"github.com/deshmukhh/crease/internal/domain/intent"
	"github.com/deshmukhh/crease/internal/domain/model"
	"github.com/deshmukhh/crease/internal/domain/narrate"
	"github.com/deshmukhh/crease/internal/domain/qcache"
	"github.com/deshmukhh/crease/internal/domain/qerror"
	"github.com/deshmukhh/crease/internal/domain/vocab"
	"github.com/deshmukhh/crease/pkg/logger"
	"github.com/deshmukhh/crease/pkg/metrics"
	"github.com/google/uuid"
)

// Service answers questions over the event log.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     rowstore.Store
	registry  *entity.Registry
	resolver  entity.Resolver
	assembler *assemble.Assembler
	cache     qcache.Cache
	suggester llm.Suggester

	// Configuration
	dbPath          string
	aliasPath       string
	similarityFloor float64
	queryTimeout    time.Duration
	maxInFlight     int
	defaultLimit    int
	maxLimit        int
	thresholds      map[string]int
	phaseThreshold  int
	cacheSize       int

	// State
	started bool

	logger logger.Logger
}

// New constructs a service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		dbPath:          "crease.db",
		similarityFloor: 0.75,
		queryTimeout:    5 * time.Second,
		maxInFlight:     8,
		defaultLimit:    10,
		maxLimit:        100,
		thresholds:      map[string]int{},
		phaseThreshold:  60,
		cacheSize:       1024,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the event log and builds the entity registry from it.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting query engine...")

	if s.store == nil {
		store, err := rowstore.New(s.dbPath,
			rowstore.WithQueryTimeout(s.queryTimeout),
			rowstore.WithMaxInFlight(s.maxInFlight),
		)
		if err != nil {
			return err
		}
		s.store = store
	}

	var regOpts []entity.RegistryOption
	if s.aliasPath != "" {
		regOpts = append(regOpts, entity.WithAliasPath(s.aliasPath))
	}
	s.registry = entity.NewRegistry(regOpts...)
	if err := s.registry.Load(ctx, s.store); err != nil {
		return err
	}

	s.resolver = entity.NewResolver(s.registry,
		entity.WithSimilarityFloor(s.similarityFloor),
	)
	s.assembler = assemble.New(
		assemble.WithDefaultLimit(s.defaultLimit),
		assemble.WithMaxLimit(s.maxLimit),
		assemble.WithThresholds(s.thresholds),
		assemble.WithPhaseThreshold(s.phaseThreshold),
	)
	s.cache = qcache.New(qcache.WithMaxSize(s.cacheSize))

	s.started = true
	s.logger.Info(ctx, "query engine started",
		logger.Int("players", s.registry.Count(model.KindPlayer)),
		logger.Int("teams", s.registry.Count(model.KindTeam)),
		logger.Int("venues", s.registry.Count(model.KindVenue)),
		logger.Bool("fallback", s.suggester != nil),
	)
	return nil
}

// Stop releases the event log handle.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(context.Background(), "stopping query engine...")
	if s.store != nil {
		_ = s.store.Close()
	}
	s.started = false
	s.logger.Info(context.Background(), "query engine stopped")
}

// Ask runs the full pipeline for one question.
func (s *Service) Ask(ctx context.Context, question string) (*model.Answer, error) {
	if cached, ok := s.cache.Get(ctx, question); ok {
		s.logger.Debug(ctx, "answer served from cache", logger.String("question", question))
		return cached, nil
	}

	in, warnings, err := s.understand(ctx, question)
	if err != nil {
		metrics.RecordQuestionFailure(string(qerror.CodeOf(err)))
		return nil, err
	}

	qd, asmWarnings, err := s.assembler.Assemble(in)
	if err != nil {
		metrics.RecordQuestionFailure(string(qerror.CodeOf(err)))
		return nil, err
	}
	warnings = append(warnings, asmWarnings...)

	start := time.Now()
	res, err := s.store.Execute(ctx, qd)
	metrics.RecordPipelineStageLatency("execute", float64(time.Since(start).Microseconds())/1000.0)
	if err != nil {
		metrics.RecordQuestionFailure(string(qerror.CodeOf(err)))
		return nil, err
	}

	narrative := narrate.Render(in, res, warnings)

	answer := &model.Answer{
		RequestID:        uuid.NewString(),
		Narrative:        narrative,
		Columns:          res.Columns,
		Rows:             res.Rows,
		GeneratedQuery:   res.QueryText,
		Parameters:       res.Params,
		ResolvedEntities: in.EntityNames(),
		Shape:            in.Shape,
		ExecutionTimeMS:  float64(res.ExecutionTime.Microseconds()) / 1000.0,
		Warnings:         warnings,
	}

	s.cache.Put(ctx, question, answer)
	metrics.RecordQuestionProcessed()
	return answer, nil
}

// Validation reports what the engine would do with a question without
// touching the row store.
type Validation struct {
	Valid            bool         `json:"valid"`
	Shape            model.Shape  `json:"intent_shape,omitempty"`
	ResolvedEntities []string     `json:"resolved_entities,omitempty"`
	GeneratedQuery   string       `json:"generated_query_text,omitempty"`
	Parameters       []any        `json:"parameters,omitempty"`
	Warnings         []string     `json:"warnings,omitempty"`
	ErrorCode        qerror.Code  `json:"error_code,omitempty"`
	ErrorMessage     string       `json:"error_message,omitempty"`
	Candidates       []string     `json:"candidates,omitempty"`
}

// Validate dry-runs the pipeline: understand, assemble, render, stop.
func (s *Service) Validate(ctx context.Context, question string) (*Validation, error) {
	in, warnings, err := s.understand(ctx, question)
	if err == nil {
		var qd *model.QueryDescription
		var asmWarnings []string
		qd, asmWarnings, err = s.assembler.Assemble(in)
		if err == nil {
			warnings = append(warnings, asmWarnings...)
			query, params, renderErr := s.store.Render(qd)
			if renderErr != nil {
				return nil, renderErr
			}
			return &Validation{
				Valid:            true,
				Shape:            in.Shape,
				ResolvedEntities: in.EntityNames(),
				GeneratedQuery:   query,
				Parameters:       params,
				Warnings:         warnings,
			}, nil
		}
	}

	var qe *qerror.Error
	if errors.As(err, &qe) {
		return &Validation{
			Valid:        false,
			ErrorCode:    qe.Code,
			ErrorMessage: qe.Message,
			Candidates:   qe.Candidates,
		}, nil
	}
	return nil, err
}

// understand runs the three extraction passes concurrently and merges
// them into a classified intent, trying the fallback suggester when the
// rules give up.
func (s *Service) understand(ctx context.Context, question string) (*model.Intent, []string, error) {
	start := time.Now()

	var (
		wg       sync.WaitGroup
		res      *entity.Resolution
		entErr   error
		analysis *vocab.Analysis
		vocErr   error
		numeric  *filters.Extraction
		numErr   error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		res, entErr = s.resolver.Resolve(ctx, question)
	}()
	go func() {
		defer wg.Done()
		analysis, vocErr = vocab.Analyze(question)
	}()
	go func() {
		defer wg.Done()
		numeric, numErr = filters.Extract(question)
	}()
	wg.Wait()
	metrics.RecordPipelineStageLatency("extract", float64(time.Since(start).Microseconds())/1000.0)

	for _, err := range []error{entErr, vocErr, numErr} {
		if err != nil {
			return nil, nil, err
		}
	}

	classifyStart := time.Now()
	in, err := intent.Classify(intent.Input{
		Entities: res.Entities,
		Unknown:  res.Unknown,
		Vocab:    analysis,
		Numeric:  numeric,
	})
	metrics.RecordPipelineStageLatency("classify", float64(time.Since(classifyStart).Microseconds())/1000.0)
	if err == nil {
		var warnings []string
		for _, u := range res.Unknown {
			warnings = append(warnings, fmt.Sprintf("ignoring %q: no matching player, team or venue", u))
		}
		return in, warnings, nil
	}

	if qerror.CodeOf(err) != qerror.CodeUnresolvableIntent || s.suggester == nil {
		return nil, nil, err
	}

	// Last resort: ask the suggester, then re-validate its proposal like
	// any other intent.
	metrics.RecordFallbackAttempt()
	s.logger.Debug(ctx, "rules could not classify, trying fallback",
		logger.String("question", question))

	suggested, sErr := s.suggester.SuggestIntent(ctx, question, res.Entities)
	if sErr != nil {
		s.logger.Warn(ctx, "fallback suggestion failed", logger.Error(sErr))
		return nil, nil, err
	}
	if vErr := s.checkSuggested(suggested); vErr != nil {
		return nil, nil, vErr
	}

	metrics.RecordFallbackAccepted()
	warnings := []string{"intent classified by the fallback model"}
	return suggested, warnings, nil
}

// checkSuggested verifies every suggested entity exists in the registry
// under its canonical name.
func (s *Service) checkSuggested(in *model.Intent) error {
	for _, e := range in.Entities {
		targets := s.registry.Lookup(e.Kind, strings.ToLower(e.Name))
		found := false
		for _, t := range targets {
			if t == e.Name {
				found = true
				break
			}
		}
		if !found {
			return qerror.Newf(qerror.CodeNoEntityFound,
				"suggested %s %q is not in the event log", e.Kind, e.Name)
		}
	}
	return nil
}

// Players searches canonical player names for the autocomplete endpoint.
func (s *Service) Players(ctx context.Context, query string, limit int) []string {
	return s.registry.Search(model.KindPlayer, query, limit)
}

// Entities lists every canonical name of a kind.
func (s *Service) Entities(ctx context.Context, kind model.EntityKind) []string {
	return s.registry.All(kind)
}

// Summary reports the span of the loaded event log.
func (s *Service) Summary(ctx context.Context) (rowstore.SummaryStats, error) {
	return s.store.Summary(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":      s.started,
		"cacheSize":    int64(0),
		"defaultLimit": s.defaultLimit,
		"maxLimit":     s.maxLimit,
	}
	if s.started {
		stats["cacheSize"] = s.cache.Size()
		stats["players"] = s.registry.Count(model.KindPlayer)
		stats["teams"] = s.registry.Count(model.KindTeam)
		stats["venues"] = s.registry.Count(model.KindVenue)
		stats["fallbackEnabled"] = s.suggester != nil
	}
	return stats
}
