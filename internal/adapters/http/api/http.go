// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/deshmukhh/crease/internal/adapters/rowstore"
	service "github.com/deshmukhh/crease/internal/app"
	"github.com/deshmukhh/crease/internal/domain/model"
	"github.com/deshmukhh/crease/internal/domain/qerror"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Ask answers one natural-language question.
	Ask(ctx context.Context, question string) (*model.Answer, error)

	// Validate reports what the engine would do without executing.
	Validate(ctx context.Context, question string) (*service.Validation, error)

	// Players searches canonical player names for autocomplete.
	Players(ctx context.Context, query string, limit int) []string

	// Entities lists every canonical name of a kind.
	Entities(ctx context.Context, kind model.EntityKind) []string

	// Summary reports the span of the loaded event log.
	Summary(ctx context.Context) (rowstore.SummaryStats, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	askHandler      *AskHandler
	validateHandler *ValidateHandler
	playersHandler  *PlayersHandler
	entitiesHandler *EntitiesHandler
	summaryHandler  *SummaryHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		askHandler:      NewAskHandler(deps),
		validateHandler: NewValidateHandler(deps),
		playersHandler:  NewPlayersHandler(deps),
		entitiesHandler: NewEntitiesHandler(deps),
		summaryHandler:  NewSummaryHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	// Specific paths first (most specific to least specific)
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/ask/validate", MetricsMiddleware(s.validateHandler.HandleValidate, "ask_validate"))
	mux.HandleFunc("/ask", MetricsMiddleware(s.askHandler.HandleAsk, "ask"))
	mux.HandleFunc("/players", MetricsMiddleware(s.playersHandler.HandleSearch, "players"))
	mux.HandleFunc("/entities", MetricsMiddleware(s.entitiesHandler.HandleList, "entities"))
	mux.HandleFunc("/summary", MetricsMiddleware(s.summaryHandler.HandleSummary, "summary"))
}

// askRequest mirrors the OpenAPI schema shared by POST /ask and
// POST /ask/validate.
type askRequest struct {
	Question string `json:"question"`
}

type errorResponse struct {
	Code       string   `json:"code"`
	Message    string   `json:"message"`
	Candidates []string `json:"candidates,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writePipelineError maps a coded pipeline error to an HTTP status and
// a structured body. Recoverable codes are the caller's problem;
// timeouts get 504; everything else is an engine fault.
func writePipelineError(w http.ResponseWriter, err error) {
	var qe *qerror.Error
	if !errors.As(err, &qe) {
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	status := http.StatusInternalServerError
	switch {
	case qerror.Recoverable(err):
		status = http.StatusBadRequest
	case qe.Code == qerror.CodeQueryTimeout:
		status = http.StatusGatewayTimeout
	}

	setErrorClass(w, string(qe.Code))
	writeJSON(w, status, errorResponse{
		Code:       string(qe.Code),
		Message:    qe.Message,
		Candidates: qe.Candidates,
	})
}
