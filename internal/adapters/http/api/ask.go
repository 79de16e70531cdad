// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

// question length guard, keeps pathological inputs out of the pipeline
const maxQuestionLength = 500

// AskHandler handles question requests.
type AskHandler struct {
	deps Dependencies
}

// NewAskHandler creates a new ask handler.
func NewAskHandler(deps Dependencies) *AskHandler {
	return &AskHandler{deps: deps}
}

// HandleAsk handles POST /ask requests.
func (h *AskHandler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	question, ok := decodeQuestion(w, r)
	if !ok {
		return
	}

	answer, err := h.deps.Ask(r.Context(), question)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

// decodeQuestion parses and bounds-checks the shared ask request body.
// It writes the error response itself and reports ok=false on failure.
func decodeQuestion(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return "", false
	}
	question := strings.TrimSpace(req.Question)
	if question == "" {
		writeError(w, http.StatusBadRequest, "bad_request", ErrEmptyQuestion)
		return "", false
	}
	if len(question) > maxQuestionLength {
		writeError(w, http.StatusBadRequest, "bad_request", ErrQuestionTooLong)
		return "", false
	}
	return question, true
}
