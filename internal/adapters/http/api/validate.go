// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"
)

// ValidateHandler handles dry-run question requests.
type ValidateHandler struct {
	deps Dependencies
}

// NewValidateHandler creates a new validate handler.
func NewValidateHandler(deps Dependencies) *ValidateHandler {
	return &ValidateHandler{deps: deps}
}

// HandleValidate handles POST /ask/validate requests. The response is
// 200 either way; validity lives in the body so callers can inspect the
// plan or the error code without branching on status.
func (h *ValidateHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	question, ok := decodeQuestion(w, r)
	if !ok {
		return
	}

	v, err := h.deps.Validate(r.Context(), question)
	if err != nil {
		writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
