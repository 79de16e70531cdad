// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"net/http"

	"github.com/deshmukhh/crease/internal/domain/model"
)

// EntitiesHandler handles canonical entity listing requests.
type EntitiesHandler struct {
	deps Dependencies
}

// NewEntitiesHandler creates a new entities handler.
func NewEntitiesHandler(deps Dependencies) *EntitiesHandler {
	return &EntitiesHandler{deps: deps}
}

type entitiesResponse struct {
	Kind  model.EntityKind `json:"kind"`
	Names []string         `json:"names"`
}

// HandleList handles GET /entities?kind=player|team|venue requests.
func (h *EntitiesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	kind := model.EntityKind(r.URL.Query().Get("kind"))
	switch kind {
	case model.KindPlayer, model.KindTeam, model.KindVenue:
	default:
		writeError(w, http.StatusBadRequest, "bad_request", ErrUnknownKind)
		return
	}

	names := h.deps.Entities(r.Context(), kind)
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, entitiesResponse{Kind: kind, Names: names})
}
