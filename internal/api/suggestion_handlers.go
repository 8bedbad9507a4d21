package api

import (
	"log/slog"
	"net/http"

	"github.com/echolabs/echofeed/internal/affinity"
	"github.com/echolabs/echofeed/internal/middleware"
)

// SuggestionHandlers holds dependencies for user suggestion handlers.
type SuggestionHandlers struct {
	model *affinity.Model
}

// NewSuggestionHandlers creates a new SuggestionHandlers instance.
func NewSuggestionHandlers(model *affinity.Model) *SuggestionHandlers {
	return &SuggestionHandlers{model: model}
}

// SuggestUsers handles GET /users/suggestions - follow recommendations.
//
// Query parameters:
//   - limit: maximum suggestions returned, capped at 50 (default 10)
//   - algorithm: graph|similar|random|all (default all)
//
// Anonymous viewers fall through to random suggestions inside the model.
func (h *SuggestionHandlers) SuggestUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	q := r.URL.Query()

	limit, err := parseIntParam(q, "limit", 10, 1, 50)
	if err != nil {
		writeValidationError(w, r, err.Error())
		return
	}

	algorithm := q.Get("algorithm")
	if algorithm == "" {
		algorithm = affinity.AlgorithmAll
	}
	if !affinity.ValidAlgorithm(algorithm) {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidAlgorithm)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidAlgorithm, "Unknown suggestion algorithm: "+algorithm)
		return
	}

	viewerID := middleware.GetUserID(r.Context())
	suggestions, err := h.model.SuggestUsers(r.Context(), viewerID, limit, algorithm)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to suggest users", "error", err, "algorithm", algorithm)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to suggest users")
		return
	}
	if suggestions == nil {
		suggestions = []affinity.Suggestion{}
	}

	WriteJSON(w, r.Context(), http.StatusOK, map[string]any{"suggestions": suggestions}, nil)
}
