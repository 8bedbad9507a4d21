package api

import (
	"net/http"

	"github.com/echolabs/echofeed/internal/middleware"
	"github.com/echolabs/echofeed/internal/ranking"
	"github.com/echolabs/echofeed/internal/trending"
)

// AdminHandlers holds dependencies for admin HTTP handlers.
type AdminHandlers struct {
	sweep  *trending.SweepJob
	budget ranking.Budget
}

// NewAdminHandlers creates a new AdminHandlers instance. A zero budget
// falls back to the admin default.
func NewAdminHandlers(sweep *trending.SweepJob, budget ranking.Budget) *AdminHandlers {
	if budget.Timeout <= 0 {
		budget = ranking.AdminBudget()
	}
	return &AdminHandlers{sweep: sweep, budget: budget}
}

// RecalculateTrending handles POST /admin/trending/recalculate - runs one
// trending sweep cycle synchronously under the admin query budget.
//
// Query parameters:
//   - batch_size: posts rescored per checkpointed batch (default from config)
//   - max_posts: cap on posts considered this sweep (default from config)
//
// The sweep degrades rather than fails on budget expiry: posts not reached
// in time are reported as unprocessed, not as an error.
func (h *AdminHandlers) RecalculateTrending(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	q := r.URL.Query()

	batchSize, err := parseIntParam(q, "batch_size", 0, 1, trending.MaxSweepPosts)
	if err != nil {
		writeValidationError(w, r, err.Error())
		return
	}
	maxPosts, err := parseIntParam(q, "max_posts", 0, 1, trending.MaxSweepPosts)
	if err != nil {
		writeValidationError(w, r, err.Error())
		return
	}

	ctx, cancel := h.budget.Apply(r.Context())
	defer cancel()

	result := h.sweep.SweepWith(ctx, batchSize, maxPosts)

	WriteJSON(w, r.Context(), http.StatusOK, map[string]any{
		"processed": result.Processed,
		"updated":   result.Updated,
		"failed":    result.Failed,
	}, nil)
}
