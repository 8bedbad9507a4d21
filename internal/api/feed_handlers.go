package api

import (
	"log/slog"
	"net/http"

	"github.com/echolabs/echofeed/internal/feed"
	"github.com/echolabs/echofeed/internal/middleware"
)

// FeedHandlers holds dependencies for feed HTTP handlers.
type FeedHandlers struct {
	assembler *feed.Assembler
	// personalizationEnabled is the server-wide switch; when false the
	// per-request personalize flag is ignored.
	personalizationEnabled bool
}

// NewFeedHandlers creates a new FeedHandlers instance.
func NewFeedHandlers(assembler *feed.Assembler, personalizationEnabled bool) *FeedHandlers {
	return &FeedHandlers{
		assembler:              assembler,
		personalizationEnabled: personalizationEnabled,
	}
}

// GetFeed handles GET /feed - assembles the sectioned feed for the viewer.
//
// Query parameters:
//   - section: following|recommended|trending|discover|all (default all)
//   - page: 1-based page number (default 1)
//   - limit: per-section page size, capped at 50 (default 20)
//   - personalize: enable affinity-based scoring (default true)
//   - debug: attach per-signal score breakdowns (default false)
//
// The viewer is taken from the request context; anonymous viewers receive
// only the trending and discover sections.
func (h *FeedHandlers) GetFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	q := r.URL.Query()

	section := q.Get("section")
	if section == "" {
		section = feed.SectionAll
	}
	if !feed.ValidSection(section) {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidSection)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidSection, "Unknown feed section: "+section)
		return
	}

	page, err := parseIntParam(q, "page", 1, 1, 0)
	if err != nil {
		writeValidationError(w, r, err.Error())
		return
	}

	limit, err := parseIntParam(q, "limit", feed.DefaultLimit, 1, feed.MaxLimit)
	if err != nil {
		writeValidationError(w, r, err.Error())
		return
	}

	personalize, err := parseBoolParam(q, "personalize", true)
	if err != nil {
		writeValidationError(w, r, err.Error())
		return
	}
	if !h.personalizationEnabled {
		personalize = false
	}

	debug, err := parseBoolParam(q, "debug", false)
	if err != nil {
		writeValidationError(w, r, err.Error())
		return
	}

	resp, err := h.assembler.Assemble(r.Context(), feed.Request{
		ViewerID:    middleware.GetUserID(r.Context()),
		Section:     section,
		Page:        page,
		Limit:       limit,
		Personalize: personalize,
		Debug:       debug,
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to assemble feed", "error", err, "section", section)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to assemble feed")
		return
	}

	// Sections carry their own page windows, so the envelope-level
	// pagination reports only the overall has_more flag.
	WriteJSON(w, r.Context(), http.StatusOK, resp, &Pagination{
		Page:     page,
		PageSize: limit,
		HasMore:  resp.HasMore,
	})
}
