package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/echolabs/echofeed/internal/middleware"
	"github.com/echolabs/echofeed/internal/search"
)

// SearchHandlers holds dependencies for search HTTP handlers.
type SearchHandlers struct {
	ranker *search.Ranker
}

// NewSearchHandlers creates a new SearchHandlers instance.
func NewSearchHandlers(ranker *search.Ranker) *SearchHandlers {
	return &SearchHandlers{ranker: ranker}
}

// Search handles GET /search - ranked post and user search.
//
// Query parameters:
//   - q: the query string (required)
//   - type: all|posts|users (default all)
//   - page: 1-based page number (default 1)
//   - page_size: results per page, capped at 40 (default 20)
//   - debug: attach per-signal score breakdowns (default false)
//   - refresh: bypass the result cache (default false)
//   - simple: force the fuzzy fallback pipeline (default false)
func (h *SearchHandlers) Search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	q := r.URL.Query()

	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		writeValidationError(w, r, "q is required")
		return
	}

	kind := q.Get("type")
	if kind == "" {
		kind = search.KindAll
	}
	if !search.ValidKind(kind) {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidKind)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidKind, "Unknown search type: "+kind)
		return
	}

	page, err := parseIntParam(q, "page", 1, 1, 0)
	if err != nil {
		writeValidationError(w, r, err.Error())
		return
	}

	pageSize, err := parseIntParam(q, "page_size", search.DefaultPageSize, 1, search.MaxPageSize)
	if err != nil {
		writeValidationError(w, r, err.Error())
		return
	}

	debug, err := parseBoolParam(q, "debug", false)
	if err != nil {
		writeValidationError(w, r, err.Error())
		return
	}
	refresh, err := parseBoolParam(q, "refresh", false)
	if err != nil {
		writeValidationError(w, r, err.Error())
		return
	}
	simple, err := parseBoolParam(q, "simple", false)
	if err != nil {
		writeValidationError(w, r, err.Error())
		return
	}

	resp, err := h.ranker.Search(r.Context(), search.Request{
		Query:    query,
		Kind:     kind,
		ViewerID: middleware.GetUserID(r.Context()),
		Page:     page,
		PageSize: pageSize,
		Debug:    debug,
		Refresh:  refresh,
		Simple:   simple,
	})
	if err != nil {
		if errors.Is(err, search.ErrEmptyQuery) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeEmptyQuery)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeEmptyQuery, "Query has no searchable terms")
			return
		}
		slog.ErrorContext(r.Context(), "search failed", "error", err, "query", query, "type", kind)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Search failed")
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, resp, &Pagination{
		Page:     resp.Page,
		PageSize: resp.PageSize,
		HasMore:  resp.HasMore,
		Total:    resp.TotalPosts + resp.TotalUsers,
	})
}

// TrendingSearches handles GET /search/trending - the most frequent queries
// of the last seven days.
func (h *SearchHandlers) TrendingSearches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	limit, err := parseIntParam(r.URL.Query(), "limit", search.DefaultTrendingSearchLimit, 1, 50)
	if err != nil {
		writeValidationError(w, r, err.Error())
		return
	}

	queries, err := h.ranker.TrendingSearches(r.Context(), limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to load trending searches", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load trending searches")
		return
	}
	if queries == nil {
		queries = []search.QueryCount{}
	}

	WriteJSON(w, r.Context(), http.StatusOK, map[string]any{"queries": queries}, nil)
}
