package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/echolabs/echofeed/internal/middleware"
	"github.com/echolabs/echofeed/internal/store"
	"github.com/echolabs/echofeed/internal/trending"
)

// PostHandlers holds dependencies for post HTTP handlers.
type PostHandlers struct {
	store  store.InteractionStore
	scorer *trending.Scorer
}

// NewPostHandlers creates a new PostHandlers instance.
func NewPostHandlers(st store.InteractionStore, scorer *trending.Scorer) *PostHandlers {
	return &PostHandlers{store: st, scorer: scorer}
}

// recordViewRequest is the optional JSON body of POST /posts/{id}/view.
type recordViewRequest struct {
	// Duration is how long the post was viewed, in seconds.
	Duration int `json:"duration"`
}

// RecordView handles POST /posts/{id}/view - records a view of a post.
//
// Authenticated viewers get a per-user view fact; repeated views update the
// duration in place. Anonymous viewers only bump the stored view counter.
func (h *PostHandlers) RecordView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusMethodNotAllowed, ErrCodeBadRequest, "Method not allowed")
		return
	}

	postID := viewPathPostID(r.URL.Path)
	if postID == "" {
		writeValidationError(w, r, "post id is required")
		return
	}

	// Body is optional; an empty body means an instantaneous view.
	var req recordViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeValidationError(w, r, "invalid JSON body")
		return
	}
	if req.Duration < 0 {
		writeValidationError(w, r, "duration must not be negative")
		return
	}

	if _, err := h.store.GetPost(r.Context(), postID); err != nil {
		if errors.Is(err, store.ErrPostNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Post not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to load post", "error", err, "post_id", postID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to record view")
		return
	}

	viewerID := middleware.GetUserID(r.Context())
	var err error
	if viewerID == "" {
		err = h.scorer.RecordAnonymousView(r.Context(), postID)
	} else {
		err = h.store.RecordView(r.Context(), store.View{
			PostID:    postID,
			UserID:    viewerID,
			CreatedAt: time.Now().UTC(),
			Duration:  req.Duration,
		})
	}
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to record view", "error", err, "post_id", postID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to record view")
		return
	}

	WriteJSON(w, r.Context(), http.StatusAccepted, map[string]any{"recorded": true}, nil)
}

// viewPathPostID extracts the post ID from a /posts/{id}/view path.
// Returns empty string when the path does not match.
func viewPathPostID(path string) string {
	if !strings.HasPrefix(path, "/posts/") || !strings.HasSuffix(path, "/view") {
		return ""
	}
	id := strings.TrimSuffix(strings.TrimPrefix(path, "/posts/"), "/view")
	if id == "" || strings.Contains(id, "/") {
		return ""
	}
	return id
}
