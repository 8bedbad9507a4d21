package api

import (
	"log/slog"
	"net/http"

	"github.com/echolabs/echofeed/internal/middleware"
)

// RouterConfig bundles the handler groups mounted on the API mux.
// Nil groups are skipped, which lets tests mount only what they exercise.
type RouterConfig struct {
	Feed        *FeedHandlers
	Search      *SearchHandlers
	Suggestions *SuggestionHandlers
	Posts       *PostHandlers
	Admin       *AdminHandlers
	Health      *HealthHandlers
	// Metrics is the Prometheus exposition handler.
	Metrics http.Handler
}

// NewRouter assembles the API route table.
func NewRouter(cfg RouterConfig) *http.ServeMux {
	mux := http.NewServeMux()

	if cfg.Feed != nil {
		mux.HandleFunc("/feed", cfg.Feed.GetFeed)
	}
	if cfg.Search != nil {
		mux.HandleFunc("/search", cfg.Search.Search)
		mux.HandleFunc("/search/trending", cfg.Search.TrendingSearches)
	}
	if cfg.Suggestions != nil {
		mux.HandleFunc("/users/suggestions", cfg.Suggestions.SuggestUsers)
	}
	if cfg.Posts != nil {
		mux.HandleFunc("/posts/", cfg.Posts.RecordView)
	}
	if cfg.Admin != nil {
		mux.HandleFunc("/admin/trending/recalculate", cfg.Admin.RecalculateTrending)
	}
	if cfg.Health != nil {
		mux.HandleFunc("/health", cfg.Health.Health)
		mux.HandleFunc("/healthz", cfg.Health.Health)
		mux.HandleFunc("/ready", cfg.Health.Ready)
	}
	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics)
	}

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// Only handle exact root path, everything else returns 404
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"echofeed","version":"0.1.0"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	return mux
}
