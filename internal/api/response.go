package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
)

// Pagination describes the page window of a list response.
type Pagination struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasMore  bool `json:"has_more"`
	Total    int  `json:"total"`
}

// Envelope is the standard success response format.
// All successful API responses return JSON in this structure:
// {"success": true, "data": {...}, "pagination": {...}}
type Envelope struct {
	Success    bool        `json:"success"`
	Data       any         `json:"data"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// WriteJSON writes a success envelope with the given payload.
// pagination may be nil for non-list responses.
func WriteJSON(w http.ResponseWriter, ctx context.Context, status int, data any, pagination *Pagination) {
	resp := Envelope{
		Success:    true,
		Data:       data,
		Pagination: pagination,
	}

	body, err := json.Marshal(resp)
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal response", "error", err)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to encode response")
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		slog.ErrorContext(ctx, "failed to write response", "error", err)
	}
}
