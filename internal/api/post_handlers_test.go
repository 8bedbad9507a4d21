package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/echolabs/echofeed/internal/store"
)

func TestRecordView_Authenticated(t *testing.T) {
	f := newFixture(t)
	f.seedPost(t, "p1", "author-1", "First", 1.0)

	rr, _ := f.do(t, http.MethodPost, "/posts/p1/view", "viewer-1")
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rr.Code, rr.Body.String())
	}

	views, err := f.store.CountViews(context.Background(), "p1", time.Time{})
	if err != nil {
		t.Fatalf("CountViews failed: %v", err)
	}
	if views != 1 {
		t.Errorf("expected 1 view fact, got %d", views)
	}
}

func TestRecordView_Anonymous(t *testing.T) {
	f := newFixture(t)
	f.seedPost(t, "p1", "author-1", "First", 1.0)

	rr, _ := f.do(t, http.MethodPost, "/posts/p1/view", "")
	if rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rr.Code, rr.Body.String())
	}

	// Anonymous views bump the stored counter, not the view facts.
	views, err := f.store.CountViews(context.Background(), "p1", time.Time{})
	if err != nil {
		t.Fatalf("CountViews failed: %v", err)
	}
	if views != 0 {
		t.Errorf("expected no view facts for anonymous view, got %d", views)
	}

	score, err := f.scores.GetScore(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetScore failed: %v", err)
	}
	if score == nil || score.ViewCount != 1 {
		t.Errorf("expected stored view count 1, got %+v", score)
	}
}

func TestRecordView_UnknownPost(t *testing.T) {
	f := newFixture(t)

	rr, _ := f.do(t, http.MethodPost, "/posts/ghost/view", "viewer-1")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if code := decodeErrorCode(t, rr); code != ErrCodeNotFound {
		t.Errorf("expected error code %q, got %q", ErrCodeNotFound, code)
	}
}

func TestRecordView_RepeatUpdatesDuration(t *testing.T) {
	f := newFixture(t)
	f.seedPost(t, "p1", "author-1", "First", 1.0)

	for i := 0; i < 2; i++ {
		rr, _ := f.do(t, http.MethodPost, "/posts/p1/view", "viewer-1")
		if rr.Code != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", rr.Code)
		}
	}

	views, err := f.store.CountViews(context.Background(), "p1", time.Time{})
	if err != nil {
		t.Fatalf("CountViews failed: %v", err)
	}
	if views != 1 {
		t.Errorf("expected repeated view to update in place, got %d facts", views)
	}
}

func TestRecordView_MethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	f.store.AddPost(&store.Post{ID: "p1", AuthorID: "a", Type: store.PostTypeNews, Title: "x", CreatedAt: time.Now()})

	rr, _ := f.do(t, http.MethodGet, "/posts/p1/view", "viewer-1")
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rr.Code)
	}
}

func TestViewPathPostID(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/posts/abc/view", "abc"},
		{"/posts/550e8400-e29b-41d4-a716-446655440000/view", "550e8400-e29b-41d4-a716-446655440000"},
		{"/posts//view", ""},
		{"/posts/abc", ""},
		{"/posts/abc/def/view", ""},
		{"/other/abc/view", ""},
	}
	for _, tt := range tests {
		if got := viewPathPostID(tt.path); got != tt.want {
			t.Errorf("viewPathPostID(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
