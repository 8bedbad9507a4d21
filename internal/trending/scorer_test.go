package trending

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/echolabs/echofeed/internal/store"
)

func newFixture(t *testing.T) (*store.MemoryStore, *MemoryScoreStore, *Scorer) {
	t.Helper()
	s := store.NewMemoryStore()
	scores := NewMemoryScoreStore()
	scorer := NewScorer(s, scores, BatchFormula{}, nil)
	return s, scores, scorer
}

func TestScorer_Recalculate(t *testing.T) {
	s, scores, scorer := newFixture(t)
	ctx := context.Background()

	now := time.Now()
	scorer.now = func() time.Time { return now }

	s.AddPost(&store.Post{ID: "p1", AuthorID: "author", Type: store.PostTypeNews, CreatedAt: now.Add(-12 * time.Hour)})
	for i, user := range []string{"u1", "u2", "u3", "u4", "u5"} {
		if err := s.AddInteraction(ctx, store.Interaction{
			UserID:    user,
			PostID:    "p1",
			Kind:      store.InteractionLike,
			CreatedAt: now.Add(-time.Duration(i+1) * time.Hour),
		}); err != nil {
			t.Fatalf("AddInteraction failed: %v", err)
		}
	}
	for i := 0; i < 20; i++ {
		if err := s.RecordView(ctx, store.View{
			PostID:    "p1",
			UserID:    string(rune('a' + i)),
			CreatedAt: now.Add(-40 * 24 * time.Hour),
		}); err != nil {
			t.Fatalf("RecordView failed: %v", err)
		}
	}

	score, err := scorer.Recalculate(ctx, "p1")
	if err != nil {
		t.Fatalf("Recalculate failed: %v", err)
	}

	// 5 day likes, 20 views older than 30d: 50 * (5/20) * 1.5 = 18.75
	if score.Score != 18.75 {
		t.Errorf("Expected score 18.75, got %v", score.Score)
	}
	if score.LikeCount != 5 || score.ViewCount != 20 {
		t.Errorf("Unexpected raw counts: likes=%d views=%d", score.LikeCount, score.ViewCount)
	}
	if score.Formula != "batch" {
		t.Errorf("Expected batch formula label, got %s", score.Formula)
	}

	stored, err := scores.GetScore(ctx, "p1")
	if err != nil {
		t.Fatalf("GetScore failed: %v", err)
	}
	if stored == nil || stored.Score != score.Score {
		t.Error("Score was not persisted")
	}
}

func TestScorer_Recalculate_Idempotent(t *testing.T) {
	s, _, scorer := newFixture(t)
	ctx := context.Background()

	now := time.Now()
	scorer.now = func() time.Time { return now }

	s.AddPost(&store.Post{ID: "p1", AuthorID: "author", Type: store.PostTypeNews, CreatedAt: now.Add(-6 * time.Hour)})
	if err := s.AddInteraction(ctx, store.Interaction{UserID: "u1", PostID: "p1", Kind: store.InteractionLike, CreatedAt: now.Add(-time.Hour)}); err != nil {
		t.Fatalf("AddInteraction failed: %v", err)
	}

	first, err := scorer.Recalculate(ctx, "p1")
	if err != nil {
		t.Fatalf("First Recalculate failed: %v", err)
	}
	second, err := scorer.Recalculate(ctx, "p1")
	if err != nil {
		t.Fatalf("Second Recalculate failed: %v", err)
	}

	if first.Score != second.Score {
		t.Errorf("Recalculate not idempotent over frozen data: %v != %v", first.Score, second.Score)
	}
}

func TestScorer_Recalculate_MissingPost(t *testing.T) {
	_, _, scorer := newFixture(t)

	_, err := scorer.Recalculate(context.Background(), "nope")
	if err == nil {
		t.Fatal("Expected error for missing post")
	}
	if !errors.Is(err, store.ErrPostNotFound) {
		t.Errorf("Expected ErrPostNotFound in chain, got %v", err)
	}
}

func TestScorer_RecordAnonymousView(t *testing.T) {
	s, scores, scorer := newFixture(t)
	ctx := context.Background()

	s.AddPost(&store.Post{ID: "p1", AuthorID: "author", Type: store.PostTypeNews, CreatedAt: time.Now()})

	if err := scorer.RecordAnonymousView(ctx, "p1"); err != nil {
		t.Fatalf("RecordAnonymousView failed: %v", err)
	}
	if err := scorer.RecordAnonymousView(ctx, "p1"); err != nil {
		t.Fatalf("RecordAnonymousView failed: %v", err)
	}

	score, err := scores.GetScore(ctx, "p1")
	if err != nil {
		t.Fatalf("GetScore failed: %v", err)
	}
	if score == nil || score.ViewCount != 2 {
		t.Errorf("Expected bumped view count 2, got %+v", score)
	}

	// No view facts were created.
	views, err := s.CountViews(ctx, "p1", time.Time{})
	if err != nil {
		t.Fatalf("CountViews failed: %v", err)
	}
	if views != 0 {
		t.Errorf("Anonymous view must not create a view fact, got %d", views)
	}
}

func TestMemoryScoreStore_TopScores(t *testing.T) {
	scores := NewMemoryScoreStore()
	ctx := context.Background()

	for _, s := range []Score{
		{PostID: "low", Score: 1.5},
		{PostID: "high", Score: 9.0},
		{PostID: "zero", Score: 0},
		{PostID: "mid", Score: 4.2},
	} {
		if err := scores.SaveScore(ctx, s); err != nil {
			t.Fatalf("SaveScore failed: %v", err)
		}
	}

	top, err := scores.TopScores(ctx, 2)
	if err != nil {
		t.Fatalf("TopScores failed: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("Expected 2 scores, got %d", len(top))
	}
	if top[0].PostID != "high" || top[1].PostID != "mid" {
		t.Errorf("Unexpected order: %s, %s", top[0].PostID, top[1].PostID)
	}
}
