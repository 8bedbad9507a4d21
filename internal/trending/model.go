// Package trending computes and stores decaying popularity scores for posts.
// Scores are derived records: lazily created, recalculated from engagement
// facts, and overwritten wholesale (last-writer-wins).
package trending

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Score is the derived trending record for a post.
type Score struct {
	PostID         string    `json:"post_id" cbor:"1,keyasint"`
	Score          float64   `json:"score" cbor:"2,keyasint"`
	ViewCount      int       `json:"view_count" cbor:"3,keyasint"`
	LikeCount      int       `json:"like_count" cbor:"4,keyasint"`
	CommentCount   int       `json:"comment_count" cbor:"5,keyasint"`
	ShareCount     int       `json:"share_count" cbor:"6,keyasint"`
	Formula        string    `json:"formula" cbor:"7,keyasint"`
	LastCalculated time.Time `json:"last_calculated" cbor:"8,keyasint"`
}

// ScoreStore persists trending scores.
type ScoreStore interface {
	// SaveScore overwrites the score for a post wholesale.
	SaveScore(ctx context.Context, score Score) error
	// GetScore retrieves a score by post ID, or nil when none exists.
	GetScore(ctx context.Context, postID string) (*Score, error)
	// TopScores returns up to limit scores with Score > 0, ordered by
	// score descending.
	TopScores(ctx context.Context, limit int) ([]Score, error)
	// BumpViewCount increments the stored view counter without touching
	// the score. Used for anonymous views, which leave no view fact.
	BumpViewCount(ctx context.Context, postID string) error
}

// MemoryScoreStore is a thread-safe in-memory ScoreStore.
type MemoryScoreStore struct {
	mu     sync.RWMutex
	scores map[string]Score
}

// NewMemoryScoreStore creates an empty in-memory score store.
func NewMemoryScoreStore() *MemoryScoreStore {
	return &MemoryScoreStore{scores: make(map[string]Score)}
}

// SaveScore overwrites the score for a post.
func (s *MemoryScoreStore) SaveScore(_ context.Context, score Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores[score.PostID] = score
	return nil
}

// GetScore retrieves a score, or nil when none exists.
func (s *MemoryScoreStore) GetScore(_ context.Context, postID string) (*Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	score, ok := s.scores[postID]
	if !ok {
		return nil, nil
	}
	cp := score
	return &cp, nil
}

// TopScores returns up to limit positive scores, highest first, with
// last-calculated recency as the tie-breaker.
func (s *MemoryScoreStore) TopScores(_ context.Context, limit int) ([]Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var top []Score
	for _, score := range s.scores {
		if score.Score > 0 {
			top = append(top, score)
		}
	}
	sortScores(top)
	if limit > 0 && len(top) > limit {
		top = top[:limit]
	}
	return top, nil
}

// BumpViewCount increments the stored view counter for a post, creating a
// zero-score record when none exists.
func (s *MemoryScoreStore) BumpViewCount(_ context.Context, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	score := s.scores[postID]
	score.PostID = postID
	score.ViewCount++
	s.scores[postID] = score
	return nil
}

func sortScores(scores []Score) {
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].LastCalculated.After(scores[j].LastCalculated)
	})
}
