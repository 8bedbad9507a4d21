package trending

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/echolabs/echofeed/internal/store"
)

// EngagementSource provides the engagement facts scoring consumes.
// store.InteractionStore satisfies it.
type EngagementSource interface {
	GetPost(ctx context.Context, id string) (*store.Post, error)
	CountLikes(ctx context.Context, postID string, since time.Time) (int, error)
	CountComments(ctx context.Context, postID string, since time.Time) (int, error)
	CountViews(ctx context.Context, postID string, since time.Time) (int, error)
	CountInteractions(ctx context.Context, postID string, kind store.InteractionKind) (int, error)
}

// Scorer recalculates trending scores with a fixed formula. Use one scorer
// per formula: the sweep runs a batch scorer, engagement handlers run an
// incremental one.
type Scorer struct {
	source  EngagementSource
	scores  ScoreStore
	formula Formula
	logger  *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewScorer creates a scorer. A nil formula defaults to BatchFormula.
func NewScorer(source EngagementSource, scores ScoreStore, formula Formula, logger *slog.Logger) *Scorer {
	if formula == nil {
		formula = BatchFormula{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{
		source:  source,
		scores:  scores,
		formula: formula,
		logger:  logger,
		now:     time.Now,
	}
}

// Recalculate recomputes and stores the trending score for a post. The
// stored record is overwritten wholesale. Recalculating twice over frozen
// engagement data yields equal scores.
func (s *Scorer) Recalculate(ctx context.Context, postID string) (*Score, error) {
	post, err := s.source.GetPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to load post for scoring: %w", err)
	}

	now := s.now()
	counts, err := s.gatherCounts(ctx, postID, now)
	if err != nil {
		return nil, err
	}

	score := Score{
		PostID:         postID,
		Score:          s.formula.Score(counts, now.Sub(post.CreatedAt)),
		ViewCount:      counts.ViewsTotal,
		LikeCount:      counts.LikesTotal,
		CommentCount:   counts.CommentsTotal,
		ShareCount:     counts.Shares,
		Formula:        s.formula.Name(),
		LastCalculated: now,
	}

	if err := s.scores.SaveScore(ctx, score); err != nil {
		return nil, fmt.Errorf("failed to save trending score: %w", err)
	}

	s.logger.Debug("trending score recalculated",
		"post_id", postID,
		"score", score.Score,
		"formula", score.Formula)

	return &score, nil
}

// RecordAnonymousView bumps the stored view counter for a post without
// creating a view fact. Anonymous viewers leave no per-user record.
func (s *Scorer) RecordAnonymousView(ctx context.Context, postID string) error {
	return s.scores.BumpViewCount(ctx, postID)
}

// gatherCounts reads cumulative since-counts and splits them into the
// disjoint Day/Week/Month buckets the formulas expect.
func (s *Scorer) gatherCounts(ctx context.Context, postID string, now time.Time) (EngagementCounts, error) {
	var c EngagementCounts

	day := now.Add(-24 * time.Hour)
	week := now.Add(-7 * 24 * time.Hour)
	month := now.Add(-30 * 24 * time.Hour)

	likesDay, likesWeek, likesMonth, likesTotal, err := s.windowedCounts(ctx, s.source.CountLikes, postID, day, week, month)
	if err != nil {
		return c, fmt.Errorf("failed to count likes: %w", err)
	}
	c.LikesDay, c.LikesWeek, c.LikesMonth, c.LikesTotal = likesDay, likesWeek, likesMonth, likesTotal

	commentsDay, commentsWeek, commentsMonth, commentsTotal, err := s.windowedCounts(ctx, s.source.CountComments, postID, day, week, month)
	if err != nil {
		return c, fmt.Errorf("failed to count comments: %w", err)
	}
	c.CommentsDay, c.CommentsWeek, c.CommentsMonth, c.CommentsTotal = commentsDay, commentsWeek, commentsMonth, commentsTotal

	viewsDay, viewsWeek, viewsMonth, viewsTotal, err := s.windowedCounts(ctx, s.source.CountViews, postID, day, week, month)
	if err != nil {
		return c, fmt.Errorf("failed to count views: %w", err)
	}
	c.ViewsDay, c.ViewsWeek, c.ViewsMonth, c.ViewsTotal = viewsDay, viewsWeek, viewsMonth, viewsTotal

	if c.Shares, err = s.source.CountInteractions(ctx, postID, store.InteractionShare); err != nil {
		return c, fmt.Errorf("failed to count shares: %w", err)
	}

	return c, nil
}

type sinceCounter func(ctx context.Context, postID string, since time.Time) (int, error)

func (s *Scorer) windowedCounts(ctx context.Context, count sinceCounter, postID string, day, week, month time.Time) (d, w, m, total int, err error) {
	sinceDay, err := count(ctx, postID, day)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	sinceWeek, err := count(ctx, postID, week)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	sinceMonth, err := count(ctx, postID, month)
	if err != nil {
		return 0, 0, 0, 0, err
	}
	total, err = count(ctx, postID, time.Time{})
	if err != nil {
		return 0, 0, 0, 0, err
	}
	return sinceDay, sinceWeek - sinceDay, sinceMonth - sinceWeek, total, nil
}
