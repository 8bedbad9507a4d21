package trending

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresScoreStore implements ScoreStore on PostgreSQL. Scores are derived
// records, overwritten wholesale on every recalculation.
type PostgresScoreStore struct {
	db *sql.DB
}

// NewPostgresScoreStore creates a PostgresScoreStore.
func NewPostgresScoreStore(db *sql.DB) *PostgresScoreStore {
	return &PostgresScoreStore{db: db}
}

// SaveScore overwrites the score for a post wholesale.
func (s *PostgresScoreStore) SaveScore(ctx context.Context, score Score) error {
	query := `
		INSERT INTO trending_scores
			(post_id, score, view_count, like_count, comment_count, share_count, formula, last_calculated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (post_id) DO UPDATE SET
			score = EXCLUDED.score,
			view_count = EXCLUDED.view_count,
			like_count = EXCLUDED.like_count,
			comment_count = EXCLUDED.comment_count,
			share_count = EXCLUDED.share_count,
			formula = EXCLUDED.formula,
			last_calculated = EXCLUDED.last_calculated
	`
	_, err := s.db.ExecContext(ctx, query,
		score.PostID, score.Score, score.ViewCount, score.LikeCount,
		score.CommentCount, score.ShareCount, score.Formula, score.LastCalculated)
	if err != nil {
		return fmt.Errorf("failed to save score: %w", err)
	}
	return nil
}

// GetScore retrieves a score by post ID, or nil when none exists.
func (s *PostgresScoreStore) GetScore(ctx context.Context, postID string) (*Score, error) {
	query := `
		SELECT post_id, score, view_count, like_count, comment_count, share_count, formula, last_calculated
		FROM trending_scores
		WHERE post_id = $1
	`
	var sc Score
	err := s.db.QueryRowContext(ctx, query, postID).Scan(
		&sc.PostID, &sc.Score, &sc.ViewCount, &sc.LikeCount,
		&sc.CommentCount, &sc.ShareCount, &sc.Formula, &sc.LastCalculated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get score: %w", err)
	}
	return &sc, nil
}

// TopScores returns up to limit scores with Score > 0, ordered by score
// descending.
func (s *PostgresScoreStore) TopScores(ctx context.Context, limit int) ([]Score, error) {
	query := `
		SELECT post_id, score, view_count, like_count, comment_count, share_count, formula, last_calculated
		FROM trending_scores
		WHERE score > 0
		ORDER BY score DESC, post_id ASC
		LIMIT CASE WHEN $1 > 0 THEN $1 ELSE NULL END
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list top scores: %w", err)
	}
	defer rows.Close()

	var scores []Score
	for rows.Next() {
		var sc Score
		if err := rows.Scan(&sc.PostID, &sc.Score, &sc.ViewCount, &sc.LikeCount,
			&sc.CommentCount, &sc.ShareCount, &sc.Formula, &sc.LastCalculated); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		scores = append(scores, sc)
	}
	return scores, rows.Err()
}

// BumpViewCount increments the stored view counter without touching the
// score. A missing row is created with just the counter; the next sweep
// fills in the rest.
func (s *PostgresScoreStore) BumpViewCount(ctx context.Context, postID string) error {
	query := `
		INSERT INTO trending_scores (post_id, view_count, last_calculated)
		VALUES ($1, 1, NOW())
		ON CONFLICT (post_id) DO UPDATE SET
			view_count = trending_scores.view_count + 1
	`
	if _, err := s.db.ExecContext(ctx, query, postID); err != nil {
		return fmt.Errorf("failed to bump view count: %w", err)
	}
	return nil
}
