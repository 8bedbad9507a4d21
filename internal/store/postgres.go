package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// PostgresStore implements InteractionStore on PostgreSQL via database/sql.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a PostgresStore.
func NewPostgresStore(db *sql.DB, logger *slog.Logger) *PostgresStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresStore{db: db, logger: logger}
}

// GetPost retrieves a post by ID.
func (s *PostgresStore) GetPost(ctx context.Context, id string) (*Post, error) {
	query := `
		SELECT id, author_id, type, title, description, tags, created_at
		FROM posts
		WHERE id = $1
	`
	var p Post
	var tags pq.StringArray
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.AuthorID, &p.Type, &p.Title, &p.Description, &tags, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	p.Tags = []string(tags)
	return &p, nil
}

// ListPosts returns posts matching the filter, newest first.
func (s *PostgresStore) ListPosts(ctx context.Context, f PostFilter) ([]*Post, error) {
	query := `
		SELECT id, author_id, type, title, description, tags, created_at
		FROM posts
		WHERE ($1 = '' OR type = $1)
		  AND (cardinality($2::text[]) = 0 OR author_id = ANY($2))
		  AND NOT (author_id = ANY($3))
		  AND NOT (id = ANY($4))
		ORDER BY created_at DESC, id ASC
		LIMIT CASE WHEN $5 > 0 THEN $5 ELSE NULL END
	`
	rows, err := s.db.QueryContext(ctx, query,
		string(f.Type),
		pq.Array(emptyNotNil(f.AuthorIDs)),
		pq.Array(emptyNotNil(f.ExcludeAuthorIDs)),
		pq.Array(emptyNotNil(f.ExcludeIDs)),
		f.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []*Post
	for rows.Next() {
		var p Post
		var tags pq.StringArray
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.Type, &p.Title, &p.Description, &tags, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		p.Tags = []string(tags)
		posts = append(posts, &p)
	}
	return posts, rows.Err()
}

// CountPosts returns the number of posts matching the filter.
func (s *PostgresStore) CountPosts(ctx context.Context, f PostFilter) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM posts
		WHERE ($1 = '' OR type = $1)
		  AND (cardinality($2::text[]) = 0 OR author_id = ANY($2))
		  AND NOT (author_id = ANY($3))
		  AND NOT (id = ANY($4))
	`
	var count int
	err := s.db.QueryRowContext(ctx, query,
		string(f.Type),
		pq.Array(emptyNotNil(f.AuthorIDs)),
		pq.Array(emptyNotNil(f.ExcludeAuthorIDs)),
		pq.Array(emptyNotNil(f.ExcludeIDs))).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return count, nil
}

// ListActivePostIDs returns post IDs ordered by interaction count since the
// given time, most active first, then newest.
func (s *PostgresStore) ListActivePostIDs(ctx context.Context, since time.Time, limit int) ([]string, error) {
	query := `
		SELECT p.id
		FROM posts p
		LEFT JOIN interactions i ON i.post_id = p.id AND i.created_at >= $1
		GROUP BY p.id, p.created_at
		ORDER BY COUNT(i.post_id) DESC, p.created_at DESC, p.id ASC
		LIMIT CASE WHEN $2 > 0 THEN $2 ELSE NULL END
	`
	rows, err := s.db.QueryContext(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list active posts: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// GetUser retrieves a user by ID.
func (s *PostgresStore) GetUser(ctx context.Context, id string) (*User, error) {
	query := `
		SELECT id, username, first_name, last_name, bio, created_at
		FROM users
		WHERE id = $1
	`
	var u User
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Bio, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// ListUsers returns up to limit users excluding the given IDs.
func (s *PostgresStore) ListUsers(ctx context.Context, excludeIDs []string, limit int) ([]*User, error) {
	query := `
		SELECT id, username, first_name, last_name, bio, created_at
		FROM users
		WHERE NOT (id = ANY($1))
		ORDER BY id ASC
		LIMIT CASE WHEN $2 > 0 THEN $2 ELSE NULL END
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(emptyNotNil(excludeIDs)), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Bio, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

// CountLikes counts LIKE interactions on a post at or after since.
func (s *PostgresStore) CountLikes(ctx context.Context, postID string, since time.Time) (int, error) {
	return s.countInteractionsSince(ctx, postID, InteractionLike, since)
}

// CountComments counts comments on a post at or after since.
func (s *PostgresStore) CountComments(ctx context.Context, postID string, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM comments WHERE post_id = $1 AND created_at >= $2`
	var count int
	if err := s.db.QueryRowContext(ctx, query, postID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}
	return count, nil
}

// CountViews counts views of a post at or after since.
func (s *PostgresStore) CountViews(ctx context.Context, postID string, since time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM views WHERE post_id = $1 AND created_at >= $2`
	var count int
	if err := s.db.QueryRowContext(ctx, query, postID, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count views: %w", err)
	}
	return count, nil
}

// CountInteractions counts interactions of the given kind on a post.
func (s *PostgresStore) CountInteractions(ctx context.Context, postID string, kind InteractionKind) (int, error) {
	return s.countInteractionsSince(ctx, postID, kind, time.Time{})
}

func (s *PostgresStore) countInteractionsSince(ctx context.Context, postID string, kind InteractionKind, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM interactions
		WHERE post_id = $1 AND kind = $2 AND created_at >= $3
	`
	var count int
	if err := s.db.QueryRowContext(ctx, query, postID, string(kind), since).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count interactions: %w", err)
	}
	return count, nil
}

// LikerIDs returns the IDs of users who liked the post.
func (s *PostgresStore) LikerIDs(ctx context.Context, postID string) ([]string, error) {
	query := `
		SELECT user_id FROM interactions
		WHERE post_id = $1 AND kind = 'LIKE'
		ORDER BY user_id
	`
	rows, err := s.db.QueryContext(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list likers: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// LikedPostIDs returns the IDs of posts the user liked.
func (s *PostgresStore) LikedPostIDs(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT post_id FROM interactions
		WHERE user_id = $1 AND kind = 'LIKE'
		ORDER BY post_id
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list liked posts: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// InteractedPostIDs returns the IDs of posts the user liked or saved.
func (s *PostgresStore) InteractedPostIDs(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT DISTINCT post_id FROM interactions
		WHERE user_id = $1 AND kind IN ('LIKE', 'SAVE')
		ORDER BY post_id
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list interacted posts: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// CommonInteractors returns other users sharing liked/saved posts with the
// user, ordered by shared count descending.
func (s *PostgresStore) CommonInteractors(ctx context.Context, userID string, limit int) ([]CommonInteractor, error) {
	query := `
		SELECT other.user_id, COUNT(*) AS shared
		FROM interactions mine
		JOIN interactions other
		  ON other.post_id = mine.post_id
		 AND other.user_id != mine.user_id
		 AND other.kind IN ('LIKE', 'SAVE')
		WHERE mine.user_id = $1 AND mine.kind IN ('LIKE', 'SAVE')
		GROUP BY other.user_id
		ORDER BY shared DESC, other.user_id ASC
		LIMIT CASE WHEN $2 > 0 THEN $2 ELSE NULL END
	`
	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list common interactors: %w", err)
	}
	defer rows.Close()

	var results []CommonInteractor
	for rows.Next() {
		var ci CommonInteractor
		if err := rows.Scan(&ci.UserID, &ci.Count); err != nil {
			return nil, fmt.Errorf("failed to scan common interactor: %w", err)
		}
		results = append(results, ci)
	}
	return results, rows.Err()
}

// Following returns the IDs of users the given user follows.
func (s *PostgresStore) Following(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT followed_id FROM follows WHERE follower_id = $1 ORDER BY followed_id`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list following: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// Followers returns the IDs of users following the given user.
func (s *PostgresStore) Followers(ctx context.Context, userID string) ([]string, error) {
	query := `SELECT follower_id FROM follows WHERE followed_id = $1 ORDER BY follower_id`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list followers: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// UserActivity returns post/comment/follower counts for a user.
func (s *PostgresStore) UserActivity(ctx context.Context, userID string) (UserActivity, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM posts WHERE author_id = $1),
			(SELECT COUNT(*) FROM comments WHERE author_id = $1),
			(SELECT COUNT(*) FROM follows WHERE followed_id = $1)
	`
	var a UserActivity
	if err := s.db.QueryRowContext(ctx, query, userID).Scan(&a.Posts, &a.Comments, &a.Followers); err != nil {
		return UserActivity{}, fmt.Errorf("failed to load user activity: %w", err)
	}
	return a, nil
}

// InteractionCountsByType counts the user's interactions by post type.
func (s *PostgresStore) InteractionCountsByType(ctx context.Context, userID string) (map[PostType]int, error) {
	query := `
		SELECT p.type, COUNT(*)
		FROM interactions i
		JOIN posts p ON p.id = i.post_id
		WHERE i.user_id = $1
		GROUP BY p.type
	`
	return s.countsByType(ctx, query, userID)
}

// ViewCountsByType counts the user's views by post type.
func (s *PostgresStore) ViewCountsByType(ctx context.Context, userID string) (map[PostType]int, error) {
	query := `
		SELECT p.type, COUNT(*)
		FROM views v
		JOIN posts p ON p.id = v.post_id
		WHERE v.user_id = $1
		GROUP BY p.type
	`
	return s.countsByType(ctx, query, userID)
}

func (s *PostgresStore) countsByType(ctx context.Context, query, userID string) (map[PostType]int, error) {
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count by type: %w", err)
	}
	defer rows.Close()

	counts := make(map[PostType]int)
	for rows.Next() {
		var typ string
		var count int
		if err := rows.Scan(&typ, &count); err != nil {
			return nil, fmt.Errorf("failed to scan type count: %w", err)
		}
		counts[PostType(typ)] = count
	}
	return counts, rows.Err()
}

// TagCounts counts tags across posts the user interacted with.
func (s *PostgresStore) TagCounts(ctx context.Context, userID string) (map[string]int, error) {
	query := `
		SELECT tag, COUNT(*)
		FROM interactions i
		JOIN posts p ON p.id = i.post_id,
		UNNEST(p.tags) AS tag
		WHERE i.user_id = $1
		GROUP BY tag
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count tags: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var tag string
		var count int
		if err := rows.Scan(&tag, &count); err != nil {
			return nil, fmt.Errorf("failed to scan tag count: %w", err)
		}
		counts[tag] = count
	}
	return counts, rows.Err()
}

// AddInteraction appends an interaction fact; duplicates are ignored.
func (s *PostgresStore) AddInteraction(ctx context.Context, in Interaction) error {
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO interactions (user_id, post_id, kind, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, post_id, kind) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, in.UserID, in.PostID, string(in.Kind), in.CreatedAt); err != nil {
		return fmt.Errorf("failed to add interaction: %w", err)
	}
	return nil
}

// RecordView records a view or updates its duration in place.
func (s *PostgresStore) RecordView(ctx context.Context, v View) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	query := `
		INSERT INTO views (post_id, user_id, created_at, duration)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (post_id, user_id) DO UPDATE
		SET duration = CASE WHEN EXCLUDED.duration > 0 THEN EXCLUDED.duration ELSE views.duration END
	`
	if _, err := s.db.ExecContext(ctx, query, v.PostID, v.UserID, v.CreatedAt, v.Duration); err != nil {
		return fmt.Errorf("failed to record view: %w", err)
	}
	return nil
}

// emptyNotNil keeps pq.Array from sending NULL for empty slices.
func emptyNotNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
