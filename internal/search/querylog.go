package search

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/echolabs/echofeed/internal/cache"
)

// Trending-searches aggregation bounds.
const (
	// TrendingSearchWindow is how far back the aggregation looks.
	TrendingSearchWindow = 7 * 24 * time.Hour
	// DefaultTrendingSearchLimit caps the returned query list.
	DefaultTrendingSearchLimit = 10
)

// QueryLogEntry is one logged search. Entries are append-only; this service
// never reads them back except for the trending aggregation.
type QueryLogEntry struct {
	Query     string    `json:"query"`
	UserID    string    `json:"user_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// QueryCount pairs a query string with its occurrence count.
type QueryCount struct {
	Query string `json:"query"`
	Count int    `json:"count"`
}

// QueryLog persists search queries.
type QueryLog interface {
	Append(ctx context.Context, entry QueryLogEntry) error
	// TopQueries returns the most frequent queries logged at or after
	// since, most frequent first.
	TopQueries(ctx context.Context, since time.Time, limit int) ([]QueryCount, error)
}

// MemoryQueryLog is a thread-safe in-memory QueryLog.
type MemoryQueryLog struct {
	mu      sync.RWMutex
	entries []QueryLogEntry
}

// NewMemoryQueryLog creates an empty in-memory query log.
func NewMemoryQueryLog() *MemoryQueryLog {
	return &MemoryQueryLog{}
}

// Append records a query.
func (l *MemoryQueryLog) Append(_ context.Context, entry QueryLogEntry) error {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
	return nil
}

// TopQueries aggregates entry counts at or after since.
func (l *MemoryQueryLog) TopQueries(_ context.Context, since time.Time, limit int) ([]QueryCount, error) {
	l.mu.RLock()
	counts := make(map[string]int)
	for _, e := range l.entries {
		if !e.CreatedAt.Before(since) {
			counts[e.Query]++
		}
	}
	l.mu.RUnlock()

	top := make([]QueryCount, 0, len(counts))
	for q, c := range counts {
		top = append(top, QueryCount{Query: q, Count: c})
	}
	sort.Slice(top, func(i, j int) bool {
		if top[i].Count != top[j].Count {
			return top[i].Count > top[j].Count
		}
		return top[i].Query < top[j].Query
	})
	if limit > 0 && len(top) > limit {
		top = top[:limit]
	}
	return top, nil
}

// PostgresQueryLog persists search queries in the search_queries table.
type PostgresQueryLog struct {
	db *sql.DB
}

// NewPostgresQueryLog creates a query log on top of an existing connection
// pool.
func NewPostgresQueryLog(db *sql.DB) *PostgresQueryLog {
	return &PostgresQueryLog{db: db}
}

// Append records a query.
func (l *PostgresQueryLog) Append(ctx context.Context, entry QueryLogEntry) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO search_queries (query, user_id, created_at)
		VALUES ($1, NULLIF($2, ''), $3)`,
		entry.Query, entry.UserID, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append search query: %w", err)
	}
	return nil
}

// TopQueries aggregates query counts at or after since.
func (l *PostgresQueryLog) TopQueries(ctx context.Context, since time.Time, limit int) ([]QueryCount, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT query, COUNT(*) AS hits
		FROM search_queries
		WHERE created_at >= $1
		GROUP BY query
		ORDER BY hits DESC, query ASC
		LIMIT $2`,
		since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate search queries: %w", err)
	}
	defer rows.Close()

	var top []QueryCount
	for rows.Next() {
		var qc QueryCount
		if err := rows.Scan(&qc.Query, &qc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan query count: %w", err)
		}
		top = append(top, qc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate query counts: %w", err)
	}
	return top, nil
}

// TrendingSearches returns the most frequent queries of the last week,
// cached for an hour.
func (r *Ranker) TrendingSearches(ctx context.Context, limit int) ([]QueryCount, error) {
	if r.querylog == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = DefaultTrendingSearchLimit
	}

	key := cache.TrendingSearchesKey()
	if r.cache != nil {
		var cached []QueryCount
		found, err := r.cache.Get(ctx, key, &cached)
		if err != nil {
			r.logger.Warn("trending searches cache read failed, recomputing", "error", err)
		}
		if found {
			if len(cached) > limit {
				cached = cached[:limit]
			}
			return cached, nil
		}
	}

	since := r.now().Add(-TrendingSearchWindow)
	top, err := r.querylog.TopQueries(ctx, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load trending searches: %w", err)
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, top, cache.DefaultTrendingSearchesTTL); err != nil {
			r.logger.Warn("trending searches cache write failed, skipping", "error", err)
		}
	}
	return top, nil
}
