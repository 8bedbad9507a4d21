package affinity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// PostgresPreferenceStore implements PreferenceStore on PostgreSQL.
// Preferences are derived records, overwritten wholesale on every update.
type PostgresPreferenceStore struct {
	db *sql.DB
}

// NewPostgresPreferenceStore creates a PostgresPreferenceStore.
func NewPostgresPreferenceStore(db *sql.DB) *PostgresPreferenceStore {
	return &PostgresPreferenceStore{db: db}
}

// SavePreference overwrites a user's preference wholesale. Tag weights are
// stored as JSONB.
func (s *PostgresPreferenceStore) SavePreference(ctx context.Context, pref ContentPreference) error {
	tagWeights, err := json.Marshal(pref.TagWeights)
	if err != nil {
		return fmt.Errorf("failed to encode tag weights: %w", err)
	}

	query := `
		INSERT INTO content_preferences
			(user_id, news_weight, audio_weight, recency_weight, diversity_weight, tag_weights, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id) DO UPDATE SET
			news_weight = EXCLUDED.news_weight,
			audio_weight = EXCLUDED.audio_weight,
			recency_weight = EXCLUDED.recency_weight,
			diversity_weight = EXCLUDED.diversity_weight,
			tag_weights = EXCLUDED.tag_weights,
			last_updated = EXCLUDED.last_updated
	`
	_, err = s.db.ExecContext(ctx, query,
		pref.UserID, pref.NewsWeight, pref.AudioWeight,
		pref.RecencyWeight, pref.DiversityWeight, tagWeights, pref.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to save preference: %w", err)
	}
	return nil
}

// GetPreference retrieves a preference, or nil when none exists.
func (s *PostgresPreferenceStore) GetPreference(ctx context.Context, userID string) (*ContentPreference, error) {
	query := `
		SELECT user_id, news_weight, audio_weight, recency_weight, diversity_weight, tag_weights, last_updated
		FROM content_preferences
		WHERE user_id = $1
	`
	var pref ContentPreference
	var tagWeights []byte
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&pref.UserID, &pref.NewsWeight, &pref.AudioWeight,
		&pref.RecencyWeight, &pref.DiversityWeight, &tagWeights, &pref.LastUpdated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preference: %w", err)
	}
	if len(tagWeights) > 0 {
		if err := json.Unmarshal(tagWeights, &pref.TagWeights); err != nil {
			return nil, fmt.Errorf("failed to decode tag weights: %w", err)
		}
	}
	return &pref, nil
}

// PostgresGraphStore implements GraphStore on PostgreSQL. Graphs are derived
// records, overwritten wholesale on every recalculation.
type PostgresGraphStore struct {
	db *sql.DB
}

// NewPostgresGraphStore creates a PostgresGraphStore.
func NewPostgresGraphStore(db *sql.DB) *PostgresGraphStore {
	return &PostgresGraphStore{db: db}
}

// SaveGraph overwrites a user's graph wholesale. Edges are stored as JSONB.
func (s *PostgresGraphStore) SaveGraph(ctx context.Context, graph InterestGraph) error {
	edges, err := json.Marshal(graph.Edges)
	if err != nil {
		return fmt.Errorf("failed to encode graph edges: %w", err)
	}

	query := `
		INSERT INTO interest_graphs (user_id, edges, last_updated)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			edges = EXCLUDED.edges,
			last_updated = EXCLUDED.last_updated
	`
	if _, err := s.db.ExecContext(ctx, query, graph.UserID, edges, graph.LastUpdated); err != nil {
		return fmt.Errorf("failed to save graph: %w", err)
	}
	return nil
}

// GetGraph retrieves a graph, or nil when none exists.
func (s *PostgresGraphStore) GetGraph(ctx context.Context, userID string) (*InterestGraph, error) {
	query := `
		SELECT user_id, edges, last_updated
		FROM interest_graphs
		WHERE user_id = $1
	`
	var graph InterestGraph
	var edges []byte
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&graph.UserID, &edges, &graph.LastUpdated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get graph: %w", err)
	}
	if len(edges) > 0 {
		if err := json.Unmarshal(edges, &graph.Edges); err != nil {
			return nil, fmt.Errorf("failed to decode graph edges: %w", err)
		}
	}
	return &graph, nil
}
