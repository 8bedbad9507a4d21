package affinity

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/echolabs/echofeed/internal/store"
)

// Source provides the interaction history the affinity models read.
// store.InteractionStore satisfies it.
type Source interface {
	InteractionCountsByType(ctx context.Context, userID string) (map[store.PostType]int, error)
	ViewCountsByType(ctx context.Context, userID string) (map[store.PostType]int, error)
	TagCounts(ctx context.Context, userID string) (map[string]int, error)
	LikedPostIDs(ctx context.Context, userID string) ([]string, error)
	LikerIDs(ctx context.Context, postID string) ([]string, error)
	CommonInteractors(ctx context.Context, userID string, limit int) ([]store.CommonInteractor, error)
	Following(ctx context.Context, userID string) ([]string, error)
	Followers(ctx context.Context, userID string) ([]string, error)
	ListUsers(ctx context.Context, excludeIDs []string, limit int) ([]*store.User, error)
}

// Model computes and serves per-user affinity records.
type Model struct {
	source Source
	prefs  PreferenceStore
	graphs GraphStore
	logger *slog.Logger

	// now and randFloat are swappable for tests.
	now       func() time.Time
	randFloat func() float64
}

// NewModel creates an affinity model.
func NewModel(source Source, prefs PreferenceStore, graphs GraphStore, logger *slog.Logger) *Model {
	if logger == nil {
		logger = slog.Default()
	}
	return &Model{
		source:    source,
		prefs:     prefs,
		graphs:    graphs,
		logger:    logger,
		now:       time.Now,
		randFloat: rand.Float64,
	}
}

// defaultPreference is the record used before any history exists. Weights
// split evenly between the two types.
func defaultPreference(userID string, now time.Time) ContentPreference {
	return ContentPreference{
		UserID:          userID,
		NewsWeight:      50,
		AudioWeight:     50,
		RecencyWeight:   50,
		DiversityWeight: 50,
		TagWeights:      map[string]int{},
		LastUpdated:     now,
	}
}

// GetPreference returns the user's content preference, computing it on first
// access and recomputing when older than PreferenceMaxAge.
func (m *Model) GetPreference(ctx context.Context, userID string) (*ContentPreference, error) {
	existing, err := m.prefs.GetPreference(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load preference: %w", err)
	}
	if existing != nil && !existing.Stale(m.now()) {
		return existing, nil
	}
	return m.UpdatePreference(ctx, userID)
}

// UpdatePreference recomputes the user's preference from interaction history
// and stores it wholesale. Interaction counts take precedence over view
// counts when both exist.
func (m *Model) UpdatePreference(ctx context.Context, userID string) (*ContentPreference, error) {
	counts, err := m.source.InteractionCountsByType(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count interactions by type: %w", err)
	}
	if total(counts) == 0 {
		counts, err = m.source.ViewCountsByType(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to count views by type: %w", err)
		}
	}

	pref := defaultPreference(userID, m.now())
	if t := total(counts); t > 0 {
		pref.NewsWeight = counts[store.PostTypeNews] * 100 / t
		pref.AudioWeight = counts[store.PostTypeAudio] * 100 / t
	}

	tags, err := m.source.TagCounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count tags: %w", err)
	}
	if maxCount := maxValue(tags); maxCount > 0 {
		for tag, count := range tags {
			pref.TagWeights[tag] = count * 100 / maxCount
		}
	}

	pref.ClampWeights()
	if err := m.prefs.SavePreference(ctx, pref); err != nil {
		return nil, fmt.Errorf("failed to save preference: %w", err)
	}

	m.logger.Debug("content preference updated",
		"user_id", userID,
		"news_weight", pref.NewsWeight,
		"audio_weight", pref.AudioWeight,
		"tags", len(pref.TagWeights))

	return &pref, nil
}

func total(counts map[store.PostType]int) int {
	sum := 0
	for _, c := range counts {
		sum += c
	}
	return sum
}

func maxValue(m map[string]int) int {
	best := 0
	for _, v := range m {
		if v > best {
			best = v
		}
	}
	return best
}
