// Package affinity maintains per-user taste models: content preferences
// (type and tag weights) and an interest graph over other users. Both are
// derived records recomputed wholesale from interaction history.
package affinity

import (
	"context"
	"sync"
	"time"
)

// Weight bounds for preference fields.
const (
	MinWeight = 0
	MaxWeight = 100
)

// Staleness thresholds for lazy refresh.
const (
	PreferenceMaxAge = 7 * 24 * time.Hour
	GraphMaxAge      = 24 * time.Hour
)

// ContentPreference holds a user's derived taste weights. All weights are
// bounded to [0, 100]; ClampWeights enforces the bound at the type boundary.
type ContentPreference struct {
	UserID          string         `json:"user_id"`
	NewsWeight      int            `json:"news_weight"`
	AudioWeight     int            `json:"audio_weight"`
	RecencyWeight   int            `json:"recency_weight"`
	DiversityWeight int            `json:"diversity_weight"`
	TagWeights      map[string]int `json:"tag_weights"`
	LastUpdated     time.Time      `json:"last_updated"`
}

// ClampWeights forces every weight into [0, 100].
func (p *ContentPreference) ClampWeights() {
	p.NewsWeight = clampWeight(p.NewsWeight)
	p.AudioWeight = clampWeight(p.AudioWeight)
	p.RecencyWeight = clampWeight(p.RecencyWeight)
	p.DiversityWeight = clampWeight(p.DiversityWeight)
	for tag, w := range p.TagWeights {
		p.TagWeights[tag] = clampWeight(w)
	}
}

// Stale reports whether the preference needs recomputation.
func (p *ContentPreference) Stale(now time.Time) bool {
	return now.Sub(p.LastUpdated) > PreferenceMaxAge
}

func clampWeight(w int) int {
	if w < MinWeight {
		return MinWeight
	}
	if w > MaxWeight {
		return MaxWeight
	}
	return w
}

// InterestGraph is a user's weighted adjacency to other users. Self-edges
// are forbidden; StripSelfEdge enforces the invariant before every save.
type InterestGraph struct {
	UserID      string             `json:"user_id"`
	Edges       map[string]float64 `json:"edges"`
	LastUpdated time.Time          `json:"last_updated"`
}

// StripSelfEdge removes any edge pointing back at the owning user.
func (g *InterestGraph) StripSelfEdge() {
	delete(g.Edges, g.UserID)
}

// Stale reports whether the graph needs recomputation.
func (g *InterestGraph) Stale(now time.Time) bool {
	return now.Sub(g.LastUpdated) > GraphMaxAge
}

// PreferenceStore persists content preferences.
type PreferenceStore interface {
	// SavePreference overwrites a user's preference wholesale.
	SavePreference(ctx context.Context, pref ContentPreference) error
	// GetPreference retrieves a preference, or nil when none exists.
	GetPreference(ctx context.Context, userID string) (*ContentPreference, error)
}

// GraphStore persists interest graphs.
type GraphStore interface {
	// SaveGraph overwrites a user's graph wholesale.
	SaveGraph(ctx context.Context, graph InterestGraph) error
	// GetGraph retrieves a graph, or nil when none exists.
	GetGraph(ctx context.Context, userID string) (*InterestGraph, error)
}

// MemoryPreferenceStore is a thread-safe in-memory PreferenceStore.
type MemoryPreferenceStore struct {
	mu    sync.RWMutex
	prefs map[string]ContentPreference
}

// NewMemoryPreferenceStore creates an empty in-memory preference store.
func NewMemoryPreferenceStore() *MemoryPreferenceStore {
	return &MemoryPreferenceStore{prefs: make(map[string]ContentPreference)}
}

// SavePreference overwrites a user's preference.
func (s *MemoryPreferenceStore) SavePreference(_ context.Context, pref ContentPreference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := pref
	cp.TagWeights = copyIntMap(pref.TagWeights)
	s.prefs[pref.UserID] = cp
	return nil
}

// GetPreference retrieves a preference, or nil when none exists.
func (s *MemoryPreferenceStore) GetPreference(_ context.Context, userID string) (*ContentPreference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pref, ok := s.prefs[userID]
	if !ok {
		return nil, nil
	}
	cp := pref
	cp.TagWeights = copyIntMap(pref.TagWeights)
	return &cp, nil
}

// MemoryGraphStore is a thread-safe in-memory GraphStore.
type MemoryGraphStore struct {
	mu     sync.RWMutex
	graphs map[string]InterestGraph
}

// NewMemoryGraphStore creates an empty in-memory graph store.
func NewMemoryGraphStore() *MemoryGraphStore {
	return &MemoryGraphStore{graphs: make(map[string]InterestGraph)}
}

// SaveGraph overwrites a user's graph.
func (s *MemoryGraphStore) SaveGraph(_ context.Context, graph InterestGraph) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := graph
	cp.Edges = copyFloatMap(graph.Edges)
	s.graphs[graph.UserID] = cp
	return nil
}

// GetGraph retrieves a graph, or nil when none exists.
func (s *MemoryGraphStore) GetGraph(_ context.Context, userID string) (*InterestGraph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	graph, ok := s.graphs[userID]
	if !ok {
		return nil, nil
	}
	cp := graph
	cp.Edges = copyFloatMap(graph.Edges)
	return &cp, nil
}

func copyIntMap(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	cp := make(map[string]int, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

func copyFloatMap(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	cp := make(map[string]float64, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
