package affinity

import (
	"context"
	"fmt"
	"sort"
)

// Graph pass weights.
const (
	followWeight       = 10.0
	followerWeight     = 5.0
	coLikeWeight       = 2.0
	secondDegreeWeight = 1.0

	similarUserLimit = 50
	secondDegreeTop  = 20
)

// refreshProbability is the chance a live follow/like event triggers an
// opportunistic graph refresh. Bounds write amplification on hot users.
const refreshProbability = 0.2

// GetGraph returns the user's interest graph, computing it on first access
// and recomputing when older than GraphMaxAge.
func (m *Model) GetGraph(ctx context.Context, userID string) (*InterestGraph, error) {
	existing, err := m.graphs.GetGraph(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load interest graph: %w", err)
	}
	if existing != nil && !existing.Stale(m.now()) {
		return existing, nil
	}
	return m.RecalculateGraph(ctx, userID)
}

// RecalculateGraph rebuilds the user's interest graph from scratch via five
// additive passes and stores it wholesale:
//
//  1. +10 per followed user
//  2. +5 per follower
//  3. +2 per co-liker per co-liked post
//  4. up to 50 interaction-similar users add their shared-post count
//  5. the top 20 accumulated nodes add +1 for everyone they follow
//
// The self-edge is stripped before saving.
func (m *Model) RecalculateGraph(ctx context.Context, userID string) (*InterestGraph, error) {
	edges := make(map[string]float64)

	following, err := m.source.Following(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list following: %w", err)
	}
	for _, id := range following {
		edges[id] += followWeight
	}

	followers, err := m.source.Followers(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list followers: %w", err)
	}
	for _, id := range followers {
		edges[id] += followerWeight
	}

	likedPosts, err := m.source.LikedPostIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list liked posts: %w", err)
	}
	for _, postID := range likedPosts {
		likers, err := m.source.LikerIDs(ctx, postID)
		if err != nil {
			return nil, fmt.Errorf("failed to list likers: %w", err)
		}
		for _, likerID := range likers {
			if likerID != userID {
				edges[likerID] += coLikeWeight
			}
		}
	}

	similar, err := m.source.CommonInteractors(ctx, userID, similarUserLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list similar users: %w", err)
	}
	for _, ci := range similar {
		edges[ci.UserID] += float64(ci.Count)
	}

	for _, nodeID := range topNodes(edges, secondDegreeTop) {
		theirFollowing, err := m.source.Following(ctx, nodeID)
		if err != nil {
			return nil, fmt.Errorf("failed to expand second degree: %w", err)
		}
		for _, id := range theirFollowing {
			if id != userID {
				edges[id] += secondDegreeWeight
			}
		}
	}

	graph := InterestGraph{
		UserID:      userID,
		Edges:       edges,
		LastUpdated: m.now(),
	}
	graph.StripSelfEdge()

	if err := m.graphs.SaveGraph(ctx, graph); err != nil {
		return nil, fmt.Errorf("failed to save interest graph: %w", err)
	}

	m.logger.Debug("interest graph recalculated",
		"user_id", userID,
		"edges", len(graph.Edges))

	return &graph, nil
}

// MaybeRefreshGraph opportunistically recalculates the graph after a live
// follow/like event. Best effort: failures are logged, never returned.
func (m *Model) MaybeRefreshGraph(ctx context.Context, userID string) {
	if m.randFloat() >= refreshProbability {
		return
	}
	if _, err := m.RecalculateGraph(ctx, userID); err != nil {
		m.logger.Warn("opportunistic graph refresh failed",
			"user_id", userID,
			"error", err)
	}
}

// RankedEdge pairs a graph neighbor with its accumulated weight.
type RankedEdge struct {
	UserID string
	Weight float64
}

// RankedEdges returns the graph's edges sorted by weight descending with ID
// tie-breaking for stable ordering.
func (g *InterestGraph) RankedEdges() []RankedEdge {
	ranked := make([]RankedEdge, 0, len(g.Edges))
	for id, w := range g.Edges {
		ranked = append(ranked, RankedEdge{UserID: id, Weight: w})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Weight != ranked[j].Weight {
			return ranked[i].Weight > ranked[j].Weight
		}
		return ranked[i].UserID < ranked[j].UserID
	})
	return ranked
}

// GetSuggestedUsers returns up to limit graph neighbors by descending
// weight, excluding users already followed.
func (m *Model) GetSuggestedUsers(ctx context.Context, userID string, limit int) ([]RankedEdge, error) {
	graph, err := m.GetGraph(ctx, userID)
	if err != nil {
		return nil, err
	}

	following, err := m.source.Following(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list following: %w", err)
	}
	followed := make(map[string]bool, len(following))
	for _, id := range following {
		followed[id] = true
	}

	var suggestions []RankedEdge
	for _, edge := range graph.RankedEdges() {
		if followed[edge.UserID] {
			continue
		}
		suggestions = append(suggestions, edge)
		if limit > 0 && len(suggestions) == limit {
			break
		}
	}
	return suggestions, nil
}

func topNodes(edges map[string]float64, n int) []string {
	ranked := (&InterestGraph{Edges: edges}).RankedEdges()
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	ids := make([]string, len(ranked))
	for i, e := range ranked {
		ids[i] = e.UserID
	}
	return ids
}
