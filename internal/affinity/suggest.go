package affinity

import (
	"context"
	"fmt"
	"sort"
)

// Suggestion algorithm names accepted by SuggestUsers.
const (
	AlgorithmGraph   = "graph"
	AlgorithmSimilar = "similar"
	AlgorithmRandom  = "random"
	AlgorithmAll     = "all"
)

// Suggestion algorithm score weights.
const (
	graphSuggestionWeight   = 10.0
	similarSuggestionWeight = 5.0
	randomSuggestionScore   = 1.0
)

// Suggestion is a recommended user with the score and the algorithm that
// produced it.
type Suggestion struct {
	UserID    string  `json:"user_id"`
	Score     float64 `json:"score"`
	Algorithm string  `json:"algorithm"`
}

// ValidAlgorithm reports whether name is a known suggestion algorithm.
func ValidAlgorithm(name string) bool {
	switch name {
	case AlgorithmGraph, AlgorithmSimilar, AlgorithmRandom, AlgorithmAll:
		return true
	}
	return false
}

// SuggestUsers returns up to limit suggested users for the given algorithm.
// "all" blends graph and similar results and fills remaining slots with
// random users. An empty result falls back to random users regardless of
// algorithm.
func (m *Model) SuggestUsers(ctx context.Context, userID string, limit int, algorithm string) ([]Suggestion, error) {
	if limit <= 0 {
		limit = 10
	}
	if algorithm == "" {
		algorithm = AlgorithmAll
	}

	var suggestions []Suggestion
	var err error

	switch algorithm {
	case AlgorithmGraph:
		suggestions, err = m.graphSuggestions(ctx, userID, limit)
	case AlgorithmSimilar:
		suggestions, err = m.similarSuggestions(ctx, userID, limit)
	case AlgorithmRandom:
		suggestions, err = m.randomSuggestions(ctx, userID, limit, nil)
	case AlgorithmAll:
		suggestions, err = m.blendedSuggestions(ctx, userID, limit)
	default:
		return nil, fmt.Errorf("unknown suggestion algorithm: %s", algorithm)
	}
	if err != nil {
		return nil, err
	}

	if len(suggestions) == 0 && algorithm != AlgorithmRandom {
		return m.randomSuggestions(ctx, userID, limit, nil)
	}
	return suggestions, nil
}

// graphSuggestions scores interest-graph neighbors by edge weight.
func (m *Model) graphSuggestions(ctx context.Context, userID string, limit int) ([]Suggestion, error) {
	edges, err := m.GetSuggestedUsers(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	suggestions := make([]Suggestion, 0, len(edges))
	for _, e := range edges {
		suggestions = append(suggestions, Suggestion{
			UserID:    e.UserID,
			Score:     e.Weight * graphSuggestionWeight,
			Algorithm: AlgorithmGraph,
		})
	}
	return suggestions, nil
}

// similarSuggestions ranks friends-of-friends by how many of the user's
// followees follow them.
func (m *Model) similarSuggestions(ctx context.Context, userID string, limit int) ([]Suggestion, error) {
	following, err := m.source.Following(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list following: %w", err)
	}
	followed := make(map[string]bool, len(following))
	for _, id := range following {
		followed[id] = true
	}

	common := make(map[string]int)
	for _, friendID := range following {
		theirFollowing, err := m.source.Following(ctx, friendID)
		if err != nil {
			return nil, fmt.Errorf("failed to expand friends-of-friends: %w", err)
		}
		for _, candidateID := range theirFollowing {
			if candidateID == userID || followed[candidateID] {
				continue
			}
			common[candidateID]++
		}
	}

	suggestions := make([]Suggestion, 0, len(common))
	for id, count := range common {
		suggestions = append(suggestions, Suggestion{
			UserID:    id,
			Score:     float64(count) * similarSuggestionWeight,
			Algorithm: AlgorithmSimilar,
		})
	}
	sortSuggestions(suggestions)
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}

// randomSuggestions fills slots with users not followed and not already
// suggested, all at the baseline score.
func (m *Model) randomSuggestions(ctx context.Context, userID string, limit int, exclude map[string]bool) ([]Suggestion, error) {
	following, err := m.source.Following(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list following: %w", err)
	}

	excludeIDs := append([]string{userID}, following...)
	for id := range exclude {
		excludeIDs = append(excludeIDs, id)
	}

	// Overfetch so the random pick has something to choose from.
	users, err := m.source.ListUsers(ctx, excludeIDs, limit*3)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	// Fisher-Yates over the candidate window.
	for i := len(users) - 1; i > 0; i-- {
		j := int(m.randFloat() * float64(i+1))
		if j > i {
			j = i
		}
		users[i], users[j] = users[j], users[i]
	}
	if len(users) > limit {
		users = users[:limit]
	}

	suggestions := make([]Suggestion, 0, len(users))
	for _, u := range users {
		suggestions = append(suggestions, Suggestion{
			UserID:    u.ID,
			Score:     randomSuggestionScore,
			Algorithm: AlgorithmRandom,
		})
	}
	return suggestions, nil
}

// blendedSuggestions merges graph and similar results, keeping the higher
// score per user, and tops up with random users.
func (m *Model) blendedSuggestions(ctx context.Context, userID string, limit int) ([]Suggestion, error) {
	graph, err := m.graphSuggestions(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	similar, err := m.similarSuggestions(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	best := make(map[string]Suggestion, len(graph)+len(similar))
	for _, s := range append(graph, similar...) {
		if existing, ok := best[s.UserID]; !ok || s.Score > existing.Score {
			best[s.UserID] = s
		}
	}

	suggestions := make([]Suggestion, 0, len(best))
	seen := make(map[string]bool, len(best))
	for _, s := range best {
		suggestions = append(suggestions, s)
		seen[s.UserID] = true
	}
	sortSuggestions(suggestions)
	if len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}

	if len(suggestions) < limit {
		random, err := m.randomSuggestions(ctx, userID, limit-len(suggestions), seen)
		if err != nil {
			return nil, err
		}
		suggestions = append(suggestions, random...)
	}
	return suggestions, nil
}

func sortSuggestions(suggestions []Suggestion) {
	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].UserID < suggestions[j].UserID
	})
}
