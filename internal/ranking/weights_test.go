package ranking

import (
	"math"
	"testing"
	"time"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestTierScore(t *testing.T) {
	tiers := FollowingRecencyTiers()

	tests := []struct {
		name string
		age  time.Duration
		want float64
	}{
		{"brand new", time.Hour, 20},
		{"exactly one day", 24 * time.Hour, 20},
		{"two days", 40 * time.Hour, 15},
		{"one week", 6 * 24 * time.Hour, 10},
		{"three weeks", 21 * 24 * time.Hour, 5},
		{"ancient", 90 * 24 * time.Hour, FollowingRecencyFallback},
		{"negative clamped", -time.Hour, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TierScore(tt.age, tiers, FollowingRecencyFallback)
			if got != tt.want {
				t.Errorf("TierScore(%v) = %v, want %v", tt.age, got, tt.want)
			}
		})
	}
}

func TestRecommendedRecencyTiers(t *testing.T) {
	tiers := RecommendedRecencyTiers()

	tests := []struct {
		name string
		age  time.Duration
		want float64
	}{
		{"same day", 12 * time.Hour, 15},
		{"exactly two days", 48 * time.Hour, 10},
		{"sixty hours", 60 * time.Hour, 5},
		{"five days", 5 * 24 * time.Hour, 5},
		{"two weeks", 14 * 24 * time.Hour, RecommendedRecencyFallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TierScore(tt.age, tiers, RecommendedRecencyFallback)
			if got != tt.want {
				t.Errorf("TierScore(%v) = %v, want %v", tt.age, got, tt.want)
			}
		})
	}
}

func TestDiscoverRecencyTiers(t *testing.T) {
	tiers := DiscoverRecencyTiers()

	tests := []struct {
		name string
		age  time.Duration
		want float64
	}{
		{"same day", 6 * time.Hour, 0.7},
		{"five days", 5 * 24 * time.Hour, 0.7},
		{"exactly one week", 7 * 24 * time.Hour, 0.7},
		{"twenty days", 20 * 24 * time.Hour, 0.5},
		{"two months", 60 * 24 * time.Hour, DiscoverRecencyFallback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TierScore(tt.age, tiers, DiscoverRecencyFallback)
			if got != tt.want {
				t.Errorf("TierScore(%v) = %v, want %v", tt.age, got, tt.want)
			}
		})
	}
}

func TestTierScore_NonIncreasing(t *testing.T) {
	sets := map[string]struct {
		tiers    []RecencyTier
		fallback float64
	}{
		"following":   {FollowingRecencyTiers(), FollowingRecencyFallback},
		"recommended": {RecommendedRecencyTiers(), RecommendedRecencyFallback},
		"discover":    {DiscoverRecencyTiers(), DiscoverRecencyFallback},
		"search":      {SearchRecencyTiers(), SearchRecencyFallback},
	}

	for name, set := range sets {
		t.Run(name, func(t *testing.T) {
			prev := math.Inf(1)
			for age := time.Duration(0); age <= 60*24*time.Hour; age += 6 * time.Hour {
				score := TierScore(age, set.tiers, set.fallback)
				if score > prev {
					t.Fatalf("Score increased with age at %v: %v > %v", age, score, prev)
				}
				prev = score
			}
		})
	}
}

func TestCompositeScoreFollowing_DefaultWeights(t *testing.T) {
	params := SectionParams{
		Base:            10,
		Recency:         20,
		Interaction:     4,
		Personalization: 2,
	}

	// 0.3*10 + 0.4*20 + 0.2*4 + 0.1*2 = 3 + 8 + 0.8 + 0.2 = 12
	got := CompositeScoreFollowing(params, nil)
	if !almostEqual(got, 12.0) {
		t.Errorf("Expected 12.0, got %v", got)
	}
}

func TestCompositeScoreRecommended_DefaultWeights(t *testing.T) {
	params := SectionParams{
		Base:     5,
		Recency:  10,
		Interest: 8,
		Trending: 3,
	}

	// 0.2*5 + 0.2*10 + 0.5*8 + 0.1*3 = 1 + 2 + 4 + 0.3 = 7.3
	got := CompositeScoreRecommended(params, nil)
	if !almostEqual(got, 7.3) {
		t.Errorf("Expected 7.3, got %v", got)
	}
}

func TestCompositeScoreDiscover_DefaultWeights(t *testing.T) {
	// 0.7*0.5 + 0.3*0.7 = 0.35 + 0.21 = 0.56
	got := CompositeScoreDiscover(0.5, 0.7, nil)
	if !almostEqual(got, 0.56) {
		t.Errorf("Expected 0.56, got %v", got)
	}
}

func TestCompositeScore_CustomWeights(t *testing.T) {
	w := &Weights{
		Following: FollowingWeights{Base: 1.0},
	}

	got := CompositeScoreFollowing(SectionParams{Base: 7, Recency: 100}, w)
	if !almostEqual(got, 7.0) {
		t.Errorf("Expected base-only score 7.0, got %v", got)
	}
}
