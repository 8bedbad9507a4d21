// Package ranking provides centralized ranking component calculations
// with calibration support for the feed, search and trending features.
package ranking

import (
	"time"
)

// RecencyTier maps a maximum content age to a score.
type RecencyTier struct {
	MaxAge time.Duration
	Score  float64
}

// TierScore returns the score of the first tier whose MaxAge covers the given
// age, or fallback when the age exceeds every tier. Tiers must be ordered by
// ascending MaxAge.
func TierScore(age time.Duration, tiers []RecencyTier, fallback float64) float64 {
	if age < 0 {
		age = 0
	}
	for _, t := range tiers {
		if age <= t.MaxAge {
			return t.Score
		}
	}
	return fallback
}

// FollowingRecencyTiers scores post age for the following feed section.
// Fresh posts dominate the section; month-old posts barely register.
func FollowingRecencyTiers() []RecencyTier {
	return []RecencyTier{
		{MaxAge: 24 * time.Hour, Score: 20},
		{MaxAge: 2 * 24 * time.Hour, Score: 15},
		{MaxAge: 7 * 24 * time.Hour, Score: 10},
		{MaxAge: 30 * 24 * time.Hour, Score: 5},
	}
}

// FollowingRecencyFallback is the score for posts older than every
// following-section tier.
const FollowingRecencyFallback = 1.0

// RecommendedRecencyTiers scores post age for the recommended feed section.
func RecommendedRecencyTiers() []RecencyTier {
	return []RecencyTier{
		{MaxAge: 24 * time.Hour, Score: 15},
		{MaxAge: 48 * time.Hour, Score: 10},
		{MaxAge: 7 * 24 * time.Hour, Score: 5},
	}
}

// RecommendedRecencyFallback is the score for posts older than every
// recommended-section tier.
const RecommendedRecencyFallback = 1.0

// DiscoverRecencyTiers scores post age for the discover feed section, where
// recency is a light nudge on top of the random component.
func DiscoverRecencyTiers() []RecencyTier {
	return []RecencyTier{
		{MaxAge: 7 * 24 * time.Hour, Score: 0.7},
		{MaxAge: 30 * 24 * time.Hour, Score: 0.5},
	}
}

// DiscoverRecencyFallback is the score for posts older than every
// discover-section tier.
const DiscoverRecencyFallback = 0.3

// SearchRecencyTiers is the multiplier applied to post relevance in search
// results.
func SearchRecencyTiers() []RecencyTier {
	return []RecencyTier{
		{MaxAge: 24 * time.Hour, Score: 2.0},
		{MaxAge: 7 * 24 * time.Hour, Score: 1.5},
		{MaxAge: 30 * 24 * time.Hour, Score: 1.0},
	}
}

// SearchRecencyFallback is the relevance multiplier for posts older than
// every search tier.
const SearchRecencyFallback = 0.5

// SectionParams holds the component scores combined into a feed section score.
// Components that a section does not use are left zero.
type SectionParams struct {
	Base            float64 // engagement base (likes + weighted comments)
	Recency         float64 // tiered recency score
	Interaction     float64 // trending-derived interaction score
	Personalization float64 // preference match score
	Interest        float64 // interest-graph author score
	Trending        float64 // raw trending score
}

// CompositeScoreFollowing computes the final score for a following-section
// post.
//
// Default formula: 0.3*base + 0.4*recency + 0.2*interaction + 0.1*personalization
func CompositeScoreFollowing(params SectionParams, weights *Weights) float64 {
	if weights == nil {
		weights = DefaultWeights()
	}
	return params.Base*weights.Following.Base +
		params.Recency*weights.Following.Recency +
		params.Interaction*weights.Following.Interaction +
		params.Personalization*weights.Following.Personalization
}

// CompositeScoreRecommended computes the final score for a
// recommended-section post.
//
// Default formula: 0.2*base + 0.2*recency + 0.5*interest + 0.1*trending
func CompositeScoreRecommended(params SectionParams, weights *Weights) float64 {
	if weights == nil {
		weights = DefaultWeights()
	}
	return params.Base*weights.Recommended.Base +
		params.Recency*weights.Recommended.Recency +
		params.Interest*weights.Recommended.Interest +
		params.Trending*weights.Recommended.Trending
}

// CompositeScoreDiscover computes the final score for a discover-section
// post from a random component in [0, 1) and the tiered recency score.
//
// Default formula: 0.7*random + 0.3*recency
func CompositeScoreDiscover(random, recency float64, weights *Weights) float64 {
	if weights == nil {
		weights = DefaultWeights()
	}
	return random*weights.Discover.Random + recency*weights.Discover.Recency
}
