package trending

import (
	"math"
	"time"
)

// EngagementCounts holds the windowed engagement facts a formula consumes.
// The Day/Week/Month buckets are disjoint: Day covers the last 24 hours,
// Week covers 1-7 days ago, Month covers 7-30 days ago. Totals cover all
// time, so an event never counts at more than one window weight.
type EngagementCounts struct {
	LikesDay, LikesWeek, LikesMonth, LikesTotal             int
	CommentsDay, CommentsWeek, CommentsMonth, CommentsTotal int
	ViewsDay, ViewsWeek, ViewsMonth, ViewsTotal             int
	Shares                                                  int
}

// Formula computes a trending score from engagement counts and post age.
// The two formulas are separate strategies and are never reconciled; the
// store records which one produced each score.
type Formula interface {
	// Name identifies the formula in stored scores and logs.
	Name() string
	// Score computes the trending score. age is time since the post was
	// created; negative ages are treated as zero.
	Score(counts EngagementCounts, age time.Duration) float64
}

// BatchFormula is the windowed formula used by the periodic sweep. Recent
// engagement is weighted far above older engagement, scaled by an engagement
// ratio and a stepped age multiplier.
type BatchFormula struct{}

// Name returns "batch".
func (BatchFormula) Name() string { return "batch" }

// Window weights for the batch formula.
const (
	batchLikeDay, batchLikeWeek, batchLikeMonth          = 10.0, 5.0, 1.0
	batchCommentDay, batchCommentWeek, batchCommentMonth = 15.0, 7.0, 2.0
	batchViewDay, batchViewWeek, batchViewMonth          = 1.0, 0.5, 0.1
)

// Score computes:
//
//	(1.0*likes + 1.5*comments + 0.8*views) * engagement_ratio * age_multiplier
//
// where likes/comments/views are window-weighted sums and engagement_ratio is
// (total likes + total comments) / max(total views, 1).
func (BatchFormula) Score(c EngagementCounts, age time.Duration) float64 {
	likeScore := batchLikeDay*float64(c.LikesDay) +
		batchLikeWeek*float64(c.LikesWeek) +
		batchLikeMonth*float64(c.LikesMonth)
	commentScore := batchCommentDay*float64(c.CommentsDay) +
		batchCommentWeek*float64(c.CommentsWeek) +
		batchCommentMonth*float64(c.CommentsMonth)
	viewScore := batchViewDay*float64(c.ViewsDay) +
		batchViewWeek*float64(c.ViewsWeek) +
		batchViewMonth*float64(c.ViewsMonth)

	totalViews := c.ViewsTotal
	if totalViews < 1 {
		totalViews = 1
	}
	ratio := float64(c.LikesTotal+c.CommentsTotal) / float64(totalViews)

	return (1.0*likeScore + 1.5*commentScore + 0.8*viewScore) * ratio * AgeMultiplier(age)
}

// AgeMultiplier returns the stepped age factor of the batch formula. It is
// non-increasing in age.
func AgeMultiplier(age time.Duration) float64 {
	if age < 0 {
		age = 0
	}
	switch {
	case age <= 24*time.Hour:
		return 1.5
	case age <= 3*24*time.Hour:
		return 1.2
	case age <= 7*24*time.Hour:
		return 1.0
	case age <= 14*24*time.Hour:
		return 0.8
	case age <= 30*24*time.Hour:
		return 0.6
	default:
		return 0.4
	}
}

// IncrementalFormula is the cheap formula applied synchronously after a
// like/comment/share mutation. It uses total counts with a power-law time
// decay instead of windowed counts.
type IncrementalFormula struct{}

// Name returns "incremental".
func (IncrementalFormula) Name() string { return "incremental" }

// Score computes:
//
//	(1.5*likes + 2.0*comments + 2.5*shares) / (hours_since_created + 2)^1.8
func (IncrementalFormula) Score(c EngagementCounts, age time.Duration) float64 {
	if age < 0 {
		age = 0
	}
	hours := age.Hours()
	numerator := 1.5*float64(c.LikesTotal) + 2.0*float64(c.CommentsTotal) + 2.5*float64(c.Shares)
	return numerator / math.Pow(hours+2, 1.8)
}
