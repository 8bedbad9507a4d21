package trending

import (
	"math"
	"testing"
	"time"
)

func TestBatchFormula_WorkedExample(t *testing.T) {
	// 5 likes in the last day, no comments, 20 lifetime views, post 12h
	// old: likes_score=50, ratio=5/20=0.25, age=1.5 -> 18.75.
	c := EngagementCounts{
		LikesDay:   5,
		LikesTotal: 5,
		ViewsTotal: 20,
	}

	got := BatchFormula{}.Score(c, 12*time.Hour)
	if math.Abs(got-18.75) > 1e-9 {
		t.Errorf("Expected score 18.75, got %v", got)
	}
}

func TestBatchFormula_MonotoneInLikes(t *testing.T) {
	base := EngagementCounts{
		LikesDay: 2, LikesTotal: 2,
		CommentsDay: 1, CommentsTotal: 1,
		ViewsDay: 10, ViewsTotal: 10,
	}
	more := base
	more.LikesDay++
	more.LikesTotal++

	f := BatchFormula{}
	age := 6 * time.Hour
	if f.Score(more, age) < f.Score(base, age) {
		t.Error("Score decreased when like count increased")
	}

	moreComments := base
	moreComments.CommentsDay += 3
	moreComments.CommentsTotal += 3
	if f.Score(moreComments, age) < f.Score(base, age) {
		t.Error("Score decreased when comment count increased")
	}
}

func TestBatchFormula_ZeroViewsGuarded(t *testing.T) {
	c := EngagementCounts{LikesDay: 1, LikesTotal: 1}

	got := BatchFormula{}.Score(c, time.Hour)
	// ratio denominator floors at 1: 10 * (1/1) * 1.5 = 15
	if math.Abs(got-15.0) > 1e-9 {
		t.Errorf("Expected 15.0 with floored denominator, got %v", got)
	}
}

func TestAgeMultiplier_Steps(t *testing.T) {
	tests := []struct {
		age  time.Duration
		want float64
	}{
		{12 * time.Hour, 1.5},
		{24 * time.Hour, 1.5},
		{2 * 24 * time.Hour, 1.2},
		{5 * 24 * time.Hour, 1.0},
		{10 * 24 * time.Hour, 0.8},
		{20 * 24 * time.Hour, 0.6},
		{60 * 24 * time.Hour, 0.4},
		{-time.Hour, 1.5},
	}
	for _, tt := range tests {
		if got := AgeMultiplier(tt.age); got != tt.want {
			t.Errorf("AgeMultiplier(%v) = %v, want %v", tt.age, got, tt.want)
		}
	}
}

func TestAgeMultiplier_NonIncreasing(t *testing.T) {
	prev := math.Inf(1)
	for age := time.Duration(0); age <= 90*24*time.Hour; age += time.Hour {
		m := AgeMultiplier(age)
		if m > prev {
			t.Fatalf("Age multiplier increased at %v: %v > %v", age, m, prev)
		}
		prev = m
	}
}

func TestIncrementalFormula(t *testing.T) {
	c := EngagementCounts{LikesTotal: 4, CommentsTotal: 2, Shares: 2}

	// (1.5*4 + 2.0*2 + 2.5*2) / (10+2)^1.8 = 15 / 12^1.8
	want := 15.0 / math.Pow(12, 1.8)
	got := IncrementalFormula{}.Score(c, 10*time.Hour)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestIncrementalFormula_DecaysWithAge(t *testing.T) {
	c := EngagementCounts{LikesTotal: 10}
	f := IncrementalFormula{}

	young := f.Score(c, time.Hour)
	old := f.Score(c, 100*time.Hour)
	if young <= old {
		t.Errorf("Expected decay with age: %v <= %v", young, old)
	}

	// Fresh posts do not divide by zero.
	if s := f.Score(c, 0); math.IsInf(s, 0) || math.IsNaN(s) {
		t.Errorf("Zero-age score is not finite: %v", s)
	}
}

func TestFormulaNames(t *testing.T) {
	if (BatchFormula{}).Name() == (IncrementalFormula{}).Name() {
		t.Error("Formula names must be distinct")
	}
}
