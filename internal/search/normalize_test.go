package search

import (
	"testing"

	"github.com/echolabs/echofeed/internal/store"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase", "Rock Music", "rock music"},
		{"punctuation", "rock-n-roll!", "rock n roll"},
		{"collapse whitespace", "  rock   music  ", "rock music"},
		{"mixed", "What's UP?", "what s up"},
		{"empty", "", ""},
		{"only punctuation", "?!...", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestAnalyze_StopwordsAndStems(t *testing.T) {
	terms := analyze("the running of the dogs")

	for _, token := range terms.Tokens {
		if token == "the" || token == "of" {
			t.Errorf("Stopword %q survived analysis", token)
		}
	}
	if len(terms.Tokens) != 2 {
		t.Fatalf("Expected 2 tokens, got %v", terms.Tokens)
	}
	if terms.Stemmed[0] != "run" {
		t.Errorf("Expected stem run, got %q", terms.Stemmed[0])
	}
	if terms.Stemmed[1] != "dog" {
		t.Errorf("Expected stem dog, got %q", terms.Stemmed[1])
	}
}

func TestAnalyzer_CachesPerQuery(t *testing.T) {
	a := NewAnalyzer()

	first := a.Analyze("rock music")
	second := a.Analyze("rock music")

	if first.Normalized != second.Normalized || len(first.Tokens) != len(second.Tokens) {
		t.Errorf("Cached analysis differs: %+v vs %+v", first, second)
	}
	if len(a.cache) != 1 {
		t.Errorf("Expected one cache entry, got %d", len(a.cache))
	}
}

func TestSniffType(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  store.PostType
	}{
		{"audio intent", "jazz podcast", store.PostTypeAudio},
		{"news intent", "election news", store.PostTypeNews},
		{"no intent", "jazz music", ""},
		{"conflicting intent", "podcast news", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SniffType(analyze(tt.query)); got != tt.want {
				t.Errorf("SniffType(%q) = %q, want %q", tt.query, got, tt.want)
			}
		})
	}
}
