package affinity

import (
	"context"
	"testing"
	"time"

	"github.com/echolabs/echofeed/internal/store"
)

func seedUsers(s *store.MemoryStore, ids ...string) {
	for _, id := range ids {
		s.AddUser(&store.User{ID: id, Username: id, CreatedAt: time.Now()})
	}
}

func TestSuggestUsers_Similar(t *testing.T) {
	s, m := newModelFixture(t)
	seedUsers(s, "alice", "bob", "carol", "dave", "eve")

	// alice follows bob and carol; both follow dave, carol also follows
	// eve. dave has 2 common followers, eve has 1.
	s.AddFollow("alice", "bob")
	s.AddFollow("alice", "carol")
	s.AddFollow("bob", "dave")
	s.AddFollow("carol", "dave")
	s.AddFollow("carol", "eve")

	suggestions, err := m.SuggestUsers(context.Background(), "alice", 10, AlgorithmSimilar)
	if err != nil {
		t.Fatalf("SuggestUsers failed: %v", err)
	}

	if len(suggestions) != 2 {
		t.Fatalf("Expected 2 suggestions, got %d", len(suggestions))
	}
	if suggestions[0].UserID != "dave" || suggestions[0].Score != 10.0 {
		t.Errorf("Expected dave with score 10.0 first, got %+v", suggestions[0])
	}
	if suggestions[1].UserID != "eve" || suggestions[1].Score != 5.0 {
		t.Errorf("Expected eve with score 5.0 second, got %+v", suggestions[1])
	}
}

func TestSuggestUsers_Random(t *testing.T) {
	s, m := newModelFixture(t)
	seedUsers(s, "alice", "bob", "carol", "dave")
	s.AddFollow("alice", "bob")

	m.randFloat = func() float64 { return 0 }

	suggestions, err := m.SuggestUsers(context.Background(), "alice", 10, AlgorithmRandom)
	if err != nil {
		t.Fatalf("SuggestUsers failed: %v", err)
	}

	seen := make(map[string]bool)
	for _, sug := range suggestions {
		if sug.UserID == "alice" || sug.UserID == "bob" {
			t.Errorf("Suggested self or followed user: %s", sug.UserID)
		}
		if sug.Score != randomSuggestionScore {
			t.Errorf("Expected baseline score, got %v", sug.Score)
		}
		if seen[sug.UserID] {
			t.Errorf("Duplicate suggestion: %s", sug.UserID)
		}
		seen[sug.UserID] = true
	}
	if len(suggestions) != 2 {
		t.Errorf("Expected carol and dave, got %v", suggestions)
	}
}

func TestSuggestUsers_AllBlendsAndFills(t *testing.T) {
	s, m := newModelFixture(t)
	seedUsers(s, "alice", "bob", "carol", "stranger1", "stranger2")

	// Graph edge to carol via follower pass.
	s.AddFollow("carol", "alice")

	m.randFloat = func() float64 { return 0 }

	suggestions, err := m.SuggestUsers(context.Background(), "alice", 4, AlgorithmAll)
	if err != nil {
		t.Fatalf("SuggestUsers failed: %v", err)
	}

	if len(suggestions) != 4 {
		t.Fatalf("Expected 4 suggestions after random fill, got %d", len(suggestions))
	}
	if suggestions[0].UserID != "carol" || suggestions[0].Algorithm != AlgorithmGraph {
		t.Errorf("Expected graph-scored carol first, got %+v", suggestions[0])
	}
	seen := make(map[string]bool)
	for _, sug := range suggestions {
		if seen[sug.UserID] {
			t.Errorf("Duplicate suggestion: %s", sug.UserID)
		}
		seen[sug.UserID] = true
	}
}

func TestSuggestUsers_EmptyFallsBackToRandom(t *testing.T) {
	s, m := newModelFixture(t)
	seedUsers(s, "alice", "bob")

	// No graph edges, no friends-of-friends.
	suggestions, err := m.SuggestUsers(context.Background(), "alice", 5, AlgorithmGraph)
	if err != nil {
		t.Fatalf("SuggestUsers failed: %v", err)
	}

	if len(suggestions) != 1 || suggestions[0].UserID != "bob" {
		t.Errorf("Expected random fallback with bob, got %v", suggestions)
	}
	if suggestions[0].Algorithm != AlgorithmRandom {
		t.Errorf("Expected random algorithm label, got %s", suggestions[0].Algorithm)
	}
}

func TestSuggestUsers_UnknownAlgorithm(t *testing.T) {
	_, m := newModelFixture(t)

	if _, err := m.SuggestUsers(context.Background(), "alice", 5, "bogus"); err == nil {
		t.Error("Expected error for unknown algorithm")
	}
}

func TestValidAlgorithm(t *testing.T) {
	for _, name := range []string{AlgorithmGraph, AlgorithmSimilar, AlgorithmRandom, AlgorithmAll} {
		if !ValidAlgorithm(name) {
			t.Errorf("Expected %s to be valid", name)
		}
	}
	if ValidAlgorithm("bogus") {
		t.Error("Expected bogus to be invalid")
	}
}
