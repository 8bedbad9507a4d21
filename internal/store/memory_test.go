package store

import (
	"context"
	"testing"
	"time"
)

func seedPost(s *MemoryStore, id, authorID string, typ PostType, age time.Duration) *Post {
	p := &Post{
		ID:        id,
		AuthorID:  authorID,
		Type:      typ,
		Title:     "post " + id,
		CreatedAt: time.Now().Add(-age),
	}
	s.AddPost(p)
	return p
}

func TestMemoryStore_GetPost_NotFound(t *testing.T) {
	s := NewMemoryStore()

	_, err := s.GetPost(context.Background(), "missing")
	if err != ErrPostNotFound {
		t.Errorf("Expected ErrPostNotFound, got %v", err)
	}
}

func TestMemoryStore_GetPost_ReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	seedPost(s, "p1", "u1", PostTypeNews, time.Hour)

	got, err := s.GetPost(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}

	got.Title = "mutated"

	again, err := s.GetPost(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if again.Title != "post p1" {
		t.Errorf("Stored post mutated through returned copy: %s", again.Title)
	}
}

func TestMemoryStore_ListPosts_NewestFirst(t *testing.T) {
	s := NewMemoryStore()
	seedPost(s, "old", "u1", PostTypeNews, 48*time.Hour)
	seedPost(s, "new", "u1", PostTypeNews, time.Hour)
	seedPost(s, "mid", "u2", PostTypeAudio, 24*time.Hour)

	posts, err := s.ListPosts(context.Background(), PostFilter{})
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}

	want := []string{"new", "mid", "old"}
	if len(posts) != len(want) {
		t.Fatalf("Expected %d posts, got %d", len(want), len(posts))
	}
	for i, id := range want {
		if posts[i].ID != id {
			t.Errorf("Position %d: expected %s, got %s", i, id, posts[i].ID)
		}
	}
}

func TestMemoryStore_ListPosts_Filters(t *testing.T) {
	s := NewMemoryStore()
	seedPost(s, "n1", "alice", PostTypeNews, time.Hour)
	seedPost(s, "n2", "bob", PostTypeNews, 2*time.Hour)
	seedPost(s, "a1", "alice", PostTypeAudio, 3*time.Hour)

	tests := []struct {
		name   string
		filter PostFilter
		want   []string
	}{
		{
			name:   "by type",
			filter: PostFilter{Type: PostTypeAudio},
			want:   []string{"a1"},
		},
		{
			name:   "by author",
			filter: PostFilter{AuthorIDs: []string{"alice"}},
			want:   []string{"n1", "a1"},
		},
		{
			name:   "exclude author",
			filter: PostFilter{ExcludeAuthorIDs: []string{"alice"}},
			want:   []string{"n2"},
		},
		{
			name:   "exclude ids",
			filter: PostFilter{ExcludeIDs: []string{"n1", "a1"}},
			want:   []string{"n2"},
		},
		{
			name:   "limit",
			filter: PostFilter{Limit: 2},
			want:   []string{"n1", "n2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts, err := s.ListPosts(context.Background(), tt.filter)
			if err != nil {
				t.Fatalf("ListPosts failed: %v", err)
			}
			if len(posts) != len(tt.want) {
				t.Fatalf("Expected %d posts, got %d", len(tt.want), len(posts))
			}
			for i, id := range tt.want {
				if posts[i].ID != id {
					t.Errorf("Position %d: expected %s, got %s", i, id, posts[i].ID)
				}
			}
		})
	}
}

func TestMemoryStore_AddInteraction_DuplicateIgnored(t *testing.T) {
	s := NewMemoryStore()
	seedPost(s, "p1", "u1", PostTypeNews, time.Hour)
	ctx := context.Background()

	in := Interaction{UserID: "u2", PostID: "p1", Kind: InteractionLike}
	if err := s.AddInteraction(ctx, in); err != nil {
		t.Fatalf("AddInteraction failed: %v", err)
	}
	if err := s.AddInteraction(ctx, in); err != nil {
		t.Fatalf("Duplicate AddInteraction failed: %v", err)
	}

	count, err := s.CountLikes(ctx, "p1", time.Time{})
	if err != nil {
		t.Fatalf("CountLikes failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 like after duplicate insert, got %d", count)
	}

	// A different kind on the same (user, post) is a new fact.
	if err := s.AddInteraction(ctx, Interaction{UserID: "u2", PostID: "p1", Kind: InteractionSave}); err != nil {
		t.Fatalf("AddInteraction failed: %v", err)
	}
	saves, err := s.CountInteractions(ctx, "p1", InteractionSave)
	if err != nil {
		t.Fatalf("CountInteractions failed: %v", err)
	}
	if saves != 1 {
		t.Errorf("Expected 1 save, got %d", saves)
	}
}

func TestMemoryStore_CountLikes_Windowed(t *testing.T) {
	s := NewMemoryStore()
	seedPost(s, "p1", "u1", PostTypeNews, time.Hour)
	ctx := context.Background()
	now := time.Now()

	likes := []Interaction{
		{UserID: "u2", PostID: "p1", Kind: InteractionLike, CreatedAt: now.Add(-2 * time.Hour)},
		{UserID: "u3", PostID: "p1", Kind: InteractionLike, CreatedAt: now.Add(-48 * time.Hour)},
		{UserID: "u4", PostID: "p1", Kind: InteractionLike, CreatedAt: now.Add(-10 * 24 * time.Hour)},
	}
	for _, in := range likes {
		if err := s.AddInteraction(ctx, in); err != nil {
			t.Fatalf("AddInteraction failed: %v", err)
		}
	}

	tests := []struct {
		name  string
		since time.Time
		want  int
	}{
		{"all time", time.Time{}, 3},
		{"last day", now.Add(-24 * time.Hour), 1},
		{"last week", now.Add(-7 * 24 * time.Hour), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.CountLikes(ctx, "p1", tt.since)
			if err != nil {
				t.Fatalf("CountLikes failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %d likes, got %d", tt.want, got)
			}
		})
	}
}

func TestMemoryStore_RecordView_UpdatesDurationInPlace(t *testing.T) {
	s := NewMemoryStore()
	seedPost(s, "p1", "u1", PostTypeNews, time.Hour)
	ctx := context.Background()

	if err := s.RecordView(ctx, View{PostID: "p1", UserID: "u2", Duration: 5}); err != nil {
		t.Fatalf("RecordView failed: %v", err)
	}
	if err := s.RecordView(ctx, View{PostID: "p1", UserID: "u2", Duration: 30}); err != nil {
		t.Fatalf("Second RecordView failed: %v", err)
	}

	count, err := s.CountViews(ctx, "p1", time.Time{})
	if err != nil {
		t.Fatalf("CountViews failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 view per (post,user), got %d", count)
	}
}

func TestMemoryStore_FollowEdges(t *testing.T) {
	s := NewMemoryStore()
	s.AddFollow("alice", "bob")
	s.AddFollow("alice", "carol")
	s.AddFollow("bob", "carol")
	s.AddFollow("carol", "carol") // self-follow ignored
	ctx := context.Background()

	following, err := s.Following(ctx, "alice")
	if err != nil {
		t.Fatalf("Following failed: %v", err)
	}
	if len(following) != 2 || following[0] != "bob" || following[1] != "carol" {
		t.Errorf("Unexpected following set: %v", following)
	}

	followers, err := s.Followers(ctx, "carol")
	if err != nil {
		t.Fatalf("Followers failed: %v", err)
	}
	if len(followers) != 2 || followers[0] != "alice" || followers[1] != "bob" {
		t.Errorf("Unexpected followers set: %v", followers)
	}
}

func TestMemoryStore_CommonInteractors(t *testing.T) {
	s := NewMemoryStore()
	seedPost(s, "p1", "author", PostTypeNews, time.Hour)
	seedPost(s, "p2", "author", PostTypeNews, time.Hour)
	seedPost(s, "p3", "author", PostTypeNews, time.Hour)
	ctx := context.Background()

	// alice likes p1, p2; bob likes p1, p2 (2 common); carol saves p1 (1 common).
	for _, in := range []Interaction{
		{UserID: "alice", PostID: "p1", Kind: InteractionLike},
		{UserID: "alice", PostID: "p2", Kind: InteractionLike},
		{UserID: "bob", PostID: "p1", Kind: InteractionLike},
		{UserID: "bob", PostID: "p2", Kind: InteractionLike},
		{UserID: "carol", PostID: "p1", Kind: InteractionSave},
		{UserID: "carol", PostID: "p3", Kind: InteractionLike},
	} {
		if err := s.AddInteraction(ctx, in); err != nil {
			t.Fatalf("AddInteraction failed: %v", err)
		}
	}

	common, err := s.CommonInteractors(ctx, "alice", 10)
	if err != nil {
		t.Fatalf("CommonInteractors failed: %v", err)
	}
	if len(common) != 2 {
		t.Fatalf("Expected 2 common interactors, got %d", len(common))
	}
	if common[0].UserID != "bob" || common[0].Count != 2 {
		t.Errorf("Expected bob with count 2 first, got %s/%d", common[0].UserID, common[0].Count)
	}
	if common[1].UserID != "carol" || common[1].Count != 1 {
		t.Errorf("Expected carol with count 1 second, got %s/%d", common[1].UserID, common[1].Count)
	}
}

func TestMemoryStore_ListActivePostIDs(t *testing.T) {
	s := NewMemoryStore()
	seedPost(s, "quiet", "u1", PostTypeNews, time.Hour)
	seedPost(s, "busy", "u1", PostTypeNews, 48*time.Hour)
	ctx := context.Background()

	for _, user := range []string{"a", "b", "c"} {
		if err := s.AddInteraction(ctx, Interaction{UserID: user, PostID: "busy", Kind: InteractionLike}); err != nil {
			t.Fatalf("AddInteraction failed: %v", err)
		}
	}

	ids, err := s.ListActivePostIDs(ctx, time.Now().Add(-24*time.Hour), 10)
	if err != nil {
		t.Fatalf("ListActivePostIDs failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("Expected 2 IDs, got %d", len(ids))
	}
	if ids[0] != "busy" {
		t.Errorf("Expected busy post first, got %s", ids[0])
	}
}

func TestMemoryStore_TagAndTypeCounts(t *testing.T) {
	s := NewMemoryStore()
	s.AddPost(&Post{ID: "n1", AuthorID: "x", Type: PostTypeNews, Tags: []string{"go", "infra"}, CreatedAt: time.Now()})
	s.AddPost(&Post{ID: "a1", AuthorID: "x", Type: PostTypeAudio, Tags: []string{"go"}, CreatedAt: time.Now()})
	ctx := context.Background()

	for _, in := range []Interaction{
		{UserID: "alice", PostID: "n1", Kind: InteractionLike},
		{UserID: "alice", PostID: "a1", Kind: InteractionLike},
	} {
		if err := s.AddInteraction(ctx, in); err != nil {
			t.Fatalf("AddInteraction failed: %v", err)
		}
	}

	byType, err := s.InteractionCountsByType(ctx, "alice")
	if err != nil {
		t.Fatalf("InteractionCountsByType failed: %v", err)
	}
	if byType[PostTypeNews] != 1 || byType[PostTypeAudio] != 1 {
		t.Errorf("Unexpected type counts: %v", byType)
	}

	tags, err := s.TagCounts(ctx, "alice")
	if err != nil {
		t.Fatalf("TagCounts failed: %v", err)
	}
	if tags["go"] != 2 || tags["infra"] != 1 {
		t.Errorf("Unexpected tag counts: %v", tags)
	}
}
