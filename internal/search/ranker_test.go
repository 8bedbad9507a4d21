package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/echolabs/echofeed/internal/cache"
	"github.com/echolabs/echofeed/internal/ranking"
	"github.com/echolabs/echofeed/internal/store"
)

func newRankerFixture(t *testing.T) (*store.MemoryStore, *Ranker) {
	t.Helper()
	s := store.NewMemoryStore()
	r := NewRanker(RankerConfig{
		Source:   s,
		Cache:    cache.NewMemoryCache(),
		QueryLog: NewMemoryQueryLog(),
		Budget:   ranking.Budget{},
	})
	return s, r
}

func addPost(s *store.MemoryStore, id, title string, postType store.PostType, age time.Duration) {
	s.AddPost(&store.Post{
		ID:        id,
		AuthorID:  "author",
		Type:      postType,
		Title:     title,
		CreatedAt: time.Now().Add(-age),
	})
}

func TestSearch_EmptyQuery(t *testing.T) {
	_, r := newRankerFixture(t)

	if _, err := r.Search(context.Background(), Request{Query: "   "}); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("Expected ErrEmptyQuery, got %v", err)
	}
}

func TestSearch_ExactTitleOutranksSubstring(t *testing.T) {
	s, r := newRankerFixture(t)
	ctx := context.Background()

	// The exact-title post is much older and less popular than the
	// substring match; it must still rank first.
	addPost(s, "exact", "Rock Climbing", store.PostTypeNews, 60*24*time.Hour)
	addPost(s, "substr", "The best rock climbing gear of the year", store.PostTypeNews, time.Hour)
	for _, user := range []string{"u1", "u2", "u3"} {
		if err := s.AddInteraction(ctx, store.Interaction{UserID: user, PostID: "substr", Kind: store.InteractionLike}); err != nil {
			t.Fatalf("AddInteraction failed: %v", err)
		}
	}

	resp, err := r.Search(ctx, Request{Query: "rock climbing", Kind: KindPosts})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(resp.Posts) < 2 {
		t.Fatalf("Expected both posts, got %d", len(resp.Posts))
	}
	if resp.Posts[0].Post.ID != "exact" {
		t.Errorf("Expected exact-title match first, got %s", resp.Posts[0].Post.ID)
	}
}

func TestSearch_TypeSniffing(t *testing.T) {
	s, r := newRankerFixture(t)

	addPost(s, "audio", "Jazz history", store.PostTypeAudio, time.Hour)
	addPost(s, "news", "Jazz history", store.PostTypeNews, time.Hour)

	resp, err := r.Search(context.Background(), Request{Query: "jazz podcast", Kind: KindPosts})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	for _, pr := range resp.Posts {
		if pr.Post.Type != store.PostTypeAudio {
			t.Errorf("Type sniffing let through %s post %s", pr.Post.Type, pr.Post.ID)
		}
	}
}

func TestSearch_CacheHitAndRefresh(t *testing.T) {
	s, r := newRankerFixture(t)
	ctx := context.Background()

	addPost(s, "p1", "rock music", store.PostTypeNews, time.Hour)

	first, err := r.Search(ctx, Request{Query: "rock music", Kind: KindPosts})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if first.Strategy == "cache" {
		t.Fatal("First search must compute")
	}

	second, err := r.Search(ctx, Request{Query: "rock music", Kind: KindPosts})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if second.Strategy != "cache" {
		t.Errorf("Expected cache hit, got strategy %s", second.Strategy)
	}

	fresh, err := r.Search(ctx, Request{Query: "rock music", Kind: KindPosts, Refresh: true})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if fresh.Strategy == "cache" {
		t.Error("Refresh must bypass the cache")
	}
}

func TestSearch_CacheKeyedByViewer(t *testing.T) {
	s, r := newRankerFixture(t)
	ctx := context.Background()

	addPost(s, "p1", "rock music", store.PostTypeNews, time.Hour)

	if _, err := r.Search(ctx, Request{Query: "rock music", Kind: KindPosts, ViewerID: "alice"}); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	resp, err := r.Search(ctx, Request{Query: "rock music", Kind: KindPosts, ViewerID: "bob"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if resp.Strategy == "cache" {
		t.Error("Cache entries must not be shared across viewers")
	}
}

func TestSearch_SimpleFlagForcesFallback(t *testing.T) {
	s, r := newRankerFixture(t)

	addPost(s, "p1", "rock music", store.PostTypeNews, time.Hour)

	resp, err := r.Search(context.Background(), Request{Query: "rock music", Kind: KindPosts, Simple: true})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if resp.Strategy != "simple" {
		t.Errorf("Expected simple strategy, got %s", resp.Strategy)
	}
	if len(resp.Posts) != 1 || resp.Posts[0].Post.ID != "p1" {
		t.Errorf("Expected the exact match, got %+v", resp.Posts)
	}
}

func TestSearch_UsersFollowedFirst(t *testing.T) {
	s, r := newRankerFixture(t)
	ctx := context.Background()

	s.AddUser(&store.User{ID: "u1", Username: "rockfan", CreatedAt: time.Now()})
	s.AddUser(&store.User{ID: "u2", Username: "rockstar", CreatedAt: time.Now()})
	s.AddFollow("viewer", "u2")

	resp, err := r.Search(ctx, Request{Query: "rock", Kind: KindUsers, ViewerID: "viewer"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(resp.Users) < 2 {
		t.Fatalf("Expected both users, got %d", len(resp.Users))
	}
	if resp.Users[0].User.ID != "u2" || !resp.Users[0].Followed {
		t.Errorf("Expected followed user first, got %+v", resp.Users[0])
	}
}

func TestSearch_UserPopularityTieBreak(t *testing.T) {
	s, r := newRankerFixture(t)
	ctx := context.Background()

	s.AddUser(&store.User{ID: "plain", Username: "rockfan1", CreatedAt: time.Now()})
	s.AddUser(&store.User{ID: "popular", Username: "rockfan2", CreatedAt: time.Now()})
	s.AddFollow("f1", "popular")
	s.AddFollow("f2", "popular")

	resp, err := r.Search(ctx, Request{Query: "rockfan", Kind: KindUsers})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(resp.Users) != 2 {
		t.Fatalf("Expected 2 users, got %d", len(resp.Users))
	}
	if resp.Users[0].User.ID != "popular" {
		t.Errorf("Expected follower count to break the tie, got %s", resp.Users[0].User.ID)
	}
}

func TestSearch_FuzzyFallbackFindsMisspelledUser(t *testing.T) {
	s, r := newRankerFixture(t)

	s.AddUser(&store.User{ID: "u1", Username: "jonsmith", CreatedAt: time.Now()})

	resp, err := r.Search(context.Background(), Request{Query: "jon smth", Kind: KindUsers})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	found := false
	for _, ur := range resp.Users {
		if ur.User.ID == "u1" {
			found = true
			if ur.Score < simpleCutoff && resp.Strategy == "simple" {
				t.Errorf("Fallback score %v below cutoff", ur.Score)
			}
		}
	}
	if !found {
		t.Error("Misspelled query failed to find jonsmith")
	}
}

func TestSearch_Pagination(t *testing.T) {
	s, r := newRankerFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		addPost(s, string(rune('a'+i)), "rock music", store.PostTypeNews, time.Duration(i)*time.Hour)
	}

	page1, err := r.Search(ctx, Request{Query: "rock music", Kind: KindPosts, Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(page1.Posts) != 2 || !page1.HasMore || page1.TotalPosts != 5 {
		t.Errorf("Unexpected first page: len=%d hasMore=%v total=%d", len(page1.Posts), page1.HasMore, page1.TotalPosts)
	}

	page3, err := r.Search(ctx, Request{Query: "rock music", Kind: KindPosts, Page: 3, PageSize: 2})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(page3.Posts) != 1 || page3.HasMore {
		t.Errorf("Unexpected last page: len=%d hasMore=%v", len(page3.Posts), page3.HasMore)
	}
}

func TestSearch_QueryLogged(t *testing.T) {
	s, r := newRankerFixture(t)
	qlog := NewMemoryQueryLog()
	r.querylog = qlog

	addPost(s, "p1", "rock music", store.PostTypeNews, time.Hour)
	if _, err := r.Search(context.Background(), Request{Query: "Rock Music!", Kind: KindPosts, ViewerID: "alice"}); err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	top, err := qlog.TopQueries(context.Background(), time.Time{}, 10)
	if err != nil {
		t.Fatalf("TopQueries failed: %v", err)
	}
	if len(top) != 1 || top[0].Query != "rock music" {
		t.Errorf("Expected the normalized query logged once, got %v", top)
	}
}

func TestNormalizeSearchRequest_Caps(t *testing.T) {
	req := normalizeSearchRequest(Request{Query: "q", PageSize: 100})
	if req.PageSize != MaxPageSize {
		t.Errorf("Expected page size capped at %d, got %d", MaxPageSize, req.PageSize)
	}
	if req.Page != 1 || req.Kind != KindAll {
		t.Errorf("Unexpected defaults: %+v", req)
	}
}

func TestValidKind(t *testing.T) {
	for _, kind := range []string{KindAll, KindPosts, KindUsers} {
		if !ValidKind(kind) {
			t.Errorf("Expected %s to be valid", kind)
		}
	}
	if ValidKind("bogus") {
		t.Error("Expected bogus to be invalid")
	}
}
