package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// interactionKey identifies an interaction for uniqueness checks.
type interactionKey struct {
	userID string
	postID string
	kind   InteractionKind
}

// viewKey identifies a view for uniqueness checks.
type viewKey struct {
	postID string
	userID string
}

// MemoryStore is an in-memory implementation of InteractionStore.
// Thread-safe via RWMutex; all returned values are deep copies.
type MemoryStore struct {
	mu           sync.RWMutex
	posts        map[string]*Post
	users        map[string]*User
	interactions map[interactionKey]*Interaction
	views        map[viewKey]*View
	comments     []Comment
	following    map[string]map[string]bool // follower -> followed set
}

// NewMemoryStore creates an empty in-memory interaction store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		posts:        make(map[string]*Post),
		users:        make(map[string]*User),
		interactions: make(map[interactionKey]*Interaction),
		views:        make(map[viewKey]*View),
		following:    make(map[string]map[string]bool),
	}
}

// AddPost inserts a post, generating an ID when empty.
func (s *MemoryStore) AddPost(p *Post) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	cp := *p
	cp.Tags = append([]string(nil), p.Tags...)
	s.posts[p.ID] = &cp
	return p.ID
}

// AddUser inserts a user, generating an ID when empty.
func (s *MemoryStore) AddUser(u *User) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now()
	}
	cp := *u
	s.users[u.ID] = &cp
	return u.ID
}

// AddComment appends a comment fact.
func (s *MemoryStore) AddComment(c Comment) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	s.comments = append(s.comments, c)
}

// AddFollow records that follower follows followed. Self-follows are ignored.
func (s *MemoryStore) AddFollow(followerID, followedID string) {
	if followerID == followedID {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.following[followerID]
	if !ok {
		set = make(map[string]bool)
		s.following[followerID] = set
	}
	set[followedID] = true
}

// GetPost retrieves a post by ID.
func (s *MemoryStore) GetPost(_ context.Context, id string) (*Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}
	cp := *p
	cp.Tags = append([]string(nil), p.Tags...)
	return &cp, nil
}

// matchesLocked reports whether a post passes the filter. Caller holds the lock.
func matchesFilter(p *Post, f PostFilter) bool {
	if f.Type != "" && p.Type != f.Type {
		return false
	}
	if len(f.AuthorIDs) > 0 {
		found := false
		for _, id := range f.AuthorIDs {
			if p.AuthorID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, id := range f.ExcludeAuthorIDs {
		if p.AuthorID == id {
			return false
		}
	}
	for _, id := range f.ExcludeIDs {
		if p.ID == id {
			return false
		}
	}
	return true
}

// ListPosts returns posts matching the filter, newest first with ID
// tie-breaking for stable ordering.
func (s *MemoryStore) ListPosts(_ context.Context, f PostFilter) ([]*Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*Post
	for _, p := range s.posts {
		if !matchesFilter(p, f) {
			continue
		}
		cp := *p
		cp.Tags = append([]string(nil), p.Tags...)
		results = append(results, &cp)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].CreatedAt.After(results[j].CreatedAt) {
			return true
		}
		if results[i].CreatedAt.Before(results[j].CreatedAt) {
			return false
		}
		return results[i].ID < results[j].ID
	})

	if f.Limit > 0 && len(results) > f.Limit {
		results = results[:f.Limit]
	}
	return results, nil
}

// CountPosts returns the number of posts matching the filter.
func (s *MemoryStore) CountPosts(_ context.Context, f PostFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, p := range s.posts {
		if matchesFilter(p, f) {
			count++
		}
	}
	return count, nil
}

// ListActivePostIDs returns post IDs ordered by interaction count since the
// given time, most active first, then by recency.
func (s *MemoryStore) ListActivePostIDs(_ context.Context, since time.Time, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	activity := make(map[string]int, len(s.posts))
	for _, in := range s.interactions {
		if !in.CreatedAt.Before(since) {
			activity[in.PostID]++
		}
	}

	ids := make([]string, 0, len(s.posts))
	for id := range s.posts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		ai, aj := activity[ids[i]], activity[ids[j]]
		if ai != aj {
			return ai > aj
		}
		pi, pj := s.posts[ids[i]], s.posts[ids[j]]
		if !pi.CreatedAt.Equal(pj.CreatedAt) {
			return pi.CreatedAt.After(pj.CreatedAt)
		}
		return ids[i] < ids[j]
	})

	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// GetUser retrieves a user by ID.
func (s *MemoryStore) GetUser(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// ListUsers returns up to limit users excluding the given IDs, ordered by ID
// for determinism.
func (s *MemoryStore) ListUsers(_ context.Context, excludeIDs []string, limit int) ([]*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	excluded := make(map[string]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}

	var results []*User
	for _, u := range s.users {
		if excluded[u.ID] {
			continue
		}
		cp := *u
		results = append(results, &cp)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// CountLikes counts LIKE interactions on a post at or after since.
func (s *MemoryStore) CountLikes(_ context.Context, postID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, in := range s.interactions {
		if in.PostID == postID && in.Kind == InteractionLike && !in.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// CountComments counts comments on a post at or after since.
func (s *MemoryStore) CountComments(_ context.Context, postID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, c := range s.comments {
		if c.PostID == postID && !c.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// CountViews counts views of a post at or after since.
func (s *MemoryStore) CountViews(_ context.Context, postID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, v := range s.views {
		if v.PostID == postID && !v.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// CountInteractions counts interactions of the given kind on a post.
func (s *MemoryStore) CountInteractions(_ context.Context, postID string, kind InteractionKind) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, in := range s.interactions {
		if in.PostID == postID && in.Kind == kind {
			count++
		}
	}
	return count, nil
}

// LikerIDs returns the IDs of users who liked the post, sorted.
func (s *MemoryStore) LikerIDs(_ context.Context, postID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for _, in := range s.interactions {
		if in.PostID == postID && in.Kind == InteractionLike {
			ids = append(ids, in.UserID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// LikedPostIDs returns the IDs of posts the user liked, sorted.
func (s *MemoryStore) LikedPostIDs(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for _, in := range s.interactions {
		if in.UserID == userID && in.Kind == InteractionLike {
			ids = append(ids, in.PostID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// InteractedPostIDs returns the IDs of posts the user liked or saved, sorted.
func (s *MemoryStore) InteractedPostIDs(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	for _, in := range s.interactions {
		if in.UserID == userID && (in.Kind == InteractionLike || in.Kind == InteractionSave) {
			seen[in.PostID] = true
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// CommonInteractors returns other users sharing liked/saved posts with the
// user, ordered by shared count descending with ID tie-breaking.
func (s *MemoryStore) CommonInteractors(ctx context.Context, userID string, limit int) ([]CommonInteractor, error) {
	postIDs, err := s.InteractedPostIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	interacted := make(map[string]bool, len(postIDs))
	for _, id := range postIDs {
		interacted[id] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, in := range s.interactions {
		if in.UserID == userID {
			continue
		}
		if (in.Kind == InteractionLike || in.Kind == InteractionSave) && interacted[in.PostID] {
			counts[in.UserID]++
		}
	}

	results := make([]CommonInteractor, 0, len(counts))
	for id, c := range counts {
		results = append(results, CommonInteractor{UserID: id, Count: c})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Count != results[j].Count {
			return results[i].Count > results[j].Count
		}
		return results[i].UserID < results[j].UserID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Following returns the IDs of users the given user follows, sorted.
func (s *MemoryStore) Following(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id := range s.following[userID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Followers returns the IDs of users following the given user, sorted.
func (s *MemoryStore) Followers(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for follower, set := range s.following {
		if set[userID] {
			ids = append(ids, follower)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// UserActivity returns post/comment/follower counts for a user.
func (s *MemoryStore) UserActivity(_ context.Context, userID string) (UserActivity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var a UserActivity
	for _, p := range s.posts {
		if p.AuthorID == userID {
			a.Posts++
		}
	}
	for _, c := range s.comments {
		if c.AuthorID == userID {
			a.Comments++
		}
	}
	for _, set := range s.following {
		if set[userID] {
			a.Followers++
		}
	}
	return a, nil
}

// InteractionCountsByType counts the user's interactions by post type.
func (s *MemoryStore) InteractionCountsByType(_ context.Context, userID string) (map[PostType]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[PostType]int)
	for _, in := range s.interactions {
		if in.UserID != userID {
			continue
		}
		if p, ok := s.posts[in.PostID]; ok {
			counts[p.Type]++
		}
	}
	return counts, nil
}

// ViewCountsByType counts the user's views by post type.
func (s *MemoryStore) ViewCountsByType(_ context.Context, userID string) (map[PostType]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[PostType]int)
	for _, v := range s.views {
		if v.UserID != userID {
			continue
		}
		if p, ok := s.posts[v.PostID]; ok {
			counts[p.Type]++
		}
	}
	return counts, nil
}

// TagCounts counts tags across posts the user interacted with.
func (s *MemoryStore) TagCounts(_ context.Context, userID string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, in := range s.interactions {
		if in.UserID != userID {
			continue
		}
		if p, ok := s.posts[in.PostID]; ok {
			for _, tag := range p.Tags {
				counts[tag]++
			}
		}
	}
	return counts, nil
}

// AddInteraction appends an interaction fact; duplicates are ignored.
func (s *MemoryStore) AddInteraction(_ context.Context, in Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := interactionKey{userID: in.UserID, postID: in.PostID, kind: in.Kind}
	if _, exists := s.interactions[key]; exists {
		return nil
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now()
	}
	cp := in
	s.interactions[key] = &cp
	return nil
}

// RecordView records a view or updates an existing view's duration in place.
func (s *MemoryStore) RecordView(_ context.Context, v View) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := viewKey{postID: v.PostID, userID: v.UserID}
	if existing, ok := s.views[key]; ok {
		if v.Duration > 0 {
			existing.Duration = v.Duration
		}
		return nil
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	cp := v
	s.views[key] = &cp
	return nil
}
