// Package store provides the interaction store: posts, users, engagement
// facts (likes, comments, views, shares) and follow edges that the ranking
// subsystems read, plus the derived trending/affinity records they write.
package store

import (
	"errors"
	"time"
)

// Common errors for store operations.
var (
	ErrPostNotFound = errors.New("post not found")
	ErrUserNotFound = errors.New("user not found")
)

// PostType identifies the content type of a post.
type PostType string

// Supported post types.
const (
	PostTypeNews  PostType = "NEWS"
	PostTypeAudio PostType = "AUDIO"
)

// InteractionKind identifies the kind of an explicit post interaction.
type InteractionKind string

// Supported interaction kinds.
const (
	InteractionLike  InteractionKind = "LIKE"
	InteractionShare InteractionKind = "SHARE"
	InteractionSave  InteractionKind = "SAVE"
)

// Post represents a content post. Posts are owned by the CRUD layer and are
// read-only from the ranking core's perspective.
type Post struct {
	ID          string    `json:"id"`
	AuthorID    string    `json:"author_id"`
	Type        PostType  `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// User represents a platform user as seen by search and suggestions.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	FirstName string    `json:"first_name,omitempty"`
	LastName  string    `json:"last_name,omitempty"`
	Bio       string    `json:"bio,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Interaction is an append-only engagement fact, unique per
// (user, post, kind).
type Interaction struct {
	UserID    string          `json:"user_id"`
	PostID    string          `json:"post_id"`
	Kind      InteractionKind `json:"kind"`
	CreatedAt time.Time       `json:"created_at"`
}

// View records that a user viewed a post. At most one view exists per
// (post, user); the duration may be updated in place.
type View struct {
	PostID    string    `json:"post_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	Duration  int       `json:"duration"` // seconds
}

// Comment is the minimal comment fact this core needs for counting.
// Comment content and threading belong to the CRUD layer.
type Comment struct {
	PostID    string    `json:"post_id"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CommonInteractor pairs a user with the number of posts they have
// interacted with in common with some reference user.
type CommonInteractor struct {
	UserID string
	Count  int
}

// UserActivity aggregates the engagement counters search uses to rank users.
type UserActivity struct {
	Posts     int
	Comments  int
	Followers int
}

// PostFilter narrows post listings.
type PostFilter struct {
	// Type restricts to a single post type when non-empty.
	Type PostType
	// AuthorIDs restricts to posts by these authors when non-empty.
	AuthorIDs []string
	// ExcludeAuthorIDs drops posts by these authors.
	ExcludeAuthorIDs []string
	// ExcludeIDs drops specific posts.
	ExcludeIDs []string
	// Limit caps the number of results; 0 means no cap.
	Limit int
}
