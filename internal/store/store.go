package store

import (
	"context"
	"time"
)

// InteractionStore exposes the engagement facts and follow edges the ranking
// core consumes. Business entities behind it are owned elsewhere; this core
// only reads facts and appends interactions/views.
type InteractionStore interface {
	// GetPost retrieves a post by ID. Returns ErrPostNotFound if absent.
	GetPost(ctx context.Context, id string) (*Post, error)

	// ListPosts returns posts matching the filter, newest first.
	ListPosts(ctx context.Context, f PostFilter) ([]*Post, error)

	// CountPosts returns the number of posts matching the filter,
	// ignoring its Limit.
	CountPosts(ctx context.Context, f PostFilter) (int, error)

	// ListActivePostIDs returns post IDs ordered by recent engagement
	// (interactions since the given time), most active first, capped at
	// limit. Posts with no recent engagement follow, newest first.
	ListActivePostIDs(ctx context.Context, since time.Time, limit int) ([]string, error)

	// GetUser retrieves a user by ID. Returns ErrUserNotFound if absent.
	GetUser(ctx context.Context, id string) (*User, error)

	// ListUsers returns up to limit users, excluding the given IDs.
	ListUsers(ctx context.Context, excludeIDs []string, limit int) ([]*User, error)

	// CountLikes counts LIKE interactions on a post created at or after
	// since. A zero since counts all likes.
	CountLikes(ctx context.Context, postID string, since time.Time) (int, error)

	// CountComments counts comments on a post created at or after since.
	CountComments(ctx context.Context, postID string, since time.Time) (int, error)

	// CountViews counts views of a post created at or after since.
	CountViews(ctx context.Context, postID string, since time.Time) (int, error)

	// CountInteractions counts interactions of the given kind on a post.
	CountInteractions(ctx context.Context, postID string, kind InteractionKind) (int, error)

	// LikerIDs returns the IDs of users who liked the post.
	LikerIDs(ctx context.Context, postID string) ([]string, error)

	// LikedPostIDs returns the IDs of posts the user liked.
	LikedPostIDs(ctx context.Context, userID string) ([]string, error)

	// InteractedPostIDs returns the IDs of posts the user liked or saved.
	InteractedPostIDs(ctx context.Context, userID string) ([]string, error)

	// CommonInteractors returns up to limit other users sharing liked or
	// saved posts with the given user, ordered by shared-post count
	// descending.
	CommonInteractors(ctx context.Context, userID string, limit int) ([]CommonInteractor, error)

	// Following returns the IDs of users the given user follows.
	Following(ctx context.Context, userID string) ([]string, error)

	// Followers returns the IDs of users following the given user.
	Followers(ctx context.Context, userID string) ([]string, error)

	// UserActivity returns post/comment/follower counts for a user.
	UserActivity(ctx context.Context, userID string) (UserActivity, error)

	// InteractionCountsByType counts the user's interactions grouped by
	// the interacted post's type.
	InteractionCountsByType(ctx context.Context, userID string) (map[PostType]int, error)

	// ViewCountsByType counts the user's views grouped by post type.
	ViewCountsByType(ctx context.Context, userID string) (map[PostType]int, error)

	// TagCounts counts tags across all posts the user interacted with.
	TagCounts(ctx context.Context, userID string) (map[string]int, error)

	// AddInteraction appends an interaction fact. Duplicate
	// (user, post, kind) tuples are ignored.
	AddInteraction(ctx context.Context, in Interaction) error

	// RecordView records a view, or updates the duration in place when a
	// view for (post, user) already exists and the new duration is
	// positive.
	RecordView(ctx context.Context, v View) error
}
