package social

import "context"

// PostStore persists posts, their like sets and retweets. Lists are ordered
// newest first with id as the secondary key. Lookups of absent rows return an
// error wrapping ErrNotFound.
type PostStore interface {
	ListPosts(ctx context.Context, filter PostFilter) ([]Post, error)
	GetPost(ctx context.Context, id string) (Post, error)
	CreatePost(ctx context.Context, authorID, content string) (Post, error)
	// DeletePost removes the post together with its likes and retweets in a
	// single transaction and returns the removed row.
	DeletePost(ctx context.Context, id string) (Post, error)

	SetLiked(ctx context.Context, postID, userID string, liked bool) error
	// ToggleLike flips membership of userID in the post's like set as one
	// atomic operation and reports whether the user now likes the post.
	ToggleLike(ctx context.Context, postID, userID string) (bool, error)

	ListRetweets(ctx context.Context, filter RetweetFilter) ([]Retweet, error)
	FindRetweet(ctx context.Context, postID, authorID string) (Retweet, error)
	CreateRetweet(ctx context.Context, in RetweetInput) (Retweet, error)
	DeleteRetweet(ctx context.Context, id string) error
	// ToggleRetweet removes the (post, author) retweet when present and creates
	// it otherwise, atomically. It returns nil when the retweet was removed.
	ToggleRetweet(ctx context.Context, in RetweetInput) (*Retweet, error)
}

// UserDirectory resolves users held by the identity provider.
type UserDirectory interface {
	// ResolveByIDs returns the profiles it found; unknown ids are simply absent.
	ResolveByIDs(ctx context.Context, ids []string) ([]UserProfile, error)
	ResolveByUsername(ctx context.Context, username string) (UserProfile, error)
	List(ctx context.Context) ([]UserProfile, error)
}

type RateLimiter interface {
	TryAcquire(ctx context.Context, key string) (bool, error)
}

// Publisher receives feed change notifications after successful mutations.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type EventKind string

const (
	EventPostCreated    EventKind = "post.created"
	EventPostDeleted    EventKind = "post.deleted"
	EventLikeToggled    EventKind = "like.toggled"
	EventRetweetToggled EventKind = "retweet.toggled"
)

type Event struct {
	Kind   EventKind `json:"kind"`
	PostID string    `json:"post_id"`
	UserID string    `json:"user_id"`
}
