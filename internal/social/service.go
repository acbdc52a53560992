package social

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/nephh/twitter-clone/internal/logs"
)

const MaxContentLength = 255

// AuthorPolicy decides what feed assembly does with a post whose author the
// directory cannot resolve.
type AuthorPolicy string

const (
	// AuthorPolicyFail aborts the whole call with ErrAuthorNotFound.
	AuthorPolicyFail AuthorPolicy = "fail"
	// AuthorPolicySkip drops the entry and logs a warning.
	AuthorPolicySkip AuthorPolicy = "skip"
)

func ParseAuthorPolicy(s string) AuthorPolicy {
	if AuthorPolicy(strings.ToLower(strings.TrimSpace(s))) == AuthorPolicySkip {
		return AuthorPolicySkip
	}
	return AuthorPolicyFail
}

type Options struct {
	MissingAuthor AuthorPolicy
	Publisher     Publisher
}

type Service struct {
	posts         PostStore
	users         UserDirectory
	limiter       RateLimiter
	publisher     Publisher
	missingAuthor AuthorPolicy
}

var log = logs.Get("social")

func NewService(posts PostStore, users UserDirectory, limiter RateLimiter, opts Options) *Service {
	if opts.MissingAuthor == "" {
		opts.MissingAuthor = AuthorPolicyFail
	}
	return &Service{
		posts:         posts,
		users:         users,
		limiter:       limiter,
		publisher:     opts.Publisher,
		missingAuthor: opts.MissingAuthor,
	}
}

// ValidateContent accepts 1..MaxContentLength characters that are not all
// whitespace.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return invalid("content must not be empty")
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return invalid("content must be at most %d characters", MaxContentLength)
	}
	return nil
}

func (s *Service) CreatePost(ctx context.Context, authorID, content string) (Post, error) {
	if err := ValidateContent(content); err != nil {
		return Post{}, err
	}

	ok, err := s.limiter.TryAcquire(ctx, authorID)
	if err != nil {
		return Post{}, dependency("rate limiter", err)
	}
	if !ok {
		log.Info("rate limited post creation for %s", authorID)
		return Post{}, ErrRateLimited
	}

	post, err := s.posts.CreatePost(ctx, authorID, content)
	if err != nil {
		return Post{}, dependency("create post", err)
	}
	if post.LikedBy == nil {
		post.LikedBy = []string{}
	}

	s.publish(ctx, Event{Kind: EventPostCreated, PostID: post.ID, UserID: authorID})
	return post, nil
}

// Profile looks a user up by username.
func (s *Service) Profile(ctx context.Context, username string) (UserProfile, error) {
	user, err := s.users.ResolveByUsername(ctx, username)
	if err != nil {
		return UserProfile{}, dependency("resolve user", err)
	}
	return user, nil
}

func (s *Service) Users(ctx context.Context) ([]UserProfile, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, dependency("list users", err)
	}
	return users, nil
}

func (s *Service) publish(ctx context.Context, event Event) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, event)
}
