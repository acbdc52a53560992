package social

import (
	"context"
	"fmt"
)

// ToggleLike likes the post for userID, or unlikes it when already liked.
// It reports the resulting state.
func (s *Service) ToggleLike(ctx context.Context, postID, userID string) (bool, error) {
	liked, err := s.posts.ToggleLike(ctx, postID, userID)
	if err != nil {
		return false, dependency("toggle like", err)
	}
	s.publish(ctx, Event{Kind: EventLikeToggled, PostID: postID, UserID: userID})
	return liked, nil
}

// ToggleRetweet reshares the post for userID, or removes the existing
// reshare. The created retweet is returned; nil means one was removed.
func (s *Service) ToggleRetweet(ctx context.Context, postID, userID string) (*Retweet, error) {
	user, err := s.actingUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	post, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		return nil, dependency("get post", err)
	}

	rt, err := s.posts.ToggleRetweet(ctx, RetweetInput{
		OriginalPostID:   post.ID,
		OriginalAuthorID: post.AuthorID,
		AuthorID:         user.ID,
		AuthorUsername:   user.Username,
	})
	if err != nil {
		return nil, dependency("toggle retweet", err)
	}

	s.publish(ctx, Event{Kind: EventRetweetToggled, PostID: post.ID, UserID: user.ID})
	return rt, nil
}

// DeletePost removes a post owned by requesterID along with its retweets and
// likes, returning the post as it was before deletion.
func (s *Service) DeletePost(ctx context.Context, postID, requesterID string) (Post, error) {
	post, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		return Post{}, dependency("get post", err)
	}
	if post.AuthorID != requesterID {
		return Post{}, fmt.Errorf("%w: only the author can delete post %s", ErrUnauthorized, postID)
	}

	deleted, err := s.posts.DeletePost(ctx, postID)
	if err != nil {
		return Post{}, dependency("delete post", err)
	}
	if deleted.LikedBy == nil {
		deleted.LikedBy = []string{}
	}

	s.publish(ctx, Event{Kind: EventPostDeleted, PostID: postID, UserID: requesterID})
	return deleted, nil
}

func (s *Service) actingUser(ctx context.Context, userID string) (UserProfile, error) {
	users, err := s.users.ResolveByIDs(ctx, []string{userID})
	if err != nil {
		return UserProfile{}, dependency("resolve user", err)
	}
	for _, u := range users {
		if u.ID == userID {
			return u, nil
		}
	}
	return UserProfile{}, notFound("user %s", userID)
}
