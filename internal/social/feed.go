package social

import (
	"context"
	"fmt"
	"sort"
)

// GlobalFeed returns every post and every retweet, newest activity first.
func (s *Service) GlobalFeed(ctx context.Context) ([]FeedEntry, error) {
	posts, err := s.posts.ListPosts(ctx, PostFilter{})
	if err != nil {
		return nil, dependency("list posts", err)
	}
	retweets, err := s.posts.ListRetweets(ctx, RetweetFilter{})
	if err != nil {
		return nil, dependency("list retweets", err)
	}
	return s.assemble(ctx, posts, posts, retweets)
}

// UserFeed returns the posts written by username together with the posts
// that user retweeted, which may belong to anyone.
func (s *Service) UserFeed(ctx context.Context, username string) ([]FeedEntry, error) {
	user, err := s.users.ResolveByUsername(ctx, username)
	if err != nil {
		return nil, dependency("resolve user", err)
	}

	own, err := s.posts.ListPosts(ctx, PostFilter{AuthorID: user.ID})
	if err != nil {
		return nil, dependency("list posts", err)
	}
	retweets, err := s.posts.ListRetweets(ctx, RetweetFilter{AuthorID: user.ID})
	if err != nil {
		return nil, dependency("list retweets", err)
	}

	originals := own
	if missing := missingOriginals(own, retweets); len(missing) > 0 {
		shared, err := s.posts.ListPosts(ctx, PostFilter{IDs: missing})
		if err != nil {
			return nil, dependency("list retweeted posts", err)
		}
		originals = append(append([]Post{}, own...), shared...)
	}
	return s.assemble(ctx, own, originals, retweets)
}

// LikedFeed returns the posts liked by userID as original entries.
func (s *Service) LikedFeed(ctx context.Context, userID string) ([]FeedEntry, error) {
	posts, err := s.posts.ListPosts(ctx, PostFilter{LikedBy: userID})
	if err != nil {
		return nil, dependency("list liked posts", err)
	}
	return s.assemble(ctx, posts, posts, nil)
}

func (s *Service) SinglePost(ctx context.Context, id string) (FeedEntry, error) {
	post, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return FeedEntry{}, dependency("get post", err)
	}
	return s.single(ctx, post)
}

func (s *Service) LatestPost(ctx context.Context) (FeedEntry, error) {
	posts, err := s.posts.ListPosts(ctx, PostFilter{Limit: 1})
	if err != nil {
		return FeedEntry{}, dependency("list posts", err)
	}
	if len(posts) == 0 {
		return FeedEntry{}, notFound("no posts yet")
	}
	return s.single(ctx, posts[0])
}

func (s *Service) single(ctx context.Context, post Post) (FeedEntry, error) {
	authors, err := s.resolveAuthors(ctx, []string{post.AuthorID})
	if err != nil {
		return FeedEntry{}, err
	}
	author, ok := authors[post.AuthorID]
	if !ok {
		return FeedEntry{}, fmt.Errorf("%w: %s", ErrAuthorNotFound, post.AuthorID)
	}
	return originalEntry(post, author), nil
}

// assemble turns own posts and retweets into a single timeline. originals is
// the pool retweets are resolved against; retweets whose post is gone are
// dropped.
func (s *Service) assemble(ctx context.Context, own, originals []Post, retweets []Retweet) ([]FeedEntry, error) {
	byID := make(map[string]Post, len(originals))
	for _, p := range originals {
		byID[p.ID] = p
	}

	authorIDs := make([]string, 0, len(own)+len(retweets))
	for _, p := range own {
		authorIDs = append(authorIDs, p.AuthorID)
	}
	for _, rt := range retweets {
		if p, ok := byID[rt.OriginalPostID]; ok {
			authorIDs = append(authorIDs, p.AuthorID)
		}
	}
	authors, err := s.resolveAuthors(ctx, authorIDs)
	if err != nil {
		return nil, err
	}

	entries := make([]FeedEntry, 0, len(own)+len(retweets))
	for _, p := range own {
		author, ok := authors[p.AuthorID]
		if !ok {
			if err := s.missingAuthorErr(p); err != nil {
				return nil, err
			}
			continue
		}
		entries = append(entries, originalEntry(p, author))
	}

	for _, rt := range retweets {
		p, ok := byID[rt.OriginalPostID]
		if !ok {
			log.Debug("retweet %s points at missing post %s", rt.ID, rt.OriginalPostID)
			continue
		}
		author, ok := authors[p.AuthorID]
		if !ok {
			if err := s.missingAuthorErr(p); err != nil {
				return nil, err
			}
			continue
		}
		entry := originalEntry(p, author)
		entry.RetweetID = rt.ID
		entry.RetweetAuthor = rt.AuthorUsername
		entry.RetweetedAt = rt.CreatedAt
		entries = append(entries, entry)
	}

	sortEntries(entries)
	return entries, nil
}

func (s *Service) missingAuthorErr(p Post) error {
	if s.missingAuthor == AuthorPolicySkip {
		log.Warning("skipping post %s: author %s not found", p.ID, p.AuthorID)
		return nil
	}
	return fmt.Errorf("%w: %s", ErrAuthorNotFound, p.AuthorID)
}

// resolveAuthors looks up every distinct id with one directory call.
func (s *Service) resolveAuthors(ctx context.Context, ids []string) (map[string]UserProfile, error) {
	distinct := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		distinct = append(distinct, id)
	}
	if len(distinct) == 0 {
		return map[string]UserProfile{}, nil
	}
	sort.Strings(distinct)

	users, err := s.users.ResolveByIDs(ctx, distinct)
	if err != nil {
		return nil, dependency("resolve authors", err)
	}
	profiles := make(map[string]UserProfile, len(users))
	for _, u := range users {
		profiles[u.ID] = u
	}
	return profiles, nil
}

func originalEntry(p Post, author UserProfile) FeedEntry {
	if p.LikedBy == nil {
		p.LikedBy = []string{}
	}
	return FeedEntry{
		Post:        p,
		Author:      author,
		RetweetedAt: p.CreatedAt,
	}
}

func missingOriginals(own []Post, retweets []Retweet) []string {
	have := make(map[string]struct{}, len(own))
	for _, p := range own {
		have[p.ID] = struct{}{}
	}
	var ids []string
	for _, rt := range retweets {
		if _, ok := have[rt.OriginalPostID]; ok {
			continue
		}
		have[rt.OriginalPostID] = struct{}{}
		ids = append(ids, rt.OriginalPostID)
	}
	return ids
}

// sortEntries orders newest first; equal timestamps fall back to the entry key,
// descending, matching the id order the stores return.
func sortEntries(entries []FeedEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.RetweetedAt.Equal(b.RetweetedAt) {
			return a.RetweetedAt.After(b.RetweetedAt)
		}
		return a.Key() > b.Key()
	})
}
