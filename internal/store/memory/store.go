// Package memory implements social.PostStore on an embedded buntdb database.
// It backs local development and the end-to-end tests.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/nephh/twitter-clone/internal/social"

	"github.com/google/uuid"
	"github.com/tidwall/buntdb"
)

// keys:
//   - post:<id>                  -> post JSON, like set included
//   - retweet:<id>               -> retweet JSON
//   - rtkey:<post id>:<author>   -> retweet id
const (
	postPrefix    = "post:"
	retweetPrefix = "retweet:"
	rtKeyPrefix   = "rtkey:"
)

type Store struct {
	bunt *buntdb.DB
	now  func() time.Time
}

// Open opens the database at path. ":memory:" keeps everything in memory.
func Open(path string) (*Store, error) {
	bunt, err := buntdb.Open(path)
	if err != nil {
		return nil, err
	}
	return &Store{bunt: bunt, now: time.Now}, nil
}

func (s *Store) Close() error {
	if err := s.bunt.Close(); err != nil && !errors.Is(err, buntdb.ErrDatabaseClosed) {
		return err
	}
	return nil
}

func (s *Store) ListPosts(_ context.Context, filter social.PostFilter) ([]social.Post, error) {
	var ids map[string]bool
	if len(filter.IDs) > 0 {
		ids = make(map[string]bool, len(filter.IDs))
		for _, id := range filter.IDs {
			ids[id] = true
		}
	}

	posts := []social.Post{}
	err := s.bunt.View(func(tx *buntdb.Tx) error {
		var decodeErr error
		err := tx.AscendKeys(postPrefix+"*", func(_, v string) bool {
			var p social.Post
			if decodeErr = json.Unmarshal([]byte(v), &p); decodeErr != nil {
				return false
			}
			if filter.AuthorID != "" && p.AuthorID != filter.AuthorID {
				return true
			}
			if ids != nil && !ids[p.ID] {
				return true
			}
			if filter.LikedBy != "" && !p.IsLikedBy(filter.LikedBy) {
				return true
			}
			posts = append(posts, p)
			return true
		})
		if decodeErr != nil {
			return decodeErr
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID > posts[j].ID
	})
	if filter.Limit > 0 && len(posts) > filter.Limit {
		posts = posts[:filter.Limit]
	}
	return posts, nil
}

func (s *Store) GetPost(_ context.Context, id string) (post social.Post, err error) {
	err = s.bunt.View(func(tx *buntdb.Tx) (err error) {
		post, err = getPost(tx, id)
		return
	})
	return
}

func (s *Store) CreatePost(_ context.Context, authorID, content string) (social.Post, error) {
	post := social.Post{
		ID:        uuid.NewString(),
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: s.now().UTC(),
		LikedBy:   []string{},
	}
	err := s.bunt.Update(func(tx *buntdb.Tx) error {
		return putPost(tx, post)
	})
	if err != nil {
		return social.Post{}, err
	}
	return post, nil
}

func (s *Store) DeletePost(_ context.Context, id string) (post social.Post, err error) {
	err = s.bunt.Update(func(tx *buntdb.Tx) (err error) {
		if post, err = getPost(tx, id); err != nil {
			return
		}

		var retweets []social.Retweet
		if retweets, err = scanRetweets(tx, func(rt social.Retweet) bool {
			return rt.OriginalPostID == id
		}); err != nil {
			return
		}
		for _, rt := range retweets {
			if err = deleteRetweet(tx, rt); err != nil {
				return
			}
		}

		_, err = tx.Delete(postPrefix + id)
		return
	})
	return
}

func (s *Store) SetLiked(_ context.Context, postID, userID string, liked bool) error {
	return s.bunt.Update(func(tx *buntdb.Tx) error {
		post, err := getPost(tx, postID)
		if err != nil {
			return err
		}
		if post.IsLikedBy(userID) == liked {
			return nil
		}
		post.LikedBy = flipLike(post.LikedBy, userID)
		return putPost(tx, post)
	})
}

func (s *Store) ToggleLike(_ context.Context, postID, userID string) (liked bool, err error) {
	err = s.bunt.Update(func(tx *buntdb.Tx) error {
		post, err := getPost(tx, postID)
		if err != nil {
			return err
		}
		post.LikedBy = flipLike(post.LikedBy, userID)
		liked = post.IsLikedBy(userID)
		return putPost(tx, post)
	})
	return
}

func (s *Store) ListRetweets(_ context.Context, filter social.RetweetFilter) (retweets []social.Retweet, err error) {
	err = s.bunt.View(func(tx *buntdb.Tx) (err error) {
		retweets, err = scanRetweets(tx, func(rt social.Retweet) bool {
			return filter.AuthorID == "" || rt.AuthorID == filter.AuthorID
		})
		return
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(retweets, func(i, j int) bool {
		if !retweets[i].CreatedAt.Equal(retweets[j].CreatedAt) {
			return retweets[i].CreatedAt.After(retweets[j].CreatedAt)
		}
		return retweets[i].ID > retweets[j].ID
	})
	return retweets, nil
}

func (s *Store) FindRetweet(_ context.Context, postID, authorID string) (rt social.Retweet, err error) {
	err = s.bunt.View(func(tx *buntdb.Tx) (err error) {
		rt, err = findRetweet(tx, postID, authorID)
		return
	})
	return
}

func (s *Store) CreateRetweet(_ context.Context, in social.RetweetInput) (rt social.Retweet, err error) {
	err = s.bunt.Update(func(tx *buntdb.Tx) (err error) {
		if _, err = getPost(tx, in.OriginalPostID); err != nil {
			return
		}
		rt, err = s.createRetweet(tx, in)
		return
	})
	return
}

func (s *Store) DeleteRetweet(_ context.Context, id string) error {
	return s.bunt.Update(func(tx *buntdb.Tx) error {
		v, err := tx.Get(retweetPrefix + id)
		if err != nil {
			return mapErr(err, "retweet %s", id)
		}
		var rt social.Retweet
		if err := json.Unmarshal([]byte(v), &rt); err != nil {
			return err
		}
		return deleteRetweet(tx, rt)
	})
}

func (s *Store) ToggleRetweet(_ context.Context, in social.RetweetInput) (created *social.Retweet, err error) {
	err = s.bunt.Update(func(tx *buntdb.Tx) error {
		post, err := getPost(tx, in.OriginalPostID)
		if err != nil {
			return err
		}

		existing, err := findRetweet(tx, in.OriginalPostID, in.AuthorID)
		switch {
		case err == nil:
			return deleteRetweet(tx, existing)
		case !errors.Is(err, social.ErrNotFound):
			return err
		}

		in.OriginalAuthorID = post.AuthorID
		rt, err := s.createRetweet(tx, in)
		if err != nil {
			return err
		}
		created = &rt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Store) createRetweet(tx *buntdb.Tx, in social.RetweetInput) (social.Retweet, error) {
	pair := rtKeyPrefix + in.OriginalPostID + ":" + in.AuthorID
	if _, err := tx.Get(pair); err == nil {
		return social.Retweet{}, fmt.Errorf("%w: retweet of %s by %s already exists", social.ErrConflict, in.OriginalPostID, in.AuthorID)
	} else if err != buntdb.ErrNotFound {
		return social.Retweet{}, err
	}

	rt := social.Retweet{
		ID:               uuid.NewString(),
		OriginalPostID:   in.OriginalPostID,
		OriginalAuthorID: in.OriginalAuthorID,
		AuthorID:         in.AuthorID,
		AuthorUsername:   in.AuthorUsername,
		CreatedAt:        s.now().UTC(),
	}
	raw, err := json.Marshal(rt)
	if err != nil {
		return social.Retweet{}, err
	}
	if _, _, err := tx.Set(retweetPrefix+rt.ID, string(raw), nil); err != nil {
		return social.Retweet{}, err
	}
	if _, _, err := tx.Set(pair, rt.ID, nil); err != nil {
		return social.Retweet{}, err
	}
	return rt, nil
}

func getPost(tx *buntdb.Tx, id string) (social.Post, error) {
	v, err := tx.Get(postPrefix + id)
	if err != nil {
		return social.Post{}, mapErr(err, "post %s", id)
	}
	var p social.Post
	if err := json.Unmarshal([]byte(v), &p); err != nil {
		return social.Post{}, err
	}
	if p.LikedBy == nil {
		p.LikedBy = []string{}
	}
	return p, nil
}

func putPost(tx *buntdb.Tx, p social.Post) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, _, err = tx.Set(postPrefix+p.ID, string(raw), nil)
	return err
}

func findRetweet(tx *buntdb.Tx, postID, authorID string) (social.Retweet, error) {
	id, err := tx.Get(rtKeyPrefix + postID + ":" + authorID)
	if err != nil {
		return social.Retweet{}, mapErr(err, "retweet of %s by %s", postID, authorID)
	}
	v, err := tx.Get(retweetPrefix + id)
	if err != nil {
		return social.Retweet{}, mapErr(err, "retweet %s", id)
	}
	var rt social.Retweet
	if err := json.Unmarshal([]byte(v), &rt); err != nil {
		return social.Retweet{}, err
	}
	return rt, nil
}

func scanRetweets(tx *buntdb.Tx, keep func(social.Retweet) bool) ([]social.Retweet, error) {
	retweets := []social.Retweet{}
	var decodeErr error
	err := tx.AscendKeys(retweetPrefix+"*", func(_, v string) bool {
		var rt social.Retweet
		if decodeErr = json.Unmarshal([]byte(v), &rt); decodeErr != nil {
			return false
		}
		if keep(rt) {
			retweets = append(retweets, rt)
		}
		return true
	})
	if decodeErr != nil {
		return nil, decodeErr
	}
	return retweets, err
}

func deleteRetweet(tx *buntdb.Tx, rt social.Retweet) error {
	if _, err := tx.Delete(retweetPrefix + rt.ID); err != nil {
		return mapErr(err, "retweet %s", rt.ID)
	}
	if _, err := tx.Delete(rtKeyPrefix + rt.OriginalPostID + ":" + rt.AuthorID); err != nil && err != buntdb.ErrNotFound {
		return err
	}
	return nil
}

func flipLike(likedBy []string, userID string) []string {
	out := make([]string, 0, len(likedBy)+1)
	found := false
	for _, id := range likedBy {
		if id == userID {
			found = true
			continue
		}
		out = append(out, id)
	}
	if !found {
		out = append(out, userID)
	}
	return out
}

func mapErr(err error, format string, args ...any) error {
	if err == buntdb.ErrNotFound {
		return fmt.Errorf("%w: %s", social.ErrNotFound, fmt.Sprintf(format, args...))
	}
	return err
}

var _ social.PostStore = (*Store)(nil)
