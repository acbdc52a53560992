package social

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

type fakeStore struct {
	mu        sync.Mutex
	posts     map[string]Post
	retweets  map[string]Retweet
	seq       int
	now       time.Time
	err       error
	toggleErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		posts:    map[string]Post{},
		retweets: map[string]Retweet{},
		now:      time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeStore) tick() time.Time {
	f.now = f.now.Add(time.Second)
	return f.now
}

func (f *fakeStore) nextID(prefix string) string {
	f.seq++
	return fmt.Sprintf("%s-%d", prefix, f.seq)
}

func (f *fakeStore) addPost(id, authorID, content string, at time.Time, likedBy ...string) Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := Post{ID: id, AuthorID: authorID, Content: content, CreatedAt: at, LikedBy: likedBy}
	f.posts[id] = p
	return p
}

func (f *fakeStore) addRetweet(id, postID, authorID, username string, at time.Time) Retweet {
	f.mu.Lock()
	defer f.mu.Unlock()
	rt := Retweet{ID: id, OriginalPostID: postID, AuthorID: authorID, AuthorUsername: username, CreatedAt: at}
	if p, ok := f.posts[postID]; ok {
		rt.OriginalAuthorID = p.AuthorID
	}
	f.retweets[id] = rt
	return rt
}

func (f *fakeStore) ListPosts(_ context.Context, filter PostFilter) ([]Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	ids := map[string]bool{}
	for _, id := range filter.IDs {
		ids[id] = true
	}
	var out []Post
	for _, p := range f.posts {
		if filter.AuthorID != "" && p.AuthorID != filter.AuthorID {
			continue
		}
		if len(ids) > 0 && !ids[p.ID] {
			continue
		}
		if filter.LikedBy != "" && !p.IsLikedBy(filter.LikedBy) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeStore) GetPost(_ context.Context, id string) (Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return Post{}, f.err
	}
	p, ok := f.posts[id]
	if !ok {
		return Post{}, notFound("post %s", id)
	}
	return p, nil
}

func (f *fakeStore) CreatePost(_ context.Context, authorID, content string) (Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return Post{}, f.err
	}
	p := Post{ID: f.nextID("post"), AuthorID: authorID, Content: content, CreatedAt: f.tick()}
	f.posts[p.ID] = p
	return p, nil
}

func (f *fakeStore) DeletePost(_ context.Context, id string) (Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return Post{}, notFound("post %s", id)
	}
	for rid, rt := range f.retweets {
		if rt.OriginalPostID == id {
			delete(f.retweets, rid)
		}
	}
	delete(f.posts, id)
	return p, nil
}

func (f *fakeStore) SetLiked(_ context.Context, postID, userID string, liked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[postID]
	if !ok {
		return notFound("post %s", postID)
	}
	var next []string
	for _, id := range p.LikedBy {
		if id != userID {
			next = append(next, id)
		}
	}
	if liked {
		next = append(next, userID)
	}
	p.LikedBy = next
	f.posts[postID] = p
	return nil
}

func (f *fakeStore) ToggleLike(ctx context.Context, postID, userID string) (bool, error) {
	p, err := f.GetPost(ctx, postID)
	if err != nil {
		return false, err
	}
	liked := !p.IsLikedBy(userID)
	return liked, f.SetLiked(ctx, postID, userID, liked)
}

func (f *fakeStore) ListRetweets(_ context.Context, filter RetweetFilter) ([]Retweet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []Retweet
	for _, rt := range f.retweets {
		if filter.AuthorID != "" && rt.AuthorID != filter.AuthorID {
			continue
		}
		out = append(out, rt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) FindRetweet(_ context.Context, postID, authorID string) (Retweet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rt := range f.retweets {
		if rt.OriginalPostID == postID && rt.AuthorID == authorID {
			return rt, nil
		}
	}
	return Retweet{}, notFound("retweet")
}

func (f *fakeStore) CreateRetweet(_ context.Context, in RetweetInput) (Retweet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rt := Retweet{
		ID:               f.nextID("rt"),
		OriginalPostID:   in.OriginalPostID,
		OriginalAuthorID: in.OriginalAuthorID,
		AuthorID:         in.AuthorID,
		AuthorUsername:   in.AuthorUsername,
		CreatedAt:        f.tick(),
	}
	f.retweets[rt.ID] = rt
	return rt, nil
}

func (f *fakeStore) DeleteRetweet(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.retweets, id)
	return nil
}

func (f *fakeStore) ToggleRetweet(ctx context.Context, in RetweetInput) (*Retweet, error) {
	if f.toggleErr != nil {
		return nil, f.toggleErr
	}
	if existing, err := f.FindRetweet(ctx, in.OriginalPostID, in.AuthorID); err == nil {
		return nil, f.DeleteRetweet(ctx, existing.ID)
	}
	rt, err := f.CreateRetweet(ctx, in)
	if err != nil {
		return nil, err
	}
	return &rt, nil
}

type fakeDirectory struct {
	users     map[string]UserProfile
	batchArgs [][]string
	err       error
}

func newFakeDirectory(users ...UserProfile) *fakeDirectory {
	d := &fakeDirectory{users: map[string]UserProfile{}}
	for _, u := range users {
		d.users[u.ID] = u
	}
	return d
}

func (d *fakeDirectory) ResolveByIDs(_ context.Context, ids []string) ([]UserProfile, error) {
	d.batchArgs = append(d.batchArgs, ids)
	if d.err != nil {
		return nil, d.err
	}
	var out []UserProfile
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (d *fakeDirectory) ResolveByUsername(_ context.Context, username string) (UserProfile, error) {
	if d.err != nil {
		return UserProfile{}, d.err
	}
	for _, u := range d.users {
		if u.Username == username {
			return u, nil
		}
	}
	return UserProfile{}, notFound("user %s", username)
}

func (d *fakeDirectory) List(_ context.Context) ([]UserProfile, error) {
	if d.err != nil {
		return nil, d.err
	}
	var out []UserProfile
	for _, u := range d.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// countingLimiter allows max acquisitions per key.
type countingLimiter struct {
	max   int
	count map[string]int
	err   error
}

func newCountingLimiter(max int) *countingLimiter {
	return &countingLimiter{max: max, count: map[string]int{}}
}

func (l *countingLimiter) TryAcquire(_ context.Context, key string) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	if l.count[key] >= l.max {
		return false, nil
	}
	l.count[key]++
	return true, nil
}

type recordingPublisher struct {
	events []Event
}

func (p *recordingPublisher) Publish(_ context.Context, event Event) {
	p.events = append(p.events, event)
}

var (
	alice = UserProfile{ID: "user-a", Username: "alice", FullName: "Alice A"}
	bob   = UserProfile{ID: "user-b", Username: "bob", FullName: "Bob B"}
	carol = UserProfile{ID: "user-c", Username: "carol", FullName: "Carol C"}
)
