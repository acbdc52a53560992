package social

import "time"

type Post struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	LikedBy   []string  `json:"liked_by"`
}

func (p Post) LikeCount() int {
	return len(p.LikedBy)
}

func (p Post) IsLikedBy(userID string) bool {
	for _, id := range p.LikedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// Retweet points at an existing post. AuthorID is the stable id of the user
// who reshared; AuthorUsername is the handle shown in feeds.
type Retweet struct {
	ID               string    `json:"id"`
	OriginalPostID   string    `json:"original_post_id"`
	OriginalAuthorID string    `json:"original_author_id"`
	AuthorID         string    `json:"author_id"`
	AuthorUsername   string    `json:"author_username"`
	CreatedAt        time.Time `json:"created_at"`
}

type RetweetInput struct {
	OriginalPostID   string
	OriginalAuthorID string
	AuthorID         string
	AuthorUsername   string
}

type UserProfile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	FullName  string    `json:"full_name"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedEntry is a request-scoped view of a post. An empty RetweetID marks an
// original post; otherwise the entry is a reshare and RetweetedAt is the time
// of the retweet rather than of the post.
type FeedEntry struct {
	Post          Post        `json:"post"`
	Author        UserProfile `json:"author"`
	RetweetID     string      `json:"retweet_id"`
	RetweetAuthor string      `json:"retweet_author"`
	RetweetedAt   time.Time   `json:"retweeted_at"`
}

func (e FeedEntry) IsRetweet() bool {
	return e.RetweetID != ""
}

// Key identifies the entry within a feed.
func (e FeedEntry) Key() string {
	if e.IsRetweet() {
		return e.RetweetID
	}
	return e.Post.ID
}

// PostFilter narrows ListPosts. Zero values mean "no restriction"; Limit 0
// returns every match.
type PostFilter struct {
	AuthorID string
	IDs      []string
	LikedBy  string
	Limit    int
}

type RetweetFilter struct {
	AuthorID string
}
