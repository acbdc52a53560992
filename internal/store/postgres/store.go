// Package postgres implements social.PostStore on top of pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nephh/twitter-clone/internal/db"
	"github.com/nephh/twitter-clone/internal/social"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var ErrDuplicateRetweet = fmt.Errorf("%w: retweet already exists", social.ErrConflict)

type Store struct {
	db db.TxQuerier
}

func NewStore(q db.TxQuerier) *Store {
	return &Store{db: q}
}

const selectPosts = `
	SELECT p.id, p.author_id, p.content, p.created_at,
	       COALESCE(array_agg(l.user_id ORDER BY l.created_at) FILTER (WHERE l.user_id IS NOT NULL), '{}')
	FROM posts p
	LEFT JOIN post_likes l ON l.post_id = p.id`

func (s *Store) ListPosts(ctx context.Context, filter social.PostFilter) ([]social.Post, error) {
	var (
		where []string
		args  []any
	)
	if filter.AuthorID != "" {
		args = append(args, filter.AuthorID)
		where = append(where, fmt.Sprintf("p.author_id = $%d", len(args)))
	}
	if len(filter.IDs) > 0 {
		args = append(args, filter.IDs)
		where = append(where, fmt.Sprintf("p.id = ANY($%d)", len(args)))
	}
	if filter.LikedBy != "" {
		args = append(args, filter.LikedBy)
		where = append(where, fmt.Sprintf("EXISTS (SELECT 1 FROM post_likes lb WHERE lb.post_id = p.id AND lb.user_id = $%d)", len(args)))
	}

	query := selectPosts
	if len(where) > 0 {
		query += "\n\tWHERE " + strings.Join(where, " AND ")
	}
	query += "\n\tGROUP BY p.id\n\tORDER BY p.created_at DESC, p.id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf("\n\tLIMIT $%d", len(args))
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []social.Post{}
	for rows.Next() {
		var p social.Post
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.Content, &p.CreatedAt, &p.LikedBy); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *Store) GetPost(ctx context.Context, id string) (social.Post, error) {
	row := s.db.QueryRow(ctx, selectPosts+`
	WHERE p.id = $1
	GROUP BY p.id`, id)

	var p social.Post
	if err := row.Scan(&p.ID, &p.AuthorID, &p.Content, &p.CreatedAt, &p.LikedBy); err != nil {
		return social.Post{}, mapErr(err, "post %s", id)
	}
	return p, nil
}

func (s *Store) CreatePost(ctx context.Context, authorID, content string) (social.Post, error) {
	post := social.Post{
		ID:       uuid.NewString(),
		AuthorID: authorID,
		Content:  content,
		LikedBy:  []string{},
	}
	row := s.db.QueryRow(ctx, `
		INSERT INTO posts (id, author_id, content)
		VALUES ($1,$2,$3)
		RETURNING created_at
	`, post.ID, post.AuthorID, post.Content)
	if err := row.Scan(&post.CreatedAt); err != nil {
		return social.Post{}, err
	}
	return post, nil
}

// DeletePost removes retweets, likes and the post in one transaction.
func (s *Store) DeletePost(ctx context.Context, id string) (social.Post, error) {
	var post social.Post
	err := db.WithTx(ctx, s.db, func(q db.Querier) error {
		if _, err := q.Exec(ctx, `DELETE FROM retweets WHERE original_post_id = $1`, id); err != nil {
			return err
		}

		rows, err := q.Query(ctx, `DELETE FROM post_likes WHERE post_id = $1 RETURNING user_id`, id)
		if err != nil {
			return err
		}
		likedBy := []string{}
		for rows.Next() {
			var userID string
			if err := rows.Scan(&userID); err != nil {
				rows.Close()
				return err
			}
			likedBy = append(likedBy, userID)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		row := q.QueryRow(ctx, `
			DELETE FROM posts WHERE id = $1
			RETURNING id, author_id, content, created_at
		`, id)
		if err := row.Scan(&post.ID, &post.AuthorID, &post.Content, &post.CreatedAt); err != nil {
			return mapErr(err, "post %s", id)
		}
		post.LikedBy = likedBy
		return nil
	})
	if err != nil {
		return social.Post{}, err
	}
	return post, nil
}

func (s *Store) SetLiked(ctx context.Context, postID, userID string, liked bool) error {
	if !liked {
		_, err := s.db.Exec(ctx, `DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
		return err
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO post_likes (post_id, user_id)
		VALUES ($1,$2)
		ON CONFLICT DO NOTHING
	`, postID, userID)
	return mapErr(err, "post %s", postID)
}

// ToggleLike deletes the like when present and inserts it otherwise, in a
// single statement.
func (s *Store) ToggleLike(ctx context.Context, postID, userID string) (bool, error) {
	row := s.db.QueryRow(ctx, `
		WITH removed AS (
			DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2
			RETURNING 1
		), added AS (
			INSERT INTO post_likes (post_id, user_id)
			SELECT $1, $2 WHERE NOT EXISTS (SELECT 1 FROM removed)
			ON CONFLICT DO NOTHING
			RETURNING 1
		)
		SELECT EXISTS (SELECT 1 FROM added)
	`, postID, userID)

	var liked bool
	if err := row.Scan(&liked); err != nil {
		return false, mapErr(err, "post %s", postID)
	}
	return liked, nil
}

func (s *Store) ListRetweets(ctx context.Context, filter social.RetweetFilter) ([]social.Retweet, error) {
	query := `
		SELECT id, original_post_id, original_author_id, author_id, author_username, created_at
		FROM retweets`
	var args []any
	if filter.AuthorID != "" {
		args = append(args, filter.AuthorID)
		query += `
		WHERE author_id = $1`
	}
	query += `
		ORDER BY created_at DESC, id DESC`

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	retweets := []social.Retweet{}
	for rows.Next() {
		var rt social.Retweet
		if err := rows.Scan(&rt.ID, &rt.OriginalPostID, &rt.OriginalAuthorID, &rt.AuthorID, &rt.AuthorUsername, &rt.CreatedAt); err != nil {
			return nil, err
		}
		retweets = append(retweets, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return retweets, nil
}

func (s *Store) FindRetweet(ctx context.Context, postID, authorID string) (social.Retweet, error) {
	return findRetweet(ctx, s.db, postID, authorID)
}

func (s *Store) CreateRetweet(ctx context.Context, in social.RetweetInput) (social.Retweet, error) {
	return createRetweet(ctx, s.db, in)
}

func (s *Store) DeleteRetweet(ctx context.Context, id string) error {
	return deleteRetweet(ctx, s.db, id)
}

// ToggleRetweet locks the original post row so concurrent toggles on the same
// post run one after another.
func (s *Store) ToggleRetweet(ctx context.Context, in social.RetweetInput) (*social.Retweet, error) {
	var created *social.Retweet
	err := db.WithTx(ctx, s.db, func(q db.Querier) error {
		var authorID string
		if err := q.QueryRow(ctx, `SELECT author_id FROM posts WHERE id = $1 FOR UPDATE`, in.OriginalPostID).Scan(&authorID); err != nil {
			return mapErr(err, "post %s", in.OriginalPostID)
		}

		existing, err := findRetweet(ctx, q, in.OriginalPostID, in.AuthorID)
		switch {
		case err == nil:
			return deleteRetweet(ctx, q, existing.ID)
		case !errors.Is(err, social.ErrNotFound):
			return err
		}

		in.OriginalAuthorID = authorID
		rt, err := createRetweet(ctx, q, in)
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

func findRetweet(ctx context.Context, q db.Querier, postID, authorID string) (social.Retweet, error) {
	row := q.QueryRow(ctx, `
		SELECT id, original_post_id, original_author_id, author_id, author_username, created_at
		FROM retweets
		WHERE original_post_id = $1 AND author_id = $2
	`, postID, authorID)

	var rt social.Retweet
	if err := row.Scan(&rt.ID, &rt.OriginalPostID, &rt.OriginalAuthorID, &rt.AuthorID, &rt.AuthorUsername, &rt.CreatedAt); err != nil {
		return social.Retweet{}, mapErr(err, "retweet of %s by %s", postID, authorID)
	}
	return rt, nil
}

func createRetweet(ctx context.Context, q db.Querier, in social.RetweetInput) (social.Retweet, error) {
	rt := social.Retweet{
		ID:               uuid.NewString(),
		OriginalPostID:   in.OriginalPostID,
		OriginalAuthorID: in.OriginalAuthorID,
		AuthorID:         in.AuthorID,
		AuthorUsername:   in.AuthorUsername,
	}
	row := q.QueryRow(ctx, `
		INSERT INTO retweets (id, original_post_id, original_author_id, author_id, author_username)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at
	`, rt.ID, rt.OriginalPostID, rt.OriginalAuthorID, rt.AuthorID, rt.AuthorUsername)
	if err := row.Scan(&rt.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return social.Retweet{}, ErrDuplicateRetweet
		}
		return social.Retweet{}, mapErr(err, "post %s", in.OriginalPostID)
	}
	return rt, nil
}

func deleteRetweet(ctx context.Context, q db.Querier, id string) error {
	tag, err := q.Exec(ctx, `DELETE FROM retweets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: retweet %s", social.ErrNotFound, id)
	}
	return nil
}

// mapErr turns missing rows and dangling foreign keys into social.ErrNotFound.
func mapErr(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%w: %s", social.ErrNotFound, fmt.Sprintf(format, args...))
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
		return fmt.Errorf("%w: %s", social.ErrNotFound, fmt.Sprintf(format, args...))
	}
	return err
}

var _ social.PostStore = (*Store)(nil)
