package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/nephh/twitter-clone/internal/db"
	"github.com/nephh/twitter-clone/internal/social"

	"github.com/jackc/pgx/v5"
)

// Postgres reads the users table kept in sync with the identity provider.
type Postgres struct {
	db db.Querier
}

func NewPostgres(q db.Querier) *Postgres {
	return &Postgres{db: q}
}

const selectUsers = `SELECT id, username, full_name, image_url, created_at FROM users`

func (p *Postgres) ResolveByIDs(ctx context.Context, ids []string) ([]social.UserProfile, error) {
	if len(ids) == 0 {
		return []social.UserProfile{}, nil
	}
	return p.query(ctx, selectUsers+` WHERE id = ANY($1)`, ids)
}

func (p *Postgres) ResolveByUsername(ctx context.Context, username string) (social.UserProfile, error) {
	var u social.UserProfile
	err := p.db.QueryRow(ctx, selectUsers+` WHERE username = $1`, username).
		Scan(&u.ID, &u.Username, &u.FullName, &u.ImageURL, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return social.UserProfile{}, fmt.Errorf("%w: user %s", social.ErrNotFound, username)
	}
	if err != nil {
		return social.UserProfile{}, err
	}
	if u.FullName == "" {
		u.FullName = u.Username
	}
	return u, nil
}

func (p *Postgres) List(ctx context.Context) ([]social.UserProfile, error) {
	return p.query(ctx, selectUsers+` ORDER BY created_at DESC, id`)
}

func (p *Postgres) query(ctx context.Context, sql string, args ...any) ([]social.UserProfile, error) {
	rows, err := p.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []social.UserProfile{}
	for rows.Next() {
		var u social.UserProfile
		if err := rows.Scan(&u.ID, &u.Username, &u.FullName, &u.ImageURL, &u.CreatedAt); err != nil {
			return nil, err
		}
		if u.FullName == "" {
			u.FullName = u.Username
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

var _ social.UserDirectory = (*Postgres)(nil)
