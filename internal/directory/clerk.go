// Package directory resolves user profiles for feed assembly.
package directory

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/nephh/twitter-clone/internal/social"

	"github.com/go-resty/resty/v2"
)

const (
	// listLimit is the largest page the users endpoint serves.
	listLimit = 500
	// idBatch is the most user_id filters one request may carry.
	idBatch = 100
)

// Clerk reads users from the hosted identity provider's backend API.
type Clerk struct {
	client *resty.Client
}

type clerkUser struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	ImageURL  string `json:"image_url"`
	CreatedAt int64  `json:"created_at"`
}

func NewClerk(baseURL, secretKey string) *Clerk {
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetAuthToken(secretKey).
		SetHeader("Accept", "application/json").
		SetTimeout(5 * time.Second)
	return &Clerk{client: client}
}

func (c *Clerk) ResolveByIDs(ctx context.Context, ids []string) ([]social.UserProfile, error) {
	profiles := []social.UserProfile{}
	for start := 0; start < len(ids); start += idBatch {
		end := min(start+idBatch, len(ids))

		params := url.Values{}
		for _, id := range ids[start:end] {
			params.Add("user_id", id)
		}
		params.Set("limit", fmt.Sprint(idBatch))
		users, err := c.list(ctx, params)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, users...)
	}
	return profiles, nil
}

func (c *Clerk) ResolveByUsername(ctx context.Context, username string) (social.UserProfile, error) {
	params := url.Values{}
	params.Set("username", username)
	users, err := c.list(ctx, params)
	if err != nil {
		return social.UserProfile{}, err
	}
	// the endpoint only filters, so the first match is the user.
	if len(users) == 0 {
		return social.UserProfile{}, fmt.Errorf("%w: user %s", social.ErrNotFound, username)
	}
	return users[0], nil
}

func (c *Clerk) List(ctx context.Context) ([]social.UserProfile, error) {
	params := url.Values{}
	params.Set("limit", fmt.Sprint(listLimit))
	params.Set("order_by", "-created_at")
	return c.list(ctx, params)
}

func (c *Clerk) list(ctx context.Context, params url.Values) ([]social.UserProfile, error) {
	var users []clerkUser
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParamsFromValues(params).
		SetResult(&users).
		Get("/users")
	if err != nil {
		return nil, fmt.Errorf("clerk users: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("clerk users: status %d: %s", resp.StatusCode(), resp.String())
	}

	profiles := make([]social.UserProfile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.profile())
	}
	return profiles, nil
}

func (u clerkUser) profile() social.UserProfile {
	return social.UserProfile{
		ID:        u.ID,
		Username:  u.Username,
		FullName:  FullName(u.FirstName, u.LastName, u.Username),
		ImageURL:  u.ImageURL,
		CreatedAt: time.UnixMilli(u.CreatedAt).UTC(),
	}
}

// FullName joins first and last name, falling back to the username when
// either part is missing.
func FullName(first, last, username string) string {
	if first != "" && last != "" {
		return first + " " + last
	}
	return username
}

var _ social.UserDirectory = (*Clerk)(nil)
