package directory

import (
	"context"
	"fmt"

	"github.com/nephh/twitter-clone/internal/social"
)

// Static serves a fixed set of profiles, in the order given.
type Static struct {
	users []social.UserProfile
}

func NewStatic(users ...social.UserProfile) *Static {
	return &Static{users: users}
}

func (s *Static) ResolveByIDs(_ context.Context, ids []string) ([]social.UserProfile, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	found := []social.UserProfile{}
	for _, u := range s.users {
		if want[u.ID] {
			found = append(found, u)
		}
	}
	return found, nil
}

func (s *Static) ResolveByUsername(_ context.Context, username string) (social.UserProfile, error) {
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return social.UserProfile{}, fmt.Errorf("%w: user %s", social.ErrNotFound, username)
}

func (s *Static) List(context.Context) ([]social.UserProfile, error) {
	return append([]social.UserProfile{}, s.users...), nil
}
