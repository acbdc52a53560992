package directory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/nephh/twitter-clone/internal/social"
)

func newClerkServer(t *testing.T, handler http.HandlerFunc) *Clerk {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClerk(srv.URL+"/", "sk_test")
}

func writeUsers(w http.ResponseWriter, users ...clerkUser) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(users)
}

func TestClerkResolveByIDsSendsOneBatch(t *testing.T) {
	var calls int
	clerk := newClerkServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/users" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test" {
			t.Fatalf("unexpected auth header %q", got)
		}
		ids := r.URL.Query()["user_id"]
		if len(ids) != 2 || ids[0] != "user-a" || ids[1] != "user-b" {
			t.Fatalf("unexpected ids %v", ids)
		}
		writeUsers(w,
			clerkUser{ID: "user-a", Username: "alice", FirstName: "Alice", LastName: "Liddell", CreatedAt: 1704110400000},
			clerkUser{ID: "user-b", Username: "bob", FirstName: "Bob"},
		)
	})

	users, err := clerk.ResolveByIDs(context.Background(), []string{"user-a", "user-b"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected one request, got %d", calls)
	}
	if len(users) != 2 {
		t.Fatalf("expected two users, got %d", len(users))
	}
	if users[0].FullName != "Alice Liddell" {
		t.Fatalf("unexpected full name %q", users[0].FullName)
	}
	if users[1].FullName != "bob" {
		t.Fatalf("expected username fallback, got %q", users[1].FullName)
	}
	if users[0].CreatedAt.Year() != 2024 {
		t.Fatalf("unexpected created at %s", users[0].CreatedAt)
	}
}

func TestClerkResolveByIDsSplitsLargeBatches(t *testing.T) {
	var calls int
	clerk := newClerkServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		query := r.URL.Query()
		limit, err := strconv.Atoi(query.Get("limit"))
		if err != nil {
			t.Fatalf("bad limit %q", query.Get("limit"))
		}
		ids := query["user_id"]
		if len(ids) > idBatch {
			t.Fatalf("request carried %d ids", len(ids))
		}
		var users []clerkUser
		for _, id := range ids {
			if len(users) == limit {
				break
			}
			users = append(users, clerkUser{ID: id, Username: "u" + id})
		}
		writeUsers(w, users...)
	})

	ids := make([]string, 250)
	for i := range ids {
		ids[i] = "user-" + strconv.Itoa(i)
	}
	users, err := clerk.ResolveByIDs(context.Background(), ids)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(users) != len(ids) {
		t.Fatalf("expected %d users, got %d", len(ids), len(users))
	}
	if calls != 3 {
		t.Fatalf("expected 3 requests, got %d", calls)
	}
}

func TestClerkResolveByIDsEmpty(t *testing.T) {
	clerk := newClerkServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("no request expected")
	})
	users, err := clerk.ResolveByIDs(context.Background(), nil)
	if err != nil || len(users) != 0 {
		t.Fatalf("expected empty result, got %v %v", users, err)
	}
}

func TestClerkResolveByUsername(t *testing.T) {
	clerk := newClerkServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("username") == "alice" {
			writeUsers(w, clerkUser{ID: "user-a", Username: "alice"})
			return
		}
		writeUsers(w)
	})

	user, err := clerk.ResolveByUsername(context.Background(), "alice")
	if err != nil || user.ID != "user-a" {
		t.Fatalf("unexpected user %+v %v", user, err)
	}
	if _, err := clerk.ResolveByUsername(context.Background(), "nobody"); !errors.Is(err, social.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClerkList(t *testing.T) {
	clerk := newClerkServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") == "" {
			t.Fatalf("expected limit parameter")
		}
		writeUsers(w, clerkUser{ID: "user-a", Username: "alice"}, clerkUser{ID: "user-b", Username: "bob"})
	})
	users, err := clerk.List(context.Background())
	if err != nil || len(users) != 2 {
		t.Fatalf("unexpected list %v %v", users, err)
	}
}

func TestClerkErrorStatus(t *testing.T) {
	clerk := newClerkServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[]}`, http.StatusUnauthorized)
	})
	_, err := clerk.ResolveByIDs(context.Background(), []string{"user-a"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if social.IsDomainError(err) {
		t.Fatalf("transport errors must not carry a domain kind: %v", err)
	}
}

func TestFullName(t *testing.T) {
	cases := []struct {
		first, last, username, want string
	}{
		{"Ada", "Lovelace", "ada", "Ada Lovelace"},
		{"Ada", "", "ada", "ada"},
		{"", "Lovelace", "ada", "ada"},
	}
	for _, tc := range cases {
		if got := FullName(tc.first, tc.last, tc.username); got != tc.want {
			t.Fatalf("FullName(%q, %q) = %q, want %q", tc.first, tc.last, got, tc.want)
		}
	}
}
