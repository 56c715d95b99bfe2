package identity

import (
	"context"
	"errors"
	"time"

	"github.com/pantrylink/pantrylink-go/internal/store"
)

// Resolver yields the acting user for an outgoing call. Passing a Resolver
// explicitly (rather than reading ambient global state) keeps callers
// testable without a storage stub.
type Resolver interface {
	// Current returns the signed-in user, or ErrNoCurrentUser.
	Current(ctx context.Context) (*User, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context) (*User, error)

func (f ResolverFunc) Current(ctx context.Context) (*User, error) { return f(ctx) }

// Static returns a Resolver that always yields u. Intended for tests and
// one-shot CLI invocations that already hold the record.
func Static(u *User) Resolver {
	return ResolverFunc(func(context.Context) (*User, error) {
		if u == nil {
			return nil, ErrNoCurrentUser
		}
		return u, nil
	})
}

// Session is the durable-store-backed session: one persisted user record,
// written at sign-in and cleared at logout.
type Session struct {
	store store.IdentityStore
}

// NewSession creates a Session over the given identity store.
func NewSession(st store.IdentityStore) *Session {
	return &Session{store: st}
}

// Current implements Resolver from the persisted slot.
func (s *Session) Current(ctx context.Context) (*User, error) {
	rec, err := s.store.LoadCurrentUser(ctx)
	if errors.Is(err, store.ErrNoCurrentUser) {
		return nil, ErrNoCurrentUser
	}
	if err != nil {
		return nil, err
	}
	return &User{
		ID:        rec.UserID,
		Username:  rec.Username,
		Email:     rec.Email,
		AuthToken: rec.AuthToken,
	}, nil
}

// SignIn persists u as the current user, replacing any previous record.
func (s *Session) SignIn(ctx context.Context, u *User) error {
	if u == nil || u.ID == "" {
		return ErrNoCurrentUser
	}
	return s.store.SaveCurrentUser(ctx, &store.CurrentUser{
		UserID:    u.ID,
		Username:  u.Username,
		Email:     u.Email,
		AuthToken: u.AuthToken,
		SignedIn:  time.Now().Unix(),
	})
}

// SignOut clears the persisted record. Safe to call when already signed out.
func (s *Session) SignOut(ctx context.Context) error {
	return s.store.ClearCurrentUser(ctx)
}
