package identity_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/pantrylink/pantrylink-go/internal/identity"
	"github.com/pantrylink/pantrylink-go/internal/store"
)

// memIdentityStore is an in-memory store.IdentityStore for tests.
type memIdentityStore struct {
	mu  sync.Mutex
	rec *store.CurrentUser
}

func (m *memIdentityStore) SaveCurrentUser(ctx context.Context, rec *store.CurrentUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.rec = &cp
	return nil
}

func (m *memIdentityStore) LoadCurrentUser(ctx context.Context) (*store.CurrentUser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec == nil {
		return nil, store.ErrNoCurrentUser
	}
	cp := *m.rec
	return &cp, nil
}

func (m *memIdentityStore) ClearCurrentUser(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = nil
	return nil
}

func TestSessionSignInCurrentSignOut(t *testing.T) {
	ctx := context.Background()
	session := identity.NewSession(&memIdentityStore{})

	if _, err := session.Current(ctx); !errors.Is(err, identity.ErrNoCurrentUser) {
		t.Fatalf("expected ErrNoCurrentUser before sign-in, got %v", err)
	}

	user := &identity.User{
		ID:        "u1",
		Username:  "alice_99",
		Email:     "alice@example.com",
		AuthToken: identity.BasicToken("alice_99", "pw"),
	}
	if err := session.SignIn(ctx, user); err != nil {
		t.Fatalf("sign-in failed: %v", err)
	}

	got, err := session.Current(ctx)
	if err != nil {
		t.Fatalf("current failed: %v", err)
	}
	if got.ID != "u1" || got.Username != "alice_99" || got.AuthToken != user.AuthToken {
		t.Errorf("unexpected current user: %+v", got)
	}

	if err := session.SignOut(ctx); err != nil {
		t.Fatalf("sign-out failed: %v", err)
	}
	if _, err := session.Current(ctx); !errors.Is(err, identity.ErrNoCurrentUser) {
		t.Errorf("expected ErrNoCurrentUser after sign-out, got %v", err)
	}

	// Signing out twice is a no-op.
	if err := session.SignOut(ctx); err != nil {
		t.Errorf("second sign-out failed: %v", err)
	}
}

func TestSessionSignInRejectsEmptyRecord(t *testing.T) {
	session := identity.NewSession(&memIdentityStore{})
	if err := session.SignIn(context.Background(), &identity.User{}); err == nil {
		t.Error("expected error for empty user record")
	}
}
