package sqlite_test

import (
	"context"
	"errors"
	"testing"

	"github.com/pantrylink/pantrylink-go/internal/store"
	sqlitedriver "github.com/pantrylink/pantrylink-go/internal/store/sqlite"
)

func newDriver(t *testing.T, dataDir string, options map[string]any) (store.Driver, store.IdentityStore) {
	t.Helper()
	drv, err := sqlitedriver.NewDriver(&store.DriverConfig{Driver: "sqlite", DataDir: dataDir, Options: options})
	if err != nil {
		t.Fatalf("failed to create driver: %v", err)
	}
	if err := drv.Init(context.Background()); err != nil {
		t.Fatalf("failed to init driver: %v", err)
	}
	return drv, drv.(store.IdentityStore)
}

func TestCurrentUserSlotRoundTrip(t *testing.T) {
	ctx := context.Background()
	drv, ids := newDriver(t, t.TempDir(), nil)
	defer drv.Close()

	if _, err := ids.LoadCurrentUser(ctx); !errors.Is(err, store.ErrNoCurrentUser) {
		t.Fatalf("expected ErrNoCurrentUser on empty slot, got %v", err)
	}

	rec := &store.CurrentUser{
		UserID:    "u1",
		Username:  "alice_99",
		Email:     "alice@example.com",
		AuthToken: "dG9rZW4=",
		SignedIn:  1700000000,
	}
	if err := ids.SaveCurrentUser(ctx, rec); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := ids.LoadCurrentUser(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.UserID != "u1" || got.Username != "alice_99" {
		t.Errorf("unexpected record: %+v", got)
	}
}

func TestSaveReplacesPreviousRecord(t *testing.T) {
	ctx := context.Background()
	drv, ids := newDriver(t, t.TempDir(), nil)
	defer drv.Close()

	if err := ids.SaveCurrentUser(ctx, &store.CurrentUser{UserID: "u1", Username: "alice_99"}); err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	if err := ids.SaveCurrentUser(ctx, &store.CurrentUser{UserID: "u2", Username: "bob_1"}); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	got, err := ids.LoadCurrentUser(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.UserID != "u2" {
		t.Errorf("expected replacement record u2, got %q", got.UserID)
	}
}

func TestPersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()

	drv, ids := newDriver(t, dataDir, map[string]any{"filename": "test.db"})
	if err := ids.SaveCurrentUser(ctx, &store.CurrentUser{UserID: "u3", Username: "carol_7"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	drv.Close()

	drv2, ids2 := newDriver(t, dataDir, map[string]any{"filename": "test.db"})
	defer drv2.Close()

	got, err := ids2.LoadCurrentUser(ctx)
	if err != nil {
		t.Fatalf("load after reopen failed: %v", err)
	}
	if got.UserID != "u3" {
		t.Errorf("expected u3, got %q", got.UserID)
	}
}

func TestClearCurrentUser(t *testing.T) {
	ctx := context.Background()
	drv, ids := newDriver(t, t.TempDir(), nil)
	defer drv.Close()

	if err := ids.SaveCurrentUser(ctx, &store.CurrentUser{UserID: "u4", Username: "dave_2"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := ids.ClearCurrentUser(ctx); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, err := ids.LoadCurrentUser(ctx); !errors.Is(err, store.ErrNoCurrentUser) {
		t.Errorf("expected ErrNoCurrentUser after clear, got %v", err)
	}
}
