package store_test

import (
	"strings"
	"testing"

	"github.com/pantrylink/pantrylink-go/internal/store"
)

func TestNewUnknownDriver(t *testing.T) {
	_, err := store.New(&store.DriverConfig{Driver: "bogus", DataDir: t.TempDir()})
	if err == nil || !strings.Contains(err.Error(), "unknown driver") {
		t.Fatalf("expected unknown driver error, got %v", err)
	}
}

func TestRegisterAndNew(t *testing.T) {
	called := false
	store.Register("fake", func(cfg *store.DriverConfig) (store.Driver, error) {
		called = true
		return nil, nil
	})

	if _, err := store.New(&store.DriverConfig{Driver: "fake"}); err != nil {
		t.Fatalf("factory returned error: %v", err)
	}
	if !called {
		t.Error("factory was not invoked")
	}

	found := false
	for _, name := range store.AvailableDrivers() {
		if name == "fake" {
			found = true
		}
	}
	if !found {
		t.Error("registered driver not listed")
	}
}

func TestDecodeOptions(t *testing.T) {
	type opts struct {
		Filename string `mapstructure:"filename"`
	}

	cfg := &store.DriverConfig{
		Driver:  "sqlite",
		Options: map[string]any{"filename": "custom.db"},
	}

	var o opts
	if err := cfg.DecodeOptions(&o); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if o.Filename != "custom.db" {
		t.Errorf("expected custom.db, got %q", o.Filename)
	}
}

func TestDecodeOptionsRejectsUnknownKeys(t *testing.T) {
	type opts struct {
		Filename string `mapstructure:"filename"`
	}

	cfg := &store.DriverConfig{
		Driver:  "sqlite",
		Options: map[string]any{"filenme": "typo.db"},
	}

	var o opts
	if err := cfg.DecodeOptions(&o); err == nil {
		t.Error("expected error for unknown option key")
	}
}
