// Package store provides persistence primitives and driver abstractions.
package store

import (
	"context"
	"errors"
)

// Common errors for store operations.
var (
	ErrNoCurrentUser = errors.New("no current user stored")
	ErrClosed        = errors.New("store closed")
)

// Driver defines the interface for a persistence backend.
// Implementations must be safe for concurrent use.
type Driver interface {
	// Init initializes the driver (create tables, load data, etc).
	Init(ctx context.Context) error

	// Close releases resources held by the driver.
	Close() error

	// Name returns the driver name (json, sqlite).
	Name() string
}

// IdentityStore defines operations on the single "current user" slot.
// The slot holds at most one record: it is written at sign-in, read by every
// outgoing request to attach credentials, and cleared at logout.
type IdentityStore interface {
	// SaveCurrentUser writes the slot, replacing any previous record.
	SaveCurrentUser(ctx context.Context, rec *CurrentUser) error

	// LoadCurrentUser reads the slot. Returns ErrNoCurrentUser when empty.
	LoadCurrentUser(ctx context.Context) (*CurrentUser, error)

	// ClearCurrentUser empties the slot. Clearing an empty slot is a no-op.
	ClearCurrentUser(ctx context.Context) error
}

// CurrentUser is the persisted form of the authenticated user record.
type CurrentUser struct {
	Slot      int    `json:"-" gorm:"primaryKey"` // always 1; enforces the single row
	UserID    string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	AuthToken string `json:"auth_token"`
	SignedIn  int64  `json:"signed_in"` // unix seconds
}
