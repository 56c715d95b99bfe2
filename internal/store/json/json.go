// Package json implements a JSON file-based persistence driver.
// It uses atomic writes (temp file + fsync + rename) and in-process locking.
package json

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pantrylink/pantrylink-go/internal/store"
)

func init() {
	store.Register("json", NewDriver)
}

// currentUserFile is the single-slot file holding the signed-in user.
const currentUserFile = "current_user.json"

// Options holds json driver settings from the config Options map.
type Options struct {
	// Indent pretty-prints the stored file (default true).
	Indent *bool `mapstructure:"indent"`
}

// Driver implements store.Driver and store.IdentityStore using a JSON file.
type Driver struct {
	dataDir string
	indent  bool
	mu      sync.RWMutex
	closed  bool

	// In-memory state loaded from the slot file; nil when logged out.
	current *store.CurrentUser
}

// NewDriver creates a new JSON driver instance.
func NewDriver(cfg *store.DriverConfig) (store.Driver, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data_dir is required for json driver")
	}

	var opts Options
	if err := cfg.DecodeOptions(&opts); err != nil {
		return nil, err
	}
	indent := true
	if opts.Indent != nil {
		indent = *opts.Indent
	}

	return &Driver{dataDir: cfg.DataDir, indent: indent}, nil
}

// Name returns the driver name.
func (d *Driver) Name() string {
	return "json"
}

// Init loads the current-user slot from disk if present.
func (d *Driver) Init(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(d.dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	path := filepath.Join(d.dataDir, currentUserFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load current user: %w", err)
	}

	var rec store.CurrentUser
	if err := json.Unmarshal(data, &rec); err != nil {
		return fmt.Errorf("failed to parse current user file: %w", err)
	}
	rec.Slot = 1
	d.current = &rec

	return nil
}

// Close releases resources.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// SaveCurrentUser writes the slot, replacing any previous record.
func (d *Driver) SaveCurrentUser(ctx context.Context, rec *store.CurrentUser) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return store.ErrClosed
	}

	cp := *rec
	cp.Slot = 1
	if err := d.saveSlot(&cp); err != nil {
		return err
	}
	d.current = &cp
	return nil
}

// LoadCurrentUser reads the slot.
func (d *Driver) LoadCurrentUser(ctx context.Context) (*store.CurrentUser, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return nil, store.ErrClosed
	}
	if d.current == nil {
		return nil, store.ErrNoCurrentUser
	}
	cp := *d.current
	return &cp, nil
}

// ClearCurrentUser empties the slot.
func (d *Driver) ClearCurrentUser(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return store.ErrClosed
	}

	path := filepath.Join(d.dataDir, currentUserFile)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear current user: %w", err)
	}
	d.current = nil
	return nil
}

// saveSlot atomically writes the slot file.
// Pattern: write to temp file, fsync, rename.
func (d *Driver) saveSlot(rec *store.CurrentUser) error {
	path := filepath.Join(d.dataDir, currentUserFile)
	tempPath := path + ".tmp"

	var jsonData []byte
	var err error
	if d.indent {
		jsonData, err = json.MarshalIndent(rec, "", "  ")
	} else {
		jsonData, err = json.Marshal(rec)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal current user: %w", err)
	}

	f, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := f.Write(jsonData); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	// Fsync to ensure data is on disk
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}
