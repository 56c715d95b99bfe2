// Package sqlite implements a SQLite-based persistence driver using GORM.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pantrylink/pantrylink-go/internal/store"
)

func init() {
	store.Register("sqlite", NewDriver)
}

// Options holds sqlite driver settings from the config Options map.
type Options struct {
	// Filename overrides the database file name (default pantrylink.db).
	Filename string `mapstructure:"filename"`
}

// Driver implements store.Driver and store.IdentityStore using SQLite via GORM.
type Driver struct {
	dataDir  string
	filename string
	db       *gorm.DB
}

// NewDriver creates a new SQLite driver instance.
func NewDriver(cfg *store.DriverConfig) (store.Driver, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data_dir is required for sqlite driver")
	}

	var opts Options
	if err := cfg.DecodeOptions(&opts); err != nil {
		return nil, err
	}
	if opts.Filename == "" {
		opts.Filename = "pantrylink.db"
	}

	return &Driver{dataDir: cfg.DataDir, filename: opts.Filename}, nil
}

// Name returns the driver name.
func (d *Driver) Name() string {
	return "sqlite"
}

// Init initializes the SQLite database and runs AutoMigrate.
func (d *Driver) Init(ctx context.Context) error {
	if err := os.MkdirAll(d.dataDir, 0700); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	dbPath := filepath.Join(d.dataDir, d.filename)

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	d.db = db

	if err := db.AutoMigrate(&store.CurrentUser{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (d *Driver) Close() error {
	if d.db == nil {
		return nil
	}
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SaveCurrentUser writes the single row, replacing any previous record.
func (d *Driver) SaveCurrentUser(ctx context.Context, rec *store.CurrentUser) error {
	if d.db == nil {
		return store.ErrClosed
	}
	cp := *rec
	cp.Slot = 1
	return d.db.WithContext(ctx).Save(&cp).Error
}

// LoadCurrentUser reads the single row.
func (d *Driver) LoadCurrentUser(ctx context.Context) (*store.CurrentUser, error) {
	if d.db == nil {
		return nil, store.ErrClosed
	}
	var rec store.CurrentUser
	err := d.db.WithContext(ctx).First(&rec, "slot = ?", 1).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNoCurrentUser
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ClearCurrentUser removes the row if present.
func (d *Driver) ClearCurrentUser(ctx context.Context) error {
	if d.db == nil {
		return store.ErrClosed
	}
	return d.db.WithContext(ctx).Delete(&store.CurrentUser{}, "slot = ?", 1).Error
}
