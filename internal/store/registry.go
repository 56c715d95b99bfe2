package store

import (
	"fmt"
	"sync"

	"github.com/mitchellh/mapstructure"
)

// DriverConfig holds configuration for driver selection and initialization.
type DriverConfig struct {
	// Driver is the driver name: json, sqlite
	Driver string `json:"driver"`

	// DataDir is the directory for data files (json file, sqlite db)
	DataDir string `json:"data_dir"`

	// Options holds driver-specific settings from config, decoded by each
	// driver with DecodeOptions.
	Options map[string]any `json:"options"`
}

// DecodeOptions decodes the free-form Options map into a driver-specific
// struct using mapstructure.
func (c *DriverConfig) DecodeOptions(target any) error {
	if len(c.Options) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:      target,
		ErrorUnused: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(c.Options); err != nil {
		return fmt.Errorf("invalid options for driver %s: %w", c.Driver, err)
	}
	return nil
}

// DriverFactory is a function that creates a driver instance.
type DriverFactory func(cfg *DriverConfig) (Driver, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]DriverFactory)
)

// Register registers a driver factory by name.
// This is typically called from init() in driver packages.
func Register(name string, factory DriverFactory) {
	driversMu.Lock()
	defer driversMu.Unlock()
	drivers[name] = factory
}

// New creates a driver instance based on the configuration.
func New(cfg *DriverConfig) (Driver, error) {
	driversMu.RLock()
	factory, ok := drivers[cfg.Driver]
	driversMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown driver: %s", cfg.Driver)
	}

	return factory(cfg)
}

// AvailableDrivers returns the list of registered driver names.
func AvailableDrivers() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()

	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	return names
}
