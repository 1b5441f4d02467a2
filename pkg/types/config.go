package types

import (
	"errors"
	"time"
)

// Config holds backend selection and parameters for Store.Attach.
type Config struct {
	Backend string `json:"backend" yaml:"backend"`
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// PersistTimeout bounds a single table write. Zero selects
	// DefaultPersistTimeout.
	PersistTimeout time.Duration `json:"persist_timeout,omitempty" yaml:"persist_timeout,omitempty"`
}

// Supported backend names.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// DefaultPersistTimeout is used when Config.PersistTimeout is zero.
const DefaultPersistTimeout = 5 * time.Second

// Config validation errors.
var (
	ErrBackendEmpty   = errors.New("backend must not be empty")
	ErrBackendUnknown = errors.New("unknown backend")
	ErrTimeoutInvalid = errors.New("persist timeout must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendJSON:   true,
	BackendSQLite: true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.PersistTimeout < 0 {
		return ErrTimeoutInvalid
	}
	return nil
}

// GetPersistTimeout returns the effective persistence timeout.
func (c Config) GetPersistTimeout() time.Duration {
	if c.PersistTimeout <= 0 {
		return DefaultPersistTimeout
	}
	return c.PersistTimeout
}
