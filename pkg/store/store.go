// Package store provides the public factory for wasteledger record stores.
// It selects a backend by name while keeping implementations internal.
package store

import (
	"fmt"
	"log/slog"

	"github.com/mesh-intelligence/wasteledger/internal/jsonfile"
	"github.com/mesh-intelligence/wasteledger/internal/sqlite"
	"github.com/mesh-intelligence/wasteledger/pkg/types"
)

// New returns an unattached store for the named backend. A nil logger
// discards backend diagnostics.
func New(backend string, logger *slog.Logger) (types.Store, error) {
	switch backend {
	case types.BackendJSON, "":
		return jsonfile.NewBackend(jsonfile.WithLogger(logger)), nil
	case types.BackendSQLite:
		return sqlite.NewBackend(sqlite.WithLogger(logger)), nil
	default:
		return nil, fmt.Errorf("%q: %w", backend, types.ErrBackendUnknown)
	}
}

// Open creates the backend named by config and attaches it.
//
// Example:
//
//	s, err := store.Open(types.Config{
//	    Backend: types.BackendJSON,
//	    DataDir: ".wasteledger-data",
//	}, slog.Default())
//	if err != nil {
//	    return err
//	}
//	defer s.Detach()
func Open(config types.Config, logger *slog.Logger) (types.Store, error) {
	if config.Backend == "" {
		config.Backend = types.BackendJSON
	}
	s, err := New(config.Backend, logger)
	if err != nil {
		return nil, err
	}
	if err := s.Attach(config); err != nil {
		return nil, fmt.Errorf("attach %s backend: %w", config.Backend, err)
	}
	return s, nil
}
