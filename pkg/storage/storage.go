// Package storage provides the public factory for tokenshelf storage
// backends while keeping implementations internal.
package storage

import (
	"fmt"

	"github.com/mesh-intelligence/tokenshelf/internal/filestore"
	"github.com/mesh-intelligence/tokenshelf/internal/memstore"
	"github.com/mesh-intelligence/tokenshelf/internal/pgstore"
	"github.com/mesh-intelligence/tokenshelf/internal/s3store"
	"github.com/mesh-intelligence/tokenshelf/internal/sqlite"
	"github.com/mesh-intelligence/tokenshelf/pkg/types"
)

// New returns a detached backend for config.Backend.
func New(backend string) (types.Storage, error) {
	switch backend {
	case types.BackendSQLite:
		return sqlite.NewBackend(), nil
	case types.BackendFile:
		return filestore.New(), nil
	case types.BackendMemory:
		return memstore.New(), nil
	case types.BackendPostgres:
		return pgstore.New(), nil
	case types.BackendS3:
		return s3store.New(), nil
	case "":
		return nil, types.ErrBackendEmpty
	default:
		return nil, fmt.Errorf("%w %q", types.ErrBackendUnknown, backend)
	}
}

// Open creates the backend named in config and attaches it.
//
// Example:
//
//	store, err := storage.Open(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".tokenshelf",
//	})
//	defer store.Detach()
func Open(config types.Config) (types.Storage, error) {
	s, err := New(config.Backend)
	if err != nil {
		return nil, err
	}
	if err := s.Attach(config); err != nil {
		return nil, fmt.Errorf("attaching %s backend: %w", config.Backend, err)
	}
	return s, nil
}
