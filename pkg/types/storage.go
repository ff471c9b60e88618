package types

import (
	"context"
	"errors"
)

// Storage is the local key/value store customizations and legacy data live
// in. Callers attach to a backend, read and write whole values by key, and
// detach when done.
type Storage interface {
	// Attach connects the Storage to the backend described by config.
	// Returns ErrAlreadyAttached if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, item operations return ErrStorageDetached.
	Detach() error

	// GetItem returns the value stored under key.
	// Returns ErrKeyNotFound if nothing is stored there.
	GetItem(ctx context.Context, key string) ([]byte, error)

	// SetItem stores value under key, replacing any previous value.
	SetItem(ctx context.Context, key string, value []byte) error

	// RemoveItem deletes key. Removing a missing key succeeds.
	RemoveItem(ctx context.Context, key string) error
}

// Storage lifecycle and lookup errors.
var (
	ErrStorageDetached = errors.New("storage is detached")
	ErrAlreadyAttached = errors.New("storage is already attached")
	ErrKeyNotFound     = errors.New("key not found")
)

// Storage keys.
const (
	// KeyTokenCustomizations holds the JSON array of customizations.
	KeyTokenCustomizations = "TokenCustomizations"
)
