package types

import "errors"

// Construction and validation errors. Always raised synchronously at the
// point of construction or mutation.
var (
	ErrInvalidID            = errors.New("invalid id")
	ErrInvalidType          = errors.New("invalid type")
	ErrInvalidParentID      = errors.New("invalid parent id")
	ErrInvalidCustomization = errors.New("invalid customization")
	ErrCyclicHierarchy      = errors.New("cyclic parent hierarchy")
)

// Store errors.
var (
	ErrPersistenceFailure = errors.New("persisting customizations failed")
	ErrNotPrivileged      = errors.New("operation requires a DM session")
)
