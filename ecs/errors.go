package ecs

import "errors"

// Every error below is a precondition violation by the caller. A failing
// call leaves the store exactly as it was.
var (
	// ErrEntityNotFound is returned when an operation names an entity that
	// was never created or has been destroyed.
	ErrEntityNotFound = errors.New("entity not found")
	// ErrComponentNotFound is returned when reading a kind the entity does
	// not currently hold.
	ErrComponentNotFound = errors.New("component not found")
	// ErrInvalidQuery is returned by Find when called without kinds.
	ErrInvalidQuery = errors.New("query needs at least one component kind")
	// ErrKindNotRegistered is returned when a kind is unknown to the
	// registry, or is registered with a different data shape.
	ErrKindNotRegistered = errors.New("component kind not registered")
	// ErrSnapshotMismatch is returned by Restore when a snapshot holds values
	// the store cannot take.
	ErrSnapshotMismatch = errors.New("snapshot does not match registry")
)
