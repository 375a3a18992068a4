package store

import "errors"

// Sentinel errors shared across stores. These are part of each store's
// public API and should be checked with errors.Is().
var (
	// ErrNotFound indicates the requested row does not exist, or is not
	// visible to the requesting owner. Owner-scoped queries deliberately do
	// not distinguish the two cases.
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition indicates a status change that the entity's
	// lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
)
