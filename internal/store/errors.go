package store

import "errors"

// Sentinel errors. Services translate these into coded domain errors so
// handlers never see store internals.
var (
	// ErrNotFound is returned when an entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned on primary key or unique index conflict.
	ErrAlreadyExists = errors.New("already exists")
)
