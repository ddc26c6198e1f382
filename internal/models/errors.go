package models

import "errors"

// Error taxonomy shared across stores, index manager, and search.
// Callers match with errors.Is; layers add context with fmt.Errorf("%w").
var (
	// ErrNotFound indicates an absent dataset, project, row, or index artifact.
	ErrNotFound = errors.New("not found")
	// ErrNameConflict indicates a duplicate dataset or project name.
	ErrNameConflict = errors.New("name already exists")
	// ErrIndexNotFound indicates similarity search before any Ensure for the dataset.
	ErrIndexNotFound = errors.New("vector index not found")
	// ErrIndexEmpty indicates a search against a zero-row index.
	ErrIndexEmpty = errors.New("vector index is empty")
	// ErrIndexBuilding indicates a background index build is still in flight.
	// Transient: distinct from ErrIndexNotFound, callers may retry.
	ErrIndexBuilding = errors.New("vector index build in progress")
	// ErrUnreadable indicates an upload that could not be parsed as tabular data.
	ErrUnreadable = errors.New("unreadable input")
)
