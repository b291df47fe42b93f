package graph

import "errors"

// Sentinel errors returned by graph operations. Callers match with errors.Is.
var (
	// ErrNotFound indicates an operation referenced a node id that is not
	// in the graph.
	ErrNotFound = errors.New("node not found")

	// ErrInvalidArgument indicates an out-of-range weight, importance,
	// threshold, or depth parameter.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrBadSnapshot indicates a snapshot payload that could not be
	// deserialized into a well-formed graph. Distinct from runtime errors
	// so callers can fall back to a fresh graph.
	ErrBadSnapshot = errors.New("malformed snapshot")
)
