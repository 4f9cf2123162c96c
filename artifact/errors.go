package artifact

import "errors"

var (
	// ErrNotFound is returned when an artifact for the given experiment / name
	// pair does not exist in the underlying store.
	ErrNotFound = errors.New("artifact not found")

	// ErrInvalidName is returned for names that would escape the store's scope.
	ErrInvalidName = errors.New("invalid artifact name")
)
