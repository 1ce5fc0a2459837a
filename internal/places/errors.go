package places

import "errors"

var (
	// ErrNotFound means no place exists for the given id.
	ErrNotFound = errors.New("place not found")
	// ErrInvalidInput covers malformed create/ingest/react requests.
	ErrInvalidInput = errors.New("invalid input")
)
