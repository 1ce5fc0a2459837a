package images

import "errors"

var (
	// ErrNotFound means no image exists for the given id.
	ErrNotFound = errors.New("image not found")
	// ErrInvalidInput covers malformed upload requests.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnsupportedFormat means the file extension is not an accepted image type.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)
