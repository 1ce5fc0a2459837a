package object

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when a storage key does not resolve to an object.
var ErrNotFound = errors.New("object not found")

// ObjectStore defines the contract for saving and retrieving binary objects.
type ObjectStore interface {
	// Save stores the reader contents under a key derived from imageID and the
	// file extension, returning the storage key, size and sniffed MIME type.
	Save(ctx context.Context, imageID string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	// SaveWithKey stores data at an exact storage key.
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	Delete(ctx context.Context, storageKey string) error
	// Check verifies the backing store is reachable.
	Check(ctx context.Context) error
}

// URLSigner is implemented by stores that can mint time-limited GET URLs.
type URLSigner interface {
	PresignGet(ctx context.Context, storageKey string, ttl time.Duration) (string, error)
}
