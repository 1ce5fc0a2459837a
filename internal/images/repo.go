package images

import (
	"context"
	"time"
)

// ListFilter narrows and pages the image listing.
type ListFilter struct {
	AnalyzedOnly bool
	Limit        int
	Offset       int
}

// Repo defines persistence operations for image metadata.
type Repo interface {
	Create(ctx context.Context, img Image) error
	Get(ctx context.Context, imageID string) (Image, error)
	List(ctx context.Context, filter ListFilter) ([]Image, error)
	Delete(ctx context.Context, imageID string) error

	// ClaimAnalyzing atomically moves the image into the analyzing status.
	// Without force only uploaded and failed images can be claimed; force also
	// claims analyzed images. It never claims an image that is already
	// analyzing, so at most one caller wins a concurrent race.
	ClaimAnalyzing(ctx context.Context, imageID string, force bool) (bool, error)

	// SetStatus records a status transition, with analyzed_at set on success.
	SetStatus(ctx context.Context, imageID, status string, analyzedAt *time.Time) error
}
