package analyses

import "context"

// Repo defines persistence for analyses. Upsert replaces the current analysis
// for the image and appends a copy to the audit log.
type Repo interface {
	Upsert(ctx context.Context, analysis Analysis) error
	GetByImage(ctx context.Context, imageID string) (Analysis, error)
	// PurgeByImage removes the current analysis and its audit rows, returning
	// the region storage keys that referenced objects.
	PurgeByImage(ctx context.Context, imageID string) (regionKeys []string, err error)
}
