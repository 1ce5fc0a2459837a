package analyses

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory Repo for tests and DB-less development.
type MemoryRepo struct {
	mu      sync.Mutex
	current map[string]Analysis // keyed by image id
	audit   map[string][]Analysis
}

// NewMemoryRepo constructs an empty MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		current: make(map[string]Analysis),
		audit:   make(map[string][]Analysis),
	}
}

func (r *MemoryRepo) Upsert(ctx context.Context, analysis Analysis) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current[analysis.ImageID] = analysis
	r.audit[analysis.ImageID] = append(r.audit[analysis.ImageID], analysis)
	return nil
}

func (r *MemoryRepo) GetByImage(ctx context.Context, imageID string) (Analysis, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.current[imageID]
	if !ok {
		return Analysis{}, ErrNotFound
	}
	return a, nil
}

func (r *MemoryRepo) PurgeByImage(ctx context.Context, imageID string) ([]string, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]struct{})
	var keys []string
	for _, a := range r.audit[imageID] {
		if a.RegionKey == "" {
			continue
		}
		if _, ok := seen[a.RegionKey]; ok {
			continue
		}
		seen[a.RegionKey] = struct{}{}
		keys = append(keys, a.RegionKey)
	}
	delete(r.current, imageID)
	delete(r.audit, imageID)
	return keys, nil
}

// AuditLen reports how many audit rows exist for an image. Test helper.
func (r *MemoryRepo) AuditLen(imageID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.audit[imageID])
}

var _ Repo = (*MemoryRepo)(nil)
