package images

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo for tests and DB-less development.
type MemoryRepo struct {
	mu     sync.Mutex
	images map[string]Image
}

// NewMemoryRepo constructs an empty MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{images: make(map[string]Image)}
}

func (r *MemoryRepo) Create(ctx context.Context, img Image) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.images[img.ID] = img
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, imageID string) (Image, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.images[imageID]
	if !ok {
		return Image{}, ErrNotFound
	}
	return img, nil
}

func (r *MemoryRepo) List(ctx context.Context, filter ListFilter) ([]Image, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Image, 0, len(r.images))
	for _, img := range r.images {
		if filter.AnalyzedOnly && img.Status != StatusAnalyzed {
			continue
		}
		out = append(out, img)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UploadedAt.After(out[j].UploadedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return nil, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], nil
}

func (r *MemoryRepo) Delete(ctx context.Context, imageID string) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.images[imageID]; !ok {
		return ErrNotFound
	}
	delete(r.images, imageID)
	return nil
}

func (r *MemoryRepo) ClaimAnalyzing(ctx context.Context, imageID string, force bool) (bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.images[imageID]
	if !ok {
		return false, nil
	}
	switch img.Status {
	case StatusUploaded, StatusFailed:
	case StatusAnalyzed:
		if !force {
			return false, nil
		}
	default:
		return false, nil
	}
	img.Status = StatusAnalyzing
	r.images[imageID] = img
	return true, nil
}

func (r *MemoryRepo) SetStatus(ctx context.Context, imageID, status string, analyzedAt *time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	img, ok := r.images[imageID]
	if !ok {
		return ErrNotFound
	}
	img.Status = status
	img.AnalyzedAt = analyzedAt
	r.images[imageID] = img
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
