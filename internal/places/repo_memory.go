package places

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repo for tests and DB-less development.
type MemoryRepo struct {
	mu     sync.Mutex
	places map[string]Place
}

// NewMemoryRepo constructs an empty MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{places: make(map[string]Place)}
}

func (r *MemoryRepo) Create(ctx context.Context, place Place) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.places[place.ID] = place
	return nil
}

func (r *MemoryRepo) Get(ctx context.Context, placeID string) (Place, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	place, ok := r.places[placeID]
	if !ok {
		return Place{}, ErrNotFound
	}
	return place, nil
}

func (r *MemoryRepo) Nearby(ctx context.Context, lat, lng, radiusM float64) ([]NearbyPlace, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []NearbyPlace
	for _, place := range r.places {
		d := haversineMeters(lat, lng, place.Lat, place.Lng)
		if d <= radiusM {
			out = append(out, NearbyPlace{Place: place, DistanceM: d})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DistanceM < out[j].DistanceM
	})
	return out, nil
}

func (r *MemoryRepo) Bbox(ctx context.Context, minLat, minLng, maxLat, maxLng float64) ([]Place, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Place
	for _, place := range r.places {
		if place.Lat >= minLat && place.Lat <= maxLat &&
			place.Lng >= minLng && place.Lng <= maxLng {
			out = append(out, place)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepo) UpdateAccessibility(ctx context.Context, placeID string, accessibility map[string]any) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	place, ok := r.places[placeID]
	if !ok {
		return ErrNotFound
	}
	place.Accessibility = accessibility
	place.UpdatedAt = time.Now().UTC()
	r.places[placeID] = place
	return nil
}

func (r *MemoryRepo) React(ctx context.Context, placeID, vote string) (int, int, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	place, ok := r.places[placeID]
	if !ok {
		return 0, 0, ErrNotFound
	}
	if vote == VoteDown {
		place.DownVotes++
	} else {
		place.UpVotes++
	}
	place.UpdatedAt = time.Now().UTC()
	r.places[placeID] = place
	return place.UpVotes, place.DownVotes, nil
}

func (r *MemoryRepo) Reactions(ctx context.Context, placeID string) (int, int, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	place, ok := r.places[placeID]
	if !ok {
		return 0, 0, ErrNotFound
	}
	return place.UpVotes, place.DownVotes, nil
}

var _ Repo = (*MemoryRepo)(nil)
