package places

import "context"

// Repo defines persistence operations for places.
type Repo interface {
	Create(ctx context.Context, place Place) error
	Get(ctx context.Context, placeID string) (Place, error)
	// Nearby returns places within radiusM meters of the point, nearest first.
	Nearby(ctx context.Context, lat, lng, radiusM float64) ([]NearbyPlace, error)
	// Bbox returns places inside the lat/lng bounding box.
	Bbox(ctx context.Context, minLat, minLng, maxLat, maxLng float64) ([]Place, error)
	UpdateAccessibility(ctx context.Context, placeID string, accessibility map[string]any) error
	// React increments one vote counter and returns both counts.
	React(ctx context.Context, placeID, vote string) (up, down int, err error)
	Reactions(ctx context.Context, placeID string) (up, down int, err error)
}
