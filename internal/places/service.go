package places

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"wheelcity-backend/internal/telemetry"
)

// DefaultNearbyRadiusM is the nearby search radius when the client omits one.
const DefaultNearbyRadiusM = 800

const maxNearbyRadiusM = 50000

// Service contains business logic for places.
type Service struct {
	Repo Repo
}

// CreateInput carries one place creation request.
type CreateInput struct {
	Name     string
	Address  string
	Lat      float64
	Lng      float64
	ImageURL string
}

// Create validates and records a new place.
func (s *Service) Create(ctx context.Context, in CreateInput) (Place, error) {
	if in.Name == "" {
		return Place{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if err := validateCoords(in.Lat, in.Lng); err != nil {
		return Place{}, err
	}

	now := time.Now().UTC()
	place := Place{
		ID:        uuid.NewString(),
		Name:      in.Name,
		Address:   in.Address,
		Lat:       in.Lat,
		Lng:       in.Lng,
		ImageURL:  in.ImageURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.Create(ctx, place); err != nil {
		return Place{}, err
	}
	telemetry.Info("places.created", map[string]any{"place_id": place.ID})
	return place, nil
}

// Get returns one place.
func (s *Service) Get(ctx context.Context, placeID string) (Place, error) {
	return s.Repo.Get(ctx, placeID)
}

// Nearby returns places within radiusM meters, nearest first.
func (s *Service) Nearby(ctx context.Context, lat, lng, radiusM float64) ([]NearbyPlace, error) {
	if err := validateCoords(lat, lng); err != nil {
		return nil, err
	}
	if radiusM <= 0 {
		radiusM = DefaultNearbyRadiusM
	}
	if radiusM > maxNearbyRadiusM {
		radiusM = maxNearbyRadiusM
	}
	return s.Repo.Nearby(ctx, lat, lng, radiusM)
}

// Bbox returns places inside the bounding box. Both corners must be valid
// coordinates and the min corner must lie strictly south-west of the max.
func (s *Service) Bbox(ctx context.Context, minLat, minLng, maxLat, maxLng float64) ([]Place, error) {
	if err := validateCoords(minLat, minLng); err != nil {
		return nil, err
	}
	if err := validateCoords(maxLat, maxLng); err != nil {
		return nil, err
	}
	if minLat >= maxLat || minLng >= maxLng {
		return nil, fmt.Errorf("%w: invalid bbox", ErrInvalidInput)
	}
	return s.Repo.Bbox(ctx, minLat, minLng, maxLat, maxLng)
}

// Ingest replaces the accessibility summary with a model prediction, stamping
// the source and update time.
func (s *Service) Ingest(ctx context.Context, placeID string, pred map[string]any) error {
	if len(pred) == 0 {
		return fmt.Errorf("%w: prediction payload is required", ErrInvalidInput)
	}
	summary := make(map[string]any, len(pred)+2)
	for k, v := range pred {
		summary[k] = v
	}
	summary["source"] = "model"
	summary["updatedAt"] = time.Now().UTC().Format(time.RFC3339)

	if err := s.Repo.UpdateAccessibility(ctx, placeID, summary); err != nil {
		return err
	}
	telemetry.Info("places.ingested", map[string]any{"place_id": placeID})
	return nil
}

// React records one up or down vote and returns the new counts.
func (s *Service) React(ctx context.Context, placeID, vote string) (int, int, error) {
	if vote != VoteUp && vote != VoteDown {
		return 0, 0, fmt.Errorf("%w: vote must be up or down", ErrInvalidInput)
	}
	return s.Repo.React(ctx, placeID, vote)
}

// Reactions returns the current vote counts.
func (s *Service) Reactions(ctx context.Context, placeID string) (int, int, error) {
	return s.Repo.Reactions(ctx, placeID)
}

func validateCoords(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: lat out of range", ErrInvalidInput)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("%w: lng out of range", ErrInvalidInput)
	}
	return nil
}
