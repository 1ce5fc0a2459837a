package places

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements Repo using Postgres. Nearby uses a haversine expression
// over the lat/lng columns; the (lat, lng) index keeps the scan bounded for
// the data sizes this service sees.
type PGRepo struct {
	DB *sql.DB
}

const placeColumns = "id, name, address, lat, lng, accessibility, up_votes, down_votes, image_url, created_at, updated_at"

// Create inserts a new place.
func (r *PGRepo) Create(ctx context.Context, place Place) error {
	accessibility, err := json.Marshal(orEmptyMap(place.Accessibility))
	if err != nil {
		return fmt.Errorf("marshal accessibility: %w", err)
	}

	const query = `
INSERT INTO places (
    id, name, address, lat, lng, accessibility,
    up_votes, down_votes, image_url, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.DB.ExecContext(
		ctx,
		query,
		place.ID,
		place.Name,
		nullStr(place.Address),
		place.Lat,
		place.Lng,
		accessibility,
		place.UpVotes,
		place.DownVotes,
		nullStr(place.ImageURL),
		place.CreatedAt,
		place.UpdatedAt,
	)
	return err
}

// Get fetches one place by id.
func (r *PGRepo) Get(ctx context.Context, placeID string) (Place, error) {
	const query = `
SELECT ` + placeColumns + `
FROM places
WHERE id = $1`
	place, err := scanPlace(r.DB.QueryRowContext(ctx, query, placeID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Place{}, ErrNotFound
		}
		return Place{}, err
	}
	return place, nil
}

// Nearby returns places within radiusM meters ordered by distance ascending.
func (r *PGRepo) Nearby(ctx context.Context, lat, lng, radiusM float64) ([]NearbyPlace, error) {
	const query = `
SELECT ` + placeColumns + `, distance_m FROM (
    SELECT *, 2 * 6371000 * asin(sqrt(
        power(sin(radians(lat - $1) / 2), 2) +
        cos(radians($1)) * cos(radians(lat)) *
        power(sin(radians(lng - $2) / 2), 2)
    )) AS distance_m
    FROM places
) candidates
WHERE distance_m <= $3
ORDER BY distance_m ASC
LIMIT 500`

	rows, err := r.DB.QueryContext(ctx, query, lat, lng, radiusM)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []NearbyPlace
	for rows.Next() {
		var np NearbyPlace
		var address, imageURL sql.NullString
		var accessibility []byte
		if err := rows.Scan(
			&np.ID,
			&np.Name,
			&address,
			&np.Lat,
			&np.Lng,
			&accessibility,
			&np.UpVotes,
			&np.DownVotes,
			&imageURL,
			&np.CreatedAt,
			&np.UpdatedAt,
			&np.DistanceM,
		); err != nil {
			return nil, err
		}
		if address.Valid {
			np.Address = address.String
		}
		if imageURL.Valid {
			np.ImageURL = imageURL.String
		}
		if len(accessibility) > 0 {
			if err := json.Unmarshal(accessibility, &np.Accessibility); err != nil {
				return nil, fmt.Errorf("unmarshal accessibility: %w", err)
			}
		}
		out = append(out, np)
	}
	return out, rows.Err()
}

// Bbox returns places inside the bounding box, capped at 500 rows. The
// (lat, lng) index serves the lat range directly.
func (r *PGRepo) Bbox(ctx context.Context, minLat, minLng, maxLat, maxLng float64) ([]Place, error) {
	const query = `
SELECT ` + placeColumns + `
FROM places
WHERE lat BETWEEN $1 AND $3
  AND lng BETWEEN $2 AND $4
LIMIT 500`

	rows, err := r.DB.QueryContext(ctx, query, minLat, minLng, maxLat, maxLng)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Place
	for rows.Next() {
		place, err := scanPlace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, place)
	}
	return out, rows.Err()
}

// UpdateAccessibility replaces the accessibility summary.
func (r *PGRepo) UpdateAccessibility(ctx context.Context, placeID string, accessibility map[string]any) error {
	payload, err := json.Marshal(orEmptyMap(accessibility))
	if err != nil {
		return fmt.Errorf("marshal accessibility: %w", err)
	}

	const query = `
UPDATE places
SET accessibility = $2, updated_at = $3
WHERE id = $1`
	res, err := r.DB.ExecContext(ctx, query, placeID, payload, time.Now().UTC())
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// React increments one counter and returns both.
func (r *PGRepo) React(ctx context.Context, placeID, vote string) (int, int, error) {
	query := `
UPDATE places
SET up_votes = up_votes + 1, updated_at = $2
WHERE id = $1
RETURNING up_votes, down_votes`
	if vote == VoteDown {
		query = `
UPDATE places
SET down_votes = down_votes + 1, updated_at = $2
WHERE id = $1
RETURNING up_votes, down_votes`
	}

	var up, down int
	err := r.DB.QueryRowContext(ctx, query, placeID, time.Now().UTC()).Scan(&up, &down)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, ErrNotFound
		}
		return 0, 0, err
	}
	return up, down, nil
}

// Reactions returns the current counters.
func (r *PGRepo) Reactions(ctx context.Context, placeID string) (int, int, error) {
	const query = `SELECT up_votes, down_votes FROM places WHERE id = $1`
	var up, down int
	err := r.DB.QueryRowContext(ctx, query, placeID).Scan(&up, &down)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, ErrNotFound
		}
		return 0, 0, err
	}
	return up, down, nil
}

func scanPlace(row interface{ Scan(dest ...any) error }) (Place, error) {
	var place Place
	var address, imageURL sql.NullString
	var accessibility []byte
	if err := row.Scan(
		&place.ID,
		&place.Name,
		&address,
		&place.Lat,
		&place.Lng,
		&accessibility,
		&place.UpVotes,
		&place.DownVotes,
		&imageURL,
		&place.CreatedAt,
		&place.UpdatedAt,
	); err != nil {
		return Place{}, err
	}
	if address.Valid {
		place.Address = address.String
	}
	if imageURL.Valid {
		place.ImageURL = imageURL.String
	}
	if len(accessibility) > 0 {
		if err := json.Unmarshal(accessibility, &place.Accessibility); err != nil {
			return Place{}, fmt.Errorf("unmarshal accessibility: %w", err)
		}
	}
	return place, nil
}

func orEmptyMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
