package images

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const imageColumns = "image_id, filename, storage_key, content_type, size_bytes, place_id, user_id, status, uploaded_at, analyzed_at"

// Create inserts a new image row.
func (r *PGRepo) Create(ctx context.Context, img Image) error {
	const query = `
INSERT INTO images (
    image_id,
    filename,
    storage_key,
    content_type,
    size_bytes,
    place_id,
    user_id,
    status,
    uploaded_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.DB.ExecContext(
		ctx,
		query,
		img.ID,
		img.FileName,
		img.StorageKey,
		img.ContentType,
		img.SizeBytes,
		nullString(img.PlaceID),
		nullString(img.UserID),
		img.Status,
		img.UploadedAt,
	)
	return err
}

// Get fetches one image by id.
func (r *PGRepo) Get(ctx context.Context, imageID string) (Image, error) {
	const query = `
SELECT ` + imageColumns + `
FROM images
WHERE image_id = $1`
	img, err := scanImage(r.DB.QueryRowContext(ctx, query, imageID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Image{}, ErrNotFound
		}
		return Image{}, err
	}
	return img, nil
}

// List returns images newest-first.
func (r *PGRepo) List(ctx context.Context, filter ListFilter) ([]Image, error) {
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

	query := `
SELECT ` + imageColumns + `
FROM images
ORDER BY uploaded_at DESC
LIMIT $1 OFFSET $2`
	if filter.AnalyzedOnly {
		query = `
SELECT ` + imageColumns + `
FROM images
WHERE status = 'analyzed'
ORDER BY uploaded_at DESC
LIMIT $1 OFFSET $2`
	}

	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, img)
	}
	return out, rows.Err()
}

// Delete removes the image row. The service purges analyses and region
// objects first; the analyses FK cascades as a backstop.
func (r *PGRepo) Delete(ctx context.Context, imageID string) error {
	const query = `DELETE FROM images WHERE image_id = $1`
	res, err := r.DB.ExecContext(ctx, query, imageID)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimAnalyzing performs the check-and-set status transition in one statement
// so concurrent analyze calls cannot both win.
func (r *PGRepo) ClaimAnalyzing(ctx context.Context, imageID string, force bool) (bool, error) {
	query := `
UPDATE images
SET status = 'analyzing'
WHERE image_id = $1 AND status IN ('uploaded', 'failed')`
	if force {
		query = `
UPDATE images
SET status = 'analyzing'
WHERE image_id = $1 AND status IN ('uploaded', 'failed', 'analyzed')`
	}
	res, err := r.DB.ExecContext(ctx, query, imageID)
	if err != nil {
		return false, err
	}
	affected, _ := res.RowsAffected()
	return affected > 0, nil
}

// SetStatus records a status transition.
func (r *PGRepo) SetStatus(ctx context.Context, imageID, status string, analyzedAt *time.Time) error {
	const query = `
UPDATE images
SET status = $2, analyzed_at = $3
WHERE image_id = $1`
	var at sql.NullTime
	if analyzedAt != nil {
		at = sql.NullTime{Time: *analyzedAt, Valid: true}
	}
	res, err := r.DB.ExecContext(ctx, query, imageID, status, at)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImage(row rowScanner) (Image, error) {
	var img Image
	var placeID, userID sql.NullString
	var analyzedAt sql.NullTime
	if err := row.Scan(
		&img.ID,
		&img.FileName,
		&img.StorageKey,
		&img.ContentType,
		&img.SizeBytes,
		&placeID,
		&userID,
		&img.Status,
		&img.UploadedAt,
		&analyzedAt,
	); err != nil {
		return Image{}, err
	}
	if placeID.Valid {
		img.PlaceID = placeID.String
	}
	if userID.Valid {
		img.UserID = userID.String
	}
	if analyzedAt.Valid {
		t := analyzedAt.Time
		img.AnalyzedAt = &t
	}
	return img, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
