package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// PGRepo implements Repo using Postgres. JSONB columns hold the detection
// list and the verdict feature maps.
type PGRepo struct {
	DB *sql.DB
}

// Upsert writes the current analysis (one row per image) and appends a copy
// to the audit log in the same transaction.
func (r *PGRepo) Upsert(ctx context.Context, analysis Analysis) error {
	detections, err := json.Marshal(analysis.Detections)
	if err != nil {
		return fmt.Errorf("marshal detections: %w", err)
	}
	features, err := json.Marshal(orEmptyBools(analysis.Features))
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}
	confidences, err := json.Marshal(orEmptyFloats(analysis.Confidences))
	if err != nil {
		return fmt.Errorf("marshal confidences: %w", err)
	}

	var verdictRaw any
	if len(analysis.VerdictRaw) > 0 {
		verdictRaw = []byte(analysis.VerdictRaw)
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const upsertQuery = `
INSERT INTO analyses (
    id, image_id, detections, region_key, region_source,
    accessible, reason, features, confidences, verdict_raw,
    model_version, status, error_code, error_message, processing_ms,
    created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
ON CONFLICT (image_id) DO UPDATE SET
    id = EXCLUDED.id,
    detections = EXCLUDED.detections,
    region_key = EXCLUDED.region_key,
    region_source = EXCLUDED.region_source,
    accessible = EXCLUDED.accessible,
    reason = EXCLUDED.reason,
    features = EXCLUDED.features,
    confidences = EXCLUDED.confidences,
    verdict_raw = EXCLUDED.verdict_raw,
    model_version = EXCLUDED.model_version,
    status = EXCLUDED.status,
    error_code = EXCLUDED.error_code,
    error_message = EXCLUDED.error_message,
    processing_ms = EXCLUDED.processing_ms,
    updated_at = EXCLUDED.updated_at`

	if _, err := tx.ExecContext(
		ctx,
		upsertQuery,
		analysis.ID,
		analysis.ImageID,
		detections,
		nullString(analysis.RegionKey),
		nullString(analysis.RegionSource),
		nullBool(analysis.Accessible),
		analysis.Reason,
		features,
		confidences,
		verdictRaw,
		analysis.ModelVersion,
		analysis.Status,
		nullString(analysis.ErrorCode),
		nullString(analysis.ErrorMessage),
		analysis.ProcessingMs,
		analysis.CreatedAt,
		analysis.UpdatedAt,
	); err != nil {
		return fmt.Errorf("upsert analysis: %w", err)
	}

	const auditQuery = `
INSERT INTO analysis_audit (
    analysis_id, image_id, detections, region_key, region_source,
    accessible, reason, features, confidences,
    model_version, status, error_code, error_message
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	if _, err := tx.ExecContext(
		ctx,
		auditQuery,
		analysis.ID,
		analysis.ImageID,
		detections,
		nullString(analysis.RegionKey),
		nullString(analysis.RegionSource),
		nullBool(analysis.Accessible),
		analysis.Reason,
		features,
		confidences,
		analysis.ModelVersion,
		analysis.Status,
		nullString(analysis.ErrorCode),
		nullString(analysis.ErrorMessage),
	); err != nil {
		return fmt.Errorf("append audit: %w", err)
	}

	return tx.Commit()
}

// GetByImage returns the current analysis for an image.
func (r *PGRepo) GetByImage(ctx context.Context, imageID string) (Analysis, error) {
	const query = `
SELECT id, image_id, detections, region_key, region_source,
       accessible, reason, features, confidences, verdict_raw,
       model_version, status, error_code, error_message, processing_ms,
       created_at, updated_at
FROM analyses
WHERE image_id = $1`

	var a Analysis
	var detections, features, confidences []byte
	var verdictRaw []byte
	var regionKey, regionSource, errorCode, errorMessage sql.NullString
	var accessible sql.NullBool

	err := r.DB.QueryRowContext(ctx, query, imageID).Scan(
		&a.ID,
		&a.ImageID,
		&detections,
		&regionKey,
		&regionSource,
		&accessible,
		&a.Reason,
		&features,
		&confidences,
		&verdictRaw,
		&a.ModelVersion,
		&a.Status,
		&errorCode,
		&errorMessage,
		&a.ProcessingMs,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Analysis{}, ErrNotFound
		}
		return Analysis{}, err
	}

	if len(detections) > 0 {
		if err := json.Unmarshal(detections, &a.Detections); err != nil {
			return Analysis{}, fmt.Errorf("unmarshal detections: %w", err)
		}
	}
	if len(features) > 0 {
		if err := json.Unmarshal(features, &a.Features); err != nil {
			return Analysis{}, fmt.Errorf("unmarshal features: %w", err)
		}
	}
	if len(confidences) > 0 {
		if err := json.Unmarshal(confidences, &a.Confidences); err != nil {
			return Analysis{}, fmt.Errorf("unmarshal confidences: %w", err)
		}
	}
	if len(verdictRaw) > 0 {
		a.VerdictRaw = json.RawMessage(verdictRaw)
	}
	if regionKey.Valid {
		a.RegionKey = regionKey.String
	}
	if regionSource.Valid {
		a.RegionSource = regionSource.String
	}
	if accessible.Valid {
		b := accessible.Bool
		a.Accessible = &b
	}
	if errorCode.Valid {
		a.ErrorCode = errorCode.String
	}
	if errorMessage.Valid {
		a.ErrorMessage = errorMessage.String
	}
	return a, nil
}

// PurgeByImage removes the current analysis and audit rows for the image.
func (r *PGRepo) PurgeByImage(ctx context.Context, imageID string) ([]string, error) {
	const keysQuery = `
SELECT DISTINCT region_key
FROM analysis_audit
WHERE image_id = $1 AND region_key IS NOT NULL`

	rows, err := r.DB.QueryContext(ctx, keysQuery, imageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM analysis_audit WHERE image_id = $1`, imageID); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM analyses WHERE image_id = $1`, imageID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return keys, nil
}

func orEmptyBools(m map[string]bool) map[string]bool {
	if m == nil {
		return map[string]bool{}
	}
	return m
}

func orEmptyFloats(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
