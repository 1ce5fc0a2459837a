package analyses

import (
	"encoding/json"
	"time"

	"wheelcity-backend/internal/vision"
)

// Analysis statuses. An image has at most one current analysis; re-analysis
// overwrites it and the previous row is kept in the audit table.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Analysis is the persisted result of one pipeline run over an image.
type Analysis struct {
	ID      string `json:"analysis_id"`
	ImageID string `json:"image_id"`

	Detections []vision.Detection `json:"detections"`
	// RegionKey is the storage key of the cropped entrance region, empty when
	// the run proceeded in degraded mode without a region.
	RegionKey    string `json:"region_key,omitempty"`
	RegionSource string `json:"region_source,omitempty"`

	Accessible   *bool              `json:"accessible"`
	Reason       string             `json:"reason,omitempty"`
	Features     map[string]bool    `json:"features,omitempty"`
	Confidences  map[string]float64 `json:"confidences,omitempty"`
	VerdictRaw   json.RawMessage    `json:"-"`
	ModelVersion string             `json:"model_version,omitempty"`

	Status       string `json:"status"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	ProcessingMs int64  `json:"processing_ms"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
