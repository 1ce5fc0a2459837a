package images

import "time"

// Image statuses form the per-image analysis state machine.
const (
	StatusUploaded  = "uploaded"
	StatusAnalyzing = "analyzing"
	StatusAnalyzed  = "analyzed"
	StatusFailed    = "failed"
)

// Image is the stored metadata for one uploaded entrance photo.
type Image struct {
	ID          string     `json:"image_id"`
	FileName    string     `json:"filename"`
	StorageKey  string     `json:"-"`
	ContentType string     `json:"content_type"`
	SizeBytes   int64      `json:"size_bytes"`
	PlaceID     string     `json:"place_id,omitempty"`
	UserID      string     `json:"user_id,omitempty"`
	Status      string     `json:"status"`
	UploadedAt  time.Time  `json:"uploaded_at"`
	AnalyzedAt  *time.Time `json:"analyzed_at,omitempty"`
}
