// Package analyzer abstracts the hosted multimodal AI that turns an
// entrance image into an accessibility verdict.
package analyzer

import (
	"context"
	"encoding/json"
	"errors"
)

// Client sends an image to the AI provider and returns its verdict.
type Client interface {
	AnalyzeAccessibility(ctx context.Context, input Input) (*Verdict, error)
}

// Input carries the image payload for one analysis call.
type Input struct {
	// Image is the encoded image to assess, normally the cropped
	// entrance region, or the full upload in degraded mode.
	Image []byte
	// MimeType describes Image, e.g. "image/jpeg".
	MimeType string
}

// Verdict is the structured accessibility assessment. Accessible is nil when
// the model could not decide from the image.
type Verdict struct {
	Accessible *bool  `json:"accessible"`
	Reason     string `json:"reason"`
	// Features and Confidences carry per-feature flags and scores when the
	// provider returns them; both may be empty.
	Features    map[string]bool    `json:"features,omitempty"`
	Confidences map[string]float64 `json:"confidences,omitempty"`
	// ModelVersion is the provider model that produced the verdict.
	ModelVersion string `json:"model_version,omitempty"`
	// Raw preserves the provider's response payload verbatim.
	Raw json.RawMessage `json:"-"`
}

// ErrService is wrapped around provider transport failures, timeouts and
// provider-side errors.
var ErrService = errors.New("ai service error")

// ErrInvalidResponse is wrapped around responses that could not be parsed
// into a verdict even after extraction fallbacks.
var ErrInvalidResponse = errors.New("ai response invalid")
