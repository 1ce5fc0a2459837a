package analyses

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no current analysis exists for the image.
	ErrNotFound = errors.New("analysis not found")
	// ErrInProgress means another analyze call holds the per-image claim.
	ErrInProgress = errors.New("analysis already in progress")
)

// Pipeline error codes surfaced in API responses and persisted on failed runs.
const (
	CodeStorageUnavailable = "STORAGE_UNAVAILABLE"
	CodeModelUnavailable   = "MODEL_UNAVAILABLE"
	CodeAIServiceError     = "AI_SERVICE_ERROR"
	CodeAIResponseInvalid  = "AI_RESPONSE_INVALID"
	CodeInternal           = "INTERNAL"
)

// PipelineError classifies a stage failure so handlers can map it to a
// status code and the failed analysis row records its kind.
type PipelineError struct {
	Code string
	Err  error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
