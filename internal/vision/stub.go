package vision

import "context"

// Stub is a deterministic Detector for tests and model-less deployments.
// It returns the configured detections for every image.
type Stub struct {
	Detections []Detection
	Err        error
}

// Detect returns a copy of the configured detections.
func (s *Stub) Detect(ctx context.Context, image []byte) ([]Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_ = image
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]Detection, len(s.Detections))
	copy(out, s.Detections)
	return out, nil
}

var _ Detector = (*Stub)(nil)
