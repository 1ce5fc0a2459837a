package vision

import (
	"context"
	"errors"
)

// Labels the detector is trained on.
const (
	LabelRamp     = "ramp"
	LabelStairs   = "stairs"
	LabelDoor     = "door"
	LabelEntrance = "entrance"
	LabelBuilding = "building"
)

// DefaultLabels is the label set in model output order.
var DefaultLabels = []string{LabelRamp, LabelStairs, LabelDoor, LabelEntrance, LabelBuilding}

// ErrModelUnavailable is returned when no detection model is loaded. It is
// distinct from a successful run with zero detections.
var ErrModelUnavailable = errors.New("detection model unavailable")

// Box is an axis-aligned bounding box in normalized image coordinates [0,1].
type Box struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Union returns the smallest box covering both b and other.
func (b Box) Union(other Box) Box {
	return Box{
		X1: min(b.X1, other.X1),
		Y1: min(b.Y1, other.Y1),
		X2: max(b.X2, other.X2),
		Y2: max(b.Y2, other.Y2),
	}
}

// Detection is one labeled, scored bounding box for a single image.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	Box        Box     `json:"box"`
}

// Detector runs an object-detection model over raw image bytes. Detections
// below the backend's confidence threshold are discarded; zero detections is
// not an error.
type Detector interface {
	Detect(ctx context.Context, image []byte) ([]Detection, error)
}

// Unavailable is a Detector placeholder used when no model could be loaded.
type Unavailable struct{}

// Detect always reports the model as unavailable.
func (Unavailable) Detect(ctx context.Context, image []byte) ([]Detection, error) {
	_ = ctx
	_ = image
	return nil, ErrModelUnavailable
}
