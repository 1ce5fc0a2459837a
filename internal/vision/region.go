package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	xdraw "golang.org/x/image/draw"

	_ "image/png" // register decoders for the supported upload formats

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Region is the cropped sub-image selected for downstream AI analysis.
type Region struct {
	// JPEG holds the re-encoded crop.
	JPEG []byte
	// Box is the normalized source box the crop was taken from.
	Box Box
	// Source names the selection rule that produced the box.
	Source string
}

const (
	regionSourceEntrance = "entrance"
	regionSourceUnion    = "door+building"

	cropJPEGQuality = 90
)

// SelectRegionBox applies the deterministic entrance-selection policy:
// the highest-confidence entrance detection wins; with no entrance, the union
// of all door and building boxes is used; otherwise no region qualifies.
func SelectRegionBox(detections []Detection) (Box, string, bool) {
	var best *Detection
	for i := range detections {
		d := &detections[i]
		if d.Label != LabelEntrance {
			continue
		}
		if best == nil || d.Confidence > best.Confidence {
			best = d
		}
	}
	if best != nil {
		return best.Box, regionSourceEntrance, true
	}

	var union *Box
	for i := range detections {
		d := &detections[i]
		if d.Label != LabelDoor && d.Label != LabelBuilding {
			continue
		}
		if union == nil {
			b := d.Box
			union = &b
		} else {
			b := union.Union(d.Box)
			union = &b
		}
	}
	if union != nil {
		return *union, regionSourceUnion, true
	}
	return Box{}, "", false
}

// ExtractRegion crops the entrance region out of the original image per
// SelectRegionBox. It returns (nil, nil) when no detection qualifies, in which
// case the pipeline proceeds with the full image (degraded mode).
func ExtractRegion(imageBytes []byte, detections []Detection) (*Region, error) {
	box, source, ok := SelectRegionBox(detections)
	if !ok {
		return nil, nil
	}

	src, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	x1 := clampInt(int(box.X1*float64(w)), 0, w)
	y1 := clampInt(int(box.Y1*float64(h)), 0, h)
	x2 := clampInt(int(box.X2*float64(w)), 0, w)
	y2 := clampInt(int(box.Y2*float64(h)), 0, h)
	if x2-x1 < 1 || y2-y1 < 1 {
		return nil, nil
	}

	crop := image.NewRGBA(image.Rect(0, 0, x2-x1, y2-y1))
	xdraw.Draw(crop, crop.Bounds(), src, bounds.Min.Add(image.Pt(x1, y1)), xdraw.Src)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, crop, &jpeg.Options{Quality: cropJPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode crop: %w", err)
	}

	return &Region{JPEG: buf.Bytes(), Box: box, Source: source}, nil
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
