package vision

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

func TestSelectRegionBoxPrefersEntrance(t *testing.T) {
	detections := []Detection{
		{Label: LabelDoor, Confidence: 0.95, Box: Box{X1: 0.1, Y1: 0.1, X2: 0.2, Y2: 0.2}},
		{Label: LabelEntrance, Confidence: 0.9, Box: Box{X1: 0.3, Y1: 0.3, X2: 0.6, Y2: 0.6}},
		{Label: LabelEntrance, Confidence: 0.4, Box: Box{X1: 0.7, Y1: 0.7, X2: 0.9, Y2: 0.9}},
	}
	box, source, ok := SelectRegionBox(detections)
	if !ok {
		t.Fatalf("expected a region")
	}
	if source != "entrance" {
		t.Errorf("source = %q, want entrance", source)
	}
	if box != (Box{X1: 0.3, Y1: 0.3, X2: 0.6, Y2: 0.6}) {
		t.Errorf("box = %+v, want highest-confidence entrance box", box)
	}
}

func TestSelectRegionBoxFallsBackToUnion(t *testing.T) {
	detections := []Detection{
		{Label: LabelDoor, Confidence: 0.8, Box: Box{X1: 0.1, Y1: 0.2, X2: 0.3, Y2: 0.4}},
		{Label: LabelBuilding, Confidence: 0.6, Box: Box{X1: 0.2, Y1: 0.1, X2: 0.8, Y2: 0.9}},
		{Label: LabelStairs, Confidence: 0.9, Box: Box{X1: 0, Y1: 0, X2: 1, Y2: 1}},
	}
	box, source, ok := SelectRegionBox(detections)
	if !ok {
		t.Fatalf("expected a region")
	}
	if source != "door+building" {
		t.Errorf("source = %q, want door+building", source)
	}
	want := Box{X1: 0.1, Y1: 0.1, X2: 0.8, Y2: 0.9}
	if box != want {
		t.Errorf("box = %+v, want %+v", box, want)
	}
}

func TestSelectRegionBoxEmpty(t *testing.T) {
	if _, _, ok := SelectRegionBox(nil); ok {
		t.Errorf("empty detections: expected no region")
	}
	// Ramp and stairs alone never qualify.
	detections := []Detection{
		{Label: LabelRamp, Confidence: 0.99, Box: Box{X1: 0, Y1: 0, X2: 1, Y2: 1}},
		{Label: LabelStairs, Confidence: 0.99, Box: Box{X1: 0, Y1: 0, X2: 1, Y2: 1}},
	}
	if _, _, ok := SelectRegionBox(detections); ok {
		t.Errorf("ramp/stairs only: expected no region")
	}
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode test image: %v", err)
	}
	return buf.Bytes()
}

func TestExtractRegionCrops(t *testing.T) {
	src := testJPEG(t, 200, 100)
	detections := []Detection{
		{Label: LabelEntrance, Confidence: 0.9, Box: Box{X1: 0.25, Y1: 0.1, X2: 0.75, Y2: 0.9}},
	}

	region, err := ExtractRegion(src, detections)
	if err != nil {
		t.Fatalf("ExtractRegion: %v", err)
	}
	if region == nil {
		t.Fatalf("expected a region")
	}

	cropped, _, err := image.Decode(bytes.NewReader(region.JPEG))
	if err != nil {
		t.Fatalf("decode crop: %v", err)
	}
	if got := cropped.Bounds().Dx(); got != 100 {
		t.Errorf("crop width = %d, want 100", got)
	}
	if got := cropped.Bounds().Dy(); got != 80 {
		t.Errorf("crop height = %d, want 80", got)
	}
}

func TestExtractRegionDegraded(t *testing.T) {
	src := testJPEG(t, 50, 50)

	region, err := ExtractRegion(src, nil)
	if err != nil {
		t.Fatalf("ExtractRegion: %v", err)
	}
	if region != nil {
		t.Errorf("expected degraded mode (nil region)")
	}

	// A zero-area box also degrades instead of erroring.
	detections := []Detection{
		{Label: LabelEntrance, Confidence: 0.9, Box: Box{X1: 0.5, Y1: 0.5, X2: 0.5, Y2: 0.5}},
	}
	region, err = ExtractRegion(src, detections)
	if err != nil {
		t.Fatalf("ExtractRegion zero-area: %v", err)
	}
	if region != nil {
		t.Errorf("zero-area box: expected nil region")
	}
}

func TestExtractRegionBadImage(t *testing.T) {
	detections := []Detection{
		{Label: LabelEntrance, Confidence: 0.9, Box: Box{X1: 0, Y1: 0, X2: 1, Y2: 1}},
	}
	if _, err := ExtractRegion([]byte("not an image"), detections); err == nil {
		t.Errorf("expected decode error")
	}
}
