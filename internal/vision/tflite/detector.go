// Package tflite runs entrance detection with a TensorFlow Lite model
// loaded in process. The model is a YOLOv8 export with a single output
// tensor of shape (1, 4+numClasses, numCandidates).
package tflite

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/tphakala/go-tflite"
	"github.com/tphakala/go-tflite/delegates/xnnpack"
	xdraw "golang.org/x/image/draw"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"wheelcity-backend/internal/vision"
)

// Config controls model loading and inference.
type Config struct {
	ModelPath  string
	LabelsPath string // optional, one label per line in model output order
	Threshold  float64
	Threads    int
	UseXNNPACK bool
}

// Detector is a vision.Detector backed by a TFLite interpreter. The
// interpreter is not safe for concurrent Invoke calls, so inference is
// serialized with a mutex.
type Detector struct {
	mu          sync.Mutex
	model       *tflite.Model
	interpreter *tflite.Interpreter
	labels      []string
	threshold   float64
	inputW      int
	inputH      int
}

const nmsIoUThreshold = 0.45

// New loads the model file and prepares an interpreter for it.
func New(cfg Config) (*Detector, error) {
	modelData, err := os.ReadFile(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", cfg.ModelPath, err)
	}

	labels := vision.DefaultLabels
	if cfg.LabelsPath != "" {
		labels, err = loadLabels(cfg.LabelsPath)
		if err != nil {
			return nil, err
		}
	}

	model := tflite.NewModel(modelData)
	if model == nil {
		return nil, fmt.Errorf("load model %s: cannot parse model data", cfg.ModelPath)
	}

	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	options := tflite.NewInterpreterOptions()
	if options == nil {
		model.Delete()
		return nil, fmt.Errorf("create interpreter options")
	}
	if cfg.UseXNNPACK {
		delegate := xnnpack.New(xnnpack.DelegateOptions{NumThreads: int32(max(1, threads-1))})
		if delegate != nil {
			options.AddDelegate(delegate)
			options.SetNumThread(1)
		} else {
			options.SetNumThread(threads)
		}
	} else {
		options.SetNumThread(threads)
	}

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		model.Delete()
		return nil, fmt.Errorf("create interpreter for %s", cfg.ModelPath)
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		interpreter.Delete()
		model.Delete()
		return nil, fmt.Errorf("allocate tensors: status %v", status)
	}

	input := interpreter.GetInputTensor(0)
	if input.NumDims() != 4 {
		interpreter.Delete()
		model.Delete()
		return nil, fmt.Errorf("unexpected input rank %d, want 4", input.NumDims())
	}

	return &Detector{
		model:       model,
		interpreter: interpreter,
		labels:      labels,
		threshold:   cfg.Threshold,
		inputH:      input.Dim(1),
		inputW:      input.Dim(2),
	}, nil
}

// Close releases the interpreter and model.
func (d *Detector) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.interpreter != nil {
		d.interpreter.Delete()
		d.interpreter = nil
	}
	if d.model != nil {
		d.model.Delete()
		d.model = nil
	}
}

// Detect decodes the image, runs it through the model and returns every
// detection at or above the configured confidence threshold.
func (d *Detector) Detect(ctx context.Context, imageBytes []byte) ([]vision.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.interpreter == nil {
		return nil, vision.ErrModelUnavailable
	}

	lb := letterbox(src, d.inputW, d.inputH)
	input := d.interpreter.GetInputTensor(0)
	fillInput(input.Float32s(), lb.img)

	if status := d.interpreter.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("tflite invoke: status %v", status)
	}

	output := d.interpreter.GetOutputTensor(0)
	return d.decodeOutput(output, lb)
}

type letterboxed struct {
	img *image.RGBA
	// scale maps source pixels to model pixels, pad is the top-left offset
	// of the scaled image inside the model input.
	scale      float64
	padX, padY float64
	srcW, srcH int
}

// letterbox scales src to fit (w, h) preserving aspect ratio and pads the
// remainder, matching the YOLOv8 preprocessing the model was exported with.
func letterbox(src image.Image, w, h int) letterboxed {
	bounds := src.Bounds()
	srcW := bounds.Dx()
	srcH := bounds.Dy()

	scale := min(float64(w)/float64(srcW), float64(h)/float64(srcH))
	scaledW := int(float64(srcW) * scale)
	scaledH := int(float64(srcH) * scale)
	padX := (w - scaledW) / 2
	padY := (h - scaledH) / 2

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	target := image.Rect(padX, padY, padX+scaledW, padY+scaledH)
	xdraw.BiLinear.Scale(dst, target, src, bounds, xdraw.Src, nil)

	return letterboxed{
		img:   dst,
		scale: scale,
		padX:  float64(padX),
		padY:  float64(padY),
		srcW:  srcW,
		srcH:  srcH,
	}
}

func fillInput(dst []float32, img *image.RGBA) {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	i := 0
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			dst[i] = float32(row[x*4]) / 255
			dst[i+1] = float32(row[x*4+1]) / 255
			dst[i+2] = float32(row[x*4+2]) / 255
			i += 3
		}
	}
}

// decodeOutput reads the (1, 4+numClasses, numCandidates) tensor: rows 0-3
// are center-x, center-y, width, height in model pixels, the remaining rows
// are per-class scores.
func (d *Detector) decodeOutput(output *tflite.Tensor, lb letterboxed) ([]vision.Detection, error) {
	if output.NumDims() != 3 {
		return nil, fmt.Errorf("unexpected output rank %d, want 3", output.NumDims())
	}
	rows := output.Dim(1)
	candidates := output.Dim(2)
	numClasses := rows - 4
	if numClasses < 1 {
		return nil, fmt.Errorf("unexpected output shape (1, %d, %d)", rows, candidates)
	}
	if numClasses > len(d.labels) {
		return nil, fmt.Errorf("model reports %d classes but only %d labels are known", numClasses, len(d.labels))
	}

	data := output.Float32s()
	row := func(r, c int) float64 { return float64(data[r*candidates+c]) }

	var detections []vision.Detection
	for c := 0; c < candidates; c++ {
		classID := 0
		score := row(4, c)
		for k := 1; k < numClasses; k++ {
			if s := row(4+k, c); s > score {
				score = s
				classID = k
			}
		}
		if score < d.threshold {
			continue
		}

		cx := row(0, c) * float64(d.inputW)
		cy := row(1, c) * float64(d.inputH)
		bw := row(2, c) * float64(d.inputW)
		bh := row(3, c) * float64(d.inputH)

		// Undo the letterbox transform back to source pixels, then
		// normalize to [0,1].
		x1 := ((cx - bw/2) - lb.padX) / lb.scale
		y1 := ((cy - bh/2) - lb.padY) / lb.scale
		x2 := ((cx + bw/2) - lb.padX) / lb.scale
		y2 := ((cy + bh/2) - lb.padY) / lb.scale

		box := vision.Box{
			X1: clamp01(x1 / float64(lb.srcW)),
			Y1: clamp01(y1 / float64(lb.srcH)),
			X2: clamp01(x2 / float64(lb.srcW)),
			Y2: clamp01(y2 / float64(lb.srcH)),
		}
		if box.X2-box.X1 <= 0 || box.Y2-box.Y1 <= 0 {
			continue
		}

		detections = append(detections, vision.Detection{
			Label:      d.labels[classID],
			Confidence: score,
			Box:        box,
		})
	}

	return nonMaxSuppression(detections), nil
}

// nonMaxSuppression drops boxes that overlap a higher-confidence box of the
// same label beyond the IoU threshold.
func nonMaxSuppression(detections []vision.Detection) []vision.Detection {
	if len(detections) < 2 {
		return detections
	}
	sort.SliceStable(detections, func(i, j int) bool {
		return detections[i].Confidence > detections[j].Confidence
	})

	kept := detections[:0]
	for _, d := range detections {
		overlaps := false
		for _, k := range kept {
			if k.Label == d.Label && iou(k.Box, d.Box) > nmsIoUThreshold {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, d)
		}
	}
	return kept
}

func iou(a, b vision.Box) float64 {
	ix1 := max(a.X1, b.X1)
	iy1 := max(a.Y1, b.Y1)
	ix2 := min(a.X2, b.X2)
	iy2 := min(a.Y2, b.Y2)

	iw := ix2 - ix1
	ih := iy2 - iy1
	if iw <= 0 || ih <= 0 {
		return 0
	}
	inter := iw * ih
	areaA := (a.X2 - a.X1) * (a.Y2 - a.Y1)
	areaB := (b.X2 - b.X1) * (b.Y2 - b.Y1)
	union := areaA + areaB - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func loadLabels(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read labels %s: %w", path, err)
	}
	var labels []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		labels = append(labels, line)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("labels file %s is empty", path)
	}
	return labels, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var _ vision.Detector = (*Detector)(nil)
