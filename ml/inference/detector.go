package inference

import (
	"context"
	"image"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/rtdetect/rtdetect/logging"
	"github.com/rtdetect/rtdetect/utils"
	"github.com/rtdetect/rtdetect/vision/objectdetection"
)

// rowWidth is the length of one SSD output row:
// [image_id, class, confidence, x1, y1, x2, y2].
const rowWidth = 7

// Detector runs an Engine on frames and returns its raw rows.
type Detector struct {
	engine Engine
	params BlobParams
	logger logging.Logger
}

// NewDetector wraps engine.
func NewDetector(engine Engine, params BlobParams, logger logging.Logger) *Detector {
	return &Detector{engine: engine, params: params, logger: logger}
}

// Loaded reports whether the detector has an engine to run.
func (d *Detector) Loaded() bool {
	return d != nil && d.engine != nil
}

// Infer returns every row the network produced for img, in output order. No rows is a valid
// result. Failures are returned as *InferenceError.
func (d *Detector) Infer(ctx context.Context, img image.Image) ([]objectdetection.RawDetection, error) {
	if !d.Loaded() {
		return nil, &InferenceError{Err: errors.New("detector has no engine")}
	}
	if err := ctx.Err(); err != nil {
		return nil, &InferenceError{Err: err}
	}
	blob := ImageToBlob(img, d.params)
	out, err := d.engine.Forward(ctx, blob)
	if err != nil {
		return nil, &InferenceError{Err: err}
	}
	rows, err := DecodeDetections(out)
	if err != nil {
		return nil, &InferenceError{Err: err}
	}
	d.logger.Debugw("inference done", "rows", len(rows))
	return rows, nil
}

// Close releases the engine.
func (d *Detector) Close() error {
	if !d.Loaded() {
		return nil
	}
	return d.engine.Close()
}

// DecodeDetections reads an output tensor whose last dimension holds SSD rows.
func DecodeDetections(out *tensor.Dense) ([]objectdetection.RawDetection, error) {
	if out == nil {
		return nil, errors.New("engine returned no output")
	}
	shape := out.Shape()
	if len(shape) == 0 || shape[len(shape)-1] != rowWidth {
		return nil, errors.Errorf("unexpected output shape %v, want [..., %d]", shape, rowWidth)
	}
	data, ok := out.Data().([]float32)
	if !ok {
		return nil, utils.NewUnexpectedTypeError([]float32(nil), out.Data())
	}
	rows := make([]objectdetection.RawDetection, 0, len(data)/rowWidth)
	for i := 0; i+rowWidth <= len(data); i += rowWidth {
		row := data[i : i+rowWidth]
		rows = append(rows, objectdetection.RawDetection{
			ClassIndex: int(row[1]),
			Confidence: row[2],
			Box:        [4]float32{row[3], row[4], row[5], row[6]},
		})
	}
	return rows, nil
}
