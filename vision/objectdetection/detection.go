// Package objectdetection turns raw detector rows into labeled, pixel-space detections and draws
// them onto frames.
package objectdetection

import (
	"bufio"
	"fmt"
	"image"
	"math"
	"os"
	"strings"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/rtdetect/rtdetect/utils"
)

var (
	// ErrUnknownClass is returned for a class index outside the label table.
	ErrUnknownClass = errors.New("class index outside label table")
	// ErrInvalidDetection is returned for a confidence outside [0, 1].
	ErrInvalidDetection = errors.New("confidence outside [0, 1]")
)

// RawDetection is one row of detector output. Box is [x1, y1, x2, y2], normalized to the
// frame's width and height.
type RawDetection struct {
	ClassIndex int
	Confidence float32
	Box        [4]float32
}

// Detection is a RawDetection that passed the filter, placed in pixel space.
type Detection struct {
	Raw         RawDetection
	Label       string
	Box         image.Rectangle
	FrameNumber int64
}

// Confidence returns the detector's confidence.
func (d Detection) Confidence() float32 {
	return d.Raw.Confidence
}

// BoxString formats the box as "[x1 y1 x2 y2]".
func (d Detection) BoxString() string {
	return fmt.Sprintf("[%d %d %d %d]", d.Box.Min.X, d.Box.Min.Y, d.Box.Max.X, d.Box.Max.Y)
}

// Labels maps class indices to names.
type Labels []string

var defaultLabels = Labels{
	"background", "aeroplane", "bicycle", "bird", "boat",
	"bottle", "bus", "car", "cat", "chair", "cow", "diningtable",
	"dog", "horse", "motorbike", "person", "pottedplant", "sheep",
	"sofa", "train", "tvmonitor",
}

// DefaultLabels returns the 21 MobileNet-SSD VOC classes. The slice is a copy.
func DefaultLabels() Labels {
	return append(Labels(nil), defaultLabels...)
}

// LoadLabels reads one label per line; blank lines are skipped.
func LoadLabels(path string) (Labels, error) {
	//nolint:gosec
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer goutils.UncheckedErrorFunc(f.Close)

	labels := Labels{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			labels = append(labels, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(labels) == 0 {
		return nil, errors.Errorf("no labels in %q", path)
	}
	return labels, nil
}

// Name returns the label for classIndex.
func (l Labels) Name(classIndex int) (string, error) {
	if classIndex < 0 || classIndex >= len(l) {
		return "", errors.Wrapf(ErrUnknownClass, "index %d with %d labels", classIndex, len(l))
	}
	return l[classIndex], nil
}

// ScaleBox maps a normalized box onto bounds, truncating to whole pixels and clamping to the
// frame.
func ScaleBox(box [4]float32, bounds image.Rectangle) image.Rectangle {
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	scale := func(v float32, size float64, lo, hi int) int {
		return utils.ClampInt(lo+int(float64(v)*size), lo, hi)
	}
	return image.Rect(
		scale(box[0], w, bounds.Min.X, bounds.Max.X),
		scale(box[1], h, bounds.Min.Y, bounds.Max.Y),
		scale(box[2], w, bounds.Min.X, bounds.Max.X),
		scale(box[3], h, bounds.Min.Y, bounds.Max.Y),
	)
}

func validConfidence(c float32) bool {
	return !math.IsNaN(float64(c)) && c >= 0 && c <= 1
}
