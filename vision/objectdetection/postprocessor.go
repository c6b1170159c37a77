package objectdetection

import (
	"image"

	"github.com/pkg/errors"
)

// DefaultThreshold is the minimum confidence a detection must exceed.
const DefaultThreshold = 0.2

// Filter decides which raw rows become detections. There is no suppression across rows: every
// row is judged on its own and rows keep the detector's order.
type Filter struct {
	Threshold float32
	Labels    Labels
}

// NewFilter returns a filter with the given threshold over the default labels.
func NewFilter(threshold float32) Filter {
	return Filter{Threshold: threshold, Labels: DefaultLabels()}
}

// Accept returns the detection for raw if its confidence is strictly above the threshold.
// A row with an invalid confidence fails with ErrInvalidDetection; an accepted row whose class
// is not in the label table fails with ErrUnknownClass.
func (f Filter) Accept(raw RawDetection, frameNumber int64, bounds image.Rectangle) (Detection, bool, error) {
	if !validConfidence(raw.Confidence) {
		return Detection{}, false, errors.Wrapf(ErrInvalidDetection, "got %v", raw.Confidence)
	}
	if raw.Confidence <= f.Threshold {
		return Detection{}, false, nil
	}
	label, err := f.Labels.Name(raw.ClassIndex)
	if err != nil {
		return Detection{}, false, err
	}
	return Detection{
		Raw:         raw,
		Label:       label,
		Box:         ScaleBox(raw.Box, bounds),
		FrameNumber: frameNumber,
	}, true, nil
}
