package camera

import (
	"image"

	"github.com/rtdetect/rtdetect/rimage"
)

const (
	// DefaultWorkingWidth is the width frames are scaled to before detection.
	DefaultWorkingWidth = 400
	// DefaultBlurSigma is the sigma of the 3x3 gaussian applied to every frame.
	DefaultBlurSigma = 1.0
)

// Preprocessor normalizes raw captures into working frames.
type Preprocessor struct {
	// Width is the output width; the height follows the aspect ratio. Zero keeps the
	// capture size.
	Width int
	// BlurSigma of zero or less disables the blur.
	BlurSigma float64
}

// NewPreprocessor returns a Preprocessor with the default working width and blur.
func NewPreprocessor() Preprocessor {
	return Preprocessor{Width: DefaultWorkingWidth, BlurSigma: DefaultBlurSigma}
}

// Process resizes and blurs img. The result never aliases img.
func (p Preprocessor) Process(img image.Image) *image.RGBA {
	resized := rimage.ResizeToWidth(img, p.Width)
	if p.BlurSigma > 0 {
		return rimage.GaussianBlur3x3(resized, p.BlurSigma)
	}
	out := rimage.ToRGBA(resized)
	if same, ok := img.(*image.RGBA); ok && same == out {
		return rimage.CloneRGBA(out)
	}
	return out
}
