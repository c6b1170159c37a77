package rimage

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// GaussianFunction2D takes in a sigma and returns an isotropic 2D gaussian.
func GaussianFunction2D(sigma float64) func(p1, p2 float64) float64 {
	if sigma <= 0. {
		return func(p1, p2 float64) float64 {
			return 1.
		}
	}
	return func(p1, p2 float64) float64 {
		return math.Exp(-0.5*(p1*p1+p2*p2)/(sigma*sigma)) / (2. * math.Pi * sigma * sigma)
	}
}

// GaussianKernel3x3 samples a gaussian of the given sigma on a 3x3 grid, row major.
// The weights are not normalized.
func GaussianKernel3x3(sigma float64) [9]float64 {
	gauss := GaussianFunction2D(sigma)
	var kernel [9]float64
	for i := 0; i < 9; i++ {
		kernel[i] = gauss(float64(i%3-1), float64(i/3-1))
	}
	return kernel
}

// GaussianBlur3x3 blurs img with a normalized 3x3 gaussian kernel.
func GaussianBlur3x3(img image.Image, sigma float64) *image.RGBA {
	blurred := imaging.Convolve3x3(img, GaussianKernel3x3(sigma), &imaging.ConvolveOptions{Normalize: true})
	return ToRGBA(blurred)
}

// ResizeToWidth scales img to the given width preserving its aspect ratio. A width of zero, or
// the image's own width, leaves the image untouched.
func ResizeToWidth(img image.Image, width int) image.Image {
	if width <= 0 || img.Bounds().Dx() == width {
		return img
	}
	return imaging.Resize(img, width, 0, imaging.Box)
}
