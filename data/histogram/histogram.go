// Package histogram computes per-channel color distributions of frames and saves them as plots.
package histogram

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultBins is the number of bins per channel.
	DefaultBins = 16
	// MaxBins gives each 8-bit value its own bin.
	MaxBins = 256
	// rangeHigh is the exclusive upper edge of the binned range, so 255 itself is not counted.
	rangeHigh = 255
)

// Snapshot is the normalized red, green and blue histograms of one frame. Each slice has Bins
// entries and every entry is the fraction of pixels falling in that bin.
type Snapshot struct {
	FrameNumber int64
	Bins        int
	Red         []float64
	Green       []float64
	Blue        []float64
}

// Compute bins every pixel of img uniformly over [0, 255) and divides the counts by the pixel
// count. Saturated channel values fall outside the range, so a channel may sum to less than
// one. If resizeWidth is positive the image is first shrunk to that width with a box filter.
func Compute(img image.Image, bins, resizeWidth int) (Snapshot, error) {
	if bins < 1 || bins > MaxBins {
		return Snapshot{}, errors.Errorf("bins must be in [1, %d], got %d", MaxBins, bins)
	}
	if resizeWidth > 0 && img.Bounds().Dx() != resizeWidth {
		img = imaging.Resize(img, resizeWidth, 0, imaging.Box)
	}
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return Snapshot{}, errors.New("cannot compute histogram of an empty image")
	}

	snap := Snapshot{
		Bins:  bins,
		Red:   make([]float64, bins),
		Green: make([]float64, bins),
		Blue:  make([]float64, bins),
	}
	add := func(channel []float64, v uint8) {
		if v < rangeHigh {
			channel[int(v)*bins/rangeHigh]++
		}
	}
	count := func(c color.RGBA) {
		add(snap.Red, c.R)
		add(snap.Green, c.G)
		add(snap.Blue, c.B)
	}

	switch typed := img.(type) {
	case *image.RGBA:
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				count(typed.RGBAAt(x, y))
			}
		}
	case *image.NRGBA:
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				c := typed.NRGBAAt(x, y)
				count(color.RGBA{c.R, c.G, c.B, c.A})
			}
		}
	default:
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				count(color.RGBAModel.Convert(img.At(x, y)).(color.RGBA))
			}
		}
	}

	norm := 1 / float64(total)
	for _, channel := range [][]float64{snap.Red, snap.Green, snap.Blue} {
		floats.Scale(norm, channel)
	}
	return snap, nil
}
