package inference

import (
	"image"
	"image/color"

	"github.com/nfnt/resize"
	"gorgonia.org/tensor"
)

// BlobParams describes how an image becomes network input: resize to Width x Height, then
// (value - Mean) * Scale per channel.
type BlobParams struct {
	Width  int
	Height int
	Scale  float32
	Mean   float32
	// SwapRB orders channels blue, green, red.
	SwapRB bool
}

// DefaultBlobParams are the MobileNet-SSD input settings.
func DefaultBlobParams() BlobParams {
	return BlobParams{Width: 300, Height: 300, Scale: 0.007843, Mean: 127.5, SwapRB: true}
}

// ImageToBlob resizes img bilinearly and packs it into a 1x3xHxW float32 tensor.
func ImageToBlob(img image.Image, params BlobParams) *tensor.Dense {
	w, h := params.Width, params.Height
	resized := resize.Resize(uint(w), uint(h), img, resize.Bilinear)
	plane := w * h
	data := make([]float32, 3*plane)

	first, last := 0, 2
	if params.SwapRB {
		first, last = 2, 0
	}
	norm := func(v uint8) float32 {
		return (float32(v) - params.Mean) * params.Scale
	}
	bounds := resized.Bounds()
	rgba, isRGBA := resized.(*image.RGBA)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var c color.RGBA
			if isRGBA {
				c = rgba.RGBAAt(bounds.Min.X+x, bounds.Min.Y+y)
			} else {
				c = color.RGBAModel.Convert(resized.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.RGBA)
			}
			idx := y*w + x
			data[first*plane+idx] = norm(c.R)
			data[plane+idx] = norm(c.G)
			data[last*plane+idx] = norm(c.B)
		}
	}
	return tensor.New(tensor.WithShape(1, 3, h, w), tensor.WithBacking(data))
}
