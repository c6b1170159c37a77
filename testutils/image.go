// Package testutils holds fixtures shared by package tests.
package testutils

import (
	"image"
	"image/color"

	"gorgonia.org/tensor"
)

// SolidRGBA returns a w x h image filled with c.
func SolidRGBA(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// SSDOutput packs rows of [image_id, class, confidence, x1, y1, x2, y2] into a
// 1x1xNx7 float32 tensor, the layout of an SSD detection_out blob. No rows yields a single
// all-zero row, which no threshold accepts.
func SSDOutput(rows ...[7]float32) *tensor.Dense {
	if len(rows) == 0 {
		rows = [][7]float32{{}}
	}
	data := make([]float32, 0, len(rows)*7)
	for _, row := range rows {
		data = append(data, row[:]...)
	}
	return tensor.New(tensor.WithShape(1, 1, len(rows), 7), tensor.WithBacking(data))
}
