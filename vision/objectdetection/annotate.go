package objectdetection

import (
	"fmt"
	"image"
	"image/color"
	"math/rand"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"

	"github.com/rtdetect/rtdetect/rimage"
)

const (
	// DefaultLineWidth is the stroke width of detection boxes, in pixels.
	DefaultLineWidth = 2
	// DefaultFontSize is the label text size.
	DefaultFontSize = 12
	labelOffset     = 15
)

// Palette assigns each class a fixed color.
type Palette struct {
	colors []color.RGBA
}

// NewPalette draws n colors from a generator seeded with seed. The same seed always gives the
// same palette.
func NewPalette(seed int64, n int) Palette {
	//nolint:gosec
	rng := rand.New(rand.NewSource(seed))
	colors := make([]color.RGBA, n)
	for i := range colors {
		c := colorful.Hsv(rng.Float64()*360, 0.5+rng.Float64()*0.5, 0.6+rng.Float64()*0.4).Clamped()
		r, g, b := c.RGB255()
		colors[i] = color.RGBA{r, g, b, 255}
	}
	return Palette{colors: colors}
}

// Color returns the color for classIndex. Indices outside the palette wrap around.
func (p Palette) Color(classIndex int) color.RGBA {
	if len(p.colors) == 0 {
		return color.RGBA{0, 255, 0, 255}
	}
	idx := classIndex % len(p.colors)
	if idx < 0 {
		idx += len(p.colors)
	}
	return p.colors[idx]
}

// Len returns the number of colors.
func (p Palette) Len() int {
	return len(p.colors)
}

// Annotator draws detections onto frames in place.
type Annotator struct {
	Palette   Palette
	LineWidth float64
	FontSize  float64
}

// NewAnnotator returns an annotator using the given palette and default styling.
func NewAnnotator(palette Palette) *Annotator {
	return &Annotator{Palette: palette, LineWidth: DefaultLineWidth, FontSize: DefaultFontSize}
}

// LabelText formats the caption drawn above a box, e.g. "person: 90.00%".
func LabelText(d Detection) string {
	return fmt.Sprintf("%s: %.2f%%", d.Label, d.Confidence()*100)
}

// LabelOrigin returns the baseline start of the caption: above the box when there is room,
// inside it otherwise.
func LabelOrigin(box image.Rectangle) image.Point {
	y := box.Min.Y - labelOffset
	if y <= labelOffset {
		y = box.Min.Y + labelOffset
	}
	return image.Point{box.Min.X, y}
}

// Annotate draws d's box and caption onto img.
func (a *Annotator) Annotate(img *image.RGBA, d Detection) error {
	if img == nil {
		return errors.New("cannot annotate a nil image")
	}
	// boxes may be degenerate after scaling; those are still drawn as lines
	if !d.Box.Canon().Inset(-1).Overlaps(img.Bounds()) {
		return errors.Errorf("box %s does not overlap frame %v", d.BoxString(), img.Bounds())
	}
	c := a.Palette.Color(d.Raw.ClassIndex)
	dc := rimage.NewContextForImage(img)
	rimage.DrawRectangleEmpty(dc, d.Box, c, a.LineWidth)
	rimage.DrawString(dc, LabelText(d), LabelOrigin(d.Box), c, a.FontSize)
	return nil
}
