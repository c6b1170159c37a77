package inject

import (
	"image"

	"github.com/rtdetect/rtdetect/data/video"
)

// VideoWriter is an injected video writer.
type VideoWriter struct {
	video.Writer
	WriteFunc func(img *image.RGBA) error
	CloseFunc func() error
}

// Write calls the injected Write or the real version.
func (w *VideoWriter) Write(img *image.RGBA) error {
	if w.WriteFunc == nil {
		return w.Writer.Write(img)
	}
	return w.WriteFunc(img)
}

// Close calls the injected Close or the real version.
func (w *VideoWriter) Close() error {
	if w.CloseFunc == nil {
		return w.Writer.Close()
	}
	return w.CloseFunc()
}

// Display is an injected preview display.
type Display struct {
	video.Display
	ShowFunc    func(img *image.RGBA) error
	PollKeyFunc func() int
	CloseFunc   func() error
}

// Show calls the injected Show or the real version.
func (d *Display) Show(img *image.RGBA) error {
	if d.ShowFunc == nil {
		return d.Display.Show(img)
	}
	return d.ShowFunc(img)
}

// PollKey calls the injected PollKey or the real version.
func (d *Display) PollKey() int {
	if d.PollKeyFunc == nil {
		return d.Display.PollKey()
	}
	return d.PollKeyFunc()
}

// Close calls the injected Close or the real version.
func (d *Display) Close() error {
	if d.CloseFunc == nil {
		return d.Display.Close()
	}
	return d.CloseFunc()
}
