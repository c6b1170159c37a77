package histogram

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/rtdetect/rtdetect/logging"
)

const (
	plotWidth  = 6 * vg.Inch
	plotHeight = 4 * vg.Inch
)

var channelColors = []struct {
	name  string
	color color.NRGBA
}{
	{"Red", color.NRGBA{R: 255, A: 128}},
	{"Green", color.NRGBA{G: 255, A: 128}},
	{"Blue", color.NRGBA{B: 255, A: 128}},
}

// Sink computes a histogram for a frame and saves its plot as
// <dir>/frame_<N>_histogram_plot.png.
type Sink struct {
	dir         string
	bins        int
	resizeWidth int
	logger      logging.Logger
}

// NewSink returns a sink writing into dir. A non-positive bins selects DefaultBins.
func NewSink(dir string, bins, resizeWidth int, logger logging.Logger) *Sink {
	if bins <= 0 {
		bins = DefaultBins
	}
	return &Sink{dir: dir, bins: bins, resizeWidth: resizeWidth, logger: logger}
}

// Path returns the plot file for frameNumber.
func (s *Sink) Path(frameNumber int64) string {
	return filepath.Join(s.dir, fmt.Sprintf("frame_%d_histogram_plot.png", frameNumber))
}

// Snapshot computes, renders and saves the histogram of img.
func (s *Sink) Snapshot(img image.Image, frameNumber int64) error {
	snap, err := Compute(img, s.bins, s.resizeWidth)
	if err != nil {
		return err
	}
	snap.FrameNumber = frameNumber

	p, err := Render(snap)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return errors.Wrap(err, "cannot create histogram directory")
	}
	path := s.Path(frameNumber)
	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return errors.Wrapf(err, "cannot save histogram %s", path)
	}
	s.logger.Debugw("histogram saved", "frame", frameNumber, "path", path)
	return nil
}

// Render draws the three channel curves on a fresh plot.
func Render(snap Snapshot) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "RGB Histogram"
	p.X.Label.Text = "Bin"
	p.Y.Label.Text = "Frequency"
	p.X.Min = 0
	p.X.Max = float64(snap.Bins - 1)
	p.Y.Min = 0
	p.Y.Max = 1

	for i, values := range [][]float64{snap.Red, snap.Green, snap.Blue} {
		if len(values) != snap.Bins {
			return nil, errors.Errorf("%s channel has %d bins, want %d", channelColors[i].name, len(values), snap.Bins)
		}
		pts := make(plotter.XYs, len(values))
		for bin, v := range values {
			pts[bin] = plotter.XY{X: float64(bin), Y: v}
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.Color = channelColors[i].color
		line.Width = vg.Points(3)
		p.Add(line)
		p.Legend.Add(channelColors[i].name, line)
	}
	p.Legend.Top = true
	return p, nil
}
