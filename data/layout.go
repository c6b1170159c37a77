// Package data defines where a detection session writes its artifacts. The sinks themselves
// live in the report, histogram and video subpackages.
package data

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	// ResultsDirName is the directory, under the output root, holding every artifact.
	ResultsDirName = "results"
	// HistogramsDirName holds one plot per histogram snapshot.
	HistogramsDirName = "histograms"
	// ReportFileName is the structured detection report.
	ReportFileName = "annotation_report"
	// VideoFileName is the annotated output video.
	VideoFileName = "annotated_video.avi"
	// LogFileName is the rotating process log.
	LogFileName = "rtdetect.log"
)

// Layout resolves artifact paths under an output root.
type Layout struct {
	Root string
}

// NewLayout returns the layout for root. An empty root means the working directory.
func NewLayout(root string) Layout {
	if root == "" {
		root = "."
	}
	return Layout{Root: root}
}

// ResultsDir is <root>/results.
func (l Layout) ResultsDir() string {
	return filepath.Join(l.Root, ResultsDirName)
}

// HistogramsDir is <root>/results/histograms.
func (l Layout) HistogramsDir() string {
	return filepath.Join(l.ResultsDir(), HistogramsDirName)
}

// ReportPath is <root>/results/annotation_report.
func (l Layout) ReportPath() string {
	return filepath.Join(l.ResultsDir(), ReportFileName)
}

// VideoPath is <root>/results/annotated_video.avi.
func (l Layout) VideoPath() string {
	return filepath.Join(l.ResultsDir(), VideoFileName)
}

// LogPath is <root>/results/rtdetect.log.
func (l Layout) LogPath() string {
	return filepath.Join(l.ResultsDir(), LogFileName)
}

// HistogramPath is the plot file for one frame.
func (l Layout) HistogramPath(frameNumber int64) string {
	return filepath.Join(l.HistogramsDir(), fmt.Sprintf("frame_%d_histogram_plot.png", frameNumber))
}

// EnsureDirs creates the results and histogram directories if they are missing.
func (l Layout) EnsureDirs() error {
	for _, dir := range []string{l.ResultsDir(), l.HistogramsDir()} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return errors.Wrapf(err, "cannot create %s", dir)
		}
	}
	return nil
}
