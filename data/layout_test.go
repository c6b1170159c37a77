package data

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestLayout(t *testing.T) {
	root := t.TempDir()
	layout := NewLayout(root)
	test.That(t, layout.ReportPath(), test.ShouldEqual, filepath.Join(root, "results", "annotation_report"))
	test.That(t, layout.VideoPath(), test.ShouldEqual, filepath.Join(root, "results", "annotated_video.avi"))
	test.That(t, layout.LogPath(), test.ShouldEqual, filepath.Join(root, "results", "rtdetect.log"))
	test.That(t, layout.HistogramPath(12), test.ShouldEqual,
		filepath.Join(root, "results", "histograms", "frame_12_histogram_plot.png"))

	test.That(t, layout.EnsureDirs(), test.ShouldBeNil)
	info, err := os.Stat(layout.HistogramsDir())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.IsDir(), test.ShouldBeTrue)
	// idempotent
	test.That(t, layout.EnsureDirs(), test.ShouldBeNil)

	test.That(t, NewLayout("").ResultsDir(), test.ShouldEqual, "results")
}

func TestEnsureDirsFailure(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file")
	test.That(t, os.WriteFile(root, []byte("x"), 0o600), test.ShouldBeNil)
	test.That(t, NewLayout(root).EnsureDirs(), test.ShouldNotBeNil)
}
