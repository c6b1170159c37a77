package pipeline_test

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.viam.com/test"
	"gorgonia.org/tensor"

	"github.com/rtdetect/rtdetect/components/camera"
	"github.com/rtdetect/rtdetect/data/histogram"
	"github.com/rtdetect/rtdetect/data/report"
	"github.com/rtdetect/rtdetect/data/video"
	"github.com/rtdetect/rtdetect/logging"
	"github.com/rtdetect/rtdetect/ml/inference"
	"github.com/rtdetect/rtdetect/pipeline"
	"github.com/rtdetect/rtdetect/testutils"
	"github.com/rtdetect/rtdetect/testutils/inject"
	"github.com/rtdetect/rtdetect/vision/objectdetection"
)

var personRow = [7]float32{0, 15, 0.9, 0.1, 0.1, 0.5, 0.5}

func frames(n int) []image.Image {
	images := make([]image.Image, n)
	for i := range images {
		images[i] = testutils.SolidRGBA(100, 100, color.RGBA{40, 80, 120, 255})
	}
	return images
}

func engineReturning(rows ...[7]float32) *inject.Engine {
	return &inject.Engine{
		ForwardFunc: func(ctx context.Context, input *tensor.Dense) (*tensor.Dense, error) {
			return testutils.SSDOutput(rows...), nil
		},
	}
}

type harness struct {
	dir     string
	report  *report.Report
	sink    *histogram.Sink
	writer  *inject.VideoWriter
	writes  int
	size    image.Point
	clock   *clock.Mock
	display *inject.Display
}

func newHarness(t *testing.T, logger logging.Logger) *harness {
	t.Helper()
	h := &harness{dir: t.TempDir(), clock: clock.NewMock()}
	h.report = report.New(filepath.Join(h.dir, "annotation_report"), logger)
	h.sink = histogram.NewSink(filepath.Join(h.dir, "histograms"), histogram.DefaultBins, 0, logger)
	h.writer = &inject.VideoWriter{
		WriteFunc: func(img *image.RGBA) error {
			h.writes++
			return nil
		},
		CloseFunc: func() error { return nil },
	}
	h.display = &inject.Display{
		ShowFunc:    func(img *image.RGBA) error { return nil },
		PollKeyFunc: func() int { return video.NoKey },
		CloseFunc:   func() error { return nil },
	}
	return h
}

func (h *harness) deps(source camera.Source, engine inference.Engine, logger logging.Logger) pipeline.Deps {
	return pipeline.Deps{
		Source:       source,
		Preprocessor: camera.Preprocessor{BlurSigma: camera.DefaultBlurSigma},
		Detector:     inference.NewDetector(engine, inference.DefaultBlobParams(), logger),
		Filter:       objectdetection.NewFilter(objectdetection.DefaultThreshold),
		Annotator:    objectdetection.NewAnnotator(objectdetection.NewPalette(1, 21)),
		Report:       h.report,
		Histogram:    h.sink,
		NewVideoWriter: func(size image.Point) (video.Writer, error) {
			h.size = size
			return h.writer, nil
		},
		Display: h.display,
		Clock:   h.clock,
		Logger:  logger,
		Options: pipeline.Options{MaxConsecutiveSinkFailures: 5, MaxReadRetries: 3},
	}
}

func (h *harness) reportText(t *testing.T) string {
	t.Helper()
	//nolint:gosec
	content, err := os.ReadFile(h.report.Path())
	test.That(t, err, test.ShouldBeNil)
	return string(content)
}

// endless yields the same frame until ctx is done.
func endless() *inject.Source {
	img := testutils.SolidRGBA(100, 100, color.RGBA{40, 80, 120, 255})
	return &inject.Source{
		OpenFunc: func(ctx context.Context) error { return nil },
		ReadFunc: func(ctx context.Context) (image.Image, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return img, nil
		},
		CloseFunc: func(ctx context.Context) error { return nil },
	}
}

type failingHistogram struct {
	calls   int
	failFor func(call int) bool
}

func (f *failingHistogram) Snapshot(img image.Image, frameNumber int64) error {
	f.calls++
	if f.failFor(f.calls) {
		return errors.New("disk full")
	}
	return nil
}

func TestRunSingleFrame(t *testing.T) {
	logger := logging.NewTestLogger(t)
	h := newHarness(t, logger)
	lowRow := [7]float32{0, 15, 0.15, 0.1, 0.1, 0.5, 0.5}
	ctrl, err := pipeline.New(h.deps(camera.NewStaticSource("test", frames(1)...), engineReturning(personRow, lowRow), logger))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ctrl.State(), test.ShouldEqual, pipeline.Idle)

	err = ctrl.Run(context.Background())
	test.That(t, errors.Is(err, camera.ErrEndOfStream), test.ShouldBeTrue)
	test.That(t, ctrl.State(), test.ShouldEqual, pipeline.Failed)
	test.That(t, errors.Is(ctrl.Err(), camera.ErrEndOfStream), test.ShouldBeTrue)
	test.That(t, ctrl.Counters(), test.ShouldResemble, pipeline.Counters{Frames: 1, Detections: 1})

	test.That(t, h.reportText(t), test.ShouldEqual, report.Header+
		"00;person;0.9;[10 10 50 50]\n"+
		"Number of detected object: 1\nElapsed time: 0.00\nApproximate FPS: 0.00\n")

	_, err = os.Stat(h.sink.Path(0))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, h.writes, test.ShouldEqual, 1)
	test.That(t, h.size, test.ShouldResemble, image.Pt(100, 100))
}

func TestRunBelowThreshold(t *testing.T) {
	logger := logging.NewTestLogger(t)
	h := newHarness(t, logger)
	lowRow := [7]float32{0, 15, 0.15, 0.1, 0.1, 0.5, 0.5}
	ctrl, err := pipeline.New(h.deps(camera.NewStaticSource("test", frames(2)...), engineReturning(lowRow), logger))
	test.That(t, err, test.ShouldBeNil)

	err = ctrl.Run(context.Background())
	test.That(t, errors.Is(err, camera.ErrEndOfStream), test.ShouldBeTrue)
	test.That(t, ctrl.Counters(), test.ShouldResemble, pipeline.Counters{Frames: 2})
	test.That(t, h.reportText(t), test.ShouldStartWith, report.Header+"Number of detected object: 0\n")
	test.That(t, h.writes, test.ShouldEqual, 2)

	_, err = os.Stat(filepath.Join(h.dir, "histograms"))
	test.That(t, os.IsNotExist(err), test.ShouldBeTrue)
}

func TestRunTiming(t *testing.T) {
	logger := logging.NewTestLogger(t)
	h := newHarness(t, logger)
	engine := &inject.Engine{
		ForwardFunc: func(ctx context.Context, input *tensor.Dense) (*tensor.Dense, error) {
			h.clock.Add(100 * time.Millisecond)
			return testutils.SSDOutput(personRow), nil
		},
	}
	ctrl, err := pipeline.New(h.deps(camera.NewStaticSource("test", frames(3)...), engine, logger))
	test.That(t, err, test.ShouldBeNil)

	err = ctrl.Run(context.Background())
	test.That(t, errors.Is(err, camera.ErrEndOfStream), test.ShouldBeTrue)
	test.That(t, ctrl.Counters(), test.ShouldResemble, pipeline.Counters{Frames: 3, Detections: 3})
	test.That(t, ctrl.FPS().Frames(), test.ShouldEqual, 3)
	test.That(t, h.reportText(t), test.ShouldEqual, report.Header+
		"00;person;0.9;[10 10 50 50]\n"+
		"01;person;0.9;[10 10 50 50]\n"+
		"02;person;0.9;[10 10 50 50]\n"+
		"Number of detected object: 3\nElapsed time: 0.30\nApproximate FPS: 10.00\n")

	summary, ok := ctrl.LatencySummary("inference")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, summary.Count, test.ShouldEqual, 3)
	test.That(t, summary.Mean, test.ShouldAlmostEqual, 100.0)
	test.That(t, summary.Max, test.ShouldAlmostEqual, 100.0)
	_, ok = ctrl.LatencySummary("unknown")
	test.That(t, ok, test.ShouldBeFalse)
}

func TestRunQuitKey(t *testing.T) {
	logger := logging.NewTestLogger(t)
	h := newHarness(t, logger)
	polls := 0
	h.display.PollKeyFunc = func() int {
		polls++
		if polls == 2 {
			return video.QuitKey
		}
		return video.NoKey
	}
	var displayClosed, sourceClosed bool
	h.display.CloseFunc = func() error {
		displayClosed = true
		return nil
	}
	source := endless()
	source.CloseFunc = func(ctx context.Context) error {
		sourceClosed = true
		return nil
	}
	ctrl, err := pipeline.New(h.deps(source, engineReturning(), logger))
	test.That(t, err, test.ShouldBeNil)

	test.That(t, ctrl.Run(context.Background()), test.ShouldBeNil)
	test.That(t, ctrl.State(), test.ShouldEqual, pipeline.Stopped)
	test.That(t, ctrl.Err(), test.ShouldBeNil)
	test.That(t, ctrl.Counters().Frames, test.ShouldEqual, 2)
	test.That(t, ctrl.FPS().Frames(), test.ShouldEqual, 1)
	test.That(t, displayClosed, test.ShouldBeTrue)
	test.That(t, sourceClosed, test.ShouldBeTrue)
	test.That(t, h.reportText(t), test.ShouldContainSubstring, "Number of detected object: 0\n")
}

func TestRunCancelled(t *testing.T) {
	logger := logging.NewTestLogger(t)
	h := newHarness(t, logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reads := 0
	source := endless()
	inner := source.ReadFunc
	source.ReadFunc = func(ctx context.Context) (image.Image, error) {
		reads++
		if reads == 3 {
			cancel()
		}
		return inner(ctx)
	}
	ctrl, err := pipeline.New(h.deps(source, engineReturning(personRow), logger))
	test.That(t, err, test.ShouldBeNil)

	test.That(t, ctrl.Run(ctx), test.ShouldBeNil)
	test.That(t, ctrl.State(), test.ShouldEqual, pipeline.Stopped)
	test.That(t, ctrl.Counters(), test.ShouldResemble, pipeline.Counters{Frames: 2, Detections: 2})
	test.That(t, h.reportText(t), test.ShouldContainSubstring, "Number of detected object: 2\n")
}

func TestRunReadRetries(t *testing.T) {
	t.Run("transient failures recover", func(t *testing.T) {
		logger := logging.NewTestLogger(t)
		h := newHarness(t, logger)
		static := camera.NewStaticSource("test", frames(1)...)
		failures := 0
		source := &inject.Source{
			Source: static,
			ReadFunc: func(ctx context.Context) (image.Image, error) {
				if failures < 2 {
					failures++
					return nil, camera.NewDeviceError("read", "test", errors.New("timeout"))
				}
				return static.Read(ctx)
			},
		}
		ctrl, err := pipeline.New(h.deps(source, engineReturning(personRow), logger))
		test.That(t, err, test.ShouldBeNil)

		err = ctrl.Run(context.Background())
		test.That(t, errors.Is(err, camera.ErrEndOfStream), test.ShouldBeTrue)
		test.That(t, ctrl.Counters().Frames, test.ShouldEqual, 1)
	})

	t.Run("persistent failure fails the session", func(t *testing.T) {
		logger := logging.NewTestLogger(t)
		h := newHarness(t, logger)
		reads := 0
		source := endless()
		source.ReadFunc = func(ctx context.Context) (image.Image, error) {
			reads++
			return nil, camera.NewDeviceError("read", "test", errors.New("unplugged"))
		}
		ctrl, err := pipeline.New(h.deps(source, engineReturning(), logger))
		test.That(t, err, test.ShouldBeNil)

		err = ctrl.Run(context.Background())
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "giving up after 3 read retries")
		var devErr *camera.DeviceError
		test.That(t, errors.As(err, &devErr), test.ShouldBeTrue)
		test.That(t, reads, test.ShouldEqual, 4)
		test.That(t, ctrl.State(), test.ShouldEqual, pipeline.Failed)
		test.That(t, h.reportText(t), test.ShouldContainSubstring, "Number of detected object: 0\n")
	})

	t.Run("backoff waits on the clock", func(t *testing.T) {
		logger := logging.NewTestLogger(t)
		h := newHarness(t, logger)
		static := camera.NewStaticSource("test", frames(1)...)
		failed := false
		source := &inject.Source{
			Source: static,
			ReadFunc: func(ctx context.Context) (image.Image, error) {
				if !failed {
					failed = true
					return nil, errors.New("timeout")
				}
				return static.Read(ctx)
			},
		}
		deps := h.deps(source, engineReturning(), logger)
		deps.Options.ReadRetryBackoff = time.Second
		ctrl, err := pipeline.New(deps)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, ctrl.Start(context.Background()), test.ShouldBeNil)

		done := make(chan error, 1)
		go func() {
			_, err := ctrl.Step(context.Background())
			done <- err
		}()
		for {
			select {
			case err := <-done:
				test.That(t, err, test.ShouldBeNil)
				test.That(t, ctrl.Counters().Frames, test.ShouldEqual, 1)
				test.That(t, ctrl.Stop(context.Background()), test.ShouldBeNil)
				return
			default:
				h.clock.Add(100 * time.Millisecond)
				time.Sleep(time.Millisecond)
			}
		}
	})
}

func TestRunSinkFailures(t *testing.T) {
	t.Run("consecutive failures escalate", func(t *testing.T) {
		logger := logging.NewTestLogger(t)
		h := newHarness(t, logger)
		deps := h.deps(endless(), engineReturning(personRow), logger)
		hist := &failingHistogram{failFor: func(int) bool { return true }}
		deps.Histogram = hist
		ctrl, err := pipeline.New(deps)
		test.That(t, err, test.ShouldBeNil)

		err = ctrl.Run(context.Background())
		var sinkErr *pipeline.SinkError
		test.That(t, errors.As(err, &sinkErr), test.ShouldBeTrue)
		test.That(t, sinkErr.Sink, test.ShouldEqual, pipeline.SinkHistogram)
		test.That(t, sinkErr.Failures, test.ShouldEqual, 5)
		test.That(t, hist.calls, test.ShouldEqual, 5)
		test.That(t, ctrl.State(), test.ShouldEqual, pipeline.Failed)
		test.That(t, h.reportText(t), test.ShouldContainSubstring, "Number of detected object: 5\n")
	})

	t.Run("a success resets the count", func(t *testing.T) {
		logger := logging.NewTestLogger(t)
		h := newHarness(t, logger)
		deps := h.deps(camera.NewStaticSource("test", frames(12)...), engineReturning(personRow), logger)
		deps.Histogram = &failingHistogram{failFor: func(call int) bool { return call%5 != 0 }}
		ctrl, err := pipeline.New(deps)
		test.That(t, err, test.ShouldBeNil)

		err = ctrl.Run(context.Background())
		test.That(t, errors.Is(err, camera.ErrEndOfStream), test.ShouldBeTrue)
		test.That(t, ctrl.Counters().Frames, test.ShouldEqual, 12)
	})

	t.Run("video writer creation is retried", func(t *testing.T) {
		logger := logging.NewTestLogger(t)
		h := newHarness(t, logger)
		deps := h.deps(camera.NewStaticSource("test", frames(3)...), engineReturning(), logger)
		attempts := 0
		deps.NewVideoWriter = func(size image.Point) (video.Writer, error) {
			attempts++
			if attempts == 1 {
				return nil, errors.New("codec unavailable")
			}
			return h.writer, nil
		}
		ctrl, err := pipeline.New(deps)
		test.That(t, err, test.ShouldBeNil)

		err = ctrl.Run(context.Background())
		test.That(t, errors.Is(err, camera.ErrEndOfStream), test.ShouldBeTrue)
		test.That(t, attempts, test.ShouldEqual, 2)
		test.That(t, h.writes, test.ShouldEqual, 2)
	})
}

func TestRunSkipsBadFrames(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	h := newHarness(t, logger)
	calls := 0
	engine := &inject.Engine{
		ForwardFunc: func(ctx context.Context, input *tensor.Dense) (*tensor.Dense, error) {
			calls++
			switch calls {
			case 1:
				return nil, errors.New("bad blob")
			case 2:
				return testutils.SSDOutput([7]float32{0, 99, 0.9, 0.1, 0.1, 0.5, 0.5}), nil
			default:
				return testutils.SSDOutput(personRow), nil
			}
		},
	}
	ctrl, err := pipeline.New(h.deps(camera.NewStaticSource("test", frames(3)...), engine, logger))
	test.That(t, err, test.ShouldBeNil)

	err = ctrl.Run(context.Background())
	test.That(t, errors.Is(err, camera.ErrEndOfStream), test.ShouldBeTrue)
	test.That(t, ctrl.Counters(), test.ShouldResemble, pipeline.Counters{Frames: 3, Detections: 1})
	test.That(t, h.writes, test.ShouldEqual, 3)
	test.That(t, logs.FilterMessage("skipping frame after inference failure").Len(), test.ShouldEqual, 1)
	test.That(t, logs.FilterMessage("skipping detection row").Len(), test.ShouldEqual, 1)
	test.That(t, h.reportText(t), test.ShouldContainSubstring, "02;person;0.9;[10 10 50 50]\n")
}

func TestRunWritesEveryFrame(t *testing.T) {
	logger := logging.NewTestLogger(t)
	h := newHarness(t, logger)
	calls := 0
	engine := &inject.Engine{
		ForwardFunc: func(ctx context.Context, input *tensor.Dense) (*tensor.Dense, error) {
			calls++
			if calls == 2 {
				return nil, errors.New("inference failed")
			}
			return testutils.SSDOutput(personRow), nil
		},
	}
	shown := 0
	h.display.ShowFunc = func(img *image.RGBA) error {
		shown++
		return nil
	}
	ctrl, err := pipeline.New(h.deps(camera.NewStaticSource("test", frames(3)...), engine, logger))
	test.That(t, err, test.ShouldBeNil)

	err = ctrl.Run(context.Background())
	test.That(t, errors.Is(err, camera.ErrEndOfStream), test.ShouldBeTrue)
	counters := ctrl.Counters()
	test.That(t, counters, test.ShouldResemble, pipeline.Counters{Frames: 3, Detections: 2})
	test.That(t, h.writes, test.ShouldEqual, int(counters.Frames))
	test.That(t, shown, test.ShouldEqual, int(counters.Frames))

	text := h.reportText(t)
	test.That(t, text, test.ShouldContainSubstring, "00;person;0.9;[10 10 50 50]\n")
	test.That(t, text, test.ShouldNotContainSubstring, "01;person")
	test.That(t, text, test.ShouldContainSubstring, "02;person;0.9;[10 10 50 50]\n")
}

func TestStartFailures(t *testing.T) {
	t.Run("no model", func(t *testing.T) {
		logger := logging.NewTestLogger(t)
		h := newHarness(t, logger)
		opened := false
		source := endless()
		source.OpenFunc = func(ctx context.Context) error {
			opened = true
			return nil
		}
		deps := h.deps(source, nil, logger)
		ctrl, err := pipeline.New(deps)
		test.That(t, err, test.ShouldBeNil)

		err = ctrl.Start(context.Background())
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "no model")
		test.That(t, opened, test.ShouldBeFalse)
		test.That(t, ctrl.State(), test.ShouldEqual, pipeline.Failed)
		test.That(t, ctrl.Stop(context.Background()), test.ShouldBeNil)
	})

	t.Run("source does not open", func(t *testing.T) {
		logger := logging.NewTestLogger(t)
		h := newHarness(t, logger)
		closed := false
		source := endless()
		source.OpenFunc = func(ctx context.Context) error {
			return camera.NewDeviceError("open", "webcam:0", errors.New("no such device"))
		}
		source.CloseFunc = func(ctx context.Context) error {
			closed = true
			return nil
		}
		ctrl, err := pipeline.New(h.deps(source, engineReturning(), logger))
		test.That(t, err, test.ShouldBeNil)

		err = ctrl.Run(context.Background())
		var devErr *camera.DeviceError
		test.That(t, errors.As(err, &devErr), test.ShouldBeTrue)
		test.That(t, closed, test.ShouldBeTrue)
		test.That(t, ctrl.State(), test.ShouldEqual, pipeline.Failed)
		_, err = os.Stat(h.report.Path())
		test.That(t, os.IsNotExist(err), test.ShouldBeTrue)
	})

	t.Run("report cannot be created", func(t *testing.T) {
		logger := logging.NewTestLogger(t)
		h := newHarness(t, logger)
		closed := false
		source := endless()
		source.CloseFunc = func(ctx context.Context) error {
			closed = true
			return nil
		}
		deps := h.deps(source, engineReturning(), logger)
		deps.Report = report.New(filepath.Join(h.dir, "missing", "annotation_report"), logger)
		ctrl, err := pipeline.New(deps)
		test.That(t, err, test.ShouldBeNil)

		err = ctrl.Start(context.Background())
		var sinkErr *pipeline.SinkError
		test.That(t, errors.As(err, &sinkErr), test.ShouldBeTrue)
		test.That(t, sinkErr.Sink, test.ShouldEqual, pipeline.SinkReport)
		test.That(t, closed, test.ShouldBeTrue)
		test.That(t, ctrl.State(), test.ShouldEqual, pipeline.Failed)
	})
}

func TestStopOnce(t *testing.T) {
	logger := logging.NewTestLogger(t)
	h := newHarness(t, logger)
	closes := 0
	source := endless()
	source.CloseFunc = func(ctx context.Context) error {
		closes++
		return nil
	}
	ctrl, err := pipeline.New(h.deps(source, engineReturning(personRow), logger))
	test.That(t, err, test.ShouldBeNil)

	_, err = ctrl.Step(context.Background())
	test.That(t, err, test.ShouldNotBeNil)

	test.That(t, ctrl.Start(context.Background()), test.ShouldBeNil)
	test.That(t, ctrl.State(), test.ShouldEqual, pipeline.Running)
	test.That(t, ctrl.Start(context.Background()), test.ShouldNotBeNil)

	quit, err := ctrl.Step(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, quit, test.ShouldBeFalse)

	test.That(t, ctrl.Stop(context.Background()), test.ShouldBeNil)
	test.That(t, ctrl.Stop(context.Background()), test.ShouldBeNil)
	test.That(t, closes, test.ShouldEqual, 1)
	test.That(t, ctrl.State(), test.ShouldEqual, pipeline.Stopped)

	text := h.reportText(t)
	test.That(t, strings.Count(text, "Number of detected object"), test.ShouldEqual, 1)
	test.That(t, text, test.ShouldContainSubstring, "00;person;0.9;[10 10 50 50]\n")

	_, err = ctrl.Step(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
}

func TestNew(t *testing.T) {
	logger := logging.NewTestLogger(t)
	h := newHarness(t, logger)
	full := h.deps(endless(), engineReturning(), logger)

	for _, tc := range []struct {
		name  string
		clear func(*pipeline.Deps)
	}{
		{"source", func(d *pipeline.Deps) { d.Source = nil }},
		{"detector", func(d *pipeline.Deps) { d.Detector = nil }},
		{"annotator", func(d *pipeline.Deps) { d.Annotator = nil }},
		{"report", func(d *pipeline.Deps) { d.Report = nil }},
		{"histogram", func(d *pipeline.Deps) { d.Histogram = nil }},
		{"logger", func(d *pipeline.Deps) { d.Logger = nil }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			deps := full
			tc.clear(&deps)
			_, err := pipeline.New(deps)
			test.That(t, err, test.ShouldNotBeNil)
			test.That(t, err.Error(), test.ShouldContainSubstring, tc.name)
		})
	}

	minimal := full
	minimal.Display = nil
	minimal.Clock = nil
	minimal.NewVideoWriter = nil
	minimal.Options = pipeline.Options{}
	ctrl, err := pipeline.New(minimal)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, ctrl.State().String(), test.ShouldEqual, "idle")
	test.That(t, pipeline.DefaultOptions().MaxConsecutiveSinkFailures, test.ShouldEqual, 5)
}

func TestSinkError(t *testing.T) {
	cause := errors.New("disk full")
	err := &pipeline.SinkError{Sink: pipeline.SinkVideo, Failures: 5, Err: cause}
	test.That(t, err.Error(), test.ShouldEqual, "video sink failed 5 consecutive times: disk full")
	test.That(t, errors.Is(err, cause), test.ShouldBeTrue)
}
