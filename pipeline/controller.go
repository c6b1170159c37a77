// Package pipeline drives a detection session: it reads frames, runs the detector, filters and
// annotates detections and feeds the report, histogram and video sinks.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/rtdetect/rtdetect/components/camera"
	"github.com/rtdetect/rtdetect/data/report"
	"github.com/rtdetect/rtdetect/data/video"
	"github.com/rtdetect/rtdetect/logging"
	"github.com/rtdetect/rtdetect/vision/objectdetection"
)

// State is the lifecycle state of a Controller.
type State int

const (
	// Idle is the state before Start.
	Idle State = iota
	// Running means frames are being processed.
	Running
	// Stopped means the session ended on request.
	Stopped
	// Failed means the session ended on an error.
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Sink names used in SinkError.
const (
	SinkReport    = "report"
	SinkHistogram = "histogram"
	SinkVideo     = "video"
)

// SinkError is returned when one output keeps failing.
type SinkError struct {
	Sink     string
	Failures int
	Err      error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("%s sink failed %d consecutive times: %v", e.Sink, e.Failures, e.Err)
}

// Unwrap returns the last failure.
func (e *SinkError) Unwrap() error {
	return e.Err
}

// Counters are the session totals.
type Counters struct {
	// Frames is the number of frames captured and processed.
	Frames int64
	// Detections is the number of detections that passed the filter.
	Detections int64
}

// A Detector produces raw detection rows for a frame.
type Detector interface {
	Loaded() bool
	Infer(ctx context.Context, img image.Image) ([]objectdetection.RawDetection, error)
}

// An Annotator draws a detection onto a frame.
type Annotator interface {
	Annotate(img *image.RGBA, d objectdetection.Detection) error
}

// A ReportSink records accepted detections and the session summary.
type ReportSink interface {
	Open() error
	Append(rec report.Record) error
	Finalize(detections int64, elapsed time.Duration, fps float64) error
	Close() error
}

// A HistogramSink saves the color distribution of a frame.
type HistogramSink interface {
	Snapshot(img image.Image, frameNumber int64) error
}

// VideoWriterFactory opens the output video once the frame size is known.
type VideoWriterFactory func(size image.Point) (video.Writer, error)

// Options tune the failure policy of a session.
type Options struct {
	// MaxConsecutiveSinkFailures is how many failures in a row any one sink may have before
	// the session fails.
	MaxConsecutiveSinkFailures int
	// MaxReadRetries is how many times a failed read is retried before the session fails.
	MaxReadRetries int
	// ReadRetryBackoff is the wait between read attempts.
	ReadRetryBackoff time.Duration
}

// DefaultOptions returns the default failure policy.
func DefaultOptions() Options {
	return Options{
		MaxConsecutiveSinkFailures: 5,
		MaxReadRetries:             3,
		ReadRetryBackoff:           100 * time.Millisecond,
	}
}

// Deps are the collaborators of a Controller. Display, Clock and NewVideoWriter are optional.
type Deps struct {
	Source         camera.Source
	Preprocessor   camera.Preprocessor
	Detector       Detector
	Filter         objectdetection.Filter
	Annotator      Annotator
	Report         ReportSink
	Histogram      HistogramSink
	NewVideoWriter VideoWriterFactory
	Display        video.Display
	Clock          clock.Clock
	Logger         logging.Logger
	Options        Options
}

// Controller runs one detection session. It is driven from a single goroutine; State, Counters
// and Err may be read from others.
type Controller struct {
	deps   Deps
	logger logging.Logger
	clock  clock.Clock
	fps    *FPS

	writer       video.Writer
	sinkFailures map[string]int
	latency      *latencies
	stopOnce     sync.Once
	started      bool

	mu       sync.Mutex
	state    State
	counters Counters
	err      error
}

// New validates deps and returns an idle controller.
func New(deps Deps) (*Controller, error) {
	switch {
	case deps.Source == nil:
		return nil, errors.New("pipeline requires a source")
	case deps.Detector == nil:
		return nil, errors.New("pipeline requires a detector")
	case deps.Annotator == nil:
		return nil, errors.New("pipeline requires an annotator")
	case deps.Report == nil:
		return nil, errors.New("pipeline requires a report sink")
	case deps.Histogram == nil:
		return nil, errors.New("pipeline requires a histogram sink")
	case deps.Logger == nil:
		return nil, errors.New("pipeline requires a logger")
	}
	if deps.Filter.Labels == nil {
		deps.Filter.Labels = objectdetection.DefaultLabels()
	}
	if deps.Display == nil {
		deps.Display = video.NewHeadlessDisplay()
	}
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Options == (Options{}) {
		deps.Options = DefaultOptions()
	}
	return &Controller{
		deps:         deps,
		logger:       deps.Logger,
		clock:        deps.Clock,
		fps:          NewFPS(deps.Clock),
		sinkFailures: map[string]int{},
		latency:      newLatencies(maxLatencySamples),
	}, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Counters returns the session totals so far.
func (c *Controller) Counters() Counters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters
}

// Err returns the error that failed the session, if any.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// FPS returns the session's frame rate counter.
func (c *Controller) FPS() *FPS {
	return c.fps
}

func (c *Controller) fail(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Failed
	if c.err == nil {
		c.err = err
	}
	return err
}

// Start opens the source and the report. On failure nothing stays open and the controller is
// Failed.
func (c *Controller) Start(ctx context.Context) error {
	if state := c.State(); state != Idle {
		return errors.Errorf("cannot start a %s pipeline", state)
	}
	if !c.deps.Detector.Loaded() {
		return c.fail(errors.New("detector has no model loaded"))
	}
	if err := c.deps.Source.Open(ctx); err != nil {
		return c.fail(multierr.Combine(err, c.deps.Source.Close(ctx)))
	}
	if err := c.deps.Report.Open(); err != nil {
		return c.fail(multierr.Combine(
			&SinkError{Sink: SinkReport, Failures: 1, Err: err},
			c.deps.Source.Close(ctx),
		))
	}

	c.mu.Lock()
	c.state = Running
	c.mu.Unlock()
	c.started = true
	c.fps.Start()
	c.logger.Info("pipeline started")
	return nil
}

// Run starts the session, processes frames until a quit request, a cancelled ctx or a terminal
// error, then stops. A quit or cancellation returns nil; end of stream fails the session with
// camera.ErrEndOfStream as the cause.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.Start(ctx); err != nil {
		return err
	}

	var loopErr error
	for {
		quit, err := c.Step(ctx)
		if err != nil {
			loopErr = err
			break
		}
		if quit {
			break
		}
	}

	stopErr := c.Stop(context.WithoutCancel(ctx))
	if loopErr != nil {
		return multierr.Combine(loopErr, stopErr)
	}
	return stopErr
}

// Step processes one frame. It reports quit when the user asked to stop or ctx is done, and
// returns an error when the session cannot continue; in that case the controller is Failed.
func (c *Controller) Step(ctx context.Context) (quit bool, err error) {
	if state := c.State(); state != Running {
		return false, errors.Errorf("cannot step a %s pipeline", state)
	}
	if ctx.Err() != nil {
		return true, nil
	}
	frameStart := c.clock.Now()

	raw, err := c.readFrame(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return true, nil
		}
		if camera.IsEndOfStream(err) {
			c.logger.Infow("source reached end of stream", "frames", c.Counters().Frames)
		}
		return false, c.fail(err)
	}
	c.latency.observe(stageRead, c.clock.Since(frameStart))

	frameNumber := c.Counters().Frames
	frame := camera.Frame{
		Image:      c.deps.Preprocessor.Process(raw),
		Seq:        frameNumber,
		CapturedAt: c.clock.Now(),
	}

	if err := c.detect(ctx, frame); err != nil {
		return false, c.fail(err)
	}
	if err := c.writeVideo(frame); err != nil {
		return false, c.fail(err)
	}
	if err := c.deps.Display.Show(frame.Image); err != nil {
		c.logger.Warnw("cannot show frame", "frame", frameNumber, "error", err)
	}

	c.mu.Lock()
	c.counters.Frames++
	c.mu.Unlock()
	c.latency.observe(stageFrame, c.clock.Since(frameStart))

	if c.deps.Display.PollKey() == video.QuitKey {
		c.logger.Info("quit key pressed")
		return true, nil
	}
	c.fps.Update()
	return false, nil
}

// readFrame reads from the source, retrying transient failures.
func (c *Controller) readFrame(ctx context.Context) (image.Image, error) {
	opts := c.deps.Options
	for attempt := 0; ; attempt++ {
		img, err := c.deps.Source.Read(ctx)
		if err == nil {
			return img, nil
		}
		if ctx.Err() != nil || camera.IsEndOfStream(err) {
			return nil, err
		}
		if attempt >= opts.MaxReadRetries {
			return nil, errors.Wrapf(err, "giving up after %d read retries", opts.MaxReadRetries)
		}
		c.logger.Warnw("frame read failed, retrying", "attempt", attempt+1, "error", err)
		if err := c.wait(ctx, opts.ReadRetryBackoff); err != nil {
			return nil, err
		}
	}
}

func (c *Controller) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := c.clock.Timer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// detect runs the detector on frame and hands every accepted detection to the sinks. Only a
// sink that keeps failing ends the session; a failed inference leaves the frame without
// detections and other per-frame problems are logged and skipped.
func (c *Controller) detect(ctx context.Context, frame camera.Frame) error {
	inferStart := c.clock.Now()
	rows, err := c.deps.Detector.Infer(ctx, frame.Image)
	c.latency.observe(stageInference, c.clock.Since(inferStart))
	if err != nil {
		c.logger.Warnw("skipping frame after inference failure", "frame", frame.Seq, "error", err)
		return nil
	}

	bounds := frame.Bounds()
	for _, row := range rows {
		det, ok, err := c.deps.Filter.Accept(row, frame.Seq, bounds)
		if err != nil {
			c.logger.Warnw("skipping detection row", "frame", frame.Seq, "class", row.ClassIndex, "error", err)
			continue
		}
		if !ok {
			continue
		}
		c.mu.Lock()
		c.counters.Detections++
		c.mu.Unlock()
		c.logger.Debugw("detection", "frame", frame.Seq, "label", det.Label,
			"confidence", det.Confidence(), "box", det.BoxString())

		if err := c.deps.Annotator.Annotate(frame.Image, det); err != nil {
			c.logger.Warnw("cannot annotate detection", "frame", frame.Seq, "label", det.Label, "error", err)
		}
		if err := c.sinkResult(SinkReport, c.deps.Report.Append(report.FromDetection(det))); err != nil {
			return err
		}
		if err := c.sinkResult(SinkHistogram, c.deps.Histogram.Snapshot(frame.Image, frame.Seq)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) writeVideo(frame camera.Frame) error {
	if c.deps.NewVideoWriter == nil {
		return nil
	}
	if c.writer == nil {
		writer, err := c.deps.NewVideoWriter(frame.Bounds().Size())
		if err != nil {
			return c.sinkResult(SinkVideo, err)
		}
		c.writer = writer
	}
	return c.sinkResult(SinkVideo, c.writer.Write(frame.Image))
}

// sinkResult tracks consecutive failures per sink and returns a *SinkError once a sink reaches
// the configured limit.
func (c *Controller) sinkResult(sink string, err error) error {
	if err == nil {
		c.sinkFailures[sink] = 0
		return nil
	}
	c.sinkFailures[sink]++
	failures := c.sinkFailures[sink]
	c.logger.Warnw("sink write failed", "sink", sink, "consecutive", failures, "error", err)
	if failures >= c.deps.Options.MaxConsecutiveSinkFailures {
		return &SinkError{Sink: sink, Failures: failures, Err: err}
	}
	return nil
}

// Stop releases every resource and writes the report summary. It only does work once, after a
// successful Start; later calls return nil.
func (c *Controller) Stop(ctx context.Context) error {
	if !c.started {
		return nil
	}
	var err error
	c.stopOnce.Do(func() {
		err = c.stop(ctx)
	})
	return err
}

func (c *Controller) stop(ctx context.Context) error {
	c.fps.Stop()
	counters := c.Counters()
	elapsed, rate := c.fps.Elapsed(), c.fps.FPS()

	var errs []error
	errs = append(errs, c.deps.Source.Close(ctx))
	if c.writer != nil {
		errs = append(errs, c.writer.Close())
	}
	errs = append(errs,
		c.deps.Display.Close(),
		c.deps.Report.Finalize(counters.Detections, elapsed, rate),
		c.deps.Report.Close(),
	)

	c.mu.Lock()
	if c.state == Running {
		c.state = Stopped
	}
	state := c.state
	c.mu.Unlock()

	c.logger.Infof("elapsed time: %.2f", elapsed.Seconds())
	c.logger.Infof("approx. FPS: %.2f", rate)
	c.logSummary(state, counters)
	return multierr.Combine(errs...)
}

func (c *Controller) logSummary(state State, counters Counters) {
	c.logger.Infow("session summary", "state", state.String(), "frames", counters.Frames,
		"detections", counters.Detections)
	if summary := c.latency.table(stageRead, stageInference, stageFrame); summary != "" {
		c.logger.Infof("stage latency:\n%s", summary)
	}
	if plot := c.latency.plot(stageFrame, 8); plot != "" {
		c.logger.Debugf("frame latency (ms):\n%s", plot)
	}
}

// LatencySummary returns the latency statistics of a stage: "read", "inference" or "frame".
func (c *Controller) LatencySummary(stage string) (StageSummary, bool) {
	return c.latency.summary(stage)
}
