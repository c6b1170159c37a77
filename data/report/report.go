// Package report writes the per-session detection report: a fixed header, one line per
// accepted detection and a three line summary.
package report

import (
	"fmt"
	"image"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/rtdetect/rtdetect/logging"
	"github.com/rtdetect/rtdetect/vision/objectdetection"
)

// Header is written once at the top of every report.
const Header = "Report_format: \nframe_number;object_type;detection_confidence;region_of_interest;coordinates \n \n"

var (
	// ErrFinalized is returned by Finalize when the summary was already written.
	ErrFinalized = errors.New("report already finalized")
	errNotOpen   = errors.New("report is not open")
)

// Record is one accepted detection.
type Record struct {
	FrameNumber int64
	Label       string
	Confidence  float32
	Box         image.Rectangle
}

// FromDetection converts an accepted detection into a report record.
func FromDetection(d objectdetection.Detection) Record {
	return Record{FrameNumber: d.FrameNumber, Label: d.Label, Confidence: d.Confidence(), Box: d.Box}
}

// String formats the record as a report line without its newline, e.g.
// "00;person;0.9;[10 10 50 50]".
func (r Record) String() string {
	return fmt.Sprintf("%02d;%s;%s;[%d %d %d %d]",
		r.FrameNumber, r.Label, strconv.FormatFloat(float64(r.Confidence), 'f', -1, 32),
		r.Box.Min.X, r.Box.Min.Y, r.Box.Max.X, r.Box.Max.Y)
}

// Summary formats the closing lines of a report.
func Summary(detections int64, elapsed time.Duration, fps float64) string {
	return fmt.Sprintf("Number of detected object: %d\nElapsed time: %.2f\nApproximate FPS: %.2f\n",
		detections, elapsed.Seconds(), fps)
}

// Report owns the report file for one session. Every write reaches the disk before the call
// returns.
type Report struct {
	path   string
	logger logging.Logger

	mu        sync.Mutex
	file      *os.File
	finalized bool
	records   int64
}

// New returns a report that will be written to path.
func New(path string, logger logging.Logger) *Report {
	return &Report{path: path, logger: logger}
}

// Path returns the report file location.
func (r *Report) Path() string {
	return r.path
}

// Open creates or truncates the file and writes the header.
func (r *Report) Open() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file != nil {
		return errors.Errorf("report %s is already open", r.path)
	}
	//nolint:gosec
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "cannot create report")
	}
	r.file = f
	r.finalized = false
	r.records = 0
	if err := r.writeLocked(Header); err != nil {
		return multierr.Combine(err, r.closeLocked())
	}
	r.logger.Debugw("report opened", "path", r.path)
	return nil
}

// Append writes one record line.
func (r *Report) Append(rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return ErrFinalized
	}
	if err := r.writeLocked(rec.String() + "\n"); err != nil {
		return err
	}
	r.records++
	return nil
}

// Records returns how many records were appended since Open.
func (r *Report) Records() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records
}

// Finalize appends the summary. It may only succeed once per session.
func (r *Report) Finalize(detections int64, elapsed time.Duration, fps float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.finalized {
		return ErrFinalized
	}
	if err := r.writeLocked(Summary(detections, elapsed, fps)); err != nil {
		return err
	}
	r.finalized = true
	return nil
}

// Close releases the file. It is safe to call more than once and after failed writes.
func (r *Report) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeLocked()
}

func (r *Report) writeLocked(s string) error {
	if r.file == nil {
		return errNotOpen
	}
	if _, err := r.file.WriteString(s); err != nil {
		return errors.Wrap(err, "cannot write report")
	}
	return errors.Wrap(r.file.Sync(), "cannot sync report")
}

func (r *Report) closeLocked() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
