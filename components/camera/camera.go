// Package camera defines the frame sources that feed the detection pipeline.
package camera

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"
)

// ErrEndOfStream is returned by Read once a finite source has no more frames. It is permanent:
// every later Read returns it too.
var ErrEndOfStream = errors.New("end of stream")

// DefaultWarmup is how long a live device is given to settle after opening.
const DefaultWarmup = 2 * time.Second

// A Source produces frames from a camera, a video file or a stream.
type Source interface {
	// Open acquires the device. It blocks for the source's warm-up period.
	Open(ctx context.Context) error
	// Read returns the next frame. ErrEndOfStream (possibly wrapped) means the source is
	// exhausted; any other error is treated as a transient glitch.
	Read(ctx context.Context) (image.Image, error)
	Close(ctx context.Context) error
}

// Frame is a single captured and preprocessed image.
type Frame struct {
	Image      *image.RGBA
	Seq        int64
	CapturedAt time.Time
}

// Bounds returns the frame's pixel bounds.
func (f Frame) Bounds() image.Rectangle {
	return f.Image.Bounds()
}

// DeviceError is a failure to open or read a source.
type DeviceError struct {
	Op     string
	Source string
	Err    error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("camera %s %q: %v", e.Op, e.Source, e.Err)
}

// Unwrap returns the underlying cause.
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// NewDeviceError wraps err for the named source and operation. A nil err stays nil.
func NewDeviceError(op, source string, err error) error {
	if err == nil {
		return nil
	}
	return &DeviceError{Op: op, Source: source, Err: err}
}

// IsEndOfStream reports whether err means the source is exhausted.
func IsEndOfStream(err error) bool {
	return errors.Is(err, ErrEndOfStream)
}

// WarmUp blocks for d or until ctx is done, whichever is first.
func WarmUp(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if !goutils.SelectContextOrWait(ctx, d) {
		return ctx.Err()
	}
	return nil
}
