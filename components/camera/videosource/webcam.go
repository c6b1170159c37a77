// Package videosource implements camera sources backed by OpenCV capture: local webcams, video
// files and network streams.
package videosource

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"

	"github.com/rtdetect/rtdetect/components/camera"
	"github.com/rtdetect/rtdetect/logging"
)

var (
	errClosed       = errors.New("camera has been closed")
	errNotOpen      = errors.New("camera is not open")
	errDisconnected = errors.New("camera returned no frame; it may be disconnected")
)

// Config describes one capture source.
type Config struct {
	Selector camera.Selector
	Warmup   time.Duration
}

// Webcam reads frames through gocv.VideoCapture. Finite inputs (files) end with
// camera.ErrEndOfStream; a device that returns an empty frame is reported as a transient error.
type Webcam struct {
	cfg    Config
	logger logging.Logger

	mu      sync.Mutex
	capture *gocv.VideoCapture
	mat     gocv.Mat
	closed  bool
}

// NewWebcam returns an unopened capture source.
func NewWebcam(cfg Config, logger logging.Logger) *Webcam {
	return &Webcam{cfg: cfg, logger: logger}
}

// Open implements camera.Source.
func (w *Webcam) Open(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return camera.NewDeviceError("open", w.cfg.Selector.String(), errClosed)
	}
	var (
		capture *gocv.VideoCapture
		err     error
	)
	if w.cfg.Selector.Kind == camera.SelectDevice {
		capture, err = gocv.OpenVideoCapture(w.cfg.Selector.DeviceID)
	} else {
		capture, err = gocv.OpenVideoCapture(w.cfg.Selector.Path)
	}
	if err != nil {
		w.mu.Unlock()
		return camera.NewDeviceError("open", w.cfg.Selector.String(), err)
	}
	if !capture.IsOpened() {
		w.mu.Unlock()
		return camera.NewDeviceError("open", w.cfg.Selector.String(),
			multierr.Combine(errors.New("capture did not open"), capture.Close()))
	}
	w.capture = capture
	w.mat = gocv.NewMat()
	w.mu.Unlock()

	w.logger.Infow("video stream opened", "source", w.cfg.Selector.String(), "warmup", w.cfg.Warmup)
	return camera.NewDeviceError("open", w.cfg.Selector.String(), camera.WarmUp(ctx, w.cfg.Warmup))
}

// Read implements camera.Source.
func (w *Webcam) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, camera.NewDeviceError("read", w.cfg.Selector.String(), errClosed)
	}
	if w.capture == nil {
		return nil, camera.NewDeviceError("read", w.cfg.Selector.String(), errNotOpen)
	}

	if ok := w.capture.Read(&w.mat); !ok || w.mat.Empty() {
		if w.cfg.Selector.Kind == camera.SelectStream {
			return nil, camera.NewDeviceError("read", w.cfg.Selector.String(), camera.ErrEndOfStream)
		}
		return nil, camera.NewDeviceError("read", w.cfg.Selector.String(), errDisconnected)
	}
	// ToImage copies the pixel data out of the mat, so the mat can be reused.
	img, err := w.mat.ToImage()
	if err != nil {
		return nil, camera.NewDeviceError("read", w.cfg.Selector.String(), err)
	}
	return img, nil
}

// Close implements camera.Source.
func (w *Webcam) Close(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.capture == nil {
		return nil
	}
	err := multierr.Combine(w.capture.Close(), w.mat.Close())
	w.capture = nil
	return err
}
