// Package opencv provides the OpenCV video writer and preview window.
package opencv

import (
	"image"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"

	"github.com/rtdetect/rtdetect/data/video"
	"github.com/rtdetect/rtdetect/logging"
)

// Backend is the name this package registers with video.RegisterBackend.
const Backend = "opencv"

func init() {
	video.RegisterBackend(Backend, NewWriter)
}

type writer struct {
	mu     sync.Mutex
	vw     *gocv.VideoWriter
	size   image.Point
	closed bool
}

// NewWriter opens cfg.Path for writing with gocv.VideoWriter.
func NewWriter(cfg video.WriterConfig, logger logging.Logger) (video.Writer, error) {
	vw, err := gocv.VideoWriterFile(cfg.Path, cfg.Codec, cfg.FPS, cfg.Size.X, cfg.Size.Y, true)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open video writer %s", cfg.Path)
	}
	if !vw.IsOpened() {
		return nil, multierr.Combine(errors.Errorf("video writer %s did not open", cfg.Path), vw.Close())
	}
	logger.Infow("video writer opened", "path", cfg.Path, "codec", cfg.Codec, "fps", cfg.FPS, "size", cfg.Size)
	return &writer{vw: vw, size: cfg.Size}, nil
}

func (w *writer) Write(img *image.RGBA) error {
	if got := img.Bounds().Size(); got != w.size {
		return errors.Errorf("frame size %v does not match video size %v", got, w.size)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("video writer is closed")
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return err
	}
	return multierr.Combine(w.vw.Write(mat), mat.Close())
}

func (w *writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	return w.vw.Close()
}

// Window is a video.Display backed by a HighGUI window.
type Window struct {
	mu     sync.Mutex
	window *gocv.Window
}

// NewWindow opens a window with the given title.
func NewWindow(title string) *Window {
	return &Window{window: gocv.NewWindow(title)}
}

// Show implements video.Display.
func (w *Window) Show(img *image.RGBA) error {
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return err
	}
	defer func() {
		//nolint:errcheck
		mat.Close()
	}()
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.window == nil {
		return errors.New("window is closed")
	}
	w.window.IMShow(mat)
	return nil
}

// PollKey implements video.Display. It waits one millisecond.
func (w *Window) PollKey() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.window == nil {
		return video.NoKey
	}
	key := w.window.WaitKey(1)
	if key < 0 {
		return video.NoKey
	}
	return key & 0xFF
}

// Close implements video.Display.
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.window == nil {
		return nil
	}
	err := w.window.Close()
	w.window = nil
	return err
}
