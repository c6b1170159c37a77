// Package video defines the annotated video output and the live preview window.
package video

import (
	"image"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/rtdetect/rtdetect/logging"
)

const (
	// DefaultFPS is the frame rate written into output files.
	DefaultFPS = 20
	// DefaultCodec is the FourCC of the output video.
	DefaultCodec = "XVID"
	// DefaultBackend names the writer used when none is configured.
	DefaultBackend = "opencv"
	// WindowTitle is the title of the preview window.
	WindowTitle = "Recognized Objects"
	// QuitKey ends the session when pressed in the preview window.
	QuitKey = 'q'
	// NoKey is returned by PollKey when nothing was pressed.
	NoKey = -1
)

// A Writer appends frames to a video file. Every frame must have the size the writer was
// created with.
type Writer interface {
	Write(img *image.RGBA) error
	Close() error
}

// A Display previews frames and reports key presses.
type Display interface {
	Show(img *image.RGBA) error
	// PollKey waits briefly for a key press and returns its code, or NoKey.
	PollKey() int
	Close() error
}

// WriterConfig describes an output file.
type WriterConfig struct {
	Path  string
	Codec string
	FPS   float64
	Size  image.Point
}

// Validate checks that a writer can be created from the config.
func (cfg WriterConfig) Validate() error {
	if cfg.Path == "" {
		return errors.New("video path is required")
	}
	if cfg.Size.X <= 0 || cfg.Size.Y <= 0 {
		return errors.Errorf("invalid frame size %v", cfg.Size)
	}
	if cfg.FPS <= 0 {
		return errors.Errorf("invalid frame rate %v", cfg.FPS)
	}
	if len(cfg.Codec) != 4 {
		return errors.Errorf("codec must be a FourCC, got %q", cfg.Codec)
	}
	return nil
}

// WriterConstructor opens a writer for a validated config.
type WriterConstructor func(cfg WriterConfig, logger logging.Logger) (Writer, error)

var (
	backendsMu sync.RWMutex
	backends   = map[string]WriterConstructor{}
)

// RegisterBackend makes a writer backend selectable by name.
func RegisterBackend(name string, constructor WriterConstructor) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	if _, old := backends[name]; old {
		panic(errors.Errorf("trying to register two video backends named %q", name))
	}
	backends[name] = constructor
}

// Backends lists the registered backend names.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewWriter opens a writer with the named backend.
func NewWriter(backend string, cfg WriterConfig, logger logging.Logger) (Writer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	backendsMu.RLock()
	constructor, ok := backends[backend]
	backendsMu.RUnlock()
	if !ok {
		return nil, errors.Errorf("unknown video backend %q (have %v)", backend, Backends())
	}
	return constructor(cfg, logger)
}

// NewHeadlessDisplay returns a Display that shows nothing and never reports a key.
func NewHeadlessDisplay() Display {
	return headless{}
}

type headless struct{}

func (headless) Show(*image.RGBA) error { return nil }
func (headless) PollKey() int           { return NoKey }
func (headless) Close() error           { return nil }

func checkSize(img *image.RGBA, size image.Point) error {
	if got := img.Bounds().Size(); got != size {
		return errors.Errorf("frame size %v does not match video size %v", got, size)
	}
	return nil
}
