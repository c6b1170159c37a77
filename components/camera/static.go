package camera

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

var errClosed = errors.New("source has been closed")

var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".gif":  true,
	".tif":  true,
	".tiff": true,
}

// StaticSource replays a fixed list of images and then reports ErrEndOfStream.
type StaticSource struct {
	name   string
	warmup time.Duration

	mu     sync.Mutex
	images []image.Image
	next   int
	opened bool
	closed bool
}

// NewStaticSource returns a source that yields images in order.
func NewStaticSource(name string, images ...image.Image) *StaticSource {
	return &StaticSource{name: name, images: images}
}

// NewDirSource loads every image file in dir, ordered by file name.
func NewDirSource(dir string) (*StaticSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, NewDeviceError("open", dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	images := make([]image.Image, 0, len(names))
	for _, name := range names {
		img, err := imaging.Open(filepath.Join(dir, name))
		if err != nil {
			return nil, NewDeviceError("open", dir, errors.Wrapf(err, "cannot decode %s", name))
		}
		images = append(images, img)
	}
	return NewStaticSource(dir, images...), nil
}

// SetWarmup sets the delay Open waits before returning.
func (s *StaticSource) SetWarmup(d time.Duration) {
	s.warmup = d
}

// Open implements Source.
func (s *StaticSource) Open(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return NewDeviceError("open", s.name, errClosed)
	}
	s.opened = true
	s.mu.Unlock()
	return NewDeviceError("open", s.name, WarmUp(ctx, s.warmup))
}

// Read implements Source.
func (s *StaticSource) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || !s.opened {
		return nil, NewDeviceError("read", s.name, errClosed)
	}
	if s.next >= len(s.images) {
		return nil, NewDeviceError("read", s.name, ErrEndOfStream)
	}
	img := s.images[s.next]
	s.next++
	return img, nil
}

// Close implements Source.
func (s *StaticSource) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
