package inject

import (
	"context"
	"image"

	"github.com/rtdetect/rtdetect/components/camera"
)

// Source is an injected frame source.
type Source struct {
	camera.Source
	OpenFunc  func(ctx context.Context) error
	ReadFunc  func(ctx context.Context) (image.Image, error)
	CloseFunc func(ctx context.Context) error
}

// Open calls the injected Open or the real version.
func (s *Source) Open(ctx context.Context) error {
	if s.OpenFunc == nil {
		return s.Source.Open(ctx)
	}
	return s.OpenFunc(ctx)
}

// Read calls the injected Read or the real version.
func (s *Source) Read(ctx context.Context) (image.Image, error) {
	if s.ReadFunc == nil {
		return s.Source.Read(ctx)
	}
	return s.ReadFunc(ctx)
}

// Close calls the injected Close or the real version.
func (s *Source) Close(ctx context.Context) error {
	if s.CloseFunc == nil {
		return s.Source.Close(ctx)
	}
	return s.CloseFunc(ctx)
}
