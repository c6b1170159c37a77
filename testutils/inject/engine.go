package inject

import (
	"context"

	"gorgonia.org/tensor"

	"github.com/rtdetect/rtdetect/ml/inference"
)

// Engine is an injected inference engine.
type Engine struct {
	inference.Engine
	ForwardFunc func(ctx context.Context, input *tensor.Dense) (*tensor.Dense, error)
	CloseFunc   func() error
}

// Forward calls the injected Forward or the real version.
func (e *Engine) Forward(ctx context.Context, input *tensor.Dense) (*tensor.Dense, error) {
	if e.ForwardFunc == nil {
		if e.Engine == nil {
			return tensor.New(tensor.WithShape(1, 1, 1, 7), tensor.WithBacking(make([]float32, 7))), nil
		}
		return e.Engine.Forward(ctx, input)
	}
	return e.ForwardFunc(ctx, input)
}

// Close calls the injected Close or the real version.
func (e *Engine) Close() error {
	if e.CloseFunc == nil {
		if e.Engine == nil {
			return nil
		}
		return e.Engine.Close()
	}
	return e.CloseFunc()
}
