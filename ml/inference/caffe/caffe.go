// Package caffe runs Caffe networks through the OpenCV dnn module.
package caffe

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gocv.io/x/gocv"
	"gorgonia.org/tensor"

	"github.com/rtdetect/rtdetect/logging"
	"github.com/rtdetect/rtdetect/ml/inference"
)

// ModelType is the model type this package registers.
const ModelType = "caffe"

func init() {
	inference.RegisterLoader(ModelType, Load)
}

// Attributes are the engine settings accepted under a model's "attributes".
type Attributes struct {
	// Backend is an OpenCV dnn backend name, e.g. "default", "opencv", "cuda".
	Backend string `json:"backend"`
	// Target is an OpenCV dnn target name, e.g. "cpu", "fp16", "cuda".
	Target string `json:"target"`
}

type engine struct {
	mu     sync.Mutex
	net    gocv.Net
	closed bool
}

// Load reads a prototxt/caffemodel pair.
func Load(cfg inference.ModelConfig, logger logging.Logger) (inference.Engine, error) {
	var attrs Attributes
	if err := cfg.Attributes.Decode(&attrs); err != nil {
		return nil, &inference.ModelLoadError{Path: cfg.WeightsPath, Err: errors.Wrap(err, "bad attributes")}
	}

	net := gocv.ReadNetFromCaffe(cfg.ConfigPath, cfg.WeightsPath)
	if net.Empty() {
		return nil, &inference.ModelLoadError{
			Path: cfg.WeightsPath,
			Err:  multierr.Combine(errors.New("opencv could not parse the network"), net.Close()),
		}
	}
	if attrs.Backend != "" {
		net.SetPreferableBackend(gocv.ParseNetBackend(attrs.Backend))
	}
	if attrs.Target != "" {
		net.SetPreferableTarget(gocv.ParseNetTarget(attrs.Target))
	}
	logger.Debugw("caffe network ready", "backend", attrs.Backend, "target", attrs.Target)
	return &engine{net: net}, nil
}

// Forward copies input into a blob, runs the network and copies the output back out.
func (e *engine) Forward(ctx context.Context, input *tensor.Dense) (*tensor.Dense, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, ok := input.Data().([]float32)
	if !ok {
		return nil, errors.Errorf("input must be float32, got %s", input.Dtype())
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, errors.New("network has been closed")
	}

	blob := gocv.NewMatWithSizes([]int(input.Shape()), gocv.MatTypeCV32F)
	defer func() {
		//nolint:errcheck
		blob.Close()
	}()
	blobData, err := blob.DataPtrFloat32()
	if err != nil {
		return nil, err
	}
	copy(blobData, data)

	e.net.SetInput(blob, "")
	out := e.net.Forward("")
	defer func() {
		//nolint:errcheck
		out.Close()
	}()
	if out.Empty() {
		return nil, errors.New("network produced no output")
	}
	outData, err := out.DataPtrFloat32()
	if err != nil {
		return nil, err
	}
	result := make([]float32, len(outData))
	copy(result, outData)
	return tensor.New(tensor.WithShape(out.Size()...), tensor.WithBacking(result)), nil
}

func (e *engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.net.Close()
}
