// Package inference runs a detection network over frames: it converts images into input blobs,
// hands them to a pluggable Engine and decodes the SSD style output rows.
package inference

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"

	"github.com/rtdetect/rtdetect/logging"
	"github.com/rtdetect/rtdetect/utils"
)

// An Engine evaluates a network on one input tensor.
type Engine interface {
	Forward(ctx context.Context, input *tensor.Dense) (*tensor.Dense, error)
	Close() error
}

// ModelConfig names the artifacts of a model and the engine that runs it.
type ModelConfig struct {
	Type        string             `json:"type"`
	ConfigPath  string             `json:"prototxt"`
	WeightsPath string             `json:"model"`
	Attributes  utils.AttributeMap `json:"attributes,omitempty"`
}

// LoaderFunc builds an Engine from a ModelConfig whose artifacts are known to exist.
type LoaderFunc func(cfg ModelConfig, logger logging.Logger) (Engine, error)

var (
	loadersMu sync.RWMutex
	loaders   = map[string]LoaderFunc{}
)

// RegisterLoader makes a model type available to LoadEngine. It panics on a duplicate type.
func RegisterLoader(modelType string, loader LoaderFunc) {
	loadersMu.Lock()
	defer loadersMu.Unlock()
	if _, ok := loaders[modelType]; ok {
		panic(fmt.Sprintf("model type %q already registered", modelType))
	}
	loaders[modelType] = loader
}

// RegisteredTypes lists the model types that can be loaded.
func RegisteredTypes() []string {
	loadersMu.RLock()
	defer loadersMu.RUnlock()
	types := make([]string, 0, len(loaders))
	for t := range loaders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// LoadEngine checks that the model's artifacts exist and builds its engine. Every failure is
// returned as a *ModelLoadError.
func LoadEngine(cfg ModelConfig, logger logging.Logger) (Engine, error) {
	loadersMu.RLock()
	loader, ok := loaders[cfg.Type]
	loadersMu.RUnlock()
	if !ok {
		return nil, &ModelLoadError{Path: cfg.WeightsPath, Err: errors.Errorf("unknown model type %q (have %v)", cfg.Type, RegisteredTypes())}
	}
	for _, path := range []string{cfg.ConfigPath, cfg.WeightsPath} {
		if err := checkArtifact(path); err != nil {
			return nil, err
		}
	}
	engine, err := loader(cfg, logger)
	if err != nil {
		var loadErr *ModelLoadError
		if errors.As(err, &loadErr) {
			return nil, err
		}
		return nil, &ModelLoadError{Path: cfg.WeightsPath, Err: err}
	}
	logger.Infow("model loaded", "type", cfg.Type, "config", cfg.ConfigPath, "weights", cfg.WeightsPath)
	return engine, nil
}

func checkArtifact(path string) error {
	if path == "" {
		return &ModelLoadError{Path: path, Err: errors.New("no path given")}
	}
	info, err := os.Stat(path)
	if err != nil {
		return &ModelLoadError{Path: path, Err: err}
	}
	if info.IsDir() {
		return &ModelLoadError{Path: path, Err: errors.New("is a directory")}
	}
	if info.Size() == 0 {
		return &ModelLoadError{Path: path, Err: errors.New("file is empty")}
	}
	return nil
}

// ModelLoadError means a model artifact is missing or could not be parsed.
type ModelLoadError struct {
	Path string
	Err  error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("cannot load model %q: %v", e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ModelLoadError) Unwrap() error {
	return e.Err
}

// InferenceError is a failure while running the network on one frame.
type InferenceError struct {
	Err error
}

func (e *InferenceError) Error() string {
	return "inference failed: " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *InferenceError) Unwrap() error {
	return e.Err
}
