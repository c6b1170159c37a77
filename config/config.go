// Package config defines the configuration of a detection session and how it is read.
package config

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/rtdetect/rtdetect/components/camera"
	"github.com/rtdetect/rtdetect/data"
	"github.com/rtdetect/rtdetect/data/histogram"
	"github.com/rtdetect/rtdetect/data/video"
	"github.com/rtdetect/rtdetect/logging"
	"github.com/rtdetect/rtdetect/ml/inference"
	"github.com/rtdetect/rtdetect/pipeline"
	"github.com/rtdetect/rtdetect/vision/objectdetection"
)

// Defaults for the model files, matching the MobileNet-SSD release.
const (
	DefaultModelType    = "caffe"
	DefaultPrototxtPath = "MobileNetSSD_deploy.prototxt.txt"
	DefaultWeightsPath  = "MobileNetSSD_deploy.caffemodel"
	DefaultSource       = "webcam"
	DefaultPaletteSeed  = 42
)

// Config describes one detection session.
type Config struct {
	Model inference.ModelConfig `json:"model"`
	// Labels optionally names a file with one class label per line.
	Labels     string  `json:"labels,omitempty"`
	Confidence float32 `json:"confidence"`

	Source       string        `json:"source"`
	Warmup       time.Duration `json:"warmup"`
	WorkingWidth int           `json:"working_width"`
	BlurSigma    float64       `json:"blur_sigma"`

	Output    string          `json:"output"`
	Histogram HistogramConfig `json:"histogram"`
	Video     VideoConfig     `json:"video"`
	Display   bool            `json:"display"`

	PaletteSeed int64         `json:"palette_seed"`
	Failures    FailureConfig `json:"failures"`
	LogLevel    string        `json:"log_level,omitempty"`
}

// HistogramConfig configures the color histogram snapshots.
type HistogramConfig struct {
	Bins        int `json:"bins"`
	ResizeWidth int `json:"resize_width"`
}

// VideoConfig configures the annotated output video.
type VideoConfig struct {
	Backend string  `json:"backend"`
	Codec   string  `json:"codec"`
	FPS     float64 `json:"fps"`
}

// FailureConfig configures when a session gives up.
type FailureConfig struct {
	MaxSinkFailures  int           `json:"max_sink_failures"`
	MaxReadRetries   int           `json:"max_read_retries"`
	ReadRetryBackoff time.Duration `json:"read_retry_backoff"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	opts := pipeline.DefaultOptions()
	return &Config{
		Model: inference.ModelConfig{
			Type:        DefaultModelType,
			ConfigPath:  DefaultPrototxtPath,
			WeightsPath: DefaultWeightsPath,
		},
		Confidence:   objectdetection.DefaultThreshold,
		Source:       DefaultSource,
		Warmup:       camera.DefaultWarmup,
		WorkingWidth: camera.DefaultWorkingWidth,
		BlurSigma:    camera.DefaultBlurSigma,
		Output:       ".",
		Histogram:    HistogramConfig{Bins: histogram.DefaultBins},
		Video: VideoConfig{
			Backend: video.DefaultBackend,
			Codec:   video.DefaultCodec,
			FPS:     video.DefaultFPS,
		},
		Display:     true,
		PaletteSeed: DefaultPaletteSeed,
		Failures: FailureConfig{
			MaxSinkFailures:  opts.MaxConsecutiveSinkFailures,
			MaxReadRetries:   opts.MaxReadRetries,
			ReadRetryBackoff: opts.ReadRetryBackoff,
		},
	}
}

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config field %q: %v", e.Field, e.Err)
}

// Unwrap returns the underlying problem.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

func newConfigError(field, format string, args ...interface{}) error {
	return &ConfigError{Field: field, Err: errors.Errorf(format, args...)}
}

func requiredError(path, field string) error {
	full := field
	if path != "" {
		full = path + "." + field
	}
	return &ConfigError{Field: full, Err: goutils.NewConfigValidationFieldRequiredError(path, field)}
}

// Validate checks every field and returns a *ConfigError for the first bad one.
func (c *Config) Validate() error {
	if err := c.validateModel(); err != nil {
		return err
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return newConfigError("confidence", "must be within [0, 1], got %v", c.Confidence)
	}
	if c.Source == "" {
		return requiredError("", "source")
	}
	if c.Warmup < 0 {
		return newConfigError("warmup", "must not be negative, got %v", c.Warmup)
	}
	if c.WorkingWidth < 0 {
		return newConfigError("working_width", "must not be negative, got %d", c.WorkingWidth)
	}
	if c.BlurSigma < 0 {
		return newConfigError("blur_sigma", "must not be negative, got %v", c.BlurSigma)
	}
	if c.Output == "" {
		return requiredError("", "output")
	}
	if c.Histogram.Bins < 1 || c.Histogram.Bins > histogram.MaxBins {
		return newConfigError("histogram.bins", "must be within [1, %d], got %d", histogram.MaxBins, c.Histogram.Bins)
	}
	if c.Histogram.ResizeWidth < 0 {
		return newConfigError("histogram.resize_width", "must not be negative, got %d", c.Histogram.ResizeWidth)
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if c.Failures.MaxSinkFailures < 1 {
		return newConfigError("failures.max_sink_failures", "must be at least 1, got %d", c.Failures.MaxSinkFailures)
	}
	if c.Failures.MaxReadRetries < 0 {
		return newConfigError("failures.max_read_retries", "must not be negative, got %d", c.Failures.MaxReadRetries)
	}
	if c.Failures.ReadRetryBackoff < 0 {
		return newConfigError("failures.read_retry_backoff", "must not be negative, got %v", c.Failures.ReadRetryBackoff)
	}
	if c.LogLevel != "" {
		if _, err := logging.LevelFromString(c.LogLevel); err != nil {
			return &ConfigError{Field: "log_level", Err: err}
		}
	}
	return nil
}

func (c *Config) validateModel() error {
	if c.Model.Type == "" {
		return requiredError("model", "type")
	}
	if c.Model.ConfigPath == "" {
		return requiredError("model", "prototxt")
	}
	if c.Model.WeightsPath == "" {
		return requiredError("model", "model")
	}
	return nil
}

func (c *Config) validateVideo() error {
	switch c.Video.Backend {
	case video.DefaultBackend, video.FFmpegBackend:
	default:
		return newConfigError("video.backend", "unknown backend %q, want %q or %q",
			c.Video.Backend, video.DefaultBackend, video.FFmpegBackend)
	}
	if len(c.Video.Codec) != 4 {
		return newConfigError("video.codec", "must be a four character code, got %q", c.Video.Codec)
	}
	if c.Video.FPS <= 0 {
		return newConfigError("video.fps", "must be positive, got %v", c.Video.FPS)
	}
	return nil
}

// Selector parses the source selector.
func (c *Config) Selector() camera.Selector {
	return camera.ParseSelector(c.Source)
}

// Layout returns where the session artifacts go.
func (c *Config) Layout() data.Layout {
	return data.NewLayout(c.Output)
}

// Preprocessor returns the frame preprocessing settings.
func (c *Config) Preprocessor() camera.Preprocessor {
	return camera.Preprocessor{Width: c.WorkingWidth, BlurSigma: c.BlurSigma}
}

// PipelineOptions returns the failure policy of the session.
func (c *Config) PipelineOptions() pipeline.Options {
	return pipeline.Options{
		MaxConsecutiveSinkFailures: c.Failures.MaxSinkFailures,
		MaxReadRetries:             c.Failures.MaxReadRetries,
		ReadRetryBackoff:           c.Failures.ReadRetryBackoff,
	}
}

// LoadLabels returns the configured label table, or the built-in one.
func (c *Config) LoadLabels() (objectdetection.Labels, error) {
	if c.Labels == "" {
		return objectdetection.DefaultLabels(), nil
	}
	labels, err := objectdetection.LoadLabels(c.Labels)
	if err != nil {
		return nil, &ConfigError{Field: "labels", Err: err}
	}
	return labels, nil
}
