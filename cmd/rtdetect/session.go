package main

import (
	"image"

	"go.uber.org/multierr"

	"github.com/rtdetect/rtdetect/components/camera"
	"github.com/rtdetect/rtdetect/components/camera/videosource"
	"github.com/rtdetect/rtdetect/config"
	"github.com/rtdetect/rtdetect/data"
	"github.com/rtdetect/rtdetect/data/histogram"
	"github.com/rtdetect/rtdetect/data/report"
	"github.com/rtdetect/rtdetect/data/video"
	"github.com/rtdetect/rtdetect/data/video/opencv"
	"github.com/rtdetect/rtdetect/logging"
	"github.com/rtdetect/rtdetect/ml/inference"
	// register the caffe engine.
	_ "github.com/rtdetect/rtdetect/ml/inference/caffe"
	"github.com/rtdetect/rtdetect/pipeline"
	"github.com/rtdetect/rtdetect/vision/objectdetection"
)

type session struct {
	detector   *inference.Detector
	controller *pipeline.Controller
}

// newSession loads the model and assembles the pipeline described by cfg.
func newSession(cfg *config.Config, layout data.Layout, logger logging.Logger) (*session, error) {
	labels, err := cfg.LoadLabels()
	if err != nil {
		return nil, err
	}
	detectorLogger := logger.Sublogger("detector")
	engine, err := inference.LoadEngine(cfg.Model, detectorLogger)
	if err != nil {
		return nil, err
	}
	detector := inference.NewDetector(engine, inference.DefaultBlobParams(), detectorLogger)

	source, err := newSource(cfg, logger.Sublogger("camera"))
	if err != nil {
		return nil, multierr.Combine(err, detector.Close())
	}

	controller, err := pipeline.New(pipeline.Deps{
		Source:       source,
		Preprocessor: cfg.Preprocessor(),
		Detector:     detector,
		Filter:       objectdetection.Filter{Threshold: cfg.Confidence, Labels: labels},
		Annotator:    objectdetection.NewAnnotator(objectdetection.NewPalette(cfg.PaletteSeed, len(labels))),
		Report:       report.New(layout.ReportPath(), logger.Sublogger("report")),
		Histogram: histogram.NewSink(layout.HistogramsDir(), cfg.Histogram.Bins, cfg.Histogram.ResizeWidth,
			logger.Sublogger("histogram")),
		NewVideoWriter: videoWriterFactory(cfg, layout, logger.Sublogger("video")),
		Display:        newDisplay(cfg),
		Logger:         logger.Sublogger("pipeline"),
		Options:        cfg.PipelineOptions(),
	})
	if err != nil {
		return nil, multierr.Combine(err, detector.Close())
	}
	return &session{detector: detector, controller: controller}, nil
}

// Close releases the model.
func (s *session) Close() error {
	return s.detector.Close()
}

func newSource(cfg *config.Config, logger logging.Logger) (camera.Source, error) {
	selector := cfg.Selector()
	if selector.Kind == camera.SelectDirectory {
		source, err := camera.NewDirSource(selector.Path)
		if err != nil {
			return nil, err
		}
		return source, nil
	}
	return videosource.NewWebcam(videosource.Config{Selector: selector, Warmup: cfg.Warmup}, logger), nil
}

func newDisplay(cfg *config.Config) video.Display {
	if !cfg.Display {
		return video.NewHeadlessDisplay()
	}
	return opencv.NewWindow(video.WindowTitle)
}

func videoWriterFactory(cfg *config.Config, layout data.Layout, logger logging.Logger) pipeline.VideoWriterFactory {
	return func(size image.Point) (video.Writer, error) {
		return video.NewWriter(cfg.Video.Backend, video.WriterConfig{
			Path:  layout.VideoPath(),
			Codec: cfg.Video.Codec,
			FPS:   cfg.Video.FPS,
			Size:  size,
		}, logger)
	}
}
