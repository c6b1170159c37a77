// Package main runs a real-time object detection session from the command line.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"github.com/rtdetect/rtdetect/components/camera"
	"github.com/rtdetect/rtdetect/config"
	"github.com/rtdetect/rtdetect/data/video"
	"github.com/rtdetect/rtdetect/logging"
)

const (
	flagPrototxt     = "prototxt"
	flagModel        = "model"
	flagConfidence   = "confidence"
	flagSource       = "source"
	flagOutput       = "output"
	flagConfig       = "config"
	flagDebug        = "debug"
	flagNoDisplay    = "no-display"
	flagVideoBackend = "video-backend"
	flagLabels       = "labels"
	flagBins         = "bins"
)

var app = &cli.App{
	Name:  "rtdetect",
	Usage: "detect objects in a live video feed and record the results",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    flagPrototxt,
			Aliases: []string{"p"},
			Value:   config.DefaultPrototxtPath,
			Usage:   "path to the Caffe network definition",
		},
		&cli.StringFlag{
			Name:    flagModel,
			Aliases: []string{"m"},
			Value:   config.DefaultWeightsPath,
			Usage:   "path to the Caffe pre-trained weights",
		},
		&cli.Float64Flag{
			Name:    flagConfidence,
			Aliases: []string{"c"},
			Value:   0.2,
			Usage:   "minimum probability to keep a detection",
		},
		&cli.StringFlag{
			Name:    flagSource,
			Aliases: []string{"s"},
			Value:   config.DefaultSource,
			Usage:   "webcam, a device index, a video file or URL, or dir:`PATH` of images",
		},
		&cli.StringFlag{
			Name:    flagOutput,
			Aliases: []string{"o"},
			Value:   ".",
			Usage:   "directory that receives the results folder",
		},
		&cli.StringFlag{
			Name:  flagConfig,
			Usage: "load configuration from `FILE`; flags override its values",
		},
		&cli.StringFlag{
			Name:  flagLabels,
			Usage: "read class labels from `FILE`, one per line",
		},
		&cli.IntFlag{
			Name:  flagBins,
			Value: 16,
			Usage: "number of histogram bins per channel",
		},
		&cli.BoolFlag{
			Name:  flagNoDisplay,
			Usage: "do not open the preview window",
		},
		&cli.StringFlag{
			Name:  flagVideoBackend,
			Value: video.DefaultBackend,
			Usage: "video encoder: opencv or ffmpeg",
		},
		&cli.BoolFlag{
			Name:  flagDebug,
			Usage: "enable debug logging",
		},
	},
	Action: runAction,
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "rtdetect:", err)
		os.Exit(1)
	}
}

func runAction(c *cli.Context) error {
	logger := logging.NewLogger("rtdetect")
	config.InitLoggingSettings(logger, c.Bool(flagDebug))
	logging.ReplaceGlobal(logger)

	cfg, err := loadConfig(c, logger)
	if err != nil {
		return err
	}
	if err := config.UpdateFileConfigLevel(cfg.LogLevel); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = runSession(ctx, cfg, logger)
	if errors.Is(err, camera.ErrEndOfStream) {
		logger.Info("video source exhausted")
		return nil
	}
	return err
}

// loadConfig reads the config file, if any, and applies the flags the user set on top of it.
func loadConfig(c *cli.Context, logger logging.Logger) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String(flagConfig); path != "" {
		var err error
		if cfg, err = config.Read(path, logger); err != nil {
			return nil, err
		}
	}
	overrideFromFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overrideFromFlags copies explicitly set flags into cfg. Without a config file every flag
// applies, defaults included.
func overrideFromFlags(c *cli.Context, cfg *config.Config) {
	all := c.String(flagConfig) == ""
	set := func(name string) bool { return all || c.IsSet(name) }

	if set(flagPrototxt) {
		cfg.Model.ConfigPath = c.String(flagPrototxt)
	}
	if set(flagModel) {
		cfg.Model.WeightsPath = c.String(flagModel)
	}
	if set(flagConfidence) {
		cfg.Confidence = float32(c.Float64(flagConfidence))
	}
	if set(flagSource) {
		cfg.Source = c.String(flagSource)
	}
	if set(flagOutput) {
		cfg.Output = c.String(flagOutput)
	}
	if c.IsSet(flagLabels) {
		cfg.Labels = c.String(flagLabels)
	}
	if set(flagBins) {
		cfg.Histogram.Bins = c.Int(flagBins)
	}
	if set(flagVideoBackend) {
		cfg.Video.Backend = c.String(flagVideoBackend)
	}
	if c.Bool(flagNoDisplay) {
		cfg.Display = false
	}
}

// runSession is the body of main, separated so it can be driven with a context.
func runSession(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	layout := cfg.Layout()
	if err := layout.EnsureDirs(); err != nil {
		return err
	}
	fileAppender := logging.NewFileAppender(layout.LogPath(), 10)
	defer func() {
		if err := fileAppender.Close(); err != nil {
			fmt.Fprintln(os.Stderr, "cannot close log file:", err)
		}
	}()
	logger.AddAppender(fileAppender)
	logger = logger.WithFields("session", uuid.NewString())
	logger.Infow("starting session", "source", cfg.Selector().String(), "output", layout.ResultsDir(),
		"confidence", cfg.Confidence)

	sess, err := newSession(cfg, layout, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warnw("cannot release detector", "error", err)
		}
	}()
	return sess.controller.Run(ctx)
}
