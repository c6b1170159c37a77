package video

import (
	"fmt"
	"image"
	"io"
	"os/exec"
	"strings"
	"sync"

	"github.com/pkg/errors"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	goutils "go.viam.com/utils"

	"github.com/rtdetect/rtdetect/logging"
)

// FFmpegBackend encodes through an ffmpeg subprocess fed raw frames over a pipe.
const FFmpegBackend = "ffmpeg"

func init() {
	RegisterBackend(FFmpegBackend, newFFmpegWriter)
}

var fourccToEncoder = map[string]ffmpeg.KwArgs{
	"XVID": {"vcodec": "mpeg4", "vtag": "xvid"},
	"MJPG": {"vcodec": "mjpeg"},
	"MP4V": {"vcodec": "mpeg4"},
	"H264": {"vcodec": "libx264"},
}

// ffmpegStream builds the encoder pipeline: raw RGBA on stdin, cfg.Codec on disk.
func ffmpegStream(cfg WriterConfig) *ffmpeg.Stream {
	outArgs := ffmpeg.KwArgs{"pix_fmt": "yuv420p"}
	encoder, ok := fourccToEncoder[strings.ToUpper(cfg.Codec)]
	if !ok {
		encoder = ffmpeg.KwArgs{"vcodec": strings.ToLower(cfg.Codec)}
	}
	for k, v := range encoder {
		outArgs[k] = v
	}
	return ffmpeg.Input("pipe:", ffmpeg.KwArgs{
		"format":    "rawvideo",
		"pix_fmt":   "rgba",
		"s":         fmt.Sprintf("%dx%d", cfg.Size.X, cfg.Size.Y),
		"framerate": cfg.FPS,
	}).Output(cfg.Path, outArgs).OverWriteOutput()
}

type ffmpegWriter struct {
	size   image.Point
	logger logging.Logger

	mu     sync.Mutex
	pipe   *io.PipeWriter
	done   chan error
	closed bool
}

func newFFmpegWriter(cfg WriterConfig, logger logging.Logger) (Writer, error) {
	// make sure ffmpeg is in the path before doing anything else
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, err
	}
	in, out := io.Pipe()
	w := &ffmpegWriter{size: cfg.Size, logger: logger, pipe: out, done: make(chan error, 1)}
	stream := ffmpegStream(cfg).WithInput(in)
	goutils.PanicCapturingGo(func() {
		err := stream.Run()
		// unblock any pending Write if the encoder died early
		in.CloseWithError(errors.Wrap(err, "ffmpeg exited"))
		w.done <- err
	})
	logger.Infow("ffmpeg video writer started", "path", cfg.Path, "codec", cfg.Codec, "size", cfg.Size)
	return w, nil
}

func (w *ffmpegWriter) Write(img *image.RGBA) error {
	if err := checkSize(img, w.size); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errors.New("video writer is closed")
	}
	rowBytes := w.size.X * 4
	if img.Stride == rowBytes {
		_, err := w.pipe.Write(img.Pix[:rowBytes*w.size.Y])
		return err
	}
	for y := 0; y < w.size.Y; y++ {
		start := y * img.Stride
		if _, err := w.pipe.Write(img.Pix[start : start+rowBytes]); err != nil {
			return err
		}
	}
	return nil
}

func (w *ffmpegWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()
	if err := w.pipe.Close(); err != nil {
		return err
	}
	return <-w.done
}
