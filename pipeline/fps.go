package pipeline

import (
	"time"

	"github.com/benbjohnson/clock"
)

// FPS measures the frame rate of a session: Start and Stop bracket the run and Update is called
// once per completed frame.
type FPS struct {
	clock  clock.Clock
	start  time.Time
	end    time.Time
	frames int64
}

// NewFPS returns a counter reading time from clk.
func NewFPS(clk clock.Clock) *FPS {
	return &FPS{clock: clk}
}

// Start marks the beginning of the measured interval.
func (f *FPS) Start() {
	f.start = f.clock.Now()
	f.end = time.Time{}
	f.frames = 0
}

// Update counts one frame.
func (f *FPS) Update() {
	f.frames++
}

// Stop marks the end of the measured interval. Later calls have no effect.
func (f *FPS) Stop() {
	if f.end.IsZero() {
		f.end = f.clock.Now()
	}
}

// Frames returns the number of counted frames.
func (f *FPS) Frames() int64 {
	return f.frames
}

// Elapsed returns the time between Start and Stop, or until now while running.
func (f *FPS) Elapsed() time.Duration {
	if f.start.IsZero() {
		return 0
	}
	end := f.end
	if end.IsZero() {
		end = f.clock.Now()
	}
	return end.Sub(f.start)
}

// FPS returns counted frames per elapsed second, or zero before any time has passed.
func (f *FPS) FPS() float64 {
	elapsed := f.Elapsed().Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(f.frames) / elapsed
}
