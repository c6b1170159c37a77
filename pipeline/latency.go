package pipeline

import (
	"bytes"
	"fmt"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/montanaflynn/stats"
)

const (
	stageRead      = "read"
	stageInference = "inference"
	stageFrame     = "frame"
)

// maxLatencySamples bounds how many recent samples each stage keeps.
const maxLatencySamples = 4096

// latencies collects the most recent per-stage durations, in milliseconds, for the end of
// session summary.
type latencies struct {
	limit  int
	stages map[string]*sampleRing
}

func newLatencies(limit int) *latencies {
	return &latencies{limit: limit, stages: map[string]*sampleRing{}}
}

// sampleRing overwrites its oldest sample once full.
type sampleRing struct {
	values []float64
	next   int
}

func (l *latencies) observe(stage string, d time.Duration) {
	r, ok := l.stages[stage]
	if !ok {
		r = &sampleRing{values: make([]float64, 0, l.limit)}
		l.stages[stage] = r
	}
	v := float64(d) / float64(time.Millisecond)
	if len(r.values) < l.limit {
		r.values = append(r.values, v)
		return
	}
	r.values[r.next] = v
	r.next = (r.next + 1) % l.limit
}

func (l *latencies) samples(stage string) []float64 {
	if r, ok := l.stages[stage]; ok {
		return r.values
	}
	return nil
}

// StageSummary describes the latency of one pipeline stage over a session.
type StageSummary struct {
	Count int
	Mean  float64
	P95   float64
	Max   float64
}

func (l *latencies) summary(stage string) (StageSummary, bool) {
	samples := stats.Float64Data(l.samples(stage))
	if len(samples) == 0 {
		return StageSummary{}, false
	}
	//nolint:errcheck
	mean, _ := stats.Mean(samples)
	//nolint:errcheck
	maxVal, _ := stats.Max(samples)
	// Percentile rejects sets too small to interpolate; the maximum stands in for them.
	p95, err := stats.Percentile(samples, 95)
	if err != nil {
		p95 = maxVal
	}
	return StageSummary{Count: len(samples), Mean: mean, P95: p95, Max: maxVal}, true
}

// plot renders a text histogram of a stage's samples.
func (l *latencies) plot(stage string, bins int) string {
	samples := l.samples(stage)
	if len(samples) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := histogram.Fprint(&buf, histogram.Hist(bins, samples), histogram.Linear(30)); err != nil {
		return ""
	}
	return buf.String()
}

// table prints the summary of each stage that has samples, one row per stage.
func (l *latencies) table(stages ...string) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Stage", "Count", "Mean (ms)", "P95 (ms)", "Max (ms)"})
	rows := 0
	for _, stage := range stages {
		s, ok := l.summary(stage)
		if !ok {
			continue
		}
		t.AppendRow(table.Row{
			stage, s.Count,
			fmt.Sprintf("%.1f", s.Mean), fmt.Sprintf("%.1f", s.P95), fmt.Sprintf("%.1f", s.Max),
		})
		rows++
	}
	if rows == 0 {
		return ""
	}
	return t.Render()
}
