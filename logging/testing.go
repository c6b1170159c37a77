package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

type testAppender struct {
	tb testing.TB
}

// NewTestAppender returns an appender that logs through `tb.Log`, which ties each line to the
// running test even when tests run in parallel. `tb.Helper` keeps the reported file/line
// pointing away from this appender.
func NewTestAppender(tb testing.TB) Appender {
	return &testAppender{tb}
}

// Write outputs the log entry to the underlying test object `Log` method.
func (tapp *testAppender) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	tapp.tb.Helper()
	toPrint := []string{
		entry.Time.Format(DefaultTimeFormatStr),
		strings.ToUpper(entry.Level.String()),
		entry.LoggerName,
	}
	if entry.Caller.Defined {
		toPrint = append(toPrint, callerToString(&entry.Caller))
	}
	toPrint = append(toPrint, entry.Message)

	var encodeErr error
	if len(fields) > 0 {
		var encoded string
		encoded, encodeErr = encodeFields(fields)
		if encodeErr == nil {
			toPrint = append(toPrint, encoded)
		}
	}
	tapp.tb.Log(strings.Join(toPrint, "\t"))
	return encodeErr
}

// Sync is a no-op.
func (tapp *testAppender) Sync() error {
	return nil
}
