// Package logging builds the process-wide diagnostic logger.
//
// Every diagnostic line goes to standard error as a single JSON object of
// the form {"type":"log","message":...,"timestamp":...}. Standard output is
// reserved for the one result object per run, so nothing in this package may
// ever write to it.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns the process logger. Components derive child loggers via
// Named/With; structured fields (correlationId, attempt, ...) ride on the
// same line next to the fixed type/message/timestamp triple.
func New() *zap.Logger {
	return NewWriting(zapcore.Lock(os.Stderr))
}

// NewWriting returns a logger writing JSON lines to the given sink.
// Tests use this to capture and inspect output.
func NewWriting(sink zapcore.WriteSyncer) *zap.Logger {
	enc := zapcore.EncoderConfig{
		MessageKey:     "message",
		TimeKey:        "timestamp",
		LevelKey:       zapcore.OmitKey,
		NameKey:        "component",
		CallerKey:      zapcore.OmitKey,
		StacktraceKey:  zapcore.OmitKey,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(enc), sink, zapcore.InfoLevel)
	return zap.New(core).With(zap.String("type", "log"))
}
