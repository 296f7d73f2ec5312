package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Attribute keys added to records logged inside a recording span.
const (
	TraceIDKey = "trace_id"
	SpanIDKey  = "span_id"
)

// SlogLogger is the Logger implementation over log/slog. Records logged with
// a context that carries a valid span get the span's trace and span ids, so
// a gateway log line can be matched to its trace.
type SlogLogger struct {
	l *slog.Logger
}

func NewSlogLogger(l *slog.Logger) *SlogLogger {
	return &SlogLogger{l: l}
}

// NewNop returns a logger that discards everything.
func NewNop() *SlogLogger {
	return &SlogLogger{l: slog.New(slog.DiscardHandler)}
}

func (s *SlogLogger) Debug(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelDebug, msg, args)
}

func (s *SlogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelInfo, msg, args)
}

func (s *SlogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelWarn, msg, args)
}

func (s *SlogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.log(ctx, slog.LevelError, msg, args)
}

func (s *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{l: s.l.With(args...)}
}

func (s *SlogLogger) log(ctx context.Context, level slog.Level, msg string, args []any) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !s.l.Enabled(ctx, level) {
		return
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		// full slice expression so the caller's backing array is never written
		args = append(args[:len(args):len(args)],
			TraceIDKey, sc.TraceID().String(),
			SpanIDKey, sc.SpanID().String())
	}
	s.l.Log(ctx, level, msg, args...)
}
