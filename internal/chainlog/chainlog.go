// Package chainlog provides the leveled, key-value structured logger used
// throughout the bank process. Its call shape — Info/Debug/Warn/Error(msg,
// key, value, key, value, ...) — follows the teacher's own log package
// convention; unlike the teacher's ambient third-party stack (none of its
// logging is an external module — go-ethereum-style nodes implement this
// themselves), this is built directly on log/slog rather than vendoring an
// equivalent, since there's no corpus dependency to preserve here.
package chainlog

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger wraps an slog.Logger to give every call site a component name
// without repeating it as a key on every call.
type Logger struct {
	component string
	inner     *slog.Logger
}

var root = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

// SetOutput redirects every future logger's handler output (tests and the
// CLI's --log.json flag use this).
func SetOutput(w io.Writer, level slog.Level, json bool) {
	var handler slog.Handler
	if json {
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	}
	root = slog.New(handler)
}

// New returns a Logger scoped to component, e.g. "scanner", "txbuilder".
func New(component string) *Logger {
	return &Logger{component: component, inner: root.With("component", component)}
}

func (l *Logger) Debug(msg string, kv ...any) { l.inner.Debug(msg, kv...) }
func (l *Logger) Info(msg string, kv ...any)  { l.inner.Info(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...any)  { l.inner.Warn(msg, kv...) }
func (l *Logger) Error(msg string, kv ...any) { l.inner.Error(msg, kv...) }

// With returns a Logger that always attaches the given key-value pairs, for
// loop bodies that want per-iteration context (e.g. "scan_id", id).
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{component: l.component, inner: l.inner.With(kv...)}
}

// Context attaches l to ctx so deeply nested calls that don't carry a
// Logger parameter can still log with component context, mirroring the
// teacher's package-level logger lookup without a global mutable default.
type ctxKey struct{}

func WithContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

func FromContext(ctx context.Context, fallbackComponent string) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok {
		return l
	}
	return New(fallbackComponent)
}
