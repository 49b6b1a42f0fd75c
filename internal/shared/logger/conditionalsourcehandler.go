package logger

import (
	"context"
	"log/slog"
	"runtime"
)

type levelSet map[slog.Level]struct{}

func (s levelSet) has(l slog.Level) bool {
	_, ok := s[l]
	return ok
}

// conditionalSourceHandler decorates records at selected levels with
// the caller's source location. The wrapped handler must be built with
// AddSource disabled, otherwise the location points into this file.
type conditionalSourceHandler struct {
	next   slog.Handler
	levels levelSet
}

// NewConditionalSourceHandler wraps next so that only records at the
// given levels carry a source attribute.
func NewConditionalSourceHandler(next slog.Handler, levels ...slog.Level) slog.Handler {
	set := make(levelSet, len(levels))
	for _, l := range levels {
		set[l] = struct{}{}
	}
	return &conditionalSourceHandler{next: next, levels: set}
}

func (h *conditionalSourceHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.levels.has(r.Level) {
		r.AddAttrs(slog.Attr{
			Key:   slog.SourceKey,
			Value: slog.AnyValue(callerSource()),
		})
	}
	return h.next.Handle(ctx, r)
}

// callerSource resolves the frame that invoked the logging call,
// skipping this function, Handle, and slog's dispatch frame.
func callerSource() *slog.Source {
	var pcs [1]uintptr
	runtime.Callers(4, pcs[:])
	frame, _ := runtime.CallersFrames(pcs[:]).Next()
	return &slog.Source{
		Function: frame.Function,
		File:     frame.File,
		Line:     frame.Line,
	}
}

func (h *conditionalSourceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &conditionalSourceHandler{next: h.next.WithAttrs(attrs), levels: h.levels}
}

func (h *conditionalSourceHandler) WithGroup(name string) slog.Handler {
	return &conditionalSourceHandler{next: h.next.WithGroup(name), levels: h.levels}
}

func (h *conditionalSourceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}
