package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"golang.org/x/term"

	"canopy/internal/shared/config"
)

var (
	root      *slog.Logger
	rootLevel *slog.LevelVar
)

// Init configures the process-wide logger from config. In debugMode every
// record carries its source location; otherwise only warn and error do.
func Init(cfg *config.LoggerConfig, debugMode bool) error {
	writer, err := openWriter(cfg.OutputPath)
	if err != nil {
		return err
	}

	rootLevel = new(slog.LevelVar)
	rootLevel.Set(parseLevel(cfg.Level))

	root = slog.New(buildHandler(writer, rootLevel, cfg.Format == "json", debugMode))
	slog.SetDefault(root)
	return nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openWriter(path string) (io.Writer, error) {
	switch strings.ToLower(path) {
	case "stdout", "":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	}
}

func buildHandler(w io.Writer, level slog.Leveler, json, allSource bool) slog.Handler {
	sourceLevels := []slog.Level{slog.LevelWarn, slog.LevelError}
	if allSource {
		sourceLevels = []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError}
	}

	var base slog.Handler
	if json {
		base = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	} else {
		base = tint.NewHandler(w, &tint.Options{
			Level:       level,
			TimeFormat:  time.DateTime,
			NoColor:     !isTerminal(w),
			ReplaceAttr: tintErrAttr,
		})
	}
	return NewConditionalSourceHandler(base, sourceLevels...)
}

// tintErrAttr renders error-typed attrs in tint's error style.
func tintErrAttr(_ []string, a slog.Attr) slog.Attr {
	if a.Key == "error" && a.Value.Kind() == slog.KindAny {
		if err, ok := a.Value.Any().(error); ok {
			return tint.Err(err)
		}
	}
	return a
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// SetLevel adjusts the root level at runtime. A no-op before Init.
func SetLevel(level slog.Level) {
	if rootLevel != nil {
		rootLevel.Set(level)
	}
}

// Get returns the process logger, building a stdout default when Init
// has not run (tests, one-shot CLI paths).
func Get() *slog.Logger {
	if root == nil {
		rootLevel = new(slog.LevelVar)
		rootLevel.Set(slog.LevelInfo)
		root = slog.New(buildHandler(os.Stdout, rootLevel, false, false))
		slog.SetDefault(root)
	}
	return root
}

func Debug(msg string, args ...any) { Get().Debug(msg, args...) }
func Info(msg string, args ...any)  { Get().Info(msg, args...) }
func Warn(msg string, args ...any)  { Get().Warn(msg, args...) }
func Error(msg string, args ...any) { Get().Error(msg, args...) }

func Fatal(msg string, args ...any) {
	Get().Error(msg, args...)
	os.Exit(1)
}

func WithFields(args ...any) *slog.Logger {
	return Get().With(args...)
}

func WithComponent(component string) *slog.Logger {
	return Get().With("component", component)
}
