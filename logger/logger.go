package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	multi "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	LevelTrace = slog.Level(-8)
)

// Options configures New.
type Options struct {
	Level string    // trace, debug, info, warn or error; info if unknown.
	File  string    // rotated JSON log file; none if empty.
	Out   io.Writer // text output; os.Stderr if nil.
}

// New returns a logger writing text to opts.Out and, when opts.File is set,
// JSON to a rotated file as well.
func New(opts Options) *slog.Logger {
	level := &slog.LevelVar{}
	level.Set(ParseLevel(opts.Level))

	hopts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if l, ok := a.Value.Any().(slog.Level); ok && l == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	handlers := []slog.Handler{
		slog.NewTextHandler(out, hopts),
	}
	if opts.File != "" {
		handlers = append(handlers, slog.NewJSONHandler(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    16,
			MaxBackups: 8,
			MaxAge:     30,
			Compress:   true,
		}, hopts))
	}

	return slog.New(multi.Fanout(handlers...))
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
