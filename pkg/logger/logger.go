package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// New returns a logger writing to out at the given level. A nil out means
// stdout. Every record carries the environment attribute.
func New(lvl string, addSource bool, environment string, out io.Writer) *slog.Logger {
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level:     ParseLevel(lvl),
		AddSource: addSource,
	}
	var handler slog.Handler

	if IsProduction(environment) {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler).With(
		slog.String("environment", environment),
	)
}

// Component tags every record from l with the component name.
func Component(l *slog.Logger, name string) *slog.Logger {
	return l.With(slog.String("component", name))
}

func IsProduction(environment string) bool {
	env := strings.ToLower(environment)
	return env == "prod" || env == "production"
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
