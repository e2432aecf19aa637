package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// Setup installs a JSON logger tagged with the service name as the process
// default so package-level slog calls share the same handler.
func Setup(service, level string) *slog.Logger {
	return SetupWithWriter(os.Stdout, service, level)
}

// SetupWithWriter is Setup with an explicit destination. Stdio transports
// that own stdout log to stderr through this.
func SetupWithWriter(w io.Writer, service, level string) *slog.Logger {
	logger := slog.New(newHandler(w, level)).With("service", service)
	slog.SetDefault(logger)
	return logger
}

func newHandler(w io.Writer, level string) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: levelFor(level)})
}

func levelFor(name string) slog.Level {
	if lvl, ok := levelNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return lvl
	}
	return slog.LevelInfo
}
