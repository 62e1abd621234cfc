package main

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"

	"github.com/sagarc03/s3proxy/config"
)

// newLogHandler returns JSON lines with a UTC "ts" key and the service name in
// production, and colored text with source locations otherwise.
func newLogHandler(w io.Writer, cfg *config.Config) slog.Handler {
	level := parseLevel(cfg.Log.Level)

	if !cfg.IsProduction() {
		_, isFile := w.(*os.File)
		return tint.NewHandler(w, &tint.Options{
			Level:      level,
			AddSource:  true,
			TimeFormat: "15:04:05.000",
			NoColor:    !isFile,
		})
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.String("ts", a.Value.Time().UTC().Format(time.RFC3339Nano))
			}
			return a
		},
	})
	return h.WithAttrs([]slog.Attr{slog.String("service", cfg.Name)})
}

// setupLogging makes the handler the slog default and sends the standard
// library logger (net/http server errors) through it. Logs go to w, never to
// the command's stdout, so classify and config output stays machine readable.
func setupLogging(w io.Writer, cfg *config.Config) {
	logger := slog.New(newLogHandler(w, cfg))
	slog.SetDefault(logger)

	log.SetFlags(0)
	log.SetOutput(slog.NewLogLogger(logger.Handler(), slog.LevelWarn).Writer())
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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
