// Package logging builds the process-wide slog.Logger from configuration.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/efebarandurmaz/flowgraph/internal/config"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// New returns a logger writing to w. The text format uses the charmbracelet
// console handler; json uses slog's JSON handler for log shippers.
func New(w io.Writer, cfg config.LogConfig) (*slog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(cfg.Format) {
	case "", FormatText:
		h := log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			Level:           log.Level(level),
		})
		return slog.New(h), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}
