package engraveaux

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/soypat/engrave"
)

// NewLogger returns a structured logger writing human readable records to w.
// level is one of "debug", "info", "warn" or "error"; unknown levels default to info.
func NewLogger(w io.Writer, level string) *slog.Logger {
	h := log.NewWithOptions(w, log.Options{
		ReportCaller:    true,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "engrave",
	})
	h.SetLevel(parseLevel(level))
	return slog.New(h)
}

// InstallLogger sets a [NewLogger] logger as the logger of all engrave packages.
func InstallLogger(w io.Writer, level string) *slog.Logger {
	l := NewLogger(w, level)
	engrave.SetLogger(l)
	return l
}

func parseLevel(level string) log.Level {
	switch strings.ToLower(level) {
	case "debug":
		return log.DebugLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	default:
		return log.InfoLevel
	}
}
