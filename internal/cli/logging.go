package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/reporteria/reportviewer/internal/constants"
)

// level is shared by every logger installed by SetSlog, so that SetVerbosity applies to them.
var level = new(slog.LevelVar)

// SetVerbosity sets the level of the default logger from the count of -v flags:
// warnings by default, info with one, debug with two or more.
func SetVerbosity(verbosity int) {
	level.Set(levelFor(verbosity))
	slog.SetLogLoggerLevel(level.Level())
}

// SetSlog installs the default logger, writing text or JSON records to stderr.
// Stdout is left to command output.
func SetSlog(verbosity int, jsonLogs bool) {
	setSlog(os.Stderr, verbosity, jsonLogs)
}

func setSlog(w io.Writer, verbosity int, jsonLogs bool) {
	SetVerbosity(verbosity)

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(w, opts)
	if jsonLogs {
		h = slog.NewJSONHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
}

func levelFor(verbosity int) slog.Level {
	switch {
	case verbosity <= 0:
		return constants.DefaultLogLevel
	case verbosity == 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}
