package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

var levelVar = new(slog.LevelVar)

// console renders records for humans; it keeps its own level in sync with levelVar.
var console = charmlog.NewWithOptions(os.Stderr, charmlog.Options{ReportTimestamp: true})

var L = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: levelVar}))

// SetLevel configures the global log level (debug, info, warn, error).
func SetLevel(lvl string) {
	switch strings.ToLower(lvl) {
	case "debug":
		levelVar.Set(slog.LevelDebug)
	case "warn":
		levelVar.Set(slog.LevelWarn)
	case "error":
		levelVar.Set(slog.LevelError)
	default:
		levelVar.Set(slog.LevelInfo)
	}
	console.SetLevel(charmlog.Level(levelVar.Level()))
}

// SetFormat swaps the global handler: "console" writes colored text through
// charmbracelet/log to stderr, anything else writes JSON to stdout.
func SetFormat(format string) {
	switch strings.ToLower(format) {
	case "console", "text":
		L = slog.New(console)
	default:
		L = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: levelVar}))
	}
}

// SetOutput redirects the global logger, keeping the current format.
func SetOutput(w io.Writer, format string) {
	console = charmlog.NewWithOptions(w, charmlog.Options{ReportTimestamp: true, Level: charmlog.Level(levelVar.Level())})
	switch strings.ToLower(format) {
	case "console", "text":
		L = slog.New(console)
	default:
		L = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: levelVar}))
	}
}
