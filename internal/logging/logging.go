package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/Vansh-Raja/mremote-sync/internal/config"
)

// New returns a human-readable logger writing to w at level. Unknown levels
// fall back to warn.
func New(w io.Writer, level config.LogLevel) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(string(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.WarnLevel
	}
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// Verbose lowers the level to debug when verbose is set.
func Verbose(log zerolog.Logger, verbose bool) zerolog.Logger {
	if verbose {
		return log.Level(zerolog.DebugLevel)
	}
	return log
}
