// Package logging configures the global zerolog logger for the binaries.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup sends the global logger to a console writer on stderr at the given
// level. Unknown levels fall back to info.
func Setup(level string) zerolog.Level {
	return setup(os.Stderr, level)
}

func setup(out io.Writer, level string) zerolog.Level {
	output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	log.Logger = log.Output(output)

	// Set log level from config
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	log.Logger = log.Logger.Level(lvl)
	return lvl
}
