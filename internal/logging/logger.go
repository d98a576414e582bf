// Package logging configures the global zerolog logger shared by every
// binary: human-readable console output on stderr, level set from the
// environment.
package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var levels = map[string]zerolog.Level{
	"debug": zerolog.DebugLevel,
	"info":  zerolog.InfoLevel,
	"warn":  zerolog.WarnLevel,
	"error": zerolog.ErrorLevel,
}

// Init sets up the global logger. LOG_LEVEL picks the level (debug, info,
// warn, error); anything else means info. Output goes to stderr so stdout
// stays free for metrics lines and CLI results.
func Init() {
	level, ok := levels[strings.ToLower(os.Getenv("LOG_LEVEL"))]
	if !ok {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}
