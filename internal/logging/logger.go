// Package logging provides structured logging for Inkpad.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu     sync.Mutex
	global zerolog.Logger
	isSet  bool
)

// Init initializes the global logger with the given output and minimum level.
// Level strings follow zerolog: debug, info, warn, error.
func Init(out io.Writer, level string) {
	mu.Lock()
	defer mu.Unlock()

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	global = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	isSet = true
}

// Get returns the global logger, initializing a default one if needed.
func Get() zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()

	if !isSet {
		global = zerolog.New(os.Stdout).Level(zerolog.InfoLevel).With().Timestamp().Logger()
		isSet = true
	}
	return global
}

// With returns a logger tagged with a component name.
func With(component string) zerolog.Logger {
	return Get().With().Str("component", component).Logger()
}

// Convenience functions using the global logger. The logger is copied
// into a local because zerolog's level methods take a pointer receiver.

func Debug(msg string) {
	l := Get()
	l.Debug().Msg(msg)
}

func Info(msg string) {
	l := Get()
	l.Info().Msg(msg)
}

func Warn(msg string) {
	l := Get()
	l.Warn().Msg(msg)
}

func Error(msg string, err error) {
	l := Get()
	l.Error().Err(err).Msg(msg)
}
