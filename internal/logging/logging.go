// Package logging builds the zerolog console logger used by the binaries and adapts it
// to pastewire.Logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Zereker/pastewire"
)

// Options controls the console logger.
type Options struct {
	App     string
	Level   string
	NoColor bool
	Out     io.Writer // defaults to os.Stderr
}

// New returns a console logger tagged with the app name.
func New(opts Options) zerolog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	level, ok := ParseLevel(opts.Level)
	if !ok {
		level = zerolog.InfoLevel
	}

	output := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    opts.NoColor,
	}
	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()
	if opts.App != "" {
		logger = logger.With().Str("app", opts.App).Logger()
	}
	return logger
}

// ParseLevel maps a level name to a zerolog level. It accepts the zerolog names plus
// "warning" and "off"/"none"/"disabled".
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

// Adapter exposes a zerolog.Logger as a pastewire.Logger.
type Adapter struct {
	zl zerolog.Logger
}

var _ pastewire.Logger = Adapter{}

// Adapt wraps zl.
func Adapt(zl zerolog.Logger) Adapter {
	return Adapter{zl: zl}
}

func (a Adapter) Debug(msg string, args ...any) { a.log(a.zl.Debug(), msg, args) }
func (a Adapter) Info(msg string, args ...any)  { a.log(a.zl.Info(), msg, args) }
func (a Adapter) Warn(msg string, args ...any)  { a.log(a.zl.Warn(), msg, args) }
func (a Adapter) Error(msg string, args ...any) { a.log(a.zl.Error(), msg, args) }

func (a Adapter) log(e *zerolog.Event, msg string, args []any) {
	if e == nil {
		return
	}
	if len(args) > 0 {
		e = e.Fields(normalize(args))
	}
	e.Msg(msg)
}

// normalize renders Stringers as text so addresses and enums read well on the console.
func normalize(args []any) []any {
	out := make([]any, len(args))
	for i, v := range args {
		switch val := v.(type) {
		case error:
			out[i] = val
		case fmt.Stringer:
			out[i] = val.String()
		default:
			out[i] = v
		}
	}
	return out
}
