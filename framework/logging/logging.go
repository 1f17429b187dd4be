// Package logging provides the retro.Logger implementations: Noop for
// tests and libraries, and a zerolog backed Zerolog for binaries.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type Noop struct{}

func (nl Noop) Debug(...interface{})          {}
func (nl Noop) Debugf(string, ...interface{}) {}
func (nl Noop) Info(...interface{})           {}
func (nl Noop) Infof(string, ...interface{})  {}
func (nl Noop) Warn(...interface{})           {}
func (nl Noop) Warnf(string, ...interface{})  {}
func (nl Noop) Error(...interface{})          {}
func (nl Noop) Errorf(string, ...interface{}) {}

// Zerolog adapts a zerolog.Logger to retro.Logger.
type Zerolog struct {
	logger zerolog.Logger
}

// Options configure New. Level is one of zerolog's level names
// (debug, info, warn, error...), Console switches from JSON lines to
// zerolog's human readable console writer.
type Options struct {
	Level   string
	Console bool
}

// New writes to w, or stderr when w is nil.
func New(w io.Writer, opts Options) (*Zerolog, error) {
	if w == nil {
		w = os.Stderr
	}
	level := zerolog.InfoLevel
	if opts.Level != "" {
		var err error
		if level, err = zerolog.ParseLevel(opts.Level); err != nil {
			return nil, errors.Wrapf(err, "logging: unknown level %q", opts.Level)
		}
	}
	if opts.Console {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return &Zerolog{logger: zerolog.New(w).Level(level).With().Timestamp().Logger()}, nil
}

// NewWithLogger wraps an existing zerolog.Logger.
func NewWithLogger(logger zerolog.Logger) *Zerolog {
	return &Zerolog{logger: logger}
}

// With returns a child logger which adds key=value to every message.
func (z *Zerolog) With(key string, value interface{}) *Zerolog {
	return &Zerolog{logger: z.logger.With().Interface(key, value).Logger()}
}

// Zerolog exposes the wrapped logger, e.g for HTTP access logs.
func (z *Zerolog) Zerolog() zerolog.Logger { return z.logger }

func (z *Zerolog) Debug(args ...interface{}) { z.logger.Debug().Msg(fmt.Sprint(args...)) }
func (z *Zerolog) Debugf(format string, args ...interface{}) {
	z.logger.Debug().Msgf(format, args...)
}
func (z *Zerolog) Info(args ...interface{}) { z.logger.Info().Msg(fmt.Sprint(args...)) }
func (z *Zerolog) Infof(format string, args ...interface{}) {
	z.logger.Info().Msgf(format, args...)
}
func (z *Zerolog) Warn(args ...interface{}) { z.logger.Warn().Msg(fmt.Sprint(args...)) }
func (z *Zerolog) Warnf(format string, args ...interface{}) {
	z.logger.Warn().Msgf(format, args...)
}
func (z *Zerolog) Error(args ...interface{}) { z.logger.Error().Msg(fmt.Sprint(args...)) }
func (z *Zerolog) Errorf(format string, args ...interface{}) {
	z.logger.Error().Msgf(format, args...)
}
