// seehuhn.de/go/vectorize - interactive raster to vector conversion
// Copyright (C) 2026  Jochen Voss <voss@seehuhn.de>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package logx is a thin wrapper around the global zerolog logger.
package logx

import (
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"seehuhn.de/go/vectorize/internal/core"
)

var DefaultLoggerOpts = &LoggerOpts{
	Environment: core.Development,
}

type LoggerOpts struct {
	Environment core.Environment

	// Output overrides the destination. Nil means stderr.
	Output io.Writer
}

func safe(opts ...LoggerOpts) *LoggerOpts {
	if len(opts) == 0 {
		return DefaultLoggerOpts
	}
	return &opts[0]
}

// Init configures the global logger. Production logs JSON at info level,
// every other environment logs to a console writer at debug level.
func Init(opts ...LoggerOpts) {
	o := safe(opts...)
	if o.Environment == core.Production {
		if o.Output != nil {
			log.Logger = zerolog.New(o.Output).With().Timestamp().Logger()
		}
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
		return
	}

	w := zerolog.NewConsoleWriter()
	if o.Output != nil {
		w.Out = o.Output
	}
	log.Logger = zerolog.New(w).With().Timestamp().Caller().Logger()
	log.Logger = log.Logger.Level(zerolog.DebugLevel)
}

// Disable silences all log output, for tests and benchmarks.
func Disable() {
	log.Logger = zerolog.Nop()
}

func Debug() *zerolog.Event {
	return log.Debug()
}

func Info() *zerolog.Event {
	return log.Info()
}

func Warn() *zerolog.Event {
	return log.Warn()
}

func Error() *zerolog.Event {
	return log.Error()
}

func Fatal() *zerolog.Event {
	return log.Fatal()
}
