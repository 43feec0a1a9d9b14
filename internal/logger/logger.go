/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package logger writes CLI diagnostics to stderr.
package logger

import (
	"io"
	"log"
	"os"
	"sync/atomic"
)

var (
	logger  = log.New(os.Stderr, "", 0)
	verbose atomic.Bool
)

// SetOutput configures the logger output destination.
// Use io.Discard to silence all logging.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// SetVerbose enables Debug output.
func SetVerbose(v bool) {
	verbose.Store(v)
}

// Warning logs a warning message.
func Warning(format string, args ...any) {
	logger.Printf("warning: "+format, args...)
}

// Info logs an informational message.
func Info(format string, args ...any) {
	logger.Printf(format, args...)
}

// Debug logs a debug message when verbose output is on.
func Debug(format string, args ...any) {
	if verbose.Load() {
		logger.Printf("debug: "+format, args...)
	}
}

// Resolver adapts the package logger to resolve.Logger.
type Resolver struct{}

func (Resolver) Warning(format string, args ...any) { Warning(format, args...) }
func (Resolver) Debug(format string, args ...any)   { Debug(format, args...) }
