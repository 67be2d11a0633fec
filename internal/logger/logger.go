// Package logger provides structured logging helpers.
package logger

import (
	"fmt"
	"io"

	charmlog "github.com/charmbracelet/log"
)

type Logger struct {
	out   io.Writer
	err   io.Writer
	quiet bool
	debug bool

	structured      *charmlog.Logger
	structuredError *charmlog.Logger
}

func New(out io.Writer, err io.Writer, quiet bool, debug bool) *Logger {
	level := charmlog.InfoLevel
	if debug {
		level = charmlog.DebugLevel
	}

	return &Logger{
		out:   out,
		err:   err,
		quiet: quiet,
		debug: debug,
		structured: charmlog.NewWithOptions(out, charmlog.Options{
			Level:           level,
			ReportTimestamp: debug,
		}),
		structuredError: charmlog.NewWithOptions(err, charmlog.Options{
			Level:           level,
			ReportTimestamp: debug,
		}),
	}
}

// Log prints a plain user-facing line. Quiet mode hides it unless forceShow or debug is set.
func (logger *Logger) Log(message string, forceShow bool) {
	if logger.quiet && !forceShow && !logger.debug {
		return
	}
	if _, err := fmt.Fprintln(logger.out, message); err != nil {
		return
	}
}

func (logger *Logger) Debug(message string, keyvals ...any) {
	if !logger.debug {
		return
	}
	logger.structured.Debug(message, keyvals...)
}

func (logger *Logger) Info(message string, keyvals ...any) {
	if logger.quiet && !logger.debug {
		return
	}
	logger.structured.Info(message, keyvals...)
}

func (logger *Logger) Warn(message string, keyvals ...any) {
	if logger.quiet && !logger.debug {
		return
	}
	logger.structured.Warn(message, keyvals...)
}

// Errorw writes a leveled error with key/value context. It ignores quiet mode.
func (logger *Logger) Errorw(message string, keyvals ...any) {
	logger.structuredError.Error(message, keyvals...)
}

func (logger *Logger) Error(message string) {
	if _, err := fmt.Fprintln(logger.err, message); err != nil {
		return
	}
}

func (logger *Logger) Errorf(format string, args ...any) {
	if _, err := fmt.Fprintf(logger.err, format, args...); err != nil {
		return
	}
}
