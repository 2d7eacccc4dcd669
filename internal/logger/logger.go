// Package logger prints levelled, colored log lines.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
)

var (
	infoColor    = color.New(color.FgBlue)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	debugColor   = color.New(color.FgHiBlack)

	debug atomic.Bool
	out   io.Writer = os.Stdout
)

// SetDebug turns Debug output on or off.
func SetDebug(on bool) { debug.Store(on) }

// SetOutput redirects all log lines. Not safe to call while logging.
func SetOutput(w io.Writer) { out = w }

func write(c *color.Color, prefix, message string, args ...interface{}) {
	ts := time.Now().Format("15:04:05")
	c.Fprintf(out, "[%s] %s%s\n", ts, prefix, fmt.Sprintf(message, args...))
}

// Info logs general information.
func Info(message string, args ...interface{}) { write(infoColor, "", message, args...) }

// Success logs a completed step.
func Success(message string, args ...interface{}) { write(successColor, "✓ ", message, args...) }

// Warn logs a recoverable problem.
func Warn(message string, args ...interface{}) { write(warnColor, "⚠ ", message, args...) }

// Error logs a failure.
func Error(message string, args ...interface{}) { write(errorColor, "✗ ", message, args...) }

// Debug logs only when debug output is enabled.
func Debug(message string, args ...interface{}) {
	if !debug.Load() {
		return
	}
	write(debugColor, "DEBUG: ", message, args...)
}
