// Package logger provides levelled logging for the recorder.
// Debug, info and warning messages are printed to stderr only when verbose
// mode is enabled via the --verbose flag. Errors are always printed.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
)

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}

func write(always bool, level, prefix, format string, args ...any) {
	mu.RLock()
	defer mu.RUnlock()
	if !always && !verbose {
		return
	}
	fmt.Fprintf(output, "["+level+"] "+prefix+format+"\n", args...)
}

// Debug prints a message if verbose mode is enabled.
func Debug(format string, args ...any) { write(false, "DEBUG", "", format, args...) }

// Info prints an informational message if verbose mode is enabled.
func Info(format string, args ...any) { write(false, "INFO", "", format, args...) }

// Warn prints a warning message if verbose mode is enabled.
func Warn(format string, args ...any) { write(false, "WARN", "", format, args...) }

// Error prints an error message regardless of verbose mode.
func Error(format string, args ...any) { write(true, "ERROR", "", format, args...) }

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	mu.RLock()
	defer mu.RUnlock()
	if verbose {
		fmt.Fprintf(output, "\n=== %s ===\n", name)
	}
}

// Logger prefixes every message with a component name.
// The zero value logs without a prefix.
type Logger struct {
	prefix string
}

// Named returns a Logger for a background component, e.g. Named("calendar").
func Named(component string) Logger {
	return Logger{prefix: component + ": "}
}

func (l Logger) Debug(format string, args ...any) { write(false, "DEBUG", l.prefix, format, args...) }
func (l Logger) Info(format string, args ...any) { write(false, "INFO", l.prefix, format, args...) }
func (l Logger) Warn(format string, args ...any) { write(false, "WARN", l.prefix, format, args...) }
func (l Logger) Error(format string, args ...any) { write(true, "ERROR", l.prefix, format, args...) }
