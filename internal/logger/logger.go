package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color" // Colored console output for the leveled log functions
)

// The leveled log functions are package-level variables holding functions that
// behave like fmt.Printf, but with text colored appropriately for the level.
// Every message is additionally written, uncolored, to the per-run log file.

// Info logs informational messages in green color.
var Info = leveled(color.New(color.FgGreen), false)

// Warn logs warning messages in bright magenta color.
var Warn = leveled(color.New(color.FgHiMagenta), false)

// Error logs error messages in red color, to stderr.
var Error = leveled(color.New(color.FgRed), true)

// Debug logs debug messages in cyan color if enabled, otherwise is a no-op on
// the console. Debug messages always reach the log file once Init has run.
var Debug = func(format string, a ...any) { toFile(format, a...) }

// quiet suppresses Info and Debug console output; Warn and Error still print.
var quiet bool

var (
	logFile *os.File
	logPath string
)

// leveled builds a log function that prints to the console in the given color
// and mirrors the message into the run log file.
func leveled(c *color.Color, stderr bool) func(format string, a ...any) {
	return func(format string, a ...any) {
		if stderr {
			_, _ = c.Fprintf(os.Stderr, format, a...)
		} else if !quiet {
			c.Printf(format, a...)
		}
		toFile(format, a...)
	}
}

// toFile appends a message to the run log file, if one is open.
func toFile(format string, a ...any) {
	if logFile != nil {
		fmt.Fprintf(logFile, format, a...)
	}
}

// Init initializes the logger package.
// Parameters:
//   - verbose: when true, Debug messages are printed to the console in cyan.
//   - quietMode: when true, Info and Debug console output is suppressed
//     (warnings and errors still print; everything still reaches the log file).
//
// Init also opens a per-run timestamped log file under dir (for example
// ~/.labsetup/logs/run-20240131-154502.log). If the directory cannot be
// created or the file cannot be opened, logging falls back to console-only.
func Init(verbose, quietMode bool, dir string) {
	quiet = quietMode

	if verbose {
		debugColor := color.New(color.FgCyan)
		Debug = func(format string, a ...any) {
			if !quiet {
				debugColor.Printf(format, a...)
			}
			toFile(format, a...)
		}
	} else {
		Debug = func(format string, a ...any) { toFile(format, a...) }
	}

	if dir == "" {
		return
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		Warn("[WARN] Cannot create log directory %s: %v\n", dir, err)
		return
	}
	path := filepath.Join(dir, time.Now().Format("run-20060102-150405.log"))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		Warn("[WARN] Cannot open log file %s: %v\n", path, err)
		return
	}
	logFile = f
	logPath = path
	Debug("[DEBUG] Logging to %s\n", path)
}

// Path returns the current run's log file path, or "" if logging is console-only.
func Path() string {
	return logPath
}

// Writer returns a writer that external command output can be streamed into so
// it lands in the run log file. Returns io.Discard when no log file is open.
func Writer() io.Writer {
	if logFile == nil {
		return io.Discard
	}
	return logFile
}

// Fatal logs a fatal error, names the log file for follow-up, and exits with
// status 1. Used for the unrecoverable conditions: unsupported platform or
// shell, no network, a failed critical install step, or an exhausted
// workspace-resolution attempt budget.
func Fatal(format string, a ...any) {
	Error(format, a...)
	if logPath != "" {
		Error("[ERROR] See the full log at %s\n", logPath)
	}
	Close()
	os.Exit(1)
}

// Close flushes and closes the run log file. Safe to call more than once.
func Close() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}
