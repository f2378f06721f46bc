// Package runner launches long-running external commands asynchronously while
// rendering a liveness spinner, then classifies the outcome. The spinner is
// purely presentation: correctness comes from the blocking wait, and quiet
// mode (or a non-TTY stdout) degrades to a plain wait with no behavior change.
package runner

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"labsetup/internal/logger"
)

// Task describes one unit of background work. Critical travels with the task
// so call sites read declaratively; the caller (not the runner) decides to
// escalate a critical failure to a fatal exit.
type Task struct {
	Label    string
	Critical bool
}

// Runner executes tasks one at a time. Exactly one background operation is
// outstanding at any moment; ordering between steps is the caller's job.
type Runner struct {
	quiet    bool
	interval time.Duration
}

// New returns a Runner. In quiet mode the spinner and per-task console
// messages are suppressed (everything still reaches the log file).
func New(quiet bool) *Runner {
	return &Runner{quiet: quiet, interval: 150 * time.Millisecond}
}

var spinnerFrames = []string{"|", "/", "-", `\`}

// Run executes an external command under the task's spinner. The command's
// combined output is streamed into the run log file, never to the console.
func (r *Runner) Run(task Task, name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stdout = logger.Writer()
	cmd.Stderr = logger.Writer()
	logger.Debug("[DEBUG] Running command: %s\n", strings.Join(cmd.Args, " "))
	return r.wait(task, cmd.Run)
}

// Output executes a query-style command, capturing its stdout for the caller
// while stderr goes to the run log file.
func (r *Runner) Output(task Task, name string, args ...string) (string, error) {
	var stdout bytes.Buffer
	cmd := exec.Command(name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = logger.Writer()
	logger.Debug("[DEBUG] Running command: %s\n", strings.Join(cmd.Args, " "))
	err := r.wait(task, cmd.Run)
	return stdout.String(), err
}

// RunFunc executes an in-process task (archive extraction, tree copies) under
// the same spinner and classification as an external command.
func (r *Runner) RunFunc(task Task, fn func() error) error {
	return r.wait(task, fn)
}

// wait starts fn in a goroutine, spins until it completes, and reports the
// outcome. A failure is returned wrapped with the task label; classification
// into fatal versus warned happens at the call site via Task.Critical.
func (r *Runner) wait(task Task, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()

	spin := r.spinnerEnabled()
	var err error
	if spin {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		frame := 0
	loop:
		for {
			select {
			case err = <-done:
				// Clear the spinner line before any result output.
				fmt.Printf("\r%s\r", strings.Repeat(" ", len(task.Label)+4))
				break loop
			case <-ticker.C:
				fmt.Printf("\r%s %s", spinnerFrames[frame%len(spinnerFrames)], task.Label)
				frame++
			}
		}
	} else {
		err = <-done
	}

	if err == nil {
		if !r.quiet {
			color.New(color.FgGreen).Printf("[ OK ] %s\n", task.Label)
		}
		logger.Debug("[DEBUG] Task succeeded: %s\n", task.Label)
		return nil
	}
	logger.Debug("[DEBUG] Task failed: %s: %v\n", task.Label, err)
	return fmt.Errorf("%s failed: %w", task.Label, err)
}

// spinnerEnabled reports whether the animated indicator should render.
func (r *Runner) spinnerEnabled() bool {
	return !r.quiet && isatty.IsTerminal(os.Stdout.Fd())
}

// Check applies the system's failure-handling policy to a finished task:
// a critical failure aborts the whole run via logger.Fatal, a non-critical
// failure is warned and the run continues. Returns true when the task
// succeeded.
func Check(task Task, err error) bool {
	if err == nil {
		return true
	}
	if task.Critical {
		logger.Fatal("[ERROR] %v\n", err)
	}
	logger.Warn("[WARN] %v (continuing)\n", err)
	return false
}
