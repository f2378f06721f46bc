// Package textedit performs surgical, idempotent line mutations on
// configuration files (shell profiles, the workspace submit script). Every
// operation tolerates being re-run from scratch: repeated application never
// duplicates a line and never accumulates history.
package textedit

import (
	"fmt"
	"os"
	"strings"

	"labsetup/internal/logger"
)

// Status classifies the outcome of ReplaceExact.
type Status int

const (
	// Replaced means oldLine was found and substituted with newLine.
	Replaced Status = iota
	// AlreadyApplied means newLine was already present; nothing changed.
	AlreadyApplied
	// Skipped means neither newLine nor oldLine was found. The file may have
	// been hand-edited; the caller decides whether that matters.
	Skipped
)

// readLines splits a file into lines, remembering whether it ended with a
// trailing newline so writes can preserve it.
func readLines(path string) ([]string, bool, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("cannot read %s: %w", path, err)
	}
	content := string(raw)
	trailing := strings.HasSuffix(content, "\n")
	content = strings.TrimSuffix(content, "\n")
	if content == "" {
		return []string{}, trailing, nil
	}
	return strings.Split(content, "\n"), trailing, nil
}

// writeLines writes lines back, preserving the original file mode when the
// file exists and defaulting to 0644 otherwise.
func writeLines(path string, lines []string) error {
	mode := os.FileMode(0644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	content := strings.Join(lines, "\n")
	if content != "" {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return nil
}

// ContainsLine reports whether the file contains a byte-exact match of line.
func ContainsLine(path, line string) (bool, error) {
	lines, _, err := readLines(path)
	if err != nil {
		return false, err
	}
	for _, l := range lines {
		if l == line {
			return true, nil
		}
	}
	return false, nil
}

// HasLinePrefix reports whether any line in the file starts with prefix.
func HasLinePrefix(path, prefix string) (bool, error) {
	lines, _, err := readLines(path)
	if err != nil {
		return false, err
	}
	for _, l := range lines {
		if strings.HasPrefix(l, prefix) {
			return true, nil
		}
	}
	return false, nil
}

// EnsureLine guarantees the file contains a byte-exact match of line exactly
// once. When the line is absent it is appended, surrounded by blank lines.
// Repeated calls are no-ops.
func EnsureLine(path, line string) error {
	lines, _, err := readLines(path)
	if err != nil {
		return err
	}
	for _, l := range lines {
		if l == line {
			logger.Debug("[DEBUG] Line already present in %s: %s\n", path, line)
			return nil
		}
	}
	lines = append(lines, "", line, "")
	if err := writeLines(path, lines); err != nil {
		return err
	}
	logger.Info("[INFO] Added line to %s: %s\n", path, line)
	return nil
}

// ReplaceOrAppend converges the file toward containing newLine exactly once:
// if newLine is already present it is a no-op; else the first line starting
// with prefix is replaced in place; else newLine is appended. The prefix is a
// fixed string, not a regular expression.
func ReplaceOrAppend(path, prefix, newLine string) error {
	lines, _, err := readLines(path)
	if err != nil {
		return err
	}
	for _, l := range lines {
		if l == newLine {
			logger.Debug("[DEBUG] %s already converged: %s\n", path, newLine)
			return nil
		}
	}
	for i, l := range lines {
		if strings.HasPrefix(l, prefix) {
			lines[i] = newLine
			if err := writeLines(path, lines); err != nil {
				return err
			}
			logger.Info("[INFO] Replaced line in %s: %s\n", path, newLine)
			return nil
		}
	}
	lines = append(lines, newLine)
	if err := writeLines(path, lines); err != nil {
		return err
	}
	logger.Info("[INFO] Appended line to %s: %s\n", path, newLine)
	return nil
}

// ReplaceExact substitutes the first occurrence of oldLine with newLine.
// It reports AlreadyApplied when newLine is already present (idempotent
// success), Skipped when oldLine cannot be found, and Replaced after a
// successful substitution that re-verifies as present. Callers treat Skipped
// and verification errors as warnings, never as fatal: one stale path
// reference does not stop the rest of the run.
func ReplaceExact(path, oldLine, newLine string) (Status, error) {
	lines, _, err := readLines(path)
	if err != nil {
		return Skipped, err
	}
	for _, l := range lines {
		if l == newLine {
			return AlreadyApplied, nil
		}
	}
	idx := -1
	for i, l := range lines {
		if l == oldLine {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Skipped, nil
	}
	lines[idx] = newLine
	if err := writeLines(path, lines); err != nil {
		return Skipped, err
	}

	// Re-verify the substitution landed.
	ok, err := ContainsLine(path, newLine)
	if err != nil {
		return Skipped, err
	}
	if !ok {
		return Skipped, fmt.Errorf("replacement did not verify in %s: %s", path, newLine)
	}
	return Replaced, nil
}
