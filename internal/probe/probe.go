package probe

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"labsetup/internal/config"
	"labsetup/internal/logger"
)

// Facts is the read-only fact sheet produced once at startup and consumed by
// every later stage. Nothing mutates it after Detect returns.
type Facts struct {
	OS        string // always "darwin" on success
	Arch      string // "arm64" or "amd64"
	ChipLabel string // human label, e.g. "Apple Silicon"
	BrewPath  string // fixed Homebrew binary path for the architecture

	Shell       string // "zsh" or "bash"
	ShellPath   string // full path from $SHELL, used to run nvm commands
	ProfilePath string // resolved shell profile file
	// ActivationLines are the per-shell nvm activation lines that must be
	// present in the profile.
	ActivationLines []string
}

// Detect probes the operating system, CPU architecture, and configured shell,
// and maps them to the fixed install locations. Any value outside the two
// supported profiles (macOS + zsh/bash, arm64/amd64) is an error; callers
// treat every probe error as fatal.
func Detect(cfg *config.Settings) (*Facts, error) {
	if runtime.GOOS != "darwin" {
		return nil, fmt.Errorf("unsupported platform %q: labsetup only supports macOS", runtime.GOOS)
	}

	brewPath, chip, err := BrewPathFor(runtime.GOARCH)
	if err != nil {
		return nil, err
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cannot determine home directory: %w", err)
	}

	shellPath := os.Getenv("SHELL")
	shell, profile, err := ProfileFor(shellPath, home, cfg)
	if err != nil {
		return nil, err
	}

	logger.Debug("[DEBUG] Probe: os=%s arch=%s (%s) shell=%s profile=%s\n",
		runtime.GOOS, runtime.GOARCH, chip, shell, profile)

	return &Facts{
		OS:              runtime.GOOS,
		Arch:            runtime.GOARCH,
		ChipLabel:       chip,
		BrewPath:        brewPath,
		Shell:           shell,
		ShellPath:       shellPath,
		ProfilePath:     profile,
		ActivationLines: ActivationLinesFor(shell),
	}, nil
}

// ActivationLinesFor returns the nvm activation lines for the given shell.
// Both shells source nvm.sh; bash additionally sources nvm's bash completion,
// the same snippet the nvm installer writes into a bash profile.
func ActivationLinesFor(shell string) []string {
	lines := []string{
		`export NVM_DIR="$HOME/.nvm"`,
		`[ -s "$NVM_DIR/nvm.sh" ] && \. "$NVM_DIR/nvm.sh"`,
	}
	if shell == "bash" {
		lines = append(lines, `[ -s "$NVM_DIR/bash_completion" ] && \. "$NVM_DIR/bash_completion"`)
	}
	return lines
}

// BrewPathFor maps a CPU architecture to the fixed Homebrew install path and
// a human-readable chip label. The path is never searched for; Homebrew
// installs itself to exactly one location per architecture.
func BrewPathFor(arch string) (path, label string, err error) {
	switch arch {
	case "arm64":
		return "/opt/homebrew/bin/brew", "Apple Silicon", nil
	case "amd64":
		return "/usr/local/bin/brew", "Intel", nil
	default:
		return "", "", fmt.Errorf("unsupported CPU architecture %q", arch)
	}
}

// ProfileFor maps the user's configured shell to a shell kind and a profile
// file path. Only zsh and bash are supported; the profile filename per shell
// comes from the settings so it stays overridable.
func ProfileFor(shellPath, home string, cfg *config.Settings) (shell, profile string, err error) {
	switch filepath.Base(shellPath) {
	case "zsh":
		return "zsh", filepath.Join(home, cfg.ZshProfile), nil
	case "bash":
		return "bash", filepath.Join(home, cfg.BashProfile), nil
	default:
		return "", "", fmt.Errorf("unsupported shell %q: labsetup supports zsh and bash", shellPath)
	}
}

// CheckNetwork attempts a reachability check against each domain in order and
// succeeds on the first domain that answers a single ping. It fails only when
// every attempt is exhausted.
func CheckNetwork(domains []string) error {
	for _, domain := range domains {
		// -c 1: single packet, -t 2: two second timeout per attempt.
		cmd := exec.Command("ping", "-c", "1", "-t", "2", domain)
		cmd.Stdout = logger.Writer()
		cmd.Stderr = logger.Writer()
		logger.Debug("[DEBUG] Pinging %s\n", domain)
		if err := cmd.Run(); err == nil {
			logger.Debug("[DEBUG] %s is reachable\n", domain)
			return nil
		}
		logger.Debug("[DEBUG] %s did not answer\n", domain)
	}
	return fmt.Errorf("no internet connection: none of %s answered", strings.Join(domains, ", "))
}

// EnsureProfile makes sure the profile file exists and is writable: it is
// created when absent (the parent directory must already exist) and its
// permissions are widened when present but read-only.
func EnsureProfile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		f, cerr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0644)
		if cerr != nil {
			return fmt.Errorf("cannot create profile file %s: %w", path, cerr)
		}
		_ = f.Close()
		logger.Info("[INFO] Created profile file %s\n", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot stat profile file %s: %w", path, err)
	}
	if info.Mode().Perm()&0200 == 0 {
		if err := os.Chmod(path, info.Mode().Perm()|0200); err != nil {
			return fmt.Errorf("profile file %s is read-only and cannot be made writable: %w", path, err)
		}
		logger.Warn("[WARN] Profile file %s was read-only; made it writable\n", path)
	}
	return nil
}
