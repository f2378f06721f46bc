// Package deps installs the toolchain: Homebrew, optional brew packages, nvm
// plus a Node.js runtime, and the Temurin JDK. Every step checks for an
// existing install first, so repeated runs do not duplicate side effects.
package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"labsetup/internal/config"
	"labsetup/internal/logger"
	"labsetup/internal/probe"
	"labsetup/internal/runner"
	"labsetup/internal/textedit"
)

const brewInstallURL = "https://raw.githubusercontent.com/Homebrew/install/HEAD/install.sh"
const nvmInstallURL = "https://raw.githubusercontent.com/nvm-sh/nvm/v0.40.1/install.sh"

// Installer wires the probed facts, settings, and process runner together for
// the dependency stage.
type Installer struct {
	Facts *probe.Facts
	Cfg   *config.Settings
	Run   *runner.Runner
}

// EnsureBrew installs Homebrew when the fixed binary path for this
// architecture is not executable yet, then re-verifies the binary. The
// install itself is critical; the analytics opt-out and metadata refresh
// afterwards are conveniences that only warn on failure.
func (in *Installer) EnsureBrew() error {
	if isExecutable(in.Facts.BrewPath) {
		logger.Info("[INFO] Homebrew already installed at %s. Skipping.\n", in.Facts.BrewPath)
	} else {
		task := runner.Task{Label: "Installing Homebrew", Critical: true}
		err := in.Run.Run(task, "/bin/bash", "-c",
			fmt.Sprintf(`NONINTERACTIVE=1 /bin/bash -c "$(curl -fsSL %s)"`, brewInstallURL))
		if !runner.Check(task, err) {
			return err
		}
		if !isExecutable(in.Facts.BrewPath) {
			return fmt.Errorf("homebrew install finished but %s is not executable", in.Facts.BrewPath)
		}
		logger.Info("[INFO] Installed Homebrew at %s\n", in.Facts.BrewPath)
	}

	// Best-effort housekeeping: neither failure blocks the run.
	optOut := runner.Task{Label: "Disabling Homebrew analytics"}
	runner.Check(optOut, in.Run.Run(optOut, in.Facts.BrewPath, "analytics", "off"))

	refresh := runner.Task{Label: "Updating Homebrew metadata"}
	runner.Check(refresh, in.Run.Run(refresh, in.Facts.BrewPath, "update"))
	return nil
}

// EnsurePackages installs each configured brew formula that is not already in
// the installed set. A failed optional package install is warned, not fatal;
// VerifyTools catches anything that is genuinely required.
func (in *Installer) EnsurePackages() {
	listTask := runner.Task{Label: "Listing installed packages"}
	out, err := in.Run.Output(listTask, in.Facts.BrewPath, "list", "--formula")
	installed := make(map[string]bool)
	if err != nil {
		logger.Warn("[WARN] Could not list installed packages: %v\n", err)
	} else {
		for _, line := range strings.Split(out, "\n") {
			if name := strings.TrimSpace(line); name != "" {
				installed[name] = true
			}
		}
	}

	for _, pkg := range in.Cfg.Packages {
		if installed[pkg] {
			logger.Info("[INFO] Package %s already installed. Skipping.\n", pkg)
			continue
		}
		task := runner.Task{Label: "Installing package " + pkg}
		runner.Check(task, in.Run.Run(task, in.Facts.BrewPath, "install", pkg))
	}
}

// VerifyTools resolves every required command to an executable and fails with
// a single batch error listing all that are missing, so the user sees the
// complete remediation list in one pass.
func (in *Installer) VerifyTools() error {
	var missing []string
	for _, tool := range in.Cfg.RequiredTools {
		if _, err := exec.LookPath(tool); err != nil {
			// brew is probed at a fixed path that may not be on PATH yet.
			if tool == "brew" && isExecutable(in.Facts.BrewPath) {
				continue
			}
			missing = append(missing, tool)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required commands not found: %s", strings.Join(missing, ", "))
	}
	logger.Info("[INFO] All required commands resolve: %s\n", strings.Join(in.Cfg.RequiredTools, ", "))
	return nil
}

// EnsureNVM installs nvm when its init script is absent and makes sure the
// activation lines are present in the shell profile.
func (in *Installer) EnsureNVM() error {
	home, _ := os.UserHomeDir()
	nvmScript := filepath.Join(home, ".nvm", "nvm.sh")
	if _, err := os.Stat(nvmScript); err == nil {
		logger.Info("[INFO] nvm already installed. Skipping.\n")
	} else {
		task := runner.Task{Label: "Installing nvm", Critical: true}
		err := in.Run.Run(task, "/bin/bash", "-c",
			fmt.Sprintf(`curl -o- %s | bash`, nvmInstallURL))
		if !runner.Check(task, err) {
			return err
		}
	}

	for _, line := range in.Facts.ActivationLines {
		if err := textedit.EnsureLine(in.Facts.ProfilePath, line); err != nil {
			return fmt.Errorf("cannot activate nvm in %s: %w", in.Facts.ProfilePath, err)
		}
	}
	return nil
}

// InstallNode queries nvm for the latest LTS Node.js version, falling back to
// the configured known-good version when the query fails or returns nothing.
// The install and the default alias are fatal on failure; the final version
// check only warns and instructs the user to verify manually.
func (in *Installer) InstallNode() error {
	query := runner.Task{Label: "Querying latest Node.js LTS"}
	out, err := in.Run.Output(query, in.Facts.ShellPath, "-c", in.nvmScript("nvm ls-remote --lts"))
	version := PickNodeVersion(out, in.Cfg.NodeFallbackVersion)
	if err != nil || version == in.Cfg.NodeFallbackVersion {
		logger.Warn("[WARN] Could not determine latest LTS, using fallback %s\n", in.Cfg.NodeFallbackVersion)
		version = in.Cfg.NodeFallbackVersion
	}

	install := runner.Task{Label: "Installing Node.js " + version, Critical: true}
	if err := in.Run.Run(install, in.Facts.ShellPath, "-c", in.nvmScript("nvm install "+version)); !runner.Check(install, err) {
		return err
	}

	alias := runner.Task{Label: "Setting Node.js " + version + " as default"}
	if err := in.Run.Run(alias, in.Facts.ShellPath, "-c", in.nvmScript("nvm alias default "+version)); err != nil {
		return fmt.Errorf("cannot set default Node.js version: %w", err)
	}

	verify := runner.Task{Label: "Verifying Node.js"}
	if _, err := in.Run.Output(verify, in.Facts.ShellPath, "-c", in.nvmScript("node --version")); err != nil {
		logger.Warn("[WARN] Node.js verification failed; check `node --version` in a new shell: %v\n", err)
	}
	return nil
}

// EnsureJDK installs the configured JDK cask unless brew already lists it.
func (in *Installer) EnsureJDK() error {
	listTask := runner.Task{Label: "Checking for JDK"}
	out, err := in.Run.Output(listTask, in.Facts.BrewPath, "list", "--cask")
	if err == nil {
		for _, line := range strings.Split(out, "\n") {
			if strings.TrimSpace(line) == in.Cfg.JDKCask {
				logger.Info("[INFO] JDK cask %s already installed. Skipping.\n", in.Cfg.JDKCask)
				return nil
			}
		}
	}

	task := runner.Task{Label: "Installing JDK (" + in.Cfg.JDKCask + ")", Critical: true}
	if err := in.Run.Run(task, in.Facts.BrewPath, "install", "--cask", in.Cfg.JDKCask); !runner.Check(task, err) {
		return err
	}
	return nil
}

// nvmScript wraps an nvm invocation with the activation preamble, since nvm
// is a shell function rather than a binary.
func (in *Installer) nvmScript(command string) string {
	return `export NVM_DIR="$HOME/.nvm"; [ -s "$NVM_DIR/nvm.sh" ] && . "$NVM_DIR/nvm.sh"; ` + command
}

// PickNodeVersion extracts the newest version from `nvm ls-remote --lts`
// output (the last non-empty line's first field). It returns fallback when
// the output yields nothing usable.
func PickNodeVersion(output, fallback string) string {
	lines := strings.Split(output, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		fields := strings.Fields(lines[i])
		if len(fields) == 0 {
			continue
		}
		if strings.HasPrefix(fields[0], "v") {
			return fields[0]
		}
		// Lines like "->     v20.18.1   (LTS: Iron)" carry the version in the
		// second field.
		if len(fields) > 1 && strings.HasPrefix(fields[1], "v") {
			return fields[1]
		}
	}
	return fallback
}

// isExecutable reports whether path exists and has an execute bit set.
func isExecutable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Mode().Perm()&0111 != 0
}
