package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Settings holds every tunable the installer consults. All fields have
// compiled defaults; an optional ~/.labsetup/config.yaml may override any of
// them, so the tool runs with no configuration at all on a fresh machine.
type Settings struct {
	// ArchiveURL is the remote identifier of the workspace bundle.
	ArchiveURL string `yaml:"archive_url"`
	// ArchiveName is the local filename the bundle is downloaded to
	// (under ~/Downloads).
	ArchiveName string `yaml:"archive_name"`
	// WorkspaceDirName is the expected basename of the workspace directory,
	// both when searching for an existing install and when creating a new one.
	WorkspaceDirName string `yaml:"workspace_dir"`
	// MarkerFile is the file whose presence identifies a workspace directory.
	MarkerFile string `yaml:"marker_file"`
	// StagingDirName is the basename of the temporary extraction directory
	// under ~/Downloads.
	StagingDirName string `yaml:"staging_dir"`
	// MaxResolveAttempts bounds the search/download/re-search cycle of the
	// workspace resolver.
	MaxResolveAttempts int `yaml:"max_resolve_attempts"`

	// ZshProfile and BashProfile are the profile filenames (relative to the
	// home directory) for the two supported shells.
	ZshProfile  string `yaml:"zsh_profile"`
	BashProfile string `yaml:"bash_profile"`

	// PingDomains are tried in order for the reachability check; the first
	// success wins.
	PingDomains []string `yaml:"ping_domains"`

	// Packages are the optional brew formulas to install.
	Packages []string `yaml:"packages"`
	// RequiredTools must all resolve to executables after the dependency
	// stage; any that are missing are reported together, fatally.
	RequiredTools []string `yaml:"required_tools"`

	// NodeFallbackVersion is installed when the nvm latest-LTS query fails or
	// returns nothing.
	NodeFallbackVersion string `yaml:"node_fallback_version"`
	// JDKCask is the Homebrew cask providing the JDK.
	JDKCask string `yaml:"jdk_cask"`
}

// Defaults returns the compiled-in settings.
func Defaults() *Settings {
	return &Settings{
		ArchiveURL:          "https://codeload.github.com/luxlab/labworkspace/zip/refs/heads/main",
		ArchiveName:         "labworkspace.zip",
		WorkspaceDirName:    "labworkspace",
		MarkerFile:          "submit.sh",
		StagingDirName:      ".labsetup-staging",
		MaxResolveAttempts:  3,
		ZshProfile:          ".zshrc",
		BashProfile:         ".bash_profile",
		PingDomains:         []string{"google.com", "github.com", "apple.com"},
		Packages:            []string{"wget", "jq"},
		RequiredTools:       []string{"curl", "unzip", "mdfind", "git", "brew"},
		NodeFallbackVersion: "v20.18.1",
		JDKCask:             "temurin",
	}
}

// Load reads the optional settings file at path and overlays it onto the
// defaults. A missing file is not an error; a malformed one is.
func Load(path string) (*Settings, error) {
	s := Defaults()

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal settings file %s: %w", path, err)
	}
	return s, nil
}

// BaseDir returns the tool's own directory under the home directory, where
// the settings file, logs, and run reports live.
func BaseDir(home string) string {
	return filepath.Join(home, ".labsetup")
}

// LogDir returns the directory that per-run log files are written to.
func LogDir(home string) string {
	return filepath.Join(BaseDir(home), "logs")
}

// SettingsPath returns the location of the optional settings file.
func SettingsPath(home string) string {
	return filepath.Join(BaseDir(home), "config.yaml")
}
