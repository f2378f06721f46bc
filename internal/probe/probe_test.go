package probe

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"labsetup/internal/config"
)

func TestBrewPathFor(t *testing.T) {
	tests := []struct {
		arch      string
		wantPath  string
		wantLabel string
		wantErr   bool
	}{
		{arch: "arm64", wantPath: "/opt/homebrew/bin/brew", wantLabel: "Apple Silicon"},
		{arch: "amd64", wantPath: "/usr/local/bin/brew", wantLabel: "Intel"},
		{arch: "386", wantErr: true},
		{arch: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.arch, func(t *testing.T) {
			path, label, err := BrewPathFor(tt.arch)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("BrewPathFor(%q) expected an error", tt.arch)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if path != tt.wantPath || label != tt.wantLabel {
				t.Errorf("BrewPathFor(%q) = %q, %q; want %q, %q",
					tt.arch, path, label, tt.wantPath, tt.wantLabel)
			}
		})
	}
}

func TestProfileFor(t *testing.T) {
	cfg := config.Defaults()

	tests := []struct {
		shellPath   string
		wantShell   string
		wantProfile string
		wantErr     bool
	}{
		{shellPath: "/bin/zsh", wantShell: "zsh", wantProfile: "/home/u/.zshrc"},
		{shellPath: "/usr/local/bin/zsh", wantShell: "zsh", wantProfile: "/home/u/.zshrc"},
		{shellPath: "/bin/bash", wantShell: "bash", wantProfile: "/home/u/.bash_profile"},
		{shellPath: "/bin/fish", wantErr: true},
		{shellPath: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.shellPath, func(t *testing.T) {
			shell, profile, err := ProfileFor(tt.shellPath, "/home/u", cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ProfileFor(%q) expected an error", tt.shellPath)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if shell != tt.wantShell || profile != tt.wantProfile {
				t.Errorf("ProfileFor(%q) = %q, %q; want %q, %q",
					tt.shellPath, shell, profile, tt.wantShell, tt.wantProfile)
			}
		})
	}
}

func TestProfileForHonorsOverride(t *testing.T) {
	cfg := config.Defaults()
	cfg.BashProfile = ".bashrc"

	_, profile, err := ProfileFor("/bin/bash", "/home/u", cfg)
	if err != nil {
		t.Fatal(err)
	}
	if profile != "/home/u/.bashrc" {
		t.Errorf("profile = %q, want /home/u/.bashrc", profile)
	}
}

func TestActivationLinesForShell(t *testing.T) {
	zsh := ActivationLinesFor("zsh")
	bash := ActivationLinesFor("bash")

	if len(zsh) != 2 {
		t.Fatalf("len(zsh lines) = %d, want 2", len(zsh))
	}
	if len(bash) != 3 {
		t.Fatalf("len(bash lines) = %d, want 3", len(bash))
	}
	// Both shells share the core nvm activation.
	for i := range zsh {
		if zsh[i] != bash[i] {
			t.Errorf("line %d differs: %q vs %q", i, zsh[i], bash[i])
		}
	}
	if !strings.Contains(bash[2], "bash_completion") {
		t.Errorf("bash extra line = %q, want the completion hook", bash[2])
	}
}

func TestEnsureProfileCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".zshrc")
	if err := EnsureProfile(path); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("profile was not created: %v", err)
	}
}

func TestEnsureProfileFixesReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".zshrc")
	if err := os.WriteFile(path, []byte("content\n"), 0444); err != nil {
		t.Fatal(err)
	}
	if err := EnsureProfile(path); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm()&0200 == 0 {
		t.Error("profile is still read-only")
	}
}

func TestEnsureProfileMissingParent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", ".zshrc")
	if err := EnsureProfile(path); err == nil {
		t.Error("expected an error when the parent directory is missing")
	}
}

func TestCheckNetworkAllFail(t *testing.T) {
	// Unresolvable domains exhaust every attempt, which must be an error.
	err := CheckNetwork([]string{"first.invalid", "second.invalid"})
	if err == nil {
		t.Fatal("expected an error when no domain is reachable")
	}
}
