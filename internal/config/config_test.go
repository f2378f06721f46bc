package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	d := Defaults()
	if s.WorkspaceDirName != d.WorkspaceDirName {
		t.Errorf("WorkspaceDirName = %q, want %q", s.WorkspaceDirName, d.WorkspaceDirName)
	}
	if s.MaxResolveAttempts != d.MaxResolveAttempts {
		t.Errorf("MaxResolveAttempts = %d, want %d", s.MaxResolveAttempts, d.MaxResolveAttempts)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "workspace_dir: myworkspace\nmax_resolve_attempts: 5\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if s.WorkspaceDirName != "myworkspace" {
		t.Errorf("WorkspaceDirName = %q, want myworkspace", s.WorkspaceDirName)
	}
	if s.MaxResolveAttempts != 5 {
		t.Errorf("MaxResolveAttempts = %d, want 5", s.MaxResolveAttempts)
	}
	// Untouched fields keep their defaults.
	if s.MarkerFile != Defaults().MarkerFile {
		t.Errorf("MarkerFile = %q, want default", s.MarkerFile)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("workspace_dir: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected an error for malformed YAML")
	}
}
