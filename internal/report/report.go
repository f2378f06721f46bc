// Package report writes a machine-readable summary of each run next to the
// log file. It is informational only: failures to save are logged and
// otherwise ignored.
package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"labsetup/internal/logger"
	"labsetup/internal/probe"
	"labsetup/internal/resolver"
)

// Report captures what a run did. All state here is recomputed every run; the
// report exists for humans and CI, not for the tool's own idempotence (which
// comes from checking the filesystem directly).
type Report struct {
	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`

	OS        string `json:"os"`
	Arch      string `json:"arch"`
	ChipLabel string `json:"chip_label"`
	Shell     string `json:"shell"`
	Profile   string `json:"profile"`

	WorkspacePath   string `json:"workspace_path,omitempty"`
	WorkspaceOrigin string `json:"workspace_origin,omitempty"`

	PatchesApplied int `json:"patches_applied"`
	PatchesSkipped int `json:"patches_skipped"`
}

// New starts a report from the probed facts.
func New(facts *probe.Facts) *Report {
	return &Report{
		Started:   time.Now(),
		OS:        facts.OS,
		Arch:      facts.Arch,
		ChipLabel: facts.ChipLabel,
		Shell:     facts.Shell,
		Profile:   facts.ProfilePath,
	}
}

// SetWorkspace records the resolved workspace handle.
func (r *Report) SetWorkspace(h *resolver.Handle) {
	r.WorkspacePath = h.Path
	r.WorkspaceOrigin = string(h.Origin)
}

// Save writes the report as indented JSON into dir. Errors are logged but not
// propagated.
func (r *Report) Save(dir string) {
	r.Finished = time.Now()

	raw, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		logger.Error("[ERROR] Failed to marshal run report: %v\n", err)
		return
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error("[ERROR] Failed to create report directory %s: %v\n", dir, err)
		return
	}
	path := filepath.Join(dir, "report.json")
	logger.Debug("[DEBUG] Writing run report to %s\n", path)
	if err := os.WriteFile(path, raw, 0644); err != nil {
		logger.Error("[ERROR] Failed to write run report %s: %v\n", path, err)
	}
}
