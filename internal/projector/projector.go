// Package projector rewrites the two downstream configuration artifacts once
// the workspace is resolved: the relative paths inside submit.sh become
// absolute, and the `lab` shell functions are injected into the user's
// profile. All mutation goes through the textedit package, so repeated runs
// converge instead of accumulating.
package projector

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"labsetup/internal/config"
	"labsetup/internal/logger"
	"labsetup/internal/resolver"
	"labsetup/internal/textedit"
)

// PatchRule maps one relative path declaration in submit.sh to its absolute
// replacement rooted at the workspace.
type PatchRule struct {
	Old         string
	New         string
	Description string
}

// Projector applies the patch rules and the profile injection. In defaults to
// stdin and exists so tests can script the web-app URL prompt.
type Projector struct {
	Workspace *resolver.Handle
	Profile   string
	Cfg       *config.Settings
	In        io.Reader
}

// scriptVars are the five relative path declarations the downstream submit
// script is expected to carry. Each maps a shell variable to its
// workspace-relative value.
var scriptVars = []struct {
	name, rel, desc string
}{
	{"SECRET_FILE", "config/secret.txt", "secret file"},
	{"WEBAPP_URL_FILE", "config/webapp.url", "web-app URL file"},
	{"SUBMIT_JAR", "lib/submit.jar", "submit jar"},
	{"CHECKS_JAR", "lib/checks.jar", "checks jar"},
	{"COLLECT_SCRIPT", "scripts/collect.sh", "collect helper script"},
}

// Rules computes the five patch rules for the resolved workspace.
func (p *Projector) Rules() []PatchRule {
	rules := make([]PatchRule, 0, len(scriptVars))
	for _, v := range scriptVars {
		rules = append(rules, PatchRule{
			Old:         fmt.Sprintf(`%s="%s"`, v.name, v.rel),
			New:         fmt.Sprintf(`%s="%s"`, v.name, filepath.Join(p.Workspace.Path, v.rel)),
			Description: v.desc,
		})
	}
	return rules
}

// ScriptPath is the downstream script inside the workspace.
func (p *Projector) ScriptPath() string {
	return filepath.Join(p.Workspace.Path, p.Cfg.MarkerFile)
}

// AbsolutizeScriptPaths applies every patch rule independently: a rule whose
// old line cannot be found (hand-edited or already migrated script) is warned
// and skipped without blocking the others. Returns how many rules were
// applied (or already satisfied) and how many were skipped.
func (p *Projector) AbsolutizeScriptPaths() (applied, skipped int) {
	script := p.ScriptPath()
	for _, rule := range p.Rules() {
		status, err := textedit.ReplaceExact(script, rule.Old, rule.New)
		if err != nil {
			logger.Warn("[WARN] Could not patch %s in %s: %v\n", rule.Description, script, err)
			skipped++
			continue
		}
		switch status {
		case textedit.AlreadyApplied:
			logger.Info("[INFO] %s path already absolute. Skipping.\n", rule.Description)
			applied++
		case textedit.Replaced:
			logger.Info("[INFO] Patched %s path in %s\n", rule.Description, script)
			applied++
		case textedit.Skipped:
			logger.Warn("[WARN] Expected line not found for %s in %s; leaving it alone\n",
				rule.Description, script)
			skipped++
		}
	}
	return applied, skipped
}

// EnsureWebappURL writes the deployed web-app URL file from interactive input
// when it is missing or empty. Cancelled input (EOF) is an error the caller
// treats as fatal; an existing non-empty file is left untouched.
func (p *Projector) EnsureWebappURL() error {
	path := filepath.Join(p.Workspace.Path, "config", "webapp.url")
	if raw, err := os.ReadFile(path); err == nil && strings.TrimSpace(string(raw)) != "" {
		logger.Info("[INFO] Web-app URL already recorded. Skipping.\n")
		return nil
	}

	in := p.In
	if in == nil {
		in = os.Stdin
	}
	fmt.Print("Enter the URL of your deployed web app: ")
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return fmt.Errorf("web-app URL input was cancelled")
	}
	url := strings.TrimSpace(scanner.Text())
	if url == "" {
		return fmt.Errorf("web-app URL input was empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(url+"\n"), 0644); err != nil {
		return fmt.Errorf("cannot write web-app URL file: %w", err)
	}
	logger.Info("[INFO] Recorded web-app URL in %s\n", path)
	return nil
}

// functionMarker identifies the injected block: a line beginning with the
// primary function's declaration. At most one copy of the block may exist in
// the profile, across unlimited re-runs.
const functionMarker = "lab() {"

// InjectShellFunctions converges the LAB_HOME export on every run, then
// appends the lab function block to the profile when the marker is absent.
// The appended block is re-verified; a verification failure only warns, with
// manual instructions, since the rest of the system works without it.
func (p *Projector) InjectShellFunctions() error {
	// The export is kept outside the marker-gated block so a workspace that
	// resolves to a new path on a later run still gets its export rewritten.
	export := fmt.Sprintf(`export LAB_HOME="%s"`, p.Workspace.Path)
	if err := textedit.ReplaceOrAppend(p.Profile, "export LAB_HOME=", export); err != nil {
		return fmt.Errorf("cannot update LAB_HOME in %s: %w", p.Profile, err)
	}

	present, err := textedit.HasLinePrefix(p.Profile, functionMarker)
	if err != nil {
		return fmt.Errorf("cannot inspect profile %s: %w", p.Profile, err)
	}
	if present {
		logger.Info("[INFO] Shell functions already present in %s. Skipping.\n", p.Profile)
		return nil
	}

	block := p.functionBlock()
	f, err := os.OpenFile(p.Profile, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("cannot open profile %s for appending: %w", p.Profile, err)
	}
	_, werr := f.WriteString("\n" + block + "\n")
	cerr := f.Close()
	if werr != nil {
		return fmt.Errorf("cannot append shell functions to %s: %w", p.Profile, werr)
	}
	if cerr != nil {
		return fmt.Errorf("cannot close profile %s: %w", p.Profile, cerr)
	}

	present, err = textedit.HasLinePrefix(p.Profile, functionMarker)
	if err != nil || !present {
		logger.Warn("[WARN] Could not verify the shell functions in %s. "+
			"Append the lab() function block manually from the log, then run `source %s`.\n",
			p.Profile, p.Profile)
		return nil
	}
	logger.Info("[INFO] Injected shell functions into %s\n", p.Profile)
	return nil
}

// functionBlock renders the self-contained shell function block. The search
// in __lab_locate mirrors the resolver's mdfind search (same marker file and
// directory name constants), so the functions keep working in future shells
// without re-running the installer.
func (p *Projector) functionBlock() string {
	return fmt.Sprintf(`# labsetup shell functions

__lab_locate() {
    hit=$(mdfind -name %[1]s 2>/dev/null | while read -r f; do
        case "$f" in "$HOME"/*) ;; *) continue ;; esac
        d=$(dirname "$f")
        if [ "$(basename "$d")" = "%[2]s" ]; then
            printf '%%s\n' "$d"
            break
        fi
    done)
    [ -n "$hit" ] || return 1
    printf '%%s\n' "$hit"
}

__lab_cd() {
    if [ -d "$LAB_HOME" ] && [ -f "$LAB_HOME/%[1]s" ]; then
        cd "$LAB_HOME" || return 1
        return 0
    fi
    dir=$(__lab_locate) || { echo "lab: workspace not found; run labsetup" >&2; return 1; }
    LAB_HOME="$dir"
    cd "$LAB_HOME" || return 1
}

__lab_refresh() {
    dir=$(__lab_locate) || { echo "lab: workspace not found; run labsetup" >&2; return 1; }
    export LAB_HOME="$dir"
    profile="%[3]s"
    if grep -q '^export LAB_HOME=' "$profile" 2>/dev/null; then
        tmp="$profile.tmp.$$"
        sed "s|^export LAB_HOME=.*$|export LAB_HOME=\"$dir\"|" "$profile" > "$tmp" && mv "$tmp" "$profile"
    else
        printf 'export LAB_HOME="%%s"\n' "$dir" >> "$profile"
    fi
}

lab() {
    ( __lab_cd && ./%[1]s "$@" )
}

lab-open() {
    ( __lab_cd && open "$(cat config/webapp.url)" )
}

lab-update() {
    __lab_refresh && echo "lab: workspace is $LAB_HOME"
}`,
		p.Cfg.MarkerFile, p.Cfg.WorkspaceDirName, p.Profile)
}
