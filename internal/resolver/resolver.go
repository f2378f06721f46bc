// Package resolver locates the lab workspace directory, downloading and
// normalizing the bundle when no existing install can be found. It is a small
// state machine: search, then on a miss download/extract/normalize, then
// re-enter the search so the resolved directory is provably discoverable
// through the same path the injected shell helpers use. The re-entry is
// capped so an inconsistent filesystem cannot cause unbounded recursion.
package resolver

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"labsetup/internal/config"
	"labsetup/internal/extract"
	"labsetup/internal/logger"
	"labsetup/internal/runner"
)

// Origin records how the workspace handle came to be.
type Origin string

const (
	// FoundExisting means the search located a previously provisioned workspace.
	FoundExisting Origin = "found_existing"
	// FreshlyDownloaded means the bundle was fetched and normalized this run.
	FreshlyDownloaded Origin = "freshly_downloaded"
)

// DefaultSecret is written into the workspace secret file only when the file
// is missing or empty. Classroom tooling: the value is a shared default the
// course hands out, not a credential template.
const DefaultSecret = "changeit"

// Handle is the resolved workspace. Exactly one live handle exists per run;
// its path is verified to be an existing directory before any consumer sees it.
type Handle struct {
	Path   string
	Origin Origin
}

// Resolver drives the search/download/normalize cycle. SearchFn, DownloadFn,
// and ExtractFn default to mdfind, curl, and the extract package; tests
// substitute them.
type Resolver struct {
	Home string
	Cfg  *config.Settings
	Run  *runner.Runner

	// SearchFn returns the directory of the first workspace marker hit, or ""
	// when nothing was found.
	SearchFn func() (string, error)
	// DownloadFn fetches the bundle archive to dest.
	DownloadFn func(dest string) error
	// ExtractFn unpacks an archive and returns its top-level folder.
	ExtractFn func(src, dest string) (string, error)
}

// New returns a Resolver with the production collaborators wired in.
func New(home string, cfg *config.Settings, run *runner.Runner) *Resolver {
	r := &Resolver{Home: home, Cfg: cfg, Run: run}
	r.SearchFn = r.searchWithMdfind
	r.DownloadFn = r.downloadWithCurl
	r.ExtractFn = extract.Extract
	return r
}

// TargetDir is the canonical workspace location.
func (r *Resolver) TargetDir() string {
	return filepath.Join(r.Home, r.Cfg.WorkspaceDirName)
}

// StagingDir is the temporary extraction location between download and
// normalization.
func (r *Resolver) StagingDir() string {
	return filepath.Join(r.Home, "Downloads", r.Cfg.StagingDirName)
}

// ArchivePath is where the bundle archive is downloaded to.
func (r *Resolver) ArchivePath() string {
	return filepath.Join(r.Home, "Downloads", r.Cfg.ArchiveName)
}

// Resolve runs the state machine until a stable workspace directory is
// accepted or the attempt budget is exhausted (which is fatal to the caller).
func (r *Resolver) Resolve() (*Handle, error) {
	downloaded := false

	for attempt := 1; attempt <= r.Cfg.MaxResolveAttempts; attempt++ {
		logger.Debug("[DEBUG] Workspace search attempt %d/%d\n", attempt, r.Cfg.MaxResolveAttempts)

		// The search utility may lag behind a directory that was populated
		// moments ago, so once we have normalized a download, accept the
		// canonical target directly when the marker is already there.
		if downloaded && r.hasMarker(r.TargetDir()) {
			return r.accept(r.TargetDir(), FreshlyDownloaded)
		}

		hit, err := r.SearchFn()
		if err != nil {
			return nil, err
		}

		switch {
		case hit == "":
			if downloaded {
				// Freshly normalized but not discoverable yet; burn an
				// attempt and re-search.
				logger.Warn("[WARN] Workspace not discoverable yet, retrying search\n")
				continue
			}
			logger.Info("[INFO] No existing workspace found. Downloading bundle...\n")
			if err := r.download(); err != nil {
				return nil, err
			}
			if err := r.normalize(); err != nil {
				return nil, err
			}
			downloaded = true

		case strings.HasPrefix(hit, r.StagingDir()):
			// The search raced a download that has been extracted but not yet
			// normalized into place.
			logger.Info("[INFO] Found workspace in staging area, normalizing...\n")
			if err := r.normalize(); err != nil {
				return nil, err
			}
			downloaded = true

		default:
			// The hit may have been deleted between the search and now; a
			// stale hit is a miss that burns an attempt, not a failure.
			if info, serr := os.Stat(hit); serr != nil || !info.IsDir() {
				logger.Warn("[WARN] Search hit %s no longer exists, retrying\n", hit)
				continue
			}
			origin := FoundExisting
			if downloaded {
				origin = FreshlyDownloaded
			}
			return r.accept(hit, origin)
		}
	}
	return nil, fmt.Errorf("could not resolve the workspace directory after %d attempts", r.Cfg.MaxResolveAttempts)
}

// accept verifies the directory, conditionally initializes the secret file,
// and produces the run's handle.
func (r *Resolver) accept(dir string, origin Origin) (*Handle, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("resolved workspace %s is not a directory", dir)
	}
	if err := r.initSecret(dir); err != nil {
		return nil, err
	}
	logger.Info("[INFO] Workspace resolved: %s (%s)\n", dir, origin)
	return &Handle{Path: dir, Origin: origin}, nil
}

// initSecret writes the default secret only when the secret file is missing
// or empty. A non-empty secret is never overwritten.
func (r *Resolver) initSecret(dir string) error {
	path := filepath.Join(dir, "config", "secret.txt")
	if raw, err := os.ReadFile(path); err == nil && strings.TrimSpace(string(raw)) != "" {
		logger.Debug("[DEBUG] Secret file already initialized\n")
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("cannot create config directory in %s: %w", dir, err)
	}
	if err := os.WriteFile(path, []byte(DefaultSecret+"\n"), 0600); err != nil {
		return fmt.Errorf("cannot initialize secret file: %w", err)
	}
	logger.Info("[INFO] Initialized secret file with the course default\n")
	return nil
}

// download fetches the bundle archive and extracts it into a fresh staging
// directory. Both steps are critical; a zero-byte or missing archive after
// the fetch is an error.
func (r *Resolver) download() error {
	archive := r.ArchivePath()
	if err := os.MkdirAll(filepath.Dir(archive), 0755); err != nil {
		return fmt.Errorf("cannot create download directory: %w", err)
	}

	fetch := runner.Task{Label: "Downloading workspace bundle", Critical: true}
	if err := r.Run.RunFunc(fetch, func() error { return r.DownloadFn(archive) }); !runner.Check(fetch, err) {
		return err
	}
	info, err := os.Stat(archive)
	if err != nil || info.Size() == 0 {
		return fmt.Errorf("bundle download produced no data at %s", archive)
	}

	staging := r.StagingDir()
	_ = os.RemoveAll(staging)
	if err := os.MkdirAll(staging, 0755); err != nil {
		return fmt.Errorf("cannot create staging directory %s: %w", staging, err)
	}

	unpack := runner.Task{Label: "Extracting workspace bundle", Critical: true}
	err = r.Run.RunFunc(unpack, func() error {
		_, eerr := r.ExtractFn(archive, staging)
		return eerr
	})
	if !runner.Check(unpack, err) {
		return err
	}
	return nil
}

// normalize copies the extracted inner project folder's contents into the
// canonical target directory, then deletes the archive and staging area.
// Copy failures only warn, since partial prior state may already satisfy the
// requirement; cleanup is best-effort.
func (r *Resolver) normalize() error {
	staging := r.StagingDir()
	inner, err := innerFolder(staging)
	if err != nil {
		return fmt.Errorf("nothing to normalize in %s: %w", staging, err)
	}

	target := r.TargetDir()
	if err := os.MkdirAll(target, 0755); err != nil {
		return fmt.Errorf("cannot create workspace directory %s: %w", target, err)
	}
	if copyErr := copyTree(inner, target); copyErr != nil {
		logger.Warn("[WARN] Some workspace files could not be copied: %v\n", copyErr)
	}

	if err := os.Remove(r.ArchivePath()); err != nil && !os.IsNotExist(err) {
		logger.Warn("[WARN] Could not delete bundle archive: %v\n", err)
	}
	if err := os.RemoveAll(staging); err != nil {
		logger.Warn("[WARN] Could not delete staging directory: %v\n", err)
	}
	return nil
}

// innerFolder returns the single extracted project folder inside the staging
// directory, or the staging directory itself when the archive had no wrapper
// folder.
func innerFolder(staging string) (string, error) {
	entries, err := os.ReadDir(staging)
	if err != nil {
		return "", err
	}
	for _, e := range entries {
		if e.IsDir() {
			return filepath.Join(staging, e.Name()), nil
		}
	}
	if len(entries) == 0 {
		return "", fmt.Errorf("staging directory is empty")
	}
	return staging, nil
}

// hasMarker reports whether dir contains the workspace marker file.
func (r *Resolver) hasMarker(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, r.Cfg.MarkerFile))
	return err == nil
}

// searchWithMdfind looks for the marker file anywhere under the home
// directory via Spotlight. A hit counts when its containing directory is
// named like the workspace, or when it sits inside the staging area (a
// download that has not been normalized yet). First hit wins; at most one
// legitimate install is expected.
func (r *Resolver) searchWithMdfind() (string, error) {
	if _, err := exec.LookPath("mdfind"); err != nil {
		return "", fmt.Errorf("search utility mdfind not found: %w", err)
	}

	task := runner.Task{Label: "Searching for existing workspace"}
	out, err := r.Run.Output(task, "mdfind", "-name", r.Cfg.MarkerFile)
	if err != nil {
		return "", fmt.Errorf("workspace search failed: %w", err)
	}

	for _, line := range strings.Split(out, "\n") {
		hit := strings.TrimSpace(line)
		if hit == "" || !strings.HasPrefix(hit, r.Home+string(os.PathSeparator)) {
			continue
		}
		dir := filepath.Dir(hit)
		if filepath.Base(dir) == r.Cfg.WorkspaceDirName || strings.HasPrefix(dir, r.StagingDir()) {
			logger.Debug("[DEBUG] Search hit: %s\n", dir)
			return dir, nil
		}
	}
	return "", nil
}

// downloadWithCurl fetches the bundle from the fixed archive URL.
func (r *Resolver) downloadWithCurl(dest string) error {
	cmd := exec.Command("curl", "-fL", r.Cfg.ArchiveURL, "-o", dest)
	cmd.Stdout = logger.Writer()
	cmd.Stderr = logger.Writer()
	logger.Debug("[DEBUG] Running command: %s\n", strings.Join(cmd.Args, " "))
	return cmd.Run()
}

// copyTree copies every regular file under src into dst, preserving relative
// paths and permissions. It keeps going on individual failures and returns
// them joined, so the caller can warn once.
func copyTree(src, dst string) error {
	var problems []string
	walkErr := filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			problems = append(problems, err.Error())
			return nil
		}
		rel, rerr := filepath.Rel(src, path)
		if rerr != nil {
			problems = append(problems, rerr.Error())
			return nil
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			if merr := os.MkdirAll(target, 0755); merr != nil {
				problems = append(problems, merr.Error())
			}
			return nil
		}
		if cerr := copyFile(path, target); cerr != nil {
			problems = append(problems, cerr.Error())
		}
		return nil
	})
	if walkErr != nil {
		problems = append(problems, walkErr.Error())
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// copyFile copies a single file, preserving the source mode.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source failed: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source failed: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("mkdir failed: %w", err)
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create target failed: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy failed: %w", err)
	}
	return out.Close()
}
