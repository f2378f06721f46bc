package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"labsetup/internal/config"
	"labsetup/internal/deps"
	"labsetup/internal/logger"
	"labsetup/internal/probe"
	"labsetup/internal/projector"
	"labsetup/internal/report"
	"labsetup/internal/resolver"
	"labsetup/internal/runner"
)

// runCmd is the top-level command executing the whole pipeline:
// probe -> install dependencies -> resolve workspace -> patch configs.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Provision the toolchain and the lab workspace",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, facts, run := setup()
		rep := report.New(facts)

		installDeps(cfg, facts, run)
		handle := resolveWorkspace(cfg, run)
		rep.SetWorkspace(handle)

		applied, skipped := patchConfigs(cfg, facts, handle)
		rep.PatchesApplied = applied
		rep.PatchesSkipped = skipped

		home, _ := os.UserHomeDir()
		rep.Save(config.LogDir(home))
		logger.Info("[INFO] Done. Open a new shell (or run `source %s`) and try `lab`.\n", facts.ProfilePath)
	},
}

// runDepsCmd installs only the toolchain dependencies.
var runDepsCmd = &cobra.Command{
	Use:   "deps",
	Short: "Install only the toolchain (Homebrew, packages, nvm, Node.js, JDK)",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, facts, run := setup()
		installDeps(cfg, facts, run)
	},
}

// runWorkspaceCmd resolves only the workspace directory.
var runWorkspaceCmd = &cobra.Command{
	Use:   "workspace",
	Short: "Locate or download only the lab workspace",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, _, run := setup()
		resolveWorkspace(cfg, run)
	},
}

// runConfigureCmd patches only the configuration artifacts, resolving the
// workspace first since the patches are rooted at it.
var runConfigureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Patch only submit.sh and the shell profile",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, facts, run := setup()
		handle := resolveWorkspace(cfg, run)
		patchConfigs(cfg, facts, handle)
	},
}

// setup loads settings, probes the environment, checks network reachability,
// and prepares the shell profile. Every failure here is fatal: nothing
// downstream can work without these facts.
func setup() (*config.Settings, *probe.Facts, *runner.Runner) {
	home, err := os.UserHomeDir()
	if err != nil {
		logger.Fatal("[ERROR] Cannot determine home directory: %v\n", err)
	}

	cfg, err := config.Load(config.SettingsPath(home))
	if err != nil {
		logger.Fatal("[ERROR] %v\n", err)
	}

	facts, err := probe.Detect(cfg)
	if err != nil {
		logger.Fatal("[ERROR] %v\n", err)
	}
	logger.Info("[INFO] Detected %s Mac, %s shell, profile %s\n",
		facts.ChipLabel, facts.Shell, facts.ProfilePath)

	if err := probe.CheckNetwork(cfg.PingDomains); err != nil {
		logger.Fatal("[ERROR] %v\n", err)
	}
	if err := probe.EnsureProfile(facts.ProfilePath); err != nil {
		logger.Fatal("[ERROR] %v\n", err)
	}

	return cfg, facts, runner.New(quiet)
}

// installDeps runs the dependency stage. Critical install failures abort
// inside the installer; the errors surfaced here are verification failures
// after an install claimed success, which are equally fatal.
func installDeps(cfg *config.Settings, facts *probe.Facts, run *runner.Runner) {
	in := &deps.Installer{Facts: facts, Cfg: cfg, Run: run}

	if err := in.EnsureBrew(); err != nil {
		logger.Fatal("[ERROR] %v\n", err)
	}
	in.EnsurePackages()
	if err := in.VerifyTools(); err != nil {
		logger.Fatal("[ERROR] %v\n", err)
	}
	if err := in.EnsureNVM(); err != nil {
		logger.Fatal("[ERROR] %v\n", err)
	}
	if err := in.InstallNode(); err != nil {
		logger.Fatal("[ERROR] %v\n", err)
	}
	if err := in.EnsureJDK(); err != nil {
		logger.Fatal("[ERROR] %v\n", err)
	}
}

// resolveWorkspace runs the resolver state machine; an exhausted attempt
// budget or an unusable directory is fatal.
func resolveWorkspace(cfg *config.Settings, run *runner.Runner) *resolver.Handle {
	home, _ := os.UserHomeDir()
	handle, err := resolver.New(home, cfg, run).Resolve()
	if err != nil {
		logger.Fatal("[ERROR] %v\n", err)
	}
	return handle
}

// patchConfigs applies the five submit.sh path patches (each independent,
// warn-only), records the web-app URL, and injects the shell functions.
func patchConfigs(cfg *config.Settings, facts *probe.Facts, handle *resolver.Handle) (applied, skipped int) {
	p := &projector.Projector{Workspace: handle, Profile: facts.ProfilePath, Cfg: cfg}

	applied, skipped = p.AbsolutizeScriptPaths()
	if skipped > 0 {
		logger.Warn("[WARN] %d of %d script paths were not patched; check %s\n",
			skipped, applied+skipped, p.ScriptPath())
	}

	if err := p.EnsureWebappURL(); err != nil {
		logger.Fatal("[ERROR] %v\n", err)
	}
	if err := p.InjectShellFunctions(); err != nil {
		logger.Fatal("[ERROR] %v\n", err)
	}
	return applied, skipped
}

// init registers the run command tree with the root command.
func init() {
	runCmd.AddCommand(runDepsCmd)
	runCmd.AddCommand(runWorkspaceCmd)
	runCmd.AddCommand(runConfigureCmd)
	rootCmd.AddCommand(runCmd)
}
