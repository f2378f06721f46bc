package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"labsetup/internal/config"
	"labsetup/internal/logger"
)

// verbose and quiet are toggled via the `--verbose` and `--quiet` flags.
// Verbose enables debug console output; quiet suppresses everything except
// warnings and errors. Both are recorded in full in the per-run log file.
var (
	verbose bool
	quiet   bool
)

// rootCmd is the base command for the CLI tool `labsetup`.
var rootCmd = &cobra.Command{
	Use:   "labsetup",
	Short: "Lab environment bootstrap tool for macOS",

	// PersistentPreRun initializes the logger (and the per-run log file)
	// before any subcommand executes.
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		home, err := os.UserHomeDir()
		logDir := ""
		if err == nil {
			logDir = config.LogDir(home)
		}
		logger.Init(verbose, quiet, logDir)
	},
}

// Execute initializes flags, registers subcommands, and starts the command
// execution. It's the entry point for the CLI when invoked by the user.
func Execute() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Only print warnings and errors")

	if err := rootCmd.Execute(); err != nil {
		logger.Close()
		os.Exit(1)
	}
	logger.Close()
}
