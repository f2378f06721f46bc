package main

import (
	"labsetup/cmd" // Import the cmd package which contains the CLI commands and execution logic
)

// main is the program entry point.
// It delegates to cmd.Execute() which handles command line argument parsing and execution.
//
// The labsetup project is a macOS host-bootstrap tool for the lab environment that:
//   - Probes the machine (OS, CPU architecture, shell, network reachability) and refuses
//     to run on anything other than macOS with zsh or bash
//   - Installs Homebrew, a small set of brew packages, nvm plus a Node.js runtime,
//     and a Temurin JDK, skipping anything that is already present
//   - Locates the lab workspace bundle on disk, or downloads and unpacks it into
//     ~/labworkspace when it cannot be found
//   - Rewrites the relative paths inside the workspace's submit.sh into absolute ones
//     and injects the `lab` shell functions into the user's profile
//
// Every mutation is idempotent: running the tool a second time on a fully
// provisioned machine changes no file content and exits 0.
//
// Error handling strategy:
//   - Critical setup steps (Homebrew install, bundle download, JDK install) abort the
//     run with exit code 1 and point the user at the per-run log file
//   - Optional steps (brew analytics opt-out, brew update, individual submit.sh path
//     patches) only warn, so a single run surfaces as many fixable issues as possible
func main() {
	cmd.Execute()
}
