package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
)

// Execute builds the command tree and runs it. The returned error is the
// single fatal-path funnel: main translates it into the process exit code.
func Execute(version, commit, date string) error {
	rootCmd := &cobra.Command{
		Use:   "tunneltap",
		Short: "Remote-access tunnel for debugging inside job runners",
		Long: `tunneltap provisions the VS Code tunnel CLI for the current platform and
supervises a tunnel session: it waits for a client to connect within a
connection timeout, then bounds the connected session with a session timeout.

Intended for interactive debugging of automated jobs: start it in a stuck
workflow, open the printed authorization link, and attach an editor.`,
		Version:      fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default .tunneltap.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug-level output, also passed to the tunnel CLI")

	rootCmd.AddCommand(newRunCmd())

	return rootCmd.Execute()
}
