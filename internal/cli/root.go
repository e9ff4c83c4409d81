package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCommand assembles the dircompare command tree
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dircompare",
		Short: "Find new, changed and deleted files between two folder versions",
		Long: `dircompare compares an old and a new version of a folder tree byte by byte.
It reports files that were added, changed or deleted, lists empty files, and
collects pointers to every new or changed file in a results folder.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add global flags
	AddGlobalFlags(rootCmd)

	// Add commands
	rootCmd.AddCommand(NewCompareCommand())
	rootCmd.AddCommand(NewLastCommand())
	rootCmd.AddCommand(NewConfigCommand())
	rootCmd.AddCommand(NewVersionCommand())

	return rootCmd
}
