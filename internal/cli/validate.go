package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sdejongh/dircompare/pkg/config"
	"github.com/sdejongh/dircompare/pkg/pointer"
)

// validateCompareFlags validates the compare command flags.
// Folder existence is checked when the comparison starts.
func validateCompareFlags(flags *CompareFlags) error {
	if flags.Output != "" {
		validFormats := map[string]bool{"human": true, "json": true}
		if !validFormats[flags.Output] {
			return fmt.Errorf("invalid output format: %s (valid: human, json)", flags.Output)
		}
	}

	validReportFormats := map[string]bool{"human": true, "json": true}
	if !validReportFormats[flags.ReportFormat] {
		return fmt.Errorf("invalid report format: %s (valid: human, json)", flags.ReportFormat)
	}

	if flags.Pointer != "" {
		validKinds := map[pointer.Kind]bool{
			pointer.KindAuto:    true,
			pointer.KindSymlink: true,
			pointer.KindURL:     true,
			pointer.KindDesktop: true,
		}
		if !validKinds[pointer.Kind(flags.Pointer)] {
			return fmt.Errorf("invalid pointer kind: %s (valid: auto, symlink, url, desktop)", flags.Pointer)
		}
	}

	if flags.BufferSize < 0 {
		return fmt.Errorf("invalid buffer size: %d", flags.BufferSize)
	}

	return nil
}

// loadConfig loads configuration from file or returns default
func loadConfig() (*config.Config, error) {
	return config.Load(globalFlags.ConfigFile)
}

// applyFlagsToConfig overrides config values with command-line flags
func applyFlagsToConfig(cmd *cobra.Command, flags *CompareFlags, cfg *config.Config) {
	if flags.Pointer != "" {
		cfg.Pointer.Kind = flags.Pointer
	}

	if cmd.Flags().Changed("skip-vanished") {
		cfg.Compare.SkipVanished = flags.SkipVanished
	}

	if flags.BufferSize > 0 {
		cfg.Compare.BufferSize = flags.BufferSize
	}

	if flags.ReadLimit != "" {
		cfg.Compare.ReadLimit = flags.ReadLimit
	}

	if flags.Output != "" {
		cfg.Output.Format = flags.Output
	}

	if flags.MetricsFile != "" {
		cfg.Output.MetricsFile = flags.MetricsFile
	}

	if flags.NoProgress {
		cfg.Output.Progress = false
	}

	// Logging flags
	if flags.Logging.File != "" {
		cfg.Logging.File = flags.Logging.File
		cfg.Logging.Enabled = true
	}
	if flags.Logging.Format != "" {
		cfg.Logging.Format = flags.Logging.Format
	}
	if flags.Logging.Level != "" {
		cfg.Logging.Level = flags.Logging.Level
	}

	// Disable progress in quiet mode
	if globalFlags.Quiet {
		cfg.Output.Progress = false
		cfg.Output.Quiet = true
	}

	// Debug logs on stderr in verbose mode
	if globalFlags.Verbose {
		cfg.Logging.Enabled = true
		if flags.Logging.Level == "" {
			cfg.Logging.Level = "debug"
		}
	}
}
