package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// GlobalFlags holds global flag values
type GlobalFlags struct {
	ConfigFile string
	Verbose    bool
	Quiet      bool
}

var globalFlags GlobalFlags

// AddGlobalFlags adds global flags to the root command
func AddGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(
		&globalFlags.ConfigFile,
		"config",
		"",
		"config file, YAML or TOML (default is $XDG_CONFIG_HOME/dircompare/config.yaml)",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Verbose,
		"verbose",
		"v",
		false,
		"verbose output (debug logs on stderr)",
	)
	cmd.PersistentFlags().BoolVarP(
		&globalFlags.Quiet,
		"quiet",
		"q",
		false,
		"suppress non-error output",
	)
}

// GetGlobalFlags returns the global flags
func GetGlobalFlags() *GlobalFlags {
	return &globalFlags
}

// LoggingFlags holds the logging overrides shared by commands that run a comparison
type LoggingFlags struct {
	File   string
	Format string
	Level  string
}

// AddTo registers the logging flags on fs
func (f *LoggingFlags) AddTo(fs *pflag.FlagSet) {
	fs.StringVar(&f.File, "log-file", "", "write logs to file (enables logging)")
	fs.StringVar(&f.Format, "log-format", "", "log format: text, json (default from config)")
	fs.StringVar(&f.Level, "log-level", "", "log level: debug, info, warn, error (default from config)")
}

// ExitError carries a process exit code for a run that has already been reported
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}
