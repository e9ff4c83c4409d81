package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sdejongh/dircompare/pkg/compare"
	"github.com/sdejongh/dircompare/pkg/config"
	"github.com/sdejongh/dircompare/pkg/engine"
	"github.com/sdejongh/dircompare/pkg/logging"
	"github.com/sdejongh/dircompare/pkg/metrics"
	"github.com/sdejongh/dircompare/pkg/models"
	"github.com/sdejongh/dircompare/pkg/output"
	"github.com/sdejongh/dircompare/pkg/pointer"
	"github.com/sdejongh/dircompare/pkg/ratelimit"
	"github.com/sdejongh/dircompare/pkg/state"
	"github.com/sdejongh/dircompare/pkg/storage"
	"github.com/sdejongh/dircompare/pkg/workspace"
)

// CompareFlags holds compare command flags
type CompareFlags struct {
	Old          string
	New          string
	Results      string
	Pointer      string
	SkipVanished bool
	BufferSize   int
	ReadLimit    string
	Output       string
	NoProgress   bool
	Report       string
	ReportFormat string
	MetricsFile  string
	StateFile    string
	Logging      LoggingFlags
}

// NewCompareCommand creates the compare command
func NewCompareCommand() *cobra.Command {
	flags := &CompareFlags{}

	cmd := &cobra.Command{
		Use:   "compare [old new results]",
		Short: "Compare an old and a new folder",
		Long: `Compare every file of the new folder with the file at the same relative
path in the old folder, then list files that only exist in the old folder.

A pointer to each new file is placed in "New files" and a pointer to each
changed file in "Changed files" under the results folder. Both are emptied
first. Omitted folders default to the ones used by the previous run.

Exit codes: 0 completed, 1 completed with pointer errors, 2 failed, 3 cancelled.`,
		Args: cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd, flags, args)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&flags.Old, "old", "o", "", "old directory path")
	fs.StringVarP(&flags.New, "new", "n", "", "new directory path")
	fs.StringVarP(&flags.Results, "results", "r", "", "results directory path")
	fs.StringVar(&flags.Pointer, "pointer", "", "pointer kind: auto, symlink, url, desktop (default from config)")
	fs.BoolVar(&flags.SkipVanished, "skip-vanished", false, "skip files that disappear during the comparison instead of failing")
	fs.IntVar(&flags.BufferSize, "buffer-size", 0, "read buffer size in bytes (default from config)")
	fs.StringVar(&flags.ReadLimit, "read-limit", "", "maximum read rate per second, e.g. \"10M\" (default unlimited)")
	fs.StringVar(&flags.Output, "output", "", "output format: human, json (default from config)")
	fs.BoolVar(&flags.NoProgress, "no-progress", false, "print progress lines instead of a progress bar")
	fs.StringVar(&flags.Report, "report", "", "write the comparison report to file")
	fs.StringVar(&flags.ReportFormat, "report-format", "human", "report format: human, json")
	fs.StringVar(&flags.MetricsFile, "metrics-file", "", "write Prometheus metrics of the run to file (textfile collector format)")
	fs.StringVar(&flags.StateFile, "state-file", "", "last-run state file (default under $XDG_STATE_HOME)")
	fs.MarkHidden("state-file")
	flags.Logging.AddTo(fs)

	return cmd
}

func runCompare(cmd *cobra.Command, flags *CompareFlags, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	applyArgs(flags, args)

	if err := validateCompareFlags(flags); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFlagsToConfig(cmd, flags, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := createLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	store, err := openStore(flags.StateFile)
	if err != nil {
		logger.Warn(ctx, "Last-run state unavailable", logging.Fields{"error": err.Error()})
	}
	var last *state.LastRun
	if store != nil {
		if last, err = store.Load(); err != nil {
			logger.Warn(ctx, "Can't read last-run state", logging.Fields{"error": err.Error()})
		}
	}

	pair, err := models.NewDirectoryPair(state.Resolve(last, flags.Old, flags.New, flags.Results))
	if err != nil {
		return err
	}

	fs := storage.NewLocal()
	defer fs.Close()

	creator, err := pointer.New(pointer.Kind(cfg.Pointer.Kind), fs)
	if err != nil {
		return err
	}

	// Validate has already checked the rate
	readLimit, _ := ratelimit.ParseRate(cfg.Compare.ReadLimit)
	comparator := compare.NewBinaryComparator(fs, cfg.Compare.BufferSize)
	comparator.SetLimiter(ratelimit.NewLimiter(readLimit))

	stdout := cmd.OutOrStdout()
	writer := stdout
	if cfg.Output.Quiet {
		writer = io.Discard
	}

	formatter, err := output.New(cfg.Output.Format, cfg.Output.Progress && output.IsTerminal(stdout))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	task := engine.NewTask(pair.OldRoot, pair.NewRoot, pair.ResultsRoot, engine.Options{
		FS:         fs,
		Comparator: comparator,
		Pointers:   creator,
		Logger:     logger,
		Buckets: workspace.Options{
			NewBucket:     cfg.Compare.NewBucket,
			ChangedBucket: cfg.Compare.ChangedBucket,
		},
		SkipVanished: cfg.Compare.SkipVanished,
		EventBuffer:  cfg.Compare.EventBuffer,
	})

	if err := formatter.Start(writer, pair); err != nil {
		return err
	}

	if err := task.Start(ctx); err != nil {
		return err
	}

	observed := make(chan struct{})
	go func() {
		output.Observe(formatter, task.Events())
		close(observed)
	}()

	outcome := task.Wait()
	<-observed

	output.Finish(formatter, outcome.Status, outcome.Summary, outcome.Err)
	if cfg.Output.Quiet && outcome.Status == models.StatusFailed {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", outcome.Err)
	}

	if store != nil {
		saveLastRun(ctx, store, pair, outcome, logger)
	}

	code := outcome.Status.ExitCode()
	if outcome.Summary != nil {
		code = outcome.Summary.ExitCode()

		if flags.Report != "" {
			detect := func(path string) string { return fs.ContentType(ctx, path) }
			if err := output.WriteReport(outcome.Summary, flags.Report, flags.ReportFormat, detect); err != nil {
				return fmt.Errorf("failed to write comparison report: %w", err)
			}
		}
	}

	if cfg.Output.MetricsFile != "" {
		writeMetrics(ctx, cfg.Output.MetricsFile, outcome, logger)
	}

	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// applyArgs fills folders that were not given as flags from positional arguments
func applyArgs(flags *CompareFlags, args []string) {
	targets := []*string{&flags.Old, &flags.New, &flags.Results}
	for i, arg := range args {
		if *targets[i] == "" {
			*targets[i] = arg
		}
	}
}

func openStore(path string) (*state.Store, error) {
	if path != "" {
		return state.NewStore(path), nil
	}
	return state.DefaultStore()
}

func saveLastRun(ctx context.Context, store *state.Store, pair models.DirectoryPair, outcome *engine.Outcome, logger logging.Logger) {
	err := store.Save(&state.LastRun{
		OldRoot:     pair.OldRoot,
		NewRoot:     pair.NewRoot,
		ResultsRoot: pair.ResultsRoot,
		RunID:       outcome.RunID,
		Status:      outcome.Status,
		Finished:    time.Now().UTC(),
	})
	if err != nil {
		logger.Warn(ctx, "Can't save last-run state", logging.Fields{"error": err.Error()})
	}
}

// writeMetrics exports the run to a textfile. Failures are logged and leave the exit code alone.
func writeMetrics(ctx context.Context, path string, outcome *engine.Outcome, logger logging.Logger) {
	recorder := metrics.NewRecorder()
	recorder.Record(outcome.Status, outcome.Summary, time.Now())
	if err := recorder.WriteFile(path); err != nil {
		logger.Warn(ctx, "Can't write metrics file", logging.Fields{"path": path, "error": err.Error()})
	}
}

// createLogger creates a logger based on configuration
func createLogger(cfg config.LoggingConfig, stderr io.Writer) (logging.Logger, error) {
	format := logging.ParseFormat(cfg.Format)
	level := logging.ParseLevel(cfg.Level)

	if cfg.File != "" {
		return logging.NewFileLogger(logging.FileLoggerConfig{
			Path:       cfg.File,
			Format:     format,
			Level:      level,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
		})
	}

	if cfg.Enabled {
		return logging.NewWriterLogger(stderr, format, level), nil
	}

	return logging.Discard, nil
}
