package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/sdejongh/dircompare/pkg/models"
)

// HumanFormatter prints line-based progress and the completion message
type HumanFormatter struct {
	writer      io.Writer
	lastPercent int
	lastPhase   models.Phase
	startTime   time.Time
}

// NewHumanFormatter creates a new human-readable formatter
func NewHumanFormatter() *HumanFormatter {
	return &HumanFormatter{lastPercent: -1}
}

// Start initializes the formatter
func (f *HumanFormatter) Start(writer io.Writer, pair models.DirectoryPair) error {
	if writer == nil {
		writer = io.Discard
	}
	f.writer = writer
	f.startTime = time.Now()

	fmt.Fprintf(writer, "Comparing %s with %s\n", pair.NewRoot, pair.OldRoot)
	fmt.Fprintf(writer, "Results in %s\n", pair.ResultsRoot)
	return nil
}

// Progress prints a line each time the percentage moves
func (f *HumanFormatter) Progress(event models.ProgressEvent) error {
	if f.writer == nil {
		return nil
	}

	if event.Phase == models.PhasePointers && f.lastPhase < models.PhasePointers {
		fmt.Fprintln(f.writer, "Creating results in results folder...")
	}
	f.lastPhase = event.Phase

	if event.Phase < models.PhaseForward || event.Phase > models.PhaseBackward {
		return nil
	}
	if event.Percent == f.lastPercent {
		return nil
	}
	f.lastPercent = event.Percent

	fmt.Fprintf(f.writer, "%3d%% Processed %d/%d files.\n", event.Percent, event.Processed, event.Total)
	return nil
}

// Complete prints the completion message
func (f *HumanFormatter) Complete(summary *models.Summary) error {
	if f.writer == nil {
		f.writer = io.Discard
	}

	fmt.Fprintln(f.writer)
	fmt.Fprintln(f.writer, CompletionText(summary))

	if len(summary.PointerFailures) > 0 {
		fmt.Fprintf(f.writer, "\nPointers that could not be created:\n")
		for _, pf := range summary.PointerFailures {
			fmt.Fprintf(f.writer, "  %s: %s\n", pf.Target, pf.Error)
		}
	}

	if len(summary.Diagnostics) > 0 {
		fmt.Fprintf(f.writer, "\nPrevious results that could not be removed:\n")
		for _, d := range summary.Diagnostics {
			fmt.Fprintf(f.writer, "  %s\n", d)
		}
	}

	fmt.Fprintln(f.writer)
	switch {
	case len(summary.PointerFailures) > 0:
		color.New(color.FgYellow).Fprintf(f.writer, "Status: %s with %d pointer errors", summary.Status, len(summary.PointerFailures))
	case summary.Identical():
		color.New(color.FgGreen).Fprintf(f.writer, "Status: %s, identical", summary.Status)
	default:
		color.New(color.FgCyan).Fprintf(f.writer, "Status: %s", summary.Status)
	}
	fmt.Fprintf(f.writer, " (%s)\n", formatDuration(summary.Duration))

	return nil
}

// Cancelled reports a cancelled run
func (f *HumanFormatter) Cancelled() error {
	if f.writer != nil {
		color.New(color.FgYellow).Fprintln(f.writer, "Task cancelled.")
	}
	return nil
}

// Error reports an error
func (f *HumanFormatter) Error(err error) error {
	if f.writer != nil {
		color.New(color.FgRed).Fprintf(f.writer, "Error: %v\n", err)
	}
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

// CompletionText renders the summary of a completed run
func CompletionText(s *models.Summary) string {
	var b strings.Builder

	b.WriteString("File comparison has been completed.\n")
	fmt.Fprintf(&b, "Files in old folder: %d.\n", s.TotalOldFiles)
	fmt.Fprintf(&b, "Files in new folder: %d.\n", s.TotalNewFiles)

	if s.Identical() {
		b.WriteString("The two folders are identical.")
	} else {
		fmt.Fprintf(&b, "Files changed in new folder: %d.\n", s.ChangedCount)
		fmt.Fprintf(&b, "Files added in new folder: %d.\n", s.AddedCount)
		fmt.Fprintf(&b, "Files deleted in new folder: %d.", s.DeletedCount)
	}

	b.WriteString("\n\nZero KB files")
	b.WriteString(pathList(s.ZeroByteFiles))
	b.WriteString("\n\nOld files that don't exist in new directory")
	b.WriteString(pathList(s.DeletedFiles))

	return b.String()
}

func pathList(paths []string) string {
	if len(paths) == 0 {
		return ": none."
	}
	return "\n" + strings.Join(paths, "\n")
}

// formatDuration formats duration in human-readable format
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
