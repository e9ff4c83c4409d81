package output

import (
	"fmt"
	"io"

	"github.com/sdejongh/dircompare/pkg/models"
)

// Formatter defines the interface for output formatting
// Implementations include human-readable, progress bar and JSON formatters
type Formatter interface {
	// Start initializes the formatter for a new comparison
	Start(writer io.Writer, pair models.DirectoryPair) error

	// Progress reports progress during the comparison
	Progress(event models.ProgressEvent) error

	// Complete finalizes output and displays the summary
	Complete(summary *models.Summary) error

	// Cancelled reports that the run was stopped by the user
	Cancelled() error

	// Error reports the error that stopped the run
	Error(err error) error

	// Name returns the formatter name
	Name() string
}

// New returns the formatter for format. A progress bar replaces the
// line-based human output when progress is set.
func New(format string, progress bool) (Formatter, error) {
	switch format {
	case "", "human":
		if progress {
			return NewProgressFormatter(), nil
		}
		return NewHumanFormatter(), nil
	case "json":
		return NewJSONFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", format)
	}
}

// Observe forwards events to f until the channel is closed
func Observe(f Formatter, events <-chan models.ProgressEvent) {
	for ev := range events {
		f.Progress(ev)
	}
}

// Finish reports the terminal state of a run through f
func Finish(f Formatter, status models.RunStatus, summary *models.Summary, err error) error {
	switch status {
	case models.StatusCompleted:
		return f.Complete(summary)
	case models.StatusCancelled:
		return f.Cancelled()
	default:
		if err == nil {
			err = fmt.Errorf("there are no comparison results")
		}
		return f.Error(err)
	}
}
