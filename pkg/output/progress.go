package output

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"

	"github.com/sdejongh/dircompare/pkg/models"
)

const progressTemplate = `{{string . "phase"}} {{bar . "[" "=" ">" " " "]"}} {{percent . }} {{string . "counts"}}`

// getUpdateInterval returns the progress refresh interval based on OS
// Windows terminals have higher latency with ANSI sequences, so we use a longer interval
func getUpdateInterval() time.Duration {
	if runtime.GOOS == "windows" {
		return 300 * time.Millisecond
	}
	return 100 * time.Millisecond
}

// ProgressFormatter draws a progress bar and prints the completion message
type ProgressFormatter struct {
	mu       sync.Mutex
	writer   io.Writer
	bar      *pb.ProgressBar
	human    *HumanFormatter
	pointers bool
}

// NewProgressFormatter creates a new progress bar formatter
func NewProgressFormatter() *ProgressFormatter {
	return &ProgressFormatter{human: NewHumanFormatter()}
}

// Start draws an empty bar
func (f *ProgressFormatter) Start(writer io.Writer, pair models.DirectoryPair) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if writer == nil {
		writer = os.Stdout
	}
	f.writer = writer
	f.human.Start(writer, pair)

	// The bar tracks the weighted percentage, not file counts
	f.bar = pb.New64(100).
		SetTemplateString(progressTemplate).
		SetWriter(writer).
		SetRefreshRate(getUpdateInterval()).
		SetMaxWidth(terminalWidth(writer))
	f.bar.Set("phase", models.PhaseSetup.String())
	f.bar.Start()

	return nil
}

// Progress moves the bar
func (f *ProgressFormatter) Progress(event models.ProgressEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bar == nil {
		return nil
	}

	if event.Phase == models.PhasePointers {
		if !f.pointers {
			f.pointers = true
			f.bar.Set("phase", "Creating results in results folder...")
		}
	} else {
		f.bar.Set("phase", event.Phase.String())
	}

	f.bar.Set("counts", fmt.Sprintf("Processed %d/%d files.", event.Processed, event.Total))
	f.bar.SetCurrent(int64(event.Percent))
	return nil
}

// Complete stops the bar and prints the completion message
func (f *ProgressFormatter) Complete(summary *models.Summary) error {
	f.stop()
	return f.human.Complete(summary)
}

// Cancelled stops the bar and reports the cancellation
func (f *ProgressFormatter) Cancelled() error {
	f.stop()
	return f.human.Cancelled()
}

// Error stops the bar and reports the error
func (f *ProgressFormatter) Error(err error) error {
	f.stop()
	return f.human.Error(err)
}

// Name returns the formatter name
func (f *ProgressFormatter) Name() string {
	return "progress"
}

func (f *ProgressFormatter) stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.bar != nil {
		f.bar.Finish()
		f.bar = nil
	}
}

// terminalWidth returns the width of writer when it is a terminal, 120 otherwise
func terminalWidth(writer io.Writer) int {
	if file, ok := writer.(*os.File); ok {
		if width, _, err := term.GetSize(int(file.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return 120
}

// IsTerminal reports whether writer is an interactive terminal
func IsTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}
