package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/sdejongh/dircompare/pkg/models"
)

// JSONFormatter writes one JSON event per line for automation and scripting
type JSONFormatter struct {
	writer      io.Writer
	encoder     *json.Encoder
	lastPercent int
}

// JSONEvent represents a single event in the JSON output stream
type JSONEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
	Data      any       `json:"data,omitempty"`
}

// JSONProgressData represents the data for a progress event
type JSONProgressData struct {
	Phase     string `json:"phase"`
	Processed int64  `json:"processed"`
	Total     int64  `json:"total"`
	Percent   int    `json:"percent"`
}

// JSONErrorData represents the data for an error event
type JSONErrorData struct {
	Error string `json:"error"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{lastPercent: -1}
}

// Start initializes the formatter
func (f *JSONFormatter) Start(writer io.Writer, pair models.DirectoryPair) error {
	if writer == nil {
		writer = os.Stdout
	}
	f.writer = writer
	f.encoder = json.NewEncoder(writer)

	return f.emit("start", pair)
}

// Progress emits an event each time the percentage moves
func (f *JSONFormatter) Progress(event models.ProgressEvent) error {
	if f.encoder == nil || event.Percent == f.lastPercent {
		return nil
	}
	f.lastPercent = event.Percent

	return f.emit("progress", JSONProgressData{
		Phase:     event.Phase.String(),
		Processed: event.Processed,
		Total:     event.Total,
		Percent:   event.Percent,
	})
}

// Complete emits the summary
func (f *JSONFormatter) Complete(summary *models.Summary) error {
	return f.emit("summary", summary)
}

// Cancelled emits a cancellation event
func (f *JSONFormatter) Cancelled() error {
	return f.emit("cancelled", nil)
}

// Error emits an error event
func (f *JSONFormatter) Error(err error) error {
	return f.emit("error", JSONErrorData{Error: err.Error()})
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}

func (f *JSONFormatter) emit(eventType string, data any) error {
	if f.encoder == nil {
		f.writer = os.Stdout
		f.encoder = json.NewEncoder(f.writer)
	}
	return f.encoder.Encode(JSONEvent{
		Timestamp: time.Now().UTC(),
		Type:      eventType,
		Data:      data,
	})
}
