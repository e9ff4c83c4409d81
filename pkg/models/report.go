package models

import (
	"time"
)

// RunStatus represents the lifecycle state of a comparison run
type RunStatus string

const (
	// StatusIdle indicates the run has not started
	StatusIdle RunStatus = "idle"
	// StatusRunning indicates the run is in progress
	StatusRunning RunStatus = "running"
	// StatusCompleted indicates both passes finished
	StatusCompleted RunStatus = "completed"
	// StatusCancelled indicates the caller cancelled the run
	StatusCancelled RunStatus = "cancelled"
	// StatusFailed indicates the run stopped on an error
	StatusFailed RunStatus = "failed"
)

// IsTerminal reports whether the status can no longer change
func (s RunStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusFailed:
		return true
	default:
		return false
	}
}

// ExitCode returns the appropriate exit code for the run status
func (s RunStatus) ExitCode() int {
	switch s {
	case StatusCompleted:
		return 0
	case StatusFailed:
		return 2
	case StatusCancelled:
		return 3
	default:
		return 2
	}
}

// PointerFailure records a pointer artifact that could not be created
type PointerFailure struct {
	Target      string        `json:"target"`
	Destination string        `json:"destination"`
	Reason      PointerReason `json:"reason"`
	Error       string        `json:"error"`
}

// Summary is the terminal report of a completed run
type Summary struct {
	RunID       string        `json:"run_id"`
	OldRoot     string        `json:"old_root"`
	NewRoot     string        `json:"new_root"`
	ResultsRoot string        `json:"results_root"`
	StartTime   time.Time     `json:"start_time"`
	EndTime     time.Time     `json:"end_time"`
	Duration    time.Duration `json:"-"`
	DurationMs  int64         `json:"duration_ms"`
	Status      RunStatus     `json:"status"`

	TotalOldFiles int64 `json:"total_old_files"`
	TotalNewFiles int64 `json:"total_new_files"`

	ChangedCount  int `json:"changed_count"`
	AddedCount    int `json:"added_count"`
	DeletedCount  int `json:"deleted_count"`
	ZeroByteCount int `json:"zero_byte_count"`

	NewFiles      []string `json:"new_files"`
	ChangedFiles  []string `json:"changed_files"`
	ZeroByteFiles []string `json:"zero_byte_files"`
	DeletedFiles  []string `json:"deleted_files"`

	PointerFailures []PointerFailure `json:"pointer_failures,omitempty"`
	Diagnostics     []string         `json:"diagnostics,omitempty"`
}

// NewSummary builds a summary from a finished result
func NewSummary(runID string, pair DirectoryPair, counters *ProgressCounters, result *ComparisonResult) *Summary {
	return &Summary{
		RunID:         runID,
		OldRoot:       pair.OldRoot,
		NewRoot:       pair.NewRoot,
		ResultsRoot:   pair.ResultsRoot,
		Status:        StatusCompleted,
		TotalOldFiles: counters.TotalOldFiles.Load(),
		TotalNewFiles: counters.TotalNewFiles.Load(),
		ChangedCount:  result.ChangedFiles.Len(),
		AddedCount:    result.NewFiles.Len(),
		DeletedCount:  result.DeletedFiles.Len(),
		ZeroByteCount: result.ZeroByteFiles.Len(),
		NewFiles:      result.NewFiles.Sorted(),
		ChangedFiles:  result.ChangedFiles.Sorted(),
		ZeroByteFiles: result.ZeroByteFiles.Sorted(),
		DeletedFiles:  result.DeletedFiles.Sorted(),
	}
}

// SetTiming records start and end of the run
func (s *Summary) SetTiming(start, end time.Time) {
	s.StartTime = start
	s.EndTime = end
	s.Duration = end.Sub(start)
	s.DurationMs = s.Duration.Milliseconds()
}

// Identical reports whether the two trees hold the same files with the same content
func (s *Summary) Identical() bool {
	return s.ChangedCount+s.AddedCount+s.DeletedCount == 0
}

// ExitCode is 1 when the run completed but some pointers could not be created
func (s *Summary) ExitCode() int {
	if s.Status == StatusCompleted && len(s.PointerFailures) > 0 {
		return 1
	}
	return s.Status.ExitCode()
}
