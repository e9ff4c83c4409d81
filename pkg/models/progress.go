package models

import "sync/atomic"

// Phase identifies the stage a comparison run is in
type Phase int32

const (
	PhaseSetup Phase = iota
	PhaseCounting
	PhaseForward
	PhaseBackward
	PhasePointers
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseSetup:
		return "setup"
	case PhaseCounting:
		return "counting"
	case PhaseForward:
		return "comparing"
	case PhaseBackward:
		return "checking deletions"
	case PhasePointers:
		return "creating pointers"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// ProgressEvent is a point-in-time view of a run's progress
type ProgressEvent struct {
	Phase     Phase
	Processed int64
	Total     int64
	Percent   int
}

// ProgressCounters are written by the worker and read by observers.
// The forward pass accounts for 90% of the progress, the backward pass for 10%.
type ProgressCounters struct {
	FilesCompared atomic.Int64
	TotalNewFiles atomic.Int64
	FilesChecked  atomic.Int64
	TotalOldFiles atomic.Int64

	phase atomic.Int32
	final atomic.Int32
}

// SetPhase records the current stage
func (c *ProgressCounters) SetPhase(p Phase) {
	c.phase.Store(int32(p))
}

// Phase returns the current stage
func (c *ProgressCounters) Phase() Phase {
	return Phase(c.phase.Load())
}

// Finish moves to PhaseDone. A run that did not complete keeps the
// percentage it had reached.
func (c *ProgressCounters) Finish(completed bool) {
	percent := 100
	if !completed {
		percent = c.Percent()
	}
	c.final.Store(int32(percent))
	c.SetPhase(PhaseDone)
}

// Percent returns the weighted completion percentage
func (c *ProgressCounters) Percent() int {
	switch c.Phase() {
	case PhaseSetup, PhaseCounting:
		return 0
	case PhaseForward:
		total := c.TotalNewFiles.Load()
		if total == 0 {
			return 90
		}
		return int(min(c.FilesCompared.Load()*90/total, 90))
	case PhaseBackward:
		total := c.TotalOldFiles.Load()
		if total == 0 {
			return 100
		}
		return int(min(90+c.FilesChecked.Load()*10/total, 100))
	case PhaseDone:
		return int(c.final.Load())
	default:
		return 100
	}
}

// Snapshot returns processed and total file counts across both passes
func (c *ProgressCounters) Snapshot() ProgressEvent {
	return ProgressEvent{
		Phase:     c.Phase(),
		Processed: c.FilesCompared.Load() + c.FilesChecked.Load(),
		Total:     c.TotalNewFiles.Load() + c.TotalOldFiles.Load(),
		Percent:   c.Percent(),
	}
}
