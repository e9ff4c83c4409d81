package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/sdejongh/dircompare/pkg/compare"
	"github.com/sdejongh/dircompare/pkg/logging"
	"github.com/sdejongh/dircompare/pkg/mirror"
	"github.com/sdejongh/dircompare/pkg/models"
	"github.com/sdejongh/dircompare/pkg/pointer"
	"github.com/sdejongh/dircompare/pkg/storage"
	"github.com/sdejongh/dircompare/pkg/workspace"
)

// DefaultEventBuffer is the capacity of the progress channel
const DefaultEventBuffer = 64

// ErrTaskReused is returned when Start is called on a task that already ran
var ErrTaskReused = errors.New("comparison task can only be started once")

// Options configures a comparison task
type Options struct {
	// FS is the filesystem holding all three roots (default: host filesystem)
	FS *storage.FS
	// Comparator decides whether two files are equal (default: binary)
	Comparator compare.Comparator
	// Pointers creates the result artifacts (default: native kind for the host)
	Pointers pointer.Creator
	Logger   logging.Logger
	Buckets  workspace.Options
	// SkipVanished counts a file that disappears mid-run as processed instead of failing the run
	SkipVanished bool
	// EventBuffer is the capacity of the Events channel; full channels drop events
	EventBuffer int
}

// Outcome is the terminal state of a task.
// Summary and Result are only set when Status is completed.
type Outcome struct {
	RunID   string
	Status  models.RunStatus
	Err     error
	Summary *models.Summary
	Result  *models.ComparisonResult
}

// Task compares one pair of trees on a single background goroutine
type Task struct {
	id          string
	oldRoot     string
	newRoot     string
	resultsRoot string
	opts        Options
	logger      logging.Logger

	counters models.ProgressCounters
	events   chan models.ProgressEvent
	done     chan struct{}

	mu              sync.Mutex
	status          models.RunStatus
	cancel          context.CancelFunc
	cancelRequested bool
	outcome         *Outcome
}

// NewTask creates an idle task. Roots are validated when the task starts.
func NewTask(oldRoot, newRoot, resultsRoot string, opts Options) *Task {
	if opts.FS == nil {
		opts.FS = storage.NewLocal()
	}
	if opts.Comparator == nil {
		opts.Comparator = compare.NewBinaryComparator(opts.FS, compare.DefaultBufferSize)
	}
	if opts.Pointers == nil {
		// auto never fails
		opts.Pointers, _ = pointer.New(pointer.KindAuto, opts.FS)
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = DefaultEventBuffer
	}

	id := uuid.New().String()

	return &Task{
		id:          id,
		oldRoot:     oldRoot,
		newRoot:     newRoot,
		resultsRoot: resultsRoot,
		opts:        opts,
		logger:      logging.OrNull(opts.Logger).WithFields(logging.Fields{"run_id": id}),
		events:      make(chan models.ProgressEvent, opts.EventBuffer),
		done:        make(chan struct{}),
		status:      models.StatusIdle,
	}
}

// ID returns the run identifier
func (t *Task) ID() string {
	return t.id
}

// Status returns the current lifecycle state
func (t *Task) Status() models.RunStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Progress returns processed and total file counts across both passes
func (t *Task) Progress() (processed, total int64) {
	ev := t.counters.Snapshot()
	return ev.Processed, ev.Total
}

// Events streams progress. The channel is closed once the task is terminal.
func (t *Task) Events() <-chan models.ProgressEvent {
	return t.events
}

// Start launches the comparison in the background
func (t *Task) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.status != models.StatusIdle {
		return ErrTaskReused
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.status = models.StatusRunning
	if t.cancelRequested {
		cancel()
	}

	go t.run(runCtx)
	return nil
}

// Cancel stops a running task. Cancelling before Start makes the task cancel immediately once started.
func (t *Task) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
		return
	}
	t.cancelRequested = true
}

// Wait blocks until the task is terminal. It must only be called after Start.
func (t *Task) Wait() *Outcome {
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.outcome
}

// Run starts the task and waits for it
func (t *Task) Run(ctx context.Context) (*Outcome, error) {
	if err := t.Start(ctx); err != nil {
		return nil, err
	}
	return t.Wait(), nil
}

func (t *Task) run(ctx context.Context) {
	startTime := time.Now()
	result := models.NewComparisonResult()

	t.logger.Info(ctx, "Comparison started", logging.Fields{
		"old":     t.oldRoot,
		"new":     t.newRoot,
		"results": t.resultsRoot,
	})

	handle, err := t.compare(ctx, result)

	var summary *models.Summary
	if err == nil {
		summary = t.createPointers(ctx, handle, result)
	}

	outcome := &Outcome{RunID: t.id}
	switch {
	case ctx.Err() != nil:
		outcome.Status = models.StatusCancelled
		outcome.Err = ctx.Err()
		t.logger.Info(ctx, "Comparison cancelled", nil)
	case err != nil:
		outcome.Status = models.StatusFailed
		outcome.Err = err
		t.logger.Error(ctx, "Comparison failed", err, nil)
	default:
		outcome.Status = models.StatusCompleted
		summary.Status = models.StatusCompleted
		summary.SetTiming(startTime, time.Now())
		outcome.Summary = summary
		outcome.Result = result
		t.logger.Info(ctx, "Comparison completed", logging.Fields{
			"changed":          summary.ChangedCount,
			"added":            summary.AddedCount,
			"deleted":          summary.DeletedCount,
			"zero_byte":        summary.ZeroByteCount,
			"pointer_failures": len(summary.PointerFailures),
			"duration_ms":      summary.DurationMs,
		})
	}

	t.counters.Finish(outcome.Status == models.StatusCompleted)
	t.publish()

	t.mu.Lock()
	t.status = outcome.Status
	t.outcome = outcome
	cancel := t.cancel
	t.mu.Unlock()

	// Releases the context and stops anything still bound to it
	cancel()

	close(t.events)
	close(t.done)
}

// compare prepares the workspace, counts both trees and runs both passes
func (t *Task) compare(ctx context.Context, result *models.ComparisonResult) (*workspace.Handle, error) {
	fs := t.opts.FS

	t.counters.SetPhase(models.PhaseSetup)
	t.publish()

	handle, err := workspace.Prepare(ctx, fs, t.oldRoot, t.newRoot, t.resultsRoot, t.opts.Buckets, t.logger)
	if err != nil {
		return nil, err
	}

	t.counters.SetPhase(models.PhaseCounting)
	t.publish()

	var totalNew, totalOld int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		totalNew, err = CountFiles(gctx, fs, handle.Pair.NewRoot)
		return err
	})
	g.Go(func() (err error) {
		totalOld, err = CountFiles(gctx, fs, handle.Pair.OldRoot)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	t.counters.TotalNewFiles.Store(totalNew)
	t.counters.TotalOldFiles.Store(totalOld)

	t.logger.Debug(ctx, "Files counted", logging.Fields{"old": totalOld, "new": totalNew})

	w := &walker{
		fs:           fs,
		resolver:     mirror.NewResolver(fs, handle.Pair),
		comparator:   t.opts.Comparator,
		counters:     &t.counters,
		result:       result,
		logger:       t.logger,
		skipVanished: t.opts.SkipVanished,
		notify:       t.publish,
	}

	t.counters.SetPhase(models.PhaseForward)
	t.publish()
	if err := w.forward(ctx, handle.Pair.NewRoot); err != nil {
		return nil, err
	}

	t.counters.SetPhase(models.PhaseBackward)
	t.publish()
	if err := w.backward(ctx, handle.Pair.OldRoot); err != nil {
		return nil, err
	}

	return handle, nil
}

// createPointers writes one pointer per new and changed file.
// Failures are collected in the summary and do not stop the run. When two
// targets map to the same pointer name the later one wins and the earlier
// one is recorded as a failure.
func (t *Task) createPointers(ctx context.Context, handle *workspace.Handle, result *models.ComparisonResult) *models.Summary {
	summary := models.NewSummary(t.id, handle.Pair, &t.counters, result)
	for _, d := range handle.Diagnostics {
		summary.Diagnostics = append(summary.Diagnostics, d.Error())
	}

	t.counters.SetPhase(models.PhasePointers)
	t.publish()

	batches := []struct {
		reason models.PointerReason
		paths  []string
	}{
		{models.ReasonFileCreated, summary.NewFiles},
		{models.ReasonFileChanged, summary.ChangedFiles},
	}

	type placed struct {
		target string
		reason models.PointerReason
	}
	created := make(map[string]placed)

	creator := t.opts.Pointers
	for _, batch := range batches {
		bucket := handle.BucketFor(batch.reason)
		for _, target := range batch.paths {
			if ctx.Err() != nil {
				return summary
			}

			dest := pointer.Destination(creator, bucket, target)
			if prev, ok := created[dest]; ok {
				t.pointerFailed(ctx, summary, prev.target, dest, prev.reason,
					fmt.Errorf("pointer replaced by the one to %s", target))
				delete(created, dest)
			}

			if err := creator.CreatePointer(ctx, target, dest); err != nil {
				t.pointerFailed(ctx, summary, target, dest, batch.reason, err)
				continue
			}
			created[dest] = placed{target: target, reason: batch.reason}
		}
	}

	return summary
}

func (t *Task) pointerFailed(ctx context.Context, summary *models.Summary, target, dest string, reason models.PointerReason, err error) {
	summary.PointerFailures = append(summary.PointerFailures, models.PointerFailure{
		Target:      target,
		Destination: dest,
		Reason:      reason,
		Error:       models.NewPointerError(target, err).Error(),
	})
	t.logger.Warn(ctx, "Pointer creation failed", logging.Fields{
		"target":      target,
		"destination": dest,
		"error":       err.Error(),
	})
}

// publish sends a snapshot without blocking the worker
func (t *Task) publish() {
	select {
	case t.events <- t.counters.Snapshot():
	default:
	}
}
