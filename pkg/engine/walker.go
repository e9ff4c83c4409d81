package engine

import (
	"context"
	"errors"

	"github.com/sdejongh/dircompare/pkg/compare"
	"github.com/sdejongh/dircompare/pkg/logging"
	"github.com/sdejongh/dircompare/pkg/mirror"
	"github.com/sdejongh/dircompare/pkg/models"
	"github.com/sdejongh/dircompare/pkg/storage"
)

// walker runs the forward and backward passes of one run.
// It is used by a single goroutine.
type walker struct {
	fs           *storage.FS
	resolver     *mirror.Resolver
	comparator   compare.Comparator
	counters     *models.ProgressCounters
	result       *models.ComparisonResult
	logger       logging.Logger
	skipVanished bool

	// notify publishes progress after each processed file
	notify func()
}

// forward classifies every file of the new tree as new, changed or unchanged
func (w *walker) forward(ctx context.Context, newRoot string) error {
	return walkFiles(ctx, w.fs, newRoot, func(ctx context.Context, file storage.FileInfo) error {
		if err := w.classify(ctx, file); err != nil {
			return err
		}
		w.counters.FilesCompared.Add(1)
		w.notify()
		return nil
	})
}

func (w *walker) classify(ctx context.Context, file storage.FileInfo) error {
	oldPath, exists, err := w.resolver.LocateOld(ctx, file.Path)
	if err != nil {
		return err
	}

	if file.Size == 0 {
		w.result.ZeroByteFiles.Add(file.Path)
	}

	if !exists {
		w.result.NewFiles.Add(file.Path)
		w.logger.Debug(ctx, "New file", logging.Fields{"path": file.Path})
		return nil
	}

	equal, err := w.comparator.FilesEqual(ctx, oldPath, file.Path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if w.skipVanished && errors.Is(err, models.ErrFileVanished) {
			w.logger.Warn(ctx, "File vanished during comparison, skipping", logging.Fields{
				"path":  file.Path,
				"error": err.Error(),
			})
			return nil
		}
		return err
	}

	if !equal {
		w.result.ChangedFiles.Add(file.Path)
		w.logger.Debug(ctx, "Changed file", logging.Fields{"path": file.Path, "old": oldPath})
	}
	return nil
}

// backward records every file of the old tree that has no counterpart in the new tree
func (w *walker) backward(ctx context.Context, oldRoot string) error {
	return walkFiles(ctx, w.fs, oldRoot, func(ctx context.Context, file storage.FileInfo) error {
		_, exists, err := w.resolver.LocateNew(ctx, file.Path)
		if err != nil {
			return err
		}
		if !exists {
			w.result.DeletedFiles.Add(file.Path)
			w.logger.Debug(ctx, "Deleted file", logging.Fields{"path": file.Path})
		}
		w.counters.FilesChecked.Add(1)
		w.notify()
		return nil
	})
}
