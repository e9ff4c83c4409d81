// Package workspace validates the comparison roots and prepares the results buckets.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/sdejongh/dircompare/internal/platform"
	"github.com/sdejongh/dircompare/pkg/logging"
	"github.com/sdejongh/dircompare/pkg/models"
	"github.com/sdejongh/dircompare/pkg/storage"
)

const (
	// DefaultNewBucket holds pointers to files that only exist in the new tree
	DefaultNewBucket = "New files"
	// DefaultChangedBucket holds pointers to files whose content changed
	DefaultChangedBucket = "Changed files"
)

// Options controls the bucket names under the results root
type Options struct {
	NewBucket     string
	ChangedBucket string
}

func (o Options) withDefaults() Options {
	if o.NewBucket == "" {
		o.NewBucket = DefaultNewBucket
	}
	if o.ChangedBucket == "" {
		o.ChangedBucket = DefaultChangedBucket
	}
	return o
}

// Handle is a prepared workspace
type Handle struct {
	Pair            models.DirectoryPair
	NewFilesDir     string
	ChangedFilesDir string

	// Diagnostics lists entries that could not be removed while clearing the buckets
	Diagnostics []error
}

// BucketFor returns the bucket directory for a pointer reason
func (h *Handle) BucketFor(reason models.PointerReason) string {
	if reason == models.ReasonFileChanged {
		return h.ChangedFilesDir
	}
	return h.NewFilesDir
}

// Prepare checks the three roots, creates both buckets and empties them.
// Failing to clear a single entry does not fail the call.
func Prepare(ctx context.Context, fs *storage.FS, oldRoot, newRoot, resultsRoot string, opts Options, logger logging.Logger) (*Handle, error) {
	logger = logging.OrNull(logger)
	opts = opts.withDefaults()

	pair, err := models.NewDirectoryPair(oldRoot, newRoot, resultsRoot)
	if err != nil {
		return nil, err
	}

	if err := requireDirectory(ctx, fs, "old", pair.OldRoot); err != nil {
		return nil, err
	}
	if err := requireDirectory(ctx, fs, "new", pair.NewRoot); err != nil {
		return nil, err
	}

	if info, err := fs.Stat(ctx, pair.ResultsRoot); err == nil && !info.IsDir {
		return nil, models.NewWorkspaceError(pair.ResultsRoot, fmt.Errorf("%s is not a directory", pair.ResultsRoot))
	}

	if platform.IsWithin(pair.OldRoot, pair.ResultsRoot) || platform.IsWithin(pair.NewRoot, pair.ResultsRoot) {
		logger.Warn(ctx, "Results directory is inside a compared tree, pointers will be compared on later runs", logging.Fields{
			"results": pair.ResultsRoot,
		})
	}

	h := &Handle{
		Pair:            pair,
		NewFilesDir:     filepath.Join(pair.ResultsRoot, opts.NewBucket),
		ChangedFilesDir: filepath.Join(pair.ResultsRoot, opts.ChangedBucket),
	}

	for _, bucket := range []string{h.NewFilesDir, h.ChangedFilesDir} {
		if err := fs.MkdirAll(ctx, bucket); err != nil {
			return nil, models.NewWorkspaceError(bucket, err)
		}
		info, err := fs.Stat(ctx, bucket)
		if err != nil {
			return nil, models.NewWorkspaceError(bucket, err)
		}
		if !info.IsDir {
			return nil, models.NewWorkspaceError(bucket, errors.New("bucket is not a directory"))
		}

		if err := h.clear(ctx, fs, bucket, logger); err != nil {
			return nil, err
		}
	}

	logger.Debug(ctx, "Workspace prepared", logging.Fields{
		"new_bucket":     h.NewFilesDir,
		"changed_bucket": h.ChangedFilesDir,
		"diagnostics":    len(h.Diagnostics),
	})

	return h, nil
}

func requireDirectory(ctx context.Context, fs *storage.FS, name, path string) error {
	info, err := fs.Stat(ctx, path)
	if err != nil || !info.IsDir {
		return models.NewInvalidDirectory(name, path)
	}
	return nil
}

// clear removes every entry inside bucket, keeping the bucket itself
func (h *Handle) clear(ctx context.Context, fs *storage.FS, bucket string, logger logging.Logger) error {
	entries, err := fs.ReadDir(ctx, bucket)
	if err != nil {
		return models.NewWorkspaceError(bucket, err)
	}

	for _, entry := range entries {
		if err := fs.RemoveAll(ctx, entry.Path); err != nil {
			h.Diagnostics = append(h.Diagnostics, err)
			logger.Warn(ctx, "Can't delete previous result", logging.Fields{
				"path":  entry.Path,
				"error": err.Error(),
			})
		}
	}
	return nil
}
