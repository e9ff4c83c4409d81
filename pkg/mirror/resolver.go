// Package mirror maps a path in one tree onto the same relative path in the other tree.
package mirror

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sdejongh/dircompare/pkg/models"
	"github.com/sdejongh/dircompare/pkg/storage"
)

// Resolver locates counterparts between the old and the new tree.
// Nothing is cached: every lookup hits the filesystem.
type Resolver struct {
	fs      *storage.FS
	oldRoot string
	newRoot string
}

// NewResolver creates a resolver for the roots of pair
func NewResolver(fs *storage.FS, pair models.DirectoryPair) *Resolver {
	return &Resolver{
		fs:      fs,
		oldRoot: pair.OldRoot,
		newRoot: pair.NewRoot,
	}
}

// MirroredPath returns the path in the other tree without checking existence
func (r *Resolver) MirroredPath(path string, sourceIsOld bool) (string, error) {
	sourceRoot, otherRoot := r.newRoot, r.oldRoot
	if sourceIsOld {
		sourceRoot, otherRoot = r.oldRoot, r.newRoot
	}

	rel, err := filepath.Rel(sourceRoot, path)
	if err != nil {
		return "", fmt.Errorf("failed to relativize %s against %s: %w", path, sourceRoot, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside of %s", path, sourceRoot)
	}

	return filepath.Join(otherRoot, rel), nil
}

// LocateInOther returns the counterpart of path in the other tree and whether it exists
func (r *Resolver) LocateInOther(ctx context.Context, path string, sourceIsOld bool) (string, bool, error) {
	other, err := r.MirroredPath(path, sourceIsOld)
	if err != nil {
		return "", false, err
	}

	exists, err := r.fs.Exists(ctx, other)
	if err != nil {
		return "", false, models.NewIOError("locate", other, err)
	}
	if !exists {
		return "", false, nil
	}
	return other, true, nil
}

// LocateOld finds the old-tree counterpart of a new-tree path
func (r *Resolver) LocateOld(ctx context.Context, newPath string) (string, bool, error) {
	return r.LocateInOther(ctx, newPath, false)
}

// LocateNew finds the new-tree counterpart of an old-tree path
func (r *Resolver) LocateNew(ctx context.Context, oldPath string) (string, bool, error) {
	return r.LocateInOther(ctx, oldPath, true)
}
