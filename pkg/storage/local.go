package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"syscall"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// FS gives the comparison engine access to a filesystem with absolute paths
type FS struct {
	fs Filesystem
}

// New wraps a billy filesystem
func New(filesystem Filesystem) *FS {
	return &FS{fs: filesystem}
}

// NewLocal returns the host filesystem
func NewLocal() *FS {
	return New(osfs.Default)
}

// NewMemory returns an empty in-memory filesystem
func NewMemory() *FS {
	return New(memfs.New())
}

// Stat returns metadata, following symbolic links
func (l *FS) Stat(ctx context.Context, path string) (*FileInfo, error) {
	info, err := l.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return newFileInfo(path, info), nil
}

// Exists checks if a file or directory exists
func (l *FS) Exists(ctx context.Context, path string) (bool, error) {
	_, err := l.fs.Stat(path)
	if err == nil {
		return true, nil
	}
	// A file where a parent directory is expected means the path cannot exist
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check existence of %s: %w", path, err)
}

// ReadDir lists the direct children of a directory without following links
func (l *FS) ReadDir(ctx context.Context, path string) ([]FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	infos, err := l.fs.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", path, err)
	}

	entries := make([]FileInfo, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, *newFileInfo(filepath.Join(path, info.Name()), info))
	}
	return entries, nil
}

// Open opens a file for reading
func (l *FS) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := l.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return file, nil
}

// MkdirAll creates a directory and all necessary parents
func (l *FS) MkdirAll(ctx context.Context, path string) error {
	if err := l.fs.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// RemoveAll removes a file or a directory with everything inside it.
// A missing path is not an error.
func (l *FS) RemoveAll(ctx context.Context, path string) error {
	if err := util.RemoveAll(l.fs, path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

// WriteFile creates or truncates a file with the given content
func (l *FS) WriteFile(ctx context.Context, path string, data []byte) error {
	if err := util.WriteFile(l.fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Symlink creates link pointing at target
func (l *FS) Symlink(ctx context.Context, target, link string) error {
	if err := l.fs.Symlink(target, link); err != nil {
		return fmt.Errorf("failed to link %s: %w", link, err)
	}
	return nil
}

// Readlink returns the target of a symbolic link
func (l *FS) Readlink(ctx context.Context, link string) (string, error) {
	target, err := l.fs.Readlink(link)
	if err != nil {
		return "", fmt.Errorf("failed to read link %s: %w", link, err)
	}
	return target, nil
}

// Close releases resources (no-op for billy filesystems)
func (l *FS) Close() error {
	return nil
}
