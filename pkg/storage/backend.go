package storage

import (
	"io/fs"
	"os"
	"time"

	"github.com/go-git/go-billy/v5"
)

// FileInfo represents metadata about a file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
	Mode    os.FileMode
	IsDir   bool

	sys fs.FileInfo
}

// IsRegular reports whether the entry is a plain file
func (fi *FileInfo) IsRegular() bool {
	return fi.Mode.IsRegular()
}

// IsSymlink reports whether the entry is a symbolic link (as listed, not followed)
func (fi *FileInfo) IsSymlink() bool {
	return fi.Mode&os.ModeSymlink != 0
}

// SameFile reports whether both entries describe the same file on disk.
// It is always false for filesystems without device and inode numbers.
func (fi *FileInfo) SameFile(other *FileInfo) bool {
	if fi == nil || other == nil || fi.sys == nil || other.sys == nil {
		return false
	}
	return os.SameFile(fi.sys, other.sys)
}

// Filesystem is the subset of go-billy the comparison needs.
// osfs backs it on disk and memfs in tests.
type Filesystem interface {
	billy.Basic
	billy.Dir
	billy.Symlink
}

func newFileInfo(path string, info fs.FileInfo) *FileInfo {
	return &FileInfo{
		Path:    path,
		Name:    info.Name(),
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Mode:    info.Mode(),
		IsDir:   info.IsDir(),
		sys:     info,
	}
}
