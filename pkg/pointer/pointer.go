// Package pointer creates lightweight references to files in the new tree.
package pointer

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/sdejongh/dircompare/internal/platform"
	"github.com/sdejongh/dircompare/pkg/storage"
)

// Kind selects a pointer implementation
type Kind string

const (
	KindAuto    Kind = "auto"
	KindSymlink Kind = "symlink"
	KindURL     Kind = "url"
	KindDesktop Kind = "desktop"
)

// Creator makes a pointer artifact at destination referring to target
type Creator interface {
	// CreatePointer creates or replaces the pointer at destination
	CreatePointer(ctx context.Context, target, destination string) error

	// Extension is appended to the stripped base name of the target
	Extension() string

	// Name returns the kind of pointer created
	Name() string
}

// New returns the creator for kind. KindAuto picks the native flavour of the host.
func New(kind Kind, fs *storage.FS) (Creator, error) {
	if kind == "" || kind == KindAuto {
		kind = nativeKind(runtime.GOOS)
	}

	switch kind {
	case KindSymlink:
		return &SymlinkCreator{fs: fs}, nil
	case KindURL:
		return &URLShortcutCreator{fs: fs}, nil
	case KindDesktop:
		return &DesktopEntryCreator{fs: fs}, nil
	default:
		return nil, fmt.Errorf("unknown pointer kind: %s", kind)
	}
}

func nativeKind(goos string) Kind {
	switch goos {
	case "windows":
		return KindURL
	case "darwin":
		return KindSymlink
	default:
		return KindDesktop
	}
}

// Destination returns the pointer path for target inside bucket
func Destination(c Creator, bucket, target string) string {
	return filepath.Join(bucket, platform.PointerName(target, c.Extension()))
}

// SymlinkCreator links to the target
type SymlinkCreator struct {
	fs *storage.FS
}

func (c *SymlinkCreator) CreatePointer(ctx context.Context, target, destination string) error {
	if err := c.fs.RemoveAll(ctx, destination); err != nil {
		return err
	}
	return c.fs.Symlink(ctx, target, destination)
}

func (c *SymlinkCreator) Extension() string { return "" }

func (c *SymlinkCreator) Name() string { return string(KindSymlink) }

// URLShortcutCreator writes an internet shortcut (.url) as understood by Windows Explorer
type URLShortcutCreator struct {
	fs *storage.FS
}

func (c *URLShortcutCreator) CreatePointer(ctx context.Context, target, destination string) error {
	content := "[InternetShortcut]\r\nURL=" + fileURL(target) + "\r\n"
	return replaceFile(ctx, c.fs, destination, content)
}

func (c *URLShortcutCreator) Extension() string { return ".url" }

func (c *URLShortcutCreator) Name() string { return string(KindURL) }

// DesktopEntryCreator writes a freedesktop.org link entry
type DesktopEntryCreator struct {
	fs *storage.FS
}

func (c *DesktopEntryCreator) CreatePointer(ctx context.Context, target, destination string) error {
	var b strings.Builder
	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Link\n")
	b.WriteString("Name=" + filepath.Base(target) + "\n")
	b.WriteString("URL=" + fileURL(target) + "\n")
	return replaceFile(ctx, c.fs, destination, b.String())
}

func (c *DesktopEntryCreator) Extension() string { return ".desktop" }

func (c *DesktopEntryCreator) Name() string { return string(KindDesktop) }

func replaceFile(ctx context.Context, fs *storage.FS, destination, content string) error {
	if err := fs.RemoveAll(ctx, destination); err != nil {
		return err
	}
	return fs.WriteFile(ctx, destination, []byte(content))
}

// fileURL turns an absolute path into a file:// URL
func fileURL(path string) string {
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p}
	return u.String()
}
