package storage

import (
	"context"
	"io"
	"mime"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"
)

// sniffLen is how much of a file is read to detect its type
const sniffLen = 512

// ContentType detects a file's media type from its first bytes.
// It falls back to the extension, then to application/octet-stream.
func (l *FS) ContentType(ctx context.Context, path string) string {
	rc, err := l.Open(ctx, path)
	if err != nil {
		return typeFromExtension(path)
	}
	defer rc.Close()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(rc, buf)
	if n == 0 || (err != nil && err != io.ErrUnexpectedEOF) {
		return typeFromExtension(path)
	}

	return mimetype.Detect(buf[:n]).String()
}

func typeFromExtension(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); t != "" {
		return t
	}
	return "application/octet-stream"
}
