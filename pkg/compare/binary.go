package compare

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sync"

	"github.com/sdejongh/dircompare/pkg/models"
	"github.com/sdejongh/dircompare/pkg/ratelimit"
	"github.com/sdejongh/dircompare/pkg/storage"
)

// DefaultBufferSize is the chunk size used when none is configured
const DefaultBufferSize = 64 * 1024

// BinaryComparator compares files byte-by-byte in fixed-size chunks.
// Neither file is ever loaded whole into memory.
type BinaryComparator struct {
	fs         *storage.FS
	bufferSize int
	bufferPool *sync.Pool
	limiter    *ratelimit.Limiter
}

// NewBinaryComparator creates a new byte-by-byte comparator
func NewBinaryComparator(fs *storage.FS, bufferSize int) *BinaryComparator {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &BinaryComparator{
		fs:         fs,
		bufferSize: bufferSize,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, bufferSize)
				return &buf
			},
		},
	}
}

// SetLimiter throttles every read through l. A nil limiter removes the limit.
func (c *BinaryComparator) SetLimiter(l *ratelimit.Limiter) {
	c.limiter = l
}

// FilesEqual reports whether both files have identical content
func (c *BinaryComparator) FilesEqual(ctx context.Context, pathA, pathB string) (bool, error) {
	cmp, err := c.Compare(ctx, pathA, pathB)
	if err != nil {
		return false, err
	}
	return cmp.Equal, nil
}

// Compare compares two files and reports the first differing offset
func (c *BinaryComparator) Compare(ctx context.Context, pathA, pathB string) (*Comparison, error) {
	infoA, err := c.stat(ctx, pathA)
	if err != nil {
		return nil, err
	}
	infoB, err := c.stat(ctx, pathB)
	if err != nil {
		return nil, err
	}

	// A directory on one side never equals a file on the other
	if !infoA.IsRegular() || !infoB.IsRegular() {
		return &Comparison{
			Equal:  false,
			Offset: 0,
			Reason: "not both regular files",
		}, nil
	}

	// Quick check: if sizes differ, files are different
	if infoA.Size != infoB.Size {
		return &Comparison{
			Equal:  false,
			Offset: min(infoA.Size, infoB.Size),
			Reason: fmt.Sprintf("size mismatch: %d vs %d bytes", infoA.Size, infoB.Size),
		}, nil
	}

	readerA, err := c.open(ctx, pathA)
	if err != nil {
		return nil, err
	}
	defer readerA.Close()

	readerB, err := c.open(ctx, pathB)
	if err != nil {
		return nil, err
	}
	defer readerB.Close()

	bufPtrA := c.bufferPool.Get().(*[]byte)
	defer c.bufferPool.Put(bufPtrA)
	bufA := *bufPtrA

	bufPtrB := c.bufferPool.Get().(*[]byte)
	defer c.bufferPool.Put(bufPtrB)
	bufB := *bufPtrB

	var offset int64
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		nA, errA := io.ReadFull(readerA, bufA)
		if errA != nil && !isEOF(errA) {
			return nil, models.NewIOError("read", pathA, errA)
		}
		nB, errB := io.ReadFull(readerB, bufB)
		if errB != nil && !isEOF(errB) {
			return nil, models.NewIOError("read", pathB, errB)
		}

		if !bytes.Equal(bufA[:nA], bufB[:nB]) {
			diff := firstDifference(bufA[:nA], bufB[:nB])
			return &Comparison{
				Equal:  false,
				Offset: offset + int64(diff),
				Reason: fmt.Sprintf("content differs at byte offset %d", offset+int64(diff)),
			}, nil
		}
		offset += int64(nA)

		// ReadFull only returns short when the reader is exhausted
		if errA != nil || errB != nil {
			if errA == nil || errB == nil {
				return &Comparison{
					Equal:  false,
					Offset: offset,
					Reason: fmt.Sprintf("one file ended at byte offset %d", offset),
				}, nil
			}
			break
		}
	}

	return &Comparison{
		Equal:  true,
		Offset: -1,
		Reason: fmt.Sprintf("content matches (%d bytes)", offset),
	}, nil
}

// Name returns the comparator name
func (c *BinaryComparator) Name() string {
	return "binary"
}

func (c *BinaryComparator) stat(ctx context.Context, path string) (*storage.FileInfo, error) {
	info, err := c.fs.Stat(ctx, path)
	if err != nil {
		return nil, classify("stat", path, err)
	}
	return info, nil
}

func (c *BinaryComparator) open(ctx context.Context, path string) (io.ReadCloser, error) {
	rc, err := c.fs.Open(ctx, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, classify("open", path, err)
	}
	return ratelimit.Wrap(ctx, rc, c.limiter), nil
}

// classify maps a filesystem error onto the run error taxonomy
func classify(op, path string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return models.NewFileVanished(path, err)
	}
	return models.NewIOError(op, path, err)
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}

func firstDifference(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
