package compare

import (
	"context"
)

// Comparison holds the result of comparing two files
type Comparison struct {
	// Equal is true when both files hold exactly the same bytes
	Equal bool
	// Offset is the first differing byte, or -1 when the files are equal
	Offset int64
	// Reason explains why files differ or match
	Reason string
}

// Comparator defines the interface for file content comparison
type Comparator interface {
	// FilesEqual reports whether two files have byte-identical content
	FilesEqual(ctx context.Context, pathA, pathB string) (bool, error)

	// Name returns the name of the comparison method
	Name() string
}
