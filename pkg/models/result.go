package models

import "sort"

// PathSet is a set of absolute paths
type PathSet map[string]struct{}

// Add inserts a path; adding twice is a no-op
func (s PathSet) Add(path string) {
	s[path] = struct{}{}
}

// Contains reports whether path is a member
func (s PathSet) Contains(path string) bool {
	_, ok := s[path]
	return ok
}

// Len returns the number of members
func (s PathSet) Len() int {
	return len(s)
}

// Sorted returns the members in lexical order
func (s PathSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// ComparisonResult accumulates the classification of one run.
// A new-tree path is never in both NewFiles and ChangedFiles;
// ZeroByteFiles is independent of the other two.
type ComparisonResult struct {
	NewFiles      PathSet
	ChangedFiles  PathSet
	ZeroByteFiles PathSet
	DeletedFiles  PathSet
}

// NewComparisonResult returns an empty result
func NewComparisonResult() *ComparisonResult {
	return &ComparisonResult{
		NewFiles:      make(PathSet),
		ChangedFiles:  make(PathSet),
		ZeroByteFiles: make(PathSet),
		DeletedFiles:  make(PathSet),
	}
}

// Identical reports whether nothing was added, changed or deleted
func (r *ComparisonResult) Identical() bool {
	return r.NewFiles.Len()+r.ChangedFiles.Len()+r.DeletedFiles.Len() == 0
}

// PointerReason tells which results bucket a pointer goes to
type PointerReason string

const (
	// ReasonFileCreated marks a file that only exists in the new tree
	ReasonFileCreated PointerReason = "created"
	// ReasonFileChanged marks a file whose content differs between trees
	ReasonFileChanged PointerReason = "changed"
)
