package models

import (
	"fmt"
	"path/filepath"

	"github.com/sdejongh/dircompare/internal/platform"
)

// DirectoryPair holds the three roots of a comparison run.
// All paths are absolute and cleaned; the value is not mutated after construction.
type DirectoryPair struct {
	OldRoot     string `json:"old_root" yaml:"old_root"`
	NewRoot     string `json:"new_root" yaml:"new_root"`
	ResultsRoot string `json:"results_root" yaml:"results_root"`
}

// NewDirectoryPair resolves the three roots to absolute paths.
// It only checks that every root was supplied; existence is checked by the workspace.
func NewDirectoryPair(oldRoot, newRoot, resultsRoot string) (DirectoryPair, error) {
	roots := []struct {
		name  string
		value string
	}{
		{"old", oldRoot},
		{"new", newRoot},
		{"results", resultsRoot},
	}

	abs := make([]string, len(roots))
	for i, root := range roots {
		if root.value == "" {
			return DirectoryPair{}, NewMissingArgument(root.name)
		}
		p, err := filepath.Abs(platform.NormalizePath(root.value))
		if err != nil {
			return DirectoryPair{}, fmt.Errorf("failed to resolve %s path: %w", root.name, err)
		}
		abs[i] = p
	}

	return DirectoryPair{
		OldRoot:     abs[0],
		NewRoot:     abs[1],
		ResultsRoot: abs[2],
	}, nil
}
