// Package state remembers the roots of the last comparison between invocations.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/sdejongh/dircompare/pkg/models"
)

const (
	stateFileVersion = 1
	stateFileName    = "dircompare/last-run.json"
)

// LastRun is the persisted record of the most recent comparison
type LastRun struct {
	// Version for state file format compatibility
	Version int `json:"version"`

	OldRoot     string `json:"old_root"`
	NewRoot     string `json:"new_root"`
	ResultsRoot string `json:"results_root"`

	RunID    string           `json:"run_id,omitempty"`
	Status   models.RunStatus `json:"status,omitempty"`
	Finished time.Time        `json:"finished"`
}

// Pair returns the stored roots
func (r *LastRun) Pair() models.DirectoryPair {
	return models.DirectoryPair{
		OldRoot:     r.OldRoot,
		NewRoot:     r.NewRoot,
		ResultsRoot: r.ResultsRoot,
	}
}

// Store reads and writes the last-run file
type Store struct {
	path string
}

// NewStore returns a store backed by path
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultStore returns the store under the XDG state directory
func DefaultStore() (*Store, error) {
	path, err := xdg.StateFile(stateFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to locate state file: %w", err)
	}
	return NewStore(path), nil
}

// Path returns the state file location
func (s *Store) Path() string {
	return s.path
}

// Load returns the last run, or nil if nothing was recorded yet
func (s *Store) Load() (*LastRun, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var run LastRun
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}

	if run.Version > stateFileVersion {
		return nil, fmt.Errorf("state file version %d is newer than supported version %d", run.Version, stateFileVersion)
	}

	return &run, nil
}

// Save records run, replacing the previous record atomically
func (s *Store) Save(run *LastRun) error {
	run.Version = stateFileVersion

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to finalize state file: %w", err)
	}

	return nil
}

// Clear removes the record
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Resolve fills empty roots from the last run. Explicit values always win.
func Resolve(last *LastRun, oldRoot, newRoot, resultsRoot string) (string, string, string) {
	if last == nil {
		return oldRoot, newRoot, resultsRoot
	}
	if oldRoot == "" {
		oldRoot = last.OldRoot
	}
	if newRoot == "" {
		newRoot = last.NewRoot
	}
	if resultsRoot == "" {
		resultsRoot = last.ResultsRoot
	}
	return oldRoot, newRoot, resultsRoot
}
