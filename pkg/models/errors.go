package models

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds. Use errors.Is against these to classify a failure.
var (
	// ErrMissingArgument indicates a required root path was not supplied
	ErrMissingArgument = errors.New("missing argument")
	// ErrInvalidDirectory indicates the old or new root is not an existing directory
	ErrInvalidDirectory = errors.New("invalid directory")
	// ErrWorkspace indicates the results area could not be prepared
	ErrWorkspace = errors.New("workspace error")
	// ErrFileVanished indicates a listed file disappeared before it could be read
	ErrFileVanished = errors.New("file vanished")
	// ErrIO covers any other read or listing failure
	ErrIO = errors.New("i/o error")
	// ErrPointerCreation indicates a pointer artifact could not be created
	ErrPointerCreation = errors.New("pointer creation failed")
)

// RunError is the concrete error returned by every comparison stage
type RunError struct {
	Kind    error
	Op      string
	Path    string
	Message string
	Err     error
}

func (e *RunError) Error() string {
	var b strings.Builder
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString(e.Kind.Error())
		if e.Op != "" {
			b.WriteString(": ")
			b.WriteString(e.Op)
		}
		if e.Path != "" {
			b.WriteString(" ")
			b.WriteString(e.Path)
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the underlying cause
func (e *RunError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewMissingArgument reports a root that was not supplied
func NewMissingArgument(name string) error {
	return &RunError{
		Kind:    ErrMissingArgument,
		Message: fmt.Sprintf("you must select the %s folder", name),
	}
}

// NewInvalidDirectory reports a root that does not exist or is not a directory
func NewInvalidDirectory(name, path string) error {
	return &RunError{
		Kind:    ErrInvalidDirectory,
		Path:    path,
		Message: fmt.Sprintf("the %s directory doesn't exist: %s", name, path),
	}
}

// NewWorkspaceError reports a results area that could not be prepared
func NewWorkspaceError(path string, err error) error {
	return &RunError{
		Kind:    ErrWorkspace,
		Path:    path,
		Message: fmt.Sprintf("something is wrong with the results directory %s", path),
		Err:     err,
	}
}

// NewFileVanished reports a file that no longer exists at comparison time
func NewFileVanished(path string, err error) error {
	return &RunError{
		Kind:    ErrFileVanished,
		Path:    path,
		Message: fmt.Sprintf("it looks like the file %s doesn't exist anymore", path),
		Err:     err,
	}
}

// NewIOError reports any other filesystem failure
func NewIOError(op, path string, err error) error {
	return &RunError{
		Kind: ErrIO,
		Op:   op,
		Path: path,
		Err:  err,
	}
}

// NewPointerError reports a pointer artifact that could not be created
func NewPointerError(target string, err error) error {
	return &RunError{
		Kind:    ErrPointerCreation,
		Path:    target,
		Message: fmt.Sprintf("can't create pointer to %s", target),
		Err:     err,
	}
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
