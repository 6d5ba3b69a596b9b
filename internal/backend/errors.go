package backend

import (
	"errors"
	"fmt"
)

// ErrNoBackend is returned by Acquire when no model is loaded.
var ErrNoBackend = errors.New("no transcription backend available")

// UnavailableError reports that the configured backend is not compiled into
// this binary. Reconcile leaves any working backend in place when returning it.
type UnavailableError struct {
	Kind Kind
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("backend %q is not available in this build (missing build tag?)", e.Kind)
}

// LoadError reports a model load failure. The manager is left with no active
// backend; a later reconcile with a corrected config recovers.
type LoadError struct {
	Kind Kind
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s model: %v", e.Kind, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// PathError reports that the configured vosk model path is not a directory.
type PathError struct {
	Path string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("vosk model path %q is not an existing directory", e.Path)
}
