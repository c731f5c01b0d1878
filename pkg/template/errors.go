package template

import (
	"errors"
	"fmt"
)

// ErrNotPackage is matched by every *ImportError. Use errors.Is to detect a
// discovery failure without caring about the underlying cause.
var ErrNotPackage = errors.New("not a template directory")

// ImportError reports a template source location that cannot be scanned:
// it does not exist, it is not a directory, or it cannot be listed.
type ImportError struct {
	Location string
	Err      error
}

func (e *ImportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("import templates from %q: %v", e.Location, e.Err)
	}
	return fmt.Sprintf("import templates from %q: %v", e.Location, ErrNotPackage)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrNotPackage) hold for any ImportError.
func (e *ImportError) Is(target error) bool {
	return target == ErrNotPackage
}

// skipError is the reason a single file was left out of the result.
// It never escapes the package.
type skipError struct {
	File   string
	Reason string
	Err    error
}

func (e *skipError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.File, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Reason)
}

func (e *skipError) Unwrap() error {
	return e.Err
}
