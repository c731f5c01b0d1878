package scenario

import (
	"errors"
	"fmt"
)

// ErrInsertion is matched by every *InsertionError.
var ErrInsertion = errors.New("insertion failure")

// InsertionError reports a batch for which the store confirmed a different
// number of documents than were submitted. Batches inserted earlier in the
// same Create call are left in place.
type InsertionError struct {
	Collection string
	Submitted  int
	Confirmed  int
}

// Error implements the error interface.
func (e *InsertionError) Error() string {
	return fmt.Sprintf("failed to insert %d documents in %q: store confirmed %d",
		e.Submitted, e.Collection, e.Confirmed)
}

// Is reports whether target is ErrInsertion.
func (e *InsertionError) Is(target error) bool {
	return target == ErrInsertion
}

// TemplateError reports a registered template that cannot be merged because
// it is not a document (a list, a scalar or null).
type TemplateError struct {
	Collection string
	Value      any
}

// Error implements the error interface.
func (e *TemplateError) Error() string {
	return fmt.Sprintf("template for %q is %T, not a document", e.Collection, e.Value)
}

// IsInsertionError returns true if err is or wraps an *InsertionError.
func IsInsertionError(err error) bool {
	var ie *InsertionError
	return errors.As(err, &ie)
}
