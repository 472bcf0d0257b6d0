package job

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned for job IDs unknown to the registry.
var ErrNotFound = errors.New("job not found")

// InvalidStateError is returned when an operation is not valid for the
// job's current status (double dispatch, download before completion).
type InvalidStateError struct {
	ID      string
	Current Status
	Wanted  []Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("job %s is %s, expected %v", e.ID, e.Current, e.Wanted)
}

// IsInvalidState reports whether err wraps an InvalidStateError and
// returns it if so.
func IsInvalidState(err error) (*InvalidStateError, bool) {
	var ise *InvalidStateError
	if errors.As(err, &ise) {
		return ise, true
	}
	return nil, false
}
