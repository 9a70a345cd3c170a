package job

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a job id has no descriptor.
var ErrNotFound = errors.New("job does not exist")

// ValidationError rejects a submission with a literal, user-facing
// reason. Every rejection path at intake produces one.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// QuotaExceededError rejects a submission when the owner already has the
// maximum number of alignments running.
type QuotaExceededError struct {
	Active int
	Limit  int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("you already have %d alignments running; the limit is %d", e.Active, e.Limit)
}

// ConflictError is returned by Transition when the descriptor's current
// status does not match the expected one. A concurrent trigger losing
// the processing race sees this.
type ConflictError struct {
	ID       string
	Expected Status
	Current  Status
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("job %s is %s, not %s", e.ID, e.Current, e.Expected)
}

// ExecutionError records an aligner run that did not end with exit 0.
// It is recovered into a terminal failed descriptor, never propagated as
// a request failure.
type ExecutionError struct {
	ExitCode int
	Timeout  bool
	Err      error
}

func (e *ExecutionError) Error() string {
	switch {
	case e.Timeout:
		return "alignment timed out"
	case e.Err != nil:
		return fmt.Sprintf("alignment could not start: %v", e.Err)
	default:
		return fmt.Sprintf("alignment exited with code %d", e.ExitCode)
	}
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// PackagingError records an archive creation or verification failure
// after a successful run. There is no compensating transition: the job
// remains in processing and the request fails.
type PackagingError struct {
	Err error
}

func (e *PackagingError) Error() string { return fmt.Sprintf("packaging results: %v", e.Err) }
func (e *PackagingError) Unwrap() error { return e.Err }

// IOError wraps a descriptor or working-directory read/write failure.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *IOError) Unwrap() error { return e.Err }

func ioErrorf(op string, err error) error {
	return &IOError{Op: op, Err: err}
}
