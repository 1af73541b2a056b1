package manager

import (
	"errors"
	"fmt"
)

// SpawnError signals that the gateway executable could not be launched
// (missing binary, permission denied, config materialization failure).
type SpawnError struct {
	Bin string
	Err error
}

func (e *SpawnError) Error() string { return fmt.Sprintf("spawn %s: %v", e.Bin, e.Err) }

func (e *SpawnError) Unwrap() error { return e.Err }

// IsSpawnError reports whether err is (or wraps) a SpawnError.
func IsSpawnError(err error) bool {
	var se *SpawnError
	return errors.As(err, &se)
}

// ExitError records an unexpected child exit.
type ExitError struct {
	Code   int
	Signal string
}

func (e *ExitError) Error() string {
	if e.Signal != "" {
		return "gateway killed by signal " + e.Signal
	}
	return fmt.Sprintf("gateway exited with code %d", e.Code)
}

// InvariantError signals an impossible (state, handle) combination. It is a
// programming defect: the operation that observed it is aborted and shared
// state is left as-is.
type InvariantError struct {
	Op    string
	State State
	Msg   string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated in %s (state=%s): %s", e.Op, e.State, e.Msg)
}

// IsInvariant reports whether err is (or wraps) an InvariantError.
func IsInvariant(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

// ErrStopTimeout is returned when a child survives SIGKILL past the kill timeout.
var ErrStopTimeout = errors.New("gateway did not exit after kill")
