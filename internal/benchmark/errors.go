package benchmark

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParameter is returned before any generator call when a count or pool size is not positive.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrTimeout is returned when a phase does not reach its join barrier within Runner.PhaseTimeout.
	ErrTimeout = errors.New("benchmark phase timed out")
)

// PhaseError records which phase of a benchmark failed.
type PhaseError struct {
	Mode     Mode
	Phase    Phase
	Strategy string
	Err      error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s benchmark phase %s (%s): %v", e.Mode, e.Phase, e.Strategy, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }
