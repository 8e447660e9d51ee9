package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidParams indicates world parameters outside their valid range.
	ErrInvalidParams = errors.New("sim: invalid world parameters")

	// ErrInvalidState indicates a node position or velocity that is NaN or Inf.
	ErrInvalidState = errors.New("sim: invalid state (NaN or Inf detected)")

	// ErrBodyNotFound indicates a body index that is not in the world.
	ErrBodyNotFound = errors.New("sim: body not found")

	// ErrSharedNode indicates a node that already belongs to another body.
	ErrSharedNode = errors.New("sim: node already belongs to another body")
)

// SimError records where in a run something went wrong.
type SimError struct {
	Time    float64
	Step    int
	Message string
	Wrapped error
}

func (e SimError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}

func (e SimError) Unwrap() error { return e.Wrapped }
