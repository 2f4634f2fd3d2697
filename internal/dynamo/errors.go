package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for constraint configuration and solving.
var (
	// ErrBodyNotSet indicates an anchor was configured before the body.
	ErrBodyNotSet = errors.New("dynsolve: body must be set before the anchor")

	// ErrSingularMatrix indicates an effective-mass matrix with a zero determinant.
	ErrSingularMatrix = errors.New("dynsolve: effective mass matrix is singular")

	// ErrInvalidConfig indicates solver or scene parameters out of range.
	ErrInvalidConfig = errors.New("dynsolve: invalid configuration")

	// ErrUnknownBody indicates a constraint referencing a body that does not exist.
	ErrUnknownBody = errors.New("dynsolve: unknown body")

	// ErrUnknownPreset indicates a preset name with no registered scene.
	ErrUnknownPreset = errors.New("dynsolve: unknown preset")
)

// ConstraintError wraps a solver error with the constraint that raised it.
type ConstraintError struct {
	Kind    string
	Step    int
	Wrapped error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s (step %d): %v", e.Kind, e.Step, e.Wrapped)
}

func (e *ConstraintError) Unwrap() error {
	return e.Wrapped
}
