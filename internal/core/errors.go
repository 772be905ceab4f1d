package core

import (
	"errors"
	"fmt"
)

// Domain errors for engine synchronization.
var (
	// ErrStructureMismatch indicates an operation ran against a structure that
	// does not match what the engine currently holds.
	ErrStructureMismatch = errors.New("pysic: structure does not match the engine")

	// ErrMissingAtoms indicates an operation that needs atoms in the engine ran
	// before any were created.
	ErrMissingAtoms = errors.New("pysic: no atoms in the engine")

	// ErrLockedCore indicates an incremental update whose atom count differs from
	// the engine's. The caller must force a full reinitialization.
	ErrLockedCore = errors.New("pysic: atom count differs from the engine")

	// ErrInvalidParameters indicates caller input that cannot be used.
	ErrInvalidParameters = errors.New("pysic: invalid parameters")

	// ErrNoStructure indicates a result was requested before a structure was set.
	ErrNoStructure = errors.New("pysic: no structure assigned")

	// ErrUnsupported indicates the engine cannot evaluate the requested model.
	ErrUnsupported = errors.New("pysic: unsupported by engine")
)

// PushError wraps a failure of a single engine call with the call's name.
type PushError struct {
	Op      string
	Wrapped error
}

func (e *PushError) Error() string {
	return fmt.Sprintf("engine %s: %v", e.Op, e.Wrapped)
}

func (e *PushError) Unwrap() error {
	return e.Wrapped
}

// Push wraps err in a PushError unless it is nil.
func Push(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PushError{Op: op, Wrapped: err}
}
