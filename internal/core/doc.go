// Package core provides primitives shared by the calculator layers.
//
// It holds the error vocabulary used across packages:
//
//   - [ErrStructureMismatch]: a neighbor or coordinate operation ran against a
//     structure the engine does not hold
//   - [ErrMissingAtoms]: the engine holds no atoms yet
//   - [ErrLockedCore]: an incremental coordinate update with a different atom count
//   - [ErrInvalidParameters]: caller input that cannot be pushed (e.g. a scaling
//     vector of the wrong length)
//
// None of these are transient. They propagate unchanged to the caller.
//
// # Parallelism
//
// [ParallelFor] splits an index range into contiguous chunks and runs them on
// separate goroutines. Callers write only to disjoint slots of shared slices.
package core
