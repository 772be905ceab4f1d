// Package compute provides in-process computation engines.
//
// The CPU backend evaluates a small set of potentials over the neighbor lists
// it is given:
//
//   - LJ: Lennard-Jones pair potential, parameters ε and σ.
//   - spring: harmonic pair potential, parameters k and r0.
//   - constant: per-atom constant energy, parameter c.
//   - charge_self: per-atom χ0·q + ½·J·q², parameters χ0 and J.
//
// Pair terms are switched off smoothly between the soft and the hard cutoff.
// With Ewald parameters set, the screened real-space Coulomb term and the
// Gaussian self energy are added; the reciprocal-space sum is not evaluated.
// Bond-order factors are accepted and stored for the coordinators that
// reference them but do not scale any potential.
//
// Force evaluation fans out over worker goroutines with per-worker virial
// accumulators:
//
//	eng, _ := compute.New("cpu")
//	forces, stress, err := eng.Forces()
package compute
