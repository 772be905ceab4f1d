// Package interaction describes the models a calculator pushes to the engine.
//
// A [Potential] acts on tuples of atoms chosen by exactly one kind of
// [Targets]: chemical species, integer tags, or explicit atom indices. Targets
// are permutation sensitive; the engine receives every distinct ordering of
// every tuple, so a pair potential on (A, B) registers (A, B) and (B, A) while
// (A, A) registers once.
//
// A potential may carry a [Coordinator] bundling bond-order factors. Bond-order
// factors target species only.
//
// Potentials are grouped into a [Set]. Sets and [Coulomb] schemes carry a
// version token; the engine mirror compares them by token, not by value.
package interaction
