// Package calculator keeps a stateful engine synchronized with a structure and
// a set of interaction models, and caches what it computes.
//
// A [Mirror] records what one engine holds. Every [Calculator] sharing an
// engine shares its mirror; before each evaluation the calculator compares its
// own structure, potentials, Coulomb summation and neighbor lists against the
// mirror and pushes only what differs, in dependency order:
//
//	cell → coordinates → charges → potentials → Coulomb → potential lists → neighbor lists
//
// When the engine holds no atoms, a different number of atoms, different
// species or tags, or full initialization is forced, everything is pushed from
// scratch instead.
//
// The mirror is only updated after the corresponding engine call succeeded.
// A partially replaced table (potentials, neighbor lists) is marked unknown
// before the first call, so a failure midway never leaves the mirror claiming
// a state the engine does not have.
package calculator
