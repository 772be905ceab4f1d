// Package md runs molecular dynamics on any force field that can report the
// forces and energy of a structure, typically a calculator.Calculator.
//
// The integrator is velocity Verlet on positions and momenta. Each step
// writes the new structure back to the force field, so a calculator sees a
// sequence of small moves and pushes only coordinates to its engine.
package md
