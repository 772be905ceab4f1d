// Package engine defines the boundary to a stateful computation engine.
//
// An engine holds one structure, one potential table, one cell, neighbor lists
// and Coulomb parameters at a time, and evaluates energy, forces and
// electronegativities on whatever it currently holds. It performs no
// consistency checking of its own; callers keep a mirror of what was pushed.
package engine

import (
	"github.com/petrichorcode/pysic/internal/atoms"
	"github.com/petrichorcode/pysic/internal/neighbor"
)

// AtomData is the full per-atom payload of CreateAtoms.
type AtomData struct {
	Masses    []float64
	Charges   []float64
	Positions []atoms.Vec3
	Momenta   []atoms.Vec3
	Tags      []int
	Symbols   []string
}

// CellData describes the supercell pushed with CreateCell.
type CellData struct {
	Vectors atoms.Cell
	Inverse atoms.Cell
	PBC     [3]bool
}

// TargetTuple is one ordered target of a potential. Exactly one of the three
// slices is set; the others are nil.
type TargetTuple struct {
	Symbols []string
	Tags    []int
	Indices []int
}

// PotentialSpec is one ordered permutation of one target tuple of one
// potential. Original holds the tuple as written before permuting. Group links
// the potential to its coordinator's bond-order factors, -1 when it has none.
type PotentialSpec struct {
	Type       string
	Params     []float64
	Cutoff     float64
	SoftCutoff float64
	Targets    TargetTuple
	Original   TargetTuple
	Group      int
}

// BondOrderSpec is one ordered species permutation of a bond-order factor.
// Params holds the parameters of every sub-term back to back, ParamCounts
// their lengths.
type BondOrderSpec struct {
	Type        string
	Params      []float64
	ParamCounts []int
	Cutoff      float64
	SoftCutoff  float64
	Symbols     []string
	Original    []string
	Group       int
}

// EwaldParams configures the Ewald summation of the engine.
type EwaldParams struct {
	RealCutoff float64
	KLimits    [3]int
	Sigma      float64
	Epsilon    float64
	Scales     []float64
}

// Engine is the set of operations a computation engine exposes. Every mutating
// call replaces the corresponding engine state wholesale.
type Engine interface {
	CreateAtoms(data AtomData) error
	DistributeWorkers(nAtoms int) error
	CreateCell(cell CellData) error
	UpdateCoordinates(positions, momenta []atoms.Vec3) error
	UpdateCharges(charges []float64) error

	AllocatePotentials(n int) error
	AddPotential(spec PotentialSpec) error
	AllocateBondOrderFactors(n int) error
	AddBondOrderFactor(spec BondOrderSpec) error
	AllocateBondOrderStorage(nAtoms, nGroups, nCoordinators int) error
	BuildPotentialLists() error

	SetNeighborList(atom int, neighbors []neighbor.Neighbor) error
	// SetEwaldParameters switches Coulomb summation on, or off for nil.
	SetEwaldParameters(p *EwaldParams) error

	NumberOfAtoms() int
	Energy() (float64, error)
	// Forces returns per-atom forces and the potential part of the stress in
	// the order xx, yy, zz, yz, xz, xy.
	Forces() ([]atoms.Vec3, [6]float64, error)
	Electronegativities() ([]float64, error)
}
