// Package enginetest provides an in-memory engine that records every call.
package enginetest

import (
	"maps"
	"slices"
	"sync"

	"github.com/petrichorcode/pysic/internal/atoms"
	"github.com/petrichorcode/pysic/internal/engine"
	"github.com/petrichorcode/pysic/internal/neighbor"
)

// Call names as counted by Recorder.
const (
	CreateAtoms              = "CreateAtoms"
	DistributeWorkers        = "DistributeWorkers"
	CreateCell               = "CreateCell"
	UpdateCoordinates        = "UpdateCoordinates"
	UpdateCharges            = "UpdateCharges"
	AllocatePotentials       = "AllocatePotentials"
	AddPotential             = "AddPotential"
	AllocateBondOrderFactors = "AllocateBondOrderFactors"
	AddBondOrderFactor       = "AddBondOrderFactor"
	AllocateBondOrderStorage = "AllocateBondOrderStorage"
	BuildPotentialLists      = "BuildPotentialLists"
	SetNeighborList          = "SetNeighborList"
	SetEwaldParameters       = "SetEwaldParameters"
	Energy                   = "Energy"
	Forces                   = "Forces"
	Electronegativities      = "Electronegativities"
)

// Recorder implements engine.Engine by storing what it is given and returning
// canned results. Errors registered with FailOn are returned by the named
// call until cleared.
type Recorder struct {
	mu sync.Mutex

	calls []string
	fail  map[string]error

	Atoms      engine.AtomData
	Cell       engine.CellData
	Potentials []engine.PotentialSpec
	BondOrders []engine.BondOrderSpec
	Storage    [3]int
	Neighbors  map[int][]neighbor.Neighbor
	Ewald      *engine.EwaldParams
	Workers    int

	// EnergyValue and the others are returned by the evaluation calls. A nil
	// ForceFunc yields zero forces.
	EnergyValue float64
	Stress      [6]float64
	ForceFunc   func(positions []atoms.Vec3) []atoms.Vec3
	ChiFunc     func(charges []float64) []float64
}

var _ engine.Engine = (*Recorder)(nil)

func New() *Recorder {
	return &Recorder{fail: make(map[string]error), Neighbors: make(map[int][]neighbor.Neighbor)}
}

// FailOn makes the named call return err. A nil err clears the failure.
func (r *Recorder) FailOn(call string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.fail, call)
		return
	}
	r.fail[call] = err
}

func (r *Recorder) record(call string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
	return r.fail[call]
}

// Calls returns every call name in order.
func (r *Recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}

// Count returns how often the named call was made.
func (r *Recorder) Count(call string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c == call {
			n++
		}
	}
	return n
}

// Pushes counts every call except evaluations.
func (r *Recorder) Pushes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		switch c {
		case Energy, Forces, Electronegativities:
		default:
			n++
		}
	}
	return n
}

// Reset forgets recorded calls but keeps state.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *Recorder) CreateAtoms(data engine.AtomData) error {
	if err := r.record(CreateAtoms); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Atoms = engine.AtomData{
		Masses:    slices.Clone(data.Masses),
		Charges:   slices.Clone(data.Charges),
		Positions: slices.Clone(data.Positions),
		Momenta:   slices.Clone(data.Momenta),
		Tags:      slices.Clone(data.Tags),
		Symbols:   slices.Clone(data.Symbols),
	}
	r.Neighbors = make(map[int][]neighbor.Neighbor)
	return nil
}

func (r *Recorder) DistributeWorkers(n int) error {
	if err := r.record(DistributeWorkers); err != nil {
		return err
	}
	r.mu.Lock()
	r.Workers = n
	r.mu.Unlock()
	return nil
}

func (r *Recorder) CreateCell(cell engine.CellData) error {
	if err := r.record(CreateCell); err != nil {
		return err
	}
	r.mu.Lock()
	r.Cell = cell
	r.mu.Unlock()
	return nil
}

func (r *Recorder) UpdateCoordinates(positions, momenta []atoms.Vec3) error {
	if err := r.record(UpdateCoordinates); err != nil {
		return err
	}
	r.mu.Lock()
	r.Atoms.Positions = slices.Clone(positions)
	r.Atoms.Momenta = slices.Clone(momenta)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) UpdateCharges(charges []float64) error {
	if err := r.record(UpdateCharges); err != nil {
		return err
	}
	r.mu.Lock()
	r.Atoms.Charges = slices.Clone(charges)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) AllocatePotentials(n int) error {
	if err := r.record(AllocatePotentials); err != nil {
		return err
	}
	r.mu.Lock()
	r.Potentials = make([]engine.PotentialSpec, 0, n)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) AddPotential(spec engine.PotentialSpec) error {
	if err := r.record(AddPotential); err != nil {
		return err
	}
	r.mu.Lock()
	r.Potentials = append(r.Potentials, spec)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) AllocateBondOrderFactors(n int) error {
	if err := r.record(AllocateBondOrderFactors); err != nil {
		return err
	}
	r.mu.Lock()
	r.BondOrders = make([]engine.BondOrderSpec, 0, n)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) AddBondOrderFactor(spec engine.BondOrderSpec) error {
	if err := r.record(AddBondOrderFactor); err != nil {
		return err
	}
	r.mu.Lock()
	r.BondOrders = append(r.BondOrders, spec)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) AllocateBondOrderStorage(nAtoms, nGroups, nCoordinators int) error {
	if err := r.record(AllocateBondOrderStorage); err != nil {
		return err
	}
	r.mu.Lock()
	r.Storage = [3]int{nAtoms, nGroups, nCoordinators}
	r.mu.Unlock()
	return nil
}

func (r *Recorder) BuildPotentialLists() error {
	return r.record(BuildPotentialLists)
}

func (r *Recorder) SetNeighborList(atom int, nbrs []neighbor.Neighbor) error {
	if err := r.record(SetNeighborList); err != nil {
		return err
	}
	r.mu.Lock()
	r.Neighbors[atom] = slices.Clone(nbrs)
	r.mu.Unlock()
	return nil
}

func (r *Recorder) SetEwaldParameters(p *engine.EwaldParams) error {
	if err := r.record(SetEwaldParameters); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if p == nil {
		r.Ewald = nil
		return nil
	}
	cp := *p
	cp.Scales = slices.Clone(p.Scales)
	r.Ewald = &cp
	return nil
}

// NumberOfAtoms is a query and is not recorded.
func (r *Recorder) NumberOfAtoms() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Atoms.Positions)
}

// NeighborMap assembles the pushed lists into a map.
func (r *Recorder) NeighborMap() neighbor.Map {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := make(neighbor.Map, len(r.Atoms.Positions))
	for _, i := range slices.Sorted(maps.Keys(r.Neighbors)) {
		if i < len(m) {
			m[i] = slices.Clone(r.Neighbors[i])
		}
	}
	return m
}

func (r *Recorder) Energy() (float64, error) {
	if err := r.record(Energy); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.EnergyValue, nil
}

func (r *Recorder) Forces() ([]atoms.Vec3, [6]float64, error) {
	if err := r.record(Forces); err != nil {
		return nil, [6]float64{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ForceFunc != nil {
		return r.ForceFunc(slices.Clone(r.Atoms.Positions)), r.Stress, nil
	}
	return make([]atoms.Vec3, len(r.Atoms.Positions)), r.Stress, nil
}

func (r *Recorder) Electronegativities() ([]float64, error) {
	if err := r.record(Electronegativities); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ChiFunc != nil {
		return r.ChiFunc(slices.Clone(r.Atoms.Charges)), nil
	}
	return make([]float64, len(r.Atoms.Charges)), nil
}
