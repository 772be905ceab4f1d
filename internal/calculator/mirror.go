package calculator

import (
	"slices"
	"sync"

	"github.com/petrichorcode/pysic/internal/atoms"
	"github.com/petrichorcode/pysic/internal/engine"
	"github.com/petrichorcode/pysic/internal/interaction"
	"github.com/petrichorcode/pysic/internal/neighbor"
)

// Mirror is the record of what an engine currently holds. Create one per
// engine and hand it to every calculator using that engine.
type Mirror struct {
	eng engine.Engine

	// session serializes synchronize-and-compute units of calculators
	// sharing the engine.
	session sync.Mutex

	mu             sync.RWMutex
	atoms          *atoms.Structure
	charges        []float64
	cell           atoms.Cell
	pbc            [3]bool
	hasCell        bool
	potentials     uint64
	hasPotentials  bool
	coulomb        uint64
	neighbors      neighbor.Map
	potentialLists bool
	workers        bool
}

func NewMirror(eng engine.Engine) *Mirror {
	return &Mirror{eng: eng}
}

func (m *Mirror) Engine() engine.Engine { return m.eng }

// HoldsAtoms reports whether atoms were ever created in the engine.
func (m *Mirror) HoldsAtoms() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.atoms != nil
}

func (m *Mirror) AtomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.atoms.Len()
}

// AtomsReady compares positions, species and tags. Momenta are pushed along
// with positions but do not affect any computed quantity and are not compared.
func (m *Mirror) AtomsReady(st *atoms.Structure) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.atoms == nil || st == nil || m.atoms.Len() != st.Len() {
		return false
	}
	for i, a := range st.Atoms {
		held := m.atoms.Atoms[i]
		if a.Position != held.Position || a.Symbol != held.Symbol || a.Tag != held.Tag {
			return false
		}
	}
	return true
}

// SpeciesReady reports whether the engine holds the same species and tags in
// the same order.
func (m *Mirror) SpeciesReady(st *atoms.Structure) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.atoms != nil && m.atoms.SameSpecies(st)
}

func (m *Mirror) ChargesReady(st *atoms.Structure) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.charges != nil && st != nil && slices.Equal(m.charges, st.Charges())
}

func (m *Mirror) CellReady(st *atoms.Structure) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hasCell && st != nil && m.cell == st.Cell && m.pbc == st.PBC
}

// PotentialsReady compares version tokens only. A nil set is ready once an
// empty table was pushed.
func (m *Mirror) PotentialsReady(set *interaction.Set) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hasPotentials && m.potentials == set.Version()
}

// CoulombReady compares version tokens. Nil means no Coulomb summation, which
// is also the state of a fresh engine.
func (m *Mirror) CoulombReady(c *interaction.Coulomb) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.coulomb == c.Version()
}

// NeighborListsReady reports whether the engine holds exactly nm.
func (m *Mirror) NeighborListsReady(nm neighbor.Map) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.neighbors != nil && nm != nil && m.neighbors.Equal(nm)
}

func (m *Mirror) PotentialListsReady() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.potentialLists
}

func (m *Mirror) WorkersReady() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.workers
}

// Holds reports whether the engine has both the atoms and the cell of st. It
// lets neighbor lists refuse to build for a structure the engine lacks.
func (m *Mirror) Holds(st *atoms.Structure) bool {
	return m.AtomsReady(st) && m.CellReady(st)
}

var _ neighbor.Verifier = (*Mirror)(nil)

// staleVersion matches no potential set or Coulomb summation.
const staleVersion = ^uint64(0)

// setAtoms records a fresh atom table. Creating atoms discards everything the
// engine derived from the previous ones.
func (m *Mirror) setAtoms(st *atoms.Structure) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.atoms = st.Copy()
	m.charges = st.Charges()
	m.neighbors = nil
	m.potentialLists = false
	m.workers = false
}

func (m *Mirror) setCoordinates(st *atoms.Structure) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.atoms.Atoms {
		m.atoms.Atoms[i].Position = st.Atoms[i].Position
		m.atoms.Atoms[i].Momentum = st.Atoms[i].Momentum
	}
}

func (m *Mirror) setCharges(q []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.charges = slices.Clone(q)
}

func (m *Mirror) setWorkers() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers = true
}

// setCell also forgets the neighbor lists and the Coulomb parameters, whose
// k-space limits derive from the cell.
func (m *Mirror) setCell(st *atoms.Structure) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cell = st.Cell
	m.pbc = st.PBC
	m.hasCell = true
	m.neighbors = nil
	if m.coulomb != 0 {
		m.coulomb = staleVersion
	}
}

// forgetPotentials marks the potential table unknown while it is replaced.
func (m *Mirror) forgetPotentials() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hasPotentials = false
	m.potentialLists = false
}

func (m *Mirror) setPotentials(set *interaction.Set) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.potentials = set.Version()
	m.hasPotentials = true
}

func (m *Mirror) setPotentialLists() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.potentialLists = true
}

func (m *Mirror) setCoulomb(c *interaction.Coulomb) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coulomb = c.Version()
}

func (m *Mirror) forgetNeighborLists() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.neighbors = nil
}

func (m *Mirror) setNeighborLists(nm neighbor.Map) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.neighbors = nm.Clone()
}
