package neighbor

import (
	"fmt"
	"slices"

	"github.com/petrichorcode/pysic/internal/atoms"
	"github.com/petrichorcode/pysic/internal/core"
)

// Verifier reports whether it holds the given structure. The engine mirror
// implements it so that a list is never built for positions the engine does
// not have.
type Verifier interface {
	Holds(st *atoms.Structure) bool
}

type Option func(*List)

// WithVerifier makes Build fail with core.ErrStructureMismatch when v does not
// hold the structure.
func WithVerifier(v Verifier) Option {
	return func(l *List) { l.verifier = v }
}

// List is a neighbor list that remembers the geometry it was built for and
// rebuilds only when atoms have moved far enough to invalidate the skin.
type List struct {
	cutoffs  []float64
	skin     float64
	verifier Verifier

	built     bool
	strategy  Strategy
	nbrs      Map
	positions []atoms.Vec3
	cell      atoms.Cell
	pbc       [3]bool
	updates   int
}

func NewList(cutoffs []float64, skin float64, opts ...Option) *List {
	l := &List{cutoffs: slices.Clone(cutoffs), skin: skin}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Build searches the structure unconditionally.
func (l *List) Build(st *atoms.Structure) error {
	if st == nil {
		return core.ErrNoStructure
	}
	if l.verifier != nil && !l.verifier.Holds(st) {
		return fmt.Errorf("neighbor list: %w", core.ErrStructureMismatch)
	}
	m, s, err := Build(st, l.cutoffs, l.skin)
	if err != nil {
		return fmt.Errorf("neighbor list: %w", err)
	}
	l.nbrs = m
	l.strategy = s
	l.positions = st.Positions()
	l.cell = st.Cell
	l.pbc = st.PBC
	l.built = true
	l.updates++
	return nil
}

// Update rebuilds the list if it was never built, if the atom count, cell or
// periodicity changed, or if any atom moved more than half the skin since the
// last build. It reports whether a rebuild happened.
func (l *List) Update(st *atoms.Structure) (bool, error) {
	if !l.stale(st) {
		return false, nil
	}
	if err := l.Build(st); err != nil {
		return false, err
	}
	return true, nil
}

func (l *List) stale(st *atoms.Structure) bool {
	if !l.built || st == nil {
		return true
	}
	if st.Len() != len(l.positions) || st.Cell != l.cell || st.PBC != l.pbc {
		return true
	}
	limit := l.skin / 2
	limit *= limit
	for i, a := range st.Atoms {
		d := a.Position.Sub(l.positions[i])
		if d.Dot(d) > limit {
			return true
		}
	}
	return false
}

// Map returns the current neighbor map, nil before the first build.
func (l *List) Map() Map { return l.nbrs }

func (l *List) Built() bool { return l.built }

func (l *List) Strategy() Strategy { return l.strategy }

// Neighbors returns the list of atom i.
func (l *List) Neighbors(i int) []Neighbor {
	if i < 0 || i >= len(l.nbrs) {
		return nil
	}
	return l.nbrs[i]
}

// Updates counts the builds performed so far.
func (l *List) Updates() int { return l.updates }

func (l *List) Cutoffs() []float64 { return slices.Clone(l.cutoffs) }

func (l *List) Skin() float64 { return l.skin }
