package neighbor

import (
	"fmt"
	"math"

	"github.com/petrichorcode/pysic/internal/atoms"
	"github.com/petrichorcode/pysic/internal/core"
)

// frame is the wrapped view of a structure that both strategies search.
type frame struct {
	cell    atoms.Cell
	pbc     [3]bool
	wrapped []atoms.Vec3
	scaled  []atoms.Vec3
	shift   []Image
	radius  []float64
	reach   float64
}

func newFrame(st *atoms.Structure, cutoffs []float64, skin float64) (*frame, error) {
	if st == nil {
		return nil, core.ErrNoStructure
	}
	n := st.Len()
	if len(cutoffs) != n {
		return nil, fmt.Errorf("%w: %d cutoffs for %d atoms", core.ErrInvalidParameters, len(cutoffs), n)
	}
	if skin < 0 || math.IsNaN(skin) {
		return nil, fmt.Errorf("%w: negative skin %g", core.ErrInvalidParameters, skin)
	}
	inv, err := st.Cell.Inverse()
	if err != nil {
		return nil, err
	}

	f := &frame{
		cell:    st.Cell,
		pbc:     st.PBC,
		wrapped: make([]atoms.Vec3, n),
		scaled:  make([]atoms.Vec3, n),
		shift:   make([]Image, n),
		radius:  make([]float64, n),
	}
	for i, a := range st.Atoms {
		rc := cutoffs[i]
		if rc < 0 || math.IsNaN(rc) {
			return nil, fmt.Errorf("%w: cutoff %g for atom %d", core.ErrInvalidParameters, rc, i)
		}
		if !a.Position.IsValid() {
			return nil, fmt.Errorf("%w: position of atom %d", core.ErrInvalidParameters, i)
		}
		f.radius[i] = rc + skin
		f.reach = math.Max(f.reach, rc+skin)

		s := atoms.Scaled(a.Position, inv)
		var shift Image
		for k := 0; k < 3; k++ {
			if !st.PBC[k] {
				continue
			}
			fl := math.Floor(s[k])
			s[k] -= fl
			shift[k] = int(fl)
			if s[k] >= 1 {
				s[k] = 0
				shift[k]++
			}
		}
		f.scaled[i] = s
		f.shift[i] = shift
		f.wrapped[i] = a.Position.Sub(st.Cell.Translation(shift))
	}
	return f, nil
}

// visit tests atom j seen through wrapped-frame image o from atom i and
// returns the entry with the offset translated back to the caller's positions.
func (f *frame) visit(i, j int, o Image) (Neighbor, bool) {
	if i == j && o.IsZero() {
		return Neighbor{}, false
	}
	d := f.wrapped[j].Add(f.cell.Translation(o)).Sub(f.wrapped[i])
	r := math.Max(f.radius[i], f.radius[j])
	if d.Dot(d) >= r*r {
		return Neighbor{}, false
	}
	var off Image
	for k := 0; k < 3; k++ {
		off[k] = o[k] + f.shift[i][k] - f.shift[j][k]
	}
	return Neighbor{Index: j, Offset: off}, true
}

func (f *frame) len() int { return len(f.wrapped) }
