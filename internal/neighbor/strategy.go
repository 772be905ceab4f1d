package neighbor

import (
	"math"

	"github.com/petrichorcode/pysic/internal/atoms"
	"github.com/petrichorcode/pysic/internal/cutoff"
)

// Strategy names a neighbor search algorithm.
type Strategy int

const (
	Grid Strategy = iota
	BruteForce
)

func (s Strategy) String() string {
	switch s {
	case Grid:
		return "grid"
	case BruteForce:
		return "brute-force"
	default:
		return "unknown"
	}
}

// Choose picks BruteForce when any lattice thickness is below the largest
// cutoff and Grid otherwise.
func Choose(cell atoms.Cell, cutoffs []float64) Strategy {
	maxCut := cutoff.Max(cutoffs)
	for k := 0; k < 3; k++ {
		if cell.Thickness(k) < maxCut {
			return BruteForce
		}
	}
	return Grid
}

// Build searches with the strategy Choose selects for the structure.
func Build(st *atoms.Structure, cutoffs []float64, skin float64) (Map, Strategy, error) {
	if st == nil {
		m, err := BuildGrid(st, cutoffs, skin)
		return m, Grid, err
	}
	s := Choose(st.Cell, cutoffs)
	var (
		m   Map
		err error
	)
	if s == BruteForce {
		m, err = BuildBruteForce(st, cutoffs, skin)
	} else {
		m, err = BuildGrid(st, cutoffs, skin)
	}
	return m, s, err
}

func imageRange(f *frame) [3]int {
	var n [3]int
	for k := 0; k < 3; k++ {
		if !f.pbc[k] {
			continue
		}
		h := f.cell.Thickness(k)
		n[k] = int(math.Ceil(f.reach / h))
	}
	return n
}
