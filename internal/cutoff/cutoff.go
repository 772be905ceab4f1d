// Package cutoff resolves the interaction range of each atom.
package cutoff

import (
	"github.com/petrichorcode/pysic/internal/atoms"
	"github.com/petrichorcode/pysic/internal/interaction"
)

// Resolve returns, for every atom, the largest cutoff among the Coulomb
// real-space cutoff, the potentials targeting the atom and the bond-order
// factors of those potentials' coordinators whose species include the atom.
// Each value is multiplied by scale. A nil structure yields nil.
func Resolve(st *atoms.Structure, set *interaction.Set, coulomb *interaction.Coulomb, scale float64) []float64 {
	if st == nil {
		return nil
	}

	base := 0.0
	if coulomb != nil {
		base = coulomb.RealSpaceCutoff()
	}

	potentials := set.Potentials()
	cuts := make([]float64, st.Len())
	for i, a := range st.Atoms {
		maxCut := base
		for _, p := range potentials {
			if p.Targets.Matches(a.Symbol, a.Tag, i) && p.Cutoff > maxCut {
				maxCut = p.Cutoff
			}
			if p.Coordinator == nil {
				continue
			}
			for _, b := range p.Coordinator.BondOrders {
				if b.MatchesSpecies(a.Symbol) && b.Cutoff > maxCut {
					maxCut = b.Cutoff
				}
			}
		}
		cuts[i] = maxCut * scale
	}
	return cuts
}

// Max returns the largest cutoff, or 0 for an empty list.
func Max(cuts []float64) float64 {
	m := 0.0
	for _, c := range cuts {
		if c > m {
			m = c
		}
	}
	return m
}

// Expanded reports whether neighbor lists built for old are too short for
// next: nothing recorded, lengths differ, or any atom's cutoff grew. Shrinking
// cutoffs keep the old lists, which remain a superset of the needed pairs.
func Expanded(old, next []float64) bool {
	if old == nil || next == nil {
		return true
	}
	if len(old) != len(next) {
		return true
	}
	for i := range old {
		if old[i] < next[i] {
			return true
		}
	}
	return false
}
