package neighbor

import (
	"github.com/petrichorcode/pysic/internal/atoms"
	"github.com/petrichorcode/pysic/internal/core"
)

// BuildBruteForce checks every pair over every periodic image that can lie
// within range. It is correct for any cell shape, including cells thinner than
// the cutoff.
func BuildBruteForce(st *atoms.Structure, cutoffs []float64, skin float64) (Map, error) {
	f, err := newFrame(st, cutoffs, skin)
	if err != nil {
		return nil, err
	}
	n := f.len()
	span := imageRange(f)
	out := make(Map, n)

	core.ParallelFor(n, 32, func(start, end int) {
		for i := start; i < end; i++ {
			var list []Neighbor
			var o Image
			for o[0] = -span[0]; o[0] <= span[0]; o[0]++ {
				for o[1] = -span[1]; o[1] <= span[1]; o[1]++ {
					for o[2] = -span[2]; o[2] <= span[2]; o[2]++ {
						for j := 0; j < n; j++ {
							if nb, ok := f.visit(i, j, o); ok {
								list = append(list, nb)
							}
						}
					}
				}
			}
			sortList(list)
			out[i] = list
		}
	})
	return out, nil
}
