package neighbor

import (
	"math"

	"github.com/petrichorcode/pysic/internal/atoms"
	"github.com/petrichorcode/pysic/internal/core"
)

// axis describes the binning of one lattice direction in scaled coordinates.
type axis struct {
	bins     int
	origin   float64
	width    float64
	stencil  int
	periodic bool
}

func (a axis) bin(s float64) int {
	b := int(math.Floor((s - a.origin) / a.width))
	if b < 0 {
		return 0
	}
	if b >= a.bins {
		return a.bins - 1
	}
	return b
}

// locate maps an unwrapped bin coordinate to a bin index and the image it
// belongs to. ok is false outside a non-periodic axis.
func (a axis) locate(t int) (bin, image int, ok bool) {
	if !a.periodic {
		return t, 0, t >= 0 && t < a.bins
	}
	image = floorDiv(t, a.bins)
	return t - image*a.bins, image, true
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func gridAxes(f *frame) [3]axis {
	var axes [3]axis
	n := f.len()
	// bins per axis never exceed the cube root of the atom count, so the grid
	// stays proportional to n however much vacuum the cell holds
	limit := max(1, int(math.Ceil(math.Cbrt(float64(n)))))
	for k := 0; k < 3; k++ {
		h := f.cell.Thickness(k)
		if f.pbc[k] {
			bins := 1
			if f.reach > 0 {
				bins = max(1, int(math.Floor(h/f.reach)))
			}
			bins = min(bins, limit)
			width := h / float64(bins)
			stencil := 1
			if f.reach > 0 {
				stencil = max(1, int(math.Ceil(f.reach/width)))
			}
			axes[k] = axis{bins: bins, width: 1 / float64(bins), stencil: stencil, periodic: true}
			continue
		}

		lo, hi := math.Inf(1), math.Inf(-1)
		for _, s := range f.scaled {
			lo = math.Min(lo, s[k])
			hi = math.Max(hi, s[k])
		}
		if n == 0 {
			lo, hi = 0, 0
		}
		// bins at least one search radius thick
		width := f.reach / h
		bins := 1
		if width > 0 {
			bins = int(math.Floor((hi-lo)/width)) + 1
		}
		bins = min(bins, limit)
		if width <= 0 || bins == 1 {
			width = math.Max(width, hi-lo) + 1
		} else if (hi-lo)/float64(bins) > width {
			width = (hi - lo) / float64(bins)
		}
		axes[k] = axis{bins: bins, origin: lo, width: width, stencil: 1}
	}
	return axes
}

// BuildGrid bins the atoms and scans, for each atom, only the bins within one
// search radius. It requires no lattice thickness below the cutoff, which
// Choose guarantees; with thinner cells it still terminates but callers should
// use BuildBruteForce.
func BuildGrid(st *atoms.Structure, cutoffs []float64, skin float64) (Map, error) {
	f, err := newFrame(st, cutoffs, skin)
	if err != nil {
		return nil, err
	}
	n := f.len()
	axes := gridAxes(f)

	flat := func(b [3]int) int {
		return b[0] + axes[0].bins*(b[1]+axes[1].bins*b[2])
	}
	home := make([][3]int, n)
	bins := make([][]int, axes[0].bins*axes[1].bins*axes[2].bins)
	for i, s := range f.scaled {
		var b [3]int
		for k := 0; k < 3; k++ {
			b[k] = axes[k].bin(s[k])
		}
		home[i] = b
		idx := flat(b)
		bins[idx] = append(bins[idx], i)
	}

	out := make(Map, n)
	core.ParallelFor(n, 64, func(start, end int) {
		for i := start; i < end; i++ {
			var list []Neighbor
			var d [3]int
			for d[0] = -axes[0].stencil; d[0] <= axes[0].stencil; d[0]++ {
				for d[1] = -axes[1].stencil; d[1] <= axes[1].stencil; d[1]++ {
					for d[2] = -axes[2].stencil; d[2] <= axes[2].stencil; d[2]++ {
						var (
							b  [3]int
							o  Image
							ok = true
						)
						for k := 0; k < 3 && ok; k++ {
							b[k], o[k], ok = axes[k].locate(home[i][k] + d[k])
						}
						if !ok {
							continue
						}
						for _, j := range bins[flat(b)] {
							if nb, hit := f.visit(i, j, o); hit {
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
