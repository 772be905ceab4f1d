package neighbor

import (
	"cmp"
	"slices"
)

// DefaultSkin is the margin added to every cutoff.
const DefaultSkin = 0.5

// Image is an integer lattice translation.
type Image [3]int

func (o Image) Neg() Image { return Image{-o[0], -o[1], -o[2]} }

func (o Image) IsZero() bool { return o == Image{} }

// Neighbor is one entry of an atom's list.
type Neighbor struct {
	Index  int
	Offset Image
}

func compareNeighbors(a, b Neighbor) int {
	if c := cmp.Compare(a.Index, b.Index); c != 0 {
		return c
	}
	for k := 0; k < 3; k++ {
		if c := cmp.Compare(a.Offset[k], b.Offset[k]); c != 0 {
			return c
		}
	}
	return 0
}

// Map holds the neighbors of every atom, each list sorted by index then offset.
type Map [][]Neighbor

func (m Map) Clone() Map {
	if m == nil {
		return nil
	}
	out := make(Map, len(m))
	for i, l := range m {
		out[i] = slices.Clone(l)
	}
	return out
}

// Equal compares two maps entry by entry.
func (m Map) Equal(o Map) bool {
	if m == nil || o == nil {
		return m == nil && o == nil
	}
	if len(m) != len(o) {
		return false
	}
	for i := range m {
		if !slices.Equal(m[i], o[i]) {
			return false
		}
	}
	return true
}

// Entries is the total number of stored (i, j, offset) entries.
func (m Map) Entries() int {
	n := 0
	for _, l := range m {
		n += len(l)
	}
	return n
}

// Bidirectional reports whether every entry has its mirror entry and no
// zero-offset self pair is stored.
func (m Map) Bidirectional() bool {
	for i, l := range m {
		for _, nb := range l {
			if nb.Index == i && nb.Offset.IsZero() {
				return false
			}
			if nb.Index < 0 || nb.Index >= len(m) {
				return false
			}
			mirror := Neighbor{Index: i, Offset: nb.Offset.Neg()}
			if _, found := slices.BinarySearchFunc(m[nb.Index], mirror, compareNeighbors); !found {
				return false
			}
		}
	}
	return true
}

func sortList(l []Neighbor) {
	slices.SortFunc(l, compareNeighbors)
}
