package atoms

import "slices"

// Atom is a single particle of a structure.
type Atom struct {
	Symbol   string
	Tag      int
	Mass     float64
	Charge   float64
	Position Vec3
	Momentum Vec3
}

// Structure is an ordered set of atoms in a periodic cell.
type Structure struct {
	Atoms []Atom
	Cell  Cell
	PBC   [3]bool
}

func (s *Structure) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Atoms)
}

// Copy returns a deep copy.
func (s *Structure) Copy() *Structure {
	if s == nil {
		return nil
	}
	return &Structure{
		Atoms: slices.Clone(s.Atoms),
		Cell:  s.Cell,
		PBC:   s.PBC,
	}
}

func (s *Structure) Positions() []Vec3 {
	out := make([]Vec3, len(s.Atoms))
	for i, a := range s.Atoms {
		out[i] = a.Position
	}
	return out
}

func (s *Structure) Momenta() []Vec3 {
	out := make([]Vec3, len(s.Atoms))
	for i, a := range s.Atoms {
		out[i] = a.Momentum
	}
	return out
}

func (s *Structure) Masses() []float64 {
	out := make([]float64, len(s.Atoms))
	for i, a := range s.Atoms {
		out[i] = a.Mass
	}
	return out
}

func (s *Structure) Charges() []float64 {
	out := make([]float64, len(s.Atoms))
	for i, a := range s.Atoms {
		out[i] = a.Charge
	}
	return out
}

func (s *Structure) Symbols() []string {
	out := make([]string, len(s.Atoms))
	for i, a := range s.Atoms {
		out[i] = a.Symbol
	}
	return out
}

func (s *Structure) Tags() []int {
	out := make([]int, len(s.Atoms))
	for i, a := range s.Atoms {
		out[i] = a.Tag
	}
	return out
}

// SetCharges overwrites the charges in order. Extra values are ignored.
func (s *Structure) SetCharges(q []float64) {
	for i := range s.Atoms {
		if i < len(q) {
			s.Atoms[i].Charge = q[i]
		}
	}
}

// Volume of the cell.
func (s *Structure) Volume() float64 { return s.Cell.Volume() }

// Equal compares atom count, positions, symbols, tags, cell and periodicity by
// value. Charges, masses and momenta are not part of geometric identity.
func (s *Structure) Equal(o *Structure) bool {
	if s == nil || o == nil {
		return s == o
	}
	if len(s.Atoms) != len(o.Atoms) || s.Cell != o.Cell || s.PBC != o.PBC {
		return false
	}
	for i := range s.Atoms {
		a, b := s.Atoms[i], o.Atoms[i]
		if a.Position != b.Position || a.Symbol != b.Symbol || a.Tag != b.Tag {
			return false
		}
	}
	return true
}

// ChargesEqual compares the charge vectors.
func (s *Structure) ChargesEqual(o *Structure) bool {
	if s == nil || o == nil {
		return s == o
	}
	if len(s.Atoms) != len(o.Atoms) {
		return false
	}
	for i := range s.Atoms {
		if s.Atoms[i].Charge != o.Atoms[i].Charge {
			return false
		}
	}
	return true
}

// SameSpecies reports whether symbols and tags agree atom by atom.
func (s *Structure) SameSpecies(o *Structure) bool {
	if s == nil || o == nil {
		return s == o
	}
	if len(s.Atoms) != len(o.Atoms) {
		return false
	}
	for i := range s.Atoms {
		if s.Atoms[i].Symbol != o.Atoms[i].Symbol || s.Atoms[i].Tag != o.Atoms[i].Tag {
			return false
		}
	}
	return true
}
