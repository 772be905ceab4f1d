package interaction

import (
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/petrichorcode/pysic/internal/core"
)

// Potential is a named interaction on a set of target tuples.
type Potential struct {
	Type        string
	Targets     Targets
	Cutoff      float64
	SoftCutoff  float64
	Params      []float64
	Coordinator *Coordinator
}

func (p Potential) Validate() error {
	if p.Type == "" {
		return fmt.Errorf("%w: potential without type", core.ErrInvalidParameters)
	}
	if p.Cutoff < 0 || p.SoftCutoff < 0 || p.SoftCutoff > p.Cutoff {
		return fmt.Errorf("%w: potential %s cutoffs %.3f/%.3f", core.ErrInvalidParameters, p.Type, p.SoftCutoff, p.Cutoff)
	}
	if err := p.Targets.Validate(); err != nil {
		return fmt.Errorf("potential %s: %w", p.Type, err)
	}
	if p.Coordinator != nil {
		for _, b := range p.Coordinator.BondOrders {
			if err := b.Validate(); err != nil {
				return fmt.Errorf("potential %s: %w", p.Type, err)
			}
		}
	}
	return nil
}

// Coordinator bundles the bond-order factors scaling a potential.
type Coordinator struct {
	BondOrders []BondOrder
}

// BondOrder is a bond-order factor on species tuples.
type BondOrder struct {
	Type       string
	Species    [][]string
	Cutoff     float64
	SoftCutoff float64
	// Params holds one parameter row per body of the factor.
	Params [][]float64
}

func (b BondOrder) Validate() error {
	if b.Type == "" {
		return fmt.Errorf("%w: bond order without type", core.ErrInvalidParameters)
	}
	if len(b.Species) == 0 {
		return fmt.Errorf("%w: bond order %s has no species", core.ErrInvalidParameters, b.Type)
	}
	if b.Cutoff < 0 || b.SoftCutoff > b.Cutoff {
		return fmt.Errorf("%w: bond order %s cutoffs %.3f/%.3f", core.ErrInvalidParameters, b.Type, b.SoftCutoff, b.Cutoff)
	}
	return nil
}

// MatchesSpecies reports whether symbol appears in any species tuple.
func (b BondOrder) MatchesSpecies(symbol string) bool {
	for _, tuple := range b.Species {
		if slices.Contains(tuple, symbol) {
			return true
		}
	}
	return false
}

// FlatParams concatenates the parameter rows.
func (b BondOrder) FlatParams() []float64 {
	var out []float64
	for _, row := range b.Params {
		out = append(out, row...)
	}
	return out
}

// ParamCounts is the length of each parameter row.
func (b BondOrder) ParamCounts() []int {
	out := make([]int, len(b.Params))
	for i, row := range b.Params {
		out[i] = len(row)
	}
	return out
}

// PermutationCount is the number of engine entries the factor expands into.
func (b BondOrder) PermutationCount() int {
	n := 0
	for _, tuple := range b.Species {
		n += len(Permutations(tuple))
	}
	return n
}

var versions atomic.Uint64

func nextVersion() uint64 { return versions.Add(1) }

// Set is a versioned list of potentials. Every mutation produces a new version.
type Set struct {
	potentials []Potential
	version    uint64
}

func NewSet(potentials ...Potential) *Set {
	return &Set{potentials: slices.Clone(potentials), version: nextVersion()}
}

// Version returns the identity token. A nil set has version 0.
func (s *Set) Version() uint64 {
	if s == nil {
		return 0
	}
	return s.version
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.potentials)
}

// Potentials returns a copy of the list.
func (s *Set) Potentials() []Potential {
	if s == nil {
		return nil
	}
	return slices.Clone(s.potentials)
}

func (s *Set) Add(p Potential) {
	s.potentials = append(s.potentials, p)
	s.version = nextVersion()
}

// Replace swaps in a new list of potentials.
func (s *Set) Replace(potentials ...Potential) {
	s.potentials = slices.Clone(potentials)
	s.version = nextVersion()
}

// Validate checks every potential.
func (s *Set) Validate() error {
	if s == nil {
		return nil
	}
	for i, p := range s.potentials {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("potential %d: %w", i, err)
		}
	}
	return nil
}
