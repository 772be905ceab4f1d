package interaction

import (
	"fmt"
	"slices"

	"github.com/petrichorcode/pysic/internal/core"
)

// Kind identifies which field of Targets is active.
type Kind int

const (
	KindNone Kind = iota
	KindSpecies
	KindTags
	KindIndices
)

func (k Kind) String() string {
	switch k {
	case KindSpecies:
		return "species"
	case KindTags:
		return "tags"
	case KindIndices:
		return "indices"
	default:
		return "none"
	}
}

// Targets selects the atom tuples a model acts on. Exactly one kind is active.
type Targets struct {
	kind    Kind
	species [][]string
	tags    [][]int
	indices [][]int
}

func BySpecies(tuples ...[]string) Targets {
	return Targets{kind: KindSpecies, species: cloneTuples(tuples)}
}

func ByTags(tuples ...[]int) Targets {
	return Targets{kind: KindTags, tags: cloneTuples(tuples)}
}

func ByIndices(tuples ...[]int) Targets {
	return Targets{kind: KindIndices, indices: cloneTuples(tuples)}
}

func (t Targets) Kind() Kind { return t.kind }

func (t Targets) Species() [][]string { return t.species }
func (t Targets) Tags() [][]int       { return t.tags }
func (t Targets) Indices() [][]int    { return t.indices }

// Len is the number of target tuples.
func (t Targets) Len() int {
	switch t.kind {
	case KindSpecies:
		return len(t.species)
	case KindTags:
		return len(t.tags)
	case KindIndices:
		return len(t.indices)
	}
	return 0
}

// Arity is the tuple length, i.e. the number of bodies of the interaction.
func (t Targets) Arity() int {
	switch t.kind {
	case KindSpecies:
		if len(t.species) > 0 {
			return len(t.species[0])
		}
	case KindTags:
		if len(t.tags) > 0 {
			return len(t.tags[0])
		}
	case KindIndices:
		if len(t.indices) > 0 {
			return len(t.indices[0])
		}
	}
	return 0
}

// Matches reports whether an atom appears anywhere in any target tuple.
func (t Targets) Matches(symbol string, tag, index int) bool {
	switch t.kind {
	case KindSpecies:
		for _, tuple := range t.species {
			if slices.Contains(tuple, symbol) {
				return true
			}
		}
	case KindTags:
		for _, tuple := range t.tags {
			if slices.Contains(tuple, tag) {
				return true
			}
		}
	case KindIndices:
		for _, tuple := range t.indices {
			if slices.Contains(tuple, index) {
				return true
			}
		}
	}
	return false
}

// PermutationCount is the number of engine entries the targets expand into.
func (t Targets) PermutationCount() int {
	n := 0
	switch t.kind {
	case KindSpecies:
		for _, tuple := range t.species {
			n += len(Permutations(tuple))
		}
	case KindTags:
		for _, tuple := range t.tags {
			n += len(Permutations(tuple))
		}
	case KindIndices:
		for _, tuple := range t.indices {
			n += len(Permutations(tuple))
		}
	}
	return n
}

// Validate checks that a kind is set and all tuples share one non-zero arity.
func (t Targets) Validate() error {
	if t.kind == KindNone || t.Len() == 0 {
		return fmt.Errorf("%w: no targets", core.ErrInvalidParameters)
	}
	arity := t.Arity()
	if arity == 0 {
		return fmt.Errorf("%w: empty target tuple", core.ErrInvalidParameters)
	}
	lengths := make([]int, 0, t.Len())
	switch t.kind {
	case KindSpecies:
		for _, tuple := range t.species {
			lengths = append(lengths, len(tuple))
		}
	case KindTags:
		for _, tuple := range t.tags {
			lengths = append(lengths, len(tuple))
		}
	case KindIndices:
		for _, tuple := range t.indices {
			lengths = append(lengths, len(tuple))
		}
	}
	for _, l := range lengths {
		if l != arity {
			return fmt.Errorf("%w: %s tuples of mixed length", core.ErrInvalidParameters, t.kind)
		}
	}
	return nil
}

// Permutations returns the distinct orderings of tuple. The first occurrence of
// each ordering is kept, in lexicographic order of positions.
func Permutations[T comparable](tuple []T) [][]T {
	if len(tuple) == 0 {
		return nil
	}
	var out [][]T
	used := make([]bool, len(tuple))
	current := make([]T, 0, len(tuple))

	var walk func()
	walk = func() {
		if len(current) == len(tuple) {
			for _, seen := range out {
				if slices.Equal(seen, current) {
					return
				}
			}
			out = append(out, slices.Clone(current))
			return
		}
		for i := range tuple {
			if used[i] {
				continue
			}
			used[i] = true
			current = append(current, tuple[i])
			walk()
			current = current[:len(current)-1]
			used[i] = false
		}
	}
	walk()
	return out
}

func cloneTuples[T any](tuples [][]T) [][]T {
	out := make([][]T, len(tuples))
	for i, tuple := range tuples {
		out[i] = slices.Clone(tuple)
	}
	return out
}
