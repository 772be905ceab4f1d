package cutoff

import (
	"testing"

	"github.com/petrichorcode/pysic/internal/atoms"
	"github.com/petrichorcode/pysic/internal/interaction"
)

func testStructure() *atoms.Structure {
	return &atoms.Structure{
		Atoms: []atoms.Atom{
			{Symbol: "Si", Tag: 0},
			{Symbol: "O", Tag: 1},
			{Symbol: "H", Tag: 2},
		},
		Cell: atoms.Orthorhombic(10, 10, 10),
		PBC:  [3]bool{true, true, true},
	}
}

func equalCuts(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestResolve(t *testing.T) {
	coulomb, err := interaction.NewEwald(2.5, 1, 1, 1, nil)
	if err != nil {
		t.Fatalf("NewEwald failed: %v", err)
	}

	siO := interaction.Potential{Type: "LJ", Targets: interaction.BySpecies([]string{"Si", "O"}), Cutoff: 3}
	tag2 := interaction.Potential{Type: "spring", Targets: interaction.ByTags([]int{2, 2}), Cutoff: 4}
	idx0 := interaction.Potential{Type: "spring", Targets: interaction.ByIndices([]int{0, 1}), Cutoff: 3.5}
	bonded := interaction.Potential{
		Type:    "LJ",
		Targets: interaction.BySpecies([]string{"Si", "Si"}),
		Cutoff:  1,
		Coordinator: &interaction.Coordinator{BondOrders: []interaction.BondOrder{
			{Type: "coord", Species: [][]string{{"H", "O"}}, Cutoff: 5},
		}},
	}

	tests := []struct {
		name    string
		st      *atoms.Structure
		set     *interaction.Set
		coulomb *interaction.Coulomb
		scale   float64
		want    []float64
	}{
		{"no structure", nil, interaction.NewSet(siO), nil, 1, nil},
		{"nothing configured", testStructure(), nil, nil, 1, []float64{0, 0, 0}},
		{"coulomb only", testStructure(), nil, coulomb, 1, []float64{2.5, 2.5, 2.5}},
		{"species", testStructure(), interaction.NewSet(siO), nil, 1, []float64{3, 3, 0}},
		{"species with coulomb", testStructure(), interaction.NewSet(siO), coulomb, 1, []float64{3, 3, 2.5}},
		{"tags", testStructure(), interaction.NewSet(tag2), nil, 1, []float64{0, 0, 4}},
		{"indices", testStructure(), interaction.NewSet(idx0), nil, 1, []float64{3.5, 3.5, 0}},
		{"max over models", testStructure(), interaction.NewSet(siO, idx0, tag2), nil, 1, []float64{3.5, 3.5, 4}},
		{"bond orders by species", testStructure(), interaction.NewSet(bonded), nil, 1, []float64{1, 5, 5}},
		{"scaled", testStructure(), interaction.NewSet(siO), nil, 0.5, []float64{1.5, 1.5, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.st, tt.set, tt.coulomb, tt.scale)
			if !equalCuts(got, tt.want) {
				t.Errorf("Resolve() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExpanded(t *testing.T) {
	tests := []struct {
		name     string
		old, new []float64
		want     bool
	}{
		{"nothing recorded", nil, []float64{1}, true},
		{"nothing new", []float64{1}, nil, true},
		{"length change", []float64{1, 1}, []float64{1}, true},
		{"grew", []float64{1, 2}, []float64{1, 2.5}, true},
		{"same", []float64{1, 2}, []float64{1, 2}, false},
		{"shrank", []float64{1, 2}, []float64{0.5, 2}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Expanded(tt.old, tt.new); got != tt.want {
				t.Errorf("Expanded(%v, %v) = %v, want %v", tt.old, tt.new, got, tt.want)
			}
		})
	}
}

func TestMax(t *testing.T) {
	if Max(nil) != 0 {
		t.Error("Max(nil) should be 0")
	}
	if Max([]float64{1, 4, 2}) != 4 {
		t.Error("Max picked wrong value")
	}
}
