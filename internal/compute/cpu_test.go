package compute

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/petrichorcode/pysic/internal/atoms"
	"github.com/petrichorcode/pysic/internal/core"
	"github.com/petrichorcode/pysic/internal/engine"
	"github.com/petrichorcode/pysic/internal/neighbor"
)

func atomData(st *atoms.Structure) engine.AtomData {
	return engine.AtomData{
		Masses:    st.Masses(),
		Charges:   st.Charges(),
		Positions: st.Positions(),
		Momenta:   st.Momenta(),
		Tags:      st.Tags(),
		Symbols:   st.Symbols(),
	}
}

func pairSpecs(typ string, a, b string, cutoff, soft float64, params ...float64) []engine.PotentialSpec {
	specs := []engine.PotentialSpec{{
		Type: typ, Params: params, Cutoff: cutoff, SoftCutoff: soft,
		Targets: engine.TargetTuple{Symbols: []string{a, b}}, Group: -1,
	}}
	if a != b {
		specs = append(specs, engine.PotentialSpec{
			Type: typ, Params: params, Cutoff: cutoff, SoftCutoff: soft,
			Targets: engine.TargetTuple{Symbols: []string{b, a}}, Group: -1,
		})
	}
	return specs
}

// load pushes a structure with the given potentials and a fresh neighbor list.
func load(t *testing.T, c *CPU, st *atoms.Structure, specs []engine.PotentialSpec, listCutoff float64) {
	t.Helper()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(c.CreateAtoms(atomData(st)))
	must(c.DistributeWorkers(st.Len()))
	inv, err := st.Cell.Inverse()
	must(err)
	must(c.CreateCell(engine.CellData{Vectors: st.Cell, Inverse: inv, PBC: st.PBC}))
	must(c.AllocatePotentials(len(specs)))
	for _, s := range specs {
		must(c.AddPotential(s))
	}
	must(c.BuildPotentialLists())
	cutoffs := make([]float64, st.Len())
	for i := range cutoffs {
		cutoffs[i] = listCutoff
	}
	m, _, err := neighbor.Build(st, cutoffs, 0.2)
	must(err)
	for i, l := range m {
		must(c.SetNeighborList(i, l))
	}
}

func dimer(r float64, a, b string) *atoms.Structure {
	return &atoms.Structure{
		Cell: atoms.Orthorhombic(20, 20, 20),
		PBC:  [3]bool{true, true, true},
		Atoms: []atoms.Atom{
			{Symbol: a, Mass: 1, Position: atoms.Vec3{5, 5, 5}},
			{Symbol: b, Mass: 1, Position: atoms.Vec3{5 + r, 5, 5}},
		},
	}
}

func TestLennardJonesDimer(t *testing.T) {
	tests := []struct {
		name       string
		r          float64
		wantEnergy float64
	}{
		{"minimum", math.Pow(2, 1.0/6), -1},
		{"zero crossing", 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCPU()
			load(t, c, dimer(tt.r, "Ar", "Ar"), pairSpecs(TypeLennardJones, "Ar", "Ar", 5, 5, 1, 1), 5)

			e, err := c.Energy()
			if err != nil {
				t.Fatalf("Energy: %v", err)
			}
			if math.Abs(e-tt.wantEnergy) > 1e-12 {
				t.Errorf("energy = %g, want %g", e, tt.wantEnergy)
			}
		})
	}
}

func TestMixedSpeciesCountedOnce(t *testing.T) {
	c := NewCPU()
	load(t, c, dimer(1.5, "Si", "O"), pairSpecs(TypeSpring, "Si", "O", 3, 3, 2, 1), 3)

	e, err := c.Energy()
	if err != nil {
		t.Fatalf("Energy: %v", err)
	}
	want := 0.5 * 2 * 0.5 * 0.5
	if math.Abs(e-want) > 1e-12 {
		t.Errorf("energy = %g, want %g", e, want)
	}
}

func TestSpringDimerForcesAndVirial(t *testing.T) {
	c := NewCPU()
	r, k, r0 := 1.5, 2.0, 1.0
	load(t, c, dimer(r, "H", "H"), pairSpecs(TypeSpring, "H", "H", 3, 3, k, r0), 3)

	forces, virial, err := c.Forces()
	if err != nil {
		t.Fatalf("Forces: %v", err)
	}
	f := k * (r - r0)
	if math.Abs(forces[0][0]-f) > 1e-12 || math.Abs(forces[1][0]+f) > 1e-12 {
		t.Errorf("forces = %v, want ±%g along x", forces, f)
	}
	want := [6]float64{-f * r}
	for i := range want {
		if math.Abs(virial[i]-want[i]) > 1e-12 {
			t.Errorf("virial[%d] = %g, want %g", i, virial[i], want[i])
		}
	}
}

func TestSmoothCutoff(t *testing.T) {
	tests := []struct {
		name  string
		r     float64
		wantF float64
	}{
		{"inside", 0.5, 1},
		{"midway", 1.5, 0.5},
		{"outside", 2.5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _ := smoothen(tt.r, 1, 2)
			if math.Abs(f-tt.wantF) > 1e-12 {
				t.Errorf("smoothen(%g) = %g, want %g", tt.r, f, tt.wantF)
			}
		})
	}
}

func randomCluster(r *rand.Rand, n int) *atoms.Structure {
	st := &atoms.Structure{Cell: atoms.Orthorhombic(7, 7, 7), PBC: [3]bool{true, true, true}}
	for i := 0; i < n; i++ {
		// jittered lattice keeps atoms apart
		p := atoms.Vec3{
			float64(i%3)*2.3 + 0.3*r.Float64(),
			float64((i/3)%3)*2.3 + 0.3*r.Float64(),
			float64(i/9)*2.3 + 0.3*r.Float64(),
		}
		sym := "Na"
		q := 0.4
		if i%2 == 1 {
			sym, q = "Cl", -0.4
		}
		st.Atoms = append(st.Atoms, atoms.Atom{Symbol: sym, Mass: 23, Charge: q, Position: p})
	}
	return st
}

func TestForcesMatchEnergyGradient(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	st := randomCluster(rng, 18)

	var specs []engine.PotentialSpec
	specs = append(specs, pairSpecs(TypeLennardJones, "Na", "Cl", 3.2, 2.6, 0.1, 2.1)...)
	specs = append(specs, pairSpecs(TypeSpring, "Na", "Na", 3.2, 2.8, 0.5, 2.4)...)
	specs = append(specs, engine.PotentialSpec{
		Type: TypeChargeSelf, Params: []float64{1, 2}, Targets: engine.TargetTuple{Symbols: []string{"Cl"}}, Group: -1,
	})

	energyAt := func(st *atoms.Structure) float64 {
		c := NewCPU()
		load(t, c, st, specs, 3.3)
		if err := c.SetEwaldParameters(&engine.EwaldParams{RealCutoff: 3.3, Sigma: 0.8, Epsilon: 0.00552635}); err != nil {
			t.Fatal(err)
		}
		e, err := c.Energy()
		if err != nil {
			t.Fatal(err)
		}
		return e
	}

	c := NewCPU(WithWorkers(3))
	load(t, c, st, specs, 3.3)
	if err := c.SetEwaldParameters(&engine.EwaldParams{RealCutoff: 3.3, Sigma: 0.8, Epsilon: 0.00552635}); err != nil {
		t.Fatal(err)
	}
	forces, _, err := c.Forces()
	if err != nil {
		t.Fatalf("Forces: %v", err)
	}
	chi, err := c.Electronegativities()
	if err != nil {
		t.Fatalf("Electronegativities: %v", err)
	}

	const h = 1e-5
	for _, i := range []int{0, 5, 11} {
		for k := 0; k < 3; k++ {
			plus, minus := st.Copy(), st.Copy()
			plus.Atoms[i].Position[k] += h
			minus.Atoms[i].Position[k] -= h
			numeric := -(energyAt(plus) - energyAt(minus)) / (2 * h)
			if math.Abs(numeric-forces[i][k]) > 1e-5*math.Max(1, math.Abs(numeric)) {
				t.Errorf("force[%d][%d] = %g, numeric %g", i, k, forces[i][k], numeric)
			}
		}

		plus, minus := st.Copy(), st.Copy()
		plus.Atoms[i].Charge += h
		minus.Atoms[i].Charge -= h
		numeric := -(energyAt(plus) - energyAt(minus)) / (2 * h)
		if math.Abs(numeric-chi[i]) > 1e-5*math.Max(1, math.Abs(numeric)) {
			t.Errorf("chi[%d] = %g, numeric %g", i, chi[i], numeric)
		}
	}
}

func TestEngineErrors(t *testing.T) {
	tests := []struct {
		name string
		run  func(c *CPU) error
		want error
	}{
		{"energy without atoms", func(c *CPU) error { _, err := c.Energy(); return err }, core.ErrMissingAtoms},
		{"lists without atoms", func(c *CPU) error { return c.BuildPotentialLists() }, core.ErrMissingAtoms},
		{"unknown type", func(c *CPU) error {
			_ = c.AllocatePotentials(1)
			return c.AddPotential(engine.PotentialSpec{Type: "tersoff", Targets: engine.TargetTuple{Symbols: []string{"Si", "Si"}}})
		}, core.ErrUnsupported},
		{"table full", func(c *CPU) error {
			_ = c.AllocatePotentials(0)
			return c.AddPotential(engine.PotentialSpec{Type: TypeSpring, Params: []float64{1, 1}, Targets: engine.TargetTuple{Tags: []int{1, 1}}})
		}, core.ErrInvalidParameters},
		{"wrong arity", func(c *CPU) error {
			_ = c.AllocatePotentials(1)
			return c.AddPotential(engine.PotentialSpec{Type: TypeConstant, Params: []float64{1}, Targets: engine.TargetTuple{Tags: []int{1, 1}}})
		}, core.ErrInvalidParameters},
		{"coordinates after resize", func(c *CPU) error {
			_ = c.CreateAtoms(atomData(dimer(1, "H", "H")))
			return c.UpdateCoordinates(make([]atoms.Vec3, 3), make([]atoms.Vec3, 3))
		}, core.ErrLockedCore},
		{"neighbor out of range", func(c *CPU) error {
			_ = c.CreateAtoms(atomData(dimer(1, "H", "H")))
			return c.SetNeighborList(0, []neighbor.Neighbor{{Index: 4}})
		}, core.ErrInvalidParameters},
		{"bad ewald", func(c *CPU) error { return c.SetEwaldParameters(&engine.EwaldParams{Sigma: 0, Epsilon: 1}) }, core.ErrInvalidParameters},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.run(NewCPU()); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNewBackend(t *testing.T) {
	b, err := New("")
	if err != nil || b.Name() != "cpu" {
		t.Fatalf("New(\"\") = %v, %v", b, err)
	}
	if _, err := New("cuda"); !errors.Is(err, core.ErrUnsupported) {
		t.Errorf("New(cuda) err = %v, want ErrUnsupported", err)
	}
}
