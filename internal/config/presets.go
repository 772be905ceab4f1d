package config

import (
	"slices"

	"github.com/petrichorcode/pysic/internal/compute"
)

const (
	argonMass    = 39.948
	sodiumMass   = 22.990
	chlorineMass = 35.453

	// e²/(eV·Å) in units of the vacuum permittivity
	vacuumPermittivity = 0.00552635
)

var Presets = map[string]map[string]*Config{
	"argon": {
		"dimer": DefaultConfig(),
		"fcc":   argonFCC(3, 5.26),
		"hot":   warm(argonFCC(3, 5.26), 0.3),
	},
	"nacl": {
		"pair":     sodiumChloridePair(),
		"rocksalt": rocksalt(2, 5.64),
	},
}

func argonLJ() PotentialConfig {
	return PotentialConfig{
		Type:       compute.TypeLennardJones,
		Species:    [][]string{{"Ar", "Ar"}},
		Cutoff:     8.5,
		SoftCutoff: 7.5,
		Params:     []float64{0.0104, 3.4},
	}
}

func cubicCell(a float64) [][]float64 {
	return [][]float64{{a, 0, 0}, {0, a, 0}, {0, 0, a}}
}

var fccBasis = [][3]float64{{0, 0, 0}, {0.5, 0.5, 0}, {0.5, 0, 0.5}, {0, 0.5, 0.5}}

func argonFCC(n int, a float64) *Config {
	cfg := &Config{
		Name:       "argon-fcc",
		Cell:       cubicCell(float64(n) * a),
		Potentials: []PotentialConfig{argonLJ()},
		Skin:       DefaultSkin,
		MD:         MDConfig{Timestep: 2, Steps: 500, LogEvery: 10},
	}
	lattice(n, a, func(p []float64, _ int) {
		cfg.Atoms = append(cfg.Atoms, AtomConfig{Symbol: "Ar", Mass: argonMass, Position: p})
	})
	return cfg
}

// warm gives alternate atoms opposite momenta along x so the total momentum
// stays zero.
func warm(cfg *Config, p float64) *Config {
	cfg.Name += "-hot"
	for i := range cfg.Atoms {
		sign := 1.0
		if i%2 == 1 {
			sign = -1
		}
		cfg.Atoms[i].Momentum = []float64{sign * p, 0, 0}
	}
	return cfg
}

// lattice calls add for every fcc site of an n×n×n supercell with lattice
// constant a. The second argument is the site's index within the basis.
func lattice(n int, a float64, add func(p []float64, basis int)) {
	for i := range n {
		for j := range n {
			for k := range n {
				for b, s := range fccBasis {
					add([]float64{
						(float64(i) + s[0]) * a,
						(float64(j) + s[1]) * a,
						(float64(k) + s[2]) * a,
					}, b)
				}
			}
		}
	}
}

func sodiumChloride(cutoff float64) []PotentialConfig {
	return []PotentialConfig{
		{Type: compute.TypeSpring, Species: [][]string{{"Na", "Cl"}}, Cutoff: cutoff, Params: []float64{2, 2.82}},
		{Type: compute.TypeChargeSelf, Species: [][]string{{"Na"}}, Params: []float64{2.8, 6.0}},
		{Type: compute.TypeChargeSelf, Species: [][]string{{"Cl"}}, Params: []float64{8.3, 9.4}},
	}
}

func sodiumChloridePair() *Config {
	return &Config{
		Name: "nacl-pair",
		Cell: cubicCell(20),
		Atoms: []AtomConfig{
			{Symbol: "Na", Mass: sodiumMass, Position: []float64{8, 10, 10}},
			{Symbol: "Cl", Mass: chlorineMass, Position: []float64{10.5, 10, 10}},
		},
		Potentials: sodiumChloride(4),
		Coulomb:    &CoulombConfig{Method: "ewald", RealCutoff: 6, KCutoff: 0.5, Sigma: 1.5, Epsilon: vacuumPermittivity},
		Skin:       DefaultSkin,
		Relax:      &RelaxConfig{Timestep: 0.05, Inertia: 1, Friction: 0.3, Tolerance: 1e-4, MaxSteps: 5000},
		MD:         MDConfig{Timestep: 1, Steps: 200, LogEvery: 10},
	}
}

func rocksalt(n int, a float64) *Config {
	cfg := &Config{
		Name:       "nacl-rocksalt",
		Cell:       cubicCell(float64(n) * a),
		Potentials: sodiumChloride(3.5),
		Coulomb:    &CoulombConfig{Method: "ewald", RealCutoff: 5, KCutoff: 0.5, Sigma: 1.2, Epsilon: vacuumPermittivity},
		Skin:       DefaultSkin,
		MD:         MDConfig{Timestep: 1, Steps: 200, LogEvery: 10},
	}
	lattice(n, a, func(p []float64, _ int) {
		cfg.Atoms = append(cfg.Atoms, AtomConfig{Symbol: "Na", Mass: sodiumMass, Charge: 1, Position: p})
		cl := []float64{p[0] + a/2, p[1], p[2]}
		cfg.Atoms = append(cfg.Atoms, AtomConfig{Symbol: "Cl", Mass: chlorineMass, Charge: -1, Position: cl})
	})
	return cfg
}

// GetPreset returns a copy of the named preset, nil if there is none.
func GetPreset(system, preset string) *Config {
	systemPresets, ok := Presets[system]
	if !ok {
		return nil
	}
	cfg, ok := systemPresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets(system string) []string {
	systemPresets, ok := Presets[system]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(systemPresets))
	for name := range systemPresets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func ListSystems() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
