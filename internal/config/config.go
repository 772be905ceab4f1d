package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/petrichorcode/pysic/internal/atoms"
	"github.com/petrichorcode/pysic/internal/core"
	"github.com/petrichorcode/pysic/internal/interaction"
	"github.com/petrichorcode/pysic/internal/neighbor"
	"github.com/petrichorcode/pysic/internal/relax"
)

const (
	DefaultTimestep = 1.0
	DefaultSteps    = 200
	DefaultLogEvery = 10
	DefaultSkin     = neighbor.DefaultSkin
)

// Config describes one calculation: a structure, its interaction models and
// the settings of the drivers run on it.
type Config struct {
	Name       string            `yaml:"name"`
	Cell       [][]float64       `yaml:"cell" validate:"len=3,dive,len=3"`
	PBC        []bool            `yaml:"pbc,omitempty" validate:"omitempty,len=3"`
	Atoms      []AtomConfig      `yaml:"atoms" validate:"min=1,dive"`
	Potentials []PotentialConfig `yaml:"potentials" validate:"dive"`
	Coulomb    *CoulombConfig    `yaml:"coulomb,omitempty"`
	Skin       float64           `yaml:"skin" validate:"gte=0"`
	Relax      *RelaxConfig      `yaml:"relax,omitempty"`
	MD         MDConfig          `yaml:"md"`
}

type AtomConfig struct {
	Symbol   string    `yaml:"symbol" validate:"required"`
	Tag      int       `yaml:"tag,omitempty"`
	Mass     float64   `yaml:"mass" validate:"gte=0"`
	Charge   float64   `yaml:"charge,omitempty"`
	Position []float64 `yaml:"position" validate:"len=3"`
	Momentum []float64 `yaml:"momentum,omitempty" validate:"omitempty,len=3"`
}

// PotentialConfig targets exactly one of species, tags or indices.
type PotentialConfig struct {
	Type       string            `yaml:"type" validate:"required"`
	Species    [][]string        `yaml:"species,omitempty" validate:"dive,min=1,dive,required"`
	Tags       [][]int           `yaml:"tags,omitempty" validate:"dive,min=1"`
	Indices    [][]int           `yaml:"indices,omitempty" validate:"dive,min=1,dive,gte=0"`
	Cutoff     float64           `yaml:"cutoff" validate:"gte=0"`
	SoftCutoff float64           `yaml:"soft_cutoff,omitempty" validate:"gte=0,ltefield=Cutoff"`
	Params     []float64         `yaml:"params,omitempty"`
	BondOrders []BondOrderConfig `yaml:"bond_orders,omitempty" validate:"dive"`
}

type BondOrderConfig struct {
	Type       string      `yaml:"type" validate:"required"`
	Species    [][]string  `yaml:"species" validate:"min=1,dive,min=1"`
	Cutoff     float64     `yaml:"cutoff" validate:"gte=0"`
	SoftCutoff float64     `yaml:"soft_cutoff,omitempty" validate:"gte=0,ltefield=Cutoff"`
	Params     [][]float64 `yaml:"params,omitempty"`
}

type CoulombConfig struct {
	Method     string    `yaml:"method" validate:"oneof=ewald"`
	RealCutoff float64   `yaml:"real_cutoff" validate:"gt=0"`
	KCutoff    float64   `yaml:"k_cutoff" validate:"gte=0"`
	Sigma      float64   `yaml:"sigma" validate:"gt=0"`
	Epsilon    float64   `yaml:"epsilon" validate:"gt=0"`
	Scales     []float64 `yaml:"scales,omitempty"`
}

type RelaxConfig struct {
	Timestep  float64 `yaml:"timestep" validate:"gt=0"`
	Inertia   float64 `yaml:"inertia" validate:"gt=0"`
	Friction  float64 `yaml:"friction" validate:"gte=0,lt=1"`
	Tolerance float64 `yaml:"tolerance" validate:"gt=0"`
	MaxSteps  int     `yaml:"max_steps" validate:"gt=0"`
}

type MDConfig struct {
	Timestep float64 `yaml:"timestep" validate:"gt=0"`
	Steps    int     `yaml:"steps" validate:"gte=0"`
	LogEvery int     `yaml:"log_every" validate:"gte=0"`
}

// DefaultConfig is an argon dimer slightly outside the Lennard-Jones minimum.
func DefaultConfig() *Config {
	return &Config{
		Name: "argon-dimer",
		Cell: [][]float64{{20, 0, 0}, {0, 20, 0}, {0, 0, 20}},
		PBC:  []bool{true, true, true},
		Atoms: []AtomConfig{
			{Symbol: "Ar", Mass: 39.948, Position: []float64{5, 5, 5}},
			{Symbol: "Ar", Mass: 39.948, Position: []float64{9, 5, 5}},
		},
		Potentials: []PotentialConfig{argonLJ()},
		Skin:       DefaultSkin,
		MD:         MDConfig{Timestep: DefaultTimestep, Steps: DefaultSteps, LogEvery: DefaultLogEvery},
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		p := sl.Current().Interface().(PotentialConfig)
		kinds := 0
		for _, n := range []int{len(p.Species), len(p.Tags), len(p.Indices)} {
			if n > 0 {
				kinds++
			}
		}
		if kinds != 1 {
			sl.ReportError(p.Species, "Species", "species", "one_target_kind", "")
		}
	}, PotentialConfig{})
	return v
}

// Validate checks field constraints and that every potential has exactly one
// kind of target.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s fails %q", core.ErrInvalidParameters, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", core.ErrInvalidParameters, err)
	}
	return nil
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{Skin: DefaultSkin, MD: DefaultConfig().MD}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Structure builds the atoms. An empty pbc list means periodic along all axes.
func (c *Config) Structure() *atoms.Structure {
	st := &atoms.Structure{PBC: [3]bool{true, true, true}}
	for i := range 3 {
		if i < len(c.Cell) {
			st.Cell[i] = vec(c.Cell[i])
		}
		if len(c.PBC) == 3 {
			st.PBC[i] = c.PBC[i]
		}
	}
	st.Atoms = make([]atoms.Atom, len(c.Atoms))
	for i, a := range c.Atoms {
		st.Atoms[i] = atoms.Atom{
			Symbol:   a.Symbol,
			Tag:      a.Tag,
			Mass:     a.Mass,
			Charge:   a.Charge,
			Position: vec(a.Position),
			Momentum: vec(a.Momentum),
		}
	}
	return st
}

func vec(v []float64) atoms.Vec3 {
	var out atoms.Vec3
	copy(out[:], v)
	return out
}

// InteractionSet builds the interaction set.
func (c *Config) InteractionSet() (*interaction.Set, error) {
	pots := make([]interaction.Potential, 0, len(c.Potentials))
	for _, pc := range c.Potentials {
		p := interaction.Potential{
			Type:       pc.Type,
			Cutoff:     pc.Cutoff,
			SoftCutoff: pc.SoftCutoff,
			Params:     pc.Params,
		}
		switch {
		case len(pc.Species) > 0:
			p.Targets = interaction.BySpecies(pc.Species...)
		case len(pc.Tags) > 0:
			p.Targets = interaction.ByTags(pc.Tags...)
		default:
			p.Targets = interaction.ByIndices(pc.Indices...)
		}
		if len(pc.BondOrders) > 0 {
			p.Coordinator = &interaction.Coordinator{}
			for _, b := range pc.BondOrders {
				p.Coordinator.BondOrders = append(p.Coordinator.BondOrders, interaction.BondOrder{
					Type:       b.Type,
					Species:    b.Species,
					Cutoff:     b.Cutoff,
					SoftCutoff: b.SoftCutoff,
					Params:     b.Params,
				})
			}
		}
		pots = append(pots, p)
	}
	set := interaction.NewSet(pots...)
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return set, nil
}

// CoulombSummation builds the summation scheme, nil when none is configured.
func (c *Config) CoulombSummation() (*interaction.Coulomb, error) {
	if c.Coulomb == nil {
		return nil, nil
	}
	cc := c.Coulomb
	return interaction.NewEwald(cc.RealCutoff, cc.KCutoff, cc.Sigma, cc.Epsilon, cc.Scales)
}

// Relaxer returns the configured charge relaxation, nil when none is set.
func (c *Config) Relaxer() relax.Relaxer {
	if c.Relax == nil {
		return nil
	}
	d := relax.NewDamped()
	d.Timestep = c.Relax.Timestep
	d.Inertia = c.Relax.Inertia
	d.Friction = c.Relax.Friction
	d.Tolerance = c.Relax.Tolerance
	d.MaxSteps = c.Relax.MaxSteps
	return d
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Cell = cloneRows(c.Cell)
	out.PBC = append([]bool(nil), c.PBC...)
	out.Atoms = make([]AtomConfig, len(c.Atoms))
	for i, a := range c.Atoms {
		a.Position = append([]float64(nil), a.Position...)
		a.Momentum = append([]float64(nil), a.Momentum...)
		out.Atoms[i] = a
	}
	out.Potentials = make([]PotentialConfig, len(c.Potentials))
	for i, p := range c.Potentials {
		p.Species = cloneRows(p.Species)
		p.Tags = cloneRows(p.Tags)
		p.Indices = cloneRows(p.Indices)
		p.Params = append([]float64(nil), p.Params...)
		bos := make([]BondOrderConfig, len(p.BondOrders))
		for j, b := range p.BondOrders {
			b.Species = cloneRows(b.Species)
			b.Params = cloneRows(b.Params)
			bos[j] = b
		}
		if p.BondOrders == nil {
			bos = nil
		}
		p.BondOrders = bos
		out.Potentials[i] = p
	}
	if c.Coulomb != nil {
		cc := *c.Coulomb
		cc.Scales = append([]float64(nil), c.Coulomb.Scales...)
		out.Coulomb = &cc
	}
	if c.Relax != nil {
		r := *c.Relax
		out.Relax = &r
	}
	return &out
}

func cloneRows[T any](rows [][]T) [][]T {
	if rows == nil {
		return nil
	}
	out := make([][]T, len(rows))
	for i, r := range rows {
		out[i] = append([]T(nil), r...)
	}
	return out
}
