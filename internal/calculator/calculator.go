package calculator

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/petrichorcode/pysic/internal/atoms"
	"github.com/petrichorcode/pysic/internal/core"
	"github.com/petrichorcode/pysic/internal/cutoff"
	"github.com/petrichorcode/pysic/internal/interaction"
	"github.com/petrichorcode/pysic/internal/neighbor"
	"github.com/petrichorcode/pysic/internal/relax"
)

type Option func(*Calculator)

func WithLogger(l *slog.Logger) Option {
	return func(c *Calculator) {
		if l != nil {
			c.log = l
		}
	}
}

// WithFullInitialization makes every synchronization push everything.
func WithFullInitialization(on bool) Option {
	return func(c *Calculator) { c.forceInit = on }
}

func WithChargeRelaxation(r relax.Relaxer) Option {
	return func(c *Calculator) { c.relaxer = r }
}

// WithSkin sets the neighbor list skin used when lists are created
// automatically.
func WithSkin(skin float64) Option {
	return func(c *Calculator) { c.skin = skin }
}

// Calculator evaluates energy, forces, stress and electronegativities of one
// structure through a shared engine. A Calculator is not safe for concurrent
// use; separate calculators may share a Mirror across goroutines.
type Calculator struct {
	mirror *Mirror
	log    *slog.Logger

	structure  *atoms.Structure
	potentials *interaction.Set
	coulomb    *interaction.Coulomb
	relaxer    relax.Relaxer
	forceInit  bool

	nlist *neighbor.List
	// listCurrent is false when the neighbor list must be recreated with
	// fresh cutoffs before the next push.
	listCurrent bool
	cutoffs     []float64
	skin        float64

	results results
}

var _ relax.Target = (*Calculator)(nil)

func New(m *Mirror, opts ...Option) *Calculator {
	c := &Calculator{
		mirror: m,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		skin:   neighbor.DefaultSkin,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Calculator) Mirror() *Mirror { return c.mirror }

// Structure returns a copy of the assigned structure, nil if none.
func (c *Calculator) Structure() *atoms.Structure { return c.structure.Copy() }

// SetStructure stores a copy of st. Results are kept when positions, charges,
// species, tags and cell are unchanged; otherwise all are dropped, and a
// change of species or tags also retires the neighbor list. A nil st is
// ignored.
func (c *Calculator) SetStructure(st *atoms.Structure) {
	if st == nil {
		return
	}
	prev := c.structure
	c.structure = st.Copy()
	if prev != nil && prev.Equal(st) && prev.ChargesEqual(st) {
		return
	}
	c.results.invalidate()
	if prev == nil || !prev.SameSpecies(st) || !c.mirror.PotentialsReady(c.potentials) {
		c.listCurrent = false
	}
}

func (c *Calculator) Potentials() *interaction.Set { return c.potentials }

// SetPotentials replaces the interaction models. The set is shared, not
// copied: adding to it later is noticed through its version.
func (c *Calculator) SetPotentials(set *interaction.Set) error {
	if set == nil {
		return nil
	}
	if err := set.Validate(); err != nil {
		return err
	}
	c.potentials = set
	c.results.invalidate()
	c.checkExpansion()
	return nil
}

// AddPotential appends p to the current set, creating one if needed.
func (c *Calculator) AddPotential(p interaction.Potential) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if c.potentials == nil {
		c.potentials = interaction.NewSet()
	}
	c.potentials.Add(p)
	c.results.invalidate()
	c.checkExpansion()
	return nil
}

func (c *Calculator) Coulomb() *interaction.Coulomb { return c.coulomb }

// SetCoulomb sets the Coulomb summation; nil removes it.
func (c *Calculator) SetCoulomb(cb *interaction.Coulomb) {
	c.coulomb = cb
	c.results.invalidate()
	c.checkExpansion()
}

func (c *Calculator) ChargeRelaxation() relax.Relaxer { return c.relaxer }

// SetChargeRelaxation sets the relaxation run before energy, force and stress
// evaluations; nil disables it.
func (c *Calculator) SetChargeRelaxation(r relax.Relaxer) { c.relaxer = r }

func (c *Calculator) ForceFullInitialization(on bool) { c.forceInit = on }

func (c *Calculator) FullInitializationForced() bool { return c.forceInit }

// IndividualCutoffs returns the interaction range of every atom times scale,
// nil without a structure.
func (c *Calculator) IndividualCutoffs(scale float64) []float64 {
	return cutoff.Resolve(c.structure, c.potentials, c.coulomb, scale)
}

// NeighborList returns the current neighbor list, nil before one was created.
func (c *Calculator) NeighborList() *neighbor.List { return c.nlist }

// CreateNeighborLists replaces the neighbor list. Nil cutoffs are derived
// from the interaction models. The list is built and pushed on the next
// synchronization.
//
// Explicit cutoffs are taken as given once the engine is initialized. Lists
// shorter than the models' cutoffs then miss interactions until a potential
// change or a full initialization widens them.
func (c *Calculator) CreateNeighborLists(cutoffs []float64, skin float64) error {
	if c.structure == nil {
		return core.ErrNoStructure
	}
	if cutoffs == nil {
		cutoffs = c.IndividualCutoffs(1)
	}
	if len(cutoffs) != c.structure.Len() {
		return fmt.Errorf("%w: %d cutoffs for %d atoms", core.ErrInvalidParameters, len(cutoffs), c.structure.Len())
	}
	c.skin = skin
	c.createList(cutoffs)
	return nil
}

func (c *Calculator) createList(cutoffs []float64) {
	c.nlist = neighbor.NewList(cutoffs, c.skin, neighbor.WithVerifier(c.mirror))
	c.cutoffs = slices.Clone(cutoffs)
	c.listCurrent = true
	c.log.Debug("neighbor list created", "strategy", neighbor.Choose(c.structure.Cell, cutoffs), "skin", c.skin)
}

// checkExpansion retires the neighbor list when some atom now reaches
// further than the list was built for. Shrinking ranges keep the list.
func (c *Calculator) checkExpansion() {
	if cutoff.Expanded(c.cutoffs, c.IndividualCutoffs(1)) {
		c.listCurrent = false
	}
}

// CalculationRequired reports whether any of qs (all quantities when none are
// given) is unknown, or whether the engine no longer holds exactly what this
// calculator would push.
func (c *Calculator) CalculationRequired(qs ...Quantity) bool {
	if len(qs) == 0 {
		qs = AllQuantities
	}
	for _, q := range qs {
		if !c.results.known(q) {
			return true
		}
	}
	st, m := c.structure, c.mirror
	if st == nil {
		return true
	}
	if !m.AtomsReady(st) || !m.ChargesReady(st) || !m.CellReady(st) {
		return true
	}
	if !m.PotentialsReady(c.potentials) || !m.CoulombReady(c.coulomb) {
		return true
	}
	return c.nlist == nil || !c.listCurrent || !m.NeighborListsReady(c.nlist.Map())
}

func (c *Calculator) Energy() (float64, error) {
	if c.CalculationRequired(QuantityEnergy) {
		err := c.evaluate(true, func() error {
			e, err := c.mirror.eng.Energy()
			if err != nil {
				return core.Push("energy", err)
			}
			c.results.energy = &e
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return *c.results.energy, nil
}

// Forces also computes the potential part of the stress.
func (c *Calculator) Forces() ([]atoms.Vec3, error) {
	if c.CalculationRequired(QuantityForces) {
		if err := c.evaluateForces(); err != nil {
			return nil, err
		}
	}
	return slices.Clone(c.results.forces), nil
}

func (c *Calculator) evaluateForces() error {
	return c.evaluate(true, func() error {
		f, s, err := c.mirror.eng.Forces()
		if err != nil {
			return core.Push("forces", err)
		}
		c.results.setForces(f, s)
		return nil
	})
}

// Electronegativities are evaluated without charge relaxation, since the
// relaxation itself is driven by them.
func (c *Calculator) Electronegativities() ([]float64, error) {
	if c.CalculationRequired(QuantityElectronegativities) {
		err := c.evaluate(false, func() error {
			chi, err := c.mirror.eng.Electronegativities()
			if err != nil {
				return core.Push("electronegativities", err)
			}
			c.results.chi = slices.Clone(chi)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return slices.Clone(c.results.chi), nil
}

// ElectronegativityDifferences returns each electronegativity minus the mean.
func (c *Calculator) ElectronegativityDifferences() ([]float64, error) {
	chi, err := c.Electronegativities()
	if err != nil {
		return nil, err
	}
	mean := relax.Mean(chi)
	for i := range chi {
		chi[i] -= mean
	}
	return chi, nil
}

// evaluate synchronizes the engine and runs compute while holding the
// session. Charge relaxation, when requested, runs between an initial
// synchronization and the final one without the session held, because it
// calls back into the calculator.
func (c *Calculator) evaluate(relaxCharges bool, compute func() error) error {
	if c.structure == nil {
		return core.ErrNoStructure
	}
	if relaxCharges && c.relaxer != nil {
		if err := c.synchronized(func() error { return nil }); err != nil {
			return err
		}
		if err := c.relaxer.Relax(c); err != nil {
			return fmt.Errorf("charge relaxation: %w", err)
		}
	}
	return c.synchronized(compute)
}

func (c *Calculator) synchronized(fn func() error) error {
	c.mirror.session.Lock()
	defer c.mirror.session.Unlock()
	if err := c.sync(); err != nil {
		return err
	}
	return fn()
}

// Equal reports whether both calculators hold equal structures and charges,
// equal neighbor maps and the same potential set.
func (c *Calculator) Equal(o *Calculator) bool {
	if o == nil {
		return false
	}
	if (c.structure == nil) != (o.structure == nil) {
		return false
	}
	if c.structure != nil && (!c.structure.Equal(o.structure) || !c.structure.ChargesEqual(o.structure)) {
		return false
	}
	if (c.nlist == nil) != (o.nlist == nil) {
		return false
	}
	if c.nlist != nil && !c.nlist.Map().Equal(o.nlist.Map()) {
		return false
	}
	return c.potentials.Version() == o.potentials.Version()
}
