package calculator

import (
	"fmt"

	"github.com/petrichorcode/pysic/internal/core"
	"github.com/petrichorcode/pysic/internal/engine"
	"github.com/petrichorcode/pysic/internal/interaction"
)

// sync brings the engine in line with the calculator. The caller holds the
// mirror session.
func (c *Calculator) sync() error {
	st, m := c.structure, c.mirror
	if st == nil {
		return core.ErrNoStructure
	}
	if c.fullInitRequired() {
		return c.initialize()
	}

	if !m.CellReady(st) {
		if err := c.pushCell(); err != nil {
			return err
		}
	}
	if !m.AtomsReady(st) {
		if err := c.pushCoordinates(); err != nil {
			return err
		}
	}
	if !m.ChargesReady(st) {
		if err := c.pushCharges(); err != nil {
			return err
		}
	}
	if !m.PotentialsReady(c.potentials) {
		// the set may have grown behind our back
		c.checkExpansion()
		if err := c.pushPotentials(); err != nil {
			return err
		}
	}
	if !m.CoulombReady(c.coulomb) {
		if err := c.pushCoulomb(); err != nil {
			return err
		}
	}
	if !m.PotentialListsReady() {
		if err := c.pushPotentialLists(); err != nil {
			return err
		}
	}
	if c.nlist == nil || !c.listCurrent || !m.NeighborListsReady(c.nlist.Map()) {
		return c.pushNeighborLists()
	}
	return nil
}

func (c *Calculator) fullInitRequired() bool {
	st, m := c.structure, c.mirror
	switch {
	case c.forceInit:
		return true
	case !m.WorkersReady(), !m.HoldsAtoms():
		return true
	case m.AtomCount() != st.Len(), m.eng.NumberOfAtoms() != st.Len():
		return true
	case !m.SpeciesReady(st):
		return true
	}
	return false
}

// initialize pushes everything from scratch.
func (c *Calculator) initialize() error {
	st, m := c.structure, c.mirror
	c.log.Debug("full engine initialization", "atoms", st.Len())
	c.checkExpansion()

	err := m.eng.CreateAtoms(engine.AtomData{
		Masses:    st.Masses(),
		Charges:   st.Charges(),
		Positions: st.Positions(),
		Momenta:   st.Momenta(),
		Tags:      st.Tags(),
		Symbols:   st.Symbols(),
	})
	if err != nil {
		return core.Push("create atoms", err)
	}
	m.setAtoms(st)
	c.results.invalidate()

	if err := m.eng.DistributeWorkers(st.Len()); err != nil {
		return core.Push("distribute workers", err)
	}
	m.setWorkers()

	if err := c.pushCell(); err != nil {
		return err
	}
	if err := c.pushPotentials(); err != nil {
		return err
	}
	if err := c.pushNeighborLists(); err != nil {
		return err
	}
	if err := c.pushPotentialLists(); err != nil {
		return err
	}
	if c.coulomb != nil || !m.CoulombReady(nil) {
		return c.pushCoulomb()
	}
	return nil
}

func (c *Calculator) pushCell() error {
	st := c.structure
	inv, err := st.Cell.Inverse()
	if err != nil {
		return err
	}
	c.log.Debug("pushing cell")
	if err := c.mirror.eng.CreateCell(engine.CellData{Vectors: st.Cell, Inverse: inv, PBC: st.PBC}); err != nil {
		return core.Push("create cell", err)
	}
	c.mirror.setCell(st)
	return nil
}

// pushCoordinates also refreshes the neighbor lists, since moved atoms may
// have used up the skin.
func (c *Calculator) pushCoordinates() error {
	st, m := c.structure, c.mirror
	if n := m.eng.NumberOfAtoms(); st.Len() != n {
		return fmt.Errorf("%w: structure has %d atoms, engine %d", core.ErrLockedCore, st.Len(), n)
	}
	c.log.Debug("pushing coordinates")
	if err := m.eng.UpdateCoordinates(st.Positions(), st.Momenta()); err != nil {
		return core.Push("update coordinates", err)
	}
	c.results.invalidate()
	m.setCoordinates(st)
	return c.pushNeighborLists()
}

func (c *Calculator) pushCharges() error {
	q := c.structure.Charges()
	c.log.Debug("pushing charges")
	if err := c.mirror.eng.UpdateCharges(q); err != nil {
		return core.Push("update charges", err)
	}
	c.results.invalidate()
	c.mirror.setCharges(q)
	return nil
}

type coordinatorRef struct {
	coordinator *interaction.Coordinator
	group       int
}

// pushPotentials replaces the potential and bond-order tables. Every target
// tuple is registered once per distinct ordering.
func (c *Calculator) pushPotentials() error {
	m := c.mirror
	eng := m.eng
	pots := c.potentials.Potentials()
	c.log.Debug("pushing potentials", "potentials", len(pots))

	m.forgetPotentials()
	if len(pots) == 0 {
		if err := eng.AllocatePotentials(0); err != nil {
			return core.Push("allocate potentials", err)
		}
		if err := eng.AllocateBondOrderFactors(0); err != nil {
			return core.Push("allocate bond-order factors", err)
		}
		m.setPotentials(c.potentials)
		return nil
	}

	n := 0
	var coords []coordinatorRef
	for i, p := range pots {
		n += p.Targets.PermutationCount()
		if p.Coordinator != nil {
			coords = append(coords, coordinatorRef{coordinator: p.Coordinator, group: i})
		}
	}
	if err := eng.AllocatePotentials(n); err != nil {
		return core.Push("allocate potentials", err)
	}
	for i, p := range pots {
		group := -1
		if p.Coordinator != nil {
			group = i
		}
		for _, spec := range potentialSpecs(p, group) {
			if err := eng.AddPotential(spec); err != nil {
				return core.Push("add potential", err)
			}
		}
	}

	nb := 0
	for _, ref := range coords {
		for _, b := range ref.coordinator.BondOrders {
			nb += b.PermutationCount()
		}
	}
	if err := eng.AllocateBondOrderFactors(nb); err != nil {
		return core.Push("allocate bond-order factors", err)
	}
	for _, ref := range coords {
		for _, b := range ref.coordinator.BondOrders {
			for _, tuple := range b.Species {
				for _, perm := range interaction.Permutations(tuple) {
					err := eng.AddBondOrderFactor(engine.BondOrderSpec{
						Type:        b.Type,
						Params:      b.FlatParams(),
						ParamCounts: b.ParamCounts(),
						Cutoff:      b.Cutoff,
						SoftCutoff:  b.SoftCutoff,
						Symbols:     perm,
						Original:    tuple,
						Group:       ref.group,
					})
					if err != nil {
						return core.Push("add bond-order factor", err)
					}
				}
			}
		}
	}

	if err := eng.AllocateBondOrderStorage(eng.NumberOfAtoms(), len(pots), len(coords)); err != nil {
		return core.Push("allocate bond-order storage", err)
	}
	m.setPotentials(c.potentials)
	return nil
}

func potentialSpecs(p interaction.Potential, group int) []engine.PotentialSpec {
	base := engine.PotentialSpec{
		Type:       p.Type,
		Params:     p.Params,
		Cutoff:     p.Cutoff,
		SoftCutoff: p.SoftCutoff,
		Group:      group,
	}
	var specs []engine.PotentialSpec
	add := func(targets, original engine.TargetTuple) {
		s := base
		s.Targets, s.Original = targets, original
		specs = append(specs, s)
	}
	switch p.Targets.Kind() {
	case interaction.KindSpecies:
		for _, tuple := range p.Targets.Species() {
			for _, perm := range interaction.Permutations(tuple) {
				add(engine.TargetTuple{Symbols: perm}, engine.TargetTuple{Symbols: tuple})
			}
		}
	case interaction.KindTags:
		for _, tuple := range p.Targets.Tags() {
			for _, perm := range interaction.Permutations(tuple) {
				add(engine.TargetTuple{Tags: perm}, engine.TargetTuple{Tags: tuple})
			}
		}
	case interaction.KindIndices:
		for _, tuple := range p.Targets.Indices() {
			for _, perm := range interaction.Permutations(tuple) {
				add(engine.TargetTuple{Indices: perm}, engine.TargetTuple{Indices: tuple})
			}
		}
	}
	return specs
}

func (c *Calculator) pushPotentialLists() error {
	m := c.mirror
	if !m.AtomsReady(c.structure) {
		return fmt.Errorf("building potential lists: %w", core.ErrMissingAtoms)
	}
	c.log.Debug("building potential lists")
	if err := m.eng.BuildPotentialLists(); err != nil {
		return core.Push("build potential lists", err)
	}
	m.setPotentialLists()
	return nil
}

// pushCoulomb sends the Ewald parameters, or switches summation off when the
// calculator has none.
func (c *Calculator) pushCoulomb() error {
	st, m := c.structure, c.mirror
	if c.coulomb == nil {
		c.log.Debug("disabling coulomb summation")
		if err := m.eng.SetEwaldParameters(nil); err != nil {
			return core.Push("set ewald parameters", err)
		}
		m.setCoulomb(nil)
		return nil
	}

	scales, err := c.coulomb.ScalingFactors(st.Len())
	if err != nil {
		return err
	}
	limits, err := c.coulomb.KSpaceLimits(st.Cell)
	if err != nil {
		return err
	}
	c.log.Debug("pushing coulomb summation", "method", c.coulomb.Method(), "k_limits", limits)
	err = m.eng.SetEwaldParameters(&engine.EwaldParams{
		RealCutoff: c.coulomb.RealSpaceCutoff(),
		KLimits:    limits,
		Sigma:      c.coulomb.Sigma(),
		Epsilon:    c.coulomb.Epsilon(),
		Scales:     scales,
	})
	if err != nil {
		return core.Push("set ewald parameters", err)
	}
	m.setCoulomb(c.coulomb)
	return nil
}

// pushNeighborLists recreates the list if its cutoffs are stale, updates it
// for the current positions and pushes it unless the engine already holds
// the same map.
func (c *Calculator) pushNeighborLists() error {
	st, m := c.structure, c.mirror
	if !m.AtomsReady(st) {
		return fmt.Errorf("building neighbor lists: %w", core.ErrMissingAtoms)
	}
	if c.nlist == nil || !c.listCurrent {
		c.createList(c.IndividualCutoffs(1))
	}
	rebuilt, err := c.nlist.Update(st)
	if err != nil {
		return err
	}
	nm := c.nlist.Map()
	if m.NeighborListsReady(nm) {
		return nil
	}
	c.log.Debug("pushing neighbor lists", "rebuilt", rebuilt, "strategy", c.nlist.Strategy(), "entries", nm.Entries())

	m.forgetNeighborLists()
	for i, l := range nm {
		if err := m.eng.SetNeighborList(i, l); err != nil {
			return core.Push("set neighbor list", err)
		}
	}
	m.setNeighborLists(nm)
	return nil
}
