package compute

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/petrichorcode/pysic/internal/atoms"
	"github.com/petrichorcode/pysic/internal/core"
	"github.com/petrichorcode/pysic/internal/engine"
	"github.com/petrichorcode/pysic/internal/neighbor"
)

// minChunk is the smallest number of atoms handed to one worker.
const minChunk = 16

type Option func(*CPU)

// WithWorkers caps the number of goroutines used per evaluation.
func WithWorkers(n int) Option {
	return func(c *CPU) {
		if n > 0 {
			c.workers = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *CPU) {
		if l != nil {
			c.logger = l
		}
	}
}

// CPU is a single-process engine. It is not safe for concurrent use; callers
// serialize access the same way they would for an external engine.
type CPU struct {
	workers int
	logger  *slog.Logger

	masses    []float64
	charges   []float64
	positions []atoms.Vec3
	momenta   []atoms.Vec3
	tags      []int
	symbols   []string
	ranks     int

	cell    engine.CellData
	hasCell bool

	potentials    []engine.PotentialSpec
	potentialCap  int
	bondOrders    []engine.BondOrderSpec
	bondOrderCap  int
	storage       [3]int
	warnedOnBonds bool

	lists      [][]int
	listsBuilt bool

	neighbors [][]neighbor.Neighbor
	ewald     *engine.EwaldParams
}

var _ Backend = (*CPU)(nil)

func NewCPU(opts ...Option) *CPU {
	c := &CPU{
		workers: runtime.NumCPU(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CPU) Name() string { return "cpu" }

func (c *CPU) CreateAtoms(d engine.AtomData) error {
	n := len(d.Positions)
	if len(d.Masses) != n || len(d.Charges) != n || len(d.Momenta) != n || len(d.Tags) != n || len(d.Symbols) != n {
		return fmt.Errorf("%w: inconsistent atom data for %d atoms", core.ErrInvalidParameters, n)
	}
	c.masses = slices.Clone(d.Masses)
	c.charges = slices.Clone(d.Charges)
	c.positions = slices.Clone(d.Positions)
	c.momenta = slices.Clone(d.Momenta)
	c.tags = slices.Clone(d.Tags)
	c.symbols = slices.Clone(d.Symbols)
	c.neighbors = make([][]neighbor.Neighbor, n)
	c.lists = nil
	c.listsBuilt = false
	c.ranks = 0
	return nil
}

// DistributeWorkers records the partition size. The CPU backend splits work
// per evaluation, so only the atom count is checked.
func (c *CPU) DistributeWorkers(nAtoms int) error {
	if nAtoms != len(c.positions) {
		return fmt.Errorf("%w: distributing %d atoms, engine holds %d", core.ErrInvalidParameters, nAtoms, len(c.positions))
	}
	c.ranks = min(c.workers, max(1, nAtoms/minChunk))
	return nil
}

func (c *CPU) CreateCell(cell engine.CellData) error {
	if cell.Vectors.Volume() == 0 {
		return fmt.Errorf("%w: singular cell", core.ErrInvalidParameters)
	}
	c.cell = cell
	c.hasCell = true
	return nil
}

func (c *CPU) UpdateCoordinates(positions, momenta []atoms.Vec3) error {
	if len(positions) != len(c.positions) || len(momenta) != len(c.positions) {
		return fmt.Errorf("%w: %d coordinates for %d atoms", core.ErrLockedCore, len(positions), len(c.positions))
	}
	copy(c.positions, positions)
	copy(c.momenta, momenta)
	return nil
}

func (c *CPU) UpdateCharges(charges []float64) error {
	if len(charges) != len(c.charges) {
		return fmt.Errorf("%w: %d charges for %d atoms", core.ErrLockedCore, len(charges), len(c.charges))
	}
	copy(c.charges, charges)
	return nil
}

func (c *CPU) AllocatePotentials(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d potentials", core.ErrInvalidParameters, n)
	}
	c.potentials = make([]engine.PotentialSpec, 0, n)
	c.potentialCap = n
	c.lists = nil
	c.listsBuilt = false
	return nil
}

func (c *CPU) AddPotential(spec engine.PotentialSpec) error {
	if len(c.potentials) >= c.potentialCap {
		return fmt.Errorf("%w: potential table holds %d entries", core.ErrInvalidParameters, c.potentialCap)
	}
	m, ok := models[spec.Type]
	if !ok {
		return fmt.Errorf("%w: potential type %q", core.ErrUnsupported, spec.Type)
	}
	if arity(spec.Targets) != m.bodies {
		return fmt.Errorf("%w: %s acts on %d bodies, got %d targets", core.ErrInvalidParameters, spec.Type, m.bodies, arity(spec.Targets))
	}
	if len(spec.Params) != m.params {
		return fmt.Errorf("%w: %s takes %d parameters, got %d", core.ErrInvalidParameters, spec.Type, m.params, len(spec.Params))
	}
	spec.Params = slices.Clone(spec.Params)
	c.potentials = append(c.potentials, spec)
	return nil
}

func (c *CPU) AllocateBondOrderFactors(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: %d bond-order factors", core.ErrInvalidParameters, n)
	}
	c.bondOrders = make([]engine.BondOrderSpec, 0, n)
	c.bondOrderCap = n
	return nil
}

func (c *CPU) AddBondOrderFactor(spec engine.BondOrderSpec) error {
	if len(c.bondOrders) >= c.bondOrderCap {
		return fmt.Errorf("%w: bond-order table holds %d entries", core.ErrInvalidParameters, c.bondOrderCap)
	}
	c.bondOrders = append(c.bondOrders, spec)
	return nil
}

func (c *CPU) AllocateBondOrderStorage(nAtoms, nGroups, nCoordinators int) error {
	if nAtoms < 0 || nGroups < 0 || nCoordinators < 0 {
		return fmt.Errorf("%w: bond-order storage %d/%d/%d", core.ErrInvalidParameters, nAtoms, nGroups, nCoordinators)
	}
	c.storage = [3]int{nAtoms, nGroups, nCoordinators}
	return nil
}

// BuildPotentialLists records for every atom the potentials whose first slot
// it can occupy.
func (c *CPU) BuildPotentialLists() error {
	n := len(c.positions)
	if n == 0 {
		return core.ErrMissingAtoms
	}
	c.lists = make([][]int, n)
	for i := 0; i < n; i++ {
		for p, spec := range c.potentials {
			if c.matches(spec.Targets, 0, i) {
				c.lists[i] = append(c.lists[i], p)
			}
		}
	}
	c.listsBuilt = true
	return nil
}

func (c *CPU) SetNeighborList(atom int, nbrs []neighbor.Neighbor) error {
	if atom < 0 || atom >= len(c.neighbors) {
		return fmt.Errorf("%w: neighbor list for atom %d of %d", core.ErrInvalidParameters, atom, len(c.neighbors))
	}
	for _, nb := range nbrs {
		if nb.Index < 0 || nb.Index >= len(c.neighbors) {
			return fmt.Errorf("%w: atom %d lists neighbor %d", core.ErrInvalidParameters, atom, nb.Index)
		}
	}
	c.neighbors[atom] = slices.Clone(nbrs)
	return nil
}

func (c *CPU) SetEwaldParameters(p *engine.EwaldParams) error {
	if p == nil {
		c.ewald = nil
		return nil
	}
	if p.Sigma <= 0 || p.Epsilon <= 0 || p.RealCutoff < 0 {
		return fmt.Errorf("%w: ewald sigma %g epsilon %g cutoff %g", core.ErrInvalidParameters, p.Sigma, p.Epsilon, p.RealCutoff)
	}
	cp := *p
	cp.Scales = slices.Clone(p.Scales)
	c.ewald = &cp
	return nil
}

func (c *CPU) NumberOfAtoms() int { return len(c.positions) }

func (c *CPU) Energy() (float64, error) {
	res, err := c.evaluate()
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, e := range res.energy {
		total += e
	}
	return total, nil
}

func (c *CPU) Forces() ([]atoms.Vec3, [6]float64, error) {
	res, err := c.evaluate()
	if err != nil {
		return nil, [6]float64{}, err
	}
	return res.forces, res.virial, nil
}

func (c *CPU) Electronegativities() ([]float64, error) {
	res, err := c.evaluate()
	if err != nil {
		return nil, err
	}
	return res.chi, nil
}

func arity(t engine.TargetTuple) int {
	switch {
	case t.Symbols != nil:
		return len(t.Symbols)
	case t.Tags != nil:
		return len(t.Tags)
	case t.Indices != nil:
		return len(t.Indices)
	}
	return 0
}

func (c *CPU) matches(t engine.TargetTuple, slot, atom int) bool {
	switch {
	case t.Symbols != nil:
		return slot < len(t.Symbols) && t.Symbols[slot] == c.symbols[atom]
	case t.Tags != nil:
		return slot < len(t.Tags) && t.Tags[slot] == c.tags[atom]
	case t.Indices != nil:
		return slot < len(t.Indices) && t.Indices[slot] == atom
	}
	return false
}

type result struct {
	energy []float64
	forces []atoms.Vec3
	chi    []float64
	virial [6]float64
}

func (c *CPU) ready() error {
	n := len(c.positions)
	if n == 0 {
		return core.ErrMissingAtoms
	}
	if !c.hasCell {
		return fmt.Errorf("%w: no cell", core.ErrInvalidParameters)
	}
	if len(c.potentials) > 0 && !c.listsBuilt {
		return fmt.Errorf("%w: potential lists not built", core.ErrInvalidParameters)
	}
	if c.ewald != nil && c.ewald.Scales != nil && len(c.ewald.Scales) != n {
		return fmt.Errorf("%w: %d ewald scales for %d atoms", core.ErrInvalidParameters, len(c.ewald.Scales), n)
	}
	return nil
}

// evaluate computes every per-atom quantity from the atom's own neighbor
// list. Each ordered entry carries half of the pair energy and the full force
// on the owning atom, so workers never write to another atom's slot.
func (c *CPU) evaluate() (*result, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if len(c.bondOrders) > 0 && !c.warnedOnBonds {
		c.logger.Warn("bond-order factors are stored but not evaluated", "factors", len(c.bondOrders))
		c.warnedOnBonds = true
	}

	n := len(c.positions)
	res := &result{
		energy: make([]float64, n),
		forces: make([]atoms.Vec3, n),
		chi:    make([]float64, n),
	}

	workers := min(c.workers, max(1, n/minChunk))
	chunk := (n + workers - 1) / workers
	virials := make([][6]float64, workers)

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		start, end := w*chunk, min(n, (w+1)*chunk)
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := c.atomTerms(i, res, &virials[w]); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for w := range virials {
		for k := range res.virial {
			res.virial[k] += virials[w][k]
		}
	}
	return res, nil
}

func (c *CPU) scale(i int) float64 {
	if c.ewald == nil || c.ewald.Scales == nil {
		return 1
	}
	return c.ewald.Scales[i]
}

func (c *CPU) atomTerms(i int, res *result, virial *[6]float64) error {
	qi := c.charges[i]
	var coulomb float64
	if c.ewald != nil {
		coulomb = 1 / (4 * math.Pi * c.ewald.Epsilon)
		si := c.scale(i)
		self := coulomb * si * si / (math.Sqrt(2*math.Pi) * c.ewald.Sigma)
		res.energy[i] -= self * qi * qi
		res.chi[i] += 2 * self * qi
	}

	var lists []int
	if c.listsBuilt {
		lists = c.lists[i]
	}
	for _, p := range lists {
		spec := c.potentials[p]
		if models[spec.Type].bodies != 1 {
			continue
		}
		v, dq := single(spec.Type, qi, spec.Params)
		res.energy[i] += v
		res.chi[i] -= dq
	}

	for _, nb := range c.neighbors[i] {
		j := nb.Index
		d := c.positions[j].Add(c.cell.Vectors.Translation(nb.Offset)).Sub(c.positions[i])
		r := d.Norm()
		if r == 0 {
			return fmt.Errorf("%w: atoms %d and %d overlap", core.ErrInvalidParameters, i, j)
		}

		dvdr := 0.0
		for _, p := range lists {
			spec := c.potentials[p]
			if models[spec.Type].bodies != 2 || r >= spec.Cutoff || !c.matches(spec.Targets, 1, j) {
				continue
			}
			v, dv := pair(spec.Type, r, spec.Params)
			f, df := smoothen(r, spec.SoftCutoff, spec.Cutoff)
			res.energy[i] += 0.5 * v * f
			dvdr += dv*f + v*df
		}

		if c.ewald != nil && r < c.ewald.RealCutoff {
			g, dg := screened(r, c.ewald.Sigma)
			k := coulomb * c.scale(i) * c.scale(j)
			res.energy[i] += 0.5 * k * qi * c.charges[j] * g
			res.chi[i] -= k * c.charges[j] * g
			dvdr += k * qi * c.charges[j] * dg
		}

		if dvdr == 0 {
			continue
		}
		res.forces[i] = res.forces[i].Add(d.Scale(dvdr / r))
		w := -0.5 * dvdr / r
		virial[0] += w * d[0] * d[0]
		virial[1] += w * d[1] * d[1]
		virial[2] += w * d[2] * d[2]
		virial[3] += w * d[1] * d[2]
		virial[4] += w * d[0] * d[2]
		virial[5] += w * d[0] * d[1]
	}
	return nil
}
