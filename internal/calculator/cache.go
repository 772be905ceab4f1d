package calculator

import (
	"slices"

	"github.com/petrichorcode/pysic/internal/atoms"
)

// Quantity names a cached result.
type Quantity int

const (
	QuantityEnergy Quantity = iota
	QuantityForces
	QuantityStress
	QuantityElectronegativities
)

// AllQuantities is what CalculationRequired checks when given none.
var AllQuantities = []Quantity{QuantityEnergy, QuantityForces, QuantityStress, QuantityElectronegativities}

func (q Quantity) String() string {
	switch q {
	case QuantityEnergy:
		return "energy"
	case QuantityForces:
		return "forces"
	case QuantityStress:
		return "stress"
	case QuantityElectronegativities:
		return "electronegativities"
	default:
		return "unknown"
	}
}

// ParseQuantity is the inverse of String.
func ParseQuantity(s string) (Quantity, bool) {
	for _, q := range AllQuantities {
		if q.String() == s {
			return q, true
		}
	}
	return 0, false
}

// results holds the last computed values; nil means unknown.
type results struct {
	energy *float64
	forces []atoms.Vec3
	stress *[6]float64
	chi    []float64
}

func (r *results) invalidate() {
	*r = results{}
}

func (r *results) known(q Quantity) bool {
	switch q {
	case QuantityEnergy:
		return r.energy != nil
	case QuantityForces:
		return r.forces != nil
	case QuantityStress:
		return r.stress != nil
	case QuantityElectronegativities:
		return r.chi != nil
	}
	return true
}

func (r *results) setForces(f []atoms.Vec3, stress [6]float64) {
	r.forces = slices.Clone(f)
	r.stress = &stress
}
