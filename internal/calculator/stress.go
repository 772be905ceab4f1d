package calculator

import (
	"fmt"

	"github.com/petrichorcode/pysic/internal/atoms"
	"github.com/petrichorcode/pysic/internal/core"
)

// Stress returns -(kinetic + potential)/V in the order xx, yy, zz, yz, xz, xy.
// The potential part is computed together with the forces; the kinetic part
// always uses the current momenta.
func (c *Calculator) Stress() ([6]float64, error) {
	if c.CalculationRequired(QuantityStress) {
		if err := c.evaluateForces(); err != nil {
			return [6]float64{}, err
		}
	}
	st := c.structure
	v := st.Volume()
	if v == 0 {
		return [6]float64{}, fmt.Errorf("%w: zero cell volume", core.ErrInvalidParameters)
	}
	kin := KineticStress(st)
	var out [6]float64
	for k := range out {
		out[k] = -(kin[k] + c.results.stress[k]) / v
	}
	return out, nil
}

// KineticStress is Σ p_A p_B / m over all atoms with positive mass.
func KineticStress(st *atoms.Structure) [6]float64 {
	var s [6]float64
	for _, a := range st.Atoms {
		if a.Mass <= 0 {
			continue
		}
		p := a.Momentum
		s[0] += p[0] * p[0] / a.Mass
		s[1] += p[1] * p[1] / a.Mass
		s[2] += p[2] * p[2] / a.Mass
		s[3] += p[1] * p[2] / a.Mass
		s[4] += p[0] * p[2] / a.Mass
		s[5] += p[0] * p[1] / a.Mass
	}
	return s
}
