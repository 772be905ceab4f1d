package interaction

import (
	"fmt"
	"slices"

	"github.com/petrichorcode/pysic/internal/atoms"
	"github.com/petrichorcode/pysic/internal/core"
)

// MethodEwald is the only supported summation method.
const MethodEwald = "ewald"

// Coulomb is an immutable Coulomb summation scheme.
type Coulomb struct {
	method     string
	realCutoff float64
	kCutoff    float64
	sigma      float64
	epsilon    float64
	scales     []float64
	version    uint64
}

// NewEwald returns an Ewald scheme. A nil scales vector means all atoms carry
// unit scaling.
func NewEwald(realCutoff, kCutoff, sigma, epsilon float64, scales []float64) (*Coulomb, error) {
	if realCutoff <= 0 || kCutoff < 0 || sigma <= 0 || epsilon <= 0 {
		return nil, fmt.Errorf("%w: ewald parameters rc=%g kc=%g sigma=%g eps=%g",
			core.ErrInvalidParameters, realCutoff, kCutoff, sigma, epsilon)
	}
	return &Coulomb{
		method:     MethodEwald,
		realCutoff: realCutoff,
		kCutoff:    kCutoff,
		sigma:      sigma,
		epsilon:    epsilon,
		scales:     slices.Clone(scales),
		version:    nextVersion(),
	}, nil
}

func (c *Coulomb) Method() string           { return c.method }
func (c *Coulomb) RealSpaceCutoff() float64 { return c.realCutoff }
func (c *Coulomb) KCutoff() float64         { return c.kCutoff }
func (c *Coulomb) Sigma() float64           { return c.sigma }
func (c *Coulomb) Epsilon() float64         { return c.epsilon }

// Version returns the identity token. A nil scheme has version 0.
func (c *Coulomb) Version() uint64 {
	if c == nil {
		return 0
	}
	return c.version
}

// ScalingFactors returns one factor per atom.
func (c *Coulomb) ScalingFactors(n int) ([]float64, error) {
	if c.scales == nil {
		out := make([]float64, n)
		for i := range out {
			out[i] = 1
		}
		return out, nil
	}
	if len(c.scales) != n {
		return nil, fmt.Errorf("%w: %d scaling factors for %d atoms", core.ErrInvalidParameters, len(c.scales), n)
	}
	return slices.Clone(c.scales), nil
}

// KSpaceLimits returns the truncation of the reciprocal sum along each axis.
func (c *Coulomb) KSpaceLimits(cell atoms.Cell) ([3]int, error) {
	rec, err := cell.Reciprocal()
	if err != nil {
		return [3]int{}, err
	}
	volume := rec[0].Dot(rec[1].Cross(rec[2]))
	return [3]int{
		int(c.kCutoff*rec[1].Cross(rec[2]).Norm()/volume + 0.5),
		int(c.kCutoff*rec[0].Cross(rec[2]).Norm()/volume + 0.5),
		int(c.kCutoff*rec[0].Cross(rec[1]).Norm()/volume + 0.5),
	}, nil
}
