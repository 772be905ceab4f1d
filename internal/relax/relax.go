// Package relax equilibrates atomic charges against electronegativities.
package relax

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/petrichorcode/pysic/internal/atoms"
)

// ErrNotConverged is returned when the charges did not settle within the
// step limit. The last charges are left on the target.
var ErrNotConverged = errors.New("pysic: charge relaxation did not converge")

// Target is a system whose charges can be relaxed.
type Target interface {
	Structure() *atoms.Structure
	SetStructure(st *atoms.Structure)
	Electronegativities() ([]float64, error)
}

type Relaxer interface {
	Relax(t Target) error
}

// Damped integrates fictitious charge dynamics with friction. Charge flows
// from atoms of low to atoms of high electronegativity, so the total charge
// is conserved and the energy decreases until all electronegativities agree
// within Tolerance.
type Damped struct {
	Timestep  float64
	Inertia   float64
	Friction  float64
	Tolerance float64
	MaxSteps  int
	Logger    *slog.Logger
}

// NewDamped returns a relaxer with defaults suited to charges of order one.
func NewDamped() *Damped {
	return &Damped{
		Timestep:  0.2,
		Inertia:   1,
		Friction:  0.3,
		Tolerance: 1e-4,
		MaxSteps:  2000,
	}
}

func (d *Damped) validate() error {
	if d.Timestep <= 0 || d.Inertia <= 0 || d.Friction < 0 || d.Friction >= 1 || d.Tolerance <= 0 || d.MaxSteps <= 0 {
		return fmt.Errorf("pysic: invalid relaxation parameters %+v", *d)
	}
	return nil
}

func (d *Damped) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (d *Damped) Relax(t Target) error {
	if err := d.validate(); err != nil {
		return err
	}
	log := d.logger()

	var velocity []float64
	for step := 0; step < d.MaxSteps; step++ {
		chi, err := t.Electronegativities()
		if err != nil {
			return fmt.Errorf("relax step %d: %w", step, err)
		}
		st := t.Structure()
		if st == nil || len(chi) != st.Len() {
			return fmt.Errorf("relax step %d: %d electronegativities for %d atoms", step, len(chi), st.Len())
		}
		if velocity == nil {
			velocity = make([]float64, len(chi))
		}

		spread := Spread(chi)
		if spread < d.Tolerance {
			log.Debug("charges relaxed", "steps", step, "spread", spread)
			return nil
		}

		mean := Mean(chi)
		q := st.Charges()
		for i := range q {
			velocity[i] = (1-d.Friction)*velocity[i] + d.Timestep*(chi[i]-mean)/d.Inertia
			q[i] += d.Timestep * velocity[i]
		}
		st.SetCharges(q)
		t.SetStructure(st)
	}
	return fmt.Errorf("%w after %d steps", ErrNotConverged, d.MaxSteps)
}

func Mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

// Spread is the largest deviation from the mean.
func Spread(v []float64) float64 {
	mean := Mean(v)
	dev := 0.0
	for _, x := range v {
		dev = math.Max(dev, math.Abs(x-mean))
	}
	return dev
}
