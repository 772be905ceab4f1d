package md

import "github.com/petrichorcode/pysic/internal/atoms"

// Verlet is a velocity Verlet integrator. It keeps the forces of the last
// step so each step costs one force evaluation.
type Verlet struct {
	forces []atoms.Vec3
}

func NewVerlet() *Verlet {
	return &Verlet{}
}

// Reset drops the cached forces, for example after the structure was
// changed outside the integrator.
func (v *Verlet) Reset() {
	v.forces = nil
}

// Step advances ff by dt. Atoms without mass stay in place.
func (v *Verlet) Step(ff ForceField, dt float64) error {
	st := ff.Structure()
	if len(v.forces) != st.Len() {
		f, err := ff.Forces()
		if err != nil {
			return err
		}
		v.forces = f
	}

	halfDt := 0.5 * dt
	for i := range st.Atoms {
		a := &st.Atoms[i]
		if a.Mass <= 0 {
			continue
		}
		a.Momentum = a.Momentum.Add(v.forces[i].Scale(halfDt))
		a.Position = a.Position.Add(a.Momentum.Scale(dt / a.Mass))
	}
	ff.SetStructure(st)

	f, err := ff.Forces()
	if err != nil {
		v.forces = nil
		return err
	}
	for i := range st.Atoms {
		a := &st.Atoms[i]
		if a.Mass <= 0 {
			continue
		}
		a.Momentum = a.Momentum.Add(f[i].Scale(halfDt))
	}
	ff.SetStructure(st)
	v.forces = f
	return nil
}
