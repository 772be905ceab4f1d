package md

import (
	"errors"
	"fmt"

	"github.com/petrichorcode/pysic/internal/atoms"
)

// ErrUnstable is returned when positions or momenta stop being finite.
var ErrUnstable = errors.New("pysic: trajectory became non-finite")

// ForceField evaluates a structure it holds. Setting the structure is how
// the integrator moves atoms.
type ForceField interface {
	Structure() *atoms.Structure
	SetStructure(st *atoms.Structure)
	Forces() ([]atoms.Vec3, error)
	Energy() (float64, error)
}

// Frame is the energy bookkeeping of one step.
type Frame struct {
	Step      int     `json:"step"`
	Time      float64 `json:"time"`
	Kinetic   float64 `json:"kinetic"`
	Potential float64 `json:"potential"`
}

func (f Frame) Total() float64 { return f.Kinetic + f.Potential }

type Metric interface {
	Name() string
	Observe(f Frame)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(f Frame, st *atoms.Structure)
}

type Result struct {
	Frames      []Frame
	Metrics     map[string]float64
	StepsTaken  int
	EnergyDrift float64
}

// StepError reports the step at which a run failed.
type StepError struct {
	Step int
	Time float64
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// KineticEnergy is Σ p²/2m over atoms with positive mass.
func KineticEnergy(st *atoms.Structure) float64 {
	var ke float64
	for _, a := range st.Atoms {
		if a.Mass > 0 {
			ke += a.Momentum.Dot(a.Momentum) / (2 * a.Mass)
		}
	}
	return ke
}

func finite(st *atoms.Structure) bool {
	for _, a := range st.Atoms {
		if !a.Position.IsValid() || !a.Momentum.IsValid() {
			return false
		}
	}
	return true
}
