package relax

import (
	"errors"
	"math"
	"testing"

	"github.com/petrichorcode/pysic/internal/atoms"
)

// quadratic has χ_i = -(a_i + J q_i), the charge derivative of Σ a q + ½ J q².
type quadratic struct {
	st    *atoms.Structure
	a     []float64
	j     float64
	calls int
}

func (q *quadratic) Structure() *atoms.Structure       { return q.st.Copy() }
func (q *quadratic) SetStructure(st *atoms.Structure) { q.st = st.Copy() }

func (q *quadratic) Electronegativities() ([]float64, error) {
	q.calls++
	chi := make([]float64, q.st.Len())
	for i, a := range q.st.Atoms {
		chi[i] = -(q.a[i] + q.j*a.Charge)
	}
	return chi, nil
}

func newQuadratic(charges ...float64) *quadratic {
	st := &atoms.Structure{Cell: atoms.Orthorhombic(10, 10, 10)}
	for _, c := range charges {
		st.Atoms = append(st.Atoms, atoms.Atom{Symbol: "X", Charge: c})
	}
	return &quadratic{st: st, a: []float64{1, 3, 2}[:len(charges)], j: 2}
}

func TestDampedEqualizesElectronegativity(t *testing.T) {
	target := newQuadratic(0, 0)
	if err := NewDamped().Relax(target); err != nil {
		t.Fatalf("Relax: %v", err)
	}

	q := target.st.Charges()
	// 1 + 2 q0 = 3 + 2 q1 with q0 + q1 = 0
	want := []float64{0.5, -0.5}
	for i := range want {
		if math.Abs(q[i]-want[i]) > 1e-3 {
			t.Errorf("q[%d] = %.5f, want %.5f", i, q[i], want[i])
		}
	}
	if math.Abs(q[0]+q[1]) > 1e-12 {
		t.Errorf("total charge drifted to %g", q[0]+q[1])
	}
}

func TestDampedStopsWhenAlreadyRelaxed(t *testing.T) {
	target := newQuadratic(0.5, -0.5)
	if err := NewDamped().Relax(target); err != nil {
		t.Fatalf("Relax: %v", err)
	}
	if target.calls != 1 {
		t.Errorf("electronegativities evaluated %d times, want 1", target.calls)
	}
}

func TestDampedReportsNonConvergence(t *testing.T) {
	d := NewDamped()
	d.MaxSteps = 3
	err := d.Relax(newQuadratic(0, 0, 0))
	if !errors.Is(err, ErrNotConverged) {
		t.Errorf("err = %v, want ErrNotConverged", err)
	}
}

func TestDampedRejectsBadParameters(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(d *Damped)
	}{
		{"timestep", func(d *Damped) { d.Timestep = 0 }},
		{"inertia", func(d *Damped) { d.Inertia = -1 }},
		{"friction", func(d *Damped) { d.Friction = 1 }},
		{"steps", func(d *Damped) { d.MaxSteps = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDamped()
			tt.mutate(d)
			if err := d.Relax(newQuadratic(0, 0)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestSpread(t *testing.T) {
	if got := Spread([]float64{1, 2, 3}); got != 1 {
		t.Errorf("Spread = %g, want 1", got)
	}
	if Mean(nil) != 0 || Spread(nil) != 0 {
		t.Error("empty input should give zero")
	}
}
