package md

import "math"

// EnergyDrift tracks the largest relative deviation of the total energy from
// its first sample.
type EnergyDrift struct {
	initial  float64
	maxDrift float64
	samples  int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{}
}

func (e *EnergyDrift) Name() string { return "energy_drift" }

func (e *EnergyDrift) Observe(f Frame) {
	energy := f.Total()
	if e.samples == 0 {
		e.initial = energy
	}
	e.samples++

	if e.initial != 0 {
		drift := math.Abs(energy-e.initial) / math.Abs(e.initial)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initial = 0
	e.maxDrift = 0
	e.samples = 0
}

// MeanKinetic averages the kinetic energy over all samples.
type MeanKinetic struct {
	sum     float64
	samples int
}

func NewMeanKinetic() *MeanKinetic {
	return &MeanKinetic{}
}

func (m *MeanKinetic) Name() string { return "kinetic_mean" }

func (m *MeanKinetic) Observe(f Frame) {
	m.sum += f.Kinetic
	m.samples++
}

func (m *MeanKinetic) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanKinetic) Reset() {
	m.sum = 0
	m.samples = 0
}
