package md

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/petrichorcode/pysic/internal/atoms"
	"github.com/petrichorcode/pysic/internal/core"
)

type Option func(*Simulator)

func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.log = l
		}
	}
}

// WithLogEvery logs a progress line every n steps; zero disables it.
func WithLogEvery(n int) Option {
	return func(s *Simulator) { s.logEvery = n }
}

type Simulator struct {
	ff         ForceField
	integrator *Verlet
	dt         float64
	log        *slog.Logger
	logEvery   int
	metrics    []Metric
	observers  []Observer
}

func New(ff ForceField, dt float64, opts ...Option) *Simulator {
	s := &Simulator{
		ff:         ff,
		integrator: NewVerlet(),
		dt:         dt,
		log:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Run integrates steps steps and records a frame before the first and after
// every step. A cancelled context stops the run between steps and returns
// the frames so far together with the context error.
func (s *Simulator) Run(ctx context.Context, steps int) (*Result, error) {
	result := &Result{
		Frames:  make([]Frame, 0, steps+1),
		Metrics: make(map[string]float64),
	}
	for _, m := range s.metrics {
		m.Reset()
	}

	err := s.RunWithCallback(ctx, steps, func(f Frame, _ *atoms.Structure) bool {
		result.Frames = append(result.Frames, f)
		for _, m := range s.metrics {
			m.Observe(f)
		}
		return true
	})
	if n := len(result.Frames); n > 0 {
		result.StepsTaken = n - 1
		first, last := result.Frames[0].Total(), result.Frames[n-1].Total()
		if first != 0 {
			result.EnergyDrift = math.Abs(last-first) / math.Abs(first)
		}
	}
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	return result, err
}

// RunWithCallback integrates up to steps steps, calling callback with the
// initial frame and after every step until it returns false.
func (s *Simulator) RunWithCallback(ctx context.Context, steps int, callback func(Frame, *atoms.Structure) bool) error {
	if s.dt <= 0 || math.IsNaN(s.dt) {
		return fmt.Errorf("%w: timestep must be positive, got %g", core.ErrInvalidParameters, s.dt)
	}
	if steps < 0 {
		return fmt.Errorf("%w: negative step count %d", core.ErrInvalidParameters, steps)
	}
	s.integrator.Reset()

	frame, err := s.frame(0)
	if err != nil {
		return &StepError{Step: 0, Err: err}
	}
	if !s.emit(frame, callback) {
		return nil
	}
	s.log.Info("md started", "steps", steps, "timestep", s.dt, "total", frame.Total())

	for i := 1; i <= steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		t := float64(i) * s.dt
		if err := s.integrator.Step(s.ff, s.dt); err != nil {
			return &StepError{Step: i, Time: t, Err: err}
		}
		if !finite(s.ff.Structure()) {
			return &StepError{Step: i, Time: t, Err: ErrUnstable}
		}
		frame, err := s.frame(i)
		if err != nil {
			return &StepError{Step: i, Time: t, Err: err}
		}
		if s.logEvery > 0 && i%s.logEvery == 0 {
			s.log.Info("md step", "step", i, "kinetic", frame.Kinetic, "potential", frame.Potential, "total", frame.Total())
		}
		if !s.emit(frame, callback) {
			return nil
		}
	}
	return nil
}

func (s *Simulator) emit(f Frame, callback func(Frame, *atoms.Structure) bool) bool {
	st := s.ff.Structure()
	for _, o := range s.observers {
		o.OnStep(f, st)
	}
	return callback(f, st)
}

func (s *Simulator) frame(step int) (Frame, error) {
	e, err := s.ff.Energy()
	if err != nil {
		return Frame{}, err
	}
	return Frame{
		Step:      step,
		Time:      float64(step) * s.dt,
		Kinetic:   KineticEnergy(s.ff.Structure()),
		Potential: e,
	}, nil
}
