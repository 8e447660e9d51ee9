package sim

import (
	"context"
	"fmt"
	"math"
)

type Metric interface {
	Name() string
	Observe(w *World, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(w *World, t float64)
}

type RunConfig struct {
	Dt       float64
	Duration float64
	// RecordEvery keeps one frame per this many steps. Zero means every step.
	RecordEvery   int
	ValidateState bool
}

func DefaultRunConfig() RunConfig {
	return RunConfig{
		Dt:            0.005,
		Duration:      10.0,
		RecordEvery:   1,
		ValidateState: true,
	}
}

// Frame is one recorded instant of a run.
type Frame struct {
	Time      float64   `json:"time"`
	Energy    float64   `json:"energy"`
	Positions []float64 `json:"positions"`
}

type Result struct {
	Frames      []Frame
	Metrics     map[string]float64
	StepsTaken  int
	TornEdges   int
	EnergyDrift float64
	Errors      []error
}

// Runner steps a world at a fixed dt, feeding observers and metrics.
type Runner struct {
	world     *World
	metrics   []Metric
	observers []Observer
}

func NewRunner(w *World) *Runner {
	return &Runner{
		world:     w,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (r *Runner) World() *World          { return r.world }
func (r *Runner) AddMetric(m Metric)     { r.metrics = append(r.metrics, m) }
func (r *Runner) AddObserver(o Observer) { r.observers = append(r.observers, o) }

func (r *Runner) Run(ctx context.Context, cfg RunConfig) (*Result, error) {
	if err := validateRunConfig(cfg); err != nil {
		return nil, err
	}
	every := cfg.RecordEvery
	if every <= 0 {
		every = 1
	}

	// 0.3/0.1 is 2.9999999999999996
	steps := int(math.Round(cfg.Duration / cfg.Dt))
	result := &Result{
		Frames:  make([]Frame, 0, steps/every+1),
		Metrics: make(map[string]float64),
		Errors:  make([]error, 0),
	}

	for _, m := range r.metrics {
		m.Reset()
	}

	w := r.world
	t := 0.0
	tornBefore := w.TornEdges()
	initialEnergy := w.TotalEnergy()
	result.Frames = append(result.Frames, r.frame(t))

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		for _, obs := range r.observers {
			obs.OnStep(w, t)
		}
		for _, m := range r.metrics {
			m.Observe(w, t)
		}

		w.AdvanceSimulation(cfg.Dt)
		t += cfg.Dt
		result.StepsTaken++

		if cfg.ValidateState && !w.Valid() {
			result.Errors = append(result.Errors, SimError{
				Time:    t,
				Step:    i,
				Message: "invalid state (NaN/Inf)",
				Wrapped: ErrInvalidState,
			})
			break
		}

		if result.StepsTaken%every == 0 {
			result.Frames = append(result.Frames, r.frame(t))
		}
	}

	result.TornEdges = w.TornEdges() - tornBefore
	if initialEnergy != 0 {
		result.EnergyDrift = (w.TotalEnergy() - initialEnergy) / initialEnergy
	}
	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

// RunWithCallback steps until the duration elapses, ctx is done or callback
// returns false. The callback sees the world before each step.
func (r *Runner) RunWithCallback(ctx context.Context, cfg RunConfig, callback func(w *World, t float64) bool) error {
	if err := validateRunConfig(cfg); err != nil {
		return err
	}

	t := 0.0
	for t < cfg.Duration {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !callback(r.world, t) {
			return nil
		}

		r.world.AdvanceSimulation(cfg.Dt)
		t += cfg.Dt

		if cfg.ValidateState && !r.world.Valid() {
			return fmt.Errorf("invalid state at t=%.4f: %w", t, ErrInvalidState)
		}
	}

	return nil
}

func (r *Runner) frame(t float64) Frame {
	return Frame{
		Time:      t,
		Energy:    r.world.TotalEnergy(),
		Positions: r.world.Positions(),
	}
}

func validateRunConfig(cfg RunConfig) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	return nil
}
