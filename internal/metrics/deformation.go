package metrics

import (
	"math"

	"github.com/san-kum/softsim/internal/sim"
)

// MaxDeformation is the peak |length - rest length| seen on any edge.
type MaxDeformation struct {
	name string
	max  float64
}

func NewMaxDeformation() *MaxDeformation {
	return &MaxDeformation{name: "max_deformation"}
}

func (m *MaxDeformation) Name() string { return m.name }

func (m *MaxDeformation) Observe(w *sim.World, t float64) {
	m.max = math.Max(m.max, w.MaxDeformation())
}

func (m *MaxDeformation) Value() float64 { return m.max }

func (m *MaxDeformation) Reset() { m.max = 0 }

// TornEdges counts edges lost since the first observation after Reset.
type TornEdges struct {
	name    string
	base    int
	last    int
	started bool
}

func NewTornEdges() *TornEdges {
	return &TornEdges{name: "torn_edges"}
}

func (e *TornEdges) Name() string { return e.name }

func (e *TornEdges) Observe(w *sim.World, t float64) {
	torn := w.TornEdges()
	if !e.started {
		e.base = torn
		e.started = true
	}
	e.last = torn
}

func (e *TornEdges) Value() float64 {
	return float64(e.last - e.base)
}

func (e *TornEdges) Reset() {
	e.base = 0
	e.last = 0
	e.started = false
}

// Default returns the metrics the CLI attaches to every run.
func Default() []sim.Metric {
	return []sim.Metric{
		NewKineticEnergy(),
		NewSpringEnergy(),
		NewEnergyDrift(),
		NewMaxDeformation(),
		NewTornEdges(),
		NewContainment(0.05),
	}
}
