package metrics

import (
	"math"

	"github.com/san-kum/softsim/internal/sim"
)

// KineticEnergy is the mean total ½mv² over the observed steps.
type KineticEnergy struct {
	name    string
	sum     float64
	samples int
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (k *KineticEnergy) Name() string { return k.name }

func (k *KineticEnergy) Observe(w *sim.World, t float64) {
	k.sum += w.KineticEnergy()
	k.samples++
}

func (k *KineticEnergy) Value() float64 {
	if k.samples == 0 {
		return 0
	}
	return k.sum / float64(k.samples)
}

func (k *KineticEnergy) Reset() {
	k.sum = 0
	k.samples = 0
}

// SpringEnergy is the mean elastic energy stored in the live edges.
type SpringEnergy struct {
	name    string
	sum     float64
	samples int
}

func NewSpringEnergy() *SpringEnergy {
	return &SpringEnergy{name: "spring_energy"}
}

func (s *SpringEnergy) Name() string { return s.name }

func (s *SpringEnergy) Observe(w *sim.World, t float64) {
	s.sum += w.SpringEnergy()
	s.samples++
}

func (s *SpringEnergy) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return s.sum / float64(s.samples)
}

func (s *SpringEnergy) Reset() {
	s.sum = 0
	s.samples = 0
}

// EnergyDrift tracks the largest relative change of total energy from the
// first observed step. Collisions and damping drain energy, so this mostly
// measures dissipation; growth means the step size is too large.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(w *sim.World, t float64) {
	energy := w.TotalEnergy()

	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
