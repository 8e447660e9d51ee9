package metrics

import (
	"github.com/san-kum/softsim/internal/sim"
)

// Containment is the fraction of observed steps in which every node was
// inside the box, give or take tolerance. A node escapes when it crosses two
// walls at once or tunnels through a wall within one step.
type Containment struct {
	name       string
	tolerance  float64
	violations int
	samples    int
}

func NewContainment(tolerance float64) *Containment {
	return &Containment{
		name:      "containment",
		tolerance: tolerance,
	}
}

func (c *Containment) Name() string {
	return c.name
}

func (c *Containment) Observe(w *sim.World, t float64) {
	c.samples++
	p := w.Params()
	for _, b := range w.Bodies() {
		for _, n := range b.Nodes() {
			pos := n.Position()
			if pos[0] < -c.tolerance || pos[0] > p.Width+c.tolerance ||
				pos[1] < -c.tolerance || pos[1] > p.Height+c.tolerance {
				c.violations++
				return
			}
		}
	}
}

func (c *Containment) Value() float64 {
	if c.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(c.violations)/float64(c.samples)
}

func (c *Containment) Reset() {
	c.violations = 0
	c.samples = 0
}
