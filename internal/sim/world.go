package sim

import (
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/softsim/internal/softbody"
	"github.com/san-kum/softsim/internal/vecmath"
)

const (
	DefaultWidth         = 7.0
	DefaultHeight        = 7.0
	DefaultBounceDamping = 0.8
	DefaultFrictionCoeff = 0.5
	DefaultRestSpeed     = 0.5
)

// Params are the world-wide collision parameters and bounds. The box spans
// [0, Width] x [0, Height] with y growing downwards, so the floor is y = Height.
type Params struct {
	Width         float64
	Height        float64
	BounceDamping float64
	FrictionCoeff float64
	// RestSpeed is the tangential speed below which a node touching a wall
	// sticks instead of sliding.
	RestSpeed float64
	// Parallel advances bodies concurrently once the collision pass is done.
	Parallel bool
}

func DefaultParams() Params {
	return Params{
		Width:         DefaultWidth,
		Height:        DefaultHeight,
		BounceDamping: DefaultBounceDamping,
		FrictionCoeff: DefaultFrictionCoeff,
		RestSpeed:     DefaultRestSpeed,
	}
}

// Validate rejects negative and NaN values. Infinite bounds are allowed and
// make the matching walls unreachable.
func (p Params) Validate() error {
	if !(p.Width >= 0) || !(p.Height >= 0) {
		return fmt.Errorf("%w: bounds must be non-negative, got %gx%g", ErrInvalidParams, p.Width, p.Height)
	}
	if !(p.BounceDamping >= 0 && p.BounceDamping <= 1) {
		return fmt.Errorf("%w: bounce damping must be in [0, 1], got %g", ErrInvalidParams, p.BounceDamping)
	}
	if !(p.FrictionCoeff >= 0) {
		return fmt.Errorf("%w: friction coefficient must be non-negative, got %g", ErrInvalidParams, p.FrictionCoeff)
	}
	if !(p.RestSpeed >= 0) {
		return fmt.Errorf("%w: rest speed must be non-negative, got %g", ErrInvalidParams, p.RestSpeed)
	}
	return nil
}

type World struct {
	params Params
	bodies []*softbody.SoftBody
	owner  map[*softbody.Node]int
	ticks  int
	time   float64
}

func NewWorld(p Params) (*World, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &World{
		params: p,
		bodies: make([]*softbody.SoftBody, 0),
		owner:  make(map[*softbody.Node]int),
	}, nil
}

func (w *World) Params() Params { return w.params }
func (w *World) Ticks() int     { return w.ticks }
func (w *World) Time() float64  { return w.time }

// SetBounds resizes the box, e.g. when a viewer zooms.
func (w *World) SetBounds(width, height float64) error {
	p := w.params
	p.Width, p.Height = width, height
	if err := p.Validate(); err != nil {
		return err
	}
	w.params = p
	return nil
}

// AddBody adds b and returns its index. A node can belong to one body only,
// since bodies may advance on separate goroutines.
func (w *World) AddBody(b *softbody.SoftBody) (int, error) {
	for i, n := range b.Nodes() {
		if other, ok := w.owner[n]; ok {
			return 0, fmt.Errorf("%w: node %d of %q is in body %d", ErrSharedNode, i, b.Name(), other)
		}
	}
	idx := len(w.bodies)
	for _, n := range b.Nodes() {
		w.owner[n] = idx
	}
	w.bodies = append(w.bodies, b)
	return idx, nil
}

func (w *World) Bodies() []*softbody.SoftBody { return w.bodies }

func (w *World) Body(i int) (*softbody.SoftBody, error) {
	if i < 0 || i >= len(w.bodies) {
		return nil, fmt.Errorf("%w: %d", ErrBodyNotFound, i)
	}
	return w.bodies[i], nil
}

// NumNodes counts the nodes of every body.
func (w *World) NumNodes() int {
	n := 0
	for _, b := range w.bodies {
		n += len(b.Nodes())
	}
	return n
}

func (w *World) NumEdges() int {
	n := 0
	for _, b := range w.bodies {
		n += b.NumEdges()
	}
	return n
}

// DragNode overwrites one node's position and velocity. Call between ticks.
func (w *World) DragNode(body, node int, pos, vel vecmath.Vec2) error {
	b, err := w.Body(body)
	if err != nil {
		return err
	}
	n, err := b.Node(node)
	if err != nil {
		return err
	}
	n.SetPosition(pos)
	n.SetVelocity(vel)
	return nil
}

// AdvanceSimulation runs one tick: collisions for every node, then the
// physics of every body.
func (w *World) AdvanceSimulation(dt float64) {
	w.CollisionDetection()

	if w.params.Parallel && len(w.bodies) > 1 {
		var g errgroup.Group
		for _, b := range w.bodies {
			g.Go(func() error {
				b.AdvancePhysics(dt)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for _, b := range w.bodies {
			b.AdvancePhysics(dt)
		}
	}

	w.ticks++
	w.time += dt
}

// Valid reports whether every node position and velocity is finite.
func (w *World) Valid() bool {
	for _, b := range w.bodies {
		for _, n := range b.Nodes() {
			if !vecmath.IsFinite(n.Position()) || !vecmath.IsFinite(n.Velocity()) {
				return false
			}
		}
	}
	return true
}

// KineticEnergy is the sum of ½mv² over all nodes.
func (w *World) KineticEnergy() float64 {
	e := 0.0
	for _, b := range w.bodies {
		for _, n := range b.Nodes() {
			v := vecmath.Length(n.Velocity())
			e += 0.5 * n.Mass() * v * v
		}
	}
	return e
}

// SpringEnergy is the sum of ½kx² over all live edges for the current geometry.
func (w *World) SpringEnergy() float64 {
	e := 0.0
	for _, b := range w.bodies {
		for _, edge := range b.Edges() {
			x := edge.Length() - edge.RestLength()
			e += 0.5 * edge.SpringConst() * x * x
		}
	}
	return e
}

func (w *World) TotalEnergy() float64 {
	return w.KineticEnergy() + w.SpringEnergy()
}

// MaxDeformation is the largest |length - rest length| over all live edges.
func (w *World) MaxDeformation() float64 {
	m := 0.0
	for _, b := range w.bodies {
		for _, edge := range b.Edges() {
			m = math.Max(m, math.Abs(edge.Length()-edge.RestLength()))
		}
	}
	return m
}

// TornEdges counts the edges torn so far in all bodies.
func (w *World) TornEdges() int {
	n := 0
	for _, b := range w.bodies {
		n += b.TornCount()
	}
	return n
}
