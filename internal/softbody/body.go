package softbody

import (
	"fmt"
	"math"

	"github.com/san-kum/softsim/internal/vecmath"
)

// EdgeDefaults are the per-body values used for edges that do not override
// them, plus the body-wide deform and tear thresholds.
type EdgeDefaults struct {
	SpringConst  float64
	DampingConst float64
	RestLength   float64
	// DeformAt is the |deformation| above which an edge's rest length is
	// permanently moved to its current length.
	DeformAt float64
	// TearAt is the |deformation| above which an edge is removed.
	TearAt float64
}

const (
	DefaultSpringConst  = 10.0
	DefaultDampingConst = 0.1
	DefaultRestLength   = 1.0
)

// DefaultEdgeDefaults returns defaults whose edges never deform or tear.
func DefaultEdgeDefaults() EdgeDefaults {
	return EdgeDefaults{
		SpringConst:  DefaultSpringConst,
		DampingConst: DefaultDampingConst,
		RestLength:   DefaultRestLength,
		DeformAt:     math.Inf(1),
		TearAt:       math.Inf(1),
	}
}

// SoftBody is a net of nodes and the springs between them.
type SoftBody struct {
	name     string
	nodes    []*Node
	edges    []*Edge
	defaults EdgeDefaults
	nextEdge EdgeID

	forces     map[string]vecmath.Vec2
	forceOrder []string

	torn     int
	deformed int
}

// New builds a body over nodes. The body keeps its own copy of the slice, so
// nodes are never added or removed afterwards. Each node may appear once.
func New(nodes []*Node, defaults EdgeDefaults) (*SoftBody, error) {
	if len(nodes) == 0 {
		return nil, ErrNoNodes
	}
	seen := make(map[*Node]int, len(nodes))
	for i, n := range nodes {
		if n == nil {
			return nil, fmt.Errorf("node %d is nil: %w", i, ErrIndexOutOfRange)
		}
		if first, ok := seen[n]; ok {
			return nil, fmt.Errorf("%w: nodes %d and %d", ErrDuplicateNode, first, i)
		}
		seen[n] = i
	}
	return &SoftBody{
		nodes:    append([]*Node(nil), nodes...),
		edges:    make([]*Edge, 0),
		defaults: defaults,
		forces:   make(map[string]vecmath.Vec2),
	}, nil
}

func (b *SoftBody) Name() string           { return b.name }
func (b *SoftBody) SetName(name string)    { b.name = name }
func (b *SoftBody) Defaults() EdgeDefaults { return b.defaults }
func (b *SoftBody) Nodes() []*Node         { return b.nodes }
func (b *SoftBody) NumEdges() int          { return len(b.edges) }
func (b *SoftBody) TornCount() int         { return b.torn }
func (b *SoftBody) DeformCount() int       { return b.deformed }

func (b *SoftBody) Node(i int) (*Node, error) {
	if i < 0 || i >= len(b.nodes) {
		return nil, fmt.Errorf("%w: %d (body has %d nodes)", ErrIndexOutOfRange, i, len(b.nodes))
	}
	return b.nodes[i], nil
}

// Edges returns a copy of the current edge list.
func (b *SoftBody) Edges() []*Edge {
	edges := make([]*Edge, len(b.edges))
	copy(edges, b.edges)
	return edges
}

type edgeSettings struct {
	springConst  float64
	dampingConst float64
	restLength   float64
	fromDistance bool
}

func (s edgeSettings) validate() error {
	for _, p := range []struct {
		name string
		v    float64
	}{
		{"spring constant", s.springConst},
		{"damping constant", s.dampingConst},
		{"rest length", s.restLength},
	} {
		if !(p.v >= 0) || math.IsInf(p.v, 1) {
			return fmt.Errorf("%w: %s %g", ErrInvalidEdgeParam, p.name, p.v)
		}
	}
	return nil
}

// EdgeOption overrides one of the body defaults for a single edge.
type EdgeOption func(*edgeSettings)

func WithSpringConst(k float64) EdgeOption {
	return func(s *edgeSettings) { s.springConst = k }
}

func WithDampingConst(c float64) EdgeOption {
	return func(s *edgeSettings) { s.dampingConst = c }
}

func WithRestLength(l float64) EdgeOption {
	return func(s *edgeSettings) {
		s.restLength = l
		s.fromDistance = false
	}
}

// WithCurrentDistance sets the rest length to the endpoints' distance at the
// time the edge is added.
func WithCurrentDistance() EdgeOption {
	return func(s *edgeSettings) { s.fromDistance = true }
}

// AddEdge connects nodes i and j with a spring.
func (b *SoftBody) AddEdge(i, j int, opts ...EdgeOption) (EdgeID, error) {
	n1, err := b.Node(i)
	if err != nil {
		return 0, err
	}
	n2, err := b.Node(j)
	if err != nil {
		return 0, err
	}
	if i == j {
		return 0, fmt.Errorf("%w: %d", ErrSelfEdge, i)
	}

	s := edgeSettings{
		springConst:  b.defaults.SpringConst,
		dampingConst: b.defaults.DampingConst,
		restLength:   b.defaults.RestLength,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.fromDistance {
		s.restLength = vecmath.Length(vecmath.Sub(n2.Position(), n1.Position()))
	}
	if err := s.validate(); err != nil {
		return 0, fmt.Errorf("edge %d-%d: %w", i, j, err)
	}

	b.nextEdge++
	e := newEdge(b.nextEdge, i, j, n1, n2, s.springConst, s.dampingConst, s.restLength)
	b.edges = append(b.edges, e)
	return e.id, nil
}

// AddExternalForce registers a constant force applied to every node each tick.
func (b *SoftBody) AddExternalForce(name string, f vecmath.Vec2) error {
	if _, ok := b.forces[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateForce, name)
	}
	b.forces[name] = f
	b.forceOrder = append(b.forceOrder, name)
	return nil
}

func (b *SoftBody) ExternalForce(name string) (vecmath.Vec2, bool) {
	f, ok := b.forces[name]
	return f, ok
}

func (b *SoftBody) ExternalForces() map[string]vecmath.Vec2 {
	out := make(map[string]vecmath.Vec2, len(b.forces))
	for k, v := range b.forces {
		out[k] = v
	}
	return out
}

// AdvancePhysics computes the edge forces for the current geometry, applies
// tearing and plastic deformation, then integrates every node by dt.
func (b *SoftBody) AdvancePhysics(dt float64) {
	for _, e := range b.Edges() {
		deformation := math.Abs(e.RecomputeDeformation())

		if deformation > b.defaults.TearAt {
			b.tear(e)
			continue
		}

		if deformation > b.defaults.DeformAt {
			e.SetRestLength(e.RestLength() + e.Deformation())
			b.deformed++
		}

		f1, f2 := e.SpringForce()
		key := EdgeForce(e.id)
		e.n1.SetForce(key, f1)
		e.n2.SetForce(key, f2)
		e.applied = true

		// damping goes straight into velocity, so later edges see it
		d1, d2 := e.DampingForce()
		e.n1.SetVelocity(vecmath.Sum(e.n1.Velocity(), d1))
		e.n2.SetVelocity(vecmath.Sum(e.n2.Velocity(), d2))
	}

	for _, n := range b.nodes {
		for _, name := range b.forceOrder {
			n.SetForce(NamedForce(name), b.forces[name])
		}
		n.UpdateState(dt)
	}
}

func (b *SoftBody) tear(e *Edge) {
	if e.applied {
		key := EdgeForce(e.id)
		for _, n := range []*Node{e.n1, e.n2} {
			if err := n.RemoveForce(key); err != nil {
				panic(fmt.Sprintf("softbody: tearing edge %d: %v", e.id, err))
			}
		}
	}
	for i, cur := range b.edges {
		if cur == e {
			b.edges = append(b.edges[:i], b.edges[i+1:]...)
			break
		}
	}
	b.torn++
}

// AddVelocity adds v to the velocity of every node.
func (b *SoftBody) AddVelocity(v vecmath.Vec2) {
	for _, n := range b.nodes {
		n.SetVelocity(vecmath.Sum(n.Velocity(), v))
	}
}

// TopLeft is the top-left corner of the body's axis-aligned bounding box.
func (b *SoftBody) TopLeft() vecmath.Vec2 {
	tl := vecmath.New(math.Inf(1), math.Inf(1))
	for _, n := range b.nodes {
		p := n.Position()
		tl = vecmath.New(math.Min(tl[0], p[0]), math.Min(tl[1], p[1]))
	}
	return tl
}

// MoveBy translates every node by offset.
func (b *SoftBody) MoveBy(offset vecmath.Vec2) {
	for _, n := range b.nodes {
		n.SetPosition(vecmath.Sum(n.Position(), offset))
	}
}

// MoveBody translates the body so its bounding-box top-left lands on topLeft.
func (b *SoftBody) MoveBody(topLeft vecmath.Vec2) {
	b.MoveBy(vecmath.Sub(topLeft, b.TopLeft()))
}
