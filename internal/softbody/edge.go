package softbody

import "github.com/san-kum/softsim/internal/vecmath"

// EdgeID is a handle for an edge, unique within its body. Zero is never issued.
type EdgeID uint32

// MaxDampingAngle is the largest angle, in radians, allowed between a node's
// spring force and its damping correction before the damping is dropped.
const MaxDampingAngle = 1.0

// Edge is a damped spring between two nodes of a body.
type Edge struct {
	id     EdgeID
	a, b   int
	n1, n2 *Node

	springConst  float64
	dampingConst float64
	restLength   float64
	deformation  float64

	// applied is set once the edge has put a spring force on its nodes.
	applied bool
}

func newEdge(id EdgeID, a, b int, n1, n2 *Node, k, c, rest float64) *Edge {
	e := &Edge{
		id:           id,
		a:            a,
		b:            b,
		n1:           n1,
		n2:           n2,
		springConst:  k,
		dampingConst: c,
		restLength:   rest,
	}
	e.RecomputeDeformation()
	return e
}

func (e *Edge) ID() EdgeID              { return e.id }
func (e *Edge) Endpoints() (int, int)   { return e.a, e.b }
func (e *Edge) SpringConst() float64    { return e.springConst }
func (e *Edge) DampingConst() float64   { return e.dampingConst }
func (e *Edge) RestLength() float64     { return e.restLength }
func (e *Edge) Deformation() float64    { return e.deformation }
func (e *Edge) Length() float64         { return vecmath.Length(e.axis()) }
func (e *Edge) SetRestLength(l float64) { e.restLength = l }

// axis points from node1 to node2.
func (e *Edge) axis() vecmath.Vec2 {
	return vecmath.Sub(e.n2.Position(), e.n1.Position())
}

// RecomputeDeformation refreshes the signed stretch from the node positions.
func (e *Edge) RecomputeDeformation() float64 {
	e.deformation = vecmath.Length(e.axis()) - e.restLength
	return e.deformation
}

// SpringForce returns the Hooke force on node1 and node2. A stretched spring
// pulls the nodes together. Coincident nodes get no force.
func (e *Edge) SpringForce() (f1, f2 vecmath.Vec2) {
	e.RecomputeDeformation()
	magnitude := e.deformation * e.springConst
	f1 = vecmath.Scale(vecmath.UnitOrZero(e.axis()), magnitude)
	return f1, vecmath.Scale(f1, -1)
}

// DampingForce returns velocity corrections for node1 and node2 that damp
// relative motion along the spring axis. Lateral motion is not damped.
//
// A node's correction is dropped when it points more than MaxDampingAngle
// away from that node's spring force. When either vector is zero the angle
// is undefined and the correction is kept.
func (e *Edge) DampingForce() (d1, d2 vecmath.Vec2) {
	u := vecmath.UnitOrZero(e.axis())
	relVel := vecmath.Sub(e.n2.Velocity(), e.n1.Velocity())

	d := vecmath.Dot(u, relVel)
	d1 = vecmath.Scale(u, d*e.dampingConst)
	d2 = vecmath.Scale(d1, -1)

	f1, f2 := e.SpringForce()
	if angle, ok := vecmath.Angle(f1, d1); ok && angle > MaxDampingAngle {
		d1 = vecmath.Zero
	}
	if angle, ok := vecmath.Angle(f2, d2); ok && angle > MaxDampingAngle {
		d2 = vecmath.Zero
	}
	return d1, d2
}
