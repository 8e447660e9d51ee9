package sim

import (
	"math"

	"github.com/san-kum/softsim/internal/softbody"
	"github.com/san-kum/softsim/internal/vecmath"
)

const (
	axisX = 0
	axisY = 1
)

// boundary returns the first wall p is past, checked floor, ceiling, right,
// left. Only that wall is handled this tick even if p is past two.
func (w *World) boundary(p vecmath.Vec2) (axis int, limit float64, hit bool) {
	switch {
	case p[axisY] > w.params.Height:
		return axisY, w.params.Height, true
	case p[axisY] < 0:
		return axisY, 0, true
	case p[axisX] > w.params.Width:
		return axisX, w.params.Width, true
	case p[axisX] < 0:
		return axisX, 0, true
	}
	return 0, 0, false
}

// CollisionDetection clamps nodes that left the box back onto the wall they
// crossed, bounces them, and sets the "friction" force on every node.
func (w *World) CollisionDetection() {
	for _, b := range w.bodies {
		for _, n := range b.Nodes() {
			w.collide(n)
		}
	}
}

func (w *World) collide(n *softbody.Node) {
	p, v, a := n.Position(), n.Velocity(), n.Acceleration()

	perp, limit, hit := w.boundary(p)
	if !hit {
		n.SetForce(softbody.FrictionKey, vecmath.Zero)
		return
	}
	tan := 1 - perp

	friction := vecmath.Zero
	if math.Abs(v[tan]) < w.params.RestSpeed {
		v[tan] = 0
	} else {
		friction[tan] = -vecmath.Sign(v[tan]) * n.ForceSum()[perp] * w.params.FrictionCoeff
	}

	v[perp] = -v[perp] * w.params.BounceDamping
	a[perp] = 0
	p[perp] = limit

	n.SetVelocity(v)
	n.SetAcceleration(a)
	n.SetPosition(p)
	n.SetForce(softbody.FrictionKey, friction)
}
