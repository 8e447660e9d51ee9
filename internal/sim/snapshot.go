package sim

import (
	"math"

	"github.com/san-kum/softsim/internal/vecmath"
)

// NodeState is a read-only copy of one node.
type NodeState struct {
	Position     vecmath.Vec2 `json:"position"`
	Velocity     vecmath.Vec2 `json:"velocity"`
	Acceleration vecmath.Vec2 `json:"acceleration"`
	Mass         float64      `json:"mass"`
}

// EdgeState is a read-only copy of one live edge.
type EdgeState struct {
	ID          uint32  `json:"id"`
	A           int     `json:"a"`
	B           int     `json:"b"`
	Deformation float64 `json:"deformation"`
	RestLength  float64 `json:"rest_length"`
}

type BodySnapshot struct {
	Name  string      `json:"name"`
	Nodes []NodeState `json:"nodes"`
	Edges []EdgeState `json:"edges"`
	// DeformAt lets renderers color edges by how close they are to
	// deforming. Nil means the body never deforms (or tears).
	DeformAt *float64 `json:"deform_at,omitempty"`
	TearAt   *float64 `json:"tear_at,omitempty"`
}

// StressLimit is the deformation that counts as full stress: the deform
// threshold, else the tear threshold, else zero.
func (b BodySnapshot) StressLimit() float64 {
	if b.DeformAt != nil && *b.DeformAt > 0 {
		return *b.DeformAt
	}
	if b.TearAt != nil && *b.TearAt > 0 {
		return *b.TearAt
	}
	return 0
}

// Stress is the edge's deformation relative to StressLimit, capped at 1.
func (b BodySnapshot) Stress(e EdgeState) float64 {
	limit := b.StressLimit()
	if limit <= 0 {
		return 0
	}
	return math.Min(math.Abs(e.Deformation)/limit, 1)
}

// Snapshot is everything a renderer needs for one frame.
type Snapshot struct {
	Tick   int            `json:"tick"`
	Time   float64        `json:"time"`
	Width  float64        `json:"width"`
	Height float64        `json:"height"`
	Energy float64        `json:"energy"`
	Bodies []BodySnapshot `json:"bodies"`
}

func (w *World) Snapshot() Snapshot {
	s := Snapshot{
		Tick:   w.ticks,
		Time:   w.time,
		Width:  w.params.Width,
		Height: w.params.Height,
		Energy: w.TotalEnergy(),
		Bodies: make([]BodySnapshot, len(w.bodies)),
	}

	for i, b := range w.bodies {
		nodes := b.Nodes()
		edges := b.Edges()
		bs := BodySnapshot{
			Name:     b.Name(),
			Nodes:    make([]NodeState, len(nodes)),
			Edges:    make([]EdgeState, len(edges)),
			DeformAt: threshold(b.Defaults().DeformAt),
			TearAt:   threshold(b.Defaults().TearAt),
		}
		for j, n := range nodes {
			bs.Nodes[j] = NodeState{
				Position:     n.Position(),
				Velocity:     n.Velocity(),
				Acceleration: n.Acceleration(),
				Mass:         n.Mass(),
			}
		}
		for j, e := range edges {
			a, bIdx := e.Endpoints()
			bs.Edges[j] = EdgeState{
				ID:          uint32(e.ID()),
				A:           a,
				B:           bIdx,
				Deformation: e.Length() - e.RestLength(),
				RestLength:  e.RestLength(),
			}
		}
		s.Bodies[i] = bs
	}
	return s
}

// ZeroNonFinite replaces every NaN or Inf value with zero so the snapshot can
// be JSON encoded. It reports whether anything was replaced.
func (s *Snapshot) ZeroNonFinite() bool {
	replaced := false
	fix := func(v *float64) {
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			*v = 0
			replaced = true
		}
	}
	fixVec := func(v *vecmath.Vec2) {
		fix(&v[0])
		fix(&v[1])
	}

	fix(&s.Energy)
	for i := range s.Bodies {
		b := &s.Bodies[i]
		for j := range b.Nodes {
			fixVec(&b.Nodes[j].Position)
			fixVec(&b.Nodes[j].Velocity)
			fixVec(&b.Nodes[j].Acceleration)
		}
		for j := range b.Edges {
			fix(&b.Edges[j].Deformation)
			fix(&b.Edges[j].RestLength)
		}
	}
	return replaced
}

// Positions flattens every node position as x0, y0, x1, y1, ... in body order.
func (w *World) Positions() []float64 {
	out := make([]float64, 0, 2*w.NumNodes())
	for _, b := range w.bodies {
		for _, n := range b.Nodes() {
			p := n.Position()
			out = append(out, p[0], p[1])
		}
	}
	return out
}

func threshold(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}
