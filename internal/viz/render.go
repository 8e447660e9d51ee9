package viz

import (
	"math"

	"github.com/san-kum/softsim/internal/sim"
	"github.com/san-kum/softsim/internal/vecmath"
)

// DrawSnapshot clears c and draws the box, every edge colored by stress and
// every node as a 2x2 dot. The box is scaled to fit with square dots.
func DrawSnapshot(c *Canvas, s sim.Snapshot) {
	c.Clear()

	scale := fitScale(c, s.Width, s.Height)
	if scale <= 0 {
		return
	}
	toDots := func(p vecmath.Vec2) (int, int, bool) {
		if !vecmath.IsFinite(p) {
			return 0, 0, false
		}
		return clampDot(p[0]*scale, c.DotsWide()), clampDot(p[1]*scale, c.DotsHigh()), true
	}

	w := int(math.Round(s.Width * scale))
	h := int(math.Round(s.Height * scale))
	c.DrawLine(0, 0, w, 0, 0)
	c.DrawLine(w, 0, w, h, 0)
	c.DrawLine(w, h, 0, h, 0)
	c.DrawLine(0, h, 0, 0, 0)

	for _, b := range s.Bodies {
		for _, e := range b.Edges {
			x0, y0, ok0 := toDots(b.Nodes[e.A].Position)
			x1, y1, ok1 := toDots(b.Nodes[e.B].Position)
			if !ok0 || !ok1 {
				continue
			}
			c.DrawLine(x0, y0, x1, y1, b.Stress(e))
		}
		for _, n := range b.Nodes {
			x, y, ok := toDots(n.Position)
			if !ok {
				continue
			}
			c.Set(x, y)
			c.Set(x+1, y)
			c.Set(x, y+1)
			c.Set(x+1, y+1)
		}
	}
}

func fitScale(c *Canvas, width, height float64) float64 {
	if width <= 0 || height <= 0 {
		return 0
	}
	sx := float64(c.DotsWide()-2) / width
	sy := float64(c.DotsHigh()-2) / height
	return math.Min(sx, sy)
}

// clampDot keeps far-away nodes from turning a line into a huge loop.
func clampDot(v float64, size int) int {
	return int(math.Round(math.Max(-float64(size), math.Min(v, 2*float64(size)))))
}
