package export

import (
	"math"
	"strings"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/softsim/internal/sim"
	"github.com/san-kum/softsim/internal/vecmath"
	"github.com/san-kum/softsim/internal/viz"
)

func pairSnapshot(deformation float64) sim.Snapshot {
	deformAt := 0.3
	return sim.Snapshot{
		Width: 4, Height: 3,
		Bodies: []sim.BodySnapshot{{
			Name: "pair",
			Nodes: []sim.NodeState{
				{Position: vecmath.New(1, 1), Mass: 1},
				{Position: vecmath.New(2, 1), Mass: 1},
			},
			Edges:    []sim.EdgeState{{ID: 1, A: 0, B: 1, Deformation: deformation, RestLength: 1}},
			DeformAt: &deformAt,
		}},
	}
}

func TestSnapshotToSVG(t *testing.T) {
	g := NewWithT(t)
	theme := viz.ThemeCyberpunk

	svg := SnapshotToSVG(pairSnapshot(0), 100, theme)
	g.Expect(svg).To(HavePrefix("<?xml"))
	g.Expect(svg).To(HaveSuffix("</svg>"))
	g.Expect(svg).To(ContainSubstring(`width="400" height="300"`))
	g.Expect(svg).To(ContainSubstring(`<line x1="100.0" y1="100.0" x2="200.0" y2="100.0" stroke="#00ff00"/>`))
	g.Expect(strings.Count(svg, "<circle")).To(Equal(2))

	hot := SnapshotToSVG(pairSnapshot(-0.3), 100, theme)
	g.Expect(hot).To(ContainSubstring(`stroke="#ff0000"`))
}

func TestSnapshotToSVG_SkipsBadInput(t *testing.T) {
	g := NewWithT(t)

	g.Expect(SnapshotToSVG(sim.Snapshot{}, 100, viz.ThemeOcean)).To(BeEmpty())
	g.Expect(SnapshotToSVG(pairSnapshot(0), 0, viz.ThemeOcean)).To(BeEmpty())

	s := pairSnapshot(0)
	s.Bodies[0].Nodes[1].Position = vecmath.New(math.NaN(), 1)
	svg := SnapshotToSVG(s, 10, viz.ThemeOcean)
	g.Expect(svg).NotTo(ContainSubstring("<line"))
	g.Expect(strings.Count(svg, "<circle")).To(Equal(1))
}

func TestTrajectoryToSVG(t *testing.T) {
	g := NewWithT(t)
	frames := []sim.Frame{
		{Positions: []float64{0, 0, 1, 1}},
		{Positions: []float64{0, 0, 2, 1}},
		{Positions: []float64{0, 0, math.Inf(1), 1}},
		{Positions: []float64{0, 0, 2, 2}},
	}

	svg := TrajectoryToSVG(frames, 1, 4, 4, 400, 400, "#00ffff")
	g.Expect(svg).To(ContainSubstring(`d="M100.0,100.0 L200.0,100.0 L200.0,200.0"`))
	g.Expect(svg).To(ContainSubstring(`stroke="#00ffff"`))

	g.Expect(TrajectoryToSVG(frames, 5, 4, 4, 400, 400, "#fff")).To(BeEmpty())
	g.Expect(TrajectoryToSVG(frames[:1], 1, 4, 4, 400, 400, "#fff")).To(BeEmpty())
}
