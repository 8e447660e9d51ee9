// Package export renders snapshots and stored runs as standalone SVG.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/softsim/internal/sim"
	"github.com/san-kum/softsim/internal/viz"
)

const background = "#0a0a0a"

// SnapshotToSVG draws the box, every edge colored by stress and every node
// as a dot. scale is pixels per meter.
func SnapshotToSVG(s sim.Snapshot, scale float64, theme viz.Theme) string {
	if scale <= 0 || s.Width <= 0 || s.Height <= 0 {
		return ""
	}

	width := s.Width * scale
	height := s.Height * scale
	dotRadius := math.Max(scale*0.04, 1.5)

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
<rect width="%.1f" height="%.1f" fill="none" stroke="%s" stroke-width="2"/>
`, width, height, width, height, background, width, height, theme.Muted))

	for _, b := range s.Bodies {
		sb.WriteString(fmt.Sprintf("<g id=%q stroke-width=\"1.5\">\n", b.Name))
		for _, e := range b.Edges {
			p, q := b.Nodes[e.A].Position, b.Nodes[e.B].Position
			if !finite(p[0], p[1], q[0], q[1]) {
				continue
			}
			sb.WriteString(fmt.Sprintf(`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s"/>
`, p[0]*scale, p[1]*scale, q[0]*scale, q[1]*scale, theme.StressColor(b.Stress(e))))
		}
		sb.WriteString(fmt.Sprintf("<g fill=%q>\n", string(theme.Primary)))
		for _, n := range b.Nodes {
			if !finite(n.Position[0], n.Position[1]) {
				continue
			}
			sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f"/>
`, n.Position[0]*scale, n.Position[1]*scale, dotRadius))
		}
		sb.WriteString("</g>\n</g>\n")
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// TrajectoryToSVG traces one node through recorded frames inside a box of
// boxW x boxH meters. Frames without that node are skipped.
func TrajectoryToSVG(frames []sim.Frame, node int, boxW, boxH float64, width, height int, strokeColor string) string {
	points := make([][2]float64, 0, len(frames))
	for _, f := range frames {
		if 2*node+1 >= len(f.Positions) {
			continue
		}
		x, y := f.Positions[2*node], f.Positions[2*node+1]
		if !finite(x, y) {
			continue
		}
		points = append(points, [2]float64{x, y})
	}
	if len(points) < 2 || boxW <= 0 || boxH <= 0 {
		return ""
	}

	// y grows downwards in both world and SVG space
	sx := float64(width) / boxW
	sy := float64(height) / boxH

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, background, strokeColor))

	for i, p := range points {
		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", p[0]*sx, p[1]*sy))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", p[0]*sx, p[1]*sy))
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
