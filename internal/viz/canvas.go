package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Each braille cell holds 2x4 dots:
//
//	1 4
//	2 5
//	3 6
//	7 8
var dotBits = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blankCell = 0x2800

// Canvas is a braille dot grid. Besides the dots each cell keeps the highest
// heat drawn into it, so edges can be colored by how stretched they are.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
	Heat          [][]float64
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
		Heat:   make([][]float64, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
		c.Heat[i] = make([]float64, w)
	}
	c.Clear()
	return c
}

// DotsWide and DotsHigh are the canvas size in dots.
func (c *Canvas) DotsWide() int { return c.Width * 2 }
func (c *Canvas) DotsHigh() int { return c.Height * 4 }

// Set lights the dot at (x, y). Dots outside the canvas are ignored.
func (c *Canvas) Set(x, y int) {
	c.SetHeat(x, y, 0)
}

// SetHeat lights a dot and raises its cell's heat to at least heat.
func (c *Canvas) SetHeat(x, y int, heat float64) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= dotBits[y%4][x%2]
	if heat > c.Heat[row][col] {
		c.Heat[row][col] = heat
	}
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blankCell
			c.Heat[i][j] = 0
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int, heat float64) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.SetHeat(x0, y0, heat)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

// Render is String with every non-blank cell styled by its heat level.
// Runs of cells with the same level share one style call.
func (c *Canvas) Render(levels [3]lipgloss.Style) string {
	var b strings.Builder
	for i, row := range c.Grid {
		if len(row) == 0 {
			b.WriteByte('\n')
			continue
		}
		start, level := 0, cellLevel(row[0], c.Heat[i][0])
		for j := 1; j <= len(row); j++ {
			next := -2
			if j < len(row) {
				next = cellLevel(row[j], c.Heat[i][j])
			}
			if next == level {
				continue
			}
			run := string(row[start:j])
			if level >= 0 {
				run = levels[level].Render(run)
			}
			b.WriteString(run)
			start, level = j, next
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// cellLevel buckets heat into low, mid and high; blank cells are -1.
func cellLevel(r rune, heat float64) int {
	switch {
	case r == blankCell:
		return -1
	case heat < 1.0/3:
		return 0
	case heat < 2.0/3:
		return 1
	default:
		return 2
	}
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
