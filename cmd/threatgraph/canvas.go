package main

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dd0wney/cluso-threatgraph/pkg/engine"
	"github.com/dd0wney/cluso-threatgraph/pkg/geometry"
	"github.com/dd0wney/cluso-threatgraph/pkg/graph"
)

const (
	edgeColor   = "#4b5563"
	dimColor    = "#374151"
	selectColor = "#ffffff"
)

// glyphs per node type; the selection is drawn with selectedGlyph
var glyphs = map[graph.NodeType]rune{
	graph.NodeTypeIP:       '●',
	graph.NodeTypeHoneypot: '◆',
	graph.NodeTypeTTP:      '▲',
}

const (
	defaultGlyph  = '○'
	selectedGlyph = '◉'
	edgeGlyph     = '·'
	relevantEdge  = '•'
)

type cell struct {
	r     rune
	color string
	bold  bool
}

// canvas is a character raster of one frame, one cell per screen pixel
type canvas struct {
	w, h  int
	cells []cell
}

func newCanvas(w, h int) *canvas {
	w, h = max(w, 0), max(h, 0)
	c := &canvas{w: w, h: h, cells: make([]cell, w*h)}
	for i := range c.cells {
		c.cells[i] = cell{r: ' '}
	}
	return c
}

func (c *canvas) set(x, y int, cl cell) {
	if x < 0 || y < 0 || x >= c.w || y >= c.h {
		return
	}
	c.cells[y*c.w+x] = cl
}

func (c *canvas) at(x, y int) cell {
	return c.cells[y*c.w+x]
}

// text writes s from (x, y) without wrapping
func (c *canvas) text(x, y int, s string, color string) {
	for _, r := range s {
		c.set(x, y, cell{r: r, color: color})
		x++
	}
}

// line draws a Bresenham segment, skipping cells already holding a glyph
// other than an edge
func (c *canvas) line(x0, y0, x1, y1 int, cl cell) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	// clipped segments can be huge when zoomed in; stop once far outside
	limit := 4 * (c.w + c.h)
	for err, steps := dx+dy, 0; steps <= limit; steps++ {
		if x0 >= 0 && y0 >= 0 && x0 < c.w && y0 < c.h {
			if cur := c.at(x0, y0); cur.r == ' ' || cur.r == edgeGlyph {
				c.set(x0, y0, cl)
			}
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// toCell projects a world point into the cell grid
func toCell(p geometry.Vec2, f engine.Frame) (int, int, bool) {
	s := geometry.WorldToScreen(p, f.Viewport, f.Surface)
	if !s.IsFinite() || math.Abs(s.X) > 1e6 || math.Abs(s.Y) > 1e6 {
		return 0, 0, false
	}
	return int(math.Floor(s.X)), int(math.Floor(s.Y)), true
}

// draw renders edges first, then nodes and labels on top
func (c *canvas) draw(f engine.Frame, labels bool) {
	cells := make(map[string][2]int, len(f.Nodes))
	for _, n := range f.Nodes {
		if x, y, ok := toCell(n.Position(), f); ok {
			cells[n.ID] = [2]int{x, y}
		}
	}

	for _, e := range f.Edges {
		a, okA := cells[e.Source]
		b, okB := cells[e.Target]
		if !okA || !okB {
			continue
		}
		cl := cell{r: edgeGlyph, color: dimColor}
		if f.Selected != "" && e.Relevant {
			cl = cell{r: relevantEdge, color: edgeColor, bold: true}
		} else if f.Selected == "" {
			cl.color = edgeColor
		}
		c.line(a[0], a[1], b[0], b[1], cl)
	}

	for _, n := range f.Nodes {
		p, ok := cells[n.ID]
		if !ok {
			continue
		}
		color := n.Color
		if !n.Relevant {
			color = dimColor
		}
		glyph, known := glyphs[n.Type]
		if !known {
			glyph = defaultGlyph
		}
		if n.Selected {
			glyph = selectedGlyph
			color = selectColor
		}
		c.set(p[0], p[1], cell{r: glyph, color: color, bold: n.Selected})

		if labels && (f.Selected == "" || n.Relevant) {
			label := n.Label
			if label == "" {
				label = n.ID
			}
			c.text(p[0]+2, p[1], truncate(label, 18), color)
		}
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// plain renders without colour
func (c *canvas) plain() []string {
	lines := make([]string, c.h)
	var sb strings.Builder
	for y := 0; y < c.h; y++ {
		sb.Reset()
		for x := 0; x < c.w; x++ {
			sb.WriteRune(c.at(x, y).r)
		}
		lines[y] = sb.String()
	}
	return lines
}

// render renders with lipgloss, styling runs of same-coloured cells together
func (c *canvas) render() string {
	var out strings.Builder
	var run strings.Builder
	for y := 0; y < c.h; y++ {
		if y > 0 {
			out.WriteByte('\n')
		}
		var cur cell
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if cur.color == "" {
				out.WriteString(run.String())
			} else {
				out.WriteString(lipgloss.NewStyle().
					Foreground(lipgloss.Color(cur.color)).
					Bold(cur.bold).
					Render(run.String()))
			}
			run.Reset()
		}
		for x := 0; x < c.w; x++ {
			cl := c.at(x, y)
			if cl.color != cur.color || cl.bold != cur.bold {
				flush()
				cur = cl
			}
			run.WriteRune(cl.r)
		}
		flush()
	}
	return out.String()
}
