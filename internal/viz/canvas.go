package viz

import (
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
const brailleBase = 0x2800

var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// DotWidth and DotHeight are the canvas size in sub-pixels.
func (c *Canvas) DotWidth() int  { return c.Width * 2 }
func (c *Canvas) DotHeight() int { return c.Height * 4 }

// Set lights the sub-pixel at (x, y). Out of range coordinates are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 || x >= c.DotWidth() || y >= c.DotHeight() {
		return
	}
	c.Grid[y/4][x/2] |= rune(pixelMap[y%4][x%2])
}

// IsSet reports whether the sub-pixel at (x, y) is lit.
func (c *Canvas) IsSet(x, y int) bool {
	if x < 0 || y < 0 || x >= c.DotWidth() || y >= c.DotHeight() {
		return false
	}
	return c.Grid[y/4][x/2]&rune(pixelMap[y%4][x%2]) != 0
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBase
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
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
		c.Set(x0, y0)
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

// DrawDashed draws every other run of dash sub-pixels along the line.
func (c *Canvas) DrawDashed(x0, y0, x1, y1, dash int) {
	steps := max(absInt(x1-x0), absInt(y1-y0))
	if steps == 0 {
		c.Set(x0, y0)
		return
	}
	for i := 0; i <= steps; i++ {
		if (i/dash)%2 == 1 {
			continue
		}
		t := float64(i) / float64(steps)
		c.Set(x0+int(math.Round(t*float64(x1-x0))), y0+int(math.Round(t*float64(y1-y0))))
	}
}

// DrawDisc fills a square of side 2r+1 centred on (x, y).
func (c *Canvas) DrawDisc(x, y, r int) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r+r {
				c.Set(x+dx, y+dy)
			}
		}
	}
}

// DrawCross marks a fixed point.
func (c *Canvas) DrawCross(x, y, r int) {
	c.DrawLine(x-r, y-r, x+r, y+r)
	c.DrawLine(x-r, y+r, x+r, y-r)
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

// Viewport maps world coordinates to canvas sub-pixels. Y grows upward in
// the world and downward on screen.
type Viewport struct {
	Center mgl64.Vec2
	Scale  float64
}

func (v Viewport) Project(c *Canvas, p mgl64.Vec2) (int, int) {
	rel := p.Sub(v.Center)
	x := float64(c.DotWidth())/2 + rel[0]*v.Scale
	y := float64(c.DotHeight())/2 - rel[1]*v.Scale
	return int(math.Round(x)), int(math.Round(y))
}

func (v *Viewport) ZoomIn()  { v.Scale = math.Min(400, v.Scale*1.2) }
func (v *Viewport) ZoomOut() { v.Scale = math.Max(1, v.Scale/1.2) }

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
