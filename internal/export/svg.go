package export

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Trajectory is the path of one body over a run.
type Trajectory struct {
	Name   string
	Points []mgl64.Vec2
}

var palette = []string{"#00ff88", "#ff00ff", "#00ccff", "#ffcc00", "#ff4444"}

// TrajectoriesToSVG draws every trajectory on shared axes with 10% padding.
// Fixed points such as joint anchors are drawn as small crosses.
func TrajectoriesToSVG(trajectories []Trajectory, anchors []mgl64.Vec2, width, height int) string {
	minX, maxX, minY, maxY, ok := bounds(trajectories, anchors)
	if !ok {
		return ""
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	project := func(p mgl64.Vec2) (float64, float64) {
		x := (p[0] - minX) / rangeX * float64(width)
		y := float64(height) - (p[1]-minY)/rangeY*float64(height)
		return x, y
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	for i, tr := range trajectories {
		if len(tr.Points) == 0 {
			continue
		}
		fmt.Fprintf(&sb, `<path id="%s" fill="none" stroke="%s" stroke-width="1.5" d="M`, tr.Name, palette[i%len(palette)])
		for j, p := range tr.Points {
			x, y := project(p)
			if j == 0 {
				fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		sb.WriteString("\"/>\n")
	}

	for _, a := range anchors {
		x, y := project(a)
		fmt.Fprintf(&sb, `<path stroke="#ffffff" stroke-width="1" d="M%.1f,%.1f L%.1f,%.1f M%.1f,%.1f L%.1f,%.1f"/>
`, x-4, y-4, x+4, y+4, x-4, y+4, x+4, y-4)
	}

	sb.WriteString("</svg>")
	return sb.String()
}

func bounds(trajectories []Trajectory, anchors []mgl64.Vec2) (minX, maxX, minY, maxY float64, ok bool) {
	visit := func(p mgl64.Vec2) {
		if !ok {
			minX, maxX, minY, maxY, ok = p[0], p[0], p[1], p[1], true
			return
		}
		minX = min(minX, p[0])
		maxX = max(maxX, p[0])
		minY = min(minY, p[1])
		maxY = max(maxY, p[1])
	}
	for _, tr := range trajectories {
		for _, p := range tr.Points {
			visit(p)
		}
	}
	for _, a := range anchors {
		visit(a)
	}
	return
}
