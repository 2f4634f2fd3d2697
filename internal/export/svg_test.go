package export

import (
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestTrajectoriesToSVG(t *testing.T) {
	svg := TrajectoriesToSVG([]Trajectory{
		{Name: "bob", Points: []mgl64.Vec2{{0, 0}, {1, 1}, {2, 0}}},
		{Name: "door", Points: []mgl64.Vec2{{0, -1}}},
	}, []mgl64.Vec2{{1, 2}}, 200, 100)

	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatalf("expected an svg document, got %q", svg)
	}
	if strings.Count(svg, `<path id=`) != 2 {
		t.Errorf("expected two trajectory paths:\n%s", svg)
	}
	if !strings.Contains(svg, `id="bob"`) || !strings.Contains(svg, " L") {
		t.Errorf("expected bob path with line segments:\n%s", svg)
	}
	if !strings.Contains(svg, `stroke="#ffffff"`) {
		t.Error("expected an anchor marker")
	}
}

func TestTrajectoriesToSVGEmpty(t *testing.T) {
	if svg := TrajectoriesToSVG(nil, nil, 100, 100); svg != "" {
		t.Errorf("expected empty output, got %q", svg)
	}
}
