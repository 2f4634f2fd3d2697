package sim

import (
	"fmt"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/dynsolve/internal/body"
	"github.com/san-kum/dynsolve/internal/integrators"
	"github.com/san-kum/dynsolve/internal/joints"
)

func benchWorld(b *testing.B, chains int) *World {
	w := New(WithIntegrator(integrators.NewEuler(mgl64.Vec2{0, -9.81})))
	for i := 0; i < chains; i++ {
		bd := body.New(1, 0.1)
		bd.Position = mgl64.Vec2{float64(i), -1}
		w.AddBody(bd)
		j, err := joints.NewFixedRevoluteJoint(bd, mgl64.Vec2{float64(i) + 0.5, 0})
		if err != nil {
			b.Fatal(err)
		}
		w.AddJoint(j)
	}
	return w
}

func BenchmarkStep(b *testing.B) {
	for _, n := range []int{1, 10, 100} {
		b.Run(fmt.Sprintf("bodies=%d", n), func(b *testing.B) {
			w := benchWorld(b, n)
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				w.Step(1.0 / 60.0)
			}
		})
	}
}
