package dynamo

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Cross is the 2D scalar cross product a.x*b.y - a.y*b.x.
func Cross(a, b mgl64.Vec2) float64 {
	return a[0]*b[1] - a[1]*b[0]
}

// CrossSV returns s x v, the velocity of point v under angular velocity s.
func CrossSV(s float64, v mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{-s * v[1], s * v[0]}
}

// Truncate scales v down to length max when it is longer.
func Truncate(v mgl64.Vec2, max float64) mgl64.Vec2 {
	l := v.Len()
	if l <= max || l == 0 {
		return v
	}
	return v.Mul(max / l)
}

// Invert2 inverts m in closed form. A zero determinant yields
// ErrSingularMatrix and the zero matrix.
func Invert2(m mgl64.Mat2) (mgl64.Mat2, error) {
	a, b := m.At(0, 0), m.At(0, 1)
	c, d := m.At(1, 0), m.At(1, 1)

	det := a*d - b*c
	if det == 0 || math.IsNaN(det) {
		return mgl64.Mat2{}, ErrSingularMatrix
	}
	det = 1 / det

	var inv mgl64.Mat2
	inv.Set(0, 0, det*d)
	inv.Set(0, 1, -det*b)
	inv.Set(1, 0, -det*c)
	inv.Set(1, 1, det*a)
	return inv, nil
}

// IsFinite reports whether x is neither infinite nor NaN.
func IsFinite(x float64) bool {
	return !math.IsInf(x, 0) && !math.IsNaN(x)
}
