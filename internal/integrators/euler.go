package integrators

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/dynsolve/internal/body"
)

// Euler is a semi-implicit (symplectic) Euler body integrator: velocities
// are advanced from forces first, positions then use the new velocities.
type Euler struct {
	Gravity mgl64.Vec2
}

func NewEuler(gravity mgl64.Vec2) *Euler {
	return &Euler{Gravity: gravity}
}

// IntegrateVelocity applies accumulated forces, gravity and drag, then
// clears the force accumulators.
func (e *Euler) IntegrateVelocity(b *body.Body, dt float64) {
	if b.IsStatic() || b.IsDisposed() {
		b.ClearForces()
		return
	}

	invMass := b.InverseMass()
	acc := b.Force().Mul(invMass)
	if invMass > 0 {
		acc = acc.Add(e.Gravity)
	}
	b.LinearVelocity = b.LinearVelocity.Add(acc.Mul(dt))
	b.AngularVelocity += b.Torque() * b.InverseMomentOfInertia() * dt

	if b.LinearDrag > 0 {
		b.LinearVelocity = b.LinearVelocity.Mul(1 / (1 + dt*b.LinearDrag))
	}
	if b.AngularDrag > 0 {
		b.AngularVelocity /= 1 + dt*b.AngularDrag
	}

	b.ClearForces()
}

func (e *Euler) IntegratePosition(b *body.Body, dt float64) {
	if b.IsStatic() || b.IsDisposed() {
		return
	}
	b.Position = b.Position.Add(b.LinearVelocity.Mul(dt))
	b.Rotation += b.AngularVelocity * dt
}
