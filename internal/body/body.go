// Package body holds the rigid body state the constraint solver reads and
// writes: pose, velocities, mass properties and the impulse/force
// application points.
package body

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

type Body struct {
	Name string

	Position        mgl64.Vec2
	Rotation        float64
	LinearVelocity  mgl64.Vec2
	AngularVelocity float64
	LinearDrag      float64
	AngularDrag     float64

	force  mgl64.Vec2
	torque float64

	mass          float64
	inverseMass   float64
	moment        float64
	inverseMoment float64

	static   bool
	disposed bool
}

// New creates a dynamic body. A non-positive mass or moment is treated as
// infinite along that axis.
func New(mass, moment float64) *Body {
	b := &Body{}
	b.SetMass(mass)
	b.SetMomentOfInertia(moment)
	return b
}

// NewStatic creates a body that never moves and has zero inverse mass.
func NewStatic() *Body {
	return &Body{static: true, mass: math.Inf(1), moment: math.Inf(1)}
}

func (b *Body) SetMass(mass float64) {
	b.mass = mass
	if mass <= 0 || math.IsInf(mass, 1) || b.static {
		b.inverseMass = 0
		return
	}
	b.inverseMass = 1 / mass
}

func (b *Body) SetMomentOfInertia(moment float64) {
	b.moment = moment
	if moment <= 0 || math.IsInf(moment, 1) || b.static {
		b.inverseMoment = 0
		return
	}
	b.inverseMoment = 1 / moment
}

func (b *Body) Mass() float64                   { return b.mass }
func (b *Body) InverseMass() float64            { return b.inverseMass }
func (b *Body) MomentOfInertia() float64        { return b.moment }
func (b *Body) InverseMomentOfInertia() float64 { return b.inverseMoment }
func (b *Body) IsStatic() bool                  { return b.static }
func (b *Body) IsDisposed() bool                { return b.disposed }
func (b *Body) Force() mgl64.Vec2               { return b.force }
func (b *Body) Torque() float64                 { return b.torque }

// SetStatic pins the body in place. Velocities are cleared and mass
// properties become infinite.
func (b *Body) SetStatic(static bool) {
	b.static = static
	if static {
		b.LinearVelocity = mgl64.Vec2{}
		b.AngularVelocity = 0
		b.inverseMass = 0
		b.inverseMoment = 0
		return
	}
	b.SetMass(b.mass)
	b.SetMomentOfInertia(b.moment)
}

func (b *Body) Dispose() { b.disposed = true }

// Orientation returns the rotation matrix of the body frame.
func (b *Body) Orientation() mgl64.Mat2 {
	return mgl64.Rotate2D(b.Rotation)
}

// WorldPoint maps a point in body coordinates to world coordinates.
func (b *Body) WorldPoint(local mgl64.Vec2) mgl64.Vec2 {
	return b.Position.Add(b.Orientation().Mul2x1(local))
}

// LocalPoint maps a world point into body coordinates.
func (b *Body) LocalPoint(world mgl64.Vec2) mgl64.Vec2 {
	return b.Orientation().Transpose().Mul2x1(world.Sub(b.Position))
}

// WorldVector rotates a body-frame direction into the world frame.
func (b *Body) WorldVector(local mgl64.Vec2) mgl64.Vec2 {
	return b.Orientation().Mul2x1(local)
}

// VelocityAtLocalPoint is v + w x r for the body-frame point.
func (b *Body) VelocityAtLocalPoint(local mgl64.Vec2) mgl64.Vec2 {
	r := b.WorldVector(local)
	return b.LinearVelocity.Add(mgl64.Vec2{-b.AngularVelocity * r[1], b.AngularVelocity * r[0]})
}

// ApplyImpulse changes linear velocity immediately.
func (b *Body) ApplyImpulse(impulse mgl64.Vec2) {
	if b.static {
		return
	}
	b.LinearVelocity = b.LinearVelocity.Add(impulse.Mul(b.inverseMass))
}

// ApplyAngularImpulse changes angular velocity immediately.
func (b *Body) ApplyAngularImpulse(impulse float64) {
	if b.static {
		return
	}
	b.AngularVelocity += impulse * b.inverseMoment
}

func (b *Body) ApplyForce(force mgl64.Vec2) {
	b.force = b.force.Add(force)
}

func (b *Body) ApplyTorque(torque float64) {
	b.torque += torque
}

// ApplyForceAtLocalPoint accumulates the force and the torque it induces
// about the center of mass.
func (b *Body) ApplyForceAtLocalPoint(force, local mgl64.Vec2) {
	r := b.WorldVector(local)
	b.force = b.force.Add(force)
	b.torque += r[0]*force[1] - r[1]*force[0]
}

func (b *Body) ClearForces() {
	b.force = mgl64.Vec2{}
	b.torque = 0
}

// KineticEnergy returns linear plus rotational kinetic energy.
func (b *Body) KineticEnergy() float64 {
	if b.static {
		return 0
	}
	ke := 0.0
	if b.inverseMass > 0 {
		ke += 0.5 * b.mass * b.LinearVelocity.Dot(b.LinearVelocity)
	}
	if b.inverseMoment > 0 {
		ke += 0.5 * b.moment * b.AngularVelocity * b.AngularVelocity
	}
	return ke
}
