// Package springs implements damped springs that act on bodies through
// continuous forces rather than accumulated impulses.
package springs

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/dynsolve/internal/body"
	"github.com/san-kum/dynsolve/internal/dynamo"
)

// Epsilon is the attach distance at or below which no force is computed.
const Epsilon = 1e-5

// FixedLinearSpring ties a body-local attach point to a fixed world point
// with a Hookean spring and a linear damper along the spring axis.
type FixedLinearSpring struct {
	dynamo.Lifecycle

	body            *body.Body
	bodyAttachPoint mgl64.Vec2
	worldAttach     mgl64.Vec2

	springConstant  float64
	dampingConstant float64
	restLength      float64
	breakpoint      float64

	springError float64
}

type Option func(*FixedLinearSpring)

func WithRestLength(v float64) Option { return func(s *FixedLinearSpring) { s.restLength = v } }
func WithBreakpoint(v float64) Option { return func(s *FixedLinearSpring) { s.breakpoint = v } }

func WithOnBreak(fn dynamo.BreakFunc) Option {
	return func(s *FixedLinearSpring) { s.SetOnBreak(fn) }
}

// NewFixedLinearSpring creates a spring whose rest length is the current
// distance between the two attach points unless WithRestLength is given.
func NewFixedLinearSpring(b *body.Body, bodyAttachPoint, worldAttachPoint mgl64.Vec2, springConstant, dampingConstant float64, opts ...Option) (*FixedLinearSpring, error) {
	if b == nil {
		return nil, dynamo.ErrBodyNotSet
	}
	s := &FixedLinearSpring{
		Lifecycle:       dynamo.NewLifecycle(nil),
		body:            b,
		bodyAttachPoint: bodyAttachPoint,
		worldAttach:     worldAttachPoint,
		springConstant:  springConstant,
		dampingConstant: dampingConstant,
		restLength:      worldAttachPoint.Sub(b.WorldPoint(bodyAttachPoint)).Len(),
		breakpoint:      math.Inf(1),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *FixedLinearSpring) Body() *body.Body             { return s.body }
func (s *FixedLinearSpring) BodyAttachPoint() mgl64.Vec2  { return s.bodyAttachPoint }
func (s *FixedLinearSpring) WorldAttachPoint() mgl64.Vec2 { return s.worldAttach }
func (s *FixedLinearSpring) SpringConstant() float64      { return s.springConstant }
func (s *FixedLinearSpring) DampingConstant() float64     { return s.dampingConstant }
func (s *FixedLinearSpring) RestLength() float64          { return s.restLength }
func (s *FixedLinearSpring) Breakpoint() float64          { return s.breakpoint }
func (s *FixedLinearSpring) SpringError() float64         { return s.springError }
func (s *FixedLinearSpring) Error() float64               { return s.springError }

func (s *FixedLinearSpring) SetBodyAttachPoint(p mgl64.Vec2)  { s.bodyAttachPoint = p }
func (s *FixedLinearSpring) SetWorldAttachPoint(p mgl64.Vec2) { s.worldAttach = p }
func (s *FixedLinearSpring) SetSpringConstant(v float64)      { s.springConstant = v }
func (s *FixedLinearSpring) SetDampingConstant(v float64)     { s.dampingConstant = v }
func (s *FixedLinearSpring) SetRestLength(v float64)          { s.restLength = v }
func (s *FixedLinearSpring) SetBreakpoint(v float64)          { s.breakpoint = v }

// SetBody swaps the attached body. A nil body is rejected.
func (s *FixedLinearSpring) SetBody(b *body.Body) error {
	if b == nil {
		return dynamo.ErrBodyNotSet
	}
	s.body = b
	return nil
}

func (s *FixedLinearSpring) Validate() {
	if s.body == nil || s.body.IsDisposed() {
		s.Dispose()
	}
}

// Update accumulates the spring and damping force on the body:
//
//	F = -(k(l - r) + d(v . n)) n
//
// where n is the unit vector from the world attach point to the body attach
// point, l its length, r the rest length and v the velocity of the body
// attach point.
func (s *FixedLinearSpring) Update(dt float64) {
	if s.Enabled() && math.Abs(s.springError) > s.breakpoint {
		s.Break(s)
	}
	if s.IsDisposed() || !s.Enabled() || s.body.IsStatic() {
		return
	}

	difference := s.body.WorldPoint(s.bodyAttachPoint).Sub(s.worldAttach)
	length := difference.Len()
	if length <= Epsilon {
		return
	}

	s.springError = length - s.restLength
	direction := difference.Mul(1 / length)

	springForce := s.springConstant * s.springError
	velocity := s.body.VelocityAtLocalPoint(s.bodyAttachPoint)
	dampingForce := s.dampingConstant * velocity.Dot(direction)

	force := direction.Mul(-(springForce + dampingForce))
	s.body.ApplyForceAtLocalPoint(force, s.bodyAttachPoint)
}
