package joints

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/dynsolve/internal/body"
	"github.com/san-kum/dynsolve/internal/dynamo"
)

const (
	DefaultBiasFactor = 0.8
	DefaultSoftness   = 0.0
)

// FixedRevoluteJoint pins a point of a body to a fixed world anchor. The body
// may rotate freely about that point.
type FixedRevoluteJoint struct {
	dynamo.Lifecycle

	body        *body.Body
	anchor      mgl64.Vec2
	localAnchor mgl64.Vec2

	biasFactor float64
	softness   float64
	maxImpulse float64
	breakpoint float64

	accumulatedImpulse mgl64.Vec2
	jointError         float64

	// per-step work values, rebuilt by PreStep
	r            mgl64.Vec2
	massMatrix   mgl64.Mat2
	velocityBias mgl64.Vec2
}

type Option func(*FixedRevoluteJoint)

func WithBiasFactor(v float64) Option { return func(j *FixedRevoluteJoint) { j.biasFactor = v } }
func WithSoftness(v float64) Option   { return func(j *FixedRevoluteJoint) { j.softness = v } }
func WithMaxImpulse(v float64) Option { return func(j *FixedRevoluteJoint) { j.maxImpulse = v } }
func WithBreakpoint(v float64) Option { return func(j *FixedRevoluteJoint) { j.breakpoint = v } }

func WithOnBreak(fn dynamo.BreakFunc) Option {
	return func(j *FixedRevoluteJoint) { j.SetOnBreak(fn) }
}

// NewFixedRevoluteJoint anchors b at the world point anchor. The body-local
// anchor is derived from the body's current pose.
func NewFixedRevoluteJoint(b *body.Body, anchor mgl64.Vec2, opts ...Option) (*FixedRevoluteJoint, error) {
	j := &FixedRevoluteJoint{
		Lifecycle:  dynamo.NewLifecycle(nil),
		body:       b,
		biasFactor: DefaultBiasFactor,
		softness:   DefaultSoftness,
		maxImpulse: math.Inf(1),
		breakpoint: math.Inf(1),
	}
	for _, opt := range opts {
		opt(j)
	}
	if err := j.SetAnchor(anchor); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *FixedRevoluteJoint) Body() *body.Body               { return j.body }
func (j *FixedRevoluteJoint) Anchor() mgl64.Vec2             { return j.anchor }
func (j *FixedRevoluteJoint) LocalAnchor() mgl64.Vec2        { return j.localAnchor }
func (j *FixedRevoluteJoint) AccumulatedImpulse() mgl64.Vec2 { return j.accumulatedImpulse }
func (j *FixedRevoluteJoint) JointError() float64            { return j.jointError }
func (j *FixedRevoluteJoint) Error() float64                 { return j.jointError }
func (j *FixedRevoluteJoint) BiasFactor() float64            { return j.biasFactor }
func (j *FixedRevoluteJoint) Softness() float64              { return j.softness }
func (j *FixedRevoluteJoint) MaxImpulse() float64            { return j.maxImpulse }
func (j *FixedRevoluteJoint) Breakpoint() float64            { return j.breakpoint }

func (j *FixedRevoluteJoint) SetBiasFactor(v float64) { j.biasFactor = v }
func (j *FixedRevoluteJoint) SetSoftness(v float64)   { j.softness = v }
func (j *FixedRevoluteJoint) SetMaxImpulse(v float64) { j.maxImpulse = v }
func (j *FixedRevoluteJoint) SetBreakpoint(v float64) { j.breakpoint = v }

// SetBody swaps the constrained body. The local anchor is recomputed from
// the current world anchor.
func (j *FixedRevoluteJoint) SetBody(b *body.Body) error {
	j.body = b
	return j.SetAnchor(j.anchor)
}

// SetAnchor moves the world anchor and re-derives the body-local anchor.
func (j *FixedRevoluteJoint) SetAnchor(anchor mgl64.Vec2) error {
	j.anchor = anchor
	if j.body == nil {
		return dynamo.ErrBodyNotSet
	}
	j.localAnchor = j.body.LocalPoint(anchor)
	return nil
}

// SetEnabled re-enabling a disabled joint starts a new lifetime, so the
// warm-start impulse from the previous one is dropped.
func (j *FixedRevoluteJoint) SetEnabled(enabled bool) {
	if enabled && !j.Enabled() {
		j.accumulatedImpulse = mgl64.Vec2{}
	}
	j.Lifecycle.SetEnabled(enabled)
}

func (j *FixedRevoluteJoint) Validate() {
	if j.body == nil || j.body.IsDisposed() {
		j.Dispose()
	}
}

func (j *FixedRevoluteJoint) broken() bool {
	return math.Abs(j.jointError) > j.breakpoint
}

// PreStep checks the breakpoint against the previous step's error, builds
// the effective mass and Baumgarte bias for this step and applies the
// warm-start impulse. A singular effective mass disables the joint and is
// returned as a *dynamo.ConstraintError.
func (j *FixedRevoluteJoint) PreStep(inverseDt float64) error {
	if j.Enabled() && j.broken() {
		j.Break(j)
	}
	if j.IsDisposed() || !j.Enabled() {
		return nil
	}

	b := j.body
	j.r = b.WorldVector(j.localAnchor)
	rx, ry := j.r[0], j.r[1]
	invMass := b.InverseMass()
	invI := b.InverseMomentOfInertia()

	k1 := mgl64.Mat2{invMass, 0, 0, invMass}
	k2 := mgl64.Mat2{
		invI * ry * ry, -invI * rx * ry,
		-invI * rx * ry, invI * rx * rx,
	}
	k := k1.Add(k2)
	k[0] += j.softness
	k[3] += j.softness

	inv, err := dynamo.Invert2(k)
	if err != nil {
		j.Lifecycle.SetEnabled(false)
		return &dynamo.ConstraintError{Kind: "fixed revolute joint", Wrapped: err}
	}
	j.massMatrix = inv

	positionError := b.Position.Add(j.r).Sub(j.anchor)
	j.jointError = positionError.Len()
	j.velocityBias = positionError.Mul(-j.biasFactor * inverseDt)

	warm := j.accumulatedImpulse.Mul(-1)
	if dynamo.IsFinite(j.maxImpulse) {
		warm = dynamo.Truncate(warm, j.maxImpulse)
	}
	j.apply(warm)
	return nil
}

// Update applies one corrective impulse. A joint whose error from PreStep
// already exceeds the breakpoint breaks here instead of pushing the body.
// Breaking disables the joint without disposing it, so a world keeps it
// (and its last error) until the body goes away or it is disposed by hand.
func (j *FixedRevoluteJoint) Update() {
	if j.Enabled() && j.broken() {
		j.Break(j)
	}
	if j.IsDisposed() || !j.Enabled() {
		return
	}

	b := j.body
	anchorVelocity := b.LinearVelocity.Add(dynamo.CrossSV(b.AngularVelocity, j.r))
	deviation := anchorVelocity.Sub(j.velocityBias).Sub(j.accumulatedImpulse.Mul(j.softness))
	impulse := j.massMatrix.Mul2x1(deviation)

	applied := impulse.Mul(-1)
	if dynamo.IsFinite(j.maxImpulse) {
		applied = dynamo.Truncate(applied, j.maxImpulse)
	}
	j.apply(applied)

	j.accumulatedImpulse = j.accumulatedImpulse.Add(impulse)
}

func (j *FixedRevoluteJoint) apply(impulse mgl64.Vec2) {
	j.body.ApplyImpulse(impulse)
	j.body.ApplyAngularImpulse(dynamo.Cross(j.r, impulse))
}
