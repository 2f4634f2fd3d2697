package joints

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/dynsolve/internal/body"
	"github.com/san-kum/dynsolve/internal/dynamo"

	. "github.com/onsi/gomega"
)

const dt = 1.0 / 60.0

// step runs one solver step for a single joint and integrates the body
// position from the corrected velocity.
func step(j *FixedRevoluteJoint, iterations int) error {
	if err := j.PreStep(1 / dt); err != nil {
		return err
	}
	for i := 0; i < iterations; i++ {
		j.Update()
	}
	b := j.Body()
	b.Position = b.Position.Add(b.LinearVelocity.Mul(dt))
	b.Rotation += b.AngularVelocity * dt
	return nil
}

func TestNewFixedRevoluteJointDefaults(t *testing.T) {
	g := NewWithT(t)

	b := body.New(1, 1)
	b.Position = mgl64.Vec2{2, 3}
	b.Rotation = math.Pi / 2

	j, err := NewFixedRevoluteJoint(b, mgl64.Vec2{2, 4})
	g.Expect(err).NotTo(HaveOccurred())

	g.Expect(j.BiasFactor()).To(Equal(DefaultBiasFactor))
	g.Expect(j.Softness()).To(BeZero())
	g.Expect(math.IsInf(j.MaxImpulse(), 1)).To(BeTrue())
	g.Expect(math.IsInf(j.Breakpoint(), 1)).To(BeTrue())
	g.Expect(j.Status()).To(Equal(dynamo.StatusActive))

	// world (0,1) from the center is local (1,0) after a quarter turn
	g.Expect(j.LocalAnchor()[0]).To(BeNumerically("~", 1, 1e-12))
	g.Expect(j.LocalAnchor()[1]).To(BeNumerically("~", 0, 1e-12))
}

func TestAnchorRequiresBody(t *testing.T) {
	g := NewWithT(t)

	_, err := NewFixedRevoluteJoint(nil, mgl64.Vec2{1, 1})
	g.Expect(errors.Is(err, dynamo.ErrBodyNotSet)).To(BeTrue())

	j := &FixedRevoluteJoint{}
	g.Expect(j.SetAnchor(mgl64.Vec2{1, 1})).To(MatchError(dynamo.ErrBodyNotSet))
}

func TestZeroErrorProducesZeroImpulse(t *testing.T) {
	g := NewWithT(t)

	b := body.New(2, 0.5)
	b.Position = mgl64.Vec2{1, 1}
	j, err := NewFixedRevoluteJoint(b, mgl64.Vec2{1.5, 1})
	g.Expect(err).NotTo(HaveOccurred())

	g.Expect(j.PreStep(1 / dt)).To(Succeed())
	j.Update()

	g.Expect(j.JointError()).To(BeNumerically("~", 0, 1e-12))
	g.Expect(j.AccumulatedImpulse().Len()).To(BeNumerically("~", 0, 1e-12))
	g.Expect(b.LinearVelocity.Len()).To(BeNumerically("~", 0, 1e-12))
	g.Expect(b.AngularVelocity).To(BeNumerically("~", 0, 1e-12))
}

func TestWarmStartingConverges(t *testing.T) {
	g := NewWithT(t)

	b := body.New(1, 0.5)
	j, err := NewFixedRevoluteJoint(b, mgl64.Vec2{0, 0})
	g.Expect(err).NotTo(HaveOccurred())

	// drag the body away from the anchor and let the joint pull it back
	b.Position = mgl64.Vec2{-0.4, 0.3}

	g.Expect(step(j, 10)).To(Succeed())
	prev := j.JointError()
	g.Expect(prev).To(BeNumerically("~", 0.5, 1e-12))

	for i := 0; i < 40; i++ {
		g.Expect(step(j, 10)).To(Succeed())
		cur := j.JointError()
		if cur > 1e-12 {
			g.Expect(cur).To(BeNumerically("<", prev), "step %d", i)
		}
		prev = cur
	}
	g.Expect(j.JointError()).To(BeNumerically("<", 1e-9))
}

func TestUpdateSolvesVelocityConstraint(t *testing.T) {
	g := NewWithT(t)

	b := body.New(3, 0.7)
	j, err := NewFixedRevoluteJoint(b, mgl64.Vec2{0.3, -0.2})
	g.Expect(err).NotTo(HaveOccurred())

	b.LinearVelocity = mgl64.Vec2{1, 2}
	b.AngularVelocity = 4
	j.SetBiasFactor(0)

	g.Expect(j.PreStep(1 / dt)).To(Succeed())
	j.Update()

	// a rigid joint drives the anchor velocity to zero in one pass
	r := b.WorldVector(j.LocalAnchor())
	v := b.LinearVelocity.Add(dynamo.CrossSV(b.AngularVelocity, r))
	g.Expect(v.Len()).To(BeNumerically("<", 1e-9))
}

func TestSoftnessReducesCorrection(t *testing.T) {
	g := NewWithT(t)

	correction := func(softness float64) float64 {
		b := body.New(1, 1)
		j, err := NewFixedRevoluteJoint(b, mgl64.Vec2{}, WithSoftness(softness))
		g.Expect(err).NotTo(HaveOccurred())
		b.LinearVelocity = mgl64.Vec2{1, 0}
		g.Expect(j.PreStep(1 / dt)).To(Succeed())
		j.Update()
		return 1 - b.LinearVelocity[0]
	}

	rigid := correction(0)
	soft := correction(1)
	g.Expect(rigid).To(BeNumerically("~", 1, 1e-12))
	g.Expect(soft).To(BeNumerically("~", 0.5, 1e-12))
}

func TestMaxImpulseTruncatesAppliedImpulse(t *testing.T) {
	g := NewWithT(t)

	b := body.New(1, 1)
	j, err := NewFixedRevoluteJoint(b, mgl64.Vec2{}, WithMaxImpulse(0.25))
	g.Expect(err).NotTo(HaveOccurred())

	b.LinearVelocity = mgl64.Vec2{0, -3}
	g.Expect(j.PreStep(1 / dt)).To(Succeed())
	j.Update()

	g.Expect(b.LinearVelocity[1]).To(BeNumerically("~", -2.75, 1e-12))
	// the accumulator keeps the full increment
	g.Expect(j.AccumulatedImpulse()[1]).To(BeNumerically("~", -3, 1e-12))
}

func TestBreakpointDisablesOnce(t *testing.T) {
	g := NewWithT(t)

	b := body.New(1, 1)
	var broke []dynamo.Constraint
	j, err := NewFixedRevoluteJoint(b, mgl64.Vec2{},
		WithBreakpoint(0.1),
		WithOnBreak(func(c dynamo.Constraint) { broke = append(broke, c) }))
	g.Expect(err).NotTo(HaveOccurred())

	b.Position = mgl64.Vec2{1, 0}
	for i := 0; i < 5; i++ {
		g.Expect(step(j, 4)).To(Succeed())
	}

	g.Expect(broke).To(HaveLen(1))
	g.Expect(broke[0]).To(BeIdenticalTo(j))
	g.Expect(j.Enabled()).To(BeFalse())
	g.Expect(j.IsDisposed()).To(BeFalse())
	g.Expect(j.Status()).To(Equal(dynamo.StatusDisabled))

	lastError := j.JointError()
	v := b.LinearVelocity
	w := b.AngularVelocity
	j.Update()
	g.Expect(j.PreStep(1 / dt)).To(Succeed())
	j.Update()
	g.Expect(j.JointError()).To(Equal(lastError))
	g.Expect(b.LinearVelocity).To(Equal(v))
	g.Expect(b.AngularVelocity).To(Equal(w))
	g.Expect(broke).To(HaveLen(1))
}

func TestBreakpointNotifiesAgainAfterReEnable(t *testing.T) {
	g := NewWithT(t)

	b := body.New(1, 1)
	count := 0
	j, err := NewFixedRevoluteJoint(b, mgl64.Vec2{},
		WithBreakpoint(0.1),
		WithOnBreak(func(dynamo.Constraint) { count++ }))
	g.Expect(err).NotTo(HaveOccurred())

	b.Position = mgl64.Vec2{1, 0}
	g.Expect(step(j, 1)).To(Succeed())
	g.Expect(count).To(Equal(1))

	j.SetEnabled(true)
	g.Expect(j.AccumulatedImpulse()).To(Equal(mgl64.Vec2{}))
	g.Expect(j.PreStep(1 / dt)).To(Succeed())
	g.Expect(count).To(Equal(2))
	g.Expect(j.Enabled()).To(BeFalse())
}

func TestValidateDisposesWithBody(t *testing.T) {
	g := NewWithT(t)

	b := body.New(1, 1)
	j, err := NewFixedRevoluteJoint(b, mgl64.Vec2{1, 0})
	g.Expect(err).NotTo(HaveOccurred())

	j.Validate()
	g.Expect(j.IsDisposed()).To(BeFalse())

	b.Dispose()
	j.Validate()
	g.Expect(j.IsDisposed()).To(BeTrue())
	g.Expect(j.Status()).To(Equal(dynamo.StatusDisposed))

	g.Expect(j.PreStep(1 / dt)).To(Succeed())
	j.Update()
	g.Expect(b.LinearVelocity).To(Equal(mgl64.Vec2{}))
}

func TestSingularEffectiveMassDisables(t *testing.T) {
	g := NewWithT(t)

	b := body.NewStatic()
	j, err := NewFixedRevoluteJoint(b, mgl64.Vec2{1, 0})
	g.Expect(err).NotTo(HaveOccurred())

	err = j.PreStep(1 / dt)
	g.Expect(err).To(MatchError(dynamo.ErrSingularMatrix))

	var ce *dynamo.ConstraintError
	g.Expect(errors.As(err, &ce)).To(BeTrue())
	g.Expect(j.Enabled()).To(BeFalse())
	g.Expect(j.IsDisposed()).To(BeFalse())

	// softness alone keeps the matrix invertible
	soft, err := NewFixedRevoluteJoint(b, mgl64.Vec2{1, 0}, WithSoftness(0.1))
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(soft.PreStep(1 / dt)).To(Succeed())
}

func TestDeterministicImpulses(t *testing.T) {
	g := NewWithT(t)

	run := func() (mgl64.Vec2, mgl64.Vec2, float64) {
		b := body.New(1.3, 0.4)
		b.Rotation = 0.7
		j, err := NewFixedRevoluteJoint(b, mgl64.Vec2{0.2, -0.6}, WithSoftness(0.05), WithMaxImpulse(5))
		g.Expect(err).NotTo(HaveOccurred())
		b.Position = mgl64.Vec2{0.3, 0.1}
		b.LinearVelocity = mgl64.Vec2{-1, 0.5}
		b.AngularVelocity = 2
		for i := 0; i < 30; i++ {
			g.Expect(step(j, 6)).To(Succeed())
		}
		return j.AccumulatedImpulse(), b.Position, b.Rotation
	}

	acc1, pos1, rot1 := run()
	acc2, pos2, rot2 := run()
	g.Expect(acc1).To(Equal(acc2))
	g.Expect(pos1).To(Equal(pos2))
	g.Expect(rot1).To(Equal(rot2))
}
