package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/dynsolve/internal/arbiter"
	"github.com/san-kum/dynsolve/internal/body"
	"github.com/san-kum/dynsolve/internal/dynamo"
	"github.com/san-kum/dynsolve/internal/integrators"
	"github.com/san-kum/dynsolve/internal/joints"
	"github.com/san-kum/dynsolve/internal/springs"
)

func newPendulumWorld(t *testing.T) (*World, *joints.FixedRevoluteJoint) {
	t.Helper()

	w := New(WithIntegrator(integrators.NewEuler(mgl64.Vec2{0, -9.81})))
	b := body.New(1, 0.1)
	b.Name = "bob"
	b.Position = mgl64.Vec2{1, 0}
	w.AddBody(b)

	j, err := joints.NewFixedRevoluteJoint(b, mgl64.Vec2{0, 0})
	if err != nil {
		t.Fatalf("joint: %v", err)
	}
	w.AddJoint(j)
	return w, j
}

func TestWorldRun(t *testing.T) {
	w, j := newPendulumWorld(t)

	cfg := Config{Dt: 0.01, Duration: 1.0, Iterations: 10}
	result, err := w.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.Frames) != 101 {
		t.Errorf("expected 101 frames, got %d", len(result.Frames))
	}
	if result.StepsTaken != 100 {
		t.Errorf("expected 100 steps, got %d", result.StepsTaken)
	}
	if len(result.Errors) != 0 {
		t.Errorf("expected no errors, got %v", result.Errors)
	}

	// the pin keeps the anchor point near the world origin while the bob swings
	if j.JointError() > 0.05 {
		t.Errorf("expected joint error below 0.05, got %f", j.JointError())
	}
	bob := w.Bodies()[0]
	if bob.Position[1] >= 0 {
		t.Errorf("expected bob to swing down, got y=%f", bob.Position[1])
	}
}

func TestWorldInvalidConfig(t *testing.T) {
	w := New()

	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero dt", Config{Dt: 0, Duration: 1.0}},
		{"negative dt", Config{Dt: -0.1, Duration: 1.0}},
		{"zero duration", Config{Dt: 0.1, Duration: 0}},
		{"negative duration", Config{Dt: 0.1, Duration: -1.0}},
		{"negative iterations", Config{Dt: 0.1, Duration: 1.0, Iterations: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := w.Run(context.Background(), tt.cfg)
			if !errors.Is(err, dynamo.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestWorldRunCanceled(t *testing.T) {
	w, _ := newPendulumWorld(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := w.Run(ctx, Config{Dt: 0.01, Duration: 1.0})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if result.StepsTaken != 0 {
		t.Errorf("expected 0 steps, got %d", result.StepsTaken)
	}
}

type testMetric struct {
	count int
}

func (m *testMetric) Name() string                { return "test" }
func (m *testMetric) Observe(w *World, t float64) { m.count++ }
func (m *testMetric) Value() float64              { return float64(m.count) }
func (m *testMetric) Reset()                      { m.count = 0 }

func TestWorldMetrics(t *testing.T) {
	w, _ := newPendulumWorld(t)

	metric := &testMetric{}
	w.AddMetric(metric)

	result, err := w.Run(context.Background(), Config{Dt: 0.1, Duration: 1.0})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if _, ok := result.Metrics["test"]; !ok {
		t.Error("metric not found in result")
	}
	if metric.count != 10 {
		t.Errorf("expected 10 observations, got %d", metric.count)
	}
}

func TestWorldBreakCounted(t *testing.T) {
	w := New(WithIntegrator(integrators.NewEuler(mgl64.Vec2{})))
	b := body.New(1, 1)
	w.AddBody(b)

	fired := 0
	j, err := joints.NewFixedRevoluteJoint(b, mgl64.Vec2{0, 0},
		joints.WithBreakpoint(0.5),
		joints.WithOnBreak(func(dynamo.Constraint) { fired++ }))
	if err != nil {
		t.Fatalf("joint: %v", err)
	}
	w.AddJoint(j)

	b.Position = mgl64.Vec2{2, 0}
	for i := 0; i < 5; i++ {
		w.Step(0.01)
	}

	if fired != 1 {
		t.Errorf("expected observer to fire once, got %d", fired)
	}
	if w.Broken() != 1 {
		t.Errorf("expected world to count 1 break, got %d", w.Broken())
	}
	if j.Status() != dynamo.StatusDisabled {
		t.Errorf("expected disabled joint, got %s", j.Status())
	}
	if len(w.Joints()) != 1 {
		t.Errorf("expected broken joint kept in the world, got %d joints", len(w.Joints()))
	}
}

func TestWorldDegenerateJointReported(t *testing.T) {
	w := New()
	b := body.NewStatic()
	w.AddBody(b)

	j, err := joints.NewFixedRevoluteJoint(b, mgl64.Vec2{1, 0})
	if err != nil {
		t.Fatalf("joint: %v", err)
	}
	w.AddJoint(j)

	errs := w.Step(0.01)
	errs = append(errs, w.Step(0.01)...)
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d", len(errs))
	}
	if !errors.Is(errs[0], dynamo.ErrSingularMatrix) {
		t.Errorf("expected ErrSingularMatrix, got %v", errs[0])
	}
	var ce *dynamo.ConstraintError
	if !errors.As(errs[0], &ce) || ce.Step != 0 {
		t.Errorf("expected ConstraintError at step 0, got %v", errs[0])
	}
	if j.Enabled() {
		t.Error("expected degenerate joint to be disabled")
	}
}

func TestWorldPrunesDisposed(t *testing.T) {
	w := New()
	a, b := body.New(1, 1), body.New(1, 1)
	w.AddBody(a)
	w.AddBody(b)

	j, _ := joints.NewFixedRevoluteJoint(a, mgl64.Vec2{})
	s, _ := springs.NewFixedLinearSpring(b, mgl64.Vec2{}, mgl64.Vec2{0, 1}, 10, 1)
	w.AddJoint(j)
	w.AddController(s)

	arb := w.ArbiterPool().Acquire().Init(a, b)
	arb.AddContact(arbiter.Contact{})
	w.Arbiters().Add(arb)

	a.Dispose()
	w.Step(0.01)

	if len(w.Joints()) != 0 {
		t.Errorf("expected joint pruned, got %d", len(w.Joints()))
	}
	if !j.IsDisposed() {
		t.Error("expected joint disposed")
	}
	if len(w.Controllers()) != 1 {
		t.Errorf("expected spring kept, got %d", len(w.Controllers()))
	}
	if len(w.Bodies()) != 1 || w.Bodies()[0] != b {
		t.Error("expected only the live body to remain")
	}
	if w.Arbiters().Len() != 0 {
		t.Errorf("expected arbiter released, got %d", w.Arbiters().Len())
	}
	if w.ArbiterPool().Available() != 1 {
		t.Errorf("expected 1 pooled arbiter, got %d", w.ArbiterPool().Available())
	}
}

type touchingCollider struct {
	touching bool
}

func (c *touchingCollider) Collide(bodies []*body.Body, reg *arbiter.Registry, acquire func() *arbiter.Arbiter) {
	if reg.Len() == 0 {
		reg.Add(acquire().Init(bodies[0], bodies[1]))
	}
	reg.ForEachSafe(func(a *arbiter.Arbiter) {
		a.ClearContacts()
		if c.touching {
			a.AddContact(arbiter.Contact{Normal: mgl64.Vec2{0, 1}})
		}
	})
}

func TestWorldPrunesSeparatedArbiters(t *testing.T) {
	col := &touchingCollider{touching: true}
	w := New(WithCollider(col))
	w.AddBody(body.New(1, 1))
	w.AddBody(body.New(1, 1))

	w.Step(0.01)
	if w.Arbiters().Len() != 1 {
		t.Fatalf("expected 1 arbiter while touching, got %d", w.Arbiters().Len())
	}

	col.touching = false
	w.Step(0.01)
	if w.Arbiters().Len() != 0 {
		t.Errorf("expected arbiter pruned after separation, got %d", w.Arbiters().Len())
	}
	if w.ArbiterPool().Available() != 1 {
		t.Errorf("expected arbiter back in pool, got %d", w.ArbiterPool().Available())
	}
	if w.ArbiterPool().Created() != 1 {
		t.Errorf("expected a single allocation, got %d", w.ArbiterPool().Created())
	}
}

func TestStepRejectsBadDt(t *testing.T) {
	w := New()
	for _, dt := range []float64{0, -1, math.NaN()} {
		errs := w.Step(dt)
		if len(errs) != 1 || !errors.Is(errs[0], dynamo.ErrInvalidConfig) {
			t.Errorf("dt=%v: expected ErrInvalidConfig, got %v", dt, errs)
		}
	}
	if w.StepCount() != 0 {
		t.Errorf("expected no steps, got %d", w.StepCount())
	}
}

func TestWorldIgnoresReAdded(t *testing.T) {
	w := New(WithIntegrator(integrators.NewEuler(mgl64.Vec2{})))
	b := body.New(1, 1)
	w.AddBody(b)
	w.AddBody(b)

	fired := 0
	j, err := joints.NewFixedRevoluteJoint(b, mgl64.Vec2{0, 0},
		joints.WithBreakpoint(0.5),
		joints.WithOnBreak(func(dynamo.Constraint) { fired++ }))
	if err != nil {
		t.Fatalf("joint: %v", err)
	}
	w.AddJoint(j)
	w.AddJoint(j)

	if len(w.Bodies()) != 1 || len(w.Joints()) != 1 {
		t.Fatalf("expected 1 body and 1 joint, got %d and %d", len(w.Bodies()), len(w.Joints()))
	}

	b.Position = mgl64.Vec2{2, 0}
	for i := 0; i < 5; i++ {
		w.Step(0.01)
	}

	if fired != 1 {
		t.Errorf("expected observer to fire once, got %d", fired)
	}
	if w.Broken() != 1 {
		t.Errorf("expected world to count 1 break, got %d", w.Broken())
	}
}

type disposer struct {
	step int
	body *body.Body
}

func (d disposer) OnStep(w *World, t float64) {
	if w.StepCount() == d.step {
		d.body.Dispose()
	}
}

func TestFramesKeepLayoutAfterPrune(t *testing.T) {
	w := New()
	a, b := body.New(1, 1), body.New(1, 1)
	a.Name, b.Name = "a", "b"
	a.Position = mgl64.Vec2{100, 0}
	b.Position = mgl64.Vec2{7, 0}
	w.AddBody(a)
	w.AddBody(b)

	j, err := joints.NewFixedRevoluteJoint(a, a.Position)
	if err != nil {
		t.Fatalf("joint: %v", err)
	}
	w.AddJoint(j)
	w.AddObserver(disposer{step: 1, body: a})

	result, err := w.Run(context.Background(), Config{Dt: 0.1, Duration: 0.3, ValidateState: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(result.BodyNames) != 2 || result.BodyNames[0] != "a" || result.BodyNames[1] != "b" {
		t.Errorf("expected body names [a b], got %v", result.BodyNames)
	}
	if len(result.Frames) != 4 {
		t.Fatalf("expected 4 frames, got %d", len(result.Frames))
	}
	for i, f := range result.Frames {
		if len(f.Bodies) != 2 || len(f.Errors) != 1 {
			t.Fatalf("frame %d: expected 2 bodies and 1 error, got %d and %d", i, len(f.Bodies), len(f.Errors))
		}
		if f.Bodies[1].Removed || f.Bodies[1].Position[0] != 7 {
			t.Errorf("frame %d: expected b at x=7, got %+v", i, f.Bodies[1])
		}
		removed := i >= 2
		if f.Bodies[0].Removed != removed {
			t.Errorf("frame %d: expected a removed=%v", i, removed)
		}
		if math.IsNaN(f.Errors[0]) != removed {
			t.Errorf("frame %d: expected joint error NaN=%v, got %f", i, removed, f.Errors[0])
		}
	}
	if len(w.RecordedBodies()) != 2 || len(w.Bodies()) != 1 {
		t.Errorf("expected 2 recorded and 1 live body, got %d and %d", len(w.RecordedBodies()), len(w.Bodies()))
	}
}
