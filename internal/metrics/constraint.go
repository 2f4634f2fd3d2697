package metrics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/dynsolve/internal/dynamo"
	"github.com/san-kum/dynsolve/internal/sim"
)

// MaxConstraintError is the largest absolute error any enabled constraint
// reported during the run.
type MaxConstraintError struct {
	name string
	max  float64
}

func NewMaxConstraintError() *MaxConstraintError {
	return &MaxConstraintError{name: "max_constraint_error"}
}

func (m *MaxConstraintError) Name() string { return m.name }

func (m *MaxConstraintError) Observe(w *sim.World, t float64) {
	for _, j := range w.Joints() {
		m.observe(j)
	}
	for _, c := range w.Controllers() {
		m.observe(c)
	}
}

func (m *MaxConstraintError) observe(c dynamo.Constraint) {
	if c.Status() != dynamo.StatusActive {
		return
	}
	m.max = math.Max(m.max, math.Abs(c.Error()))
}

func (m *MaxConstraintError) Value() float64 { return m.max }
func (m *MaxConstraintError) Reset()         { m.max = 0 }

// Broken counts break notifications the world has seen. Constraints
// disabled for other reasons, such as a singular effective mass, are not
// counted.
type Broken struct {
	name  string
	count int
}

func NewBroken() *Broken {
	return &Broken{name: "broken"}
}

func (b *Broken) Name() string { return b.name }

func (b *Broken) Observe(w *sim.World, t float64) {
	b.count = w.Broken()
}

func (b *Broken) Value() float64 { return float64(b.count) }
func (b *Broken) Reset()         { b.count = 0 }

type impulseCarrier interface {
	AccumulatedImpulse() mgl64.Vec2
}

// ImpulseEffort averages the accumulated impulse magnitude of the joints
// that carry one.
type ImpulseEffort struct {
	name    string
	sum     float64
	samples int
}

func NewImpulseEffort() *ImpulseEffort {
	return &ImpulseEffort{name: "impulse_effort"}
}

func (e *ImpulseEffort) Name() string { return e.name }

func (e *ImpulseEffort) Observe(w *sim.World, t float64) {
	for _, j := range w.Joints() {
		if ic, ok := j.(impulseCarrier); ok {
			e.sum += ic.AccumulatedImpulse().Len()
			e.samples++
		}
	}
}

func (e *ImpulseEffort) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.sum / float64(e.samples)
}

func (e *ImpulseEffort) Reset() {
	e.sum = 0
	e.samples = 0
}
