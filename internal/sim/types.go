package sim

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/dynsolve/internal/arbiter"
	"github.com/san-kum/dynsolve/internal/body"
)

const (
	DefaultDt         = 1.0 / 60.0
	DefaultDuration   = 5.0
	DefaultIterations = 10
)

// BodyIntegrator advances bodies between constraint passes.
type BodyIntegrator interface {
	IntegrateVelocity(b *body.Body, dt float64)
	IntegratePosition(b *body.Body, dt float64)
}

// Collider refreshes contact arbiters for the current body poses. It owns
// the narrow phase; the world only prunes what it leaves behind.
type Collider interface {
	Collide(bodies []*body.Body, reg *arbiter.Registry, acquire func() *arbiter.Arbiter)
}

type Metric interface {
	Name() string
	Observe(w *World, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(w *World, t float64)
}

type Config struct {
	Dt            float64
	Duration      float64
	Iterations    int
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            DefaultDt,
		Duration:      DefaultDuration,
		Iterations:    DefaultIterations,
		ValidateState: true,
	}
}

// BodyState is a snapshot of one body's kinematic state. A body that has
// left the world is recorded with Removed set and a zero state.
type BodyState struct {
	Position        mgl64.Vec2
	Rotation        float64
	LinearVelocity  mgl64.Vec2
	AngularVelocity float64
	Removed         bool
}

func (s BodyState) IsValid() bool {
	for _, v := range [...]float64{
		s.Position[0], s.Position[1], s.Rotation,
		s.LinearVelocity[0], s.LinearVelocity[1], s.AngularVelocity,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Frame is everything recorded for one instant of a run. Bodies and Errors
// follow the order things were added to the world, so an index names the
// same body or constraint in every frame of a run. Entries added later only
// extend the slices.
type Frame struct {
	Time   float64
	Bodies []BodyState
	// Errors holds the last scalar error of every constraint. A constraint
	// that has been disposed records NaN.
	Errors []float64
}

type Result struct {
	Frames       []Frame
	BodyNames    []string
	Metrics      map[string]float64
	StepsTaken   int
	Broken       int
	Errors       []error
	ArbiterCount int
}

type SimError struct {
	Time    float64
	Step    int
	Message string
}

func (e SimError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}
