package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/dynsolve/internal/arbiter"
	"github.com/san-kum/dynsolve/internal/body"
	"github.com/san-kum/dynsolve/internal/dynamo"
	"github.com/san-kum/dynsolve/internal/integrators"
	"github.com/san-kum/dynsolve/internal/pool"
)

// World owns the bodies, constraints and contact arbiters of one simulation
// and advances them one step at a time.
type World struct {
	bodies      []*body.Body
	joints      []dynamo.Joint
	controllers []dynamo.Controller

	// every body and constraint ever added, in order; never pruned
	recordedBodies      []*body.Body
	recordedConstraints []dynamo.Constraint
	registered          map[any]struct{}

	arbiters    *arbiter.Registry
	arbiterPool *pool.Pool[*arbiter.Arbiter]

	integrator BodyIntegrator
	collider   Collider
	iterations int
	logger     *log.Logger

	metrics   []Metric
	observers []Observer

	stepCount int
	time      float64
	broken    int
}

type Option func(*World)

func WithIntegrator(integ BodyIntegrator) Option { return func(w *World) { w.integrator = integ } }
func WithCollider(c Collider) Option             { return func(w *World) { w.collider = c } }
func WithIterations(n int) Option                { return func(w *World) { w.iterations = n } }
func WithLogger(l *log.Logger) Option            { return func(w *World) { w.logger = l } }

func New(opts ...Option) *World {
	w := &World{
		bodies:      make([]*body.Body, 0),
		joints:      make([]dynamo.Joint, 0),
		controllers: make([]dynamo.Controller, 0),
		registered:  make(map[any]struct{}),
		arbiters:    arbiter.NewRegistry(),
		arbiterPool: pool.New(arbiter.New, (*arbiter.Arbiter).Reset),
		iterations:  DefaultIterations,
		metrics:     make([]Metric, 0),
		observers:   make([]Observer, 0),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.integrator == nil {
		w.integrator = integrators.NewEuler(mgl64.Vec2{})
	}
	if w.logger == nil {
		w.logger = log.New(io.Discard)
	}
	return w
}

func (w *World) AddMetric(m Metric)     { w.metrics = append(w.metrics, m) }
func (w *World) AddObserver(o Observer) { w.observers = append(w.observers, o) }

// AddBody adds b to the world. A body already added is ignored.
func (w *World) AddBody(b *body.Body) {
	if !w.register(b) {
		return
	}
	w.bodies = append(w.bodies, b)
	w.recordedBodies = append(w.recordedBodies, b)
}

// AddJoint adds j to the world. A constraint belongs to a single world;
// adding one that is already registered is ignored.
func (w *World) AddJoint(j dynamo.Joint) {
	if !w.register(j) {
		return
	}
	w.watchBreak(j)
	w.joints = append(w.joints, j)
	w.recordedConstraints = append(w.recordedConstraints, j)
}

// AddController adds c to the world. Like AddJoint, re-adding is ignored.
func (w *World) AddController(c dynamo.Controller) {
	if !w.register(c) {
		return
	}
	w.watchBreak(c)
	w.controllers = append(w.controllers, c)
	w.recordedConstraints = append(w.recordedConstraints, c)
}

func (w *World) register(v any) bool {
	if _, ok := w.registered[v]; ok {
		return false
	}
	w.registered[v] = struct{}{}
	return true
}

// watchBreak chains the world's break accounting in front of any observer
// the constraint was built with.
func (w *World) watchBreak(c dynamo.Constraint) {
	prev := c.OnBreak()
	c.SetOnBreak(func(broken dynamo.Constraint) {
		w.broken++
		w.logger.Info("constraint broke",
			"step", w.stepCount,
			"error", broken.Error(),
			"breakpoint", broken.Breakpoint())
		if prev != nil {
			prev(broken)
		}
	})
}

func (w *World) Bodies() []*body.Body                      { return w.bodies }
func (w *World) Joints() []dynamo.Joint                    { return w.joints }
func (w *World) Controllers() []dynamo.Controller          { return w.controllers }
func (w *World) Arbiters() *arbiter.Registry               { return w.arbiters }
func (w *World) ArbiterPool() *pool.Pool[*arbiter.Arbiter] { return w.arbiterPool }
func (w *World) Iterations() int                           { return w.iterations }
func (w *World) SetIterations(n int)                       { w.iterations = n }
func (w *World) Time() float64                             { return w.time }
func (w *World) StepCount() int                            { return w.stepCount }
func (w *World) Broken() int                               { return w.broken }

// RecordedBodies lists every body ever added, in the order frames record
// them. Pruned bodies stay in the list.
func (w *World) RecordedBodies() []*body.Body { return w.recordedBodies }

// RecordedConstraints lists every constraint ever added, in the order
// Frame.Errors records them.
func (w *World) RecordedConstraints() []dynamo.Constraint { return w.recordedConstraints }

// Body finds a body by name.
func (w *World) Body(name string) (*body.Body, bool) {
	for _, b := range w.bodies {
		if b.Name == name {
			return b, true
		}
	}
	return nil, false
}

// Step advances the world by dt:
//
//  1. collision refresh, then arbiters touching disposed bodies are released
//  2. every constraint validates; disposed constraints and bodies are dropped
//  3. controllers accumulate forces, velocities are integrated
//  4. joints pre-step, then Iterations Gauss-Seidel passes over the joints
//  5. positions are integrated and arbiters without contacts are released
//
// Degenerate joints do not stop the step; their errors are returned.
func (w *World) Step(dt float64) []error {
	if dt <= 0 || math.IsNaN(dt) {
		return []error{fmt.Errorf("%w: dt must be positive, got %f", dynamo.ErrInvalidConfig, dt)}
	}

	var errs []error

	if w.collider != nil {
		w.collider.Collide(w.bodies, w.arbiters, w.arbiterPool.Acquire)
	}
	w.arbiters.RemoveAndReleaseDisposedBody(w.arbiterPool)

	for _, c := range w.controllers {
		c.Validate()
	}
	for _, j := range w.joints {
		j.Validate()
	}
	w.prune()

	for _, c := range w.controllers {
		c.Update(dt)
	}
	for _, b := range w.bodies {
		w.integrator.IntegrateVelocity(b, dt)
	}

	inverseDt := 1 / dt
	for _, j := range w.joints {
		if err := j.PreStep(inverseDt); err != nil {
			var ce *dynamo.ConstraintError
			if errors.As(err, &ce) {
				ce.Step = w.stepCount
			}
			w.logger.Warn("constraint disabled", "step", w.stepCount, "err", err)
			errs = append(errs, err)
		}
	}
	for i := 0; i < w.iterations; i++ {
		for _, j := range w.joints {
			j.Update()
		}
	}

	for _, b := range w.bodies {
		w.integrator.IntegratePosition(b, dt)
	}
	w.arbiters.RemoveAndReleaseZeroContact(w.arbiterPool)

	w.stepCount++
	w.time += dt
	return errs
}

// prune drops disposed constraints and bodies, keeping insertion order.
func (w *World) prune() {
	joints := w.joints[:0]
	for _, j := range w.joints {
		if !j.IsDisposed() {
			joints = append(joints, j)
		}
	}
	clear(w.joints[len(joints):])
	w.joints = joints

	controllers := w.controllers[:0]
	for _, c := range w.controllers {
		if !c.IsDisposed() {
			controllers = append(controllers, c)
		}
	}
	clear(w.controllers[len(controllers):])
	w.controllers = controllers

	bodies := w.bodies[:0]
	for _, b := range w.bodies {
		if !b.IsDisposed() {
			bodies = append(bodies, b)
		}
	}
	clear(w.bodies[len(bodies):])
	w.bodies = bodies
}

// Run steps the world for cfg.Duration and records a frame per step.
func (w *World) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.Iterations > 0 {
		w.iterations = cfg.Iterations
	}

	steps := int(math.Round(cfg.Duration / cfg.Dt))
	result := &Result{
		Frames:  make([]Frame, 0, steps+1),
		Metrics: make(map[string]float64),
		Errors:  make([]error, 0),
	}

	for _, m := range w.metrics {
		m.Reset()
	}

	result.Frames = append(result.Frames, w.Snapshot())
	w.logger.Debug("run started", "steps", steps, "dt", cfg.Dt, "iterations", w.iterations)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			result.BodyNames = w.bodyNames()
			return result, ctx.Err()
		default:
		}

		for _, m := range w.metrics {
			m.Observe(w, w.time)
		}
		for _, obs := range w.observers {
			obs.OnStep(w, w.time)
		}

		result.Errors = append(result.Errors, w.Step(cfg.Dt)...)
		result.StepsTaken++

		if cfg.ValidateState && !w.bodiesValid() {
			result.Errors = append(result.Errors, SimError{Time: w.time, Step: i, Message: "invalid state (NaN/Inf)"})
			break
		}
		result.Frames = append(result.Frames, w.Snapshot())
	}

	for _, m := range w.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	result.BodyNames = w.bodyNames()
	result.Broken = w.broken
	result.ArbiterCount = w.arbiters.Len()

	w.logger.Debug("run finished", "steps", result.StepsTaken, "broken", result.Broken, "errors", len(result.Errors))
	return result, nil
}

// Snapshot captures the state of every recorded body and the error of every
// recorded constraint. Disposed entries keep their slot.
func (w *World) Snapshot() Frame {
	f := Frame{
		Time:   w.time,
		Bodies: make([]BodyState, len(w.recordedBodies)),
		Errors: make([]float64, len(w.recordedConstraints)),
	}
	for i, b := range w.recordedBodies {
		if b.IsDisposed() {
			f.Bodies[i] = BodyState{Removed: true}
			continue
		}
		f.Bodies[i] = BodyState{
			Position:        b.Position,
			Rotation:        b.Rotation,
			LinearVelocity:  b.LinearVelocity,
			AngularVelocity: b.AngularVelocity,
		}
	}
	for i, c := range w.recordedConstraints {
		if c.IsDisposed() {
			f.Errors[i] = math.NaN()
			continue
		}
		f.Errors[i] = c.Error()
	}
	return f
}

func (w *World) bodyNames() []string {
	names := make([]string, len(w.recordedBodies))
	for i, b := range w.recordedBodies {
		names[i] = b.Name
	}
	return names
}

func (w *World) bodiesValid() bool {
	for _, b := range w.bodies {
		state := BodyState{
			Position:        b.Position,
			Rotation:        b.Rotation,
			LinearVelocity:  b.LinearVelocity,
			AngularVelocity: b.AngularVelocity,
		}
		if !state.IsValid() {
			return false
		}
	}
	return true
}

func validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", dynamo.ErrInvalidConfig, cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %f", dynamo.ErrInvalidConfig, cfg.Duration)
	}
	if cfg.Iterations < 0 {
		return fmt.Errorf("%w: iterations must not be negative, got %d", dynamo.ErrInvalidConfig, cfg.Iterations)
	}
	return nil
}
