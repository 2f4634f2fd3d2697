package experiment

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/dynsolve/internal/body"
	"github.com/san-kum/dynsolve/internal/config"
	"github.com/san-kum/dynsolve/internal/dynamo"
	"github.com/san-kum/dynsolve/internal/integrators"
	"github.com/san-kum/dynsolve/internal/joints"
	"github.com/san-kum/dynsolve/internal/sim"
	"github.com/san-kum/dynsolve/internal/springs"
)

type Experiment struct {
	cfg    *config.Config
	world  *sim.World
	logger *log.Logger
}

// New prepares an experiment for cfg. A nil logger keeps the world silent.
func New(cfg *config.Config, logger *log.Logger) *Experiment {
	return &Experiment{cfg: cfg, logger: logger}
}

// Setup builds the world from the scene description and attaches metrics.
func (e *Experiment) Setup(metrics []sim.Metric) error {
	world, err := Build(e.cfg, e.logger)
	if err != nil {
		return err
	}
	for _, m := range metrics {
		world.AddMetric(m)
	}
	e.world = world
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.world == nil {
		return nil, fmt.Errorf("experiment not setup")
	}

	simCfg := sim.Config{
		Dt:            e.cfg.Dt,
		Duration:      e.cfg.Duration,
		Iterations:    e.cfg.Iterations,
		ValidateState: true,
	}

	return e.world.Run(ctx, simCfg)
}

// World returns the underlying world for adding observers.
func (e *Experiment) World() *sim.World {
	return e.world
}

// Build creates bodies, joints and springs in declaration order. Constraints
// reference bodies by name.
func Build(cfg *config.Config, logger *log.Logger) (*sim.World, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []sim.Option{
		sim.WithIntegrator(integrators.NewEuler(vec(cfg.Gravity))),
		sim.WithIterations(cfg.Iterations),
	}
	if logger != nil {
		opts = append(opts, sim.WithLogger(logger))
	}
	w := sim.New(opts...)

	byName := make(map[string]*body.Body, len(cfg.Bodies))
	for _, bc := range cfg.Bodies {
		b := newBody(bc)
		byName[bc.Name] = b
		w.AddBody(b)
	}

	for i, jc := range cfg.Joints {
		b, ok := byName[jc.Body]
		if !ok {
			return nil, fmt.Errorf("joint %d: %w: %q", i, dynamo.ErrUnknownBody, jc.Body)
		}
		j, err := joints.NewFixedRevoluteJoint(b, vec(jc.Anchor), jointOptions(jc)...)
		if err != nil {
			return nil, fmt.Errorf("joint %d: %w", i, err)
		}
		w.AddJoint(j)
	}

	for i, sc := range cfg.Springs {
		b, ok := byName[sc.Body]
		if !ok {
			return nil, fmt.Errorf("spring %d: %w: %q", i, dynamo.ErrUnknownBody, sc.Body)
		}
		s, err := springs.NewFixedLinearSpring(b, vec(sc.BodyAttach), vec(sc.WorldAttach),
			sc.Stiffness, sc.Damping, springOptions(sc)...)
		if err != nil {
			return nil, fmt.Errorf("spring %d: %w", i, err)
		}
		w.AddController(s)
	}

	return w, nil
}

func newBody(bc config.BodyConfig) *body.Body {
	var b *body.Body
	if bc.Static {
		b = body.NewStatic()
	} else {
		b = body.New(bc.Mass, bc.Moment)
	}
	b.Name = bc.Name
	b.Position = vec(bc.Position)
	b.Rotation = bc.Rotation
	b.LinearDrag = bc.LinearDrag
	b.AngularDrag = bc.AngularDrag
	if !bc.Static {
		b.LinearVelocity = vec(bc.Velocity)
		b.AngularVelocity = bc.AngularVelocity
	}
	return b
}

func jointOptions(jc config.JointConfig) []joints.Option {
	opts := []joints.Option{joints.WithSoftness(jc.Softness)}
	if jc.BiasFactor > 0 {
		opts = append(opts, joints.WithBiasFactor(jc.BiasFactor))
	}
	if jc.MaxImpulse > 0 {
		opts = append(opts, joints.WithMaxImpulse(jc.MaxImpulse))
	}
	if jc.Breakpoint > 0 {
		opts = append(opts, joints.WithBreakpoint(jc.Breakpoint))
	}
	return opts
}

func springOptions(sc config.SpringConfig) []springs.Option {
	var opts []springs.Option
	if sc.RestLength != nil {
		opts = append(opts, springs.WithRestLength(*sc.RestLength))
	}
	if sc.Breakpoint > 0 {
		opts = append(opts, springs.WithBreakpoint(sc.Breakpoint))
	}
	return opts
}

func vec(v [2]float64) mgl64.Vec2 { return mgl64.Vec2{v[0], v[1]} }
