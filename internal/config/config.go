package config

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/dynsolve/internal/dynamo"
)

const (
	DefaultDt         = 1.0 / 60.0
	DefaultDuration   = 5.0
	DefaultIterations = 10
	DefaultGravityY   = -9.81
	DefaultBiasFactor = 0.8
	DefaultLogLevel   = "info"
)

// Config describes a scene and the solver settings used to run it.
type Config struct {
	Scene      string         `yaml:"scene"`
	Dt         float64        `yaml:"dt"`
	Duration   float64        `yaml:"duration"`
	Iterations int            `yaml:"iterations"`
	Gravity    [2]float64     `yaml:"gravity,flow"`
	LogLevel   string         `yaml:"log_level"`
	Bodies     []BodyConfig   `yaml:"bodies"`
	Joints     []JointConfig  `yaml:"joints,omitempty"`
	Springs    []SpringConfig `yaml:"springs,omitempty"`
}

type BodyConfig struct {
	Name            string     `yaml:"name"`
	Mass            float64    `yaml:"mass"`
	Moment          float64    `yaml:"moment"`
	Static          bool       `yaml:"static,omitempty"`
	Position        [2]float64 `yaml:"position,flow"`
	Rotation        float64    `yaml:"rotation,omitempty"`
	Velocity        [2]float64 `yaml:"velocity,flow,omitempty"`
	AngularVelocity float64    `yaml:"angular_velocity,omitempty"`
	LinearDrag      float64    `yaml:"linear_drag,omitempty"`
	AngularDrag     float64    `yaml:"angular_drag,omitempty"`
}

// JointConfig is a fixed revolute joint. Zero MaxImpulse and Breakpoint
// mean unlimited.
type JointConfig struct {
	Body       string     `yaml:"body"`
	Anchor     [2]float64 `yaml:"anchor,flow"`
	BiasFactor float64    `yaml:"bias_factor"`
	Softness   float64    `yaml:"softness,omitempty"`
	MaxImpulse float64    `yaml:"max_impulse,omitempty"`
	Breakpoint float64    `yaml:"breakpoint,omitempty"`
}

// SpringConfig is a fixed linear spring. A nil RestLength uses the initial
// attach distance; zero Breakpoint means unlimited.
type SpringConfig struct {
	Body        string     `yaml:"body"`
	BodyAttach  [2]float64 `yaml:"body_attach,flow"`
	WorldAttach [2]float64 `yaml:"world_attach,flow"`
	Stiffness   float64    `yaml:"stiffness"`
	Damping     float64    `yaml:"damping"`
	RestLength  *float64   `yaml:"rest_length,omitempty"`
	Breakpoint  float64    `yaml:"breakpoint,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Scene:      "pendulum",
		Dt:         DefaultDt,
		Duration:   DefaultDuration,
		Iterations: DefaultIterations,
		Gravity:    [2]float64{0, DefaultGravityY},
		LogLevel:   DefaultLogLevel,
		Bodies: []BodyConfig{
			{Name: "bob", Mass: 1, Moment: 0.1, Position: [2]float64{1, 0}},
		},
		Joints: []JointConfig{
			{Body: "bob", Anchor: [2]float64{0, 0}, BiasFactor: DefaultBiasFactor},
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	cfg.Bodies, cfg.Joints, cfg.Springs = nil, nil, nil
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the solver settings and that every constraint names a
// declared body.
func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", dynamo.ErrInvalidConfig, c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %f", dynamo.ErrInvalidConfig, c.Duration)
	}
	if c.Iterations <= 0 {
		return fmt.Errorf("%w: iterations must be positive, got %d", dynamo.ErrInvalidConfig, c.Iterations)
	}

	names := make(map[string]bool, len(c.Bodies))
	for _, b := range c.Bodies {
		if b.Name == "" {
			return fmt.Errorf("%w: body without a name", dynamo.ErrInvalidConfig)
		}
		if names[b.Name] {
			return fmt.Errorf("%w: duplicate body %q", dynamo.ErrInvalidConfig, b.Name)
		}
		names[b.Name] = true
	}
	for _, j := range c.Joints {
		if !names[j.Body] {
			return fmt.Errorf("joint: %w: %q", dynamo.ErrUnknownBody, j.Body)
		}
	}
	for _, s := range c.Springs {
		if !names[s.Body] {
			return fmt.Errorf("spring: %w: %q", dynamo.ErrUnknownBody, s.Body)
		}
	}
	return nil
}

// Clone returns a deep copy so presets can be tweaked without mutating the
// shared table.
func (c *Config) Clone() *Config {
	out := *c
	out.Bodies = slices.Clone(c.Bodies)
	out.Joints = slices.Clone(c.Joints)
	out.Springs = slices.Clone(c.Springs)
	for i, s := range out.Springs {
		if s.RestLength != nil {
			r := *s.RestLength
			out.Springs[i].RestLength = &r
		}
	}
	return &out
}
