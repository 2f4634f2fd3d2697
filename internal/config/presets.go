package config

import (
	"sort"
)

func restLength(v float64) *float64 { return &v }

var Presets = map[string]map[string]*Config{
	"pendulum": {
		"small": {
			Scene: "pendulum", Dt: 1.0 / 60.0, Duration: 10.0, Iterations: 10, Gravity: [2]float64{0, -9.81},
			Bodies: []BodyConfig{{Name: "bob", Mass: 1, Moment: 0.1, Position: [2]float64{0.2, -1}}},
			Joints: []JointConfig{{Body: "bob", Anchor: [2]float64{0, -1}, BiasFactor: 0.8}},
		},
		"offset": {
			Scene: "pendulum", Dt: 1.0 / 60.0, Duration: 10.0, Iterations: 10, Gravity: [2]float64{0, -9.81},
			Bodies: []BodyConfig{{Name: "bob", Mass: 1, Moment: 0.1, Position: [2]float64{1, 0}}},
			Joints: []JointConfig{{Body: "bob", Anchor: [2]float64{0, 0}, BiasFactor: 0.8}},
		},
	},
	"hinge": {
		"rigid": {
			Scene: "hinge", Dt: 1.0 / 120.0, Duration: 5.0, Iterations: 20, Gravity: [2]float64{0, -9.81},
			Bodies: []BodyConfig{{Name: "door", Mass: 4, Moment: 1.5, Position: [2]float64{0.5, 0}}},
			Joints: []JointConfig{{Body: "door", Anchor: [2]float64{0, 0}, BiasFactor: 0.8}},
		},
		"soft": {
			Scene: "hinge", Dt: 1.0 / 60.0, Duration: 5.0, Iterations: 10, Gravity: [2]float64{0, -9.81},
			Bodies: []BodyConfig{{Name: "door", Mass: 4, Moment: 1.5, Position: [2]float64{0.5, 0}}},
			Joints: []JointConfig{{Body: "door", Anchor: [2]float64{0, 0}, BiasFactor: 0.2, Softness: 0.05}},
		},
	},
	"breakable": {
		"snap": {
			Scene: "breakable", Dt: 1.0 / 60.0, Duration: 3.0, Iterations: 10, Gravity: [2]float64{0, -9.81},
			Bodies: []BodyConfig{{Name: "crate", Mass: 2, Moment: 0.3, Position: [2]float64{0, -0.5}, Velocity: [2]float64{0, -40}}},
			Joints: []JointConfig{{Body: "crate", Anchor: [2]float64{0, 0}, BiasFactor: 0.8, MaxImpulse: 1, Breakpoint: 0.25}},
		},
		"tether": {
			Scene: "breakable", Dt: 1.0 / 60.0, Duration: 5.0, Iterations: 10, Gravity: [2]float64{0, -9.81},
			Bodies: []BodyConfig{{Name: "crate", Mass: 2, Moment: 0.3, Position: [2]float64{0, -1}}},
			Springs: []SpringConfig{{
				Body: "crate", WorldAttach: [2]float64{0, 0}, Stiffness: 30, Damping: 0.5,
				RestLength: restLength(1), Breakpoint: 1.5,
			}},
		},
	},
	"spring": {
		"bounce": {
			Scene: "spring", Dt: 1.0 / 60.0, Duration: 10.0, Iterations: 10,
			Bodies:  []BodyConfig{{Name: "mass", Mass: 1, Moment: 0.1, Position: [2]float64{2, 0}}},
			Springs: []SpringConfig{{Body: "mass", Stiffness: 20, Damping: 0, RestLength: restLength(1)}},
		},
		"damped": {
			Scene: "spring", Dt: 1.0 / 60.0, Duration: 10.0, Iterations: 10,
			Bodies:  []BodyConfig{{Name: "mass", Mass: 1, Moment: 0.1, Position: [2]float64{2, 0}}},
			Springs: []SpringConfig{{Body: "mass", Stiffness: 20, Damping: 2, RestLength: restLength(1)}},
		},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(scene, preset string) *Config {
	scenePresets, ok := Presets[scene]
	if !ok {
		return nil
	}
	cfg, ok := scenePresets[preset]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListScenes() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ListPresets(scene string) []string {
	scenePresets, ok := Presets[scene]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(scenePresets))
	for name := range scenePresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
