package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/dynsolve/internal/config"
	"github.com/san-kum/dynsolve/internal/dynamo"
	"github.com/san-kum/dynsolve/internal/metrics"
	"github.com/san-kum/dynsolve/internal/sim"
)

type Registry struct {
	metrics map[string]func() sim.Metric
}

func NewRegistry() *Registry {
	r := &Registry{
		metrics: make(map[string]func() sim.Metric),
	}

	r.metrics["kinetic_energy"] = func() sim.Metric { return metrics.NewEnergy() }
	r.metrics["energy_drift"] = func() sim.Metric { return metrics.NewEnergyDrift() }
	r.metrics["max_constraint_error"] = func() sim.Metric { return metrics.NewMaxConstraintError() }
	r.metrics["broken"] = func() sim.Metric { return metrics.NewBroken() }
	r.metrics["impulse_effort"] = func() sim.Metric { return metrics.NewImpulseEffort() }

	return r
}

func (r *Registry) GetMetric(name string) (sim.Metric, error) {
	fn, ok := r.metrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return fn(), nil
}

func (r *Registry) ListMetrics() []string {
	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics returns a fresh instance of every registered metric.
func (r *Registry) DefaultMetrics() []sim.Metric {
	out := make([]sim.Metric, 0, len(r.metrics))
	for _, name := range r.ListMetrics() {
		out = append(out, r.metrics[name]())
	}
	return out
}

// ResolvePreset looks up scene/preset and reports ErrUnknownPreset when
// either name is missing.
func ResolvePreset(scene, preset string) (*config.Config, error) {
	cfg := config.GetPreset(scene, preset)
	if cfg == nil {
		return nil, fmt.Errorf("%w: %s/%s", dynamo.ErrUnknownPreset, scene, preset)
	}
	return cfg, nil
}
