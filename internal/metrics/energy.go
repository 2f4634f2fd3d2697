package metrics

import (
	"math"

	"github.com/san-kum/dynsolve/internal/sim"
)

// Energy averages the total kinetic energy of the world over the run.
type Energy struct {
	name        string
	samples     int
	totalEnergy float64
}

func NewEnergy() *Energy {
	return &Energy{name: "kinetic_energy"}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(w *sim.World, t float64) {
	e.totalEnergy += totalKinetic(w)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// EnergyDrift tracks the largest kinetic energy change relative to the first
// nonzero sample. Constraint solving should not inject energy into a
// gravity-free scene.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	maxDrift      float64
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(w *sim.World, t float64) {
	energy := totalKinetic(w)
	if e.initialEnergy == 0 {
		e.initialEnergy = energy
		return
	}
	drift := math.Abs(energy-e.initialEnergy) / e.initialEnergy
	e.maxDrift = math.Max(e.maxDrift, drift)
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
}

func totalKinetic(w *sim.World) float64 {
	var sum float64
	for _, b := range w.Bodies() {
		sum += b.KineticEnergy()
	}
	return sum
}
