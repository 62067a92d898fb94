package forcefield

import (
	"context"
	"math"
	"testing"

	"github.com/matterforge-labs/matterforge-go/internal/matter"
)

func testStructure(t *testing.T) *matter.Structure {
	t.Helper()
	s, err := matter.Bulk("Cu", true).Replicate(2)
	if err != nil {
		t.Fatalf("Replicate() err=%v", err)
	}
	return s
}

func TestEvaluate_FiniteAndNewtonThird(t *testing.T) {
	calc := NewPairPotential()
	s := testStructure(t)

	eval, err := calc.Evaluate(s)
	if err != nil {
		t.Fatalf("Evaluate() err=%v", err)
	}
	if math.IsNaN(eval.Energy) || math.IsInf(eval.Energy, 0) {
		t.Fatalf("energy=%v", eval.Energy)
	}
	if len(eval.Forces) != s.NumAtoms() {
		t.Fatalf("forces=%d, want %d", len(eval.Forces), s.NumAtoms())
	}

	var net matter.Vec3
	for _, f := range eval.Forces {
		for k := 0; k < 3; k++ {
			net[k] += f[k]
		}
	}
	for k := 0; k < 3; k++ {
		if math.Abs(net[k]) > 1e-8 {
			t.Fatalf("net force component %d = %v, want ~0", k, net[k])
		}
	}
}

func TestEvaluate_ForceMatchesNumericGradient(t *testing.T) {
	calc := NewPairPotential()
	s := testStructure(t)

	// Break the perfect-lattice symmetry so forces are non-zero.
	s.Positions[0][0] += 0.1

	eval, err := calc.Evaluate(s)
	if err != nil {
		t.Fatalf("Evaluate() err=%v", err)
	}

	const h = 1e-5
	plus := s.Copy()
	plus.Positions[0][0] += h
	minus := s.Copy()
	minus.Positions[0][0] -= h

	ePlus, err := calc.Evaluate(plus)
	if err != nil {
		t.Fatalf("Evaluate() err=%v", err)
	}
	eMinus, err := calc.Evaluate(minus)
	if err != nil {
		t.Fatalf("Evaluate() err=%v", err)
	}

	numeric := -(ePlus.Energy - eMinus.Energy) / (2 * h)
	if math.Abs(numeric-eval.Forces[0][0]) > 1e-3*math.Max(1, math.Abs(numeric)) {
		t.Fatalf("force=%v, numeric gradient=%v", eval.Forces[0][0], numeric)
	}
}

func TestRelax_LowersEnergy(t *testing.T) {
	calc := NewPairPotential()
	s := testStructure(t)
	s.Positions[0][0] += 0.2
	s.Positions[3][1] -= 0.15

	initial, err := calc.Evaluate(s)
	if err != nil {
		t.Fatalf("Evaluate() err=%v", err)
	}

	relaxer := NewRelaxer(calc)
	relaxed, energy, err := relaxer.Relax(context.Background(), s)
	if err != nil {
		t.Fatalf("Relax() err=%v", err)
	}
	if energy > initial.Energy {
		t.Fatalf("relaxed energy=%v > initial %v", energy, initial.Energy)
	}
	if relaxed.NumAtoms() != s.NumAtoms() {
		t.Fatalf("atom count changed: %d -> %d", s.NumAtoms(), relaxed.NumAtoms())
	}
	// Input must not be mutated.
	if s.Positions[0][0] != testStructure(t).Positions[0][0]+0.2 {
		t.Fatalf("input structure mutated")
	}
}

func TestSimulatorRun_RecordsFrames(t *testing.T) {
	calc := NewPairPotential()
	s := testStructure(t)

	sim := NewSimulator(calc)
	traj, err := sim.Run(context.Background(), s, MDConfig{
		TemperatureK: 300,
		Steps:        100,
		TimestepFs:   1.0,
		SaveInterval: 20,
		Seed:         7,
	})
	if err != nil {
		t.Fatalf("Run() err=%v", err)
	}

	// Initial frame plus one every 20 steps.
	if got := len(traj.Frames); got != 6 {
		t.Fatalf("frames=%d, want 6", got)
	}
	if traj.NumAtoms != s.NumAtoms() {
		t.Fatalf("NumAtoms=%d, want %d", traj.NumAtoms, s.NumAtoms())
	}
	if traj.Formula != "Cu" {
		t.Fatalf("formula=%q, want Cu", traj.Formula)
	}
	for _, frame := range traj.Frames {
		if frame.Volume <= 0 {
			t.Fatalf("step %d: volume=%v", frame.Step, frame.Volume)
		}
		if math.IsNaN(frame.Temperature) || frame.Temperature < 0 {
			t.Fatalf("step %d: temperature=%v", frame.Step, frame.Temperature)
		}
	}
}

func TestSimulatorRun_DeterministicForSeed(t *testing.T) {
	calc := NewPairPotential()
	cfg := MDConfig{TemperatureK: 300, Steps: 40, SaveInterval: 10, Seed: 42}

	sim := NewSimulator(calc)
	a, err := sim.Run(context.Background(), testStructure(t), cfg)
	if err != nil {
		t.Fatalf("Run() err=%v", err)
	}
	b, err := sim.Run(context.Background(), testStructure(t), cfg)
	if err != nil {
		t.Fatalf("Run() err=%v", err)
	}

	if len(a.Frames) != len(b.Frames) {
		t.Fatalf("frame counts differ: %d vs %d", len(a.Frames), len(b.Frames))
	}
	for i := range a.Frames {
		if a.Frames[i].PotentialEnergy != b.Frames[i].PotentialEnergy {
			t.Fatalf("frame %d energies differ", i)
		}
	}
}

func TestSimulatorRun_RejectsBadConfig(t *testing.T) {
	sim := NewSimulator(NewPairPotential())
	if _, err := sim.Run(context.Background(), testStructure(t), MDConfig{TemperatureK: 0, Steps: 10}); err == nil {
		t.Fatalf("zero temperature accepted")
	}
	if _, err := sim.Run(context.Background(), testStructure(t), MDConfig{TemperatureK: 300, Steps: 0}); err == nil {
		t.Fatalf("zero steps accepted")
	}
}
