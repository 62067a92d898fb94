package main

import (
	"math"
	"testing"

	"github.com/matterforge-labs/matterforge-go/internal/matter"
)

func ledgerEntry(t *testing.T, counts map[string]int, perAtom float64) RelaxedEntry {
	t.Helper()
	comp := matter.NewComposition(counts)
	return RelaxedEntry{
		Formula:     comp.Reduce().String(),
		Composition: comp,
		AtomCount:   comp.TotalAtoms(),
		TotalEnergy: perAtom * float64(comp.TotalAtoms()),
	}
}

func TestStabilityLedger_ClassifiesAgainstHull(t *testing.T) {
	ledger := NewStabilityLedger(0.05)
	ledger.Register(ledgerEntry(t, map[string]int{"Cu": 4}, -3.0))
	ledger.Register(ledgerEntry(t, map[string]int{"Ni": 4}, -5.0))
	ledger.Register(ledgerEntry(t, map[string]int{"Cu": 2, "Ni": 2}, -3.96))
	ledger.Register(ledgerEntry(t, map[string]int{"Cu": 3, "Ni": 1}, -3.3))

	verdicts, err := ledger.Evaluate()
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(verdicts) != 4 {
		t.Fatalf("len(verdicts)=%d, want 4", len(verdicts))
	}

	byFormula := make(map[string]StabilityVerdict)
	for _, v := range verdicts {
		byFormula[v.Formula] = v
	}

	// Endpoints are always on their own hull.
	for _, formula := range []string{"Cu", "Ni"} {
		v := byFormula[formula]
		if v.EnergyAboveHull > 1e-9 || !v.Stable {
			t.Fatalf("%s: e_hull=%v stable=%v, want on hull", formula, v.EnergyAboveHull, v.Stable)
		}
	}

	// CuNi sits 0.04 eV above the Cu-Ni tie line (-4.0 at x=0.5).
	cuNi := byFormula["CuNi"]
	if math.Abs(cuNi.EnergyAboveHull-0.04) > 1e-9 {
		t.Fatalf("CuNi e_hull=%v, want 0.04", cuNi.EnergyAboveHull)
	}
	if !cuNi.Stable {
		t.Fatal("CuNi should pass the 0.05 threshold")
	}

	// Cu3Ni sits 0.2 eV above the tie line (-3.5 at x=0.25).
	cu3Ni := byFormula["Cu3Ni"]
	if math.Abs(cu3Ni.EnergyAboveHull-0.2) > 1e-9 {
		t.Fatalf("Cu3Ni e_hull=%v, want 0.2", cu3Ni.EnergyAboveHull)
	}
	if cu3Ni.Stable {
		t.Fatal("Cu3Ni should fail the 0.05 threshold")
	}
}

func TestStabilityLedger_SingleCompositionYieldsNoVerdicts(t *testing.T) {
	ledger := NewStabilityLedger(0.05)
	ledger.Register(ledgerEntry(t, map[string]int{"Cu": 4}, -3.0))

	verdicts, err := ledger.Evaluate()
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if len(verdicts) != 0 {
		t.Fatalf("len(verdicts)=%d, want 0 for a single composition", len(verdicts))
	}
}
