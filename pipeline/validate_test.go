package main

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestValidationScorer_ExactAndReducedMatch(t *testing.T) {
	scorer := NewValidationScorer(DefaultReferences())

	report, ok := scorer.Score(DetailedRecord{Formula: "CuNi", LatticeA: 3.5692, Density: 8.93})
	if !ok {
		t.Fatal("CuNi has a reference and must match")
	}
	if report.MatchedReference != "CuNi" {
		t.Fatalf("MatchedReference=%q, want CuNi", report.MatchedReference)
	}
	if report.Score != 100 {
		t.Fatalf("Score=%v, want 100 for a perfect match", report.Score)
	}

	// Cu128Ni128 reduces to CuNi.
	report, ok = scorer.Score(DetailedRecord{Formula: "Cu128Ni128", LatticeA: 3.5692, Density: 8.93})
	if !ok || report.MatchedReference != "CuNi" {
		t.Fatalf("reduced match failed: ok=%v ref=%q", ok, report.MatchedReference)
	}
}

func TestValidationScorer_SupercellFolding(t *testing.T) {
	scorer := NewValidationScorer(DefaultReferences())

	// A 2x supercell edge (7.22) is below the 2.5x trigger and compared raw.
	report, ok := scorer.Score(DetailedRecord{Formula: "Cu", LatticeA: 7.22, Density: 8.96})
	if !ok {
		t.Fatal("Cu has a reference")
	}
	if report.SimLatticeA != 7.22 {
		t.Fatalf("SimLatticeA=%v, want 7.22 untouched below the folding trigger", report.SimLatticeA)
	}

	// A 3x edge (10.83) exceeds 2.5x and folds back to ~3.61.
	report, ok = scorer.Score(DetailedRecord{Formula: "Cu", LatticeA: 10.8441, Density: 8.96})
	if !ok {
		t.Fatal("Cu has a reference")
	}
	if math.Abs(report.SimLatticeA-3.6147) > 1e-9 {
		t.Fatalf("SimLatticeA=%v, want 3.6147 after folding", report.SimLatticeA)
	}
	if report.Score < 99.9 {
		t.Fatalf("Score=%v, want ~100 after folding", report.Score)
	}
}

func TestValidationScorer_ScoreWeights(t *testing.T) {
	scorer := NewValidationScorer(map[string]ReferenceProps{
		"Cu": {LatticeA: 4.0, Density: 10.0},
	})

	// 5% lattice error, 0% density error: 100 - 0.6*5 = 97.
	report, ok := scorer.Score(DetailedRecord{Formula: "Cu", LatticeA: 4.2, Density: 10.0})
	if !ok {
		t.Fatal("expected a match")
	}
	if math.Abs(report.Score-97.0) > 1e-9 {
		t.Fatalf("Score=%v, want 97.0", report.Score)
	}

	// Errors large enough to go negative clamp at zero.
	report, _ = scorer.Score(DetailedRecord{Formula: "Cu", LatticeA: 40, Density: 100})
	if report.Score != 0 {
		t.Fatalf("Score=%v, want clamped to 0", report.Score)
	}
}

func TestValidationScorer_NoReference(t *testing.T) {
	scorer := NewValidationScorer(DefaultReferences())
	if _, ok := scorer.Score(DetailedRecord{Formula: "Tc3Re", LatticeA: 3.0, Density: 12.0}); ok {
		t.Fatal("Tc3Re has no reference and must not match")
	}
}

func TestLoadReferences_MergesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.yaml")
	raw := "Cu:\n  lattice_a: 3.62\n  density: 8.95\nW:\n  lattice_a: 3.1652\n  density: 19.25\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	refs, err := LoadReferences(path)
	if err != nil {
		t.Fatalf("LoadReferences: %v", err)
	}
	if refs["Cu"].LatticeA != 3.62 {
		t.Fatalf("Cu override=%v, want 3.62", refs["Cu"].LatticeA)
	}
	if refs["W"].Density != 19.25 {
		t.Fatalf("W addition=%v, want 19.25", refs["W"].Density)
	}
	if refs["Ni"].LatticeA != 3.5238 {
		t.Fatal("untouched defaults must survive the merge")
	}
}
