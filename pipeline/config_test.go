package main

import (
	"math"
	"testing"
)

func TestConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if cfg.Mode != ModeFresh {
		t.Fatalf("Mode=%q, want fresh", cfg.Mode)
	}
	if cfg.Arity != ArityBinary {
		t.Fatalf("Arity=%q, want binary", cfg.Arity)
	}
	if len(cfg.Elements) != 2 || cfg.Elements[0] != "Cu" || cfg.Elements[1] != "Ni" {
		t.Fatalf("Elements=%v, want [Cu Ni]", cfg.Elements)
	}
	if cfg.SupercellSize != 4 || cfg.TernarySupercellSize != 3 {
		t.Fatalf("supercells=%d/%d, want 4/3", cfg.SupercellSize, cfg.TernarySupercellSize)
	}
	if cfg.StabilityThreshold != 0.05 || cfg.TernaryStabilityThreshold != 0.10 {
		t.Fatalf("thresholds=%v/%v, want 0.05/0.10", cfg.StabilityThreshold, cfg.TernaryStabilityThreshold)
	}
	if cfg.MDTemperatureK != 1000 || cfg.MDSteps != 5000 || cfg.MDSaveInterval != 50 {
		t.Fatalf("MD defaults wrong: %v/%d/%d", cfg.MDTemperatureK, cfg.MDSteps, cfg.MDSaveInterval)
	}
}

func TestConfigFromEnv_InvalidMode(t *testing.T) {
	t.Setenv("PIPELINE_MODE", "bogus")
	if _, err := ConfigFromEnv(); err == nil {
		t.Fatal("expected error for invalid mode")
	}
}

func TestConfigValidate_TernaryNeedsThreeElements(t *testing.T) {
	t.Setenv("PIPELINE_ARITY", "ternary")
	if _, err := ConfigFromEnv(); err == nil {
		t.Fatal("expected error: ternary run with two elements")
	}

	t.Setenv("PIPELINE_ELEMENTS", "Cr,Fe,Ni")
	cfg, err := ConfigFromEnv()
	if err != nil {
		t.Fatalf("ConfigFromEnv: %v", err)
	}
	if cfg.SystemThreshold() != 0.10 {
		t.Fatalf("SystemThreshold=%v, want ternary 0.10", cfg.SystemThreshold())
	}
}

func TestMixingRatios_ExcludesEndpoints(t *testing.T) {
	cfg := Config{MixingRatioStep: 0.1}
	ratios := cfg.MixingRatios()
	if len(ratios) != 9 {
		t.Fatalf("len(ratios)=%d, want 9", len(ratios))
	}
	if ratios[0] != 0.1 || ratios[8] != 0.9 {
		t.Fatalf("ratios=[%v..%v], want [0.1..0.9]", ratios[0], ratios[8])
	}
	for _, r := range ratios {
		if r <= 0 || r >= 1 {
			t.Fatalf("ratio %v outside (0, 1)", r)
		}
	}
}

func TestThermalPresets(t *testing.T) {
	strict := Config{Preset: PresetStrict}.ThermalLimits()
	if strict.TempFluctPct != 5.0 || strict.VolChangePct != 10.0 {
		t.Fatalf("strict limits=%+v, want 5/10", strict)
	}
	relaxed := Config{Preset: PresetRelaxed}.ThermalLimits()
	if relaxed.TempFluctPct != 10.0 || relaxed.VolChangePct != 15.0 {
		t.Fatalf("relaxed limits=%+v, want 10/15", relaxed)
	}
}

func TestRoundRatio(t *testing.T) {
	if r := roundRatio(3 * 0.1); math.Abs(r-0.3) > 1e-12 {
		t.Fatalf("roundRatio(0.30000000000000004)=%v, want 0.3", r)
	}
}
