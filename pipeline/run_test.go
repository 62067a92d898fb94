package main

import (
	"context"
	"testing"

	"github.com/matterforge-labs/matterforge-go/internal/forcefield"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		Mode:               ModeFresh,
		Source:             SourceManual,
		Arity:              ArityBinary,
		CompositionMode:    CompositionGenerated,
		Elements:           []string{"Cu", "Ni"},
		MixingRatioStep:    0.25,
		SupercellSize:      2,
		StabilityThreshold: 10,
		BatchRelaxation:    true,
		RelaxBatchSize:     4,
		MDWorkers:          1,
		MDTemperatureK:     1000,
		MDSteps:            100,
		MDTimestepFs:       1.0,
		MDSaveInterval:     50,
		MinAtomsForMD:      1,
		MDReplication:      2,
		Preset:             PresetStrict,
		OutputDir:          t.TempDir(),
		Seed:               1,
	}
}

func newTestPipeline(t *testing.T, cfg Config, relaxer StructureRelaxer, simulate SimulateFunc) *Pipeline {
	t.Helper()
	state, err := NewStateManager(discardLogger(), cfg)
	if err != nil {
		t.Fatalf("NewStateManager: %v", err)
	}

	orch := NewMDOrchestrator(discardLogger(), forcefield.NewCalculator, cfg)
	if simulate != nil {
		orch.Simulate = simulate
	}

	return &Pipeline{
		logger:     discardLogger(),
		cfg:        cfg,
		Enumerator: NewEnumerator(discardLogger(), cfg),
		Scheduler:  NewRelaxationScheduler(discardLogger(), relaxer, cfg.BatchRelaxation, cfg.RelaxBatchSize),
		MDOrch:     orch,
		Analyzer:   NewTrajectoryAnalyzer(cfg.ThermalLimits(), cfg.EquilibrationFraction),
		State:      state,
	}
}

func TestPipeline_BinaryEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	fake := &fakeSimulate{}
	pipe := newTestPipeline(t, cfg, &fakeRelaxer{perAtom: -3.5}, fake.fn)

	summary, err := pipe.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.SystemsProcessed != 1 {
		t.Fatalf("SystemsProcessed=%d, want 1", summary.SystemsProcessed)
	}
	// Pure Cu, pure Ni, and the 0.25/0.5/0.75 mixes.
	if summary.Records != 5 {
		t.Fatalf("Records=%d, want 5", summary.Records)
	}
	if summary.StableCandidates != 5 {
		t.Fatalf("StableCandidates=%d, want 5 (flat energy landscape)", summary.StableCandidates)
	}
	// Only the three alloys get simulated.
	if summary.MDSimulations != 3 {
		t.Fatalf("MDSimulations=%d, want 3", summary.MDSimulations)
	}

	records := pipe.State.Records()
	if len(records) != 5 {
		t.Fatalf("len(records)=%d, want 5", len(records))
	}
	for _, rec := range records {
		if rec.System != "Cu-Ni" {
			t.Fatalf("System=%q, want Cu-Ni", rec.System)
		}
		pure := rec.Formula == "Cu" || rec.Formula == "Ni"
		if pure && rec.MDPerformed {
			t.Fatalf("%s: pure element must not be simulated", rec.Formula)
		}
		if !pure && !rec.MDPerformed {
			t.Fatalf("%s: stable alloy missing MD verdict", rec.Formula)
		}
		if !pure && (rec.ElementA != "Cu" || rec.ElementB != "Ni") {
			t.Fatalf("%s: element columns=%q/%q, want Cu/Ni", rec.Formula, rec.ElementA, rec.ElementB)
		}
	}
}

func TestPipeline_PureRelaxFailureAbandonsSystem(t *testing.T) {
	cfg := testConfig(t)
	fake := &fakeSimulate{}
	pipe := newTestPipeline(t, cfg, &fakeRelaxer{perAtom: -3.5, failOn: "Ni"}, fake.fn)

	summary, err := pipe.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.SystemsFailed != 1 {
		t.Fatalf("SystemsFailed=%d, want 1", summary.SystemsFailed)
	}
	if summary.MDSimulations != 0 {
		t.Fatalf("MDSimulations=%d, want 0 for an abandoned system", summary.MDSimulations)
	}

	records := pipe.State.Records()
	if len(records) != 1 {
		t.Fatalf("len(records)=%d, want a single error record", len(records))
	}
	if records[0].Error == "" || records[0].System != "Cu-Ni" {
		t.Fatalf("record=%+v, want an error record for Cu-Ni", records[0])
	}
	if len(fake.ran) != 0 {
		t.Fatalf("MD ran %v, want nothing", fake.ran)
	}
}

func TestPipeline_ResumeSkipsCompletedSystems(t *testing.T) {
	cfg := testConfig(t)

	first := newTestPipeline(t, cfg, &fakeRelaxer{perAtom: -3.5}, (&fakeSimulate{}).fn)
	if _, err := first.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	cfg.Mode = ModeResume
	relaxer := &fakeRelaxer{perAtom: -3.5}
	resumed := newTestPipeline(t, cfg, relaxer, (&fakeSimulate{}).fn)

	summary, err := resumed.Run(context.Background())
	if err != nil {
		t.Fatalf("resumed Run: %v", err)
	}
	if summary.SystemsSkipped != 1 {
		t.Fatalf("SystemsSkipped=%d, want 1", summary.SystemsSkipped)
	}
	if summary.SystemsProcessed != 0 {
		t.Fatalf("SystemsProcessed=%d, want 0", summary.SystemsProcessed)
	}
	if relaxer.calls != 0 {
		t.Fatalf("relaxer ran %d times on a completed system, want 0", relaxer.calls)
	}
	if len(resumed.State.Records()) != 5 {
		t.Fatalf("len(records)=%d, want the original 5 untouched", len(resumed.State.Records()))
	}
}

func TestPipeline_TernaryEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	cfg.Arity = ArityTernary
	cfg.Elements = []string{"Cr", "Fe", "Ni"}
	cfg.TernarySupercellSize = 2
	cfg.TernaryTotals = []int{3, 4}
	cfg.TernaryStabilityThreshold = 10

	fake := &fakeSimulate{}
	pipe := newTestPipeline(t, cfg, &fakeRelaxer{perAtom: -4.0}, fake.fn)

	summary, err := pipe.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.SystemsProcessed != 1 {
		t.Fatalf("SystemsProcessed=%d, want 1", summary.SystemsProcessed)
	}
	// Three pure endpoints plus four ratio tuples; 1:1:2 and its permutations
	// produce distinct formulas from a 32-atom cell.
	if summary.Records != 7 {
		t.Fatalf("Records=%d, want 7", summary.Records)
	}
	if summary.MDSimulations != 4 {
		t.Fatalf("MDSimulations=%d, want 4", summary.MDSimulations)
	}
}
