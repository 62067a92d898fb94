package main

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/matterforge-labs/matterforge-go/internal/forcefield"
	"github.com/matterforge-labs/matterforge-go/internal/matter"
)

func testOrchestrator(t *testing.T, parallel bool, workers int) *MDOrchestrator {
	t.Helper()
	return &MDOrchestrator{
		logger:       discardLogger(),
		factory:      forcefield.NewCalculator,
		Parallel:     parallel,
		Workers:      workers,
		MinAtoms:     200,
		Replication:  2,
		TemperatureK: 1000,
		Steps:        100,
		TimestepFs:   1.0,
		SaveInterval: 50,
		Seed:         1,
		Simulate:     defaultSimulate,
	}
}

func mdEntry(t *testing.T, counts map[string]int, supercell int) RelaxedEntry {
	t.Helper()
	comp := matter.NewComposition(counts)
	elems := comp.Elements()
	s, err := matter.Bulk(elems[0], true).Replicate(supercell)
	if err != nil {
		t.Fatalf("Replicate: %v", err)
	}
	// Paint the remaining elements over the first sites so the structure's
	// composition matches.
	idx := 0
	for _, elem := range elems[1:] {
		for i := 0; i < comp.Count(elem)*s.NumAtoms()/comp.TotalAtoms(); i++ {
			s.Symbols[idx] = elem
			idx++
		}
	}
	return RelaxedEntry{
		Formula:     comp.Reduce().String(),
		Composition: comp,
		AtomCount:   s.NumAtoms(),
		Structure:   s,
	}
}

func TestPrepareTasks_SkipsPureAndReplicatesSmall(t *testing.T) {
	orch := testOrchestrator(t, false, 1)
	entries := []RelaxedEntry{
		mdEntry(t, map[string]int{"Cu": 1}, 4),           // pure, skipped
		mdEntry(t, map[string]int{"Cu": 1, "Ni": 1}, 3),  // 108 atoms, replicated
		mdEntry(t, map[string]int{"Cu": 3, "Ni": 1}, 4),  // 256 atoms, kept as is
	}

	tasks, err := orch.PrepareTasks(entries)
	if err != nil {
		t.Fatalf("PrepareTasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("len(tasks)=%d, want 2", len(tasks))
	}
	if got := tasks[0].Structure.NumAtoms(); got != 108*8 {
		t.Fatalf("small structure atoms=%d, want %d after 2x replication", got, 108*8)
	}
	if got := tasks[1].Structure.NumAtoms(); got != 256 {
		t.Fatalf("large structure atoms=%d, want 256 untouched", got)
	}
}

// fakeSimulate records which formulas ran and fails on request.
type fakeSimulate struct {
	mu     sync.Mutex
	ran    []string
	failOn string
}

func (f *fakeSimulate) fn(_ context.Context, _ forcefield.Calculator, s *matter.Structure, cfg forcefield.MDConfig) (*forcefield.Trajectory, error) {
	f.mu.Lock()
	formula := s.ReducedFormula()
	f.ran = append(f.ran, formula)
	f.mu.Unlock()

	if formula == f.failOn {
		return nil, errors.New("integrator diverged")
	}
	return &forcefield.Trajectory{
		Formula:  formula,
		NumAtoms: s.NumAtoms(),
		Frames: []forcefield.Frame{
			{Step: 0, Temperature: cfg.TemperatureK, Volume: s.Volume()},
			{Step: cfg.Steps, Temperature: cfg.TemperatureK, Volume: s.Volume()},
		},
	}, nil
}

func mdTasks(t *testing.T) []MDTask {
	t.Helper()
	entries := []RelaxedEntry{
		mdEntry(t, map[string]int{"Cu": 1, "Ni": 1}, 4),
		mdEntry(t, map[string]int{"Cu": 3, "Ni": 1}, 4),
		mdEntry(t, map[string]int{"Cu": 1, "Ni": 3}, 4),
	}
	orch := testOrchestrator(t, false, 1)
	tasks, err := orch.PrepareTasks(entries)
	if err != nil {
		t.Fatalf("PrepareTasks: %v", err)
	}
	return tasks
}

func TestMDOrchestrator_ParallelMatchesSequential(t *testing.T) {
	seqFake := &fakeSimulate{}
	seq := testOrchestrator(t, false, 1)
	seq.Simulate = seqFake.fn
	seqResults, err := seq.Run(context.Background(), mdTasks(t))
	if err != nil {
		t.Fatalf("sequential Run: %v", err)
	}

	parFake := &fakeSimulate{}
	par := testOrchestrator(t, true, 3)
	par.Simulate = parFake.fn
	parResults, err := par.Run(context.Background(), mdTasks(t))
	if err != nil {
		t.Fatalf("parallel Run: %v", err)
	}

	if len(seqResults) != len(parResults) {
		t.Fatalf("len mismatch: %d vs %d", len(seqResults), len(parResults))
	}
	for i := range seqResults {
		if seqResults[i].Formula != parResults[i].Formula {
			t.Fatalf("result %d: %q vs %q, order must be preserved", i, seqResults[i].Formula, parResults[i].Formula)
		}
	}
}

func TestMDOrchestrator_SiblingFailureIsIsolated(t *testing.T) {
	fake := &fakeSimulate{failOn: "Cu3Ni"}
	orch := testOrchestrator(t, true, 2)
	orch.Simulate = fake.fn

	results, err := orch.Run(context.Background(), mdTasks(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("len(results)=%d, want 3", len(results))
	}

	failures := 0
	for _, res := range results {
		if res.Err != nil {
			failures++
			if res.Formula != "Cu3Ni" {
				t.Fatalf("unexpected failure for %q", res.Formula)
			}
			continue
		}
		if res.Trajectory == nil {
			t.Fatalf("%s: missing trajectory", res.Formula)
		}
	}
	if failures != 1 {
		t.Fatalf("failures=%d, want 1", failures)
	}
}

func TestMDOrchestrator_NoTasks(t *testing.T) {
	orch := testOrchestrator(t, true, 2)
	results, err := orch.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if results != nil {
		t.Fatalf("results=%v, want nil", results)
	}
}
