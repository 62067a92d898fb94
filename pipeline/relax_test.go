package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/matterforge-labs/matterforge-go/internal/matter"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRelaxer returns a fixed per-atom energy and fails for structures whose
// first symbol matches failOn.
type fakeRelaxer struct {
	perAtom float64
	failOn  string
	calls   int
}

func (f *fakeRelaxer) Relax(_ context.Context, s *matter.Structure) (*matter.Structure, float64, error) {
	f.calls++
	if f.failOn != "" && s.Symbols[0] == f.failOn {
		return nil, 0, errors.New("did not converge")
	}
	return s.Copy(), f.perAtom * float64(s.NumAtoms()), nil
}

func relaxJobs(t *testing.T, n int) []RelaxJob {
	t.Helper()
	jobs := make([]RelaxJob, 0, n)
	for i := 0; i < n; i++ {
		s, err := matter.Bulk("Cu", true).Replicate(1)
		if err != nil {
			t.Fatalf("Replicate: %v", err)
		}
		jobs = append(jobs, RelaxJob{Label: string(rune('a' + i)), Structure: s})
	}
	return jobs
}

func TestRelaxationScheduler_BatchedMatchesSequential(t *testing.T) {
	jobs := relaxJobs(t, 7)

	seq := NewRelaxationScheduler(discardLogger(), &fakeRelaxer{perAtom: -3.5}, false, 1)
	seqOut, err := seq.Run(context.Background(), jobs)
	if err != nil {
		t.Fatalf("sequential Run: %v", err)
	}

	bat := NewRelaxationScheduler(discardLogger(), &fakeRelaxer{perAtom: -3.5}, true, 3)
	batOut, err := bat.Run(context.Background(), jobs)
	if err != nil {
		t.Fatalf("batched Run: %v", err)
	}

	if len(seqOut) != len(batOut) {
		t.Fatalf("len mismatch: %d vs %d", len(seqOut), len(batOut))
	}
	for i := range seqOut {
		if seqOut[i].Label != batOut[i].Label || seqOut[i].Energy != batOut[i].Energy {
			t.Fatalf("outcome %d differs: %+v vs %+v", i, seqOut[i], batOut[i])
		}
	}
}

func TestRelaxationScheduler_FailureIsIsolated(t *testing.T) {
	copper, err := matter.Bulk("Cu", true).Replicate(1)
	if err != nil {
		t.Fatalf("Replicate: %v", err)
	}
	nickel, err := matter.Bulk("Ni", true).Replicate(1)
	if err != nil {
		t.Fatalf("Replicate: %v", err)
	}
	jobs := []RelaxJob{
		{Label: "Cu", Structure: copper},
		{Label: "Ni", Structure: nickel},
	}

	sched := NewRelaxationScheduler(discardLogger(), &fakeRelaxer{perAtom: -3.5, failOn: "Ni"}, true, 4)
	out, err := sched.Run(context.Background(), jobs)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len(out)=%d, want 2", len(out))
	}
	if out[0].Failed() {
		t.Fatal("Cu outcome marked failed")
	}
	if !out[1].Failed() {
		t.Fatal("Ni outcome not marked failed")
	}
	if out[1].Structure != nil {
		t.Fatal("failed outcome should carry no structure")
	}
}

func TestRelaxationScheduler_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sched := NewRelaxationScheduler(discardLogger(), &fakeRelaxer{perAtom: -1}, false, 1)
	if _, err := sched.Run(ctx, relaxJobs(t, 2)); err == nil {
		t.Fatal("expected context error")
	}
}
