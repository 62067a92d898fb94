package main

import (
	"context"
	"log/slog"
	"math"

	"github.com/matterforge-labs/matterforge-go/internal/matter"
)

// StructureRelaxer is the geometry optimization dependency of the scheduler.
// Production runs use the forcefield relaxer; tests substitute fakes.
type StructureRelaxer interface {
	Relax(ctx context.Context, s *matter.Structure) (*matter.Structure, float64, error)
}

type RelaxJob struct {
	Label     string
	Structure *matter.Structure
}

// RelaxOutcome carries the relaxed structure and total energy. A failed job
// gets Energy = +Inf and a nil structure so downstream filtering stays a
// single comparison.
type RelaxOutcome struct {
	Label     string
	Structure *matter.Structure
	Energy    float64
}

func (o RelaxOutcome) Failed() bool { return math.IsInf(o.Energy, 1) }

// RelaxationScheduler runs relaxation jobs either one by one or in fixed-size
// batches. Batching only changes progress granularity; the per-job results
// are identical either way.
type RelaxationScheduler struct {
	logger  *slog.Logger
	relaxer StructureRelaxer

	Batched   bool
	BatchSize int
}

func NewRelaxationScheduler(logger *slog.Logger, relaxer StructureRelaxer, batched bool, batchSize int) *RelaxationScheduler {
	if batchSize < 1 {
		batchSize = 1
	}
	return &RelaxationScheduler{logger: logger, relaxer: relaxer, Batched: batched, BatchSize: batchSize}
}

func (s *RelaxationScheduler) Run(ctx context.Context, jobs []RelaxJob) ([]RelaxOutcome, error) {
	if !s.Batched {
		return s.runBatch(ctx, jobs)
	}

	out := make([]RelaxOutcome, 0, len(jobs))
	for start := 0; start < len(jobs); start += s.BatchSize {
		end := start + s.BatchSize
		if end > len(jobs) {
			end = len(jobs)
		}
		s.logger.Info("relaxing batch",
			"from", start, "to", end, "total", len(jobs))

		batch, err := s.runBatch(ctx, jobs[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (s *RelaxationScheduler) runBatch(ctx context.Context, jobs []RelaxJob) ([]RelaxOutcome, error) {
	out := make([]RelaxOutcome, 0, len(jobs))
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		relaxed, energy, err := s.relaxer.Relax(ctx, job.Structure)
		if err != nil {
			s.logger.Warn("relaxation failed", "label", job.Label, "error", err)
			out = append(out, RelaxOutcome{Label: job.Label, Energy: math.Inf(1)})
			continue
		}
		out = append(out, RelaxOutcome{Label: job.Label, Structure: relaxed, Energy: energy})
	}
	return out, nil
}
