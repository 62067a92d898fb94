package main

import (
	"context"
	"hash/fnv"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/matterforge-labs/matterforge-go/internal/forcefield"
	"github.com/matterforge-labs/matterforge-go/internal/matter"
)

type MDTask struct {
	Formula   string
	Structure *matter.Structure
}

// MDResult pairs a trajectory with the formula it belongs to. Err is set when
// the simulation failed; sibling tasks are unaffected.
type MDResult struct {
	Formula    string
	Trajectory *forcefield.Trajectory
	Err        error
}

// SimulateFunc runs one MD simulation with a worker-local calculator.
type SimulateFunc func(ctx context.Context, calc forcefield.Calculator, s *matter.Structure, cfg forcefield.MDConfig) (*forcefield.Trajectory, error)

// MDOrchestrator prepares and runs molecular dynamics over the stable
// candidates of a system. Each worker acquires its own calculator so runs
// never share evaluator state.
type MDOrchestrator struct {
	logger  *slog.Logger
	factory forcefield.Factory

	Parallel bool
	Workers  int

	MinAtoms    int
	Replication int

	TemperatureK float64
	Steps        int
	TimestepFs   float64
	SaveInterval int
	Seed         int64

	// Simulate is the injection point for tests; the default runs the real
	// integrator.
	Simulate SimulateFunc
}

func NewMDOrchestrator(logger *slog.Logger, factory forcefield.Factory, cfg Config) *MDOrchestrator {
	return &MDOrchestrator{
		logger:       logger,
		factory:      factory,
		Parallel:     cfg.ParallelMD,
		Workers:      cfg.MDWorkers,
		MinAtoms:     cfg.MinAtomsForMD,
		Replication:  cfg.MDReplication,
		TemperatureK: cfg.MDTemperatureK,
		Steps:        cfg.MDSteps,
		TimestepFs:   cfg.MDTimestepFs,
		SaveInterval: cfg.MDSaveInterval,
		Seed:         cfg.Seed,
		Simulate:     defaultSimulate,
	}
}

func defaultSimulate(ctx context.Context, calc forcefield.Calculator, s *matter.Structure, cfg forcefield.MDConfig) (*forcefield.Trajectory, error) {
	return forcefield.NewSimulator(calc).Run(ctx, s, cfg)
}

// PrepareTasks selects which relaxed entries get simulated. Pure elements are
// skipped: their thermal behavior says nothing about mixing stability. Small
// cells are replicated so the thermostat statistics are meaningful.
func (o *MDOrchestrator) PrepareTasks(entries []RelaxedEntry) ([]MDTask, error) {
	tasks := make([]MDTask, 0, len(entries))
	for _, e := range entries {
		if e.Composition.IsPure() {
			o.logger.Info("skipping MD for pure element", "formula", e.Formula)
			continue
		}

		s := e.Structure
		if s.NumAtoms() < o.MinAtoms {
			replicated, err := s.Replicate(o.Replication)
			if err != nil {
				return nil, err
			}
			o.logger.Info("replicated structure for MD",
				"formula", e.Formula, "atoms", s.NumAtoms(), "replicated_atoms", replicated.NumAtoms())
			s = replicated
		}
		tasks = append(tasks, MDTask{Formula: e.Formula, Structure: s})
	}
	return tasks, nil
}

// Run executes all tasks and returns one result per task, order preserved.
// A failed simulation produces a result with Err set rather than aborting the
// group; only worker setup errors and context cancellation are fatal.
func (o *MDOrchestrator) Run(ctx context.Context, tasks []MDTask) ([]MDResult, error) {
	if len(tasks) == 0 {
		return nil, nil
	}

	workers := 1
	if o.Parallel && o.Workers > 1 {
		workers = o.Workers
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	results := make([]MDResult, len(tasks))
	jobs := make(chan int)

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			calc, err := o.factory()
			if err != nil {
				return err
			}
			for idx := range jobs {
				task := tasks[idx]
				traj, err := o.Simulate(ctx, calc, task.Structure, o.mdConfig(task.Formula))
				if err != nil && ctx.Err() != nil {
					return ctx.Err()
				}
				if err != nil {
					o.logger.Warn("MD simulation failed", "formula", task.Formula, "error", err)
				}
				results[idx] = MDResult{Formula: task.Formula, Trajectory: traj, Err: err}
			}
			return nil
		})
	}

	g.Go(func() error {
		defer close(jobs)
		for i := range tasks {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (o *MDOrchestrator) mdConfig(formula string) forcefield.MDConfig {
	h := fnv.New64a()
	h.Write([]byte(formula))
	return forcefield.MDConfig{
		TemperatureK: o.TemperatureK,
		Steps:        o.Steps,
		TimestepFs:   o.TimestepFs,
		SaveInterval: o.SaveInterval,
		Seed:         o.Seed ^ int64(h.Sum64()),
	}
}
