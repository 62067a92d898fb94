package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/matterforge-labs/matterforge-go/internal/forcefield"
	"github.com/matterforge-labs/matterforge-go/internal/matter"
)

// Pipeline wires the screening stages together: enumerate systems, relax
// candidates, classify against the hull, simulate survivors, record verdicts.
// The optional collaborators (Miner, Store, Artifacts) are nil when the
// corresponding backend is not configured.
type Pipeline struct {
	logger *slog.Logger
	cfg    Config

	Enumerator *Enumerator
	Scheduler  *RelaxationScheduler
	MDOrch     *MDOrchestrator
	Analyzer   *TrajectoryAnalyzer
	State      *StateManager

	Miner     *MinerClient
	Store     *RecordStore
	Artifacts *ArtifactStore
}

func NewPipeline(logger *slog.Logger, cfg Config, calcFactory forcefield.Factory, state *StateManager) (*Pipeline, error) {
	calc, err := calcFactory()
	if err != nil {
		return nil, fmt.Errorf("create calculator: %w", err)
	}

	return &Pipeline{
		logger:     logger,
		cfg:        cfg,
		Enumerator: NewEnumerator(logger, cfg),
		Scheduler:  NewRelaxationScheduler(logger, forcefield.NewRelaxer(calc), cfg.BatchRelaxation, cfg.RelaxBatchSize),
		MDOrch:     NewMDOrchestrator(logger, calcFactory, cfg),
		Analyzer:   NewTrajectoryAnalyzer(cfg.ThermalLimits(), cfg.EquilibrationFraction),
		State:      state,
	}, nil
}

type Summary struct {
	SystemsProcessed int
	SystemsSkipped   int
	SystemsFailed    int
	Records          int
	StableCandidates int
	MDSimulations    int
}

func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	systems, err := p.Enumerator.Enumerate()
	if err != nil {
		return Summary{}, err
	}

	completed := p.State.CompletedSystems()
	var summary Summary

	for _, key := range systems {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		name := key.SystemName()
		if completed[name] {
			p.logger.Info("skipping completed system", "system", name)
			summary.SystemsSkipped++
			continue
		}

		p.logger.Info("screening system", "system", name, "arity", p.cfg.Arity)

		var records []DetailedRecord
		if p.cfg.Arity == ArityTernary {
			records, err = p.runTernarySystem(ctx, key, &summary)
		} else {
			records, err = p.runBinarySystem(ctx, key, &summary)
		}
		if err != nil {
			return summary, fmt.Errorf("system %s: %w", name, err)
		}

		if err := p.State.AppendSystem(name, records); err != nil {
			return summary, fmt.Errorf("save system %s: %w", name, err)
		}
		p.mirror(ctx, name, len(key), records)

		summary.SystemsProcessed++
		summary.Records += len(records)
	}
	return summary, nil
}

// runBinarySystem screens one two-element system. The base element's pure
// supercell and the dopant's are relaxed first: a failing endpoint means no
// hull reference exists, so the whole system is recorded as an error and
// abandoned.
func (p *Pipeline) runBinarySystem(ctx context.Context, key CompositionKey, summary *Summary) ([]DetailedRecord, error) {
	base, dopant := key[0], key[1]
	mixer := NewAlloyMixer(base, p.cfg.Seed)

	pure, failedElem, err := p.relaxPureEndpoints(ctx, key)
	if err != nil {
		return nil, err
	}
	if failedElem != "" {
		summary.SystemsFailed++
		return []DetailedRecord{newErrorRecord(key.SystemName(),
			fmt.Errorf("pure element %s failed to relax", failedElem))}, nil
	}

	ratios := p.binaryRatios(ctx, base, dopant)

	jobs := make([]RelaxJob, 0, len(ratios))
	for _, ratio := range ratios {
		s, err := mixer.Generate(dopant, ratio, p.cfg.SupercellSize)
		if err != nil {
			p.logger.Warn("skipping unbuildable composition",
				"system", key.SystemName(), "ratio", ratio, "error", err)
			continue
		}
		jobs = append(jobs, RelaxJob{Label: s.ReducedFormula(), Structure: s})
	}

	return p.screen(ctx, key, pure, jobs, summary)
}

func (p *Pipeline) runTernarySystem(ctx context.Context, key CompositionKey, summary *Summary) ([]DetailedRecord, error) {
	mixer := NewTernaryMixer(key[0], key[1], key[2], p.cfg.Seed)
	p.logger.Info("selected ternary base element",
		"system", key.SystemName(), "base", mixer.BaseElement())

	pure, failedElem, err := p.relaxPureEndpoints(ctx, key)
	if err != nil {
		return nil, err
	}
	if failedElem != "" {
		summary.SystemsFailed++
		return []DetailedRecord{newErrorRecord(key.SystemName(),
			fmt.Errorf("pure element %s failed to relax", failedElem))}, nil
	}

	ratios := p.ternaryRatios(ctx, key)

	jobs := make([]RelaxJob, 0, len(ratios))
	for _, ratio := range ratios {
		s, err := mixer.Generate(ratio, p.cfg.TernarySupercellSize)
		if err != nil {
			p.logger.Warn("skipping unbuildable composition",
				"system", key.SystemName(), "ratio", ratio, "error", err)
			continue
		}
		jobs = append(jobs, RelaxJob{Label: s.ReducedFormula(), Structure: s})
	}

	return p.screen(ctx, key, pure, jobs, summary)
}

// relaxPureEndpoints relaxes each element's pure supercell. A non-empty
// failedElem marks an abandonable system, as opposed to an infrastructure
// error.
func (p *Pipeline) relaxPureEndpoints(ctx context.Context, key CompositionKey) (entries []RelaxedEntry, failedElem string, err error) {
	supercell := p.cfg.SupercellSize
	if len(key) == 3 {
		supercell = p.cfg.TernarySupercellSize
	}

	jobs := make([]RelaxJob, 0, len(key))
	for _, elem := range key {
		s, err := matter.Bulk(elem, true).Replicate(supercell)
		if err != nil {
			return nil, "", err
		}
		jobs = append(jobs, RelaxJob{Label: elem, Structure: s})
	}

	outcomes, err := p.Scheduler.Run(ctx, jobs)
	if err != nil {
		return nil, "", err
	}

	entries = make([]RelaxedEntry, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Failed() {
			return nil, o.Label, nil
		}
		entries = append(entries, outcomeToEntry(o))
	}
	return entries, "", nil
}

// screen runs the shared tail of a system: relax the mixed candidates, build
// the hull over everything that converged, record verdicts, and simulate the
// stable alloys.
func (p *Pipeline) screen(ctx context.Context, key CompositionKey, pure []RelaxedEntry, jobs []RelaxJob, summary *Summary) ([]DetailedRecord, error) {
	outcomes, err := p.Scheduler.Run(ctx, jobs)
	if err != nil {
		return nil, err
	}

	entries := append([]RelaxedEntry{}, pure...)
	for _, o := range outcomes {
		if o.Failed() {
			continue
		}
		entries = append(entries, outcomeToEntry(o))
	}
	entries = dedupeEntries(entries)

	ledger := NewStabilityLedger(p.cfg.SystemThreshold())
	for _, e := range entries {
		ledger.Register(e)
	}
	verdicts, err := ledger.Evaluate()
	if err != nil {
		return nil, err
	}

	verdictByFormula := make(map[string]StabilityVerdict, len(verdicts))
	for _, v := range verdicts {
		verdictByFormula[v.Formula] = v
	}

	name := key.SystemName()
	records := make([]DetailedRecord, 0, len(entries))
	stable := make([]RelaxedEntry, 0, len(entries))
	for _, e := range entries {
		v, ok := verdictByFormula[e.Formula]
		if !ok {
			continue
		}
		records = append(records, newRecord(name, e, v))
		if v.Stable {
			stable = append(stable, e)
			summary.StableCandidates++
		}
	}

	if err := p.simulateStable(ctx, name, stable, records, summary); err != nil {
		return nil, err
	}
	return records, nil
}

func (p *Pipeline) simulateStable(ctx context.Context, system string, stable []RelaxedEntry, records []DetailedRecord, summary *Summary) error {
	tasks, err := p.MDOrch.PrepareTasks(stable)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		return nil
	}

	results, err := p.MDOrch.Run(ctx, tasks)
	if err != nil {
		return err
	}

	for _, res := range results {
		if res.Err != nil {
			continue
		}
		verdict, err := p.Analyzer.Analyze(res.Trajectory)
		if err != nil {
			p.logger.Warn("trajectory analysis failed", "formula", res.Formula, "error", err)
			continue
		}
		summary.MDSimulations++

		if !applyMDVerdict(records, verdict) {
			p.logger.Warn("MD verdict has no matching record", "formula", verdict.Formula)
			continue
		}
		if p.Store != nil {
			p.Store.UpdateMD(ctx, system, verdict.Formula, verdict)
		}
		if p.Artifacts != nil {
			p.Artifacts.UploadTrajectory(ctx, p.State.RunID(), system, p.MDOrch.TemperatureK, res.Trajectory)
		}
	}
	return nil
}

// binaryRatios prefers mined compositions when a miner is configured,
// falling back to the uniform grid on any failure.
func (p *Pipeline) binaryRatios(ctx context.Context, base, dopant string) []float64 {
	if p.cfg.CompositionMode == CompositionMined && p.Miner != nil {
		mined, err := p.Miner.FetchBinaryRatios(ctx, base, dopant, p.cfg.MaxMinedRatios)
		if err == nil && len(mined) > 0 {
			return mined
		}
		p.logger.Warn("falling back to generated ratio grid",
			"system", base+"-"+dopant, "error", err)
	}
	return p.cfg.MixingRatios()
}

func (p *Pipeline) ternaryRatios(ctx context.Context, key CompositionKey) [][3]int {
	if p.cfg.CompositionMode == CompositionMined && p.Miner != nil {
		mined, err := p.Miner.FetchTernaryRatios(ctx, [3]string{key[0], key[1], key[2]}, p.cfg.MaxMinedRatios)
		if err == nil && len(mined) > 0 {
			return mined
		}
		p.logger.Warn("falling back to generated ratio grid",
			"system", key.SystemName(), "error", err)
	}
	return GenerateTernaryRatios(p.cfg.TernaryTotals)
}

func (p *Pipeline) mirror(ctx context.Context, system string, arity int, records []DetailedRecord) {
	if p.Store == nil {
		return
	}
	p.Store.MirrorSystem(ctx, p.State.RunID(), system, arity, records)
}

func outcomeToEntry(o RelaxOutcome) RelaxedEntry {
	comp := o.Structure.Composition()
	return RelaxedEntry{
		Formula:     o.Structure.ReducedFormula(),
		Composition: comp,
		AtomCount:   o.Structure.NumAtoms(),
		TotalEnergy: o.Energy,
		Structure:   o.Structure,
	}
}
