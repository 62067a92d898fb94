package main

import (
	"fmt"

	"github.com/matterforge-labs/matterforge-go/internal/hull"
	"github.com/matterforge-labs/matterforge-go/internal/matter"
)

// RelaxedEntry is a relaxed candidate admitted to the stability ledger.
type RelaxedEntry struct {
	Formula     string
	Composition matter.Composition
	AtomCount   int
	TotalEnergy float64
	Structure   *matter.Structure
}

func (e RelaxedEntry) EnergyPerAtom() float64 {
	return e.TotalEnergy / float64(e.AtomCount)
}

type StabilityVerdict struct {
	Formula         string
	EnergyAboveHull float64
	Stable          bool
}

// StabilityLedger accumulates relaxed candidates for one alloy system and
// classifies them against the convex hull of their energies.
type StabilityLedger struct {
	entries   []RelaxedEntry
	threshold float64
}

func NewStabilityLedger(threshold float64) *StabilityLedger {
	return &StabilityLedger{threshold: threshold}
}

func (l *StabilityLedger) Register(e RelaxedEntry) {
	l.entries = append(l.entries, e)
}

func (l *StabilityLedger) Entries() []RelaxedEntry { return l.entries }

// Evaluate computes the hull over everything registered so far. Fewer than
// two distinct compositions cannot span a hull and yield no verdicts.
func (l *StabilityLedger) Evaluate() ([]StabilityVerdict, error) {
	hullEntries := make([]hull.Entry, len(l.entries))
	for i, e := range l.entries {
		hullEntries[i] = hull.Entry{
			Formula:       e.Formula,
			Fractions:     e.Composition.Fractions(),
			EnergyPerAtom: e.EnergyPerAtom(),
		}
	}

	results, err := hull.Compute(hullEntries)
	if err != nil {
		return nil, fmt.Errorf("compute hull: %w", err)
	}

	verdicts := make([]StabilityVerdict, len(results))
	for i, r := range results {
		verdicts[i] = StabilityVerdict{
			Formula:         r.Formula,
			EnergyAboveHull: r.EnergyAboveHull,
			Stable:          r.EnergyAboveHull <= l.threshold,
		}
	}
	return verdicts, nil
}
