package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// DetailedRecord is one screening result row. MD fields stay nil for pure
// elements and for candidates that were filtered out before simulation.
// Records with Error set mark systems abandoned after a relaxation failure.
type DetailedRecord struct {
	System     string  `json:"system"`
	Formula    string  `json:"formula,omitempty"`
	TotalAtoms int     `json:"total_atoms,omitempty"`
	LatticeA   float64 `json:"lattice_a,omitempty"`
	Density    float64 `json:"density,omitempty"`

	EnergyPerAtom   float64 `json:"energy_per_atom,omitempty"`
	EnergyAboveHull float64 `json:"energy_above_hull"`
	IsStable        bool    `json:"is_stable"`

	ElementA string  `json:"element_A,omitempty"`
	ElementB string  `json:"element_B,omitempty"`
	RatioA   float64 `json:"ratio_A,omitempty"`
	RatioB   float64 `json:"ratio_B,omitempty"`

	MDPerformed        bool     `json:"md_performed"`
	MDAvgTemperature   *float64 `json:"md_avg_temperature"`
	MDTempFluctuation  *float64 `json:"md_temp_fluctuation"`
	MDAvgEnergyPerAtom *float64 `json:"md_avg_energy_per_atom"`
	MDVolumeChangePct  *float64 `json:"md_volume_change_percent"`
	MDThermallyStable  *bool    `json:"md_thermally_stable"`

	Error string `json:"error,omitempty"`
}

func newRecord(system string, entry RelaxedEntry, verdict StabilityVerdict) DetailedRecord {
	rec := DetailedRecord{
		System:          system,
		Formula:         entry.Formula,
		TotalAtoms:      entry.AtomCount,
		LatticeA:        entry.Structure.LatticeA(),
		Density:         entry.Structure.Density(),
		EnergyPerAtom:   entry.EnergyPerAtom(),
		EnergyAboveHull: verdict.EnergyAboveHull,
		IsStable:        verdict.Stable,
	}

	if entry.Composition.NumElements() == 2 {
		elems := entry.Composition.Elements()
		rec.ElementA = elems[0]
		rec.ElementB = elems[1]
		rec.RatioA = entry.Composition.Fraction(elems[0])
		rec.RatioB = entry.Composition.Fraction(elems[1])
	}
	return rec
}

func newErrorRecord(system string, err error) DetailedRecord {
	return DetailedRecord{System: system, Error: err.Error()}
}

// applyMDVerdict fills the MD columns of the record matching the verdict's
// formula. Returns false when no record matches.
func applyMDVerdict(records []DetailedRecord, v MDVerdict) bool {
	for i := range records {
		if records[i].Formula != v.Formula || records[i].Error != "" {
			continue
		}
		avgTemp, fluct := v.AvgTemperature, v.TempFluctuationPct
		avgE, volChange, stable := v.AvgEnergyPerAtom, v.VolumeChangePct, v.ThermallyStable
		records[i].MDPerformed = true
		records[i].MDAvgTemperature = &avgTemp
		records[i].MDTempFluctuation = &fluct
		records[i].MDAvgEnergyPerAtom = &avgE
		records[i].MDVolumeChangePct = &volChange
		records[i].MDThermallyStable = &stable
		return true
	}
	return false
}

var csvHeader = []string{
	"system", "formula", "total_atoms", "lattice_a", "density",
	"energy_per_atom", "energy_above_hull", "is_stable",
	"md_performed", "md_avg_temperature", "md_temp_fluctuation",
	"md_avg_energy_per_atom", "md_volume_change_percent", "md_thermally_stable",
	"error",
}

// WriteRecordsCSV writes the flat companion CSV next to the JSON results.
func WriteRecordsCSV(path string, records []DetailedRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, rec := range records {
		row := []string{
			rec.System,
			rec.Formula,
			strconv.Itoa(rec.TotalAtoms),
			formatFloat(rec.LatticeA),
			formatFloat(rec.Density),
			formatFloat(rec.EnergyPerAtom),
			formatFloat(rec.EnergyAboveHull),
			strconv.FormatBool(rec.IsStable),
			strconv.FormatBool(rec.MDPerformed),
			formatFloatPtr(rec.MDAvgTemperature),
			formatFloatPtr(rec.MDTempFluctuation),
			formatFloatPtr(rec.MDAvgEnergyPerAtom),
			formatFloatPtr(rec.MDVolumeChangePct),
			formatBoolPtr(rec.MDThermallyStable),
			rec.Error,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatBoolPtr(v *bool) string {
	if v == nil {
		return ""
	}
	return strconv.FormatBool(*v)
}

// dedupeEntries keeps the first relaxed entry per reduced formula, matching
// insertion order.
func dedupeEntries(entries []RelaxedEntry) []RelaxedEntry {
	seen := make(map[string]struct{}, len(entries))
	out := entries[:0:0]
	for _, e := range entries {
		if _, ok := seen[e.Formula]; ok {
			continue
		}
		seen[e.Formula] = struct{}{}
		out = append(out, e)
	}
	return out
}
