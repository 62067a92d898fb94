package main

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/matterforge-labs/matterforge-go/internal/forcefield"
)

// MDVerdict summarizes one trajectory against the thermal stability limits.
type MDVerdict struct {
	Formula            string
	AvgTemperature     float64
	TempFluctuationPct float64
	AvgEnergyPerAtom   float64
	VolumeChangePct    float64
	ThermallyStable    bool
	Frames             int
}

// TrajectoryAnalyzer scores trajectories. Temperature and energy statistics
// discard the leading equilibration window; volume change is always measured
// from the very first frame so thermal expansion during equilibration counts.
type TrajectoryAnalyzer struct {
	Limits                ThermalLimits
	EquilibrationFraction float64
}

func NewTrajectoryAnalyzer(limits ThermalLimits, equilibration float64) *TrajectoryAnalyzer {
	return &TrajectoryAnalyzer{Limits: limits, EquilibrationFraction: equilibration}
}

func (a *TrajectoryAnalyzer) Analyze(traj *forcefield.Trajectory) (MDVerdict, error) {
	if traj == nil || len(traj.Frames) == 0 {
		return MDVerdict{}, errors.New("empty trajectory")
	}

	frames := traj.Frames
	skip := int(a.EquilibrationFraction * float64(len(frames)))
	if skip >= len(frames) {
		skip = len(frames) - 1
	}
	window := frames[skip:]

	temps := make([]float64, len(window))
	energies := make([]float64, len(window))
	for i, f := range window {
		temps[i] = f.Temperature
		energies[i] = f.PotentialEnergy / float64(traj.NumAtoms)
	}

	avgTemp := stat.Mean(temps, nil)
	fluct := 0.0
	if avgTemp != 0 && len(temps) > 1 {
		fluct = stat.StdDev(temps, nil) / avgTemp * 100
	}

	initialVol := frames[0].Volume
	finalVol := frames[len(frames)-1].Volume
	volChange := 0.0
	if initialVol != 0 {
		volChange = (finalVol - initialVol) / initialVol * 100
	}

	return MDVerdict{
		Formula:            traj.Formula,
		AvgTemperature:     avgTemp,
		TempFluctuationPct: fluct,
		AvgEnergyPerAtom:   stat.Mean(energies, nil),
		VolumeChangePct:    volChange,
		ThermallyStable:    fluct < a.Limits.TempFluctPct && math.Abs(volChange) < a.Limits.VolChangePct,
		Frames:             len(frames),
	}, nil
}
