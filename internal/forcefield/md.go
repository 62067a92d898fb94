package forcefield

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/matterforge-labs/matterforge-go/internal/matter"
)

type MDConfig struct {
	TemperatureK float64
	Steps        int
	TimestepFs   float64
	SaveInterval int
	Friction     float64 // Langevin friction, 1/fs
	Seed         int64
}

func (c MDConfig) withDefaults() MDConfig {
	if c.TimestepFs <= 0 {
		c.TimestepFs = 1.0
	}
	if c.SaveInterval <= 0 {
		c.SaveInterval = 50
	}
	if c.Friction <= 0 {
		c.Friction = 0.02
	}
	return c
}

// Frame is one recorded trajectory snapshot.
type Frame struct {
	Step            int
	PotentialEnergy float64 // eV
	KineticEnergy   float64 // eV
	Temperature     float64 // K
	Volume          float64 // angstrom^3
}

// Trajectory holds the frames of one MD run in memory; callers serialize it
// for durable storage.
type Trajectory struct {
	Formula  string
	NumAtoms int
	Frames   []Frame
}

// Simulator integrates Langevin dynamics at a target temperature with a weak
// isotropic cell coupling so volume drift under thermal stress is observable.
type Simulator struct {
	calc Calculator
}

func NewSimulator(calc Calculator) *Simulator {
	return &Simulator{calc: calc}
}

// Run simulates the structure and returns its trajectory. The input structure
// is not mutated.
func (sim *Simulator) Run(ctx context.Context, s *matter.Structure, cfg MDConfig) (*Trajectory, error) {
	cfg = cfg.withDefaults()
	if cfg.TemperatureK <= 0 {
		return nil, errors.New("temperature must be positive")
	}
	if cfg.Steps <= 0 {
		return nil, errors.New("step count must be positive")
	}

	cur := s.Copy()
	n := cur.NumAtoms()
	if n == 0 {
		return nil, errors.New("empty structure")
	}

	masses := make([]float64, n)
	for i, symbol := range cur.Symbols {
		info, _ := matter.LookupElement(symbol)
		if info.Mass <= 0 {
			return nil, fmt.Errorf("no mass for element %q", symbol)
		}
		masses[i] = info.Mass
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	vel := maxwellBoltzmann(rng, masses, cfg.TemperatureK)

	eval, err := sim.calc.Evaluate(cur)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}

	traj := &Trajectory{
		Formula:  cur.ReducedFormula(),
		NumAtoms: n,
		Frames:   []Frame{makeFrame(0, cur, masses, vel, eval.Energy)},
	}

	dt := cfg.TimestepFs
	gamma := cfg.Friction

	for step := 1; step <= cfg.Steps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for i := 0; i < n; i++ {
			// Acceleration in angstrom/fs^2.
			acc := 1.0 / (masses[i] * evPerAmuAngFs2)
			sigmaV := math.Sqrt(BoltzmannEV * cfg.TemperatureK / (masses[i] * evPerAmuAngFs2))
			noise := math.Sqrt(2 * gamma * dt)

			for k := 0; k < 3; k++ {
				vel[i][k] += eval.Forces[i][k]*acc*dt - gamma*vel[i][k]*dt + noise*sigmaV*rng.NormFloat64()
				cur.Positions[i][k] += vel[i][k] * dt
			}
		}

		eval, err = sim.calc.Evaluate(cur)
		if err != nil {
			return nil, fmt.Errorf("evaluate at step %d: %w", step, err)
		}

		// Weak isotropic barostat toward zero external pressure.
		if step%10 == 0 {
			kinetic := kineticEnergy(masses, vel)
			pressure := (2*kinetic/3 + eval.Virial/3) / cur.Volume()
			scale := math.Cbrt(1 + 1e-4*pressure)
			rescaleCell(cur, scale)
		}

		if step%cfg.SaveInterval == 0 {
			traj.Frames = append(traj.Frames, makeFrame(step, cur, masses, vel, eval.Energy))
		}
	}

	return traj, nil
}

func maxwellBoltzmann(rng *rand.Rand, masses []float64, temperatureK float64) []matter.Vec3 {
	n := len(masses)
	vel := make([]matter.Vec3, n)
	var drift matter.Vec3
	for i := 0; i < n; i++ {
		sigma := math.Sqrt(BoltzmannEV * temperatureK / (masses[i] * evPerAmuAngFs2))
		for k := 0; k < 3; k++ {
			vel[i][k] = sigma * rng.NormFloat64()
			drift[k] += masses[i] * vel[i][k]
		}
	}

	// Remove center-of-mass motion.
	totalMass := 0.0
	for _, m := range masses {
		totalMass += m
	}
	for i := 0; i < n; i++ {
		for k := 0; k < 3; k++ {
			vel[i][k] -= drift[k] / totalMass
		}
	}
	return vel
}

func kineticEnergy(masses []float64, vel []matter.Vec3) float64 {
	ke := 0.0
	for i, m := range masses {
		v2 := vel[i][0]*vel[i][0] + vel[i][1]*vel[i][1] + vel[i][2]*vel[i][2]
		ke += 0.5 * m * v2 * evPerAmuAngFs2
	}
	return ke
}

func makeFrame(step int, s *matter.Structure, masses []float64, vel []matter.Vec3, epot float64) Frame {
	ke := kineticEnergy(masses, vel)
	temp := 2 * ke / (3 * float64(len(masses)) * BoltzmannEV)
	return Frame{
		Step:            step,
		PotentialEnergy: epot,
		KineticEnergy:   ke,
		Temperature:     temp,
		Volume:          s.Volume(),
	}
}

func rescaleCell(s *matter.Structure, scale float64) {
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			s.Cell[i][j] *= scale
		}
	}
	for i := range s.Positions {
		for k := 0; k < 3; k++ {
			s.Positions[i][k] *= scale
		}
	}
}
