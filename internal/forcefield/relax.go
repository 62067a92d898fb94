package forcefield

import (
	"context"
	"fmt"
	"math"

	"github.com/matterforge-labs/matterforge-go/internal/matter"
)

// Relaxer minimizes atomic positions with damped steepest descent until the
// largest force component drops below FMax or MaxSteps is reached.
type Relaxer struct {
	calc     Calculator
	FMax     float64 // convergence criterion, eV/angstrom
	MaxSteps int
	StepSize float64 // angstrom^2/eV
}

func NewRelaxer(calc Calculator) *Relaxer {
	return &Relaxer{
		calc:     calc,
		FMax:     0.05,
		MaxSteps: 200,
		StepSize: 0.01,
	}
}

// Relax returns the relaxed structure and its total energy. The input
// structure is not mutated.
func (r *Relaxer) Relax(ctx context.Context, s *matter.Structure) (*matter.Structure, float64, error) {
	cur := s.Copy()

	eval, err := r.calc.Evaluate(cur)
	if err != nil {
		return nil, 0, fmt.Errorf("evaluate: %w", err)
	}

	step := r.StepSize
	prevEnergy := eval.Energy

	for iter := 0; iter < r.MaxSteps; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		if maxForce(eval.Forces) < r.FMax {
			break
		}

		trial := cur.Copy()
		for i := range trial.Positions {
			trial.Positions[i][0] += step * eval.Forces[i][0]
			trial.Positions[i][1] += step * eval.Forces[i][1]
			trial.Positions[i][2] += step * eval.Forces[i][2]
		}

		trialEval, err := r.calc.Evaluate(trial)
		if err != nil {
			return nil, 0, fmt.Errorf("evaluate: %w", err)
		}

		if trialEval.Energy <= prevEnergy {
			cur = trial
			eval = trialEval
			prevEnergy = trialEval.Energy
			step *= 1.1
		} else {
			// Overshot; shrink the step and retry from the current point.
			step *= 0.5
			if step < 1e-8 {
				break
			}
		}
	}

	return cur, prevEnergy, nil
}

func maxForce(forces []matter.Vec3) float64 {
	maxF := 0.0
	for _, f := range forces {
		for k := 0; k < 3; k++ {
			if v := math.Abs(f[k]); v > maxF {
				maxF = v
			}
		}
	}
	return maxF
}
