// Package forcefield is the reference energy collaborator for the screening
// pipeline: a classical pair potential with per-element parameters derived
// from the element reference table, plus a relaxer and an MD integrator over
// it. It fills the calculator contract the pipeline consumes; a learned
// potential can be swapped in behind the same interface.
package forcefield

import (
	"errors"
	"math"

	"github.com/matterforge-labs/matterforge-go/internal/matter"
)

const (
	// BoltzmannEV is kB in eV/K.
	BoltzmannEV = 8.617333262e-5

	// evPerAmuAngFs2 converts amu*(angstrom/fs)^2 to eV.
	evPerAmuAngFs2 = 103.642696
)

type Evaluation struct {
	Energy float64       // total potential energy, eV
	Forces []matter.Vec3 // eV/angstrom
	Virial float64       // sum over pairs of f_ij . r_ij, eV
}

type Calculator interface {
	Evaluate(s *matter.Structure) (Evaluation, error)
}

// Factory constructs a fresh calculator handle. MD workers call it once per
// worker so no handle is shared across concurrent tasks.
type Factory func() (Calculator, error)

// PairPotential is a Lennard-Jones potential with element-specific sigma
// taken from each element's nearest-neighbor distance and Lorentz-Berthelot
// mixing. Interactions use the minimum-image convention.
type PairPotential struct {
	epsilon float64
	cutoff  float64
}

func NewPairPotential() *PairPotential {
	return &PairPotential{epsilon: 0.5, cutoff: 2.5}
}

// NewCalculator is the default Factory.
func NewCalculator() (Calculator, error) {
	return NewPairPotential(), nil
}

func sigmaFor(symbol string) float64 {
	info, _ := matter.LookupElement(symbol)
	var nn float64
	switch info.Crystal {
	case matter.BCC:
		nn = info.LatticeA * math.Sqrt(3) / 2
	case matter.HCP:
		nn = info.LatticeA
	default:
		nn = info.LatticeA / math.Sqrt2
	}
	// The potential minimum 2^(1/6)*sigma lands on the nearest-neighbor
	// distance.
	return nn / math.Pow(2, 1.0/6.0)
}

func (p *PairPotential) Evaluate(s *matter.Structure) (Evaluation, error) {
	n := s.NumAtoms()
	if n == 0 {
		return Evaluation{}, errors.New("empty structure")
	}

	inv, ok := invert3(s.Cell)
	if !ok {
		return Evaluation{}, errors.New("singular cell matrix")
	}

	sigmas := make([]float64, n)
	maxSigma := 0.0
	for i, symbol := range s.Symbols {
		sigmas[i] = sigmaFor(symbol)
		if sigmas[i] > maxSigma {
			maxSigma = sigmas[i]
		}
	}
	rcut := p.cutoff * maxSigma
	rcut2 := rcut * rcut

	out := Evaluation{Forces: make([]matter.Vec3, n)}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := minimumImage(s.Positions[i], s.Positions[j], s.Cell, inv)
			r2 := d[0]*d[0] + d[1]*d[1] + d[2]*d[2]
			if r2 > rcut2 || r2 == 0 {
				continue
			}

			sigma := 0.5 * (sigmas[i] + sigmas[j])
			sr2 := sigma * sigma / r2
			sr6 := sr2 * sr2 * sr2
			sr12 := sr6 * sr6

			out.Energy += 4 * p.epsilon * (sr12 - sr6)

			// dU/dr * (1/r), applied along the separation vector.
			fScale := 24 * p.epsilon * (2*sr12 - sr6) / r2
			fx := fScale * d[0]
			fy := fScale * d[1]
			fz := fScale * d[2]

			out.Forces[i][0] += fx
			out.Forces[i][1] += fy
			out.Forces[i][2] += fz
			out.Forces[j][0] -= fx
			out.Forces[j][1] -= fy
			out.Forces[j][2] -= fz

			out.Virial += fx*d[0] + fy*d[1] + fz*d[2]
		}
	}
	return out, nil
}

// minimumImage returns the shortest periodic separation r_i - r_j.
func minimumImage(a, b matter.Vec3, cell [3][3]float64, inv [3][3]float64) matter.Vec3 {
	d := matter.Vec3{a[0] - b[0], a[1] - b[1], a[2] - b[2]}

	var frac [3]float64
	for k := 0; k < 3; k++ {
		frac[k] = d[0]*inv[0][k] + d[1]*inv[1][k] + d[2]*inv[2][k]
		frac[k] -= math.Round(frac[k])
	}

	var out matter.Vec3
	for k := 0; k < 3; k++ {
		out[k] = frac[0]*cell[0][k] + frac[1]*cell[1][k] + frac[2]*cell[2][k]
	}
	return out
}

func invert3(m [3][3]float64) ([3][3]float64, bool) {
	det := m[0][0]*(m[1][1]*m[2][2]-m[1][2]*m[2][1]) -
		m[0][1]*(m[1][0]*m[2][2]-m[1][2]*m[2][0]) +
		m[0][2]*(m[1][0]*m[2][1]-m[1][1]*m[2][0])
	if math.Abs(det) < 1e-14 {
		return [3][3]float64{}, false
	}
	invDet := 1 / det
	var inv [3][3]float64
	inv[0][0] = (m[1][1]*m[2][2] - m[1][2]*m[2][1]) * invDet
	inv[0][1] = (m[0][2]*m[2][1] - m[0][1]*m[2][2]) * invDet
	inv[0][2] = (m[0][1]*m[1][2] - m[0][2]*m[1][1]) * invDet
	inv[1][0] = (m[1][2]*m[2][0] - m[1][0]*m[2][2]) * invDet
	inv[1][1] = (m[0][0]*m[2][2] - m[0][2]*m[2][0]) * invDet
	inv[1][2] = (m[0][2]*m[1][0] - m[0][0]*m[1][2]) * invDet
	inv[2][0] = (m[1][0]*m[2][1] - m[1][1]*m[2][0]) * invDet
	inv[2][1] = (m[0][1]*m[2][0] - m[0][0]*m[2][1]) * invDet
	inv[2][2] = (m[0][0]*m[1][1] - m[0][1]*m[1][0]) * invDet
	return inv, true
}
