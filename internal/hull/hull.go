// Package hull computes energy-above-hull values over composition space.
//
// The envelope is evaluated directly: for every entry the minimum energy
// reachable by a convex combination of registered entries at the same
// composition is found by enumerating simplices (points, segments, and for
// ternary systems triangles). By Caratheodory's theorem that is exhaustive
// for one- and two-dimensional composition spaces, and the entry counts here
// (tens per system) keep the enumeration cheap.
package hull

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

const (
	coordEps  = 1e-8
	onHullEps = 1e-9
)

// Entry is one (composition, energy-per-atom) point. Fractions must sum to 1
// over the entry's elements.
type Entry struct {
	Formula       string
	Fractions     map[string]float64
	EnergyPerAtom float64
}

type Result struct {
	Formula         string
	EnergyAboveHull float64
	OnHull          bool
}

// Compute returns the energy above the lower convex envelope for every entry.
// Fewer than two distinct compositions cannot span a hull; that case returns
// an empty result, not an error.
func Compute(entries []Entry) ([]Result, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	axes := elementAxes(entries)
	if len(axes) < 1 || len(axes) > 3 {
		return nil, fmt.Errorf("hull supports 1 to 3 elements (got %d)", len(axes))
	}

	// Coordinates drop the first axis; fractions sum to 1 so it is redundant.
	dim := len(axes) - 1
	coords := make([][]float64, len(entries))
	for i, entry := range entries {
		c := make([]float64, dim)
		for d := 0; d < dim; d++ {
			c[d] = entry.Fractions[axes[d+1]]
		}
		coords[i] = c
	}

	if countDistinct(coords) < 2 {
		return nil, nil
	}

	results := make([]Result, len(entries))
	for i, entry := range entries {
		envelope := envelopeAt(coords[i], coords, entries)
		eHull := entry.EnergyPerAtom - envelope
		if eHull < 0 {
			eHull = 0
		}
		results[i] = Result{
			Formula:         entry.Formula,
			EnergyAboveHull: eHull,
			OnHull:          eHull <= onHullEps,
		}
	}
	return results, nil
}

func elementAxes(entries []Entry) []string {
	seen := make(map[string]struct{})
	for _, entry := range entries {
		for symbol := range entry.Fractions {
			seen[symbol] = struct{}{}
		}
	}
	axes := make([]string, 0, len(seen))
	for symbol := range seen {
		axes = append(axes, symbol)
	}
	sort.Strings(axes)
	return axes
}

func countDistinct(coords [][]float64) int {
	distinct := 0
	for i, c := range coords {
		dup := false
		for j := 0; j < i; j++ {
			if samePoint(c, coords[j]) {
				dup = true
				break
			}
		}
		if !dup {
			distinct++
		}
	}
	return distinct
}

func samePoint(a, b []float64) bool {
	for d := range a {
		if math.Abs(a[d]-b[d]) > coordEps {
			return false
		}
	}
	return true
}

func envelopeAt(p []float64, coords [][]float64, entries []Entry) float64 {
	best := math.Inf(1)

	for i := range entries {
		if samePoint(p, coords[i]) && entries[i].EnergyPerAtom < best {
			best = entries[i].EnergyPerAtom
		}
	}

	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if v, ok := segmentValue(p, coords[i], coords[j], entries[i].EnergyPerAtom, entries[j].EnergyPerAtom); ok && v < best {
				best = v
			}
		}
	}

	if len(p) == 2 {
		for i := 0; i < len(entries); i++ {
			for j := i + 1; j < len(entries); j++ {
				for k := j + 1; k < len(entries); k++ {
					if v, ok := triangleValue(p, coords[i], coords[j], coords[k],
						entries[i].EnergyPerAtom, entries[j].EnergyPerAtom, entries[k].EnergyPerAtom); ok && v < best {
						best = v
					}
				}
			}
		}
	}

	return best
}

// segmentValue interpolates between two compositions when p lies on the
// segment joining them.
func segmentValue(p, a, b []float64, ea, eb float64) (float64, bool) {
	dd := 0.0
	dp := 0.0
	for d := range p {
		diff := b[d] - a[d]
		dd += diff * diff
		dp += (p[d] - a[d]) * diff
	}
	if dd < coordEps*coordEps {
		return 0, false
	}
	lambda := dp / dd
	if lambda < -coordEps || lambda > 1+coordEps {
		return 0, false
	}
	for d := range p {
		proj := a[d] + lambda*(b[d]-a[d])
		if math.Abs(proj-p[d]) > coordEps {
			return 0, false
		}
	}
	return ea + lambda*(eb-ea), true
}

// triangleValue solves barycentric coordinates of p inside the triangle
// (a, b, c) in 2D composition space.
func triangleValue(p, a, b, c []float64, ea, eb, ec float64) (float64, bool) {
	m := mat.NewDense(3, 3, []float64{
		a[0], b[0], c[0],
		a[1], b[1], c[1],
		1, 1, 1,
	})
	rhs := mat.NewVecDense(3, []float64{p[0], p[1], 1})

	var lambda mat.VecDense
	if err := lambda.SolveVec(m, rhs); err != nil {
		// Degenerate triangle; segments already cover it.
		return 0, false
	}

	l0, l1, l2 := lambda.AtVec(0), lambda.AtVec(1), lambda.AtVec(2)
	if l0 < -coordEps || l1 < -coordEps || l2 < -coordEps {
		return 0, false
	}
	return l0*ea + l1*eb + l2*ec, true
}
