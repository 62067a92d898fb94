package matter

import (
	"fmt"
	"math"
)

// amuPerA3ToGPerCm3 converts amu/angstrom^3 to g/cm^3.
const amuPerA3ToGPerCm3 = 1.66054

type Vec3 [3]float64

// Structure is a periodic atomic configuration: a cell matrix (rows are the
// lattice vectors) plus cartesian positions and per-atom symbols.
type Structure struct {
	Symbols   []string
	Cell      [3][3]float64
	Positions []Vec3
}

func (s *Structure) NumAtoms() int { return len(s.Symbols) }

func (s *Structure) Copy() *Structure {
	out := &Structure{
		Symbols:   append([]string(nil), s.Symbols...),
		Cell:      s.Cell,
		Positions: append([]Vec3(nil), s.Positions...),
	}
	return out
}

func (s *Structure) Composition() Composition {
	return CompositionOf(s.Symbols)
}

func (s *Structure) ReducedFormula() string {
	return ReducedFormula(s.Symbols)
}

// Volume is the cell determinant in angstrom^3.
func (s *Structure) Volume() float64 {
	c := s.Cell
	return math.Abs(
		c[0][0]*(c[1][1]*c[2][2]-c[1][2]*c[2][1]) -
			c[0][1]*(c[1][0]*c[2][2]-c[1][2]*c[2][0]) +
			c[0][2]*(c[1][0]*c[2][1]-c[1][1]*c[2][0]))
}

// Mass sums atomic masses in amu. Unknown symbols contribute zero.
func (s *Structure) Mass() float64 {
	total := 0.0
	for _, symbol := range s.Symbols {
		info, _ := LookupElement(symbol)
		total += info.Mass
	}
	return total
}

// Density in g/cm^3.
func (s *Structure) Density() float64 {
	v := s.Volume()
	if v == 0 {
		return 0
	}
	return s.Mass() / v * amuPerA3ToGPerCm3
}

// LatticeA reports the first cell vector's x component, the value recorded as
// the lattice constant for cubic supercells.
func (s *Structure) LatticeA() float64 {
	return s.Cell[0][0]
}

// Replicate tiles the structure n times along each lattice vector.
func (s *Structure) Replicate(n int) (*Structure, error) {
	if n < 1 {
		return nil, fmt.Errorf("replication factor must be >= 1 (got %d)", n)
	}
	if n == 1 {
		return s.Copy(), nil
	}

	natoms := s.NumAtoms()
	out := &Structure{
		Symbols:   make([]string, 0, natoms*n*n*n),
		Positions: make([]Vec3, 0, natoms*n*n*n),
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out.Cell[i][j] = s.Cell[i][j] * float64(n)
		}
	}

	for ia := 0; ia < n; ia++ {
		for ib := 0; ib < n; ib++ {
			for ic := 0; ic < n; ic++ {
				shift := Vec3{
					float64(ia)*s.Cell[0][0] + float64(ib)*s.Cell[1][0] + float64(ic)*s.Cell[2][0],
					float64(ia)*s.Cell[0][1] + float64(ib)*s.Cell[1][1] + float64(ic)*s.Cell[2][1],
					float64(ia)*s.Cell[0][2] + float64(ib)*s.Cell[1][2] + float64(ic)*s.Cell[2][2],
				}
				for idx := 0; idx < natoms; idx++ {
					out.Symbols = append(out.Symbols, s.Symbols[idx])
					p := s.Positions[idx]
					out.Positions = append(out.Positions, Vec3{p[0] + shift[0], p[1] + shift[1], p[2] + shift[2]})
				}
			}
		}
	}
	return out, nil
}

// Bulk builds the conventional cubic cell for an element's reference crystal.
// hcp has no cubic conventional cell; as in the structure builder it falls
// back to fcc at 4.0 angstrom when a cubic cell is required.
func Bulk(symbol string, cubic bool) *Structure {
	info, _ := LookupElement(symbol)
	crystal := info.Crystal
	a := info.LatticeA
	if cubic && crystal == HCP {
		crystal = FCC
		a = 4.0
	}

	switch crystal {
	case BCC:
		return cubicCell(symbol, a, []Vec3{
			{0, 0, 0},
			{0.5, 0.5, 0.5},
		})
	case HCP:
		return hcpCell(symbol, a)
	default:
		return cubicCell(symbol, a, []Vec3{
			{0, 0, 0},
			{0, 0.5, 0.5},
			{0.5, 0, 0.5},
			{0.5, 0.5, 0},
		})
	}
}

func cubicCell(symbol string, a float64, fractional []Vec3) *Structure {
	s := &Structure{
		Cell: [3][3]float64{{a, 0, 0}, {0, a, 0}, {0, 0, a}},
	}
	for _, f := range fractional {
		s.Symbols = append(s.Symbols, symbol)
		s.Positions = append(s.Positions, Vec3{f[0] * a, f[1] * a, f[2] * a})
	}
	return s
}

func hcpCell(symbol string, a float64) *Structure {
	c := a * math.Sqrt(8.0/3.0)
	s := &Structure{
		Cell: [3][3]float64{
			{a, 0, 0},
			{-a / 2, a * math.Sqrt(3) / 2, 0},
			{0, 0, c},
		},
	}
	frac := []Vec3{
		{0, 0, 0},
		{1.0 / 3.0, 2.0 / 3.0, 0.5},
	}
	for _, f := range frac {
		s.Symbols = append(s.Symbols, symbol)
		s.Positions = append(s.Positions, Vec3{
			f[0]*s.Cell[0][0] + f[1]*s.Cell[1][0] + f[2]*s.Cell[2][0],
			f[0]*s.Cell[0][1] + f[1]*s.Cell[1][1] + f[2]*s.Cell[2][1],
			f[0]*s.Cell[0][2] + f[1]*s.Cell[1][2] + f[2]*s.Cell[2][2],
		})
	}
	return s
}
