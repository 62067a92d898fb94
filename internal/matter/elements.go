// Package matter holds element reference data, formula handling, and the
// atomic structure representation shared by the screening pipeline.
package matter

type Crystal string

const (
	FCC Crystal = "fcc"
	BCC Crystal = "bcc"
	HCP Crystal = "hcp"
)

// crystalPriority orders crystal families by symmetry when a ternary base
// element has to be chosen: fcc beats bcc beats hcp.
var crystalPriority = map[Crystal]int{
	FCC: 3,
	BCC: 2,
	HCP: 1,
}

func CrystalPriority(c Crystal) int {
	return crystalPriority[c]
}

type ElementInfo struct {
	Crystal  Crystal
	LatticeA float64 // conventional lattice constant, angstrom
	Mass     float64 // atomic mass, amu
}

// elementTable covers the metallic elements the screening pipeline targets.
// Lattice constants follow Materials Project / ICSD conventional cells.
var elementTable = map[string]ElementInfo{
	"Li": {BCC, 3.51, 6.941},
	"Be": {HCP, 2.29, 9.012},
	"Mg": {HCP, 3.21, 24.305},
	"Al": {FCC, 4.05, 26.982},

	"Ti": {HCP, 2.95, 47.867},
	"V":  {BCC, 3.03, 50.942},
	"Cr": {BCC, 2.88, 51.996},
	"Mn": {BCC, 8.91, 54.938},
	"Fe": {BCC, 2.87, 55.845},
	"Co": {HCP, 2.51, 58.933},
	"Ni": {FCC, 3.52, 58.693},
	"Cu": {FCC, 3.61, 63.546},
	"Zn": {HCP, 2.66, 65.380},

	"Zr": {HCP, 3.23, 91.224},
	"Nb": {BCC, 3.30, 92.906},
	"Mo": {BCC, 3.15, 95.950},
	"Tc": {HCP, 2.74, 98.000},
	"Ru": {HCP, 2.71, 101.070},
	"Rh": {FCC, 3.80, 102.906},
	"Pd": {FCC, 3.89, 106.420},
	"Ag": {FCC, 4.09, 107.868},
	"Cd": {HCP, 2.98, 112.414},

	"Hf": {HCP, 3.20, 178.490},
	"Ta": {BCC, 3.31, 180.948},
	"W":  {BCC, 3.16, 183.840},
	"Re": {HCP, 2.76, 186.207},
	"Os": {HCP, 2.74, 190.230},
	"Ir": {FCC, 3.84, 192.217},
	"Pt": {FCC, 3.92, 195.084},
	"Au": {FCC, 4.08, 196.967},
}

// fallback for symbols outside the table, matching the builder's behavior of
// substituting an fcc cell at 4.0 angstrom.
var defaultElement = ElementInfo{Crystal: FCC, LatticeA: 4.0, Mass: 0}

// LookupElement returns the reference data for a symbol. The second return
// reports whether the symbol was in the table; callers that only need a cell
// skeleton may ignore it and use the fcc fallback.
func LookupElement(symbol string) (ElementInfo, bool) {
	info, ok := elementTable[symbol]
	if !ok {
		return defaultElement, false
	}
	return info, true
}

func KnownElement(symbol string) bool {
	_, ok := elementTable[symbol]
	return ok
}
