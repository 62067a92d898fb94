package main

import (
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/matterforge-labs/matterforge-go/internal/matter"
)

// AlloyMixer builds binary alloy structures by random substitution on the
// base element's cubic supercell.
type AlloyMixer struct {
	base string
	seed int64
}

func NewAlloyMixer(base string, seed int64) *AlloyMixer {
	return &AlloyMixer{base: base, seed: seed}
}

// Generate replicates the base element cell supercell^3 times and substitutes
// int(total*ratio) sites with the dopant at seeded-random positions. Ratio 0
// returns the pure supercell.
func (m *AlloyMixer) Generate(dopant string, ratio float64, supercell int) (*matter.Structure, error) {
	if ratio < 0 || ratio >= 1 {
		return nil, fmt.Errorf("ratio must be in [0, 1) (got %v)", ratio)
	}

	atoms, err := matter.Bulk(m.base, true).Replicate(supercell)
	if err != nil {
		return nil, err
	}
	if ratio == 0 {
		return atoms, nil
	}

	total := atoms.NumAtoms()
	numSubstitute := int(float64(total) * ratio)
	if numSubstitute == 0 {
		return nil, fmt.Errorf("supercell %d too small to place any %s at ratio %v", supercell, dopant, ratio)
	}

	rng := rand.New(rand.NewSource(mixSeed(m.seed, m.base, dopant, ratio)))
	indices := rng.Perm(total)
	for _, idx := range indices[:numSubstitute] {
		atoms.Symbols[idx] = dopant
	}
	return atoms, nil
}

// mixSeed derives a per-structure seed so the same composition always yields
// the same substitution pattern across runs.
func mixSeed(base int64, parts ...any) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d", base)
	for _, part := range parts {
		fmt.Fprintf(h, "/%v", part)
	}
	return int64(h.Sum64())
}
