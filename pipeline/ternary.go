package main

import (
	"fmt"
	"math/rand"

	"github.com/matterforge-labs/matterforge-go/internal/matter"
)

// SelectBaseElement picks the skeleton element for a ternary alloy by crystal
// family priority (fcc > bcc > hcp), ties broken by the larger symbol. The
// choice is pure: the same three elements always yield the same base.
func SelectBaseElement(elements []string) string {
	best := ""
	bestPriority := -1
	for _, elem := range elements {
		priority := 0
		if info, ok := matter.LookupElement(elem); ok {
			priority = matter.CrystalPriority(info.Crystal)
		}
		if priority > bestPriority || (priority == bestPriority && elem > best) {
			best = elem
			bestPriority = priority
		}
	}
	return best
}

// GenerateTernaryRatios enumerates every integer split (a, b, c) with all
// parts >= 1 for each requested total.
func GenerateTernaryRatios(totals []int) [][3]int {
	out := make([][3]int, 0, 32)
	for _, total := range totals {
		for a := 1; a < total-1; a++ {
			for b := 1; b < total-a; b++ {
				c := total - a - b
				if c >= 1 {
					out = append(out, [3]int{a, b, c})
				}
			}
		}
	}
	return out
}

// TernaryMixer builds three-element alloys on the base element's cubic
// supercell.
type TernaryMixer struct {
	elements [3]string
	base     string
	seed     int64
}

func NewTernaryMixer(a, b, c string, seed int64) *TernaryMixer {
	m := &TernaryMixer{elements: [3]string{a, b, c}, seed: seed}
	m.base = SelectBaseElement(m.elements[:])
	return m
}

func (m *TernaryMixer) BaseElement() string { return m.base }

// Generate distributes the three elements over a shuffled supercell at the
// integer ratio. Rounding leftovers go to the first element.
func (m *TernaryMixer) Generate(ratio [3]int, supercell int) (*matter.Structure, error) {
	totalParts := ratio[0] + ratio[1] + ratio[2]
	if ratio[0] < 1 || ratio[1] < 1 || ratio[2] < 1 {
		return nil, fmt.Errorf("ratio parts must all be >= 1 (got %v)", ratio)
	}

	atoms, err := matter.Bulk(m.base, true).Replicate(supercell)
	if err != nil {
		return nil, err
	}

	total := atoms.NumAtoms()
	counts := [3]int{}
	assigned := 0
	for i := 0; i < 3; i++ {
		counts[i] = total * ratio[i] / totalParts
		assigned += counts[i]
	}
	counts[0] += total - assigned

	rng := rand.New(rand.NewSource(mixSeed(m.seed, m.elements[0], m.elements[1], m.elements[2], ratio)))
	indices := rng.Perm(total)
	offset := 0
	for i, elem := range m.elements {
		for _, idx := range indices[offset : offset+counts[i]] {
			atoms.Symbols[idx] = elem
		}
		offset += counts[i]
	}
	return atoms, nil
}

// GeneratePure builds the pure-element reference supercell used as a hull
// endpoint.
func (m *TernaryMixer) GeneratePure(element string, supercell int) (*matter.Structure, error) {
	return matter.Bulk(element, true).Replicate(supercell)
}
