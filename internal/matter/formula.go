package matter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Composition is a multiset of element symbols, kept sorted by symbol so the
// string form is canonical.
type Composition struct {
	symbols []string
	counts  []int
}

func NewComposition(counts map[string]int) Composition {
	symbols := make([]string, 0, len(counts))
	for symbol, count := range counts {
		if count > 0 {
			symbols = append(symbols, symbol)
		}
	}
	sort.Strings(symbols)

	c := Composition{symbols: symbols, counts: make([]int, len(symbols))}
	for i, symbol := range symbols {
		c.counts[i] = counts[symbol]
	}
	return c
}

// CompositionOf tallies the per-atom symbols of a structure.
func CompositionOf(symbols []string) Composition {
	counts := make(map[string]int, 4)
	for _, symbol := range symbols {
		counts[symbol]++
	}
	return NewComposition(counts)
}

// ParseFormula parses element-count notation such as "Cu3Ni" or "Fe2CrNi".
// A missing count means 1.
func ParseFormula(formula string) (Composition, error) {
	formula = strings.TrimSpace(formula)
	if formula == "" {
		return Composition{}, fmt.Errorf("empty formula")
	}

	counts := make(map[string]int, 4)
	i := 0
	for i < len(formula) {
		if formula[i] < 'A' || formula[i] > 'Z' {
			return Composition{}, fmt.Errorf("invalid formula %q at position %d", formula, i)
		}
		j := i + 1
		for j < len(formula) && formula[j] >= 'a' && formula[j] <= 'z' {
			j++
		}
		symbol := formula[i:j]

		k := j
		for k < len(formula) && formula[k] >= '0' && formula[k] <= '9' {
			k++
		}
		count := 1
		if k > j {
			parsed, err := strconv.Atoi(formula[j:k])
			if err != nil || parsed <= 0 {
				return Composition{}, fmt.Errorf("invalid count in formula %q", formula)
			}
			count = parsed
		}
		counts[symbol] += count
		i = k
	}
	return NewComposition(counts), nil
}

func (c Composition) NumElements() int { return len(c.symbols) }

func (c Composition) IsPure() bool { return len(c.symbols) == 1 }

func (c Composition) Elements() []string {
	out := make([]string, len(c.symbols))
	copy(out, c.symbols)
	return out
}

func (c Composition) Count(symbol string) int {
	for i, s := range c.symbols {
		if s == symbol {
			return c.counts[i]
		}
	}
	return 0
}

func (c Composition) TotalAtoms() int {
	total := 0
	for _, count := range c.counts {
		total += count
	}
	return total
}

// Fraction returns the atomic fraction of a symbol, 0 if absent.
func (c Composition) Fraction(symbol string) float64 {
	total := c.TotalAtoms()
	if total == 0 {
		return 0
	}
	return float64(c.Count(symbol)) / float64(total)
}

// Fractions maps every element to its atomic fraction.
func (c Composition) Fractions() map[string]float64 {
	total := c.TotalAtoms()
	out := make(map[string]float64, len(c.symbols))
	if total == 0 {
		return out
	}
	for i, symbol := range c.symbols {
		out[symbol] = float64(c.counts[i]) / float64(total)
	}
	return out
}

// Reduce divides all counts by their greatest common divisor.
func (c Composition) Reduce() Composition {
	if len(c.counts) == 0 {
		return c
	}
	g := c.counts[0]
	for _, count := range c.counts[1:] {
		g = gcd(g, count)
	}
	if g <= 1 {
		return c
	}
	reduced := Composition{
		symbols: append([]string(nil), c.symbols...),
		counts:  make([]int, len(c.counts)),
	}
	for i, count := range c.counts {
		reduced.counts[i] = count / g
	}
	return reduced
}

// String renders the composition with symbols in alphabetical order and
// counts of 1 omitted, e.g. "Cu3Ni".
func (c Composition) String() string {
	var b strings.Builder
	for i, symbol := range c.symbols {
		b.WriteString(symbol)
		if c.counts[i] > 1 {
			b.WriteString(strconv.Itoa(c.counts[i]))
		}
	}
	return b.String()
}

// ReducedFormula is the canonical identity used to key ledger entries and
// durable records.
func ReducedFormula(symbols []string) string {
	return CompositionOf(symbols).Reduce().String()
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
