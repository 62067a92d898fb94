package main

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/matterforge-labs/matterforge-go/internal/matter"
)

// CompositionKey is a canonical sorted tuple of element symbols identifying
// one alloy system.
type CompositionKey []string

func NewCompositionKey(elements ...string) CompositionKey {
	key := make(CompositionKey, len(elements))
	copy(key, elements)
	sort.Strings(key)
	return key
}

// SystemName joins the symbols with dashes, e.g. "Cu-Ni" or "Cr-Fe-Ni".
func (k CompositionKey) SystemName() string {
	return strings.Join(k, "-")
}

// Enumerator produces the deduplicated set of systems to screen, either from
// the configured manual element list or mined from a prior results file.
type Enumerator struct {
	logger *slog.Logger
	cfg    Config
}

func NewEnumerator(logger *slog.Logger, cfg Config) *Enumerator {
	return &Enumerator{logger: logger, cfg: cfg}
}

func (e *Enumerator) Enumerate() ([]CompositionKey, error) {
	if e.cfg.Source == SourceManual {
		return []CompositionKey{NewCompositionKey(e.cfg.Elements...)}, nil
	}
	return e.enumerateFromFile(e.cfg.AutoSourcePath)
}

// enumerateFromFile reads a CSV with a formula column and keeps the element
// sets matching the configured arity. Unparsable formulas are skipped, not
// fatal.
func (e *Enumerator) enumerateFromFile(path string) ([]CompositionKey, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open composition source: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read composition source: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("composition source %q is empty", path)
	}

	formulaCol := -1
	for i, name := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(name), "formula") {
			formulaCol = i
			break
		}
	}
	if formulaCol < 0 {
		return nil, fmt.Errorf("composition source %q has no formula column", path)
	}

	wantArity := 2
	if e.cfg.Arity == ArityTernary {
		wantArity = 3
	}

	seen := make(map[string]struct{})
	keys := make([]CompositionKey, 0, len(rows))
	for _, row := range rows[1:] {
		if formulaCol >= len(row) {
			continue
		}
		formula := strings.TrimSpace(row[formulaCol])
		if formula == "" {
			continue
		}

		comp, err := matter.ParseFormula(formula)
		if err != nil {
			e.logger.Warn("skipping unparsable formula", "formula", formula, "error", err)
			continue
		}
		if comp.NumElements() != wantArity {
			continue
		}

		key := NewCompositionKey(comp.Elements()...)
		name := key.SystemName()
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		keys = append(keys, key)
	}

	sort.Slice(keys, func(i, j int) bool { return keys[i].SystemName() < keys[j].SystemName() })

	if e.cfg.MaxSystems > 0 && len(keys) > e.cfg.MaxSystems {
		keys = keys[:e.cfg.MaxSystems]
	}
	e.logger.Info("enumerated systems", "count", len(keys), "source", path)
	return keys, nil
}
