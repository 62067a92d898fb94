package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/matterforge-labs/matterforge-go/internal/matter"
)

// MinerClient queries an external materials database for known compositions
// of a system, so screening concentrates on ratios that exist in the
// literature instead of a blind grid. Every failure is recoverable: callers
// fall back to the generated grid.
type MinerClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

func NewMinerClient(logger *slog.Logger, baseURL, apiKey string) *MinerClient {
	return &MinerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

type minerResponse struct {
	Results []struct {
		Formula string `json:"formula"`
	} `json:"results"`
}

// FetchBinaryRatios returns the dopant fractions of known elemA-elemB phases,
// rounded to 3 decimals, deduplicated, sorted, capped at maxRatios. Pure
// endpoints are excluded.
func (c *MinerClient) FetchBinaryRatios(ctx context.Context, elemA, elemB string, maxRatios int) ([]float64, error) {
	formulas, err := c.searchFormulas(ctx, []string{elemA, elemB})
	if err != nil {
		return nil, err
	}

	seen := make(map[float64]struct{})
	ratios := make([]float64, 0, len(formulas))
	for _, formula := range formulas {
		comp, err := matter.ParseFormula(formula)
		if err != nil || comp.NumElements() != 2 {
			continue
		}
		frac := comp.Fraction(elemB)
		if frac <= 0 || frac >= 1 {
			continue
		}
		frac = math.Round(frac*1000) / 1000
		if _, ok := seen[frac]; ok {
			continue
		}
		seen[frac] = struct{}{}
		ratios = append(ratios, frac)
	}

	sort.Float64s(ratios)
	if maxRatios > 0 && len(ratios) > maxRatios {
		ratios = ratios[:maxRatios]
	}
	c.logger.Info("mined binary ratios", "system", elemA+"-"+elemB, "count", len(ratios))
	return ratios, nil
}

// FetchTernaryRatios returns reduced integer count triples for known phases
// of the three elements, in the element order given.
func (c *MinerClient) FetchTernaryRatios(ctx context.Context, elems [3]string, maxRatios int) ([][3]int, error) {
	formulas, err := c.searchFormulas(ctx, elems[:])
	if err != nil {
		return nil, err
	}

	seen := make(map[[3]int]struct{})
	ratios := make([][3]int, 0, len(formulas))
	for _, formula := range formulas {
		comp, err := matter.ParseFormula(formula)
		if err != nil || comp.NumElements() != 3 {
			continue
		}
		reduced := comp.Reduce()
		ratio := [3]int{reduced.Count(elems[0]), reduced.Count(elems[1]), reduced.Count(elems[2])}
		if ratio[0] < 1 || ratio[1] < 1 || ratio[2] < 1 {
			continue
		}
		if _, ok := seen[ratio]; ok {
			continue
		}
		seen[ratio] = struct{}{}
		ratios = append(ratios, ratio)
	}

	sort.Slice(ratios, func(i, j int) bool {
		if ratios[i][0] != ratios[j][0] {
			return ratios[i][0] < ratios[j][0]
		}
		if ratios[i][1] != ratios[j][1] {
			return ratios[i][1] < ratios[j][1]
		}
		return ratios[i][2] < ratios[j][2]
	})
	if maxRatios > 0 && len(ratios) > maxRatios {
		ratios = ratios[:maxRatios]
	}
	c.logger.Info("mined ternary ratios", "system", strings.Join(elems[:], "-"), "count", len(ratios))
	return ratios, nil
}

func (c *MinerClient) searchFormulas(ctx context.Context, elements []string) ([]string, error) {
	q := url.Values{}
	q.Set("elements", strings.Join(elements, ","))
	q.Set("fields", "formula")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/materials/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query miner: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("miner returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed minerResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode miner response: %w", err)
	}

	formulas := make([]string, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		formulas = append(formulas, r.Formula)
	}
	return formulas, nil
}
