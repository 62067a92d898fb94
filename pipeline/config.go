package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/matterforge-labs/matterforge-go/internal/platform/env"
)

type Mode string

const (
	ModeFresh  Mode = "fresh"
	ModeResume Mode = "resume"
)

type Source string

const (
	SourceManual Source = "manual"
	SourceAuto   Source = "auto"
)

type Arity string

const (
	ArityBinary  Arity = "binary"
	ArityTernary Arity = "ternary"
)

type CompositionMode string

const (
	CompositionGenerated CompositionMode = "generated"
	CompositionMined     CompositionMode = "mined"
)

type ThermalPreset string

const (
	PresetStrict  ThermalPreset = "strict"
	PresetRelaxed ThermalPreset = "relaxed"
)

// ThermalLimits are the MD verdict thresholds: temperature fluctuation and
// absolute volume change, both in percent.
type ThermalLimits struct {
	TempFluctPct float64
	VolChangePct float64
}

var thermalPresets = map[ThermalPreset]ThermalLimits{
	PresetStrict:  {TempFluctPct: 5.0, VolChangePct: 10.0},
	PresetRelaxed: {TempFluctPct: 10.0, VolChangePct: 15.0},
}

type Config struct {
	Mode            Mode
	Source          Source
	Arity           Arity
	CompositionMode CompositionMode

	Elements       []string // manual mode: 2 or 3 element symbols
	AutoSourcePath string   // auto mode: prior results file with a formula column
	MaxSystems     int      // 0 = unlimited

	MixingRatioStep      float64
	SupercellSize        int
	TernarySupercellSize int
	TernaryTotals        []int

	StabilityThreshold        float64
	TernaryStabilityThreshold float64

	BatchRelaxation bool
	RelaxBatchSize  int

	ParallelMD bool
	MDWorkers  int

	MDTemperatureK float64
	MDSteps        int
	MDTimestepFs   float64
	MDSaveInterval int

	MinAtomsForMD int
	MDReplication int

	Preset                ThermalPreset
	EquilibrationFraction float64

	MinerBaseURL   string
	MinerAPIKey    string
	MaxMinedRatios int

	OutputDir      string
	CheckpointPath string
	Seed           int64

	RunValidation bool
	ReferencePath string

	PostgresMirror  bool
	UploadArtifacts bool
}

func ConfigFromEnv() (Config, error) {
	cfg := Config{
		Mode:            Mode(strings.ToLower(env.String("PIPELINE_MODE", string(ModeFresh)))),
		Source:          Source(strings.ToLower(env.String("PIPELINE_SOURCE", string(SourceManual)))),
		Arity:           Arity(strings.ToLower(env.String("PIPELINE_ARITY", string(ArityBinary)))),
		CompositionMode: CompositionMode(strings.ToLower(env.String("PIPELINE_COMPOSITION_MODE", string(CompositionGenerated)))),
		AutoSourcePath:  env.String("PIPELINE_AUTO_SOURCE", ""),
		MinerBaseURL:    env.String("MINER_BASE_URL", ""),
		MinerAPIKey:     env.String("MINER_API_KEY", ""),
		OutputDir:       env.String("PIPELINE_OUTPUT_DIR", "data/results"),
		CheckpointPath:  env.String("PIPELINE_CHECKPOINT", ""),
		ReferencePath:   env.String("PIPELINE_REFERENCE_PATH", ""),
		Preset:          ThermalPreset(strings.ToLower(env.String("PIPELINE_THERMAL_PRESET", string(PresetStrict)))),
	}

	cfg.Elements = splitElements(env.String("PIPELINE_ELEMENTS", "Cu,Ni"))

	var err error
	if cfg.MaxSystems, err = env.Int("PIPELINE_MAX_SYSTEMS", 0); err != nil {
		return Config{}, err
	}
	if cfg.MixingRatioStep, err = env.Float("PIPELINE_RATIO_STEP", 0.1); err != nil {
		return Config{}, err
	}
	if cfg.SupercellSize, err = env.Int("PIPELINE_SUPERCELL", 4); err != nil {
		return Config{}, err
	}
	if cfg.TernarySupercellSize, err = env.Int("PIPELINE_TERNARY_SUPERCELL", 3); err != nil {
		return Config{}, err
	}
	cfg.TernaryTotals = []int{3, 4, 5, 6}

	if cfg.StabilityThreshold, err = env.Float("PIPELINE_STABILITY_THRESHOLD", 0.05); err != nil {
		return Config{}, err
	}
	if cfg.TernaryStabilityThreshold, err = env.Float("PIPELINE_TERNARY_STABILITY_THRESHOLD", 0.10); err != nil {
		return Config{}, err
	}

	if cfg.BatchRelaxation, err = env.Bool("PIPELINE_BATCH_RELAXATION", true); err != nil {
		return Config{}, err
	}
	if cfg.RelaxBatchSize, err = env.Int("PIPELINE_RELAX_BATCH_SIZE", 4); err != nil {
		return Config{}, err
	}
	if cfg.ParallelMD, err = env.Bool("PIPELINE_PARALLEL_MD", true); err != nil {
		return Config{}, err
	}
	if cfg.MDWorkers, err = env.Int("PIPELINE_MD_WORKERS", 2); err != nil {
		return Config{}, err
	}

	if cfg.MDTemperatureK, err = env.Float("MD_TEMPERATURE_K", 1000); err != nil {
		return Config{}, err
	}
	if cfg.MDSteps, err = env.Int("MD_STEPS", 5000); err != nil {
		return Config{}, err
	}
	if cfg.MDTimestepFs, err = env.Float("MD_TIMESTEP_FS", 1.0); err != nil {
		return Config{}, err
	}
	if cfg.MDSaveInterval, err = env.Int("MD_SAVE_INTERVAL", 50); err != nil {
		return Config{}, err
	}
	if cfg.MinAtomsForMD, err = env.Int("MD_MIN_ATOMS", 200); err != nil {
		return Config{}, err
	}
	if cfg.MDReplication, err = env.Int("MD_REPLICATION", 2); err != nil {
		return Config{}, err
	}
	if cfg.EquilibrationFraction, err = env.Float("MD_EQUILIBRATION_FRACTION", 0.20); err != nil {
		return Config{}, err
	}

	if cfg.MaxMinedRatios, err = env.Int("MINER_MAX_RATIOS", 20); err != nil {
		return Config{}, err
	}

	seed, err := env.Int("PIPELINE_SEED", 1)
	if err != nil {
		return Config{}, err
	}
	cfg.Seed = int64(seed)

	if cfg.RunValidation, err = env.Bool("PIPELINE_VALIDATE", false); err != nil {
		return Config{}, err
	}
	if cfg.PostgresMirror, err = env.Bool("PIPELINE_POSTGRES_MIRROR", false); err != nil {
		return Config{}, err
	}
	if cfg.UploadArtifacts, err = env.Bool("PIPELINE_UPLOAD_ARTIFACTS", false); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeFresh, ModeResume:
	default:
		return fmt.Errorf("PIPELINE_MODE must be fresh or resume (got %q)", c.Mode)
	}
	switch c.Source {
	case SourceManual, SourceAuto:
	default:
		return fmt.Errorf("PIPELINE_SOURCE must be manual or auto (got %q)", c.Source)
	}
	switch c.Arity {
	case ArityBinary, ArityTernary:
	default:
		return fmt.Errorf("PIPELINE_ARITY must be binary or ternary (got %q)", c.Arity)
	}
	switch c.CompositionMode {
	case CompositionGenerated, CompositionMined:
	default:
		return fmt.Errorf("PIPELINE_COMPOSITION_MODE must be generated or mined (got %q)", c.CompositionMode)
	}
	if _, ok := thermalPresets[c.Preset]; !ok {
		return fmt.Errorf("PIPELINE_THERMAL_PRESET must be strict or relaxed (got %q)", c.Preset)
	}

	if c.Source == SourceManual {
		want := 2
		if c.Arity == ArityTernary {
			want = 3
		}
		if len(c.Elements) != want {
			return fmt.Errorf("PIPELINE_ELEMENTS must list %d symbols for %s runs (got %d)", want, c.Arity, len(c.Elements))
		}
	}
	if c.Source == SourceAuto && strings.TrimSpace(c.AutoSourcePath) == "" {
		return errors.New("PIPELINE_AUTO_SOURCE is required when PIPELINE_SOURCE=auto")
	}
	if c.CompositionMode == CompositionMined && strings.TrimSpace(c.MinerBaseURL) == "" {
		return errors.New("MINER_BASE_URL is required when PIPELINE_COMPOSITION_MODE=mined")
	}

	if c.MixingRatioStep <= 0 || c.MixingRatioStep >= 1 {
		return errors.New("PIPELINE_RATIO_STEP must be in (0, 1)")
	}
	if c.SupercellSize < 1 || c.TernarySupercellSize < 1 {
		return errors.New("supercell sizes must be >= 1")
	}
	if c.RelaxBatchSize < 1 {
		return errors.New("PIPELINE_RELAX_BATCH_SIZE must be >= 1")
	}
	if c.MDWorkers < 1 {
		return errors.New("PIPELINE_MD_WORKERS must be >= 1")
	}
	if c.MDTemperatureK <= 0 {
		return errors.New("MD_TEMPERATURE_K must be positive")
	}
	if c.MDSteps < 1 {
		return errors.New("MD_STEPS must be >= 1")
	}
	if c.MinAtomsForMD < 1 {
		return errors.New("MD_MIN_ATOMS must be >= 1")
	}
	if c.MDReplication < 1 {
		return errors.New("MD_REPLICATION must be >= 1")
	}
	if c.EquilibrationFraction < 0 || c.EquilibrationFraction >= 1 {
		return errors.New("MD_EQUILIBRATION_FRACTION must be in [0, 1)")
	}
	if c.StabilityThreshold < 0 || c.TernaryStabilityThreshold < 0 {
		return errors.New("stability thresholds must be >= 0")
	}
	return nil
}

// ThermalLimits resolves the configured preset.
func (c Config) ThermalLimits() ThermalLimits {
	return thermalPresets[c.Preset]
}

// SystemThreshold picks the hull-distance threshold for the run's arity.
func (c Config) SystemThreshold() float64 {
	if c.Arity == ArityTernary {
		return c.TernaryStabilityThreshold
	}
	return c.StabilityThreshold
}

// MixingRatios generates the uniform ratio grid, excluding the pure-element
// endpoints which are always relaxed separately.
func (c Config) MixingRatios() []float64 {
	out := make([]float64, 0, int(1/c.MixingRatioStep))
	for i := 1; ; i++ {
		r := float64(i) * c.MixingRatioStep
		if r >= 1.0-1e-9 {
			break
		}
		out = append(out, roundRatio(r))
	}
	return out
}

func roundRatio(r float64) float64 {
	return float64(int64(r*1e10+0.5)) / 1e10
}

func splitElements(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		symbol := strings.TrimSpace(part)
		if symbol == "" {
			continue
		}
		out = append(out, symbol)
	}
	return out
}
