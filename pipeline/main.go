package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/matterforge-labs/matterforge-go/internal/forcefield"
	"github.com/matterforge-labs/matterforge-go/internal/platform/objectstore"
	"github.com/matterforge-labs/matterforge-go/internal/platform/postgres"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil)).With("service", "pipeline")
	slog.SetDefault(logger)

	cfg, err := ConfigFromEnv()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	state, err := NewStateManager(logger, cfg)
	if err != nil {
		logger.Error("state manager init failed", "error", err)
		os.Exit(1)
	}
	logger.Info("run state ready",
		"mode", cfg.Mode, "run_id", state.RunID(), "results", state.Path())

	pipe, err := NewPipeline(logger, cfg, forcefield.NewCalculator, state)
	if err != nil {
		logger.Error("pipeline init failed", "error", err)
		os.Exit(1)
	}

	if cfg.CompositionMode == CompositionMined {
		pipe.Miner = NewMinerClient(logger, cfg.MinerBaseURL, cfg.MinerAPIKey)
	}

	// The Postgres mirror and artifact uploads are conveniences on top of
	// the JSON checkpoint; an unreachable backend degrades to local-only
	// output instead of blocking the run.
	if cfg.PostgresMirror {
		pgCfg, err := postgres.ConfigFromEnv()
		if err != nil {
			logger.Error("invalid postgres configuration", "error", err)
			os.Exit(2)
		}
		db, err := postgres.Open(ctx, pgCfg)
		if err != nil {
			logger.Warn("postgres unavailable, mirror disabled", "error", err)
		} else {
			defer db.Close()
			store := NewRecordStore(logger, db)
			if err := store.EnsureSchema(ctx); err != nil {
				logger.Warn("schema setup failed, mirror disabled", "error", err)
			} else {
				pipe.Store = store
			}
		}
	}

	if cfg.UploadArtifacts {
		osCfg, err := objectstore.ConfigFromEnv()
		if err != nil {
			logger.Error("invalid objectstore configuration", "error", err)
			os.Exit(2)
		}
		client, err := objectstore.NewMinIOClient(osCfg)
		if err != nil {
			logger.Warn("objectstore unavailable, uploads disabled", "error", err)
		} else if err := objectstore.EnsureBuckets(ctx, client, osCfg); err != nil {
			logger.Warn("bucket setup failed, uploads disabled", "error", err)
		} else {
			pipe.Artifacts = NewArtifactStore(logger, client, osCfg)
		}
	}

	summary, err := pipe.Run(ctx)
	if err != nil {
		logger.Error("pipeline run failed", "error", err)
		os.Exit(1)
	}

	logger.Info("pipeline run complete",
		"systems_processed", summary.SystemsProcessed,
		"systems_skipped", summary.SystemsSkipped,
		"systems_failed", summary.SystemsFailed,
		"records", summary.Records,
		"stable_candidates", summary.StableCandidates,
		"md_simulations", summary.MDSimulations)

	if cfg.RunValidation {
		if err := runValidation(ctx, logger, cfg, state, pipe.Artifacts); err != nil {
			logger.Error("validation failed", "error", err)
			os.Exit(1)
		}
	}
}

// runValidation scores every recorded candidate that has a reference entry
// and writes the report alongside the results file.
func runValidation(ctx context.Context, logger *slog.Logger, cfg Config, state *StateManager, artifacts *ArtifactStore) error {
	refs, err := LoadReferences(cfg.ReferencePath)
	if err != nil {
		return err
	}
	scorer := NewValidationScorer(refs)

	reports := make([]ValidationReport, 0)
	for _, rec := range state.Records() {
		if rec.Error != "" {
			continue
		}
		report, ok := scorer.Score(rec)
		if !ok {
			continue
		}
		reports = append(reports, report)
		logger.Info("validated candidate",
			"formula", report.Formula,
			"reference", report.MatchedReference,
			"lattice_error_pct", report.LatticeErrorPct,
			"density_error_pct", report.DensityErrorPct,
			"score", report.Score)
	}

	raw, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(cfg.OutputDir, "validation_report.json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return err
	}
	logger.Info("wrote validation report", "path", path, "candidates", len(reports))

	if artifacts != nil {
		artifacts.UploadValidationReports(ctx, state.RunID(), reports)
	}
	return nil
}
