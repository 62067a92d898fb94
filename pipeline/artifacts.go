package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/minio/minio-go/v7"

	"github.com/matterforge-labs/matterforge-go/internal/forcefield"
	"github.com/matterforge-labs/matterforge-go/internal/platform/objectstore"
)

// ArtifactStore uploads bulky run outputs (trajectories, validation reports)
// to object storage, keyed by run so reruns never clobber each other.
type ArtifactStore struct {
	client *minio.Client
	cfg    objectstore.Config
	logger *slog.Logger
}

func NewArtifactStore(logger *slog.Logger, client *minio.Client, cfg objectstore.Config) *ArtifactStore {
	return &ArtifactStore{client: client, cfg: cfg, logger: logger}
}

// UploadTrajectory stores one MD trajectory as JSON. Upload failures are
// logged, not fatal: the in-band verdict already made it into the records.
func (a *ArtifactStore) UploadTrajectory(ctx context.Context, runID, system string, temperatureK float64, traj *forcefield.Trajectory) {
	key := fmt.Sprintf("%s/%s/md_%s_%.0fK.json", runID, system, traj.Formula, temperatureK)
	if err := a.putJSON(ctx, a.cfg.BucketTrajectories, key, traj); err != nil {
		a.logger.Warn("trajectory upload failed", "key", key, "error", err)
		return
	}
	a.logger.Info("uploaded trajectory", "bucket", a.cfg.BucketTrajectories, "key", key)
}

// UploadValidationReports stores the end-of-run validation summary.
func (a *ArtifactStore) UploadValidationReports(ctx context.Context, runID string, reports []ValidationReport) {
	key := fmt.Sprintf("%s/validation_report.json", runID)
	if err := a.putJSON(ctx, a.cfg.BucketReports, key, reports); err != nil {
		a.logger.Warn("validation report upload failed", "key", key, "error", err)
		return
	}
	a.logger.Info("uploaded validation report", "bucket", a.cfg.BucketReports, "key", key)
}

func (a *ArtifactStore) putJSON(ctx context.Context, bucket, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %q: %w", key, err)
	}
	_, err = a.client.PutObject(ctx, bucket, key, bytes.NewReader(raw), int64(len(raw)),
		minio.PutObjectOptions{ContentType: "application/json"})
	return err
}
