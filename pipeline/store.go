package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// RecordStore mirrors screening records into Postgres for the results
// service. The JSON checkpoint stays authoritative; mirror failures are
// logged and never abort a run.
type RecordStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewRecordStore(logger *slog.Logger, db *sql.DB) *RecordStore {
	return &RecordStore{db: db, logger: logger}
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS systems (
    system_id   BIGSERIAL PRIMARY KEY,
    name        TEXT NOT NULL UNIQUE,
    arity       INT  NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS simulation_results (
    result_id          BIGSERIAL PRIMARY KEY,
    system_id          BIGINT NOT NULL REFERENCES systems(system_id),
    run_id             TEXT NOT NULL,
    formula            TEXT NOT NULL,
    total_atoms        INT,
    lattice_a          DOUBLE PRECISION,
    density            DOUBLE PRECISION,
    energy_per_atom    DOUBLE PRECISION,
    energy_above_hull  DOUBLE PRECISION,
    is_stable          BOOLEAN NOT NULL DEFAULT FALSE,
    md_performed       BOOLEAN NOT NULL DEFAULT FALSE,
    md_avg_temperature        DOUBLE PRECISION,
    md_temp_fluctuation       DOUBLE PRECISION,
    md_avg_energy_per_atom    DOUBLE PRECISION,
    md_volume_change_percent  DOUBLE PRECISION,
    md_thermally_stable       BOOLEAN,
    error_message      TEXT,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (system_id, formula)
);
`

func (s *RecordStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// MirrorSystem upserts one completed system's records. Re-running a system
// leaves existing rows in place thanks to the uniqueness constraint.
func (s *RecordStore) MirrorSystem(ctx context.Context, runID, system string, arity int, records []DetailedRecord) {
	systemID, err := s.upsertSystem(ctx, system, arity)
	if err != nil {
		s.logger.Warn("postgres mirror: upsert system failed", "system", system, "error", err)
		return
	}

	for _, rec := range records {
		if err := s.insertRecord(ctx, systemID, runID, rec); err != nil {
			s.logger.Warn("postgres mirror: insert record failed",
				"system", system, "formula", rec.Formula, "error", err)
		}
	}
}

func (s *RecordStore) upsertSystem(ctx context.Context, name string, arity int) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO systems (name, arity) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET arity = EXCLUDED.arity
		RETURNING system_id`,
		name, arity).Scan(&id)
	return id, err
}

func (s *RecordStore) insertRecord(ctx context.Context, systemID int64, runID string, rec DetailedRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO simulation_results (
			system_id, run_id, formula, total_atoms, lattice_a, density,
			energy_per_atom, energy_above_hull, is_stable, md_performed,
			md_avg_temperature, md_temp_fluctuation, md_avg_energy_per_atom,
			md_volume_change_percent, md_thermally_stable, error_message
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NULLIF($16, ''))
		ON CONFLICT (system_id, formula) DO NOTHING`,
		systemID, runID, rec.Formula, rec.TotalAtoms, rec.LatticeA, rec.Density,
		rec.EnergyPerAtom, rec.EnergyAboveHull, rec.IsStable, rec.MDPerformed,
		rec.MDAvgTemperature, rec.MDTempFluctuation, rec.MDAvgEnergyPerAtom,
		rec.MDVolumeChangePct, rec.MDThermallyStable, rec.Error)
	return err
}

// UpdateMD backfills MD columns on an already-mirrored row.
func (s *RecordStore) UpdateMD(ctx context.Context, system, formula string, v MDVerdict) {
	_, err := s.db.ExecContext(ctx, `
		UPDATE simulation_results r SET
			md_performed = TRUE,
			md_avg_temperature = $3,
			md_temp_fluctuation = $4,
			md_avg_energy_per_atom = $5,
			md_volume_change_percent = $6,
			md_thermally_stable = $7
		FROM systems s
		WHERE r.system_id = s.system_id AND s.name = $1 AND r.formula = $2`,
		system, formula, v.AvgTemperature, v.TempFluctuationPct,
		v.AvgEnergyPerAtom, v.VolumeChangePct, v.ThermallyStable)
	if err != nil {
		s.logger.Warn("postgres mirror: update MD failed",
			"system", system, "formula", formula, "error", err)
	}
}
