package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Checkpoint is the durable run state: every record accumulated so far plus
// identity. It is rewritten in full after each completed system, so a killed
// run resumes at system granularity.
type Checkpoint struct {
	RunID     string           `json:"run_id"`
	UpdatedAt time.Time        `json:"updated_at"`
	Records   []DetailedRecord `json:"records"`
}

// StateManager owns the results file lifecycle: fresh runs start a new
// timestamped file, resume runs reload the newest one (or an explicit path).
type StateManager struct {
	logger *slog.Logger
	path   string
	state  Checkpoint
}

func NewStateManager(logger *slog.Logger, cfg Config) (*StateManager, error) {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	if cfg.Mode == ModeResume {
		m, err := resumeState(logger, cfg)
		if err != nil {
			return nil, err
		}
		if m != nil {
			return m, nil
		}
		logger.Warn("no resumable results found, starting fresh", "dir", cfg.OutputDir)
	}
	return freshState(logger, cfg), nil
}

func freshState(logger *slog.Logger, cfg Config) *StateManager {
	name := fmt.Sprintf("screening_results_%s.json", time.Now().Format("20060102_150405"))
	return &StateManager{
		logger: logger,
		path:   filepath.Join(cfg.OutputDir, name),
		state:  Checkpoint{RunID: uuid.NewString()},
	}
}

func resumeState(logger *slog.Logger, cfg Config) (*StateManager, error) {
	path := cfg.CheckpointPath
	if path == "" {
		matches, err := filepath.Glob(filepath.Join(cfg.OutputDir, "screening_results_*.json"))
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, nil
		}
		sort.Strings(matches)
		path = matches[len(matches)-1]
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read checkpoint %q: %w", path, err)
	}

	var state Checkpoint
	if err := json.Unmarshal(raw, &state); err != nil {
		logger.Warn("checkpoint is corrupt, ignoring it", "path", path, "error", err)
		return nil, nil
	}
	if state.RunID == "" {
		state.RunID = uuid.NewString()
	}

	logger.Info("resuming from checkpoint",
		"path", path, "run_id", state.RunID, "records", len(state.Records))
	return &StateManager{logger: logger, path: path, state: state}, nil
}

func (m *StateManager) RunID() string { return m.state.RunID }

func (m *StateManager) Path() string { return m.path }

func (m *StateManager) Records() []DetailedRecord { return m.state.Records }

// CompletedSystems returns the set of system names that already have records.
// A system with only an error record still counts as completed.
func (m *StateManager) CompletedSystems() map[string]bool {
	done := make(map[string]bool)
	for _, rec := range m.state.Records {
		done[rec.System] = true
	}
	return done
}

// AppendSystem adds a finished system's records and persists the whole
// accumulated state so an interruption loses at most one system.
func (m *StateManager) AppendSystem(system string, records []DetailedRecord) error {
	m.state.Records = append(m.state.Records, records...)
	m.state.UpdatedAt = time.Now().UTC()

	if err := m.persist(); err != nil {
		return err
	}

	csvPath := strings.TrimSuffix(m.path, ".json") + ".csv"
	if err := WriteRecordsCSV(csvPath, m.state.Records); err != nil {
		m.logger.Warn("failed to write csv mirror", "path", csvPath, "error", err)
	}

	m.logger.Info("saved checkpoint",
		"system", system, "new_records", len(records), "total_records", len(m.state.Records))
	return nil
}

// persist writes via tmp file and rename so readers never observe a torn
// checkpoint.
func (m *StateManager) persist() error {
	raw, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}
