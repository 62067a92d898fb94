package main

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type resultsAPI struct {
	logger *slog.Logger
	db     *sql.DB
}

func newResultsAPI(logger *slog.Logger, db *sql.DB) *resultsAPI {
	return &resultsAPI{
		logger: logger,
		db:     db,
	}
}

func (api *resultsAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /systems", api.handleListSystems)
	mux.HandleFunc("GET /systems/{name}/records", api.handleSystemRecords)
	mux.HandleFunc("GET /records", api.handleListRecords)
	mux.HandleFunc("GET /summary", api.handleSummary)
}

type systemEntry struct {
	SystemID    int64     `json:"system_id"`
	Name        string    `json:"name"`
	Arity       int       `json:"arity"`
	CreatedAt   time.Time `json:"created_at"`
	Records     int       `json:"records"`
	StableCount int       `json:"stable_count"`
}

func (api *resultsAPI) handleListSystems(w http.ResponseWriter, r *http.Request) {
	limit := clampInt(parseIntQuery(r, "limit", 100), 1, 500)

	rows, err := api.db.QueryContext(r.Context(), `
		SELECT s.system_id, s.name, s.arity, s.created_at,
		       COUNT(r.result_id), COUNT(r.result_id) FILTER (WHERE r.is_stable)
		FROM systems s
		LEFT JOIN simulation_results r ON r.system_id = s.system_id
		GROUP BY s.system_id
		ORDER BY s.name
		LIMIT $1`, limit)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer rows.Close()

	systems := make([]systemEntry, 0, limit)
	for rows.Next() {
		var s systemEntry
		if err := rows.Scan(&s.SystemID, &s.Name, &s.Arity, &s.CreatedAt, &s.Records, &s.StableCount); err != nil {
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}
		systems = append(systems, s)
	}
	if err := rows.Err(); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	api.writeJSON(w, http.StatusOK, map[string]any{"systems": systems})
}

type resultEntry struct {
	ResultID        int64     `json:"result_id"`
	System          string    `json:"system"`
	RunID           string    `json:"run_id"`
	Formula         string    `json:"formula"`
	TotalAtoms      int       `json:"total_atoms"`
	LatticeA        float64   `json:"lattice_a"`
	Density         float64   `json:"density"`
	EnergyPerAtom   float64   `json:"energy_per_atom"`
	EnergyAboveHull float64   `json:"energy_above_hull"`
	IsStable        bool      `json:"is_stable"`
	MDPerformed     bool      `json:"md_performed"`
	MDAvgTemp       *float64  `json:"md_avg_temperature"`
	MDTempFluct     *float64  `json:"md_temp_fluctuation"`
	MDAvgEnergy     *float64  `json:"md_avg_energy_per_atom"`
	MDVolumeChange  *float64  `json:"md_volume_change_percent"`
	MDStable        *bool     `json:"md_thermally_stable"`
	Error           string    `json:"error,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

const resultColumns = `r.result_id, s.name, r.run_id, r.formula, r.total_atoms, r.lattice_a, r.density,
	r.energy_per_atom, r.energy_above_hull, r.is_stable, r.md_performed,
	r.md_avg_temperature, r.md_temp_fluctuation, r.md_avg_energy_per_atom,
	r.md_volume_change_percent, r.md_thermally_stable, r.error_message, r.created_at`

func (api *resultsAPI) handleSystemRecords(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" {
		api.writeError(w, r, http.StatusBadRequest, "system_name_required")
		return
	}

	rows, err := api.db.QueryContext(r.Context(), `
		SELECT `+resultColumns+`
		FROM simulation_results r
		JOIN systems s ON s.system_id = r.system_id
		WHERE s.name = $1
		ORDER BY r.energy_above_hull, r.formula`, name)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer rows.Close()

	records, ok := api.collectResults(w, r, rows)
	if !ok {
		return
	}
	if len(records) == 0 {
		api.writeError(w, r, http.StatusNotFound, "system_not_found")
		return
	}
	api.writeJSON(w, http.StatusOK, map[string]any{"system": name, "records": records})
}

func (api *resultsAPI) handleListRecords(w http.ResponseWriter, r *http.Request) {
	limit := clampInt(parseIntQuery(r, "limit", 100), 1, 500)
	beforeID := parseInt64Query(r, "before_result_id", 0)

	where := make([]string, 0, 4)
	args := make([]any, 0, 5)

	if beforeID > 0 {
		args = append(args, beforeID)
		where = append(where, "r.result_id < $"+strconv.Itoa(len(args)))
	}
	if v, ok := parseBoolQuery(r, "stable"); ok {
		args = append(args, v)
		where = append(where, "r.is_stable = $"+strconv.Itoa(len(args)))
	}
	if v, ok := parseBoolQuery(r, "md_performed"); ok {
		args = append(args, v)
		where = append(where, "r.md_performed = $"+strconv.Itoa(len(args)))
	}
	if v, ok := parseBoolQuery(r, "md_thermally_stable"); ok {
		args = append(args, v)
		where = append(where, "r.md_thermally_stable = $"+strconv.Itoa(len(args)))
	}

	args = append(args, limit)
	query := `SELECT ` + resultColumns + `
		FROM simulation_results r
		JOIN systems s ON s.system_id = r.system_id`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY r.result_id DESC LIMIT $" + strconv.Itoa(len(args))

	rows, err := api.db.QueryContext(r.Context(), query, args...)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer rows.Close()

	records, ok := api.collectResults(w, r, rows)
	if !ok {
		return
	}

	resp := map[string]any{"records": records}
	if len(records) > 0 {
		resp["next_before_result_id"] = records[len(records)-1].ResultID
	}
	api.writeJSON(w, http.StatusOK, resp)
}

type summaryResponse struct {
	Systems         int `json:"systems"`
	Records         int `json:"records"`
	StableRecords   int `json:"stable_records"`
	MDPerformed     int `json:"md_performed"`
	ThermallyStable int `json:"thermally_stable"`
	FailedSystems   int `json:"failed_systems"`
}

func (api *resultsAPI) handleSummary(w http.ResponseWriter, r *http.Request) {
	var resp summaryResponse
	err := api.db.QueryRowContext(r.Context(), `
		SELECT
			(SELECT COUNT(*) FROM systems),
			COUNT(*),
			COUNT(*) FILTER (WHERE is_stable),
			COUNT(*) FILTER (WHERE md_performed),
			COUNT(*) FILTER (WHERE md_thermally_stable),
			COUNT(*) FILTER (WHERE error_message IS NOT NULL)
		FROM simulation_results`).Scan(
		&resp.Systems, &resp.Records, &resp.StableRecords,
		&resp.MDPerformed, &resp.ThermallyStable, &resp.FailedSystems)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	api.writeJSON(w, http.StatusOK, resp)
}

func (api *resultsAPI) collectResults(w http.ResponseWriter, r *http.Request, rows *sql.Rows) ([]resultEntry, bool) {
	records := make([]resultEntry, 0, 64)
	for rows.Next() {
		var (
			rec      resultEntry
			errorMsg sql.NullString
		)
		if err := rows.Scan(
			&rec.ResultID, &rec.System, &rec.RunID, &rec.Formula, &rec.TotalAtoms,
			&rec.LatticeA, &rec.Density, &rec.EnergyPerAtom, &rec.EnergyAboveHull,
			&rec.IsStable, &rec.MDPerformed, &rec.MDAvgTemp, &rec.MDTempFluct,
			&rec.MDAvgEnergy, &rec.MDVolumeChange, &rec.MDStable, &errorMsg, &rec.CreatedAt,
		); err != nil {
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
			return nil, false
		}
		rec.Error = strings.TrimSpace(errorMsg.String)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return nil, false
	}
	return records, true
}

func (api *resultsAPI) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}

func (api *resultsAPI) writeError(w http.ResponseWriter, r *http.Request, status int, code string) {
	api.writeJSON(w, status, map[string]any{
		"error":      code,
		"request_id": r.Header.Get("X-Request-Id"),
	})
}

func parseIntQuery(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}

func parseInt64Query(r *http.Request, key string, def int64) int64 {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func parseBoolQuery(r *http.Request, key string) (bool, bool) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return false, false
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return parsed, true
}

func clampInt(v int, min int, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
