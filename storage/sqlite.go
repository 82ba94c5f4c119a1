package storage

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"meli_scrooper/models"
)

// SQLiteStore holds operational data: run history, run logs, the last
// result document per run and the daemon command queue.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS scrape_runs (
		id INTEGER PRIMARY KEY,
		run_key TEXT UNIQUE,
		site_id TEXT,
		url TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		error TEXT
	);

	CREATE TABLE IF NOT EXISTS scrape_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		component TEXT,
		site_id TEXT,
		message TEXT,
		fields TEXT
	);

	CREATE TABLE IF NOT EXISTS scrape_results (
		id INTEGER PRIMARY KEY,
		run_id INTEGER NOT NULL,
		url TEXT,
		listing_code TEXT,
		success BOOLEAN,
		blocked BOOLEAN,
		payload JSON,
		scraped_at DATETIME,
		FOREIGN KEY (run_id) REFERENCES scrape_runs(id)
	);

	CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY,
		command TEXT,
		params JSON,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		processed_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_commands_pending ON commands(processed_at) WHERE processed_at IS NULL;
	CREATE INDEX IF NOT EXISTS idx_logs_run ON scrape_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON scrape_runs(status, started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_url ON scrape_runs(url, started_at);
	CREATE INDEX IF NOT EXISTS idx_results_code ON scrape_results(listing_code, scraped_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// Runs
// =============================================================================

func (s *SQLiteStore) CreateRun(run *models.ScrapeRun) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO scrape_runs (run_key, site_id, url, started_at, status, error)
		VALUES (?, ?, ?, ?, ?, '')`,
		run.RunKey, run.SiteID, run.URL, run.StartedAt, run.Status)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(run *models.ScrapeRun) error {
	_, err := s.db.Exec(`
		UPDATE scrape_runs SET finished_at = ?, status = ?, error = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.Error, run.ID)
	return err
}

func (s *SQLiteStore) GetRun(id int64) (*models.ScrapeRun, error) {
	row := s.db.QueryRow(`
		SELECT id, run_key, site_id, url, started_at, finished_at, status, COALESCE(error, '')
		FROM scrape_runs WHERE id = ?`, id)

	var run models.ScrapeRun
	var finished sql.NullTime
	err := row.Scan(&run.ID, &run.RunKey, &run.SiteID, &run.URL, &run.StartedAt, &finished, &run.Status, &run.Error)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return &run, nil
}

// RecentRuns lists the newest runs first.
func (s *SQLiteStore) RecentRuns(limit int) ([]models.ScrapeRun, error) {
	rows, err := s.db.Query(`
		SELECT id, run_key, site_id, url, started_at, finished_at, status, COALESCE(error, '')
		FROM scrape_runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.ScrapeRun
	for rows.Next() {
		var run models.ScrapeRun
		var finished sql.NullTime
		if err := rows.Scan(&run.ID, &run.RunKey, &run.SiteID, &run.URL, &run.StartedAt, &finished, &run.Status, &run.Error); err != nil {
			return nil, err
		}
		if finished.Valid {
			run.FinishedAt = &finished.Time
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) Log(entry models.ScrapeLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	var fields []byte
	if len(entry.Fields) > 0 {
		var err error
		if fields, err = json.Marshal(entry.Fields); err != nil {
			return err
		}
	}
	_, err := s.db.Exec(`
		INSERT INTO scrape_logs (run_id, timestamp, level, component, site_id, message, fields)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.RunID, entry.Timestamp, entry.Level, entry.Component, entry.SiteID, entry.Message, string(fields))
	return err
}

func (s *SQLiteStore) GetLogs(runID int64) ([]models.ScrapeLog, error) {
	rows, err := s.db.Query(`
		SELECT id, run_id, timestamp, level, COALESCE(component, ''), COALESCE(site_id, ''), message, COALESCE(fields, '')
		FROM scrape_logs WHERE run_id = ? ORDER BY timestamp, id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.ScrapeLog
	for rows.Next() {
		var l models.ScrapeLog
		var fields string
		if err := rows.Scan(&l.ID, &l.RunID, &l.Timestamp, &l.Level, &l.Component, &l.SiteID, &l.Message, &fields); err != nil {
			return nil, err
		}
		if fields != "" {
			if err := json.Unmarshal([]byte(fields), &l.Fields); err != nil {
				return nil, err
			}
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// =============================================================================
// Results
// =============================================================================

// SaveResult stores the full output document of a run.
func (s *SQLiteStore) SaveResult(runID int64, out models.ScrapeOutput) error {
	payload, err := json.Marshal(out)
	if err != nil {
		return err
	}

	code := ""
	switch {
	case out.Result.Listing != nil:
		code = out.Result.Listing.ListingCode
	case out.Result.Blocked != nil:
		code = out.Result.Blocked.ListingCode
	}

	_, err = s.db.Exec(`
		INSERT INTO scrape_results (run_id, url, listing_code, success, blocked, payload, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, out.Result.URL(), code, out.Result.Success(), out.Result.IsBlocked(), string(payload), out.Meta.ScrapedAt)
	return err
}

// GetResultPayload returns the stored output document of a run, or nil.
func (s *SQLiteStore) GetResultPayload(runID int64) (json.RawMessage, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM scrape_results WHERE run_id = ?`, runID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(payload), nil
}

// =============================================================================
// Commands
// =============================================================================

func (s *SQLiteStore) EnqueueCommand(cmd models.CommandType, params *models.CommandParams) (int64, error) {
	var raw any
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return 0, err
		}
		raw = string(data)
	}
	result, err := s.db.Exec(`INSERT INTO commands (command, params, created_at) VALUES (?, ?, ?)`,
		cmd, raw, time.Now())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) GetPendingCommands() ([]models.Command, error) {
	rows, err := s.db.Query(`
		SELECT id, command, params, created_at, processed_at
		FROM commands WHERE processed_at IS NULL ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cmds []models.Command
	for rows.Next() {
		var cmd models.Command
		var params sql.NullString
		if err := rows.Scan(&cmd.ID, &cmd.Command, &params, &cmd.CreatedAt, &cmd.ProcessedAt); err != nil {
			return nil, err
		}
		if params.Valid {
			cmd.Params = json.RawMessage(params.String)
		}
		cmds = append(cmds, cmd)
	}
	return cmds, rows.Err()
}

func (s *SQLiteStore) MarkCommandProcessed(id int64) error {
	_, err := s.db.Exec(`UPDATE commands SET processed_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

func ParseCommandParams(cmd *models.Command) (*models.CommandParams, error) {
	if cmd.Params == nil || string(cmd.Params) == "null" {
		return &models.CommandParams{}, nil
	}
	var params models.CommandParams
	if err := json.Unmarshal(cmd.Params, &params); err != nil {
		return nil, err
	}
	return &params, nil
}
