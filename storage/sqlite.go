package storage

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"atlas_scraper/models"
)

// SQLiteStore is the operational store: one row per analysis run plus its
// log lines. Domain data lives in the file cache and the Postgres archive.
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
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS analysis_runs (
		id INTEGER PRIMARY KEY,
		request_id TEXT,
		platform TEXT,
		url TEXT,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		confidence TEXT,
		cache_hit BOOLEAN DEFAULT FALSE,
		captcha_detected BOOLEAN DEFAULT FALSE,
		attempts INTEGER DEFAULT 0,
		error_message TEXT
	);

	CREATE TABLE IF NOT EXISTS analysis_logs (
		id INTEGER PRIMARY KEY,
		run_id INTEGER,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		platform TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started ON analysis_runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON analysis_runs(status, started_at);
	CREATE INDEX IF NOT EXISTS idx_logs_run ON analysis_logs(run_id, timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) CreateRun(run *models.AnalysisRun) (int64, error) {
	result, err := s.db.Exec(`
		INSERT INTO analysis_runs (request_id, platform, url, started_at, status, attempts)
		VALUES (?, ?, ?, ?, ?, 0)`,
		run.RequestID, run.Platform, run.URL, run.StartedAt, run.Status)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *SQLiteStore) UpdateRun(run *models.AnalysisRun) error {
	_, err := s.db.Exec(`
		UPDATE analysis_runs SET finished_at = ?, status = ?, confidence = ?,
			cache_hit = ?, captcha_detected = ?, attempts = ?, error_message = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.Confidence,
		run.CacheHit, run.CaptchaDetected, run.Attempts, run.ErrorMessage, run.ID)
	return err
}

func (s *SQLiteStore) Log(runID *int64, level models.LogLevel, message, platform string) error {
	_, err := s.db.Exec(`
		INSERT INTO analysis_logs (run_id, timestamp, level, message, platform)
		VALUES (?, ?, ?, ?, ?)`,
		runID, time.Now(), level, message, platform)
	return err
}

// RecentRuns returns the newest runs first, capped at limit.
func (s *SQLiteStore) RecentRuns(limit int) ([]models.AnalysisRun, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
		SELECT id, request_id, platform, url, started_at, finished_at, status,
			COALESCE(confidence, ''), cache_hit, captcha_detected, attempts, COALESCE(error_message, '')
		FROM analysis_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.AnalysisRun
	for rows.Next() {
		var run models.AnalysisRun
		var finished sql.NullTime
		if err := rows.Scan(&run.ID, &run.RequestID, &run.Platform, &run.URL, &run.StartedAt,
			&finished, &run.Status, &run.Confidence, &run.CacheHit, &run.CaptchaDetected,
			&run.Attempts, &run.ErrorMessage); err != nil {
			return nil, err
		}
		if finished.Valid {
			t := finished.Time
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RunLogs returns a run's log lines, oldest first, capped at limit.
func (s *SQLiteStore) RunLogs(runID int64, limit int) ([]models.RunLog, error) {
	if limit <= 0 {
		limit = 200
	}

	rows, err := s.db.Query(`
		SELECT id, run_id, timestamp, level, message, COALESCE(platform, '')
		FROM analysis_logs WHERE run_id = ? ORDER BY timestamp ASC LIMIT ?`, runID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.RunLog
	for rows.Next() {
		var entry models.RunLog
		var rid sql.NullInt64
		if err := rows.Scan(&entry.ID, &rid, &entry.Timestamp, &entry.Level,
			&entry.Message, &entry.Platform); err != nil {
			return nil, err
		}
		if rid.Valid {
			v := rid.Int64
			entry.RunID = &v
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// RunStats summarizes run outcomes since a cutoff, for the daily stats job.
type RunStats struct {
	Total     int
	Completed int
	Failed    int
	CacheHits int
	Captchas  int
}

func (s *SQLiteStore) StatsSince(cutoff time.Time) (*RunStats, error) {
	row := s.db.QueryRow(`
		SELECT COUNT(*),
			SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END),
			SUM(CASE WHEN cache_hit THEN 1 ELSE 0 END),
			SUM(CASE WHEN captcha_detected THEN 1 ELSE 0 END)
		FROM analysis_runs WHERE started_at >= ?`, cutoff)

	var stats RunStats
	var completed, failed, hits, captchas sql.NullInt64
	if err := row.Scan(&stats.Total, &completed, &failed, &hits, &captchas); err != nil {
		return nil, err
	}
	stats.Completed = int(completed.Int64)
	stats.Failed = int(failed.Int64)
	stats.CacheHits = int(hits.Int64)
	stats.Captchas = int(captchas.Int64)
	return &stats, nil
}
