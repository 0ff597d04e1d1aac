package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// AnalysisRun is the operational record of one analysis request, kept in
// SQLite for auditing and the /api/runs endpoint.
type AnalysisRun struct {
	ID              int64      `json:"id" db:"id"`
	RequestID       string     `json:"request_id" db:"request_id"`
	Platform        Platform   `json:"platform" db:"platform"`
	URL             string     `json:"url" db:"url"`
	StartedAt       time.Time  `json:"started_at" db:"started_at"`
	FinishedAt      *time.Time `json:"finished_at" db:"finished_at"`
	Status          RunStatus  `json:"status" db:"status"`
	Confidence      Confidence `json:"confidence" db:"confidence"`
	CacheHit        bool       `json:"cache_hit" db:"cache_hit"`
	CaptchaDetected bool       `json:"captcha_detected" db:"captcha_detected"`
	Attempts        int        `json:"attempts" db:"attempts"`
	ErrorMessage    string     `json:"error_message,omitempty" db:"error_message"`
}

type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// RunLog is a per-run log line persisted alongside AnalysisRun.
type RunLog struct {
	ID        int64     `json:"id" db:"id"`
	RunID     *int64    `json:"run_id" db:"run_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Level     LogLevel  `json:"level" db:"level"`
	Message   string    `json:"message" db:"message"`
	Platform  string    `json:"platform" db:"platform"`
}
