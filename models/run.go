package models

import "time"

type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusBlocked   RunStatus = "blocked"
	RunStatusPartial   RunStatus = "partial"
	RunStatusFailed    RunStatus = "failed"
)

// ScrapeRun is one page-load attempt against one listing URL.
type ScrapeRun struct {
	ID         int64      `json:"id" db:"id"`
	RunKey     string     `json:"run_key" db:"run_key"`
	SiteID     string     `json:"site_id" db:"site_id"`
	URL        string     `json:"url" db:"url"`
	StartedAt  time.Time  `json:"started_at" db:"started_at"`
	FinishedAt *time.Time `json:"finished_at" db:"finished_at"`
	Status     RunStatus  `json:"status" db:"status"`
	Error      string     `json:"error" db:"error"`
}

// StatusFor maps an extraction result to the run status recorded for it.
func StatusFor(r Result) RunStatus {
	switch {
	case r.IsBlocked():
		return RunStatusBlocked
	case r.Success():
		return RunStatusCompleted
	default:
		return RunStatusPartial
	}
}
