package models

import "time"

type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// ScrapeLog is one log line attached to a scrape run. Component names the
// emitting package (orchestrator, recheck, listings); Fields keeps the rest of
// the structured context, such as url or listing_code.
type ScrapeLog struct {
	ID        int64             `json:"id" db:"id"`
	RunID     int64             `json:"run_id" db:"run_id"`
	Timestamp time.Time         `json:"timestamp" db:"timestamp"`
	Level     LogLevel          `json:"level" db:"level"`
	Component string            `json:"component,omitempty" db:"component"`
	SiteID    string            `json:"site_id,omitempty" db:"site_id"`
	Message   string            `json:"message" db:"message"`
	Fields    map[string]string `json:"fields,omitempty" db:"fields"`
}
