package logging

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"meli_scrooper/models"
)

// Field keys that route an entry into the scrape_logs table.
const (
	FieldRunID     = "run_id"
	FieldSite      = "site"
	FieldComponent = "component"
)

// LogFunc persists one run log line.
type LogFunc func(entry models.ScrapeLog) error

// RunHook copies entries carrying a run_id field to a LogFunc so the run
// history keeps its own log trail next to the process log.
type RunHook struct {
	sink LogFunc
}

func NewRunHook(sink LogFunc) *RunHook {
	return &RunHook{sink: sink}
}

func (h *RunHook) Levels() []logrus.Level {
	return []logrus.Level{
		logrus.PanicLevel,
		logrus.FatalLevel,
		logrus.ErrorLevel,
		logrus.WarnLevel,
		logrus.InfoLevel,
	}
}

func (h *RunHook) Fire(entry *logrus.Entry) error {
	raw, ok := entry.Data[FieldRunID]
	if !ok {
		return nil
	}
	runID, ok := raw.(int64)
	if !ok {
		return nil
	}
	line := models.ScrapeLog{
		RunID:     runID,
		Timestamp: entry.Time,
		Level:     levelFor(entry.Level),
		Message:   entry.Message,
	}
	for k, v := range entry.Data {
		switch k {
		case FieldRunID:
		case FieldSite:
			line.SiteID, _ = v.(string)
		case FieldComponent:
			line.Component, _ = v.(string)
		default:
			if line.Fields == nil {
				line.Fields = make(map[string]string)
			}
			line.Fields[k] = fmt.Sprint(v)
		}
	}
	return h.sink(line)
}

func levelFor(l logrus.Level) models.LogLevel {
	switch {
	case l <= logrus.ErrorLevel:
		return models.LogLevelError
	case l == logrus.WarnLevel:
		return models.LogLevelWarn
	default:
		return models.LogLevelInfo
	}
}
