package models

import (
	"encoding/json"
	"fmt"
	"time"
)

type CommandType string

const (
	CmdScrapeURL CommandType = "scrape_url"
	CmdScrapeAll CommandType = "scrape_watched"
	CmdPause     CommandType = "pause"
	CmdResume    CommandType = "resume"
	CmdRecheck   CommandType = "recheck_stale"
)

// CommandTypes lists every command the daemon understands.
var CommandTypes = []CommandType{CmdScrapeURL, CmdScrapeAll, CmdPause, CmdResume, CmdRecheck}

// ParseCommandType rejects names the daemon would not handle.
func ParseCommandType(name string) (CommandType, error) {
	for _, c := range CommandTypes {
		if string(c) == name {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown command %q (want one of %v)", name, CommandTypes)
}

type Command struct {
	ID          int64           `json:"id" db:"id"`
	Command     CommandType     `json:"command" db:"command"`
	Params      json.RawMessage `json:"params" db:"params"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at" db:"processed_at"`
}

type CommandParams struct {
	URL               string `json:"url,omitempty"`
	IncludeHTML       bool   `json:"includeHtml,omitempty"`
	IncludeScreenshot bool   `json:"includeScreenshot,omitempty"`
}
