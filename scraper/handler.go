package scraper

import (
	"context"
	"errors"
)

var (
	ErrNoResult          = errors.New("page produced no content")
	ErrEgressUnavailable = errors.New("egress unavailable")
)

// Request is one listing to load.
type Request struct {
	URL               string `json:"url"`
	IncludeHTML       bool   `json:"includeHtml"`
	IncludeScreenshot bool   `json:"includeScreenshot"`
}

// Capture is the settled state of a target page. HTML is always filled;
// Screenshot only when requested.
type Capture struct {
	HTML       string
	Title      string
	Screenshot []byte
	UserAgent  string
}

// Navigator loads a listing page the way a person would and snapshots it
// once it has settled.
type Navigator interface {
	Fetch(ctx context.Context, req Request) (*Capture, error)
	Close()
}

// EgressChecker confirms the network exit before a page load.
type EgressChecker interface {
	Egress(ctx context.Context) (string, error)
}
