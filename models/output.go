package models

import (
	"encoding/json"
	"time"
)

// ScrapeMeta is what the navigation layer knows about a page load that the
// extractor does not: timing, egress and the optional captured payloads.
type ScrapeMeta struct {
	ScrapedAt         time.Time     `json:"scraped_at"`
	Duration          time.Duration `json:"-"`
	ItemID            string        `json:"item_id"`
	PageTitle         string        `json:"page_title"`
	UserAgent         string        `json:"user_agent"`
	ProxyCountry      string        `json:"proxy_country,omitempty"`
	Egress            string        `json:"egress,omitempty"`
	Screenshot        []byte        `json:"-"`
	HTML              string        `json:"-"`
	ScreenshotKey     string        `json:"screenshot_key,omitempty"`
	HTMLKey           string        `json:"html_key,omitempty"`
	IncludeHTML       bool          `json:"-"`
	IncludeScreenshot bool          `json:"-"`
}

// ScrapeOutput is the final document handed to persistence and printed by the CLI.
type ScrapeOutput struct {
	Result Result
	Meta   ScrapeMeta
}

type outputMetadata struct {
	ScrapedAt        string `json:"scrapedAt"`
	PageTitle        string `json:"pageTitle,omitempty"`
	ImagesCount      int    `json:"imagesCount"`
	ScrapingDuration int64  `json:"scrapingDuration"`
	ItemID           string `json:"itemId,omitempty"`
	UserAgent        string `json:"userAgent,omitempty"`
	ProxyCountry     string `json:"proxyCountry,omitempty"`
	Egress           string `json:"egress,omitempty"`
	HTMLLength       int    `json:"htmlLength,omitempty"`
	ScreenshotBase64 []byte `json:"screenshotBase64,omitempty"`
	ScreenshotKey    string `json:"screenshotKey,omitempty"`
	HTMLKey          string `json:"htmlKey,omitempty"`
}

// MarshalJSON flattens the result and appends a "metadata" object, plus the
// raw "html" when it was requested.
func (o ScrapeOutput) MarshalJSON() ([]byte, error) {
	body, err := json.Marshal(o.Result)
	if err != nil {
		return nil, err
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, err
	}

	meta := outputMetadata{
		ScrapedAt:        o.Meta.ScrapedAt.UTC().Format(time.RFC3339),
		PageTitle:        o.Meta.PageTitle,
		ScrapingDuration: o.Meta.Duration.Milliseconds(),
		ItemID:           o.Meta.ItemID,
		UserAgent:        o.Meta.UserAgent,
		ProxyCountry:     o.Meta.ProxyCountry,
		Egress:           o.Meta.Egress,
		ScreenshotKey:    o.Meta.ScreenshotKey,
		HTMLKey:          o.Meta.HTMLKey,
	}
	if o.Result.Listing != nil {
		meta.ImagesCount = len(o.Result.Listing.Images)
	}
	if o.Meta.IncludeScreenshot {
		meta.ScreenshotBase64 = o.Meta.Screenshot
	}
	if o.Meta.IncludeHTML && o.Meta.HTML != "" {
		meta.HTMLLength = len(o.Meta.HTML)
		html, _ := json.Marshal(o.Meta.HTML)
		doc["html"] = html
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	doc["metadata"] = metaJSON

	return json.Marshal(doc)
}

// FailureOutput is written when no result could be produced at all
// (invalid URL, navigation failure).
type FailureOutput struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	URL       string `json:"url"`
	ScrapedAt string `json:"scrapedAt"`
}
