package models

import (
	"encoding/json"
	"errors"
)

// SourceSite identifies the marketplace every record comes from.
const SourceSite = "mercadolibre"

// ReasonBlocked is the reason attached to challenge pages.
const ReasonBlocked = "blocked"

type Currency string

const (
	CurrencyARS Currency = "ARS"
	CurrencyUSD Currency = "USD"
)

type OperationType string

const (
	OperationSale OperationType = "sale"
	OperationRent OperationType = "rent"
)

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ListingRecord is the normalized content of one listing page.
// Numeric attributes are nil when the page text could not be parsed.
type ListingRecord struct {
	Success        bool          `json:"success"`
	Title          string        `json:"title"`
	Price          float64       `json:"price"`
	Currency       Currency      `json:"currency"`
	Description    string        `json:"description"`
	OperationType  OperationType `json:"operation_type"`
	Images         []string      `json:"images"`
	TotalArea      *float64      `json:"total_area"`
	CoveredArea    *float64      `json:"covered_area"`
	Rooms          *float64      `json:"rooms"`
	Bedrooms       *float64      `json:"bedrooms"`
	Bathrooms      *float64      `json:"bathrooms"`
	ParkingSpots   *float64      `json:"parking_spots"`
	Age            *float64      `json:"age"`
	MaintenanceFee float64       `json:"maintenance_fee"`
	ListingCode    string        `json:"listing_code"`
	Location       string        `json:"location"`
	Coordinates    *Coordinates  `json:"coordinates"`
	SourceURL      string        `json:"url"`
	SourceSite     string        `json:"source"`
}

// BlockedResult is returned instead of a listing when the marketplace served
// a login or verification wall.
type BlockedResult struct {
	Success     bool   `json:"success"`
	Reason      string `json:"error"`
	Message     string `json:"message"`
	PageTitle   string `json:"page_title"`
	BodyPreview string `json:"body_preview"`
	ListingCode string `json:"listing_code,omitempty"`
	SourceURL   string `json:"url"`
}

// Result holds exactly one of Listing or Blocked.
type Result struct {
	Listing *ListingRecord
	Blocked *BlockedResult
}

func (r Result) IsBlocked() bool {
	return r.Blocked != nil
}

// Success reports whether the result is a listing that passed the validity rule.
func (r Result) Success() bool {
	return r.Listing != nil && r.Listing.Success
}

func (r Result) URL() string {
	switch {
	case r.Listing != nil:
		return r.Listing.SourceURL
	case r.Blocked != nil:
		return r.Blocked.SourceURL
	}
	return ""
}

func (r Result) MarshalJSON() ([]byte, error) {
	switch {
	case r.Listing != nil && r.Blocked == nil:
		return json.Marshal(r.Listing)
	case r.Blocked != nil && r.Listing == nil:
		return json.Marshal(r.Blocked)
	}
	return nil, errors.New("result must hold exactly one of listing or blocked")
}
