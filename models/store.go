package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	ListingStatusActive   = "active"
	ListingStatusBlocked  = "blocked"
	ListingStatusInactive = "inactive"
)

// StoredListing is the Postgres row for one marketplace listing, keyed by
// (source, listing_code).
type StoredListing struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	Source         string          `json:"source" db:"source"`
	ListingCode    string          `json:"listing_code" db:"listing_code"`
	Fingerprint    string          `json:"fingerprint" db:"fingerprint"`
	URL            string          `json:"url" db:"url"`
	Title          string          `json:"title" db:"title"`
	Price          float64         `json:"price" db:"price"`
	Currency       Currency        `json:"currency" db:"currency"`
	OperationType  OperationType   `json:"operation_type" db:"operation_type"`
	Description    string          `json:"description" db:"description"`
	Location       string          `json:"location" db:"location"`
	Lat            *float64        `json:"lat" db:"lat"`
	Lng            *float64        `json:"lng" db:"lng"`
	TotalArea      *float64        `json:"total_area" db:"total_area"`
	CoveredArea    *float64        `json:"covered_area" db:"covered_area"`
	Rooms          *float64        `json:"rooms" db:"rooms"`
	Bedrooms       *float64        `json:"bedrooms" db:"bedrooms"`
	Bathrooms      *float64        `json:"bathrooms" db:"bathrooms"`
	ParkingSpots   *float64        `json:"parking_spots" db:"parking_spots"`
	Age            *float64        `json:"age" db:"age"`
	MaintenanceFee float64         `json:"maintenance_fee" db:"maintenance_fee"`
	Images         json.RawMessage `json:"images" db:"images"`
	Status         string          `json:"status" db:"status"`
	TimesSeen      int             `json:"times_seen" db:"times_seen"`
	FirstSeen      time.Time       `json:"first_seen" db:"first_seen"`
	LastSeen       time.Time       `json:"last_seen" db:"last_seen"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// PricePoint records the asking price and fee whenever either changes.
type PricePoint struct {
	ID             int64     `json:"id" db:"id"`
	ListingID      uuid.UUID `json:"listing_id" db:"listing_id"`
	Price          float64   `json:"price" db:"price"`
	Currency       Currency  `json:"currency" db:"currency"`
	MaintenanceFee float64   `json:"maintenance_fee" db:"maintenance_fee"`
	RunKey         string    `json:"run_key" db:"run_key"`
	ObservedAt     time.Time `json:"observed_at" db:"observed_at"`
}

// Differs reports whether a newly scraped record moved the price or fee.
func (p *PricePoint) Differs(r *ListingRecord) bool {
	return p.Price != r.Price || p.Currency != r.Currency || p.MaintenanceFee != r.MaintenanceFee
}
