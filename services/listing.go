package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"meli_scrooper/identity"
	"meli_scrooper/logging"
	"meli_scrooper/models"
)

// ListingStore is the subset of storage.PostgresStore the listing service needs.
type ListingStore interface {
	GetListingByCode(ctx context.Context, source, code string) (*models.StoredListing, error)
	UpsertListing(ctx context.Context, l *models.StoredListing) error
	FindByFingerprint(ctx context.Context, fingerprint, excludeCode string) ([]models.StoredListing, error)
	UpdateListingStatus(ctx context.Context, id uuid.UUID, status string) error
	GetLatestPricePoint(ctx context.Context, listingID uuid.UUID) (*models.PricePoint, error)
	CreatePricePoint(ctx context.Context, pp *models.PricePoint) error
}

// ListingService folds scrape results into the long-lived listings table.
type ListingService struct {
	store ListingStore
	log   *logrus.Entry
	now   func() time.Time
}

func NewListingService(store ListingStore) *ListingService {
	return &ListingService{
		store: store,
		log:   logging.Component("listings"),
		now:   time.Now,
	}
}

// ProcessResult contains the outcome of processing a listing
type ProcessResult struct {
	ListingID    uuid.UUID
	IsNew        bool
	PriceChanged bool
	Relisted     []string
}

// Process upserts a successful record keyed by its listing code and appends a
// price point when price, currency or fee moved. Records without a code are
// skipped. A record that failed the validity rule marks an already stored
// listing inactive, which also moves its last_seen so stale rechecks stop
// picking it. Safe to call repeatedly.
func (s *ListingService) Process(ctx context.Context, rec *models.ListingRecord, runKey string) (*ProcessResult, error) {
	if rec == nil || rec.ListingCode == "" {
		return nil, nil
	}
	if !rec.Success {
		return nil, s.markInactive(ctx, rec)
	}

	now := s.now()
	result := &ProcessResult{}

	existing, err := s.store.GetListingByCode(ctx, rec.SourceSite, rec.ListingCode)
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}

	listing := fromRecord(rec)
	listing.Fingerprint = identity.Fingerprint(rec)
	listing.Status = models.ListingStatusActive
	listing.LastSeen = now
	listing.UpdatedAt = now
	if existing == nil {
		listing.ID = uuid.New()
		listing.TimesSeen = 1
		listing.FirstSeen = now
		listing.CreatedAt = now
		result.IsNew = true
	} else {
		listing.ID = existing.ID
		listing.TimesSeen = existing.TimesSeen
		listing.FirstSeen = existing.FirstSeen
		listing.CreatedAt = existing.CreatedAt
	}

	if err := s.store.UpsertListing(ctx, listing); err != nil {
		return nil, fmt.Errorf("upsert listing: %w", err)
	}
	result.ListingID = listing.ID

	last, err := s.store.GetLatestPricePoint(ctx, listing.ID)
	if err != nil {
		return nil, fmt.Errorf("get price point: %w", err)
	}
	if last == nil || last.Differs(rec) {
		point := &models.PricePoint{
			ListingID:      listing.ID,
			Price:          rec.Price,
			Currency:       rec.Currency,
			MaintenanceFee: rec.MaintenanceFee,
			RunKey:         runKey,
			ObservedAt:     now,
		}
		if err := s.store.CreatePricePoint(ctx, point); err != nil {
			return nil, fmt.Errorf("create price point: %w", err)
		}
		result.PriceChanged = last != nil
		if result.PriceChanged {
			s.log.WithFields(logrus.Fields{
				"listing_code": rec.ListingCode,
				"from":         last.Price,
				"to":           rec.Price,
				"currency":     rec.Currency,
			}).Info("Price changed")
		}
	}

	if result.IsNew && listing.Fingerprint != "" {
		matches, err := s.store.FindByFingerprint(ctx, listing.Fingerprint, rec.ListingCode)
		if err != nil {
			s.log.WithError(err).Warn("Fingerprint lookup failed")
		}
		for _, m := range matches {
			result.Relisted = append(result.Relisted, m.ListingCode)
		}
		if len(result.Relisted) > 0 {
			s.log.WithFields(logrus.Fields{
				"listing_code": rec.ListingCode,
				"previous":     result.Relisted,
			}).Info("Listing matches a previously seen property")
		}
	}

	return result, nil
}

// MarkBlocked flags a known listing whose page came back as a challenge wall.
// Unknown codes are ignored.
func (s *ListingService) MarkBlocked(ctx context.Context, source, code string) error {
	if code == "" {
		return nil
	}
	existing, err := s.store.GetListingByCode(ctx, source, code)
	if err != nil {
		return fmt.Errorf("get listing: %w", err)
	}
	if existing == nil {
		return nil
	}
	return s.store.UpdateListingStatus(ctx, existing.ID, models.ListingStatusBlocked)
}

func (s *ListingService) markInactive(ctx context.Context, rec *models.ListingRecord) error {
	existing, err := s.store.GetListingByCode(ctx, rec.SourceSite, rec.ListingCode)
	if err != nil {
		return fmt.Errorf("get listing: %w", err)
	}
	if existing == nil || existing.Status == models.ListingStatusInactive {
		return nil
	}
	if err := s.store.UpdateListingStatus(ctx, existing.ID, models.ListingStatusInactive); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	s.log.WithField("listing_code", rec.ListingCode).Info("Listing no longer complete, marked inactive")
	return nil
}

func fromRecord(rec *models.ListingRecord) *models.StoredListing {
	images, _ := json.Marshal(rec.Images)
	l := &models.StoredListing{
		Source:         rec.SourceSite,
		ListingCode:    rec.ListingCode,
		URL:            rec.SourceURL,
		Title:          rec.Title,
		Price:          rec.Price,
		Currency:       rec.Currency,
		OperationType:  rec.OperationType,
		Description:    rec.Description,
		Location:       rec.Location,
		TotalArea:      rec.TotalArea,
		CoveredArea:    rec.CoveredArea,
		Rooms:          rec.Rooms,
		Bedrooms:       rec.Bedrooms,
		Bathrooms:      rec.Bathrooms,
		ParkingSpots:   rec.ParkingSpots,
		Age:            rec.Age,
		MaintenanceFee: rec.MaintenanceFee,
		Images:         images,
	}
	if rec.Coordinates != nil {
		lat, lng := rec.Coordinates.Latitude, rec.Coordinates.Longitude
		l.Lat, l.Lng = &lat, &lng
	}
	return l
}
