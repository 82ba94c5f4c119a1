package workers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"meli_scrooper/logging"
	"meli_scrooper/models"
	"meli_scrooper/scraper"
)

// StaleSource lists stored listings that have not been seen recently.
// storage.PostgresStore satisfies it.
type StaleSource interface {
	GetStaleListings(ctx context.Context, olderThan time.Time, limit int) ([]models.StoredListing, error)
}

// Scraper is the part of scraper.Orchestrator the worker drives.
type Scraper interface {
	Scrape(ctx context.Context, req scraper.Request) (*models.ScrapeOutput, error)
	IsPaused() bool
}

// RecheckWorker re-scrapes stored listings whose last sighting is older than
// maxAge, so price history keeps moving for listings nobody enqueues.
type RecheckWorker struct {
	source    StaleSource
	scraper   Scraper
	triggerCh chan struct{}
	log       *logrus.Entry
	now       func() time.Time
}

func NewRecheckWorker(source StaleSource, s Scraper) *RecheckWorker {
	return &RecheckWorker{
		source:    source,
		scraper:   s,
		triggerCh: make(chan struct{}, 1),
		log:       logging.Component("recheck"),
		now:       time.Now,
	}
}

// Trigger causes the worker to run immediately
func (w *RecheckWorker) Trigger() {
	select {
	case w.triggerCh <- struct{}{}:
	default:
	}
}

func (w *RecheckWorker) Run(ctx context.Context, maxAge time.Duration, batchSize int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Recheck worker stopping")
			return
		case <-ticker.C:
			w.ProcessBatch(ctx, maxAge, batchSize)
		case <-w.triggerCh:
			w.log.Info("Recheck worker triggered manually")
			w.ProcessBatch(ctx, maxAge, batchSize)
		}
	}
}

// ProcessBatch returns how many listings were scraped successfully.
func (w *RecheckWorker) ProcessBatch(ctx context.Context, maxAge time.Duration, batchSize int) int {
	if w.scraper.IsPaused() {
		return 0
	}

	listings, err := w.source.GetStaleListings(ctx, w.now().Add(-maxAge), batchSize)
	if err != nil {
		w.log.WithError(err).Warn("Stale listing query failed")
		return 0
	}
	if len(listings) == 0 {
		return 0
	}

	w.log.WithField("count", len(listings)).Info("Rechecking stale listings")

	var ok, blocked, inactive, failed int
	for _, l := range listings {
		if ctx.Err() != nil {
			break
		}
		if l.URL == "" {
			continue
		}
		out, err := w.scraper.Scrape(ctx, scraper.Request{URL: l.URL})
		switch {
		case err != nil:
			failed++
			w.log.WithError(err).WithField("listing_code", l.ListingCode).Warn("Recheck failed")
		case out.Result.IsBlocked():
			blocked++
		case !out.Result.Success():
			inactive++
			w.log.WithField("listing_code", l.ListingCode).Info("Recheck returned an incomplete listing")
		default:
			ok++
		}
	}

	w.log.WithFields(logrus.Fields{
		"scraped":  ok,
		"blocked":  blocked,
		"inactive": inactive,
		"failed":   failed,
	}).Info("Recheck batch done")
	return ok
}
