package scraper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"meli_scrooper/config"
	"meli_scrooper/extract"
	"meli_scrooper/logging"
	"meli_scrooper/models"
	"meli_scrooper/services"
	"meli_scrooper/storage"
)

// RunStore records run history. storage.SQLiteStore satisfies it.
type RunStore interface {
	CreateRun(run *models.ScrapeRun) (int64, error)
	UpdateRun(run *models.ScrapeRun) error
	SaveResult(runID int64, out models.ScrapeOutput) error
}

type Options struct {
	MinInterval  time.Duration
	Timeout      time.Duration
	ProxyCountry string
	WatchURLs    []string
}

// Orchestrator runs one listing at a time through navigation, extraction and
// persistence.
type Orchestrator struct {
	site      *config.SiteConfig
	nav       Navigator
	extractor *extract.Extractor
	validator *extract.URLValidator
	store     RunStore
	limiter   *rate.Limiter
	opts      Options
	log       *logrus.Entry

	listings *services.ListingService
	media    *services.MediaService
	egress   EgressChecker

	mu      sync.Mutex
	pauseMu sync.RWMutex
	paused  bool
	now     func() time.Time
}

func NewOrchestrator(site *config.SiteConfig, nav Navigator, store RunStore, opts Options) (*Orchestrator, error) {
	validator, err := extract.NewURLValidator(site.URLPatterns)
	if err != nil {
		return nil, fmt.Errorf("url patterns for %s: %w", site.ID, err)
	}

	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}

	return &Orchestrator{
		site:      site,
		nav:       nav,
		extractor: extract.NewExtractor(site.Selectors),
		validator: validator,
		store:     store,
		limiter:   rate.NewLimiter(limit, 1),
		opts:      opts,
		log:       logging.Component("orchestrator").WithField(logging.FieldSite, site.ID),
		now:       time.Now,
	}, nil
}

// SetServices injects the optional Postgres and S3 backed services.
// Either may be nil.
func (o *Orchestrator) SetServices(listings *services.ListingService, media *services.MediaService) {
	o.listings = listings
	o.media = media
}

// SetEgress makes every page load wait for a confirmed exit first.
func (o *Orchestrator) SetEgress(e EgressChecker) {
	o.egress = e
}

func (o *Orchestrator) Pause() {
	o.pauseMu.Lock()
	o.paused = true
	o.pauseMu.Unlock()
	o.log.Info("Scraper paused")
}

func (o *Orchestrator) Resume() {
	o.pauseMu.Lock()
	o.paused = false
	o.pauseMu.Unlock()
	o.log.Info("Scraper resumed")
}

func (o *Orchestrator) IsPaused() bool {
	o.pauseMu.RLock()
	defer o.pauseMu.RUnlock()
	return o.paused
}

// Scrape loads and extracts one listing. A returned error means no result
// could be produced (bad URL, egress down, navigation failure); a blocked page
// is a normal result and comes back with a nil error.
func (o *Orchestrator) Scrape(ctx context.Context, req Request) (*models.ScrapeOutput, error) {
	if err := o.validator.Validate(req.URL); err != nil {
		return nil, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	run := &models.ScrapeRun{
		RunKey:    uuid.NewString(),
		SiteID:    o.site.ID,
		URL:       req.URL,
		StartedAt: o.now(),
		Status:    models.RunStatusRunning,
	}
	runID, err := o.store.CreateRun(run)
	if err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	run.ID = runID

	entry := o.log.WithFields(logrus.Fields{
		logging.FieldRunID: runID,
		"url":              req.URL,
	})
	entry.Info("Starting scrape")

	out, err := o.scrape(ctx, req, run, entry)

	finished := o.now()
	run.FinishedAt = &finished
	if err != nil {
		run.Status = models.RunStatusFailed
		run.Error = err.Error()
		entry.WithError(err).Error("Scrape failed")
	} else {
		run.Status = models.StatusFor(out.Result)
		entry.WithField("status", run.Status).Info("Scrape finished")
	}
	if uerr := o.store.UpdateRun(run); uerr != nil {
		o.log.WithError(uerr).Warn("Failed to update run")
	}

	return out, err
}

func (o *Orchestrator) scrape(ctx context.Context, req Request, run *models.ScrapeRun, entry *logrus.Entry) (*models.ScrapeOutput, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var egress string
	if o.egress != nil {
		var err error
		egress, err = o.egress.Egress(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEgressUnavailable, err)
		}
		entry.WithField("egress", egress).Debug("Egress confirmed")
	}

	if o.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
		defer cancel()
	}

	start := o.now()
	capture, err := o.nav.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	if capture == nil || capture.HTML == "" {
		return nil, ErrNoResult
	}

	page, err := extract.NewDocumentPageFromString(capture.HTML)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	out := &models.ScrapeOutput{
		Result: o.extractor.Extract(page, req.URL),
		Meta: models.ScrapeMeta{
			ScrapedAt:         start,
			Duration:          o.now().Sub(start),
			ItemID:            extract.ItemID(req.URL),
			PageTitle:         capture.Title,
			UserAgent:         capture.UserAgent,
			ProxyCountry:      o.opts.ProxyCountry,
			Egress:            egress,
			IncludeHTML:       req.IncludeHTML,
			IncludeScreenshot: req.IncludeScreenshot,
		},
	}
	if out.Meta.PageTitle == "" {
		out.Meta.PageTitle = page.Title()
	}
	if req.IncludeScreenshot {
		out.Meta.Screenshot = capture.Screenshot
	}
	if req.IncludeHTML {
		out.Meta.HTML = capture.HTML
	}

	code := listingCode(out.Result)
	if o.media != nil {
		if err := o.media.Archive(ctx, code, run.RunKey, &out.Meta); err != nil {
			entry.WithError(err).Warn("Failed to archive media")
		}
	}

	if err := o.store.SaveResult(run.ID, *out); err != nil {
		entry.WithError(err).Warn("Failed to save result")
	}

	o.persist(ctx, out.Result, run.RunKey, entry)
	return out, nil
}

func (o *Orchestrator) persist(ctx context.Context, result models.Result, runKey string, entry *logrus.Entry) {
	if o.listings == nil {
		return
	}

	if result.IsBlocked() {
		entry.Warn("Challenge page served")
		if err := o.listings.MarkBlocked(ctx, models.SourceSite, result.Blocked.ListingCode); err != nil {
			entry.WithError(err).Warn("Failed to flag blocked listing")
		}
		return
	}

	res, err := o.listings.Process(ctx, result.Listing, runKey)
	if err != nil {
		entry.WithError(err).Warn("Failed to store listing")
		return
	}
	if res != nil {
		entry.WithFields(logrus.Fields{
			"listing_id":    res.ListingID,
			"new":           res.IsNew,
			"price_changed": res.PriceChanged,
		}).Info("Listing stored")
	}
}

// ScrapeAll walks urls in order, defaulting to the watch list. Failures are
// logged and do not stop the walk; a cancelled context or a pause does.
func (o *Orchestrator) ScrapeAll(ctx context.Context, urls []string) error {
	if o.IsPaused() {
		o.log.Info("Scraper is paused, skipping run")
		return nil
	}
	if urls == nil {
		urls = o.opts.WatchURLs
	}

	for i, u := range urls {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if o.IsPaused() {
			o.log.WithField("remaining", len(urls)-i).Info("Scraper paused, stopping run")
			return nil
		}
		if _, err := o.Scrape(ctx, Request{URL: u}); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			o.log.WithError(err).WithField("url", u).Warn("Skipping listing")
		}
	}
	return nil
}

// HandleCommand executes one queued command from the commands table.
func (o *Orchestrator) HandleCommand(ctx context.Context, cmd *models.Command) error {
	switch cmd.Command {
	case models.CmdScrapeURL:
		params, err := storage.ParseCommandParams(cmd)
		if err != nil {
			return err
		}
		if params.URL == "" {
			return fmt.Errorf("command %d: missing url", cmd.ID)
		}
		_, err = o.Scrape(ctx, Request{
			URL:               params.URL,
			IncludeHTML:       params.IncludeHTML,
			IncludeScreenshot: params.IncludeScreenshot,
		})
		return err
	case models.CmdScrapeAll:
		return o.ScrapeAll(ctx, nil)
	case models.CmdPause:
		o.Pause()
	case models.CmdResume:
		o.Resume()
	default:
		return fmt.Errorf("unknown command: %s", cmd.Command)
	}
	return nil
}

func (o *Orchestrator) Close() {
	o.nav.Close()
}

func listingCode(r models.Result) string {
	switch {
	case r.Listing != nil:
		return r.Listing.ListingCode
	case r.Blocked != nil:
		return r.Blocked.ListingCode
	}
	return ""
}
