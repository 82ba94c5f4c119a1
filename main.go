package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"

	"meli_scrooper/config"
	"meli_scrooper/httputil"
	"meli_scrooper/logging"
	"meli_scrooper/models"
	"meli_scrooper/scheduler"
	"meli_scrooper/scraper"
	"meli_scrooper/services"
	"meli_scrooper/storage"
	"meli_scrooper/vpn"
	"meli_scrooper/workers"
)

var (
	urlFlag    = flag.String("url", "", "Listing URL to scrape")
	inputFlag  = flag.String("input", "", "JSON file with {url, includeHtml, includeScreenshot}")
	screenshot = flag.Bool("screenshot", false, "Include a viewport screenshot in the output")
	withHTML   = flag.Bool("html", false, "Include the rendered HTML in the output")
	outFlag    = flag.String("out", "", "Write the JSON result here instead of stdout")
	daemon     = flag.Bool("daemon", false, "Run the scheduler and command poller")
	enqueue    = flag.String("enqueue", "", "Queue a command for a running daemon (scrape_url, scrape_watched, pause, resume, recheck_stale)")
	history    = flag.String("history", "", "Print the stored price history of a listing code and exit")
	recentRuns = flag.Int("runs", 0, "Print the N most recent runs and exit")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logFile, err := logging.Setup(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		logrus.WithError(err).Warn("Could not set up file logging")
	} else if logFile != nil {
		defer logFile.Close()
	}
	log := logging.Component("main")

	req, err := buildRequest()
	if err != nil && !*daemon && *enqueue == "" && *history == "" && *recentRuns == 0 {
		writeFailure(req.URL, err)
		os.Exit(1)
	}

	site, err := cfg.Site()
	if err != nil {
		log.WithError(err).Fatal("Failed to resolve site profile")
	}

	sqliteStore, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to open SQLite")
	}
	defer sqliteStore.Close()
	logrus.AddHook(logging.NewRunHook(sqliteStore.Log))

	if *recentRuns > 0 {
		runs, err := sqliteStore.RecentRuns(*recentRuns)
		if err != nil {
			log.WithError(err).Fatal("Failed to list runs")
		}
		if err := writeJSON(runs); err != nil {
			log.WithError(err).Fatal("Failed to write runs")
		}
		return
	}

	if *enqueue != "" {
		cmdType, err := models.ParseCommandType(*enqueue)
		if err != nil {
			log.WithError(err).Fatal("Refusing to enqueue")
		}
		if cmdType == models.CmdScrapeURL && req.URL == "" {
			log.Fatal("scrape_url needs -url or -input")
		}
		params := &models.CommandParams{URL: req.URL, IncludeHTML: req.IncludeHTML, IncludeScreenshot: req.IncludeScreenshot}
		id, err := sqliteStore.EnqueueCommand(cmdType, params)
		if err != nil {
			log.WithError(err).Fatal("Failed to enqueue command")
		}
		log.WithFields(logrus.Fields{"id": id, "command": *enqueue}).Info("Command queued")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var proxy *playwright.Proxy
	if cfg.Proxy.URL != "" {
		proxy, err = httputil.PlaywrightProxy(cfg.Proxy.URL)
		if err != nil {
			log.WithError(err).Fatal("Invalid proxy URL")
		}
		log.WithField("proxy", httputil.MaskURL(cfg.Proxy.URL)).Info("Using proxy")
	}

	nav := scraper.NewBrowserHandler(site, scraper.BrowserOptions{
		Headless: cfg.Scraper.Headless,
		Proxy:    proxy,
	})

	orchestrator, err := scraper.NewOrchestrator(site, nav, sqliteStore, scraper.Options{
		MinInterval:  cfg.Scraper.MinInterval,
		Timeout:      cfg.Scraper.Timeout,
		ProxyCountry: cfg.Proxy.Country,
		WatchURLs:    cfg.WatchURLs,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to build orchestrator")
	}
	defer orchestrator.Close()

	if cfg.ExpressVPN.Enabled {
		orchestrator.SetEgress(vpn.NewExpressVPN(vpn.Config{
			AutoConnect: cfg.ExpressVPN.AutoConnect,
			Region:      cfg.ExpressVPN.Region,
		}))
		log.WithField("region", cfg.ExpressVPN.Region).Info("ExpressVPN egress enabled")
	}

	var pgStore *storage.PostgresStore
	var listingService *services.ListingService
	if cfg.DatabaseURL != "" {
		pgStore, err = storage.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to Postgres")
		}
		defer pgStore.Close()
		log.WithField("db", httputil.MaskURL(cfg.DatabaseURL)).Info("Connected to Postgres")
		listingService = services.NewListingService(pgStore)
	}

	if *history != "" {
		if pgStore == nil {
			log.Fatal("DATABASE_URL is required for -history")
		}
		if err := printHistory(ctx, pgStore, *history); err != nil {
			log.WithError(err).Fatal("Failed to read price history")
		}
		return
	}

	var mediaService *services.MediaService
	if cfg.S3.Enabled() {
		uploader, err := storage.NewS3Uploader(ctx, cfg.S3)
		if err != nil {
			log.WithError(err).Fatal("Failed to configure S3")
		}
		log.WithField("bucket", cfg.S3.Bucket).Info("Archiving captures to S3")
		mediaService = services.NewMediaService(uploader)
	}
	orchestrator.SetServices(listingService, mediaService)

	if *daemon {
		runDaemon(ctx, cancel, cfg, orchestrator, sqliteStore, pgStore)
		return
	}

	out, err := orchestrator.Scrape(ctx, req)
	if err != nil {
		writeFailure(req.URL, err)
		os.Exit(1)
	}
	if err := writeJSON(out); err != nil {
		log.WithError(err).Fatal("Failed to write result")
	}
}

func runDaemon(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, orchestrator *scraper.Orchestrator, commands *storage.SQLiteStore, pgStore *storage.PostgresStore) {
	log := logging.Component("main")

	sched := scheduler.New(cfg.Scheduler, orchestrator, commands)
	if pgStore != nil && cfg.Scheduler.RecheckInterval > 0 {
		recheck := workers.NewRecheckWorker(pgStore, orchestrator)
		go recheck.Run(ctx, cfg.Scheduler.RecheckMaxAge, cfg.Scheduler.RecheckBatch, cfg.Scheduler.RecheckInterval)
		sched.SetWorkers(recheck)
		log.WithField("interval", cfg.Scheduler.RecheckInterval).Info("Recheck worker started")
	}

	if err := sched.Start(ctx); err != nil {
		log.WithError(err).Fatal("Failed to start scheduler")
	}
	log.WithField("watched", len(cfg.WatchURLs)).Info("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutting down...")
	sched.Stop()
	cancel()
}

func printHistory(ctx context.Context, store *storage.PostgresStore, code string) error {
	listing, err := store.GetListingByCode(ctx, models.SourceSite, code)
	if err != nil {
		return err
	}
	if listing == nil {
		return fmt.Errorf("listing %s not found", code)
	}
	points, err := store.GetPriceHistory(ctx, listing.ID)
	if err != nil {
		return err
	}
	return writeJSON(map[string]interface{}{
		"listing": listing,
		"history": points,
	})
}

// buildRequest merges the -input file with the command-line flags; flags win.
func buildRequest() (scraper.Request, error) {
	var req scraper.Request
	if *inputFlag != "" {
		data, err := os.ReadFile(*inputFlag)
		if err != nil {
			return req, fmt.Errorf("read input: %w", err)
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return req, fmt.Errorf("parse input: %w", err)
		}
	}
	if *urlFlag != "" {
		req.URL = *urlFlag
	}
	req.IncludeHTML = req.IncludeHTML || *withHTML
	req.IncludeScreenshot = req.IncludeScreenshot || *screenshot

	if req.URL == "" {
		return req, errors.New("no url given (use -url or -input)")
	}
	return req, nil
}

func writeFailure(url string, cause error) {
	logging.Component("main").WithError(cause).Error("Scrape failed")
	out := models.FailureOutput{
		Success:   false,
		Error:     cause.Error(),
		URL:       url,
		ScrapedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if err := writeJSON(out); err != nil {
		fmt.Fprintf(os.Stderr, "write failure: %v\n", err)
	}
}

func writeJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if *outFlag == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(*outFlag, data, 0644)
}
