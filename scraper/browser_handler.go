package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"

	"meli_scrooper/config"
	"meli_scrooper/logging"
)

// BrowserOptions are process-level launch settings; the site profile
// supplies everything else.
type BrowserOptions struct {
	Headless bool
	Proxy    *playwright.Proxy
}

// BrowserHandler drives Chromium through playwright. One browser is kept for
// the life of the handler; every Fetch gets a fresh context so each page load
// presents a newly picked user agent and clean cookies.
type BrowserHandler struct {
	profile config.BrowserProfile
	opts    BrowserOptions
	log     *logrus.Entry

	mu          sync.Mutex
	pw          *playwright.Playwright
	browser     playwright.Browser
	initialized bool
	rnd         *rand.Rand
}

func NewBrowserHandler(site *config.SiteConfig, opts BrowserOptions) *BrowserHandler {
	return &BrowserHandler{
		profile: site.Browser,
		opts:    opts,
		log:     logging.Component("browser").WithField(logging.FieldSite, site.ID),
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (h *BrowserHandler) ensureBrowser() error {
	if h.initialized {
		return nil
	}

	var err error
	h.pw, err = playwright.Run()
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	h.browser, err = h.pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(h.opts.Headless),
		Args:     h.profile.LaunchArgs,
		Proxy:    h.opts.Proxy,
	})
	if err != nil {
		h.pw.Stop()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	h.initialized = true
	return nil
}

func (h *BrowserHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.browser != nil {
		h.browser.Close()
		h.browser = nil
	}
	if h.pw != nil {
		h.pw.Stop()
		h.pw = nil
	}
	h.initialized = false
}

// Fetch warms the session on the listings index, loads the target, waits for
// client-side rendering, scrolls to trigger lazy images and snapshots the DOM.
func (h *BrowserHandler) Fetch(ctx context.Context, req Request) (*Capture, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.ensureBrowser(); err != nil {
		return nil, err
	}

	userAgent := h.pickUserAgent()
	bctx, err := h.browser.NewContext(h.contextOptions(userAgent))
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}
	defer bctx.Close()

	if err := bctx.AddInitScript(playwright.Script{Content: playwright.String(initScript(h.profile.Languages))}); err != nil {
		return nil, fmt.Errorf("failed to add init script: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	h.log.WithField("user_agent", truncate(userAgent, 50)).Debug("New browsing context")

	if h.profile.WarmupURL != "" {
		if err := h.warmup(ctx, page); err != nil {
			return nil, err
		}
	}

	h.log.WithField("url", req.URL).Info("Navigating to listing")
	if _, err := page.Goto(req.URL, h.gotoOptions(ctx)); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}

	if err := h.humanDelay(ctx, h.profile.SettleDelay); err != nil {
		return nil, err
	}
	h.handleConsent(page)
	if err := h.scroll(ctx, page); err != nil {
		return nil, err
	}

	html, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}
	if strings.TrimSpace(html) == "" {
		return nil, ErrNoResult
	}

	capture := &Capture{HTML: html, UserAgent: userAgent}
	capture.Title, _ = page.Title()

	if req.IncludeScreenshot {
		shot, err := page.Screenshot(playwright.PageScreenshotOptions{FullPage: playwright.Bool(false)})
		if err != nil {
			h.log.WithError(err).Warn("Screenshot failed")
		} else {
			capture.Screenshot = shot
		}
	}

	return capture, nil
}

// warmup visits the listings index first; a cold session that lands
// directly on a listing is more likely to get the verification wall.
// Navigation errors here are not fatal.
func (h *BrowserHandler) warmup(ctx context.Context, page playwright.Page) error {
	h.log.WithField("url", h.profile.WarmupURL).Info("Warming up session")
	if _, err := page.Goto(h.profile.WarmupURL, h.gotoOptions(ctx)); err != nil {
		h.log.WithError(err).Warn("Warmup navigation failed (continuing)")
		return nil
	}
	h.simulateHumanBehavior(page)
	h.handleConsent(page)
	return h.humanDelay(ctx, h.profile.WarmupDelay)
}

func (h *BrowserHandler) scroll(ctx context.Context, page playwright.Page) error {
	pause := time.Duration(h.profile.ScrollPauseMS) * time.Millisecond
	for _, step := range h.profile.ScrollSteps {
		if _, err := page.Evaluate(`(f) => window.scrollTo(0, document.body.scrollHeight * f)`, step); err != nil {
			h.log.WithError(err).Debug("Scroll failed")
		}
		if err := sleep(ctx, pause); err != nil {
			return err
		}
	}
	return nil
}

func (h *BrowserHandler) simulateHumanBehavior(page playwright.Page) {
	vw, vh := h.profile.Viewport.Width, h.profile.Viewport.Height
	if vw <= 0 || vh <= 0 {
		vw, vh = 1280, 720
	}
	page.Mouse().Move(float64(vw/4+h.rnd.Intn(vw/3)), float64(vh/4+h.rnd.Intn(vh/3)))
	page.WaitForTimeout(float64(200 + h.rnd.Intn(300)))
	page.Mouse().Move(float64(vw/3+h.rnd.Intn(vw/4)), float64(vh/3+h.rnd.Intn(vh/4)))
}

func (h *BrowserHandler) handleConsent(page playwright.Page) {
	for _, selector := range h.profile.ConsentSelectors {
		btn := page.Locator(selector).First()
		if visible, _ := btn.IsVisible(); visible {
			h.log.WithField("selector", selector).Debug("Clicking consent button")
			btn.Click()
			page.WaitForTimeout(1000)
			break
		}
	}
}

func (h *BrowserHandler) contextOptions(userAgent string) playwright.BrowserNewContextOptions {
	opts := playwright.BrowserNewContextOptions{
		ExtraHttpHeaders: h.profile.Headers,
	}
	if userAgent != "" {
		opts.UserAgent = playwright.String(userAgent)
	}
	if h.profile.Locale != "" {
		opts.Locale = playwright.String(h.profile.Locale)
	}
	if h.profile.TimezoneID != "" {
		opts.TimezoneId = playwright.String(h.profile.TimezoneID)
	}
	if h.profile.Viewport.Width > 0 && h.profile.Viewport.Height > 0 {
		opts.Viewport = &playwright.Size{
			Width:  h.profile.Viewport.Width,
			Height: h.profile.Viewport.Height,
		}
	}
	return opts
}

// gotoOptions caps navigation at the profile timeout or the time left on ctx,
// whichever is shorter. Goto does not watch ctx itself.
func (h *BrowserHandler) gotoOptions(ctx context.Context) playwright.PageGotoOptions {
	timeout := float64(h.profile.NavigationTimeoutMS)
	if timeout <= 0 {
		timeout = 60000
	}
	if deadline, ok := ctx.Deadline(); ok {
		left := float64(time.Until(deadline).Milliseconds())
		if left < 1 {
			left = 1
		}
		if left < timeout {
			timeout = left
		}
	}
	return playwright.PageGotoOptions{
		Timeout:   playwright.Float(timeout),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}
}

func (h *BrowserHandler) pickUserAgent() string {
	if len(h.profile.UserAgents) == 0 {
		return ""
	}
	return h.profile.UserAgents[h.rnd.Intn(len(h.profile.UserAgents))]
}

func (h *BrowserHandler) humanDelay(ctx context.Context, r config.DelayRange) error {
	return sleep(ctx, randomDelay(h.rnd, r))
}

// randomDelay picks uniformly from [MinMS, MaxMS].
func randomDelay(rnd *rand.Rand, r config.DelayRange) time.Duration {
	lo, hi := r.MinMS, r.MaxMS
	if hi < lo {
		hi = lo
	}
	if lo <= 0 && hi <= 0 {
		return 0
	}
	return time.Duration(lo+rnd.Intn(hi-lo+1)) * time.Millisecond
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// initScript hides the usual automation tells before any page script runs.
func initScript(languages []string) string {
	if len(languages) == 0 {
		languages = []string{"es-AR", "es"}
	}
	langs, _ := json.Marshal(languages)
	return fmt.Sprintf(`Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
Object.defineProperty(navigator, 'languages', { get: () => %s });
window.chrome = { runtime: {} };`, langs)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
