package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"meli_scrooper/extract"
)

// DefaultSiteID is the profile used when SITE_PROFILE is unset.
const DefaultSiteID = "mercadolibre"

type Config struct {
	ExpressVPN  ExpressVPNConfig
	Proxy       ProxyConfig
	S3          S3Config
	Scheduler   SchedulerConfig
	Scraper     ScraperConfig
	DBPath      string
	DatabaseURL string
	LogLevel    string
	LogFile     string
	SiteProfile string
	SitesDir    string
	WatchURLs   []string
	Sites       map[string]*SiteConfig
}

type ExpressVPNConfig struct {
	Enabled     bool
	AutoConnect bool
	Region      string
}

type ProxyConfig struct {
	URL     string
	Country string
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Prefix          string
}

func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

type SchedulerConfig struct {
	Interval     time.Duration
	Cron         string
	PollInterval time.Duration

	// Stale-listing recheck; a zero interval disables the worker.
	RecheckInterval time.Duration
	RecheckMaxAge   time.Duration
	RecheckBatch    int
}

type ScraperConfig struct {
	Headless    bool
	MinInterval time.Duration
	Timeout     time.Duration
}

// SiteConfig is a per-marketplace profile. Everything except ID can be
// overridden from config/sites/<id>.yaml; unset keys keep the built-in values.
type SiteConfig struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	URLPatterns []string          `yaml:"url_patterns"`
	Selectors   extract.Selectors `yaml:"selectors"`
	Browser     BrowserProfile    `yaml:"browser"`
}

// BrowserProfile describes how the navigation layer presents itself.
type BrowserProfile struct {
	UserAgents          []string          `yaml:"user_agents"`
	Headers             map[string]string `yaml:"headers"`
	LaunchArgs          []string          `yaml:"launch_args"`
	Locale              string            `yaml:"locale"`
	TimezoneID          string            `yaml:"timezone_id"`
	Languages           []string          `yaml:"languages"`
	Viewport            Viewport          `yaml:"viewport"`
	WarmupURL           string            `yaml:"warmup_url"`
	WarmupDelay         DelayRange        `yaml:"warmup_delay"`
	SettleDelay         DelayRange        `yaml:"settle_delay"`
	ScrollSteps         []float64         `yaml:"scroll_steps"`
	ScrollPauseMS       int               `yaml:"scroll_pause_ms"`
	NavigationTimeoutMS int               `yaml:"navigation_timeout_ms"`
	ConsentSelectors    []string          `yaml:"consent_selectors"`
}

type Viewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// DelayRange is an inclusive range of milliseconds.
type DelayRange struct {
	MinMS int `yaml:"min_ms"`
	MaxMS int `yaml:"max_ms"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ExpressVPN: ExpressVPNConfig{
			Enabled:     getEnvBool("EXPRESSVPN_ENABLED", false),
			AutoConnect: getEnvBool("EXPRESSVPN_AUTOCONNECT", false),
			Region:      getEnv("EXPRESSVPN_REGION", "argentina"),
		},
		Proxy: ProxyConfig{
			URL:     os.Getenv("PROXY_URL"),
			Country: getEnv("PROXY_COUNTRY", "AR"),
		},
		S3: S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
			Prefix:          getEnv("S3_PREFIX", "meli"),
		},
		Scheduler: SchedulerConfig{
			Cron:         os.Getenv("SCRAPE_CRON"),
			Interval:     getEnvDuration("SCRAPE_INTERVAL", 0),
			PollInterval: getEnvDuration("COMMAND_POLL_INTERVAL", 2*time.Second),

			RecheckInterval: getEnvDuration("RECHECK_INTERVAL", 0),
			RecheckMaxAge:   getEnvDuration("RECHECK_MAX_AGE", 24*time.Hour),
			RecheckBatch:    getEnvInt("RECHECK_BATCH", 20),
		},
		Scraper: ScraperConfig{
			Headless:    getEnvBool("HEADLESS", true),
			MinInterval: getEnvDuration("SCRAPE_MIN_INTERVAL", 10*time.Second),
			Timeout:     time.Duration(getEnvInt("SCRAPE_TIMEOUT_SEC", 120)) * time.Second,
		},
		DBPath:      getEnv("DB_PATH", "scraper.db"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFile:     getEnv("LOG_FILE", "daemon.log"),
		SiteProfile: getEnv("SITE_PROFILE", DefaultSiteID),
		SitesDir:    getEnv("SITES_DIR", filepath.Join("config", "sites")),
		WatchURLs:   splitList(os.Getenv("WATCH_URLS")),
		Sites: map[string]*SiteConfig{
			DefaultSiteID: DefaultSite(),
		},
	}

	if err := cfg.loadSiteConfigs(cfg.SitesDir); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Site returns the active profile.
func (c *Config) Site() (*SiteConfig, error) {
	site, ok := c.Sites[c.SiteProfile]
	if !ok {
		return nil, fmt.Errorf("unknown site profile: %s", c.SiteProfile)
	}
	return site, nil
}

func (c *Config) loadSiteConfigs(configDir string) error {
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		path := filepath.Join(configDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		site, err := ParseSite(data, c.Sites)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		c.Sites[site.ID] = site
	}

	return nil
}

// ParseSite decodes a YAML profile. A profile whose id matches a known site is
// layered over a copy of it, so a file only needs the keys it changes.
func ParseSite(data []byte, known map[string]*SiteConfig) (*SiteConfig, error) {
	var head struct {
		ID string `yaml:"id"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	if head.ID == "" {
		return nil, fmt.Errorf("site profile has no id")
	}

	site := &SiteConfig{}
	if base, ok := known[head.ID]; ok {
		site = base.clone()
	}
	if err := yaml.Unmarshal(data, site); err != nil {
		return nil, err
	}
	return site, nil
}

func (s *SiteConfig) clone() *SiteConfig {
	c := *s
	c.Browser.Headers = make(map[string]string, len(s.Browser.Headers))
	for k, v := range s.Browser.Headers {
		c.Browser.Headers[k] = v
	}
	return &c
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
