package config

import "meli_scrooper/extract"

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/130.0.0.0 Safari/537.36",
}

// DefaultSite is the built-in MercadoLibre Argentina profile.
func DefaultSite() *SiteConfig {
	return &SiteConfig{
		ID:          DefaultSiteID,
		Name:        "MercadoLibre Inmuebles (AR)",
		URLPatterns: append([]string(nil), extract.DefaultURLPatterns...),
		Selectors:   extract.DefaultSelectors(),
		Browser: BrowserProfile{
			UserAgents: append([]string(nil), defaultUserAgents...),
			Headers: map[string]string{
				"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
				"Accept-Language": "es-AR,es;q=0.9,en;q=0.8",
				"DNT":             "1",
			},
			LaunchArgs: []string{
				"--no-sandbox",
				"--disable-setuid-sandbox",
				"--disable-dev-shm-usage",
				"--disable-blink-features=AutomationControlled",
			},
			Locale:              "es-AR",
			TimezoneID:          "America/Argentina/Buenos_Aires",
			Languages:           []string{"es-AR", "es", "en"},
			Viewport:            Viewport{Width: 1920, Height: 1080},
			WarmupURL:           "https://listado.mercadolibre.com.ar/inmuebles/",
			WarmupDelay:         DelayRange{MinMS: 2000, MaxMS: 4000},
			SettleDelay:         DelayRange{MinMS: 4000, MaxMS: 6000},
			ScrollSteps:         []float64{1.0 / 3, 0.5},
			ScrollPauseMS:       1500,
			NavigationTimeoutMS: 60000,
			ConsentSelectors: []string{
				"button[data-testid='action:understood-button']",
				"button:has-text('Aceptar cookies')",
				"button:has-text('Entendido')",
			},
		},
	}
}
