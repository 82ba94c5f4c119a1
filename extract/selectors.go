package extract

// Selectors describes one page-template variant of the marketplace: where
// each field lives and what a challenge page looks like. Site profiles in
// config/sites override any subset of it.
type Selectors struct {
	Title          []string `yaml:"title"`
	Price          []string `yaml:"price"`
	CurrencySymbol []string `yaml:"currency_symbol"`
	Description    []string `yaml:"description"`
	Subtitle       []string `yaml:"subtitle"`
	Location       []string `yaml:"location"`
	MaintenanceFee []string `yaml:"maintenance_fee"`

	Specs  SpecTable  `yaml:"specs"`
	Labels SpecLabels `yaml:"labels"`

	Images   []string `yaml:"images"`
	MapImage string   `yaml:"map_image"`

	Challenge      ChallengeMarkers `yaml:"challenge"`
	BodyPreviewLen int              `yaml:"body_preview_len"`
}

// SpecTable locates the two-column attribute table.
type SpecTable struct {
	Rows   string `yaml:"rows"`
	Header string `yaml:"header"`
	Value  string `yaml:"value"`
}

// SpecLabels lists, per attribute, the header labels to try in order.
type SpecLabels struct {
	TotalArea      []string `yaml:"total_area"`
	CoveredArea    []string `yaml:"covered_area"`
	Rooms          []string `yaml:"rooms"`
	Bedrooms       []string `yaml:"bedrooms"`
	Bathrooms      []string `yaml:"bathrooms"`
	ParkingSpots   []string `yaml:"parking_spots"`
	Age            []string `yaml:"age"`
	MaintenanceFee []string `yaml:"maintenance_fee"`
}

type ChallengeMarkers struct {
	Elements []string `yaml:"elements"`
	Phrases  []string `yaml:"phrases"`
}

const defaultBodyPreviewLen = 500

// DefaultSelectors matches the current MercadoLibre listing template.
func DefaultSelectors() Selectors {
	return Selectors{
		Title: []string{
			"h1.ui-pdp-title",
			`h1[class*="title"]`,
			"h1",
		},
		Price:          []string{"span.andes-money-amount__fraction"},
		CurrencySymbol: []string{"span.andes-money-amount__currency-symbol"},
		Description: []string{
			"p.ui-pdp-description__content",
			".ui-pdp-description__content",
		},
		Subtitle: []string{
			"div.ui-pdp-header__subtitle span.ui-pdp-subtitle",
			".ui-pdp-subtitle",
		},
		Location: []string{
			".ui-pdp-media__title",
			".ui-pdp-location",
			".ui-vip-location",
		},
		MaintenanceFee: []string{
			".ui-pdp-color--GRAY.ui-pdp-size--XSMALL.ui-pdp-family--REGULAR.ui-pdp-maintenance-fee-ltr",
		},
		Specs: SpecTable{
			Rows:   "tr.andes-table__row, .ui-pdp-specs__table .andes-table__row",
			Header: "th.andes-table__header, .andes-table__header",
			Value:  "td.andes-table__column, .andes-table__column",
		},
		Labels: SpecLabels{
			TotalArea:      []string{"Superficie total"},
			CoveredArea:    []string{"Superficie cubierta"},
			Rooms:          []string{"Ambientes"},
			Bedrooms:       []string{"Dormitorios"},
			Bathrooms:      []string{"Baños", "Baño"},
			ParkingSpots:   []string{"Cocheras", "Cochera"},
			Age:            []string{"Antigüedad"},
			MaintenanceFee: []string{"Expensas"},
		},
		Images: []string{
			"figure.ui-pdp-gallery__figure img",
			".ui-pdp-gallery__figure img",
			".ui-pdp-image img",
			"img[data-zoom]",
		},
		MapImage: `img[src*="maps.googleapis.com"]`,
		Challenge: ChallengeMarkers{
			Elements: []string{
				".account-verification-main",
				`.andes-button--loud[href*="login"]`,
			},
			Phrases: []string{
				"Para continuar, ingresa a",
				"¡Hola! Para continuar",
			},
		},
		BodyPreviewLen: defaultBodyPreviewLen,
	}
}
