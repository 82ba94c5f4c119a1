package extract

import (
	"meli_scrooper/models"
)

// Field names a semantic attribute of a listing page.
type Field string

const (
	FieldTitle          Field = "title"
	FieldPrice          Field = "price"
	FieldCurrencySymbol Field = "currency_symbol"
	FieldDescription    Field = "description"
	FieldSubtitle       Field = "subtitle"
	FieldLocation       Field = "location"
	FieldMaintenanceFee Field = "maintenance_fee"
	FieldTotalArea      Field = "total_area"
	FieldCoveredArea    Field = "covered_area"
	FieldRooms          Field = "rooms"
	FieldBedrooms       Field = "bedrooms"
	FieldBathrooms      Field = "bathrooms"
	FieldParkingSpots   Field = "parking_spots"
	FieldAge            Field = "age"
	FieldFeeSpec        Field = "maintenance_fee_spec"
)

const blockedMessage = "MercadoLibre is showing a login/verification page"

// Extractor turns a settled listing page into a models.Result. It is safe for
// concurrent use; all per-page state lives on the stack of Extract.
type Extractor struct {
	sel    Selectors
	chains map[Field]Chain
}

func NewExtractor(sel Selectors) *Extractor {
	if sel.BodyPreviewLen <= 0 {
		sel.BodyPreviewLen = defaultBodyPreviewLen
	}
	spec := func(labels ...string) Chain { return SpecChain(sel.Specs, labels...) }

	return &Extractor{
		sel: sel,
		chains: map[Field]Chain{
			FieldTitle:          TextChain(sel.Title...),
			FieldPrice:          TextChain(sel.Price...),
			FieldCurrencySymbol: TextChain(sel.CurrencySymbol...),
			FieldDescription:    TextChain(sel.Description...),
			FieldSubtitle:       TextChain(sel.Subtitle...),
			FieldLocation:       TextChain(sel.Location...),
			FieldMaintenanceFee: TextChain(sel.MaintenanceFee...),
			FieldTotalArea:      spec(sel.Labels.TotalArea...),
			FieldCoveredArea:    spec(sel.Labels.CoveredArea...),
			FieldRooms:          spec(sel.Labels.Rooms...),
			FieldBedrooms:       spec(sel.Labels.Bedrooms...),
			FieldBathrooms:      spec(sel.Labels.Bathrooms...),
			FieldParkingSpots:   spec(sel.Labels.ParkingSpots...),
			FieldAge:            spec(sel.Labels.Age...),
			FieldFeeSpec:        spec(sel.Labels.MaintenanceFee...),
		},
	}
}

// Locate returns the raw text for field, or "" when no strategy matched.
func (e *Extractor) Locate(p Page, field Field) string {
	return e.chains[field].Locate(p)
}

// Detect runs only the challenge check.
func (e *Extractor) Detect(p Page) Verdict {
	return DetectChallenge(p, e.sel.Challenge)
}

// Extract checks for a challenge wall first and, if the page is real content,
// reads every listing field. Missing or malformed content never fails the
// call; it shows up as nil fields and Success=false.
func (e *Extractor) Extract(p Page, pageURL string) models.Result {
	if v := e.Detect(p); v.Blocked {
		return models.Result{Blocked: e.blocked(p, pageURL)}
	}
	return models.Result{Listing: e.listing(p, pageURL)}
}

func (e *Extractor) blocked(p Page, pageURL string) *models.BlockedResult {
	return &models.BlockedResult{
		Success:     false,
		Reason:      models.ReasonBlocked,
		Message:     blockedMessage,
		PageTitle:   p.Title(),
		BodyPreview: bodyPreview(p.Text(), e.sel.BodyPreviewLen),
		ListingCode: ListingCode(pageURL),
		SourceURL:   pageURL,
	}
}

// listingBuilder collects field values before the record is frozen.
type listingBuilder struct {
	title       string
	price       float64
	currency    models.Currency
	description string
	operation   models.OperationType
	location    string
	fee         float64
	numbers     map[Field]*float64
	images      []string
	coordinates *models.Coordinates
	code        string
	url         string
}

func (e *Extractor) listing(p Page, pageURL string) *models.ListingRecord {
	b := listingBuilder{
		url:     pageURL,
		code:    ListingCode(pageURL),
		numbers: make(map[Field]*float64),
	}

	b.title = e.Locate(p, FieldTitle)
	b.price = NumberOr(e.Locate(p, FieldPrice), 0)
	b.currency = InferCurrency(e.Locate(p, FieldCurrencySymbol))
	b.description = e.Locate(p, FieldDescription)

	subtitle := e.Locate(p, FieldSubtitle)
	b.operation = InferOperation(subtitle, b.title)

	b.location = e.Locate(p, FieldLocation)
	if b.location == "" {
		b.location = subtitle
	}

	for _, f := range []Field{
		FieldTotalArea, FieldCoveredArea, FieldRooms, FieldBedrooms,
		FieldBathrooms, FieldParkingSpots, FieldAge,
	} {
		b.numbers[f] = ToNumber(e.Locate(p, f))
	}

	if fee := e.Locate(p, FieldMaintenanceFee); fee != "" {
		b.fee = NumberOr(fee, 0)
	} else {
		b.fee = NumberOr(e.Locate(p, FieldFeeSpec), 0)
	}

	b.images = CollectImages(p, e.sel.Images)
	b.coordinates = ExtractCoordinates(p, e.sel.MapImage)

	return b.build()
}

func (b listingBuilder) build() *models.ListingRecord {
	return &models.ListingRecord{
		Success:        b.title != "" && (b.price > 0 || len(b.images) > 0),
		Title:          b.title,
		Price:          b.price,
		Currency:       b.currency,
		Description:    b.description,
		OperationType:  b.operation,
		Images:         b.images,
		TotalArea:      b.numbers[FieldTotalArea],
		CoveredArea:    b.numbers[FieldCoveredArea],
		Rooms:          b.numbers[FieldRooms],
		Bedrooms:       b.numbers[FieldBedrooms],
		Bathrooms:      b.numbers[FieldBathrooms],
		ParkingSpots:   b.numbers[FieldParkingSpots],
		Age:            b.numbers[FieldAge],
		MaintenanceFee: b.fee,
		ListingCode:    b.code,
		Location:       b.location,
		Coordinates:    b.coordinates,
		SourceURL:      b.url,
		SourceSite:     models.SourceSite,
	}
}
