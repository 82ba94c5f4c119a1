package extract

import (
	"errors"
	"regexp"
	"strings"
)

var ErrUnsupportedURL = errors.New("not a MercadoLibre Argentina listing URL")

var (
	listingCodePattern = regexp.MustCompile(`(?i)(MLA-?\d+)`)
	itemIDPatterns     = []*regexp.Regexp{
		regexp.MustCompile(`(?i)MLA-?(\d+)`),
		regexp.MustCompile(`/(\d+)-`),
	}
)

// DefaultURLPatterns are the hosts that serve real-estate listings.
var DefaultURLPatterns = []string{
	`(?i)mercadolibre\.com\.ar`,
	`(?i)inmueble\.mercadolibre`,
	`(?i)casa\.mercadolibre`,
	`(?i)departamento\.mercadolibre`,
	`(?i)terreno\.mercadolibre`,
}

// ListingCode returns the item-id token of a listing URL without its hyphen,
// e.g. "MLA2402497778". It never looks at page content.
func ListingCode(pageURL string) string {
	m := listingCodePattern.FindStringSubmatch(pageURL)
	if m == nil {
		return ""
	}
	return strings.Replace(m[1], "-", "", 1)
}

// ItemID is like ListingCode but also accepts bare numeric slugs ("/123-...")
// and always returns the canonical upper-case "MLA" prefix.
func ItemID(pageURL string) string {
	for _, re := range itemIDPatterns {
		if m := re.FindStringSubmatch(pageURL); m != nil {
			return "MLA" + m[1]
		}
	}
	return ""
}

// URLValidator checks listing URLs against a set of host patterns.
type URLValidator struct {
	patterns []*regexp.Regexp
}

func NewURLValidator(patterns []string) (*URLValidator, error) {
	if len(patterns) == 0 {
		patterns = DefaultURLPatterns
	}
	v := &URLValidator{}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		v.patterns = append(v.patterns, re)
	}
	return v, nil
}

func (v *URLValidator) Validate(pageURL string) error {
	for _, re := range v.patterns {
		if re.MatchString(pageURL) {
			return nil
		}
	}
	return ErrUnsupportedURL
}
