package extract

import (
	"regexp"
	"strconv"

	"meli_scrooper/models"
)

var mapCenter = regexp.MustCompile(`center=([-\d.]+)%2C([-\d.]+)`)

// ExtractCoordinates reads the center of the embedded static map. Values are
// passed through as parsed; no range check is made.
func ExtractCoordinates(p Page, mapSelector string) *models.Coordinates {
	if mapSelector == "" {
		return nil
	}
	img, ok := first(p, mapSelector)
	if !ok {
		return nil
	}
	src, _ := img.Attr("src")
	return ParseMapCenter(src)
}

func ParseMapCenter(src string) *models.Coordinates {
	m := mapCenter.FindStringSubmatch(src)
	if m == nil {
		return nil
	}
	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	lng, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return nil
	}
	return &models.Coordinates{Latitude: lat, Longitude: lng}
}
