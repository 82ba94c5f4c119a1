package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"meli_scrooper/models"
)

var numberRun = regexp.MustCompile(`[\d.,]+`)

// ToNumber parses the first numeric run in raw using Argentine formatting:
// "." groups thousands and "," marks decimals, so "1.234,56" is 1234.56.
// It returns nil when there is nothing parseable.
func ToNumber(raw string) *float64 {
	run := numberRun.FindString(raw)
	if run == "" {
		return nil
	}

	clean := strings.ReplaceAll(run, ".", "")
	clean = strings.Replace(clean, ",", ".", 1)

	v, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// NumberOr is ToNumber with a fallback for missing values.
func NumberOr(raw string, fallback float64) float64 {
	if v := ToNumber(raw); v != nil {
		return *v
	}
	return fallback
}

// InferCurrency classifies the price symbol. Anything resembling "US$" is USD.
func InferCurrency(symbol string) models.Currency {
	if strings.Contains(symbol, "U") {
		return models.CurrencyUSD
	}
	return models.CurrencyARS
}

const rentalMarker = "alquiler"

// InferOperation returns rent when any of texts mentions a rental, sale otherwise.
func InferOperation(texts ...string) models.OperationType {
	for _, text := range texts {
		if strings.Contains(strings.ToLower(text), rentalMarker) {
			return models.OperationRent
		}
	}
	return models.OperationSale
}
