package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"meli_scrooper/models"
)

var (
	// Longest phrases first.
	streetReplacements = []struct{ full, abbrev string }{
		{"ciudad autonoma de buenos aires", "caba"},
		{"provincia de buenos aires", "gba"},
		{"capital federal", "caba"},
		{"departamento", "dto"},
		{"boulevard", "bv"},
		{"diagonal", "diag"},
		{"avenida", "av"},
		{"bulevar", "bv"},
		{"pasaje", "pje"},
		{"barrio", ""},
		{"calle", ""},
		{"piso", "p"},
	}
	multiSpaceRegex = regexp.MustCompile(`\s+`)
	nonAlnumRegex   = regexp.MustCompile(`[^a-z0-9\s]`)
)

// Fingerprint identifies the property behind a listing so that a relisting
// under a new code can be linked to the old one. It is empty when the record
// has no location to anchor on.
func Fingerprint(rec *models.ListingRecord) string {
	normalized := NormalizeLocation(rec.Location)
	if normalized == "" {
		return ""
	}
	input := fmt.Sprintf("%s|%s|%s|%s|%s",
		normalized,
		rounded(rec.TotalArea),
		rounded(rec.Rooms),
		rounded(rec.Bathrooms),
		rec.OperationType,
	)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:16])
}

// NormalizeLocation folds accents and case, strips punctuation and
// abbreviates common Spanish street words.
func NormalizeLocation(loc string) string {
	loc = strings.ToLower(strings.TrimSpace(loc))
	if folded, _, err := transform.String(foldAccents(), loc); err == nil {
		loc = folded
	}
	loc = nonAlnumRegex.ReplaceAllString(loc, " ")
	loc = multiSpaceRegex.ReplaceAllString(loc, " ")

	words := strings.Fields(loc)
	loc = " " + strings.Join(words, " ") + " "
	for _, r := range streetReplacements {
		loc = strings.ReplaceAll(loc, " "+r.full+" ", " "+r.abbrev+" ")
	}
	loc = multiSpaceRegex.ReplaceAllString(loc, " ")
	return strings.TrimSpace(loc)
}

func rounded(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", int64(math.Round(*v)))
}

// foldAccents returns a fresh transformer; a transform.Chain carries state and
// must not be shared between goroutines.
func foldAccents() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
