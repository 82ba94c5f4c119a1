package extract

import (
	"regexp"
	"strings"
)

// imageSourceAttrs are read in order; the first non-empty value is used.
var imageSourceAttrs = []string{"data-zoom", "data-src", "src"}

// resolutionToken matches the size suffix at the end of an image filename.
// Alternation order makes "-F-null." win over "-F.".
var resolutionToken = regexp.MustCompile(`-(?:F-null|F|I)\.([A-Za-z0-9]+)$`)

// CanonicalImageURL rewrites the size suffix of a marketplace image to the
// original-resolution "-O." variant. URLs already at "-O." are unchanged.
func CanonicalImageURL(src string) string {
	path, rest := src, ""
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		path, rest = src[:i], src[i:]
	}

	loc := resolutionToken.FindStringSubmatchIndex(path)
	if loc == nil {
		return src
	}
	return path[:loc[0]] + "-O." + path[loc[2]:loc[3]] + rest
}

// CollectImages walks the selector groups in order and returns the unique
// canonical URLs in discovery order.
func CollectImages(p Page, selectors []string) []string {
	images := []string{}
	seen := make(map[string]struct{})

	for _, sel := range selectors {
		for _, img := range p.Find(sel) {
			src := imageSource(img)
			if !isAbsoluteURL(src) {
				continue
			}
			canonical := CanonicalImageURL(src)
			if _, dup := seen[canonical]; dup {
				continue
			}
			seen[canonical] = struct{}{}
			images = append(images, canonical)
		}
	}
	return images
}

func imageSource(img Element) string {
	for _, attr := range imageSourceAttrs {
		if v, ok := img.Attr(attr); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

func isAbsoluteURL(src string) bool {
	lower := strings.ToLower(src)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
