package extract

import "strings"

// Verdict says whether a page is a challenge wall and which marker fired.
type Verdict struct {
	Blocked bool
	Trigger string
}

// DetectChallenge looks for verification/login walls. The marketplace serves
// these with a 200 status, so only the content can tell.
func DetectChallenge(p Page, markers ChallengeMarkers) Verdict {
	for _, sel := range markers.Elements {
		if _, ok := first(p, sel); ok {
			return Verdict{Blocked: true, Trigger: sel}
		}
	}

	text := p.Text()
	for _, phrase := range markers.Phrases {
		if phrase != "" && strings.Contains(text, phrase) {
			return Verdict{Blocked: true, Trigger: phrase}
		}
	}
	return Verdict{}
}

func IsBlocked(p Page, markers ChallengeMarkers) bool {
	return DetectChallenge(p, markers).Blocked
}

// bodyPreview returns the first n runes of the page text with whitespace runs
// collapsed.
func bodyPreview(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if n <= 0 || len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
