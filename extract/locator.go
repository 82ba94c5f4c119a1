package extract

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Strategy is one way of finding a field's raw text on a page.
type Strategy func(Page) (string, bool)

// Chain is a ranked list of strategies; the first non-empty match wins.
type Chain []Strategy

func (c Chain) Locate(p Page) string {
	for _, strategy := range c {
		if text, ok := strategy(p); ok && text != "" {
			return text
		}
	}
	return ""
}

// TextOf matches the trimmed text of the first element for selector.
func TextOf(selector string) Strategy {
	return func(p Page) (string, bool) {
		el, ok := first(p, selector)
		if !ok {
			return "", false
		}
		return el.Text(), true
	}
}

// TextChain builds a chain that tries each selector in order.
func TextChain(selectors ...string) Chain {
	chain := make(Chain, 0, len(selectors))
	for _, sel := range selectors {
		chain = append(chain, TextOf(sel))
	}
	return chain
}

// SpecRow matches the value cell of the first specs-table row whose header
// contains label.
func SpecRow(table SpecTable, label string) Strategy {
	return func(p Page) (string, bool) {
		value := table.Lookup(p, label)
		return value, value != ""
	}
}

// SpecChain tries each label in order against the specs table.
func SpecChain(table SpecTable, labels ...string) Chain {
	chain := make(Chain, 0, len(labels))
	for _, label := range labels {
		chain = append(chain, SpecRow(table, label))
	}
	return chain
}

// Lookup scans rows in document order. Matching is a case- and
// accent-insensitive substring test so "Baño" also hits a "Baños" row.
func (t SpecTable) Lookup(p Page, label string) string {
	if t.Rows == "" || label == "" {
		return ""
	}
	want := foldLabel(label)

	for _, row := range p.Find(t.Rows) {
		header, ok := first(row, t.Header)
		if !ok {
			continue
		}
		value, ok := first(row, t.Value)
		if !ok {
			continue
		}
		if strings.Contains(foldLabel(header.Text()), want) {
			return value.Text()
		}
	}
	return ""
}

func foldLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	folded, _, err := transform.String(foldAccents(), s)
	if err != nil {
		return s
	}
	return folded
}

// A transform.Chain is stateful, so each call gets its own.
func foldAccents() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}
