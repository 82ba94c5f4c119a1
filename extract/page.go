package extract

import (
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Element is a single node matched on a page.
type Element interface {
	// Text returns the trimmed text content of the node.
	Text() string
	Attr(name string) (string, bool)
	Find(selector string) []Element
}

// Page is the read-only view of a loaded document the extractor works on.
// Implementations must be a settled snapshot: nothing here waits or navigates.
type Page interface {
	Find(selector string) []Element
	Title() string
	// Text returns the visible text of the document body.
	Text() string
}

// DocumentPage is a Page backed by a parsed HTML snapshot.
type DocumentPage struct {
	doc   *goquery.Document
	title string
	text  string
}

func NewDocumentPage(r io.Reader) (*DocumentPage, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	body := doc.Find("body").Clone()
	body.Find("script, style, noscript, template").Remove()

	return &DocumentPage{
		doc:   doc,
		title: strings.TrimSpace(doc.Find("head title").First().Text()),
		text:  body.Text(),
	}, nil
}

func NewDocumentPageFromString(html string) (*DocumentPage, error) {
	return NewDocumentPage(strings.NewReader(html))
}

func (p *DocumentPage) Find(selector string) []Element {
	return wrap(p.doc.Find(selector))
}

func (p *DocumentPage) Title() string {
	return p.title
}

func (p *DocumentPage) Text() string {
	return p.text
}

type node struct {
	sel *goquery.Selection
}

func (n node) Text() string {
	return strings.TrimSpace(n.sel.Text())
}

func (n node) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}

func (n node) Find(selector string) []Element {
	return wrap(n.sel.Find(selector))
}

func wrap(sel *goquery.Selection) []Element {
	elements := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		elements = append(elements, node{sel: s})
	})
	return elements
}

func first(p interface{ Find(string) []Element }, selector string) (Element, bool) {
	found := p.Find(selector)
	if len(found) == 0 {
		return nil, false
	}
	return found[0], true
}
