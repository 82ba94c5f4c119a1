package extract

import (
	"errors"
	"testing"
)

func TestChain_FirstSuccessWins(t *testing.T) {
	var calls []string
	strategy := func(name, value string, ok bool) Strategy {
		return func(Page) (string, bool) {
			calls = append(calls, name)
			return value, ok
		}
	}

	chain := Chain{
		strategy("missing", "", false),
		strategy("empty", "", true),
		strategy("secondary", "Casa en Nordelta", true),
		strategy("never", "unused", true),
	}

	page := mustPage(t, "<html></html>")
	if got := chain.Locate(page); got != "Casa en Nordelta" {
		t.Fatalf("expected secondary value, got %q", got)
	}
	if len(calls) != 3 || calls[2] != "secondary" {
		t.Fatalf("expected evaluation to stop at the first success, calls: %v", calls)
	}
	if got := (Chain{}).Locate(page); got != "" {
		t.Fatalf("empty chain should locate nothing, got %q", got)
	}
}

func TestTextChain_Fallback(t *testing.T) {
	page := mustPage(t, `<html><body>
		<p class="ui-pdp-description__content">  Luminoso, a estrenar.  </p>
	</body></html>`)

	got := TextChain("p.ui-pdp-description__content.primary", ".ui-pdp-description__content").Locate(page)
	if got != "Luminoso, a estrenar." {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestSpecTable_Lookup(t *testing.T) {
	table := DefaultSelectors().Specs
	page := mustPage(t, `<html><body><table>
		<tr class="andes-table__row"><th class="andes-table__header">Tipo de inmueble</th></tr>
		<tr class="andes-table__row"><th class="andes-table__header">Baños</th><td class="andes-table__column">2</td></tr>
		<tr class="andes-table__row"><th class="andes-table__header">Baños de servicio</th><td class="andes-table__column">1</td></tr>
		<tr class="andes-table__row"><th class="andes-table__header">ANTIGUEDAD</th><td class="andes-table__column">15 años</td></tr>
		<tr class="andes-table__row"><th class="andes-table__header">Tipo de inmueble</th><td class="andes-table__column">PH</td></tr>
	</table></body></html>`)

	tests := []struct {
		label string
		want  string
	}{
		{label: "Baño", want: "2"},
		{label: "baños", want: "2"},
		{label: "Antigüedad", want: "15 años"},
		{label: "Tipo de inmueble", want: "PH"},
		{label: "Cocheras", want: ""},
		{label: "", want: ""},
	}

	for _, tt := range tests {
		if got := table.Lookup(page, tt.label); got != tt.want {
			t.Errorf("Lookup(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestSpecChain_LabelOrder(t *testing.T) {
	table := DefaultSelectors().Specs
	page := mustPage(t, `<html><body><table>
		<tr class="andes-table__row"><th class="andes-table__header">Cochera</th><td class="andes-table__column">1</td></tr>
	</table></body></html>`)

	if got := SpecChain(table, "Cocheras", "Cochera").Locate(page); got != "1" {
		t.Fatalf("expected second label to match, got %q", got)
	}
}

func TestURLHelpers(t *testing.T) {
	if got := ListingCode("https://inmueble.mercadolibre.com.ar/MLA-2402497778-venta-ph-_JM"); got != "MLA2402497778" {
		t.Fatalf("unexpected listing code %q", got)
	}
	if got := ListingCode("https://departamento.mercadolibre.com.ar/MLA1500000001-depto"); got != "MLA1500000001" {
		t.Fatalf("unexpected listing code %q", got)
	}
	if got := ListingCode("https://listado.mercadolibre.com.ar/inmuebles/"); got != "" {
		t.Fatalf("expected empty listing code, got %q", got)
	}
	if got := ItemID("https://casa.mercadolibre.com.ar/1234567890-casa-en-tigre"); got != "MLA1234567890" {
		t.Fatalf("unexpected item id %q", got)
	}
	if got := ItemID("https://inmueble.mercadolibre.com.ar/mla-42-ph"); got != "MLA42" {
		t.Fatalf("unexpected item id %q", got)
	}

	v, err := NewURLValidator(nil)
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	if err := v.Validate("https://inmueble.mercadolibre.com.ar/MLA-2402497778"); err != nil {
		t.Fatalf("expected valid url, got %v", err)
	}
	if err := v.Validate("https://www.zonaprop.com.ar/propiedades/ph-123.html"); !errors.Is(err, ErrUnsupportedURL) {
		t.Fatalf("expected ErrUnsupportedURL, got %v", err)
	}
	if _, err := NewURLValidator([]string{"("}); err == nil {
		t.Fatalf("expected invalid pattern to fail")
	}
}

func TestBodyPreview(t *testing.T) {
	text := "  ¡Hola!\n\n   Para continuar,   ingresa a tu cuenta  "
	if got := bodyPreview(text, 0); got != "¡Hola! Para continuar, ingresa a tu cuenta" {
		t.Fatalf("unexpected preview %q", got)
	}
	if got := bodyPreview(text, 6); got != "¡Hola!" {
		t.Fatalf("expected rune-safe truncation, got %q", got)
	}
}
