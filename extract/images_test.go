package extract

import "testing"

func TestCanonicalImageURL(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://http2.mlstatic.com/D_NQ_NP_123-MLA456-I.webp", "https://http2.mlstatic.com/D_NQ_NP_123-MLA456-O.webp"},
		{"https://http2.mlstatic.com/D_NQ_NP_123-MLA456-F.jpg", "https://http2.mlstatic.com/D_NQ_NP_123-MLA456-O.jpg"},
		{"https://http2.mlstatic.com/D_NQ_NP_123-MLA456-F-null.webp", "https://http2.mlstatic.com/D_NQ_NP_123-MLA456-O.webp"},
		{"https://http2.mlstatic.com/D_NQ_NP_123-MLA456-O.webp", "https://http2.mlstatic.com/D_NQ_NP_123-MLA456-O.webp"},
		{"https://http2.mlstatic.com/D_NQ_NP_123-MLA456-I.webp?v=2", "https://http2.mlstatic.com/D_NQ_NP_123-MLA456-O.webp?v=2"},
		{"https://http2.mlstatic.com/plain.jpg", "https://http2.mlstatic.com/plain.jpg"},
	}

	for _, tt := range tests {
		once := CanonicalImageURL(tt.input)
		if once != tt.want {
			t.Errorf("CanonicalImageURL(%q) = %q, want %q", tt.input, once, tt.want)
		}
		if twice := CanonicalImageURL(once); twice != once {
			t.Errorf("CanonicalImageURL is not idempotent for %q: %q then %q", tt.input, once, twice)
		}
	}
}

func TestCollectImages_DedupAcrossGroups(t *testing.T) {
	page := mustPage(t, `<html><body>
		<figure class="ui-pdp-gallery__figure">
			<img data-zoom="https://http2.mlstatic.com/x-F.webp" src="https://http2.mlstatic.com/x-I.webp">
		</figure>
		<div class="ui-pdp-image"><img src="https://http2.mlstatic.com/x-I.webp"></div>
		<div class="ui-pdp-image"><img data-src="https://http2.mlstatic.com/y-I.webp" src=""></div>
		<div class="ui-pdp-image"><img src="//http2.mlstatic.com/z-I.webp"></div>
		<div class="ui-pdp-image"><img data-zoom="" src="https://http2.mlstatic.com/w-O.webp"></div>
	</body></html>`)

	got := CollectImages(page, DefaultSelectors().Images)
	want := []string{
		"https://http2.mlstatic.com/x-O.webp",
		"https://http2.mlstatic.com/y-O.webp",
		"https://http2.mlstatic.com/w-O.webp",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d images, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("image %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}
