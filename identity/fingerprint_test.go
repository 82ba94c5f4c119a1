package identity

import (
	"testing"

	"meli_scrooper/models"
)

func TestNormalizeLocation(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Avenida Cabildo 2.040, Belgrano, Capital Federal", "av cabildo 2 040 belgrano caba"},
		{"  Calle  Güemes 123 - Piso 4  ", "guemes 123 p 4"},
		{"Núñez, Ciudad Autónoma de Buenos Aires", "nunez caba"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeLocation(tt.in); got != tt.want {
			t.Errorf("NormalizeLocation(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFingerprint(t *testing.T) {
	area := 120.0
	rooms := 3.0
	a := &models.ListingRecord{
		Location:      "Avenida Cabildo 2040, Belgrano",
		TotalArea:     &area,
		Rooms:         &rooms,
		OperationType: models.OperationSale,
	}
	areaB := 120.4
	b := &models.ListingRecord{
		Location:      "AV. CABILDO 2040 - BELGRANO",
		TotalArea:     &areaB,
		Rooms:         &rooms,
		OperationType: models.OperationSale,
	}

	fa, fb := Fingerprint(a), Fingerprint(b)
	if fa == "" || fa != fb {
		t.Fatalf("expected equal fingerprints, got %q and %q", fa, fb)
	}
	if len(fa) != 32 {
		t.Fatalf("expected 32 hex chars, got %d", len(fa))
	}

	c := *a
	c.OperationType = models.OperationRent
	if Fingerprint(&c) == fa {
		t.Fatalf("rent and sale of the same unit must differ")
	}

	if got := Fingerprint(&models.ListingRecord{}); got != "" {
		t.Fatalf("expected empty fingerprint without location, got %q", got)
	}
}
