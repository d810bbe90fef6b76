package services

import (
	"testing"

	"carscout/models"
	"carscout/utils"
)

func newTestNormalizer() *Normalizer { return NewNormalizer(utils.NewNopLogger()) }

func TestAsIntShapes(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want *int
	}{
		{"nil", nil, nil},
		{"scalar float", float64(13500), models.IntPtr(13500)},
		{"scalar zero is a value", float64(0), models.IntPtr(0)},
		{"digit string", "89 000 km", models.IntPtr(89000)},
		{"euro string", "13 500 €", models.IntPtr(13500)},
		{"array first element", []interface{}{float64(9800), float64(10200)}, models.IntPtr(9800)},
		{"empty array", []interface{}{}, nil},
		{"garbage string", "prix à débattre", nil},
	}

	for _, tt := range tests {
		got := asInt(tt.in)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("%s: asInt(%v) = %d; want nil", tt.name, tt.in, *got)
		case tt.want != nil && got == nil:
			t.Errorf("%s: asInt(%v) = nil; want %d", tt.name, tt.in, *tt.want)
		case tt.want != nil && got != nil && *got != *tt.want:
			t.Errorf("%s: asInt(%v) = %d; want %d", tt.name, tt.in, *got, *tt.want)
		}
	}
}

func TestNormalizeImagePreference(t *testing.T) {
	tests := []struct {
		thumb, full, want string
	}{
		{"https://img.example/thumb.jpg", "https://img.example/full.jpg", "https://img.example/thumb.jpg"},
		{"", "https://img.example/full.jpg", "https://img.example/full.jpg"},
		{"//img.example/thumb.jpg", "", "https://img.example/thumb.jpg"},
		{"", "", ""},
	}

	for _, tt := range tests {
		got := pickImage(tt.thumb, tt.full)
		if got != tt.want {
			t.Errorf("pickImage(%q, %q) = %q; want %q", tt.thumb, tt.full, got, tt.want)
		}
	}
}

func TestNormalizeMissingNumericsStayNil(t *testing.T) {
	n := newTestNormalizer()
	out := n.Normalize("leboncoin", []models.RawAd{
		{Title: "Peugeot 208 essence", URL: "https://example.fr/annonce/1.htm"},
	})
	if len(out) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(out))
	}
	l := out[0]
	if l.Price != nil || l.Year != nil || l.MileageKm != nil {
		t.Errorf("missing numerics must normalize to nil, got price=%v year=%v mileage=%v",
			l.Price, l.Year, l.MileageKm)
	}
}

func TestNormalizeBrandModelFromTitle(t *testing.T) {
	n := newTestNormalizer()
	out := n.Normalize("leboncoin", []models.RawAd{
		{Title: "Renault Clio IV 1.5 dCi", URL: "https://example.fr/a/2.htm"},
	})
	if len(out) != 1 {
		t.Fatalf("expected 1 listing, got %d", len(out))
	}
	if out[0].Brand != "Renault" || out[0].Model != "Clio" {
		t.Errorf("brand/model heuristic: got %q/%q, want Renault/Clio", out[0].Brand, out[0].Model)
	}
}

func TestNormalizeDropsMalformed(t *testing.T) {
	n := newTestNormalizer()
	out := n.Normalize("leboncoin", []models.RawAd{
		{Title: "", URL: ""}, // no title and no URL: dropped silently
		{Title: "Citroën C3", URL: "https://example.fr/a/3.htm"},
	})
	if len(out) != 1 {
		t.Errorf("expected malformed candidate to be dropped, got %d listings", len(out))
	}
}

func TestNormalizeDeduplicatesByURL(t *testing.T) {
	n := newTestNormalizer()
	out := n.Normalize("leboncoin", []models.RawAd{
		{Title: "Peugeot 208 A", URL: "https://example.fr/a/4.htm"},
		{Title: "Peugeot 208 B", URL: "https://example.fr/a/4.htm"},
	})
	if len(out) != 1 {
		t.Errorf("expected 1 listing after URL dedupe, got %d", len(out))
	}
}

func TestNormalizeStableID(t *testing.T) {
	n := newTestNormalizer()
	out := n.Normalize("lacentrale", []models.RawAd{
		{ExternalID: "69112345", Title: "DS3 Crossback", URL: "https://example.fr/a/x.html"},
		{Title: "208 GT Line", URL: "https://example.fr/annonce/2861234567.htm"},
	})
	if len(out) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(out))
	}
	if out[0].ID != "lacentrale-69112345" {
		t.Errorf("external id: got %q, want lacentrale-69112345", out[0].ID)
	}
	if out[1].ID != "lacentrale-2861234567" {
		t.Errorf("url-derived id: got %q, want lacentrale-2861234567", out[1].ID)
	}
}

func TestNormalizeClampsAIScore(t *testing.T) {
	n := newTestNormalizer()
	out := n.Normalize("lacentrale", []models.RawAd{
		{Title: "Clio V", URL: "https://example.fr/a/5.html", AIScore: float64(140)},
	})
	if len(out) != 1 || out[0].AIScore == nil {
		t.Fatal("expected one listing with an AI score")
	}
	if *out[0].AIScore != 100 {
		t.Errorf("AI score clamp: got %d, want 100", *out[0].AIScore)
	}
}
