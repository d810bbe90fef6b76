package lacentrale

import (
	"bytes"
	"net/url"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"carscout/models"
)

func TestSearchURL(t *testing.T) {
	q := models.SearchQuery{
		Brand:      "Peugeot",
		Model:      "208",
		MinPrice:   5000,
		MaxPrice:   12000,
		MinYear:    2018,
		MaxMileage: 100000,
		ZipCode:    "69001",
	}

	raw := searchURL(q)
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("searchURL produced an unparseable URL: %v", err)
	}
	if u.Host != "www.lacentrale.fr" || u.Path != "/listing" {
		t.Errorf("unexpected endpoint: %s%s", u.Host, u.Path)
	}

	v := u.Query()
	tests := []struct{ key, want string }{
		{"makesModelsCommercialNames", "PEUGEOT:208"},
		{"priceMax", "12000"},
		{"priceMin", "5000"},
		{"mileageMax", "100000"},
		{"yearMin", "2018"},
		{"customerZipCode", "69001"},
	}
	for _, tt := range tests {
		if got := v.Get(tt.key); got != tt.want {
			t.Errorf("param %s = %q; want %q", tt.key, got, tt.want)
		}
	}
}

func TestSearchURLBrandOnly(t *testing.T) {
	raw := searchURL(models.SearchQuery{Brand: "Renault"})
	u, _ := url.Parse(raw)

	if got := u.Query().Get("makesModelsCommercialNames"); got != "RENAULT" {
		t.Errorf("brand-only spec = %q; want RENAULT", got)
	}
}

func TestMapAd(t *testing.T) {
	obj := map[string]interface{}{
		"reference":   "69112345678",
		"title":       "PEUGEOT 208 1.2 PureTech 100 Allure",
		"description": "Véhicule révisé, garantie 12 mois.",
		"price":       float64(13900),
		"vehicle": map[string]interface{}{
			"make":    "PEUGEOT",
			"model":   "208",
			"year":    float64(2020),
			"mileage": float64(45000),
		},
		"location": map[string]interface{}{
			"city":    "Lyon",
			"zipCode": "69001",
		},
		"photos": map[string]interface{}{
			"thumbUrl": "https://img.lacentrale.fr/thumb.jpg",
			"count":    float64(15),
		},
		"qualityScore": float64(87),
	}

	ad, ok := mapAd(obj)
	if !ok {
		t.Fatal("mapAd rejected a complete classified")
	}
	if ad.ExternalID != "69112345678" {
		t.Errorf("ExternalID = %q", ad.ExternalID)
	}
	if ad.URL != "https://www.lacentrale.fr/auto-occasion-annonce-69112345678.html" {
		t.Errorf("URL = %q; want the annonce URL built from the reference", ad.URL)
	}
	if ad.Brand != "PEUGEOT" || ad.Model != "208" {
		t.Errorf("brand/model = %q/%q", ad.Brand, ad.Model)
	}
	if ad.Price != float64(13900) {
		t.Errorf("Price = %v; want scalar 13900", ad.Price)
	}
	if ad.Year != float64(2020) || ad.Mileage != float64(45000) {
		t.Errorf("year/mileage = %v/%v", ad.Year, ad.Mileage)
	}
	if ad.AIScore != float64(87) {
		t.Errorf("AIScore = %v; want 87", ad.AIScore)
	}
	if ad.PhotoCount != 15 {
		t.Errorf("PhotoCount = %d; want 15", ad.PhotoCount)
	}
}

func TestMapAdTitleFallsBackToMakeModel(t *testing.T) {
	ad, ok := mapAd(map[string]interface{}{
		"reference": "69112345678",
		"vehicle": map[string]interface{}{
			"make":  "RENAULT",
			"model": "Captur",
		},
	})
	if !ok {
		t.Fatal("mapAd rejected a titleless classified with make/model")
	}
	if ad.Title != "RENAULT Captur" {
		t.Errorf("Title = %q; want RENAULT Captur", ad.Title)
	}
}

func TestMapAdRejectsEmpty(t *testing.T) {
	if _, ok := mapAd(map[string]interface{}{}); ok {
		t.Error("mapAd accepted an empty classified")
	}
}

func TestMapCard(t *testing.T) {
	html := `<div class="searchCard">
  <a class="searchCard__link" href="/auto-occasion-annonce-69112345678.html"></a>
  <h3 class="searchCard__title">PEUGEOT 208 Allure</h3>
  <div class="searchCard__fieldPrice">13 900 €</div>
  <div class="searchCard__year">2020</div>
  <div class="searchCard__mileage">45 000 km</div>
  <div class="searchCard__dptCont">Lyon (69)</div>
  <img src="https://img.lacentrale.fr/thumb.jpg">
</div>`

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(html)))
	if err != nil {
		t.Fatal(err)
	}

	ad, ok := mapCard(doc.Find("div.searchCard").First())
	if !ok {
		t.Fatal("mapCard rejected a complete card")
	}
	if ad.Title != "PEUGEOT 208 Allure" {
		t.Errorf("Title = %q", ad.Title)
	}
	if ad.URL != "https://www.lacentrale.fr/auto-occasion-annonce-69112345678.html" {
		t.Errorf("URL = %q", ad.URL)
	}
	if ad.ExternalID != "69112345678" {
		t.Errorf("ExternalID = %q; want the reference from the slug", ad.ExternalID)
	}
	if ad.Year != "2020" || ad.Mileage != "45 000 km" {
		t.Errorf("year/mileage = %v/%v; want raw card text", ad.Year, ad.Mileage)
	}
}

func TestMapCardRejectsLinkless(t *testing.T) {
	html := `<div class="searchCard"><span>publicité</span></div>`
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(html)))
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := mapCard(doc.Find("div.searchCard").First()); ok {
		t.Error("mapCard accepted a card with no title and no link")
	}
}
