// Package lacentrale adapts the lacentrale.fr professional used-car
// marketplace. Search pages hydrate from a window.__INITIAL_STATE__ blob;
// the attribute scan targets the searchCard markup that survives in the
// server-rendered shell.
package lacentrale

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"carscout/fetch"
	"carscout/models"
	"carscout/scraper"
	"carscout/utils"
)

const (
	Source  = "lacentrale"
	baseURL = "https://www.lacentrale.fr"
)

// New builds the lacentrale adapter.
func New(f fetch.Fetcher, n scraper.Normalizer, logger *utils.Logger, proxyCountry string, minBodyBytes int) *scraper.Site {
	return &scraper.Site{
		Source:     Source,
		Fetcher:    f,
		Normalizer: n,
		Logger:     logger,

		SearchURL: searchURL,

		Structured: &scraper.StructuredStrategy{
			Markers: []string{
				"window.__INITIAL_STATE__ =",
				`id="__NEXT_DATA__"`,
			},
			KeyPaths: []string{
				"search.classifieds",
				"search.results.hits",
				"props.pageProps.searchResult.hits",
			},
			MapAd: mapAd,
		},

		AttrScan: &scraper.AttrScanStrategy{
			Container:    "div.searchCard",
			MapSelection: mapCard,
		},

		RenderWaitSelector: "div.searchCard",
		RenderWaitMs:       3000,
		ProxyCountry:       proxyCountry,
		MinBodyBytes:       minBodyBytes,
	}
}

// searchURL builds the listing URL for an already-widened query.
func searchURL(q models.SearchQuery) string {
	v := url.Values{}
	if q.Brand != "" {
		spec := strings.ToUpper(q.Brand)
		if q.Model != "" {
			spec += ":" + strings.ToUpper(q.Model)
		}
		v.Set("makesModelsCommercialNames", spec)
	}
	if q.MaxPrice > 0 {
		v.Set("priceMax", fmt.Sprintf("%d", q.MaxPrice))
	}
	if q.MinPrice > 0 {
		v.Set("priceMin", fmt.Sprintf("%d", q.MinPrice))
	}
	if q.MaxMileage > 0 {
		v.Set("mileageMax", fmt.Sprintf("%d", q.MaxMileage))
	}
	if q.MinYear > 0 {
		v.Set("yearMin", fmt.Sprintf("%d", q.MinYear))
	}
	if q.ZipCode != "" {
		v.Set("customerZipCode", q.ZipCode)
	}
	return baseURL + "/listing?" + v.Encode()
}

// mapAd converts one classified object from the hydration state. Prices
// are scalar here, and the site ships its own 0-100 quality score.
func mapAd(obj map[string]interface{}) (models.RawAd, bool) {
	ad := models.RawAd{
		ExternalID:  scraper.StrVal(obj, "reference"),
		Title:       scraper.StrVal(obj, "title"),
		Description: scraper.StrVal(obj, "description"),
		Brand:       scraper.StrVal(obj, "vehicle.make"),
		Model:       scraper.StrVal(obj, "vehicle.model"),
		Price:       scraper.Val(obj, "price"),
		Year:        scraper.Val(obj, "vehicle.year"),
		Mileage:     scraper.Val(obj, "vehicle.mileage"),
		City:        scraper.StrVal(obj, "location.city"),
		ZipCode:     scraper.StrVal(obj, "location.zipCode"),
		ImageThumb:  scraper.StrVal(obj, "photos.thumbUrl"),
		ImageFull:   scraper.StrVal(obj, "photos.firstPhotoUrl"),
		AIScore:     scraper.Val(obj, "qualityScore"),
	}

	if n, ok := scraper.Val(obj, "photos.count").(float64); ok {
		ad.PhotoCount = int(n)
	}

	if ad.Title == "" {
		ad.Title = strings.TrimSpace(ad.Brand + " " + ad.Model)
	}
	if ad.ExternalID != "" {
		ad.URL = fmt.Sprintf("%s/auto-occasion-annonce-%s.html", baseURL, ad.ExternalID)
	}

	if ad.Title == "" && ad.URL == "" {
		return models.RawAd{}, false
	}
	return ad, true
}

// mapCard extracts one ad from the server-rendered search card markup.
func mapCard(sel *goquery.Selection) (models.RawAd, bool) {
	link := sel.Find("a.searchCard__link").First()
	href := link.AttrOr("href", "")
	if href != "" && !strings.HasPrefix(href, "http") {
		href = baseURL + href
	}

	ad := models.RawAd{
		Title:      strings.TrimSpace(sel.Find(".searchCard__title").Text()),
		Price:      strings.TrimSpace(sel.Find(".searchCard__fieldPrice").Text()),
		Year:       strings.TrimSpace(sel.Find(".searchCard__year").Text()),
		Mileage:    strings.TrimSpace(sel.Find(".searchCard__mileage").Text()),
		City:       strings.TrimSpace(sel.Find(".searchCard__dptCont").Text()),
		URL:        href,
		ImageThumb: sel.Find("img").First().AttrOr("src", ""),
	}

	// Reference sits in the annonce slug: auto-occasion-annonce-69112345678.html
	slug := strings.TrimSuffix(href[strings.LastIndex(href, "-")+1:], ".html")
	if slug != href {
		ad.ExternalID = slug
	}

	if ad.Title == "" && ad.URL == "" {
		return models.RawAd{}, false
	}
	return ad, true
}
