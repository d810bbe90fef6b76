// Package leboncoin adapts the leboncoin.fr classifieds search. The site
// is a Next.js app: search pages embed the full result state in a
// __NEXT_DATA__ script, so the structured-data strategy almost always
// wins. The attribute scan covers the stripped-down HTML variant served
// to bot-suspected clients.
package leboncoin

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
	Source  = "leboncoin"
	baseURL = "https://www.leboncoin.fr"
)

// New builds the leboncoin adapter.
func New(f fetch.Fetcher, n scraper.Normalizer, logger *utils.Logger, proxyCountry string, minBodyBytes int) *scraper.Site {
	return &scraper.Site{
		Source:     Source,
		Fetcher:    f,
		Normalizer: n,
		Logger:     logger,

		SearchURL: searchURL,

		Structured: &scraper.StructuredStrategy{
			Markers: []string{
				`id="__NEXT_DATA__"`,
				"window.FLUX_STATE =",
			},
			KeyPaths: []string{
				"props.pageProps.searchData.ads",
				"props.pageProps.initialProps.searchData.ads",
				"adSearch.data.ads",
				"ads",
			},
			MapAd: mapAd,
		},

		AttrScan: &scraper.AttrScanStrategy{
			Container:    `[data-qa-id="aditem_container"]`,
			MapSelection: mapCard,
		},

		RenderWaitSelector: `[data-qa-id="aditem_container"]`,
		RenderWaitMs:       2500,
		ProxyCountry:       proxyCountry,
		MinBodyBytes:       minBodyBytes,
	}
}

// searchURL builds the car-category search URL for an already-widened query.
func searchURL(q models.SearchQuery) string {
	v := url.Values{}
	v.Set("category", "2") // voitures
	text := strings.TrimSpace(q.Brand + " " + q.Model)
	if text != "" {
		v.Set("text", text)
	}
	if q.MaxPrice > 0 {
		min := "min"
		if q.MinPrice > 0 {
			min = fmt.Sprintf("%d", q.MinPrice)
		}
		v.Set("price", fmt.Sprintf("%s-%d", min, q.MaxPrice))
	}
	if q.MaxMileage > 0 {
		v.Set("mileage", fmt.Sprintf("min-%d", q.MaxMileage))
	}
	if q.MinYear > 0 {
		v.Set("regdate", fmt.Sprintf("%d-max", q.MinYear))
	}
	if q.ZipCode != "" {
		v.Set("locations", q.ZipCode)
	}
	return baseURL + "/recherche?" + v.Encode()
}

// mapAd converts one ad object from the embedded search state. Price
// arrives as a one-element array, mileage and regdate as attributes.
func mapAd(obj map[string]interface{}) (models.RawAd, bool) {
	ad := models.RawAd{
		Title:       scraper.StrVal(obj, "subject"),
		Description: scraper.StrVal(obj, "body"),
		URL:         scraper.StrVal(obj, "url"),
		City:        scraper.StrVal(obj, "location.city"),
		ZipCode:     scraper.StrVal(obj, "location.zipcode"),
		ImageThumb:  scraper.StrVal(obj, "images.thumb_url"),
		ImageFull:   scraper.StrVal(obj, "images.small_url"),
		Price:       scraper.Val(obj, "price"), // [13500]
	}

	switch id := scraper.Val(obj, "list_id").(type) {
	case float64:
		ad.ExternalID = fmt.Sprintf("%.0f", id)
	case string:
		ad.ExternalID = id
	}

	if n, ok := scraper.Val(obj, "images.nb_images").(float64); ok {
		ad.PhotoCount = int(n)
	}

	if attrs, ok := scraper.Val(obj, "attributes").([]interface{}); ok {
		for _, a := range attrs {
			attr, ok := a.(map[string]interface{})
			if !ok {
				continue
			}
			switch scraper.StrVal(attr, "key") {
			case "mileage":
				ad.Mileage = attr["value"]
			case "regdate":
				ad.Year = attr["value"]
			case "brand":
				ad.Brand = scraper.StrVal(attr, "value")
			case "model":
				ad.Model = scraper.StrVal(attr, "value")
			}
		}
	}

	if ad.URL == "" && ad.ExternalID != "" {
		ad.URL = fmt.Sprintf("%s/voitures/%s.htm", baseURL, ad.ExternalID)
	}

	if ad.Title == "" && ad.URL == "" {
		return models.RawAd{}, false
	}
	return ad, true
}

// mapCard extracts one ad from a search-result card in plain HTML.
func mapCard(sel *goquery.Selection) (models.RawAd, bool) {
	link := sel.Find("a").First()
	href, _ := link.Attr("href")
	if href != "" && !strings.HasPrefix(href, "http") {
		href = baseURL + href
	}

	ad := models.RawAd{
		Title:      strings.TrimSpace(sel.Find(`[data-qa-id="aditem_title"]`).Text()),
		Price:      strings.TrimSpace(sel.Find(`[data-qa-id="aditem_price"]`).Text()),
		City:       strings.TrimSpace(sel.Find(`[data-qa-id="aditem_location"]`).Text()),
		URL:        href,
		ImageThumb: sel.Find("img").First().AttrOr("src", ""),
	}

	// Stable id from the ad path, e.g. /voitures/2861234567.htm
	if i := strings.LastIndex(href, "/"); i >= 0 {
		ad.ExternalID = strings.TrimSuffix(href[i+1:], ".htm")
	}

	if ad.Title == "" && ad.URL == "" {
		return models.RawAd{}, false
	}
	return ad, true
}
