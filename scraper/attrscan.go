package scraper

import (
	"bytes"

	"github.com/PuerkitoBio/goquery"

	"carscout/models"
)

// AttrScanStrategy pattern-matches HTML container elements carrying known
// marker attributes/classes and extracts ad fields via sub-selectors local
// to each container. Used when a source embeds no structured-data blob or
// its shape has drifted.
type AttrScanStrategy struct {
	// Container selects one element per ad card.
	Container string
	// MapSelection extracts one ad from a container. Returning false
	// skips the card (e.g. a sponsored placeholder).
	MapSelection func(sel *goquery.Selection) (models.RawAd, bool)
}

func (s *AttrScanStrategy) Name() string { return "attr-scan" }

// Extract parses body as HTML and maps each matching container. Garbled
// markup degrades to nil, never to an error.
func (s *AttrScanStrategy) Extract(body []byte) []models.RawAd {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	var ads []models.RawAd
	doc.Find(s.Container).Each(func(_ int, sel *goquery.Selection) {
		if ad, ok := s.MapSelection(sel); ok {
			ads = append(ads, ad)
		}
	})
	return ads
}
