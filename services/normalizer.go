package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"carscout/models"
	"carscout/utils"
)

// digitsRegexp captures the first integer-looking run in noisy text such
// as "13 500 €" or "89 000 km".
var digitsRegexp = regexp.MustCompile(`\d[\d\s.,\x{00a0}]*`)

// Normalizer maps source-shaped raw ads into canonical Listings. It is
// the only place untyped payload values are interpreted; nothing raw
// escapes past it.
type Normalizer struct {
	logger *utils.Logger
	now    func() time.Time
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger, now: time.Now}
}

// Normalize converts raw ads from one source. Malformed candidates (no
// title and no URL) are dropped silently; within-source duplicates by URL
// collapse to the first occurrence.
func (n *Normalizer) Normalize(source string, raw []models.RawAd) []*models.Listing {
	seen := utils.NewURLSet()
	result := make([]*models.Listing, 0, len(raw))

	for _, r := range raw {
		url := strings.TrimSpace(r.URL)
		title := normalizeText(r.Title)
		if title == "" && url == "" {
			continue
		}
		if url == "" {
			n.logger.Debug("[normalizer] %s: dropping %q — no URL", source, title)
			continue
		}
		if !seen.Add(url) {
			continue
		}

		l := &models.Listing{
			ID:          buildID(source, r.ExternalID, url),
			Source:      source,
			Title:       title,
			Brand:       normalizeText(r.Brand),
			Model:       normalizeText(r.Model),
			Price:       asInt(r.Price),
			Year:        asInt(r.Year),
			MileageKm:   asInt(r.Mileage),
			URL:         absoluteURL(url),
			ImageURL:    pickImage(r.ImageThumb, r.ImageFull),
			City:        normalizeText(r.City),
			Description: strings.TrimSpace(r.Description),
			PhotoCount:  r.PhotoCount,
			AIScore:     clampAIScore(asInt(r.AIScore)),
			ScrapedAt:   n.now(),
		}

		if l.Brand == "" && l.Model == "" {
			l.Brand, l.Model = splitTitle(title)
		}

		result = append(result, l)
	}

	n.logger.Debug("[normalizer] %s: %d raw → %d listings", source, len(raw), len(result))
	return result
}

// buildID yields the source-prefixed stable id. Sources without a usable
// external id fall back to a URL-derived token, which is stable per ad.
func buildID(source, externalID, url string) string {
	if externalID = strings.TrimSpace(externalID); externalID != "" {
		return source + "-" + externalID
	}
	slug := url
	if i := strings.LastIndex(slug, "/"); i >= 0 {
		slug = slug[i+1:]
	}
	slug = strings.TrimSuffix(strings.TrimSuffix(slug, ".htm"), ".html")
	if slug == "" {
		slug = fmt.Sprintf("%x", len(url)) // degenerate URL, keep deterministic
	}
	return source + "-" + slug
}

// asInt resolves the heterogeneous numeric shapes sources use: a scalar
// number, a digit string, or a first-element-of-array representation.
// Missing or unparseable values yield nil, never zero, because zero is a
// valid price/mileage and must not be conflated with "unknown".
func asInt(v interface{}) *int {
	switch t := v.(type) {
	case nil:
		return nil
	case int:
		return models.IntPtr(t)
	case float64:
		return models.IntPtr(int(t))
	case string:
		return parseDigits(t)
	case []interface{}:
		if len(t) == 0 {
			return nil
		}
		return asInt(t[0])
	default:
		return nil
	}
}

func parseDigits(s string) *int {
	match := digitsRegexp.FindString(s)
	if match == "" {
		return nil
	}
	clean := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, match)
	n, err := strconv.Atoi(clean)
	if err != nil {
		return nil
	}
	return models.IntPtr(n)
}

// pickImage prefers the thumbnail over the full-size image and rewrites
// protocol-relative URLs to absolute HTTPS.
func pickImage(thumb, full string) string {
	img := strings.TrimSpace(thumb)
	if img == "" {
		img = strings.TrimSpace(full)
	}
	return absoluteURL(img)
}

func absoluteURL(u string) string {
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return u
}

// splitTitle derives heuristic brand/model from free text when the source
// carries no separate fields.
func splitTitle(title string) (brand, model string) {
	tokens := strings.Fields(title)
	if len(tokens) > 0 {
		brand = tokens[0]
	}
	if len(tokens) > 1 {
		model = tokens[1]
	}
	return brand, model
}

func clampAIScore(s *int) *int {
	if s == nil {
		return nil
	}
	v := *s
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return models.IntPtr(v)
}

// normalizeText strips leading/trailing whitespace and collapses internal
// whitespace.
func normalizeText(s string) string {
	fields := strings.FieldsFunc(strings.TrimSpace(s), unicode.IsSpace)
	return strings.Join(fields, " ")
}
