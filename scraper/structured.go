package scraper

import (
	"bytes"
	"encoding/json"
	"strings"

	"carscout/models"
)

// StructuredStrategy extracts ads from a serialized state blob the site's
// frontend framework embeds in the page (e.g. __NEXT_DATA__ or a
// window.* assignment). This is the cheapest and most reliable strategy
// while the blob's shape holds.
type StructuredStrategy struct {
	// Markers locate the blob; the first one found wins.
	Markers []string
	// KeyPaths are dotted paths probed for the ads array, in order.
	KeyPaths []string
	// MapAd converts one decoded ad object. Returning false skips it.
	MapAd func(obj map[string]interface{}) (models.RawAd, bool)
}

func (s *StructuredStrategy) Name() string { return "structured-data" }

// Extract scans body for the state blob and maps its ads array. Any parse
// failure yields nil so the cascade can move on.
func (s *StructuredStrategy) Extract(body []byte) []models.RawAd {
	blob := extractJSONBlob(body, s.Markers)
	if blob == nil {
		return nil
	}

	var root interface{}
	if err := json.Unmarshal(blob, &root); err != nil {
		return nil
	}

	for _, path := range s.KeyPaths {
		arr, ok := Val(root, path).([]interface{})
		if !ok || len(arr) == 0 {
			continue
		}

		ads := make([]models.RawAd, 0, len(arr))
		for _, item := range arr {
			obj, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			if ad, ok := s.MapAd(obj); ok {
				ads = append(ads, ad)
			}
		}
		if len(ads) > 0 {
			return ads
		}
	}
	return nil
}

// extractJSONBlob finds the first marker occurrence and returns the
// balanced JSON object starting at the next '{'. String literals and
// escapes are honored so braces inside ad text do not break the scan.
func extractJSONBlob(body []byte, markers []string) []byte {
	for _, marker := range markers {
		idx := bytes.Index(body, []byte(marker))
		if idx < 0 {
			continue
		}
		start := bytes.IndexByte(body[idx:], '{')
		if start < 0 {
			continue
		}
		start += idx

		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(body); i++ {
			c := body[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}
			switch c {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return body[start : i+1]
				}
			}
		}
	}
	return nil
}

// Val walks a decoded JSON value along a dotted key path and returns the
// value at the end, or nil when any segment is missing.
func Val(root interface{}, path string) interface{} {
	cur := root
	for _, key := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return nil
		}
		cur, ok = obj[key]
		if !ok {
			return nil
		}
	}
	return cur
}

// StrVal returns the string at a dotted key path, or "" when absent or
// not a string.
func StrVal(root interface{}, path string) string {
	s, _ := Val(root, path).(string)
	return s
}
