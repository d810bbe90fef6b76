package services

import (
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"

	"carscout/models"
)

// Duplicate-detection thresholds. Tunable constants, not validated
// business rules: adjust with care and re-run the dedupe tests.
const (
	// DupTitleSimilarity is the minimum normalized title similarity for
	// two listings to be considered the same ad.
	DupTitleSimilarity = 0.8
	// DupPriceDelta is the minimum absolute price divergence (EUR) that
	// makes a near-identical pair suspicious rather than merely
	// cross-posted at the same price.
	DupPriceDelta = 1000
)

// TitleSimilarity returns the normalized Levenshtein similarity of two
// titles in [0,1]: 1 for identical strings, 0 for fully distinct.
func TitleSimilarity(a, b string) float64 {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" && b == "" {
		return 1
	}
	longest := len([]rune(a))
	if l := len([]rune(b)); l > longest {
		longest = l
	}
	if longest == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}

// IsLikelyDuplicate reports whether two listings look like the same ad
// cross-posted with divergent pricing: near-identical titles AND a price
// gap wide enough to suggest one copy is bait.
func IsLikelyDuplicate(a, b *models.Listing) bool {
	if a.Price == nil || b.Price == nil {
		return false
	}
	delta := *a.Price - *b.Price
	if delta < 0 {
		delta = -delta
	}
	if delta <= DupPriceDelta {
		return false
	}
	return TitleSimilarity(a.Title, b.Title) > DupTitleSimilarity
}

// FlagDuplicates scans the candidate set for likely duplicates and
// returns a duplicate_listing red flag per flagged listing ID. Ids are
// source-local, so identity never relies on id equality across sources,
// only on title similarity and price proximity. The pricier copy of each
// pair is the one flagged; structural fields are never touched.
func FlagDuplicates(listings []*models.Listing) map[string]models.FraudRedFlag {
	flags := make(map[string]models.FraudRedFlag)

	for i := 0; i < len(listings); i++ {
		for j := i + 1; j < len(listings); j++ {
			a, b := listings[i], listings[j]
			if !IsLikelyDuplicate(a, b) {
				continue
			}

			suspect := a
			peer := b
			if *b.Price > *a.Price {
				suspect, peer = b, a
			}
			if _, dup := flags[suspect.ID]; dup {
				continue
			}

			flags[suspect.ID] = models.FraudRedFlag{
				Type:     models.FlagDuplicateListing,
				Severity: models.SeverityMedium,
				Evidence: []string{fmt.Sprintf(
					"annonce quasi identique à %s (%s) avec un écart de prix de %d EUR",
					peer.ID, peer.Source, *suspect.Price-*peer.Price)},
				Confidence: models.ConfidenceMedium,
			}
		}
	}
	return flags
}
