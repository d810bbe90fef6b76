// Package scraper defines the uniform site-adapter capability and the
// extraction cascade shared by every adapter. Site-specific knowledge
// (URLs, payload shapes, selectors) lives in one sub-package per source;
// everything here is source-agnostic.
package scraper

import (
	"context"
	"time"

	"carscout/models"
)

// Result is what one adapter produced for one (query, pass) attempt.
type Result struct {
	Listings []*models.Listing
	Strategy string // extraction strategy that succeeded, "" if none
	Elapsed  time.Duration
}

// Scraper is the uniform capability every site adapter implements.
// Implementations must degrade partial or garbled pages to an empty
// Result, never to a panic, and must return promptly once ctx is done.
type Scraper interface {
	Name() string
	Scrape(ctx context.Context, q models.SearchQuery, pass models.Pass) (*Result, error)
}

// Normalizer maps source-shaped raw ads into canonical listings. The
// services package provides the production implementation.
type Normalizer interface {
	Normalize(source string, raw []models.RawAd) []*models.Listing
}
