package scraper

import (
	"context"
	"time"

	"carscout/models"
)

// Widening factors applied to the price ceiling. A pass never narrows
// bounds, it only relaxes them.
const (
	relaxedFactor     = 1.1
	opportunityFactor = 1.2
)

// passOrder is the fixed escalation sequence.
var passOrder = []models.Pass{models.PassStrict, models.PassRelaxed, models.PassOpportunity}

// WidenQuery returns a copy of q with bounds relaxed for the given pass.
// The strict pass returns q unchanged; a zero MaxPrice means "no ceiling"
// and is never touched.
func WidenQuery(q models.SearchQuery, pass models.Pass) models.SearchQuery {
	if q.MaxPrice <= 0 {
		return q
	}
	switch pass {
	case models.PassRelaxed:
		q.MaxPrice = int(float64(q.MaxPrice) * relaxedFactor)
	case models.PassOpportunity:
		q.MaxPrice = int(float64(q.MaxPrice) * opportunityFactor)
	}
	return q
}

// PassOutcome summarizes the pass that produced the returned listings.
type PassOutcome struct {
	Pass     models.Pass
	Strategy string
	Elapsed  time.Duration
	Err      error
}

// RunPasses drives the strict → relaxed → opportunity escalation against
// one source. Widening stops as soon as a pass yields at least minResults
// listings; an erroring or empty pass counts as under-returning. Passes
// are sequential because a later pass is only justified once the prior one
// has demonstrably under-returned.
func RunPasses(ctx context.Context, s Scraper, q models.SearchQuery, minResults int) ([]*models.Listing, PassOutcome) {
	var (
		best    []*models.Listing
		outcome PassOutcome
	)
	outcome.Pass = models.PassStrict

	for _, pass := range passOrder {
		if ctx.Err() != nil {
			outcome.Err = ctx.Err()
			break
		}

		res, err := s.Scrape(ctx, q, pass)
		if err != nil {
			outcome.Err = err
			continue
		}
		outcome.Err = nil

		// A wider pass normally supersets the prior one; keep whichever
		// attempt returned the most.
		if len(res.Listings) > len(best) {
			best = res.Listings
			outcome.Pass = pass
			outcome.Strategy = res.Strategy
			outcome.Elapsed = res.Elapsed
		}

		if len(res.Listings) >= minResults {
			break
		}
	}

	if len(best) > 0 {
		outcome.Err = nil
	}
	return best, outcome
}
