package scraper

import (
	"context"
	"time"

	"carscout/fetch"
	"carscout/models"
	"carscout/utils"
)

// Strategy is the narrow interface every extraction strategy implements:
// a fetched body in, raw ads (or nothing) out. Keeping strategies behind
// this boundary means a target-site change only requires patching one
// strategy, never the cascade.
type Strategy interface {
	Name() string
	Extract(body []byte) []models.RawAd
}

// Site is the reusable adapter engine. A source package configures one
// Site with its search URL builder, strategies and render hints; the
// cascade, filtering and normalization are shared.
//
// Cascade order is a latency/cost optimization, not a correctness
// requirement: rendered fetches are an order of magnitude slower and more
// fragile against anti-bot defenses, so both raw strategies run first.
type Site struct {
	Source     string
	Fetcher    fetch.Fetcher
	Normalizer Normalizer
	Logger     *utils.Logger

	// SearchURL builds the result-page URL for an already-widened query.
	SearchURL func(q models.SearchQuery) string

	Structured *StructuredStrategy
	AttrScan   *AttrScanStrategy

	// Rendered-fetch hints.
	RenderWaitSelector string
	RenderWaitMs       int
	ProxyCountry       string

	// Bodies shorter than MinBodyBytes count as "no data".
	MinBodyBytes int
}

func (s *Site) Name() string { return s.Source }

// Scrape runs the extraction cascade for one (query, pass) attempt.
// Failures degrade to an empty Result; the only returned errors are fetch
// failures on every mode, which the orchestrator records as diagnostics.
func (s *Site) Scrape(ctx context.Context, q models.SearchQuery, pass models.Pass) (*Result, error) {
	start := time.Now()
	widened := WidenQuery(q, pass)
	target := s.SearchURL(widened)

	s.Logger.Debug("[%s] pass=%s url=%s", s.Source, pass, target)

	ads, strategy, fetchErr := s.cascade(ctx, target)

	res := &Result{Elapsed: time.Since(start)}
	if len(ads) == 0 {
		if fetchErr != nil {
			return res, fetchErr
		}
		return res, nil
	}

	listings := s.Normalizer.Normalize(s.Source, ads)
	res.Listings = s.filter(listings, widened)
	res.Strategy = strategy

	s.Logger.Debug("[%s] pass=%s strategy=%s ads=%d kept=%d elapsed=%v",
		s.Source, pass, strategy, len(ads), len(res.Listings), res.Elapsed.Round(time.Millisecond))
	return res, nil
}

// cascade tries raw+structured, raw+attrscan, then a rendered re-fetch
// with both extractions. It returns the first non-empty extraction.
func (s *Site) cascade(ctx context.Context, target string) ([]models.RawAd, string, error) {
	rawBody, rawErr := s.fetchBody(ctx, target, fetch.Options{
		Render:       false,
		ProxyCountry: s.ProxyCountry,
	})

	if rawBody != nil {
		if ads, name := s.runStrategies(rawBody, "raw"); len(ads) > 0 {
			return ads, name, nil
		}
	}

	if ctx.Err() != nil {
		return nil, "", ctx.Err()
	}

	renderedBody, renderErr := s.fetchBody(ctx, target, fetch.Options{
		Render:               true,
		WaitMs:               s.RenderWaitMs,
		WaitForSelector:      s.RenderWaitSelector,
		ProxyCountry:         s.ProxyCountry,
		BlockedResourceTypes: []string{"image", "font", "media"},
	})

	if renderedBody != nil {
		if ads, name := s.runStrategies(renderedBody, "rendered"); len(ads) > 0 {
			return ads, name, nil
		}
		return nil, "", nil // fetched fine, shapes just didn't match
	}

	if rawBody != nil {
		return nil, "", nil
	}
	if renderErr != nil {
		return nil, "", renderErr
	}
	return nil, "", rawErr
}

func (s *Site) runStrategies(body []byte, mode string) ([]models.RawAd, string) {
	strategies := []Strategy{}
	if s.Structured != nil {
		strategies = append(strategies, s.Structured)
	}
	if s.AttrScan != nil {
		strategies = append(strategies, s.AttrScan)
	}

	for _, st := range strategies {
		if ads := st.Extract(body); len(ads) > 0 {
			return ads, mode + "+" + st.Name()
		}
		s.Logger.Debug("[%s] %s %s matched nothing", s.Source, mode, st.Name())
	}
	return nil, ""
}

// fetchBody returns nil for any failure or a too-short body: the cascade
// treats both identically as "no data".
func (s *Site) fetchBody(ctx context.Context, target string, opts fetch.Options) ([]byte, error) {
	body, err := s.Fetcher.Fetch(ctx, target, opts)
	if err != nil {
		s.Logger.Debug("[%s] fetch render=%v failed: %v", s.Source, opts.Render, err)
		return nil, err
	}
	min := s.MinBodyBytes
	if min <= 0 {
		min = 512
	}
	if len(body) < min {
		s.Logger.Debug("[%s] fetch render=%v body too short (%d bytes)", s.Source, opts.Render, len(body))
		return nil, nil
	}
	return body, nil
}

// filter enforces the (already widened) query bounds post-extraction.
// Listings with an unknown price or year are kept: unknown is not a
// violation, and scoring penalizes incompleteness separately.
func (s *Site) filter(listings []*models.Listing, q models.SearchQuery) []*models.Listing {
	kept := make([]*models.Listing, 0, len(listings))
	for _, l := range listings {
		if l.Price != nil {
			if q.MaxPrice > 0 && *l.Price > q.MaxPrice {
				continue
			}
			if q.MinPrice > 0 && *l.Price < q.MinPrice {
				continue
			}
		}
		if l.Year != nil && q.MinYear > 0 && *l.Year < q.MinYear {
			continue
		}
		if l.MileageKm != nil && q.MaxMileage > 0 && *l.MileageKm > q.MaxMileage {
			continue
		}
		kept = append(kept, l)
	}
	return kept
}
