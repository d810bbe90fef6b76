package services

import (
	"context"
	"sort"
	"time"

	"carscout/models"
	"carscout/scraper"
	"carscout/utils"
)

// Extra fraud weight applied when a listing turns out to be a likely
// duplicate of a cheaper copy.
const duplicateFlagWeight = 15

// ResultCache short-circuits identical repeated queries. Optional.
type ResultCache interface {
	Get(ctx context.Context, q models.SearchQuery) (*models.SearchResult, bool)
	Set(ctx context.Context, q models.SearchQuery, res *models.SearchResult) error
}

// EventPublisher announces completed searches downstream. Optional.
type EventPublisher interface {
	PublishNewListings(ctx context.Context, res *models.SearchResult) error
	PublishSearchCompleted(ctx context.Context, res *models.SearchResult) error
}

// SearchService is the pipeline root: it fans a query out to every
// configured source concurrently, aggregates whatever settles in time,
// deduplicates, and scores. A failed or timed-out source contributes zero
// listings and a diagnostic; it never aborts the search, and an empty
// result set is a valid outcome.
type SearchService struct {
	scrapers  []scraper.Scraper
	relevance *RelevanceEngine
	fraud     *FraudEngine
	logger    *utils.Logger

	cache  ResultCache    // may be nil
	events EventPublisher // may be nil

	sourceTimeout     time.Duration
	minResultsPerPass int
	maxConcurrency    int
}

// SearchOptions bundle the orchestrator knobs.
type SearchOptions struct {
	SourceTimeout     time.Duration
	MinResultsPerPass int
	MaxConcurrency    int
}

// NewSearchService wires the orchestrator. cache and events may be nil.
func NewSearchService(
	scrapers []scraper.Scraper,
	relevance *RelevanceEngine,
	fraud *FraudEngine,
	cache ResultCache,
	events EventPublisher,
	logger *utils.Logger,
	opts SearchOptions,
) *SearchService {
	if opts.SourceTimeout <= 0 {
		opts.SourceTimeout = 60 * time.Second
	}
	if opts.MinResultsPerPass <= 0 {
		opts.MinResultsPerPass = 3
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 4
	}
	return &SearchService{
		scrapers:          scrapers,
		relevance:         relevance,
		fraud:             fraud,
		cache:             cache,
		events:            events,
		logger:            logger,
		sourceTimeout:     opts.SourceTimeout,
		minResultsPerPass: opts.MinResultsPerPass,
		maxConcurrency:    opts.MaxConcurrency,
	}
}

type sourceOutcome struct {
	listings []*models.Listing
	diag     models.SourceDiagnostic
}

// Search executes one full acquisition-normalization-scoring run. The
// caller's ctx is the search-wide cancellation signal: cancelling it
// cancels every in-flight fetch, and no partial result is committed.
func (s *SearchService) Search(ctx context.Context, q models.SearchQuery) (*models.SearchResult, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, q); ok {
			s.logger.Info("[search] cache hit for %s %s", q.Brand, q.Model)
			return cached, nil
		}
	}

	start := time.Now()
	outcomes := s.fanOut(ctx, q)

	if err := ctx.Err(); err != nil {
		return nil, err // cancelled search commits nothing
	}

	result := &models.SearchResult{Query: q}
	seen := make(map[string]struct{})
	for _, o := range outcomes {
		result.Diagnostics = append(result.Diagnostics, o.diag)
		for _, l := range o.listings {
			if _, dup := seen[l.ID]; dup {
				continue
			}
			seen[l.ID] = struct{}{}
			result.Listings = append(result.Listings, l)
		}
	}

	s.score(result)

	s.logger.Info("[search] %s %s: %d listings from %d sources in %v",
		q.Brand, q.Model, len(result.Listings), len(s.scrapers),
		time.Since(start).Round(time.Millisecond))

	if s.cache != nil {
		if err := s.cache.Set(ctx, q, result); err != nil {
			s.logger.Warn("[search] cache store failed: %v", err)
		}
	}
	if s.events != nil {
		if len(result.Listings) > 0 {
			if err := s.events.PublishNewListings(ctx, result); err != nil {
				s.logger.Warn("[search] event publish failed: %v", err)
			}
		}
		if err := s.events.PublishSearchCompleted(ctx, result); err != nil {
			s.logger.Warn("[search] event publish failed: %v", err)
		}
	}

	return result, nil
}

// fanOut launches one task per source under a shared cancellation signal
// with independent per-source soft deadlines. A task exceeding its
// deadline is abandoned: its eventual result is discarded, and it never
// blocks aggregation of the others.
func (s *SearchService) fanOut(ctx context.Context, q models.SearchQuery) []sourceOutcome {
	type slot struct {
		ch  chan sourceOutcome
		src string
	}

	slots := make([]slot, len(s.scrapers))
	for i, sc := range s.scrapers {
		// Buffered so an abandoned task can still complete and be GC'd.
		slots[i] = slot{ch: make(chan sourceOutcome, 1), src: sc.Name()}

		go func(sc scraper.Scraper, out chan<- sourceOutcome) {
			srcCtx, cancel := context.WithTimeout(ctx, s.sourceTimeout)
			defer cancel()

			listings, po := scraper.RunPasses(srcCtx, sc, q, s.minResultsPerPass)

			diag := models.SourceDiagnostic{
				Source:    sc.Name(),
				Listings:  len(listings),
				Pass:      po.Pass,
				Strategy:  po.Strategy,
				ElapsedMs: po.Elapsed.Milliseconds(),
			}
			if po.Err != nil {
				diag.Failed = true
				diag.Error = po.Err.Error()
			}
			out <- sourceOutcome{listings: listings, diag: diag}
		}(s.scrapers[i], slots[i].ch)
	}

	// One absolute abandon time shared by every slot. The wait is re-armed
	// per slot: a drained timer channel never fires again, and more than
	// one source can overrun its deadline.
	abandonAt := time.Now().Add(s.sourceTimeout + 2*time.Second)

	outcomes := make([]sourceOutcome, 0, len(slots))
	for _, sl := range slots {
		select {
		case o := <-sl.ch:
			outcomes = append(outcomes, o)
		case <-time.After(time.Until(abandonAt)):
			s.logger.Warn("[search] source %s abandoned after deadline", sl.src)
			outcomes = append(outcomes, sourceOutcome{diag: models.SourceDiagnostic{
				Source: sl.src,
				Failed: true,
				Error:  "deadline exceeded",
			}})
		case <-ctx.Done():
			outcomes = append(outcomes, sourceOutcome{diag: models.SourceDiagnostic{
				Source: sl.src,
				Failed: true,
				Error:  ctx.Err().Error(),
			}})
		}
	}
	return outcomes
}

// score runs the shared market-stat computation, then both engines.
// MarketStats must complete before any relevance sub-score; fraud scoring
// has no ordering dependency between listings and fans out over a pool.
func (s *SearchService) score(result *models.SearchResult) {
	result.Stats = ComputeMarketStats(result.Listings)

	for _, l := range result.Listings {
		l.RelevanceScore = s.relevance.Score(l, result.Stats)
	}

	pool := utils.NewWorkerPool(s.maxConcurrency, 0)
	for _, l := range result.Listings {
		l := l
		pool.Submit(func() {
			report := s.fraud.AnalyzeListing(l, result.Stats)
			l.FraudScore = report.FraudScore
			l.RedFlags = report.RedFlags
		})
	}
	pool.Wait()

	for id, flag := range FlagDuplicates(result.Listings) {
		for _, l := range result.Listings {
			if l.ID != id {
				continue
			}
			l.RedFlags = append(l.RedFlags, flag)
			if l.FraudScore += duplicateFlagWeight; l.FraudScore > 100 {
				l.FraudScore = 100
			}
		}
	}

	sort.SliceStable(result.Listings, func(i, j int) bool {
		a, b := result.Listings[i], result.Listings[j]
		if a.RelevanceScore != b.RelevanceScore {
			return a.RelevanceScore > b.RelevanceScore
		}
		return a.ID < b.ID
	})
}
