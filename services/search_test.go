package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"carscout/models"
	"carscout/scraper"
	"carscout/utils"
)

// fakeScraper returns canned listings after an optional delay, or blocks
// until ctx is done when delay exceeds the source deadline.
type fakeScraper struct {
	name     string
	delay    time.Duration
	listings []*models.Listing
	err      error
}

func (f *fakeScraper) Name() string { return f.name }

func (f *fakeScraper) Scrape(ctx context.Context, q models.SearchQuery, pass models.Pass) (*scraper.Result, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &scraper.Result{Listings: f.listings, Strategy: "raw+structured-data"}, nil
}

func testListings(source string, n int) []*models.Listing {
	out := make([]*models.Listing, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &models.Listing{
			ID:        source + "-" + string(rune('a'+i)),
			Source:    source,
			Title:     "Peugeot 208 1.2 PureTech Allure",
			Price:     models.IntPtr(12000 + i*500),
			Year:      models.IntPtr(2020),
			MileageKm: models.IntPtr(60000),
			URL:       "https://example.fr/" + source + "/" + string(rune('a'+i)),
		})
	}
	return out
}

func newTestSearch(scrapers []scraper.Scraper, opts SearchOptions) *SearchService {
	return NewSearchService(
		scrapers,
		&RelevanceEngine{refYear: 2024},
		&FraudEngine{refYear: 2024},
		nil,
		nil,
		utils.NewNopLogger(),
		opts,
	)
}

func TestSearchSurvivesSlowSource(t *testing.T) {
	fast := &fakeScraper{name: "leboncoin", listings: testListings("leboncoin", 3)}
	slow := &fakeScraper{name: "lacentrale", delay: 5 * time.Second, listings: testListings("lacentrale", 2)}

	svc := newTestSearch([]scraper.Scraper{fast, slow}, SearchOptions{
		SourceTimeout: 100 * time.Millisecond,
	})

	result, err := svc.Search(context.Background(), models.SearchQuery{Brand: "Peugeot", Model: "208"})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}

	if len(result.Listings) != 3 {
		t.Errorf("expected the fast source's 3 listings, got %d", len(result.Listings))
	}
	if len(result.Diagnostics) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(result.Diagnostics))
	}

	var failed int
	for _, d := range result.Diagnostics {
		if d.Failed {
			failed++
			if d.Source != "lacentrale" {
				t.Errorf("failed diagnostic attributed to %s; want lacentrale", d.Source)
			}
			if d.Error == "" {
				t.Error("failed diagnostic carries no error text")
			}
		}
	}
	if failed != 1 {
		t.Errorf("expected exactly 1 failed diagnostic, got %d", failed)
	}
}

// stuckScraper ignores cancellation entirely, like an adapter wedged
// inside a blocking library call.
type stuckScraper struct {
	name  string
	delay time.Duration
}

func (s *stuckScraper) Name() string { return s.name }

func (s *stuckScraper) Scrape(ctx context.Context, q models.SearchQuery, pass models.Pass) (*scraper.Result, error) {
	time.Sleep(s.delay)
	return &scraper.Result{}, nil
}

func TestSearchAbandonsEveryStuckSource(t *testing.T) {
	stuck := []scraper.Scraper{
		&stuckScraper{name: "leboncoin", delay: 30 * time.Second},
		&stuckScraper{name: "lacentrale", delay: 30 * time.Second},
	}
	svc := newTestSearch(stuck, SearchOptions{SourceTimeout: 100 * time.Millisecond})

	start := time.Now()
	result, err := svc.Search(context.Background(), models.SearchQuery{Brand: "Peugeot"})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Search took %v; every overrunning source must be abandoned at its deadline", elapsed)
	}

	if len(result.Diagnostics) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(result.Diagnostics))
	}
	for _, d := range result.Diagnostics {
		if !d.Failed {
			t.Errorf("source %s was not abandoned", d.Source)
		}
		if d.Error == "" {
			t.Errorf("source %s: abandoned diagnostic carries no error text", d.Source)
		}
	}
}

func TestSearchEmptyResultIsValid(t *testing.T) {
	down := &fakeScraper{name: "leboncoin", err: errors.New("blocked")}
	svc := newTestSearch([]scraper.Scraper{down}, SearchOptions{SourceTimeout: time.Second})

	result, err := svc.Search(context.Background(), models.SearchQuery{Brand: "Peugeot"})
	if err != nil {
		t.Fatalf("all-sources-down search must not error, got: %v", err)
	}
	if len(result.Listings) != 0 {
		t.Errorf("expected 0 listings, got %d", len(result.Listings))
	}
	if len(result.Diagnostics) != 1 || !result.Diagnostics[0].Failed {
		t.Errorf("expected one failed diagnostic, got %+v", result.Diagnostics)
	}
	if result.Stats == nil || result.Stats.SampleSize != 0 {
		t.Errorf("empty result must carry empty stats, got %+v", result.Stats)
	}
}

func TestSearchCancellationCommitsNothing(t *testing.T) {
	slow := &fakeScraper{name: "leboncoin", delay: 5 * time.Second, listings: testListings("leboncoin", 3)}
	svc := newTestSearch([]scraper.Scraper{slow}, SearchOptions{SourceTimeout: 10 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result, err := svc.Search(ctx, models.SearchQuery{Brand: "Peugeot"})
	if err == nil {
		t.Fatal("cancelled search must return an error")
	}
	if result != nil {
		t.Errorf("cancelled search must commit nothing, got %d listings", len(result.Listings))
	}
}

func TestSearchDeduplicatesAcrossPasses(t *testing.T) {
	// Two scrapers reporting an overlapping listing id within one source
	// namespace: the merge keeps the first occurrence.
	shared := testListings("leboncoin", 2)
	a := &fakeScraper{name: "leboncoin", listings: shared}
	b := &fakeScraper{name: "leboncoin-bis", listings: shared[:1]}

	svc := newTestSearch([]scraper.Scraper{a, b}, SearchOptions{SourceTimeout: time.Second})

	result, err := svc.Search(context.Background(), models.SearchQuery{Brand: "Peugeot"})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(result.Listings) != 2 {
		t.Errorf("expected id-level dedupe to keep 2 listings, got %d", len(result.Listings))
	}
}

func TestSearchScoresAndSortsByRelevance(t *testing.T) {
	listings := []*models.Listing{
		{
			ID: "leboncoin-cheap", Source: "leboncoin",
			Title: "Peugeot 208 1.2 PureTech Allure",
			Price: models.IntPtr(9000), Year: models.IntPtr(2023),
			MileageKm: models.IntPtr(20000), URL: "https://example.fr/a",
			ImageURL: "https://img.example/a.jpg",
		},
		{
			ID: "leboncoin-old", Source: "leboncoin",
			Title: "Peugeot 208 essence",
			Price: models.IntPtr(15000), Year: models.IntPtr(2008),
			MileageKm: models.IntPtr(210000), URL: "https://example.fr/b",
		},
	}
	src := &fakeScraper{name: "leboncoin", listings: listings}
	svc := newTestSearch([]scraper.Scraper{src}, SearchOptions{SourceTimeout: time.Second})

	result, err := svc.Search(context.Background(), models.SearchQuery{Brand: "Peugeot"})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(result.Listings) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(result.Listings))
	}
	if result.Listings[0].ID != "leboncoin-cheap" {
		t.Errorf("expected the cheap recent listing first, got %s", result.Listings[0].ID)
	}
	if result.Listings[0].RelevanceScore <= result.Listings[1].RelevanceScore {
		t.Errorf("sort order does not match scores: %d then %d",
			result.Listings[0].RelevanceScore, result.Listings[1].RelevanceScore)
	}
	for _, l := range result.Listings {
		if l.RelevanceScore < 0 || l.RelevanceScore > 100 {
			t.Errorf("%s: relevance %d out of range", l.ID, l.RelevanceScore)
		}
		if l.FraudScore < 0 || l.FraudScore > 100 {
			t.Errorf("%s: fraud %d out of range", l.ID, l.FraudScore)
		}
	}
}

func TestSearchFlagsCrossSourceDuplicates(t *testing.T) {
	title := "Peugeot 208 1.2 PureTech GT Line 2020"
	a := &fakeScraper{name: "leboncoin", listings: []*models.Listing{{
		ID: "leboncoin-1", Source: "leboncoin", Title: title,
		Price: models.IntPtr(12000), URL: "https://example.fr/a",
	}}}
	b := &fakeScraper{name: "lacentrale", listings: []*models.Listing{{
		ID: "lacentrale-9", Source: "lacentrale", Title: title,
		Price: models.IntPtr(14500), URL: "https://example.fr/b",
	}}}

	svc := newTestSearch([]scraper.Scraper{a, b}, SearchOptions{SourceTimeout: time.Second})

	result, err := svc.Search(context.Background(), models.SearchQuery{Brand: "Peugeot"})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(result.Listings) != 2 {
		t.Fatalf("duplicates are flagged, never dropped: want 2 listings, got %d", len(result.Listings))
	}

	for _, l := range result.Listings {
		flagged := hasFlag(l.RedFlags, models.FlagDuplicateListing)
		if l.ID == "lacentrale-9" && !flagged {
			t.Error("pricier cross-source copy must carry a duplicate_listing flag")
		}
		if l.ID == "leboncoin-1" && flagged {
			t.Error("cheaper copy must not be flagged")
		}
	}
}

type recordingPublisher struct {
	newListings     int
	searchCompleted int
}

func (p *recordingPublisher) PublishNewListings(ctx context.Context, res *models.SearchResult) error {
	p.newListings++
	return nil
}

func (p *recordingPublisher) PublishSearchCompleted(ctx context.Context, res *models.SearchResult) error {
	p.searchCompleted++
	return nil
}

func TestSearchPublishesEvents(t *testing.T) {
	pub := &recordingPublisher{}
	src := &fakeScraper{name: "leboncoin", listings: testListings("leboncoin", 3)}

	svc := NewSearchService(
		[]scraper.Scraper{src},
		&RelevanceEngine{refYear: 2024},
		&FraudEngine{refYear: 2024},
		nil,
		pub,
		utils.NewNopLogger(),
		SearchOptions{SourceTimeout: time.Second},
	)

	if _, err := svc.Search(context.Background(), models.SearchQuery{Brand: "Peugeot"}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if pub.newListings != 1 || pub.searchCompleted != 1 {
		t.Errorf("events = %d new_listings, %d search_completed; want 1 and 1",
			pub.newListings, pub.searchCompleted)
	}

	// An empty search still completes, but announces no new listings.
	pub = &recordingPublisher{}
	empty := &fakeScraper{name: "leboncoin", listings: nil}
	svc = NewSearchService(
		[]scraper.Scraper{empty},
		&RelevanceEngine{refYear: 2024},
		&FraudEngine{refYear: 2024},
		nil,
		pub,
		utils.NewNopLogger(),
		SearchOptions{SourceTimeout: time.Second},
	)

	if _, err := svc.Search(context.Background(), models.SearchQuery{Brand: "Peugeot"}); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if pub.newListings != 0 || pub.searchCompleted != 1 {
		t.Errorf("empty search events = %d new_listings, %d search_completed; want 0 and 1",
			pub.newListings, pub.searchCompleted)
	}
}

type countingCache struct {
	stored *models.SearchResult
	hits   int
}

func (c *countingCache) Get(ctx context.Context, q models.SearchQuery) (*models.SearchResult, bool) {
	if c.stored != nil {
		c.hits++
		return c.stored, true
	}
	return nil, false
}

func (c *countingCache) Set(ctx context.Context, q models.SearchQuery, res *models.SearchResult) error {
	c.stored = res
	return nil
}

func TestSearchUsesCache(t *testing.T) {
	src := &fakeScraper{name: "leboncoin", listings: testListings("leboncoin", 3)}
	cc := &countingCache{}

	svc := NewSearchService(
		[]scraper.Scraper{src},
		&RelevanceEngine{refYear: 2024},
		&FraudEngine{refYear: 2024},
		cc,
		nil,
		utils.NewNopLogger(),
		SearchOptions{SourceTimeout: time.Second},
	)

	q := models.SearchQuery{Brand: "Peugeot", Model: "208"}

	first, err := svc.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("first search: %v", err)
	}
	if cc.stored == nil {
		t.Fatal("first search must populate the cache")
	}

	second, err := svc.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("second search: %v", err)
	}
	if cc.hits != 1 {
		t.Errorf("expected 1 cache hit, got %d", cc.hits)
	}
	if len(second.Listings) != len(first.Listings) {
		t.Errorf("cached result diverges: %d vs %d listings", len(second.Listings), len(first.Listings))
	}
}
