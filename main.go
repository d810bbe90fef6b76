package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"carscout/cache"
	"carscout/config"
	"carscout/events"
	"carscout/fetch"
	"carscout/models"
	"carscout/scraper"
	"carscout/scraper/lacentrale"
	"carscout/scraper/leboncoin"
	"carscout/services"
	"carscout/storage"
	"carscout/utils"
)

func main() {
	var (
		brand       = flag.String("brand", "", "vehicle brand (required for search)")
		model       = flag.String("model", "", "vehicle model")
		maxPrice    = flag.Int("max-price", 0, "maximum price in EUR")
		minPrice    = flag.Int("min-price", 0, "minimum price in EUR")
		minYear     = flag.Int("min-year", 0, "minimum registration year")
		maxMileage  = flag.Int("max-mileage", 0, "maximum mileage in km")
		zipCode     = flag.String("zip", "", "zip code for localized search")
		analyzePath = flag.String("analyze", "", "analyze a single listing from a JSON file instead of searching")
		recentLimit = flag.Int("recent", 0, "print the N most recently stored listings and exit")
	)
	flag.Parse()

	cfg := config.Load()
	logger := utils.NewLogger(cfg.LogLevel)

	if *analyzePath != "" {
		if err := runAnalyze(*analyzePath); err != nil {
			logger.Error("Analyze failed: %v", err)
			os.Exit(1)
		}
		return
	}

	if *recentLimit > 0 {
		if err := runRecent(cfg, *recentLimit, logger); err != nil {
			logger.Error("Recent listing lookup failed: %v", err)
			os.Exit(1)
		}
		return
	}

	if *brand == "" {
		fmt.Fprintln(os.Stderr, "usage: carscout -brand <brand> [-model <model>] [-max-price <eur>] ...")
		fmt.Fprintln(os.Stderr, "       carscout -analyze <listing.json>")
		os.Exit(2)
	}

	query := models.SearchQuery{
		Brand:      *brand,
		Model:      *model,
		MaxPrice:   *maxPrice,
		MinPrice:   *minPrice,
		MinYear:    *minYear,
		MaxMileage: *maxMileage,
		ZipCode:    *zipCode,
	}

	logger.Info("=== carscout starting ===")
	logger.Info("Query — brand: %s | model: %s | max price: %d EUR", query.Brand, query.Model, query.MaxPrice)

	fetcher := buildFetcher(cfg, logger)
	normalizer := services.NewNormalizer(logger)

	scrapers := []scraper.Scraper{
		leboncoin.New(fetcher, normalizer, logger, cfg.ProxyCountry, cfg.MinBodyBytes),
		lacentrale.New(fetcher, normalizer, logger, cfg.ProxyCountry, cfg.MinBodyBytes),
	}

	var resultCache services.ResultCache
	if cfg.RedisEnabled {
		rc, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, logger)
		if err != nil {
			logger.Warn("Redis unavailable, continuing without cache: %v", err)
		} else {
			defer rc.Close()
			resultCache = rc
			if res, gated := gateScrape(context.Background(), rc, query, logger); gated {
				if res == nil {
					os.Exit(1)
				}
				services.PrintReport(res)
				return
			}
		}
	}

	var publisher services.EventPublisher
	if cfg.KafkaEnabled {
		producer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer producer.Close()
		publisher = producer
	}

	search := services.NewSearchService(
		scrapers,
		services.NewRelevanceEngine(),
		services.NewFraudEngine(),
		resultCache,
		publisher,
		logger,
		services.SearchOptions{
			SourceTimeout:     time.Duration(cfg.SourceTimeoutMs) * time.Millisecond,
			MinResultsPerPass: cfg.MinResultsPerPass,
			MaxConcurrency:    cfg.MaxConcurrency,
		},
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.SearchTimeoutMs)*time.Millisecond)
	defer cancel()

	result, err := search.Search(ctx, query)
	if err != nil {
		logger.Error("Search failed: %v", err)
		os.Exit(1)
	}

	services.PrintReport(result)

	if len(result.Listings) > 0 {
		exportCSV(cfg, result, logger)
		persist(cfg, result, logger)
	}
}

// buildFetcher selects the remote fetch backend. A missing rendering-API
// key is a configuration error: it is logged at error severity and the
// local Chrome backend takes over so the process stays useful.
func buildFetcher(cfg *config.Config, logger *utils.Logger) fetch.Fetcher {
	timeout := time.Duration(cfg.FetchTimeoutMs) * time.Millisecond

	if cfg.FetchBackend == "chrome" {
		logger.Info("Fetch backend: local headless Chrome")
		return fetch.NewChromeFetcher(cfg.ChromeBin, timeout, logger)
	}

	client, err := fetch.NewRenderAPIClient(cfg.RenderAPIKey, cfg.RenderAPIURL, timeout, logger)
	if err != nil {
		logger.Error("Render API misconfigured (%v) — falling back to local Chrome", err)
		return fetch.NewChromeFetcher(cfg.ChromeBin, timeout, logger)
	}
	logger.Info("Fetch backend: rendering API at %s", cfg.RenderAPIURL)
	return client
}

// scrapeGate is the rate-limit view of the cache consulted before a scrape.
type scrapeGate interface {
	CanScrapeQuery(ctx context.Context, q models.SearchQuery) bool
	Get(ctx context.Context, q models.SearchQuery) (*models.SearchResult, bool)
}

// gateScrape enforces the per-query scrape window. A rate-limited query is
// served from cache when possible; with nothing cached the run stops
// instead of hitting the sources again.
func gateScrape(ctx context.Context, gate scrapeGate, q models.SearchQuery, logger *utils.Logger) (*models.SearchResult, bool) {
	if gate.CanScrapeQuery(ctx, q) {
		return nil, false
	}
	if cached, ok := gate.Get(ctx, q); ok {
		logger.Warn("Query already scraped this window, serving the cached result")
		return cached, true
	}
	logger.Warn("Query already scraped this window and nothing cached; retry after the window expires")
	return nil, true
}

// runAnalyze scores one externally supplied listing without scraping.
func runAnalyze(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var input models.FraudInput
	if err := json.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	report := services.NewFraudEngine().Analyze(input)
	services.PrintFraudReport(report)
	return nil
}

// runRecent prints listings already persisted by earlier searches.
func runRecent(cfg *config.Config, limit int, logger *utils.Logger) error {
	if !cfg.PostgresEnabled {
		return fmt.Errorf("-recent requires POSTGRES_ENABLED=true")
	}

	pg, err := storage.NewPostgresWriter(cfg.DSN(), logger)
	if err != nil {
		return err
	}
	defer pg.Close()

	var reader storage.ListingReader = pg
	listings, err := reader.FetchRecent(limit)
	if err != nil {
		return err
	}

	services.PrintRecent(listings)
	return nil
}

func exportCSV(cfg *config.Config, result *models.SearchResult, logger *utils.Logger) {
	csvWriter, err := storage.NewCSVWriter(cfg.CSVOutputPath)
	if err != nil {
		logger.Error("CSV writer init failed: %v", err)
		return
	}
	if writeListings(csvWriter, result.Listings, logger, "CSV export") {
		logger.Info("Listings exported to %s", cfg.CSVOutputPath)
	}
}

func persist(cfg *config.Config, result *models.SearchResult, logger *utils.Logger) {
	if !cfg.PostgresEnabled {
		return
	}

	pgWriter, err := storage.NewPostgresWriter(cfg.DSN(), logger)
	if err != nil {
		logger.Error("PostgreSQL unavailable, listings not persisted: %v", err)
		return
	}
	if writeListings(pgWriter, result.Listings, logger, "PostgreSQL write") {
		logger.Info("Stored %d listings in PostgreSQL", len(result.Listings))
	}
}

func writeListings(w storage.ListingWriter, listings []*models.Listing, logger *utils.Logger, label string) bool {
	defer w.Close()
	if err := w.Write(listings); err != nil {
		logger.Error("%s failed: %v", label, err)
		return false
	}
	return true
}
