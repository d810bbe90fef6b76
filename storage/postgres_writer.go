package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"carscout/models"
	"carscout/utils"
)

// PostgresWriter persists scored listings to PostgreSQL, keyed by
// (source, external id). Re-running a search upserts fresh scores for
// ads that are still online.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection, verifies it with backoff, runs
// schema migrations, and returns a ready writer.
func NewPostgresWriter(dsn string, logger *utils.Logger) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	retry := &utils.RetryConfig{MaxAttempts: 5, BaseDelay: time.Second, Logger: logger}
	if err := retry.Do("postgres-ping", db.Ping); err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS listings (
			id              TEXT PRIMARY KEY, -- source-prefixed stable id
			source          VARCHAR(50) NOT NULL,
			title           TEXT        NOT NULL,
			brand           VARCHAR(80) NOT NULL DEFAULT '',
			model           VARCHAR(80) NOT NULL DEFAULT '',
			price           INTEGER,
			year            INTEGER,
			mileage_km      INTEGER,
			url             TEXT        NOT NULL,
			image_url       TEXT        NOT NULL DEFAULT '',
			city            TEXT        NOT NULL DEFAULT '',
			relevance_score INTEGER     NOT NULL DEFAULT 0,
			fraud_score     INTEGER     NOT NULL DEFAULT 0,
			scraped_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_listings_source    ON listings(source);
		CREATE INDEX IF NOT EXISTS idx_listings_price     ON listings(price);
		CREATE INDEX IF NOT EXISTS idx_listings_relevance ON listings(relevance_score);
		CREATE INDEX IF NOT EXISTS idx_listings_fraud     ON listings(fraud_score);
	`)
	return err
}

// Write batch-upserts listings with their current scores.
func (pw *PostgresWriter) Write(listings []*models.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	const batchSize = 50
	for i := 0; i < len(listings); i += batchSize {
		end := i + batchSize
		if end > len(listings) {
			end = len(listings)
		}
		if err := pw.upsertBatch(listings[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (pw *PostgresWriter) upsertBatch(batch []*models.Listing) error {
	const cols = 14
	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*cols)

	for idx, l := range batch {
		base := idx * cols
		placeholders := make([]string, cols)
		for c := 0; c < cols; c++ {
			placeholders[c] = fmt.Sprintf("$%d", base+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs,
			l.ID, l.Source, l.Title, l.Brand, l.Model,
			nullableInt(l.Price), nullableInt(l.Year), nullableInt(l.MileageKm),
			l.URL, l.ImageURL, l.City, l.RelevanceScore, l.FraudScore, l.ScrapedAt)
	}

	query := fmt.Sprintf(`
		INSERT INTO listings
			(id, source, title, brand, model, price, year, mileage_km,
			 url, image_url, city, relevance_score, fraud_score, scraped_at)
		VALUES %s
		ON CONFLICT (id) DO UPDATE SET
			price           = EXCLUDED.price,
			relevance_score = EXCLUDED.relevance_score,
			fraud_score     = EXCLUDED.fraud_score,
			scraped_at      = EXCLUDED.scraped_at
	`, strings.Join(valueStrings, ","))

	_, err := pw.db.Exec(query, valueArgs...)
	if err != nil {
		return fmt.Errorf("postgres: upsert batch: %w", err)
	}
	return nil
}

// FetchRecent returns the most recently scraped listings.
func (pw *PostgresWriter) FetchRecent(limit int) ([]*models.Listing, error) {
	rows, err := pw.db.Query(`
		SELECT id, source, title, brand, model, price, year, mileage_km,
		       url, image_url, city, relevance_score, fraud_score, scraped_at
		FROM listings
		ORDER BY scraped_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch recent: %w", err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		l := &models.Listing{}
		var price, year, mileage sql.NullInt64
		if err := rows.Scan(
			&l.ID, &l.Source, &l.Title, &l.Brand, &l.Model,
			&price, &year, &mileage,
			&l.URL, &l.ImageURL, &l.City,
			&l.RelevanceScore, &l.FraudScore, &l.ScrapedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		if price.Valid {
			l.Price = models.IntPtr(int(price.Int64))
		}
		if year.Valid {
			l.Year = models.IntPtr(int(year.Int64))
		}
		if mileage.Valid {
			l.MileageKm = models.IntPtr(int(mileage.Int64))
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// Close releases the connection pool.
func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
