package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"carscout/models"
)

// CSVWriter exports scored listings to a CSV file for offline analysis.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"id", "source", "title", "price", "year", "mileage_km",
		"city", "url", "relevance_score", "fraud_score", "scraped_at",
	}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// Write appends all listings to the file.
func (c *CSVWriter) Write(listings []*models.Listing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range listings {
		row := []string{
			l.ID,
			l.Source,
			l.Title,
			optStr(l.Price),
			optStr(l.Year),
			optStr(l.MileageKm),
			l.City,
			l.URL,
			strconv.Itoa(l.RelevanceScore),
			strconv.Itoa(l.FraudScore),
			l.ScrapedAt.Format(time.RFC3339),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

func optStr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
