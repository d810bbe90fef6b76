package models

import "time"

// Pass is one widening level of a search. Later passes only relax the
// price ceiling, never narrow it.
type Pass string

const (
	PassStrict      Pass = "strict"
	PassRelaxed     Pass = "relaxed"     // maxPrice x 1.1
	PassOpportunity Pass = "opportunity" // maxPrice x 1.2
)

// SearchQuery is the immutable input to a search. One query may be
// executed under several passes.
type SearchQuery struct {
	Brand      string `json:"brand"`
	Model      string `json:"model,omitempty"`
	MaxPrice   int    `json:"max_price"`
	MinPrice   int    `json:"min_price,omitempty"`
	MinYear    int    `json:"min_year,omitempty"`
	MaxMileage int    `json:"max_mileage,omitempty"`
	ZipCode    string `json:"zip_code,omitempty"`
}

// RawAd holds one unnormalized ad as produced by an extraction strategy.
// Price, Year, Mileage and AIScore keep whatever shape the source used
// (number, digit string, or array); the normalizer resolves them.
// RawAds are never persisted.
type RawAd struct {
	ExternalID  string
	Title       string
	Brand       string
	Model       string
	Description string
	Price       interface{}
	Year        interface{}
	Mileage     interface{}
	URL         string
	ImageThumb  string
	ImageFull   string
	City        string
	ZipCode     string
	PhotoCount  int
	AIScore     interface{} // source-supplied 0-100 quality score, if any
}

// Listing is the canonical, source-normalized representation of one
// vehicle advertisement. Structural fields are immutable once constructed;
// the two scores are assigned post-construction and never revised.
//
// Price, Year and MileageKm are pointers because zero is a valid value
// and must not be conflated with "unknown".
type Listing struct {
	ID          string    `json:"id"` // source-prefixed, stable per (source, externalId)
	Source      string    `json:"source"`
	Title       string    `json:"title"`
	Brand       string    `json:"brand,omitempty"`
	Model       string    `json:"model,omitempty"`
	Price       *int      `json:"price"` // EUR
	Year        *int      `json:"year"`
	MileageKm   *int      `json:"mileage_km"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"image_url,omitempty"`
	City        string    `json:"city,omitempty"`
	Description string    `json:"description,omitempty"`
	PhotoCount  int       `json:"photo_count,omitempty"`
	AIScore     *int      `json:"ai_score,omitempty"` // source-supplied 0-100
	ScrapedAt   time.Time `json:"scraped_at"`

	RelevanceScore int            `json:"relevance_score"`
	FraudScore     int            `json:"fraud_score"`
	RedFlags       []FraudRedFlag `json:"red_flags,omitempty"`
}

// MarketStats are derived over one candidate set and recomputed fresh for
// every scoring pass, never cached across searches. All aggregate fields
// are nil when the underlying sample is empty.
type MarketStats struct {
	AvgPrice    *float64
	MedianPrice *float64
	MinPrice    *float64
	MaxPrice    *float64
	AvgMileage  *float64
	AvgYear     *float64
	SampleSize  int
}

// SourceDiagnostic records how one source behaved during a search.
type SourceDiagnostic struct {
	Source    string `json:"source"`
	Listings  int    `json:"listings"`
	Pass      Pass   `json:"pass,omitempty"`
	Strategy  string `json:"strategy,omitempty"`
	ElapsedMs int64  `json:"elapsed_ms"`
	Failed    bool   `json:"failed"`
	Error     string `json:"error,omitempty"`
}

// SearchResult is the aggregate outcome of one search execution. An empty
// Listings slice is a valid, non-error outcome.
type SearchResult struct {
	Query       SearchQuery        `json:"query"`
	Listings    []*Listing         `json:"listings"`
	Diagnostics []SourceDiagnostic `json:"diagnostics"`
	Stats       *MarketStats       `json:"-"`
}

// IntPtr is a convenience constructor for optional numeric fields.
func IntPtr(v int) *int { return &v }
