package services

import (
	"time"

	"carscout/models"
)

// Neutral fallbacks applied when a sub-score's input is missing: roughly
// the midpoint of each sub-score's range, so missing data neither rewards
// nor punishes a listing.
const (
	neutralPrice   = 15
	neutralMileage = 10
	neutralAge     = 7
	neutralAI      = 5
)

// sourceReputation is the curated reputation table (0-10). Professional
// marketplaces rank above generalist classifieds; unknown sources get a
// conservative floor.
var sourceReputation = map[string]int{
	"lacentrale": 10, // professional
	"leboncoin":  6,  // generalist
}

const defaultReputation = 3

// RelevanceEngine computes the 0-100 buyer-fit score. It is a pure
// function of (listing, market stats): no randomness, no time-dependent
// terms except the vehicle age, whose reference year is fixed once at
// engine construction and held for the whole run.
type RelevanceEngine struct {
	refYear int
}

// NewRelevanceEngine captures the current wall-clock year as the fixed
// age reference.
func NewRelevanceEngine() *RelevanceEngine {
	return &RelevanceEngine{refYear: time.Now().Year()}
}

// Score returns the total relevance score, clamped to [0,100].
func (e *RelevanceEngine) Score(l *models.Listing, stats *models.MarketStats) int {
	total := e.priceScore(l, stats) +
		e.mileageScore(l) +
		e.ageScore(l) +
		e.sourceScore(l) +
		e.completenessScore(l) +
		e.aiScore(l)

	if total < 0 {
		total = 0
	}
	if total > 100 {
		total = 100
	}
	return total
}

// priceScore (0-30) rewards prices below the market average.
func (e *RelevanceEngine) priceScore(l *models.Listing, stats *models.MarketStats) int {
	if l.Price == nil || stats == nil || stats.AvgPrice == nil || *stats.AvgPrice <= 0 {
		return neutralPrice
	}
	ratio := float64(*l.Price) / *stats.AvgPrice
	switch {
	case ratio < 0.85:
		return 30
	case ratio < 0.95:
		return 25
	case ratio <= 1.05:
		return 20
	case ratio <= 1.15:
		return 10
	default:
		return 0
	}
}

// mileageScore (0-20) rewards low odometer readings.
func (e *RelevanceEngine) mileageScore(l *models.Listing) int {
	if l.MileageKm == nil {
		return neutralMileage
	}
	km := *l.MileageKm
	switch {
	case km < 30_000:
		return 20
	case km < 50_000:
		return 18
	case km < 100_000:
		return 15
	case km < 150_000:
		return 10
	case km < 200_000:
		return 5
	default:
		return 0
	}
}

// ageScore (0-15) rewards recent vehicles.
func (e *RelevanceEngine) ageScore(l *models.Listing) int {
	if l.Year == nil {
		return neutralAge
	}
	age := e.refYear - *l.Year
	switch {
	case age <= 2:
		return 15
	case age <= 5:
		return 12
	case age <= 10:
		return 8
	case age <= 15:
		return 4
	default:
		return 0
	}
}

// sourceScore (0-10) is a fixed lookup keyed by source tag.
func (e *RelevanceEngine) sourceScore(l *models.Listing) int {
	if rep, ok := sourceReputation[l.Source]; ok {
		return rep
	}
	return defaultReputation
}

// completenessScore (0-15) grants +3 for each of: price, mileage, year,
// image, and a title of at least 20 characters.
func (e *RelevanceEngine) completenessScore(l *models.Listing) int {
	score := 0
	if l.Price != nil {
		score += 3
	}
	if l.MileageKm != nil {
		score += 3
	}
	if l.Year != nil {
		score += 3
	}
	if l.ImageURL != "" {
		score += 3
	}
	if len(l.Title) >= 20 {
		score += 3
	}
	return score
}

// aiScore (0-10) rescales a source-supplied 0-100 quality score linearly.
func (e *RelevanceEngine) aiScore(l *models.Listing) int {
	if l.AIScore == nil {
		return neutralAI
	}
	return *l.AIScore / 10
}
