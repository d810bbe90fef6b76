package services

import (
	"sort"

	"carscout/models"
)

// ComputeMarketStats derives market statistics over one candidate set.
// Stats are recomputed fresh for every search because the candidate set
// changes per query; they are never cached. Aggregates stay nil when the
// underlying sample is empty.
func ComputeMarketStats(listings []*models.Listing) *models.MarketStats {
	stats := &models.MarketStats{SampleSize: len(listings)}

	var prices []float64
	var mileageSum, yearSum float64
	var mileageN, yearN int

	for _, l := range listings {
		if l.Price != nil {
			prices = append(prices, float64(*l.Price))
		}
		if l.MileageKm != nil {
			mileageSum += float64(*l.MileageKm)
			mileageN++
		}
		if l.Year != nil {
			yearSum += float64(*l.Year)
			yearN++
		}
	}

	if len(prices) > 0 {
		sort.Float64s(prices)
		var sum float64
		for _, p := range prices {
			sum += p
		}
		avg := sum / float64(len(prices))
		med := median(prices)
		stats.AvgPrice = &avg
		stats.MedianPrice = &med
		stats.MinPrice = &prices[0]
		stats.MaxPrice = &prices[len(prices)-1]
	}
	if mileageN > 0 {
		avg := mileageSum / float64(mileageN)
		stats.AvgMileage = &avg
	}
	if yearN > 0 {
		avg := yearSum / float64(yearN)
		stats.AvgYear = &avg
	}

	return stats
}

// median expects sorted input.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
