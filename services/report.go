package services

import (
	"fmt"
	"strings"

	"carscout/models"
)

// PrintReport renders a human-readable summary of one search to stdout.
func PrintReport(r *models.SearchResult) {
	sep := strings.Repeat("═", 60)
	thin := strings.Repeat("─", 60)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  CARSCOUT SEARCH REPORT — %s %s\033[0m\n",
		strings.ToUpper(r.Query.Brand), strings.ToUpper(r.Query.Model))
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	// Sources
	fmt.Printf("\033[1;33m  Sources\033[0m\n")
	fmt.Printf("  %s\n", thin)
	for _, d := range r.Diagnostics {
		status := "\033[1;32mok\033[0m"
		detail := fmt.Sprintf("%d listings | pass=%s | %s | %dms",
			d.Listings, d.Pass, d.Strategy, d.ElapsedMs)
		if d.Failed {
			status = "\033[1;31mfailed\033[0m"
			detail = d.Error
		}
		fmt.Printf("  %-14s %s  %s\n", d.Source, status, detail)
	}
	fmt.Println()

	// Market stats
	fmt.Printf("\033[1;33m  Market Statistics\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if r.Stats == nil || r.Stats.AvgPrice == nil {
		fmt.Printf("  No price data available\n")
	} else {
		fmt.Printf("  Average price : \033[1;32m%.0f €\033[0m\n", *r.Stats.AvgPrice)
		fmt.Printf("  Median price  : \033[1;32m%.0f €\033[0m\n", *r.Stats.MedianPrice)
		fmt.Printf("  Price range   : %.0f € – %.0f €\n", *r.Stats.MinPrice, *r.Stats.MaxPrice)
		if r.Stats.AvgMileage != nil {
			fmt.Printf("  Average km    : %.0f km\n", *r.Stats.AvgMileage)
		}
		if r.Stats.AvgYear != nil {
			fmt.Printf("  Average year  : %.0f\n", *r.Stats.AvgYear)
		}
	}
	fmt.Println()

	// Top listings
	fmt.Printf("\033[1;33m  Top Listings (by relevance)\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.Listings) == 0 {
		fmt.Printf("  No listings found\n")
	}
	limit := 10
	if len(r.Listings) < limit {
		limit = len(r.Listings)
	}
	for i := 0; i < limit; i++ {
		l := r.Listings[i]
		price := "    n/a"
		if l.Price != nil {
			price = fmt.Sprintf("%6d €", *l.Price)
		}
		risk := fraudColor(l.FraudScore)
		fmt.Printf("  \033[1m%2d.\033[0m %-38s %s  rel=%3d  %s\n",
			i+1, truncate(l.Title, 38), price, l.RelevanceScore, risk)
		if len(l.RedFlags) > 0 {
			for _, fl := range l.RedFlags {
				fmt.Printf("       \033[31m⚑ %s (%s)\033[0m\n", fl.Type, fl.Severity)
			}
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

// PrintRecent renders previously persisted listings to stdout.
func PrintRecent(listings []*models.Listing) {
	thin := strings.Repeat("─", 60)

	fmt.Printf("\n\033[1;33m  Recently Stored Listings\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(listings) == 0 {
		fmt.Printf("  Nothing stored yet\n\n")
		return
	}

	for i, l := range listings {
		price := "    n/a"
		if l.Price != nil {
			price = fmt.Sprintf("%6d €", *l.Price)
		}
		fmt.Printf("  \033[1m%2d.\033[0m %-38s %s  rel=%3d  %s  [%s]\n",
			i+1, truncate(l.Title, 38), price, l.RelevanceScore,
			fraudColor(l.FraudScore), l.Source)
	}
	fmt.Println()
}

// PrintFraudReport renders one standalone fraud analysis to stdout.
func PrintFraudReport(rep *models.FraudReport) {
	thin := strings.Repeat("─", 60)

	fmt.Printf("\n\033[1;33m  Fraud Analysis\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Risk level  : %s\n", riskColor(rep.RiskLevel))
	fmt.Printf("  Fraud score : %d/100\n\n", rep.FraudScore)

	if len(rep.RedFlags) > 0 {
		fmt.Printf("  Red flags:\n")
		for _, fl := range rep.RedFlags {
			fmt.Printf("   \033[31m⚑\033[0m %-26s severity=%-8s confidence=%s\n",
				fl.Type, fl.Severity, fl.Confidence)
			for _, ev := range fl.Evidence {
				fmt.Printf("      · %s\n", ev)
			}
		}
		fmt.Println()
	}

	fmt.Printf("  Recommendations:\n")
	for _, rec := range rep.Recommendations {
		fmt.Printf("   → %s\n", rec)
	}
	fmt.Println()
}

func fraudColor(score int) string {
	switch {
	case score >= 70:
		return fmt.Sprintf("\033[1;31mfraud=%d\033[0m", score)
	case score >= 30:
		return fmt.Sprintf("\033[1;33mfraud=%d\033[0m", score)
	default:
		return fmt.Sprintf("\033[1;32mfraud=%d\033[0m", score)
	}
}

func riskColor(level models.RiskLevel) string {
	switch level {
	case models.RiskCritical, models.RiskHigh:
		return fmt.Sprintf("\033[1;31m%s\033[0m", level)
	case models.RiskMedium:
		return fmt.Sprintf("\033[1;33m%s\033[0m", level)
	default:
		return fmt.Sprintf("\033[1;32m%s\033[0m", level)
	}
}

// truncate counts runes, not bytes; accented titles must never be cut
// mid-sequence.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
