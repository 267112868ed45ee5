package search

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cellarpress/sommelier/internal/domain"
)

// FormatForPrompt renders reviews as a deterministic numbered block for
// downstream prompt construction. Empty input renders to the empty string;
// the "no results" wording belongs to the prompt layer.
func FormatForPrompt(results []domain.Review) string {
	if len(results) == 0 {
		return ""
	}

	entries := make([]string, 0, len(results))
	for i, r := range results {
		price := "N/A"
		if r.Price != nil {
			price = "$" + strconv.FormatFloat(*r.Price, 'f', -1, 64)
		}

		var parts []string
		if r.Province != nil && *r.Province != "" {
			parts = append(parts, *r.Province)
		}
		if r.Country != nil && *r.Country != "" {
			parts = append(parts, *r.Country)
		}
		location := strings.Join(parts, ", ")

		reviewer := "Unknown"
		if r.TasterName != nil && *r.TasterName != "" {
			reviewer = *r.TasterName
		}

		variety := "N/A"
		if r.Variety != nil && *r.Variety != "" {
			variety = *r.Variety
		}

		winery := ""
		if r.Winery != nil {
			winery = *r.Winery
		}

		entries = append(entries, fmt.Sprintf(
			"%d. **%s** (%s)\n"+
				"   Variety: %s | Location: %s\n"+
				"   Points: %d | Price: %s | Reviewer: %s\n"+
				"   Description: %s",
			i+1, r.Title, winery, variety, location, r.Points, price, reviewer, r.Description,
		))
	}

	return strings.Join(entries, "\n\n")
}
