package scraper

import (
	"regexp"
	"time"

	"atlas_scraper/models"
)

// Partial extraction runs plain regexes over whatever text the page served,
// including interstitial and half-rendered pages where the selectors above
// find nothing.
var (
	partialPriceRegex    = regexp.MustCompile(`(\d{1,3}(?:[.\s]\d{3})+|\d{4,7})\s*€`)
	partialSqmRegex      = regexp.MustCompile(`(\d+)\s*m²`)
	partialBedroomsRegex = regexp.MustCompile(`(?i)(\d+)\s*habitacion`)
)

// ExtractPartial pulls what it can out of raw page text. The second return
// value is false when nothing at all was recognizable.
func ExtractPartial(platform models.Platform, url, text string) (*models.PropertyRecord, bool) {
	record := &models.PropertyRecord{
		Images: []string{},
		Source: models.Source{
			Platform:  platform,
			URL:       url,
			ScrapedAt: time.Now(),
			Partial:   true,
		},
	}

	found := false

	if m := partialPriceRegex.FindStringSubmatch(text); m != nil {
		if price, ok := parseEuroAmount(m[1]); ok {
			record.Price = price
			found = true
		}
	}

	if m := partialSqmRegex.FindStringSubmatch(text); m != nil {
		if v, ok := parseLeadingInt(m[1]); ok && v > 0 {
			record.SquareMeters = float64(v)
			found = true
		}
	}

	if m := partialBedroomsRegex.FindStringSubmatch(text); m != nil {
		if v, ok := parseLeadingInt(m[1]); ok && v > 0 {
			record.Bedrooms = v
			found = true
		}
	}

	if !found {
		return nil, false
	}
	return record, true
}
