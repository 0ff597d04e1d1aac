package scraper

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"atlas_scraper/models"
)

// Parser extracts a listing from the rendered page HTML. Parsers are pure:
// they never touch the network or the browser, which keeps them testable
// against fixture documents.
type Parser interface {
	Platform() models.Platform
	Parse(doc *goquery.Document, url string) (*models.PropertyRecord, error)
}

// parsers is the closed dispatch set. Adding a platform means adding a
// parser here and a constant in models; there is no runtime registration.
var parsers = map[models.Platform]Parser{
	models.PlatformIdealista:  &idealistaParser{},
	models.PlatformFotocasa:   &fotocasaParser{},
	models.PlatformHabitaclia: &habitacliaParser{},
}

// ForPlatform returns the parser for a platform.
func ForPlatform(p models.Platform) (Parser, error) {
	parser, ok := parsers[p]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, p)
	}
	return parser, nil
}

var (
	nonNumericRegex = regexp.MustCompile(`[^\d,.]`)
	intRegex        = regexp.MustCompile(`\d+`)
)

// parseEuroAmount handles the formats Spanish portals print prices in:
// "350.000 €", "350.000€", "1.250.000", "350 000" and comma decimals.
func parseEuroAmount(s string) (float64, bool) {
	s = nonNumericRegex.ReplaceAllString(s, "")
	if s == "" {
		return 0, false
	}

	// Dots are thousands separators; a trailing comma group is decimals.
	if i := strings.LastIndex(s, ","); i >= 0 && len(s)-i-1 <= 2 {
		s = strings.ReplaceAll(s[:i], ".", "") + "." + s[i+1:]
	} else {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// parseLeadingInt pulls the first integer out of strings like "3 hab." or
// "85 m²".
func parseLeadingInt(s string) (int, bool) {
	m := intRegex.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return v, true
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// collectImages gathers absolute image URLs matching the selector, deduped,
// capped at max.
func collectImages(doc *goquery.Document, selector string, max int) []string {
	seen := make(map[string]bool)
	images := []string{}

	doc.Find(selector).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, ok := sel.Attr("src")
		if !ok || src == "" {
			src, _ = sel.Attr("data-src")
		}
		if src == "" || !strings.HasPrefix(src, "http") || seen[src] {
			return true
		}
		seen[src] = true
		images = append(images, src)
		return len(images) < max
	})

	return images
}
