package scraper

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"atlas_scraper/models"
	"atlas_scraper/services"
)

type idealistaParser struct{}

func (p *idealistaParser) Platform() models.Platform {
	return models.PlatformIdealista
}

func (p *idealistaParser) Parse(doc *goquery.Document, url string) (*models.PropertyRecord, error) {
	record := &models.PropertyRecord{
		Images: []string{},
		Source: models.Source{
			Platform:  models.PlatformIdealista,
			URL:       url,
			ScrapedAt: time.Now(),
		},
	}

	if price, ok := parseEuroAmount(doc.Find(".info-data-price").First().Text()); ok {
		record.Price = price
	}

	doc.Find(".info-features span").Each(func(_ int, sel *goquery.Selection) {
		text := cleanText(sel.Text())
		lower := strings.ToLower(text)
		switch {
		case strings.Contains(lower, "m²"):
			if v, ok := parseLeadingInt(text); ok {
				record.SquareMeters = float64(v)
			}
		case strings.Contains(lower, "hab"):
			if v, ok := parseLeadingInt(text); ok {
				record.Bedrooms = v
			}
		case strings.Contains(lower, "baño"):
			if v, ok := parseLeadingInt(text); ok {
				record.Bathrooms = v
			}
		}
	})

	record.Address = cleanText(doc.Find(".main-info__title-main").First().Text())
	if location := cleanText(doc.Find(".main-info__title-minor").First().Text()); location != "" {
		if record.Address != "" {
			record.Address = record.Address + ", " + location
		} else {
			record.Address = location
		}
		record.City = cityFromLocation(location)
	}
	if record.City == "" {
		record.City = services.InferCity(url)
	}

	record.Description = cleanText(doc.Find(".comment p").First().Text())
	if record.Description == "" {
		record.Description = cleanText(doc.Find(".comment").First().Text())
	}
	record.Images = collectImages(doc, ".detail-image img, picture.detail-image-gallery img", 12)
	record.PropertyType = propertyTypeFromTitle(record.Address)

	if record.Price == 0 && record.SquareMeters == 0 && record.Address == "" {
		return nil, fmt.Errorf("%w: no idealista fields found", ErrParse)
	}

	return record, nil
}

// cityFromLocation takes the last comma-separated segment, which the portals
// use for the municipality.
func cityFromLocation(location string) string {
	parts := strings.Split(location, ",")
	return cleanText(parts[len(parts)-1])
}

var propertyTypeLabels = []struct{ needle, label string }{
	{"ático", "Ático"},
	{"dúplex", "Dúplex"},
	{"chalet", "Chalet"},
	{"estudio", "Estudio"},
	{"apartamento", "Apartamento"},
	{"piso", "Piso"},
	{"casa", "Casa"},
}

func propertyTypeFromTitle(title string) string {
	lower := strings.ToLower(title)
	for _, t := range propertyTypeLabels {
		if strings.Contains(lower, t.needle) {
			return t.label
		}
	}
	return ""
}
