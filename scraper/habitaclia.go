package scraper

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"atlas_scraper/models"
	"atlas_scraper/services"
)

type habitacliaParser struct{}

func (p *habitacliaParser) Platform() models.Platform {
	return models.PlatformHabitaclia
}

func (p *habitacliaParser) Parse(doc *goquery.Document, url string) (*models.PropertyRecord, error) {
	record := &models.PropertyRecord{
		Images: []string{},
		Source: models.Source{
			Platform:  models.PlatformHabitaclia,
			URL:       url,
			ScrapedAt: time.Now(),
		},
	}

	if price, ok := parseEuroAmount(doc.Find(".price span, .price").First().Text()); ok {
		record.Price = price
	}

	doc.Find(".feature-container .feature, ul.feature-container li").Each(func(_ int, sel *goquery.Selection) {
		text := cleanText(sel.Text())
		lower := strings.ToLower(text)
		switch {
		case strings.Contains(lower, "m²") || strings.Contains(lower, "m2"):
			if v, ok := parseLeadingInt(text); ok && record.SquareMeters == 0 {
				record.SquareMeters = float64(v)
			}
		case strings.Contains(lower, "hab"):
			if v, ok := parseLeadingInt(text); ok && record.Bedrooms == 0 {
				record.Bedrooms = v
			}
		case strings.Contains(lower, "baño"):
			if v, ok := parseLeadingInt(text); ok && record.Bathrooms == 0 {
				record.Bathrooms = v
			}
		}
	})

	record.Address = cleanText(doc.Find("h1.property-title, .property-title").First().Text())
	if location := cleanText(doc.Find(".location, #js-detail-map-location").First().Text()); location != "" {
		record.City = cityFromLocation(location)
		if record.Address == "" {
			record.Address = location
		}
	}
	if record.City == "" {
		record.City = services.InferCity(url)
	}

	record.Description = cleanText(doc.Find("#js-detail-description, .detail-description").First().Text())
	record.Images = collectImages(doc, "#js-gallery img, .gallery img", 12)
	record.PropertyType = propertyTypeFromTitle(record.Address)

	if record.Price == 0 && record.SquareMeters == 0 && record.Address == "" {
		return nil, fmt.Errorf("%w: no habitaclia fields found", ErrParse)
	}

	return record, nil
}
