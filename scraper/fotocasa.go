package scraper

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"atlas_scraper/models"
	"atlas_scraper/services"
)

type fotocasaParser struct{}

func (p *fotocasaParser) Platform() models.Platform {
	return models.PlatformFotocasa
}

func (p *fotocasaParser) Parse(doc *goquery.Document, url string) (*models.PropertyRecord, error) {
	record := &models.PropertyRecord{
		Images: []string{},
		Source: models.Source{
			Platform:  models.PlatformFotocasa,
			URL:       url,
			ScrapedAt: time.Now(),
		},
	}

	if price, ok := parseEuroAmount(doc.Find(".re-DetailHeader-price").First().Text()); ok {
		record.Price = price
	}

	doc.Find(".re-DetailHeader-features li, .re-DetailFeaturesList-featureContent").Each(func(_ int, sel *goquery.Selection) {
		text := cleanText(sel.Text())
		lower := strings.ToLower(text)
		switch {
		case strings.Contains(lower, "m²"):
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

	record.Address = cleanText(doc.Find(".re-DetailHeader-propertyTitle").First().Text())
	if location := cleanText(doc.Find(".re-DetailMap-address, .re-DetailHeader-municipalityTitle").First().Text()); location != "" {
		record.City = cityFromLocation(location)
		if record.Address == "" {
			record.Address = location
		}
	}
	if record.City == "" {
		record.City = services.InferCity(url)
	}

	record.Description = cleanText(doc.Find(".re-DetailDescription").First().Text())
	record.Images = collectImages(doc, ".re-DetailMosaicPhoto img, .re-DetailMosaic img", 12)
	record.PropertyType = propertyTypeFromTitle(record.Address)

	if record.Price == 0 && record.SquareMeters == 0 && record.Address == "" {
		return nil, fmt.Errorf("%w: no fotocasa fields found", ErrParse)
	}

	return record, nil
}
