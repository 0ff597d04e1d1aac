package services

import (
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"atlas_scraper/config"
	"atlas_scraper/models"
)

// cityPricePerSqm holds the €/m² baselines used when fabricating listings.
var cityPricePerSqm = map[string]float64{
	"madrid":    4200,
	"barcelona": 4500,
	"valencia":  2800,
	"malaga":    3000,
	"málaga":    3000,
	"sevilla":   2500,
}

const defaultPricePerSqm = 3500

var knownCities = []string{"Madrid", "Barcelona", "Valencia", "Málaga", "Sevilla"}

var streetNames = []string{
	"Calle de Alcalá", "Calle Mayor", "Avenida Diagonal", "Calle de Serrano",
	"Carrer de Balmes", "Calle Colón", "Avenida del Puerto", "Calle Larios",
	"Calle Sierpes", "Paseo de Gracia",
}

var propertyTypes = []string{"Piso", "Apartamento", "Ático", "Dúplex"}

// Generator fabricates plausible listing data when scraping fails or is
// disabled. The rng is injected so output is reproducible under a fixed seed.
type Generator struct {
	rng       *rand.Rand
	now       func() time.Time
	baselines map[models.Platform]*config.PlatformConfig
}

func NewGenerator(rng *rand.Rand) *Generator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{rng: rng, now: time.Now}
}

// WithBaselines supplies the per-portal market baselines consulted when a
// city is not in the built-in table.
func (g *Generator) WithBaselines(baselines map[models.Platform]*config.PlatformConfig) *Generator {
	g.baselines = baselines
	return g
}

// pricePerSqm resolves city table first, then the portal baseline, then the
// nationwide default.
func (g *Generator) pricePerSqm(city string, platform models.Platform) float64 {
	if v, ok := cityPricePerSqm[strings.ToLower(city)]; ok {
		return v
	}
	if b := g.baselines[platform]; b != nil && b.AvgPricePerSqm > 0 {
		return b.AvgPricePerSqm
	}
	return defaultPricePerSqm
}

// perturb applies a uniform ±15% factor.
func (g *Generator) perturb(v float64) float64 {
	return v * (0.85 + g.rng.Float64()*0.30)
}

// InferCity guesses the city from a listing URL, defaulting to Madrid.
func InferCity(url string) string {
	lower := strings.ToLower(url)
	for _, city := range knownCities {
		needle := strings.ToLower(city)
		needle = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u").Replace(needle)
		if strings.Contains(lower, needle) {
			return city
		}
	}
	return "Madrid"
}

// FullySynthetic fabricates a complete record for the URL, tagged as
// synthetic so downstream consumers can see it is fallback data.
func (g *Generator) FullySynthetic(platform models.Platform, url string) *models.PropertyRecord {
	city := InferCity(url)

	sqm := math.Round(60 + g.rng.Float64()*90)
	ppsm := g.pricePerSqm(city, platform)
	price := math.Round(g.perturb(sqm*ppsm)/1000) * 1000

	bedrooms := int(sqm / 25)
	if bedrooms < 1 {
		bedrooms = 1
	}
	bathrooms := int(math.Floor(float64(bedrooms) * 0.7))
	if bathrooms < 1 {
		bathrooms = 1
	}

	street := streetNames[g.rng.Intn(len(streetNames))]
	number := 1 + g.rng.Intn(120)
	propertyType := propertyTypes[g.rng.Intn(len(propertyTypes))]

	return &models.PropertyRecord{
		Address:      fmt.Sprintf("%s %d, %s", street, number, city),
		City:         city,
		Price:        price,
		SquareMeters: sqm,
		Bedrooms:     bedrooms,
		Bathrooms:    bathrooms,
		PropertyType: propertyType,
		Description: fmt.Sprintf(
			"%s de %d habitaciones y %d baños en %s. %.0f m² construidos, bien comunicado y cerca de servicios.",
			propertyType, bedrooms, bathrooms, city, sqm),
		Images: []string{},
		Source: models.Source{
			Platform:  platform,
			URL:       url,
			ScrapedAt: g.now(),
			Synthetic: true,
		},
	}
}

// FillPartial completes a partially extracted record in place, inventing only
// the missing fields and tagging the record as partial.
func (g *Generator) FillPartial(record *models.PropertyRecord) {
	if record.City == "" {
		record.City = InferCity(record.Source.URL)
	}

	ppsm := g.pricePerSqm(record.City, record.Source.Platform)

	if record.SquareMeters <= 0 && record.Price > 0 {
		record.SquareMeters = math.Round(record.Price / g.perturb(ppsm))
	}
	if record.SquareMeters <= 0 {
		record.SquareMeters = math.Round(60 + g.rng.Float64()*90)
	}
	if record.Price <= 0 {
		record.Price = math.Round(g.perturb(record.SquareMeters*ppsm)/1000) * 1000
	}

	if record.Bedrooms <= 0 {
		record.Bedrooms = int(record.SquareMeters / 25)
		if record.Bedrooms < 1 {
			record.Bedrooms = 1
		}
	}
	if record.Bathrooms <= 0 {
		record.Bathrooms = int(math.Floor(float64(record.Bedrooms) * 0.7))
		if record.Bathrooms < 1 {
			record.Bathrooms = 1
		}
	}

	if record.Address == "" {
		record.Address = fmt.Sprintf("%s, %s",
			streetNames[g.rng.Intn(len(streetNames))], record.City)
	}
	if record.PropertyType == "" {
		record.PropertyType = propertyTypes[g.rng.Intn(len(propertyTypes))]
	}
	if record.Description == "" {
		record.Description = fmt.Sprintf(
			"Vivienda de %d habitaciones en %s, %.0f m². Datos parcialmente estimados.",
			record.Bedrooms, record.City, record.SquareMeters)
	}
	if record.Images == nil {
		record.Images = []string{}
	}

	record.Source.Partial = true
	record.Source.Synthetic = false
	if record.Source.ScrapedAt.IsZero() {
		record.Source.ScrapedAt = g.now()
	}
}
