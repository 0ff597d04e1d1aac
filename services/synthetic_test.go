package services

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atlas_scraper/config"
	"atlas_scraper/models"
)

func TestFullySyntheticIsSeedStable(t *testing.T) {
	url := "https://www.idealista.com/inmueble/12345/"
	a := NewGenerator(rand.New(rand.NewSource(42))).FullySynthetic(models.PlatformIdealista, url)
	b := NewGenerator(rand.New(rand.NewSource(42))).FullySynthetic(models.PlatformIdealista, url)

	assert.Equal(t, a.Price, b.Price)
	assert.Equal(t, a.SquareMeters, b.SquareMeters)
	assert.Equal(t, a.Address, b.Address)
}

func TestFullySyntheticIsPlausible(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewSource(1)))

	for i := 0; i < 100; i++ {
		record := g.FullySynthetic(models.PlatformFotocasa, "https://www.fotocasa.es/vivienda/barcelona/1")

		assert.True(t, record.Source.Synthetic)
		assert.False(t, record.Source.Partial)
		assert.Equal(t, "Barcelona", record.City)
		assert.GreaterOrEqual(t, record.SquareMeters, 60.0)
		assert.LessOrEqual(t, record.SquareMeters, 150.0)
		assert.GreaterOrEqual(t, record.Bedrooms, 1)
		assert.GreaterOrEqual(t, record.Bathrooms, 1)
		assert.LessOrEqual(t, record.Bathrooms, record.Bedrooms)

		// price stays within +-15% of the Barcelona baseline
		ppsm := record.Price / record.SquareMeters
		assert.InDelta(t, 4500, ppsm, 4500*0.16)
	}
}

func TestInferCity(t *testing.T) {
	assert.Equal(t, "Valencia", InferCity("https://www.fotocasa.es/es/comprar/vivienda/valencia-capital/1"))
	assert.Equal(t, "Málaga", InferCity("https://www.idealista.com/venta-viviendas/malaga/piso-3"))
	assert.Equal(t, "Madrid", InferCity("https://www.habitaclia.com/vivienda-1.htm"))
}

func TestFillPartialKeepsExtractedFields(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewSource(5)))
	record := &models.PropertyRecord{
		Price:        350000,
		SquareMeters: 85,
		Source: models.Source{
			Platform: models.PlatformIdealista,
			URL:      "https://www.idealista.com/inmueble/99/",
		},
	}

	g.FillPartial(record)

	assert.Equal(t, 350000.0, record.Price)
	assert.Equal(t, 85.0, record.SquareMeters)
	assert.True(t, record.Source.Partial)
	assert.False(t, record.Source.Synthetic)
	require.NotEmpty(t, record.Address)
	assert.GreaterOrEqual(t, record.Bedrooms, 1)
	assert.GreaterOrEqual(t, record.Bathrooms, 1)
	assert.NotEmpty(t, record.Description)
}

func TestFillPartialDerivesSizeFromPrice(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewSource(9)))
	record := &models.PropertyRecord{
		Price:  420000,
		Source: models.Source{URL: "https://www.idealista.com/venta-viviendas/madrid/piso-1"},
	}

	g.FillPartial(record)

	assert.Equal(t, "Madrid", record.City)
	// derived from the Madrid 4200 euros/m2 baseline with perturbation
	assert.InDelta(t, 100, record.SquareMeters, 20)
}

func TestFillPartialUsesPortalBaselineForUnknownCity(t *testing.T) {
	g := NewGenerator(rand.New(rand.NewSource(7))).WithBaselines(map[models.Platform]*config.PlatformConfig{
		models.PlatformIdealista: {ID: "idealista", AvgPricePerSqm: 2000},
	})
	record := &models.PropertyRecord{
		City:         "Bilbao",
		SquareMeters: 100,
		Source: models.Source{
			Platform: models.PlatformIdealista,
			URL:      "https://www.idealista.com/inmueble/7/",
		},
	}

	g.FillPartial(record)

	// priced off the portal's 2000 euros/m2 baseline, not the 3500 default
	assert.InDelta(t, 200000, record.Price, 200000*0.16)
}
