package services

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"atlas_scraper/models"
)

type stubTrends struct {
	trends *models.MarketTrends
	ok     bool
}

func (s *stubTrends) CityTrends(context.Context, string) (*models.MarketTrends, bool, error) {
	return s.trends, s.ok, nil
}

func testAnalyzer(trends TrendSource) *Analyzer {
	log := logrus.New()
	return NewAnalyzer(testCalculator(), trends, log)
}

func TestAnalyzeRealRecord(t *testing.T) {
	record := &models.PropertyRecord{
		Address:      "Calle de Serrano 21, Madrid",
		City:         "Madrid",
		Price:        300000,
		SquareMeters: 85,
		Bedrooms:     3,
		Bathrooms:    2,
		PropertyType: "Piso",
		Source:       models.Source{Platform: models.PlatformIdealista},
	}

	analysis := testAnalyzer(nil).Analyze(context.Background(), record, models.ConfidenceReal)

	assert.False(t, analysis.IsFallback)
	assert.Equal(t, "Madrid", analysis.City)
	assert.InDelta(t, 4.5, analysis.MarketTrends.RentalYield, 0.01)
	assert.InDelta(t, defaultAreaGrowth, analysis.MarketTrends.AreaGrowth, 0.01)
	assert.Equal(t, defaultWalkScore, analysis.LocationAnalysis.WalkScore)
	assert.Equal(t, defaultTransitScore, analysis.LocationAnalysis.TransitScore)
	assert.GreaterOrEqual(t, analysis.AtlasScore, 10)
	assert.LessOrEqual(t, analysis.AtlasScore, 100)
	assert.NotEmpty(t, analysis.AIAnalysis)
}

func TestAnalyzeFallbackConfidence(t *testing.T) {
	record := &models.PropertyRecord{
		City: "Valencia", Price: 180000, SquareMeters: 70,
		Source: models.Source{Synthetic: true},
	}

	analysis := testAnalyzer(nil).Analyze(context.Background(), record, models.ConfidenceSynthetic)

	assert.True(t, analysis.IsFallback)
	assert.True(t, analysis.FinancialMetrics.LowConfidence)
	assert.Contains(t, analysis.AIAnalysis, "estimated")
}

func TestAnalyzeUsesArchivedTrends(t *testing.T) {
	trends := &stubTrends{
		trends: &models.MarketTrends{RentalYield: 6.2, SampleSize: 14},
		ok:     true,
	}

	record := &models.PropertyRecord{City: "Madrid", Price: 250000, SquareMeters: 60}
	analysis := testAnalyzer(trends).Analyze(context.Background(), record, models.ConfidenceReal)

	assert.InDelta(t, 6.2, analysis.MarketTrends.RentalYield, 0.01)
	assert.Equal(t, 14, analysis.MarketTrends.SampleSize)
}

func TestAtlasScoreBounds(t *testing.T) {
	assert.Equal(t, 10, AtlasScore(&models.FinancialMetrics{}, 0))

	high := &models.FinancialMetrics{
		RentalYield:      9,
		CapRate:          8,
		CashOnCashReturn: 20,
	}
	assert.Equal(t, 100, AtlasScore(high, 5))

	mid := &models.FinancialMetrics{
		RentalYield:      4.5,
		CapRate:          3.0,
		CashOnCashReturn: 2.0,
	}
	// 36 + 18 + 15 + 2
	assert.Equal(t, 71, AtlasScore(mid, 3.5))
}

func TestNegativeCashOnCashLowersAtlasScore(t *testing.T) {
	m := &models.FinancialMetrics{RentalYield: 4, CapRate: 3, CashOnCashReturn: -5}
	lower := AtlasScore(m, 3.5)
	m.CashOnCashReturn = 5
	higher := AtlasScore(m, 3.5)
	assert.Less(t, lower, higher)
}
