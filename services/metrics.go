package services

import (
	"math"
	"strings"

	"atlas_scraper/config"
	"atlas_scraper/models"
)

// cityYields holds gross rental yield baselines (%) per major market.
var cityYields = map[string]float64{
	"madrid":    4.5,
	"barcelona": 4.2,
	"valencia":  5.1,
	"malaga":    5.5,
	"málaga":    5.5,
	"sevilla":   5.3,
}

const defaultCityYield = 4.8

// CityYield returns the baseline gross yield (%) for a city.
func CityYield(city string) float64 {
	if y, ok := cityYields[strings.ToLower(strings.TrimSpace(city))]; ok {
		return y
	}
	return defaultCityYield
}

// ScoreFunc maps a record plus its metrics to a 0-100 risk score. The default
// implementation is DefaultRiskScore; callers may swap in their own.
type ScoreFunc func(record *models.PropertyRecord, m *models.FinancialMetrics) int

// CalculatorParams are the financing assumptions behind the derived metrics.
type CalculatorParams struct {
	DownPaymentRate    float64 // fraction of price paid upfront
	AnnualMortgageRate float64 // nominal annual rate
	MortgageYears      int

	PropertyTaxRate float64 // annual, fraction of price
	InsuranceRate   float64 // annual, fraction of price
	MaintenanceRate float64 // annual, fraction of price
	ManagementRate  float64 // fraction of gross rent
}

// DefaultCalculatorParams matches typical Spanish buy-to-let financing.
func DefaultCalculatorParams() CalculatorParams {
	return CalculatorParams{
		DownPaymentRate:    0.30,
		AnnualMortgageRate: 0.035,
		MortgageYears:      30,
		PropertyTaxRate:    0.005,
		InsuranceRate:      0.002,
		MaintenanceRate:    0.01,
		ManagementRate:     0.08,
	}
}

// Calculator derives investment metrics from a property record. It is pure:
// no IO, no clock, no randomness.
type Calculator struct {
	params    CalculatorParams
	score     ScoreFunc
	baselines map[models.Platform]*config.PlatformConfig
}

func NewCalculator(params CalculatorParams, score ScoreFunc) *Calculator {
	if score == nil {
		score = DefaultRiskScore
	}
	return &Calculator{params: params, score: score}
}

// WithBaselines supplies the per-portal yield baselines consulted when a city
// is not in the built-in table.
func (c *Calculator) WithBaselines(baselines map[models.Platform]*config.PlatformConfig) *Calculator {
	c.baselines = baselines
	return c
}

// yieldFor resolves city table first, then the portal baseline, then the
// nationwide default.
func (c *Calculator) yieldFor(record *models.PropertyRecord) float64 {
	if y, ok := cityYields[strings.ToLower(strings.TrimSpace(record.City))]; ok {
		return y
	}
	if b := c.baselines[record.Source.Platform]; b != nil && b.RentalYield > 0 {
		return b.RentalYield
	}
	return defaultCityYield
}

// EstimateMonthlyRent derives a monthly rent from the city or portal yield
// baseline, clamped to a 3-6% gross yield so outliers stay plausible.
func (c *Calculator) EstimateMonthlyRent(record *models.PropertyRecord) float64 {
	if record.EstimatedMonthlyRent > 0 {
		return record.EstimatedMonthlyRent
	}
	if record.Price <= 0 {
		return 0
	}

	yield := math.Max(3.0, math.Min(6.0, c.yieldFor(record)))
	return record.Price * yield / 100 / 12
}

// Metrics computes the full financial profile. All outputs are finite: a
// zero or missing price yields zero rates with LowConfidence set instead of
// NaN or Inf.
func (c *Calculator) Metrics(record *models.PropertyRecord) models.FinancialMetrics {
	m := models.FinancialMetrics{PurchasePrice: record.Price}

	if record.Price <= 0 {
		m.LowConfidence = true
		return m
	}

	rent := c.EstimateMonthlyRent(record)
	m.EstimatedMonthlyRent = round2(rent)
	m.AnnualRentalIncome = round2(rent * 12)

	m.Expenses = models.Expenses{
		PropertyTax:    round2(record.Price * c.params.PropertyTaxRate),
		Insurance:      round2(record.Price * c.params.InsuranceRate),
		Maintenance:    round2(record.Price * c.params.MaintenanceRate),
		ManagementFees: round2(m.AnnualRentalIncome * c.params.ManagementRate),
	}
	m.TotalExpenses = round2(m.Expenses.Total())
	m.NetOperatingIncome = round2(m.AnnualRentalIncome - m.TotalExpenses)

	m.CapRate = round2(m.NetOperatingIncome / record.Price * 100)
	m.RentalYield = round2(m.AnnualRentalIncome / record.Price * 100)

	if ppsm, ok := record.PricePerSquareMeter(); ok {
		m.PricePerSquareMeter = round2(ppsm)
	}

	down := record.Price * c.params.DownPaymentRate
	loan := record.Price - down
	m.MortgagePayment = round2(monthlyPayment(loan, c.params.AnnualMortgageRate, c.params.MortgageYears))

	annualDebtService := m.MortgagePayment * 12
	if down > 0 {
		m.CashOnCashReturn = round2((m.NetOperatingIncome - annualDebtService) / down * 100)
	}

	if m.AnnualRentalIncome > 0 {
		m.BreakEvenOccupancy = round2((m.TotalExpenses + annualDebtService) / m.AnnualRentalIncome * 100)
	}

	if record.Source.Synthetic || record.Source.Partial {
		m.LowConfidence = true
	}

	return m
}

// Risk runs the configured score function and maps the score to a category.
func (c *Calculator) Risk(record *models.PropertyRecord, m *models.FinancialMetrics) models.RiskAssessment {
	score := c.score(record, m)
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return models.RiskAssessment{Score: score, Overall: riskLevel(score)}
}

// DefaultRiskScore starts every listing at 70 and adjusts for market depth
// and yield.
func DefaultRiskScore(record *models.PropertyRecord, m *models.FinancialMetrics) int {
	score := 70

	switch strings.ToLower(strings.TrimSpace(record.City)) {
	case "madrid", "barcelona":
		score += 10
	}

	if m.RentalYield > 5 {
		score += 10
	} else if m.RentalYield < 3 {
		score -= 10
	}

	return score
}

func riskLevel(score int) models.RiskLevel {
	switch {
	case score >= 85:
		return models.RiskVeryLow
	case score >= 70:
		return models.RiskLow
	case score >= 50:
		return models.RiskMedium
	case score >= 30:
		return models.RiskHigh
	default:
		return models.RiskVeryHigh
	}
}

// monthlyPayment is the standard amortized mortgage formula.
func monthlyPayment(principal, annualRate float64, years int) float64 {
	if principal <= 0 || years <= 0 {
		return 0
	}
	if annualRate <= 0 {
		return principal / float64(years*12)
	}

	r := annualRate / 12
	n := float64(years * 12)
	factor := math.Pow(1+r, n)
	return principal * r * factor / (factor - 1)
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}
