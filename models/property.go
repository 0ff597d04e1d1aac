package models

import "time"

// Source records where a property record came from and how trustworthy it is.
// Synthetic and Partial are mutually exclusive; both false means a full real
// scrape.
type Source struct {
	Platform  Platform  `json:"platform"`
	URL       string    `json:"url"`
	ScrapedAt time.Time `json:"scrapedAt"`
	Synthetic bool      `json:"synthetic,omitempty"`
	Partial   bool      `json:"partial,omitempty"`
}

// PropertyRecord is the canonical unit of work: one listing as extracted by a
// parser, the partial extractor, or the synthetic generator. Records are
// never mutated after creation; enrichment builds an Analysis around a copy.
type PropertyRecord struct {
	Address              string   `json:"propertyAddress"`
	City                 string   `json:"city,omitempty"`
	Price                float64  `json:"price"`
	SquareMeters         float64  `json:"squareMeters"`
	Bedrooms             int      `json:"bedrooms"`
	Bathrooms            int      `json:"bathrooms"`
	PropertyType         string   `json:"propertyType,omitempty"`
	Description          string   `json:"description"`
	Images               []string `json:"images"`
	EstimatedMonthlyRent float64  `json:"-"` // 0 means unknown, estimated later
	Source               Source   `json:"source"`
}

// PricePerSquareMeter returns the derived €/m². The second return value is
// false when SquareMeters is zero, in which case the ratio is undefined.
func (r *PropertyRecord) PricePerSquareMeter() (float64, bool) {
	if r.SquareMeters <= 0 {
		return 0, false
	}
	return r.Price / r.SquareMeters, true
}

// Expenses breaks down the estimated annual operating costs.
type Expenses struct {
	PropertyTax    float64 `json:"propertyTax"`
	Insurance      float64 `json:"insurance"`
	Maintenance    float64 `json:"maintenance"`
	ManagementFees float64 `json:"managementFees"`
}

// Total sums all expense lines.
func (e Expenses) Total() float64 {
	return e.PropertyTax + e.Insurance + e.Maintenance + e.ManagementFees
}

// FinancialMetrics is the derived investment profile of a record. All fields
// are finite; a zero purchase price yields zero rates and LowConfidence=true.
type FinancialMetrics struct {
	PurchasePrice        float64  `json:"purchasePrice"`
	EstimatedMonthlyRent float64  `json:"estimatedMonthlyRent"`
	AnnualRentalIncome   float64  `json:"annualRentalIncome"`
	Expenses             Expenses `json:"expenses"`
	TotalExpenses        float64  `json:"totalExpenses"`
	NetOperatingIncome   float64  `json:"netOperatingIncome"`
	CapRate              float64  `json:"capRate"`
	CashOnCashReturn     float64  `json:"cashOnCashReturn"`
	RentalYield          float64  `json:"rentalYield"`
	PricePerSquareMeter  float64  `json:"pricePerSquareMeter,omitempty"`
	MortgagePayment      float64  `json:"mortgagePayment"`
	BreakEvenOccupancy   float64  `json:"breakEvenOccupancy"`
	AppreciationForecast float64  `json:"appreciationForecast"`
	LowConfidence        bool     `json:"lowConfidence,omitempty"`
}

// RiskLevel is the ordinal risk category.
type RiskLevel string

const (
	RiskVeryLow  RiskLevel = "Very Low"
	RiskLow      RiskLevel = "Low"
	RiskMedium   RiskLevel = "Medium"
	RiskHigh     RiskLevel = "High"
	RiskVeryHigh RiskLevel = "Very High"
)

// RiskAssessment scores the investment from 0 (worst) to 100 (best).
type RiskAssessment struct {
	Overall RiskLevel `json:"overall"`
	Score   int       `json:"score"`
}

// MarketTrends carries area-level context. SampleSize is non-zero only when
// the numbers come from archived analyses rather than market defaults.
type MarketTrends struct {
	RentalYield float64 `json:"rentalYield"`
	AreaGrowth  float64 `json:"areaGrowth"`
	SampleSize  int     `json:"sampleSize,omitempty"`
}

// LocationAnalysis carries walkability context for the listing's area.
type LocationAnalysis struct {
	WalkScore    int `json:"walkScore"`
	TransitScore int `json:"transitScore"`
}

// Analysis is the full response payload: the record plus everything derived
// from it.
type Analysis struct {
	PropertyRecord
	FinancialMetrics FinancialMetrics `json:"financialMetrics"`
	RiskAssessment   RiskAssessment   `json:"riskAssessment"`
	MarketTrends     MarketTrends     `json:"marketTrends"`
	LocationAnalysis LocationAnalysis `json:"locationAnalysis"`
	AtlasScore       int              `json:"atlasScore,omitempty"`
	AIAnalysis       string           `json:"aiAnalysis,omitempty"`
	IsFallback       bool             `json:"isFallback"`
}
