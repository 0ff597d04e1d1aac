package services

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/sirupsen/logrus"

	"atlas_scraper/models"
)

const (
	defaultAreaGrowth   = 3.5
	defaultWalkScore    = 78
	defaultTransitScore = 82
)

const analysisSystemPrompt = "You are an expert in Spanish real estate investment analysis. " +
	"Give a concise assessment of the property as a rental investment: strengths, risks, and a verdict."

// TrendSource supplies area-level context. The Postgres archive implements
// it; a nil source falls back to market defaults.
type TrendSource interface {
	CityTrends(ctx context.Context, city string) (*models.MarketTrends, bool, error)
}

// Analyzer assembles the full Analysis around a record: financial metrics,
// risk, market context, composite score and an optional AI narrative.
type Analyzer struct {
	calc   *Calculator
	trends TrendSource
	log    *logrus.Logger

	aiClient *openai.Client
	aiModel  string
}

func NewAnalyzer(calc *Calculator, trends TrendSource, log *logrus.Logger) *Analyzer {
	return &Analyzer{calc: calc, trends: trends, log: log}
}

// WithOpenAI enables AI narratives. Without it the heuristic summary is used.
// httpClient may be nil to use the SDK default.
func (a *Analyzer) WithOpenAI(apiKey, model string, httpClient *http.Client) *Analyzer {
	if apiKey == "" {
		return a
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}

	client := openai.NewClient(opts...)
	a.aiClient = &client
	a.aiModel = model
	return a
}

// Analyze builds the response payload for a record.
func (a *Analyzer) Analyze(ctx context.Context, record *models.PropertyRecord, confidence models.Confidence) *models.Analysis {
	metrics := a.calc.Metrics(record)
	risk := a.calc.Risk(record, &metrics)

	trends := models.MarketTrends{
		RentalYield: CityYield(record.City),
		AreaGrowth:  defaultAreaGrowth,
	}
	if a.trends != nil {
		if archived, ok, err := a.trends.CityTrends(ctx, record.City); err != nil {
			a.log.WithError(err).WithField("city", record.City).Warn("trend lookup failed")
		} else if ok {
			trends.RentalYield = archived.RentalYield
			trends.SampleSize = archived.SampleSize
		}
	}

	analysis := &models.Analysis{
		PropertyRecord:   *record,
		FinancialMetrics: metrics,
		RiskAssessment:   risk,
		MarketTrends:     trends,
		LocationAnalysis: models.LocationAnalysis{
			WalkScore:    defaultWalkScore,
			TransitScore: defaultTransitScore,
		},
		IsFallback: confidence.IsFallback(),
	}
	analysis.FinancialMetrics.AppreciationForecast = trends.AreaGrowth
	analysis.AtlasScore = AtlasScore(&analysis.FinancialMetrics, trends.AreaGrowth)
	analysis.AIAnalysis = a.narrative(ctx, analysis)

	return analysis
}

// AtlasScore is the composite 10-100 investment score.
func AtlasScore(m *models.FinancialMetrics, areaGrowth float64) int {
	score := math.Min(m.RentalYield*8, 40) +
		math.Min(m.CapRate*6, 30) +
		math.Min(areaGrowth*5, 15) +
		math.Min(m.CashOnCashReturn, 15)

	result := int(math.Round(score))
	if result < 10 {
		result = 10
	}
	if result > 100 {
		result = 100
	}
	return result
}

func (a *Analyzer) narrative(ctx context.Context, analysis *models.Analysis) string {
	if a.aiClient == nil {
		return heuristicNarrative(analysis)
	}

	aiCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	prompt := fmt.Sprintf(
		"Property: %s (%s). Price: %.0f EUR, %.0f m2, %d bedrooms, %d bathrooms. "+
			"Estimated rent: %.0f EUR/month. Rental yield: %.2f%%. Cap rate: %.2f%%. "+
			"Cash-on-cash: %.2f%%. Risk: %s (%d/100).",
		analysis.Address, analysis.City, analysis.Price, analysis.SquareMeters,
		analysis.Bedrooms, analysis.Bathrooms,
		analysis.FinancialMetrics.EstimatedMonthlyRent,
		analysis.FinancialMetrics.RentalYield,
		analysis.FinancialMetrics.CapRate,
		analysis.FinancialMetrics.CashOnCashReturn,
		analysis.RiskAssessment.Overall, analysis.RiskAssessment.Score)

	resp, err := a.aiClient.Chat.Completions.New(aiCtx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(a.aiModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(analysisSystemPrompt),
			openai.UserMessage(prompt),
		},
		MaxTokens:   openai.Int(250),
		Temperature: openai.Float(0.3),
	})
	if err != nil {
		a.log.WithError(err).Warn("AI analysis failed, using heuristic summary")
		return heuristicNarrative(analysis)
	}
	if len(resp.Choices) == 0 {
		return heuristicNarrative(analysis)
	}

	return resp.Choices[0].Message.Content
}

// heuristicNarrative is the offline fallback summary.
func heuristicNarrative(analysis *models.Analysis) string {
	m := analysis.FinancialMetrics

	verdict := "a balanced rental investment"
	switch {
	case m.RentalYield >= 5.5 && analysis.RiskAssessment.Score >= 70:
		verdict = "a strong rental investment with above-market yield"
	case m.RentalYield >= 4.5:
		verdict = "a solid rental investment at market yield"
	case m.RentalYield > 0 && m.RentalYield < 3.5:
		verdict = "a weak rental play; returns depend on appreciation"
	}

	note := ""
	if analysis.IsFallback {
		note = " Figures are estimated; verify against the live listing before acting."
	}

	return fmt.Sprintf(
		"%s in %s at %.0f EUR with an estimated %.2f%% gross yield and %.2f%% cap rate looks like %s. Risk is %s (%d/100).%s",
		analysis.PropertyType, orUnknown(analysis.City), analysis.Price,
		m.RentalYield, m.CapRate, verdict,
		analysis.RiskAssessment.Overall, analysis.RiskAssessment.Score, note)
}

func orUnknown(s string) string {
	if s == "" {
		return "an unknown area"
	}
	return s
}
