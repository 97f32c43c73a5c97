// Package fundamentals extracts fundamental metrics from uploaded reports,
// merged against the ticker dataset.
package fundamentals

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/bobmcallan/contra/internal/common"
	"github.com/bobmcallan/contra/internal/interfaces"
	"github.com/bobmcallan/contra/internal/models"
	"github.com/bobmcallan/contra/internal/scores"
)

const (
	// maxContextChars caps the retrieved qualitative context fed to the LLM.
	maxContextChars = 32000

	// minContextChars is the threshold below which retrieved context is
	// considered too trivial to be worth an LLM call.
	minContextChars = 100

	// maxPDFChars truncates extraction to stay within model context limits.
	maxPDFChars = 50000

	// queryChunks is how many index chunks Analyze retrieves.
	queryChunks = 8
)

// Service implements FundamentalService
type Service struct {
	tickers interfaces.TickerStore
	index   interfaces.DocumentIndex
	gemini  interfaces.GeminiClient
	logger  *common.Logger
}

// NewService creates a new fundamentals service
func NewService(tickers interfaces.TickerStore, index interfaces.DocumentIndex, gemini interfaces.GeminiClient, logger *common.Logger) *Service {
	return &Service{
		tickers: tickers,
		index:   index,
		gemini:  gemini,
		logger:  logger,
	}
}

// Ingest extracts text from the report at path and stores it in the document
// index, replacing any previously ingested material for the company. A
// missing or unreadable file propagates as an error.
func (s *Service) Ingest(ctx context.Context, path, companyName, reportType, docID string) error {
	text, err := extractPDFText(path)
	if err != nil {
		return fmt.Errorf("failed to extract report text: %w", err)
	}

	if err := s.index.ClearCompany(ctx, companyName); err != nil {
		s.logger.Warn().Str("company", companyName).Err(err).Msg("Failed to clear previous report chunks")
	}

	if err := s.index.Ingest(ctx, text, companyName, reportType, docID); err != nil {
		return fmt.Errorf("failed to index report text: %w", err)
	}

	s.logger.Info().
		Str("company", companyName).
		Str("report_type", reportType).
		Int("chars", len(text)).
		Msg("Report ingested")
	return nil
}

// Analyze produces the merged metrics for a company. Quantitative fields
// always come from the ticker dataset; the LLM only fills qualitative and
// narrative fields, and growth/margin are recomputed locally from the raw
// revenue and profit figures. Never fails: lookup and LLM problems degrade to
// neutral defaults with the failure surfaced as a concern.
func (s *Service) Analyze(ctx context.Context, companyName string) *models.FundamentalMetrics {
	record, found := s.tickers.GetDetails(companyName)
	if !found {
		s.logger.Warn().Str("company", companyName).Msg("Company not in ticker dataset, quantitative fields default to zero")
		record = &models.CompanyRecord{Name: companyName}
	}

	extraction := s.extract(ctx, companyName)

	metrics := &models.FundamentalMetrics{
		MarketCap:     record.MarketCap,
		PERatio:       record.PERatio,
		IndustryPE:    record.IndustryPE,
		ROE:           record.ROE,
		ROCE:          record.ROCE,
		EPS:           record.EPS,
		PBRatio:       record.PBRatio,
		Dividend:      record.Dividend,
		DividendYield: record.DividendYield,
		CurrentPrice:  record.CurrentPrice,
		Returns1M:     record.Returns1M,
		Returns3M:     record.Returns3M,
		Returns1Y:     record.Returns1Y,
		Returns3Y:     record.Returns3Y,
		Returns5Y:     record.Returns5Y,
		DMA50:         record.DMA50,
		DMA200:        record.DMA200,
		RSI:           record.RSI,

		DebtToEquity:      extraction.DebtToEquity,
		Sector:            extraction.Sector,
		HealthScore:       extraction.HealthScore,
		Strengths:         extraction.Strengths,
		Concerns:          extraction.Concerns,
		ManagementOutlook: extraction.ManagementOutlook,
		FuturePlans:       extraction.FuturePlans,

		RevenueCurrent: extraction.RevenueCurrent,
		RevenuePrior:   extraction.RevenuePrior,
		ProfitCurrent:  extraction.ProfitCurrent,
		ProfitPrior:    extraction.ProfitPrior,
	}

	metrics.RevenueGrowth = growthRate(extraction.RevenueCurrent, extraction.RevenuePrior, extraction.RevenueGrowthPct)
	metrics.ProfitMargin = profitMargin(extraction.ProfitCurrent, extraction.RevenueCurrent)
	metrics.NormalizedScores = scores.Compute(metrics)

	return metrics
}

// growthRate computes (current-prior)/prior*100 when both figures are
// positive. Otherwise it falls back to the LLM-reported percentage, else 0.
// The local computation guards against unit-inconsistent model arithmetic.
func growthRate(current, prior, reported float64) float64 {
	if current > 0 && prior > 0 {
		return (current - prior) / prior * 100
	}
	return reported
}

// profitMargin computes profit/revenue*100 when both figures are positive.
func profitMargin(profit, revenue float64) float64 {
	if profit > 0 && revenue > 0 {
		return profit / revenue * 100
	}
	return 0.0
}

// extraction holds the qualitative fields the LLM is trusted for.
type extraction struct {
	Sector            string
	DebtToEquity      float64
	HealthScore       int
	Strengths         []string
	Concerns          []string
	ManagementOutlook string
	FuturePlans       string
	RevenueCurrent    float64
	RevenuePrior      float64
	ProfitCurrent     float64
	ProfitPrior       float64
	RevenueGrowthPct  float64
}

// neutralExtraction is the documented fallback when no useful context exists
// or the LLM call fails.
func neutralExtraction(concern string) extraction {
	e := extraction{
		Sector:            "Unknown",
		HealthScore:       5,
		Strengths:         []string{},
		Concerns:          []string{},
		ManagementOutlook: "Data not available",
		FuturePlans:       "Data not available",
	}
	if concern != "" {
		e.Concerns = append(e.Concerns, concern)
	}
	return e
}

func (s *Service) extract(ctx context.Context, companyName string) extraction {
	question := fmt.Sprintf("financial performance, revenue, profit, debt, management outlook and future plans of %s", companyName)
	reportContext, err := s.index.Query(ctx, question, companyName, queryChunks)
	if err != nil {
		s.logger.Warn().Str("company", companyName).Err(err).Msg("Document index query failed")
		return neutralExtraction(fmt.Sprintf("Report retrieval failed: %s", err.Error()))
	}
	if len(reportContext) > maxContextChars {
		reportContext = reportContext[:maxContextChars]
	}
	if len(reportContext) <= minContextChars {
		s.logger.Debug().Str("company", companyName).Int("chars", len(reportContext)).Msg("Insufficient report context, using neutral defaults")
		return neutralExtraction("")
	}

	response, err := s.gemini.GenerateContent(ctx, buildExtractionPrompt(companyName, reportContext))
	if err != nil {
		s.logger.Warn().Str("company", companyName).Err(err).Msg("Fundamental extraction failed")
		return neutralExtraction(fmt.Sprintf("Analysis unavailable: %s", err.Error()))
	}

	parsed, ok := parseExtractionResponse(response)
	if !ok {
		s.logger.Warn().Str("company", companyName).Msg("Failed to parse fundamental extraction response")
		return neutralExtraction("Analysis unavailable: unparseable extraction response")
	}
	return parsed
}

// buildExtractionPrompt creates the report extraction prompt.
func buildExtractionPrompt(companyName, reportContext string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("You are a financial analyst. Extract fundamental data for %s from these report excerpts.\n\nReport excerpts:\n", companyName))
	sb.WriteString(reportContext)
	sb.WriteString(`

Return ONLY valid JSON:
{
  "sector": "sector classification",
  "revenue_current": 0.0,
  "revenue_prior": 0.0,
  "profit_current": 0.0,
  "profit_prior": 0.0,
  "revenue_growth_pct": 0.0,
  "debt_to_equity": 0.0,
  "health_score": 5,
  "strengths": ["strength1"],
  "concerns": ["concern1"],
  "management_outlook": "1-2 sentence summary of management commentary",
  "future_plans": "1-2 sentence summary of stated plans"
}

Rules:
- Use the same currency unit for all revenue and profit figures; use 0.0 when a figure is not stated
- "health_score" is 0-10 overall financial health
- Do not invent numbers that are not in the excerpts
- Return ONLY the JSON object, no markdown code fences, no explanation`)

	return sb.String()
}

// extractionResponse is the expected JSON shape from Gemini.
type extractionResponse struct {
	Sector            string   `json:"sector"`
	RevenueCurrent    float64  `json:"revenue_current"`
	RevenuePrior      float64  `json:"revenue_prior"`
	ProfitCurrent     float64  `json:"profit_current"`
	ProfitPrior       float64  `json:"profit_prior"`
	RevenueGrowthPct  float64  `json:"revenue_growth_pct"`
	DebtToEquity      float64  `json:"debt_to_equity"`
	HealthScore       int      `json:"health_score"`
	Strengths         []string `json:"strengths"`
	Concerns          []string `json:"concerns"`
	ManagementOutlook string   `json:"management_outlook"`
	FuturePlans       string   `json:"future_plans"`
}

func parseExtractionResponse(response string) (extraction, bool) {
	response = common.StripCodeFences(response)

	var data extractionResponse
	if err := json.Unmarshal([]byte(response), &data); err != nil {
		return extraction{}, false
	}

	e := extraction{
		Sector:            data.Sector,
		DebtToEquity:      data.DebtToEquity,
		HealthScore:       data.HealthScore,
		Strengths:         data.Strengths,
		Concerns:          data.Concerns,
		ManagementOutlook: data.ManagementOutlook,
		FuturePlans:       data.FuturePlans,
		RevenueCurrent:    data.RevenueCurrent,
		RevenuePrior:      data.RevenuePrior,
		ProfitCurrent:     data.ProfitCurrent,
		ProfitPrior:       data.ProfitPrior,
		RevenueGrowthPct:  data.RevenueGrowthPct,
	}
	if e.Sector == "" {
		e.Sector = "Unknown"
	}
	if e.HealthScore < 0 {
		e.HealthScore = 0
	}
	if e.HealthScore > 10 {
		e.HealthScore = 10
	}
	if e.Strengths == nil {
		e.Strengths = []string{}
	}
	if e.Concerns == nil {
		e.Concerns = []string{}
	}
	return e, true
}

// extractPDFText extracts plain text from a PDF file page by page.
func extractPDFText(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	totalPages := r.NumPage()

	for i := 1; i <= totalPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")

		if sb.Len() > maxPDFChars {
			break
		}
	}

	return sb.String(), nil
}
