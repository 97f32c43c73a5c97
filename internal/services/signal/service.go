// Package signal synthesizes the final contrarian recommendation from the
// news, fundamentals and peer stage outputs.
package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bobmcallan/contra/internal/common"
	"github.com/bobmcallan/contra/internal/interfaces"
	"github.com/bobmcallan/contra/internal/models"
)

// severityCeiling is the severity score above which buy-class signals are
// forbidden regardless of any other input.
const severityCeiling = 7

// Service implements SignalService
type Service struct {
	gemini interfaces.GeminiClient
	logger *common.Logger
}

// NewService creates a new signal synthesis service
func NewService(gemini interfaces.GeminiClient, logger *common.Logger) *Service {
	return &Service{
		gemini: gemini,
		logger: logger,
	}
}

// Synthesize combines the three stage outputs into one recommendation. The
// severity override is enforced deterministically after parsing: a buy-class
// signal with severity above the ceiling is downgraded to hold even when the
// model's response disagrees. On call or parse failure it returns a fixed
// hold result with the error surfaced in the summary.
func (s *Service) Synthesize(ctx context.Context, news *models.NewsSentiment, fundamentals *models.FundamentalMetrics, peers *models.PeerComparison) *models.ContrarianSignal {
	response, err := s.gemini.GenerateContent(ctx, buildSynthesisPrompt(news, fundamentals, peers))
	if err != nil {
		s.logger.Warn().Err(err).Msg("Signal synthesis failed")
		return failureSignal(err)
	}

	result := parseSignalResponse(response)
	if result == nil {
		s.logger.Warn().Msg("Failed to parse signal synthesis response")
		return failureSignal(fmt.Errorf("unparseable synthesis response"))
	}

	if news != nil && news.SeverityScore > severityCeiling && models.IsBuyClass(result.SignalType) {
		s.logger.Info().
			Str("signal", result.SignalType).
			Int("severity", news.SeverityScore).
			Msg("Severity override: downgrading buy-class signal to hold")
		result.SignalType = models.SignalHold
		result.RiskFactors = append(result.RiskFactors,
			fmt.Sprintf("News severity %d/10 blocks a buy recommendation: %s", news.SeverityScore, news.SeverityReason))
	}

	return result
}

func failureSignal(err error) *models.ContrarianSignal {
	return &models.ContrarianSignal{
		SignalType:         models.SignalHold,
		SignalStrength:     5,
		Confidence:         models.ConfidenceLow,
		Summary:            fmt.Sprintf("Signal synthesis unavailable: %s", err.Error()),
		OpportunityReasons: []string{},
		RiskFactors:        []string{},
		CompetitiveMoats:   []string{},
	}
}

// buildSynthesisPrompt creates the final decision prompt.
func buildSynthesisPrompt(news *models.NewsSentiment, fundamentals *models.FundamentalMetrics, peers *models.PeerComparison) string {
	var sb strings.Builder

	sb.WriteString("You are a contrarian investment analyst. Combine the analyses below into one recommendation.\n\n")

	if news != nil {
		sb.WriteString(fmt.Sprintf("News sentiment: score=%d, panic=%s, severity=%d (%s), themes=%s\n",
			news.Score, news.PanicLevel, news.SeverityScore, news.SeverityReason, strings.Join(news.KeyThemes, "; ")))
	}
	if fundamentals != nil {
		sb.WriteString(fmt.Sprintf("Fundamentals: sector=%s, health=%d/10, PE=%.1f vs industry %.1f, ROE=%.1f%%, revenue growth=%.1f%%, profit margin=%.1f%%\n",
			fundamentals.Sector, fundamentals.HealthScore, fundamentals.PERatio, fundamentals.IndustryPE,
			fundamentals.ROE, fundamentals.RevenueGrowth, fundamentals.ProfitMargin))
		if len(fundamentals.Strengths) > 0 {
			sb.WriteString(fmt.Sprintf("Strengths: %s\n", strings.Join(fundamentals.Strengths, "; ")))
		}
		if len(fundamentals.Concerns) > 0 {
			sb.WriteString(fmt.Sprintf("Concerns: %s\n", strings.Join(fundamentals.Concerns, "; ")))
		}
	}
	if peers != nil {
		sb.WriteString(fmt.Sprintf("Peer comparison: position=%s, relative strength=%d/10, peers=%s\n",
			peers.CompetitivePosition, peers.RelativeStrength, strings.Join(peers.PeerNames, ", ")))
	}

	sb.WriteString(`
Decision rules you MUST follow:
- "strong_buy" requires negative sentiment AND strong fundamentals AND leader peer position AND severity < 5
- "buy" requires mixed or negative sentiment AND good fundamentals AND low or medium severity
- "avoid" is mandatory when fundamentals are poor OR severity > 7
- "hold" covers mixed signals or stretched valuation
- NEVER recommend strong_buy or buy when severity > 7, no matter how favorable everything else looks

Return ONLY valid JSON:
{
  "signal_type": "strong_buy|buy|hold|avoid",
  "signal_strength": 5,
  "confidence": "high|medium|low",
  "summary": "2-3 sentence contrarian thesis",
  "opportunity_reasons": ["reason1"],
  "risk_factors": ["risk1"],
  "management_outlook": "1 sentence",
  "future_development": "1 sentence",
  "timeframe": "suggested holding period",
  "entry_strategy": "1 sentence entry approach",
  "competitive_moats": ["moat1"]
}

Return ONLY the JSON object, no markdown code fences, no explanation`)

	return sb.String()
}

// signalResponse is the expected JSON shape from Gemini.
type signalResponse struct {
	SignalType         string   `json:"signal_type"`
	SignalStrength     int      `json:"signal_strength"`
	Confidence         string   `json:"confidence"`
	Summary            string   `json:"summary"`
	OpportunityReasons []string `json:"opportunity_reasons"`
	RiskFactors        []string `json:"risk_factors"`
	ManagementOutlook  string   `json:"management_outlook"`
	FutureDevelopment  string   `json:"future_development"`
	Timeframe          string   `json:"timeframe"`
	EntryStrategy      string   `json:"entry_strategy"`
	CompetitiveMoats   []string `json:"competitive_moats"`
}

// parseSignalResponse parses and normalizes the model's JSON response.
func parseSignalResponse(response string) *models.ContrarianSignal {
	response = common.StripCodeFences(response)

	var data signalResponse
	if err := json.Unmarshal([]byte(response), &data); err != nil {
		return nil
	}

	signalType, ok := normalizeSignalType(data.SignalType)
	if !ok {
		return nil
	}

	confidence := strings.ToLower(strings.TrimSpace(data.Confidence))
	switch confidence {
	case models.ConfidenceHigh, models.ConfidenceMedium, models.ConfidenceLow:
	default:
		confidence = models.ConfidenceLow
	}

	strength := data.SignalStrength
	if strength < 0 {
		strength = 0
	}
	if strength > 10 {
		strength = 10
	}

	result := &models.ContrarianSignal{
		SignalType:         signalType,
		SignalStrength:     strength,
		Confidence:         confidence,
		Summary:            data.Summary,
		OpportunityReasons: data.OpportunityReasons,
		RiskFactors:        data.RiskFactors,
		ManagementOutlook:  data.ManagementOutlook,
		FutureDevelopment:  data.FutureDevelopment,
		Timeframe:          data.Timeframe,
		EntryStrategy:      data.EntryStrategy,
		CompetitiveMoats:   data.CompetitiveMoats,
	}
	if result.OpportunityReasons == nil {
		result.OpportunityReasons = []string{}
	}
	if result.RiskFactors == nil {
		result.RiskFactors = []string{}
	}
	if result.CompetitiveMoats == nil {
		result.CompetitiveMoats = []string{}
	}
	return result
}

// normalizeSignalType accepts model variants like "Strong Buy" or
// "strong-buy" and maps them onto the closed enumeration.
func normalizeSignalType(raw string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")

	switch normalized {
	case models.SignalStrongBuy, models.SignalBuy, models.SignalHold, models.SignalAvoid:
		return normalized, true
	default:
		return "", false
	}
}
