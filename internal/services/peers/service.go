// Package peers assembles a bounded peer set and produces the comparative
// competitive-position verdict.
package peers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bobmcallan/contra/internal/common"
	"github.com/bobmcallan/contra/internal/interfaces"
	"github.com/bobmcallan/contra/internal/models"
	"github.com/bobmcallan/contra/internal/scores"
)

// Service implements PeerService
type Service struct {
	tickers interfaces.TickerStore
	gemini  interfaces.GeminiClient
	logger  *common.Logger
}

// NewService creates a new peer comparison service
func NewService(tickers interfaces.TickerStore, gemini interfaces.GeminiClient, logger *common.Logger) *Service {
	return &Service{
		tickers: tickers,
		gemini:  gemini,
		logger:  logger,
	}
}

// Analyze builds the peer set and produces the comparative verdict. Manually
// specified peers that resolve in the dataset come first in their given
// order; remaining slots fill by industry P/E proximity, market-cap
// descending. The target is never its own peer and the set holds at most
// models.MaxPeers entries. An LLM failure degrades to average/5 while still
// returning the assembled peer metrics.
func (s *Service) Analyze(ctx context.Context, companyName string, target *models.FundamentalMetrics, manualPeers []string) *models.PeerComparison {
	comparison := &models.PeerComparison{
		CompetitivePosition: models.PositionAverage,
		RelativeStrength:    5,
		PeerNames:           []string{},
		PeerMetrics:         map[string]*models.FundamentalMetrics{},
	}

	s.assemblePeers(comparison, companyName, target, manualPeers)

	if len(comparison.PeerNames) == 0 {
		s.logger.Info().Str("company", companyName).Msg("No peers found, defaulting to average position")
		return comparison
	}

	response, err := s.gemini.GenerateContent(ctx, buildComparisonPrompt(companyName, target, comparison))
	if err != nil {
		s.logger.Warn().Str("company", companyName).Err(err).Msg("Peer comparison generation failed")
		return comparison
	}

	position, strength, ok := parseComparisonResponse(response)
	if !ok {
		s.logger.Warn().Str("company", companyName).Msg("Failed to parse peer comparison response")
		return comparison
	}
	comparison.CompetitivePosition = position
	comparison.RelativeStrength = strength
	return comparison
}

func (s *Service) assemblePeers(comparison *models.PeerComparison, companyName string, target *models.FundamentalMetrics, manualPeers []string) {
	targetKey := strings.ToLower(strings.TrimSpace(companyName))
	included := map[string]bool{targetKey: true}

	addPeer := func(record *models.CompanyRecord) {
		metrics := quantitativeMetrics(record)
		metrics.NormalizedScores = scores.Compute(metrics)
		comparison.PeerNames = append(comparison.PeerNames, record.Name)
		comparison.PeerMetrics[record.Name] = metrics
	}

	// Manual peers first, in the caller's order.
	for _, name := range manualPeers {
		if len(comparison.PeerNames) >= models.MaxPeers {
			return
		}
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" || included[key] {
			continue
		}
		record, found := s.tickers.GetDetails(name)
		if !found {
			s.logger.Debug().Str("peer", name).Msg("Manual peer not in ticker dataset, skipping")
			continue
		}
		included[key] = true
		addPeer(record)
	}

	remaining := models.MaxPeers - len(comparison.PeerNames)
	if remaining <= 0 || target == nil || target.IndustryPE == 0 {
		return
	}

	// Over-fetch to survive de-duplication against manual picks.
	candidates := s.tickers.FindPeers(target.IndustryPE, companyName, remaining*2)
	for _, record := range candidates {
		if len(comparison.PeerNames) >= models.MaxPeers {
			return
		}
		key := strings.ToLower(strings.TrimSpace(record.Name))
		if included[key] {
			continue
		}
		included[key] = true
		addPeer(record)
	}
}

// quantitativeMetrics maps a dataset record onto metrics with qualitative
// fields defaulted.
func quantitativeMetrics(record *models.CompanyRecord) *models.FundamentalMetrics {
	return &models.FundamentalMetrics{
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

		Sector:            "Unknown",
		HealthScore:       5,
		Strengths:         []string{},
		Concerns:          []string{},
		ManagementOutlook: "Data not available",
		FuturePlans:       "Data not available",
	}
}

// buildComparisonPrompt creates the competitive-position prompt.
func buildComparisonPrompt(companyName string, target *models.FundamentalMetrics, comparison *models.PeerComparison) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("You are a financial analyst. Compare %s against its industry peers.\n\n", companyName))
	sb.WriteString(fmt.Sprintf("Target: %s\n", formatMetricsLine(companyName, target)))
	sb.WriteString("Peers:\n")
	for _, name := range comparison.PeerNames {
		sb.WriteString(fmt.Sprintf("- %s\n", formatMetricsLine(name, comparison.PeerMetrics[name])))
	}

	sb.WriteString(`
Return ONLY valid JSON:
{
  "competitive_position": "leader|average|laggard",
  "relative_strength": 5
}

Rules:
- "relative_strength" is 0-10, where 10 means the target dominates every peer
- Weigh valuation (P/E vs industry P/E), profitability (ROE, ROCE) and momentum (1Y return)
- Return ONLY the JSON object, no markdown code fences, no explanation`)

	return sb.String()
}

func formatMetricsLine(name string, m *models.FundamentalMetrics) string {
	if m == nil {
		return name
	}
	return fmt.Sprintf("%s: PE=%.1f, IndustryPE=%.1f, ROE=%.1f%%, ROCE=%.1f%%, 1Y return=%.1f%%",
		name, m.PERatio, m.IndustryPE, m.ROE, m.ROCE, m.Returns1Y)
}

// comparisonResponse is the expected JSON shape from Gemini.
type comparisonResponse struct {
	CompetitivePosition string `json:"competitive_position"`
	RelativeStrength    int    `json:"relative_strength"`
}

func parseComparisonResponse(response string) (string, int, bool) {
	response = common.StripCodeFences(response)

	var data comparisonResponse
	if err := json.Unmarshal([]byte(response), &data); err != nil {
		return "", 0, false
	}

	switch data.CompetitivePosition {
	case models.PositionLeader, models.PositionAverage, models.PositionLaggard:
	default:
		return "", 0, false
	}

	strength := data.RelativeStrength
	if strength < 0 {
		strength = 0
	}
	if strength > 10 {
		strength = 10
	}
	return data.CompetitivePosition, strength, true
}
