package signal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/contra/internal/common"
	"github.com/bobmcallan/contra/internal/models"
)

type fakeGemini struct {
	response string
	err      error
	prompt   string
}

func (f *fakeGemini) GenerateContent(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.response, f.err
}

func buyResponse() string {
	return `{
		"signal_type": "buy",
		"signal_strength": 7,
		"confidence": "medium",
		"summary": "Oversold on routine bad quarter.",
		"opportunity_reasons": ["valuation discount"],
		"risk_factors": ["execution risk"],
		"management_outlook": "Cautiously optimistic",
		"future_development": "Capacity expansion",
		"timeframe": "12-18 months",
		"entry_strategy": "Staggered entry",
		"competitive_moats": ["distribution network"]
	}`
}

func inputs(severity int) (*models.NewsSentiment, *models.FundamentalMetrics, *models.PeerComparison) {
	return &models.NewsSentiment{Score: -5, SeverityScore: severity, SeverityReason: "regulatory action", PanicLevel: models.PanicMedium},
		&models.FundamentalMetrics{Sector: "Banking", HealthScore: 8, PERatio: 12, IndustryPE: 18, ROE: 16},
		&models.PeerComparison{CompetitivePosition: models.PositionLeader, RelativeStrength: 8, PeerNames: []string{"Peer A"}}
}

func TestSynthesizeParsesResponse(t *testing.T) {
	svc := NewService(&fakeGemini{response: buyResponse()}, common.NewSilentLogger())
	news, fundamentals, peers := inputs(3)

	got := svc.Synthesize(context.Background(), news, fundamentals, peers)

	assert.Equal(t, models.SignalBuy, got.SignalType)
	assert.Equal(t, 7, got.SignalStrength)
	assert.Equal(t, models.ConfidenceMedium, got.Confidence)
	assert.Equal(t, []string{"valuation discount"}, got.OpportunityReasons)
	assert.Equal(t, "12-18 months", got.Timeframe)
}

func TestSynthesizeSeverityOverrideDowngradesBuy(t *testing.T) {
	for _, signalType := range []string{"buy", "strong_buy"} {
		t.Run(signalType, func(t *testing.T) {
			response := `{"signal_type": "` + signalType + `", "signal_strength": 9, "confidence": "high", "summary": "all good"}`
			svc := NewService(&fakeGemini{response: response}, common.NewSilentLogger())
			news, fundamentals, peers := inputs(8)

			got := svc.Synthesize(context.Background(), news, fundamentals, peers)

			assert.Equal(t, models.SignalHold, got.SignalType, "severity above 7 must never yield a buy-class signal")
			require.NotEmpty(t, got.RiskFactors)
			assert.Contains(t, got.RiskFactors[len(got.RiskFactors)-1], "severity 8")
		})
	}
}

func TestSynthesizeSeverityOverrideLeavesNonBuyAlone(t *testing.T) {
	response := `{"signal_type": "avoid", "signal_strength": 2, "confidence": "high", "summary": "stay away"}`
	svc := NewService(&fakeGemini{response: response}, common.NewSilentLogger())
	news, fundamentals, peers := inputs(9)

	got := svc.Synthesize(context.Background(), news, fundamentals, peers)

	assert.Equal(t, models.SignalAvoid, got.SignalType)
	assert.Empty(t, got.RiskFactors)
}

func TestSynthesizeSeverityAtCeilingAllowsBuy(t *testing.T) {
	svc := NewService(&fakeGemini{response: buyResponse()}, common.NewSilentLogger())
	news, fundamentals, peers := inputs(7)

	got := svc.Synthesize(context.Background(), news, fundamentals, peers)

	assert.Equal(t, models.SignalBuy, got.SignalType)
}

func TestSynthesizeNormalizesSignalVariants(t *testing.T) {
	tests := []struct {
		raw      string
		expected string
	}{
		{"Strong Buy", models.SignalStrongBuy},
		{"strong-buy", models.SignalStrongBuy},
		{"BUY", models.SignalBuy},
		{"Hold", models.SignalHold},
		{"AVOID", models.SignalAvoid},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			response := `{"signal_type": "` + tt.raw + `", "signal_strength": 5, "confidence": "low", "summary": "x"}`
			svc := NewService(&fakeGemini{response: response}, common.NewSilentLogger())
			news, fundamentals, peers := inputs(1)

			got := svc.Synthesize(context.Background(), news, fundamentals, peers)
			assert.Equal(t, tt.expected, got.SignalType)
		})
	}
}

func TestSynthesizeLLMFailureReturnsHold(t *testing.T) {
	svc := NewService(&fakeGemini{err: errors.New("model unavailable")}, common.NewSilentLogger())
	news, fundamentals, peers := inputs(3)

	got := svc.Synthesize(context.Background(), news, fundamentals, peers)

	assert.Equal(t, models.SignalHold, got.SignalType)
	assert.Equal(t, 5, got.SignalStrength)
	assert.Equal(t, models.ConfidenceLow, got.Confidence)
	assert.Contains(t, got.Summary, "model unavailable")
	assert.Empty(t, got.OpportunityReasons)
	assert.Empty(t, got.RiskFactors)
}

func TestSynthesizeUnparseableResponseReturnsHold(t *testing.T) {
	svc := NewService(&fakeGemini{response: "no json here"}, common.NewSilentLogger())
	news, fundamentals, peers := inputs(3)

	got := svc.Synthesize(context.Background(), news, fundamentals, peers)

	assert.Equal(t, models.SignalHold, got.SignalType)
	assert.Contains(t, got.Summary, "unparseable")
}

func TestSynthesizeUnknownSignalTypeReturnsHold(t *testing.T) {
	response := `{"signal_type": "maybe", "signal_strength": 5, "confidence": "low", "summary": "x"}`
	svc := NewService(&fakeGemini{response: response}, common.NewSilentLogger())
	news, fundamentals, peers := inputs(3)

	got := svc.Synthesize(context.Background(), news, fundamentals, peers)

	assert.Equal(t, models.SignalHold, got.SignalType)
}

func TestSynthesizePromptCarriesInputs(t *testing.T) {
	gemini := &fakeGemini{response: buyResponse()}
	svc := NewService(gemini, common.NewSilentLogger())
	news, fundamentals, peers := inputs(3)

	svc.Synthesize(context.Background(), news, fundamentals, peers)

	assert.Contains(t, gemini.prompt, "severity=3")
	assert.Contains(t, gemini.prompt, "sector=Banking")
	assert.Contains(t, gemini.prompt, "position=leader")
	assert.Contains(t, gemini.prompt, "NEVER recommend strong_buy or buy when severity > 7")
}
