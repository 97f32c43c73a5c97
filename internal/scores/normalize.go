// Package scores maps raw financial ratios onto comparable 0-100 scores
package scores

import (
	"math"

	"github.com/bobmcallan/contra/internal/models"
)

// Score axis names
const (
	AxisGrowth        = "Growth"
	AxisProfitability = "Profitability"
	AxisEfficiency    = "Efficiency"
	AxisValuation     = "Valuation"
	AxisDividendYield = "Dividend Yield"
	AxisMomentum      = "Momentum"
)

// NormalizeLinear maps value onto [0,100] by linear interpolation between min
// and max. Values at or below min score 0, at or above max score 100. A
// missing value (NaN) scores a neutral 50 so missingness never lands on
// either extreme.
func NormalizeLinear(value, min, max float64) float64 {
	if math.IsNaN(value) {
		return 50.0
	}
	if value <= min {
		return 0.0
	}
	if value >= max {
		return 100.0
	}
	return (value - min) / (max - min) * 100.0
}

// Compute produces the six-axis normalized score set for a company's
// metrics, each rounded to one decimal place.
func Compute(m *models.FundamentalMetrics) map[string]float64 {
	return map[string]float64{
		AxisGrowth:        round1(NormalizeLinear(m.Returns5Y, -20, 100)),
		AxisProfitability: round1(NormalizeLinear(m.ROE, 0, 30)),
		AxisEfficiency:    round1(NormalizeLinear(m.ROCE, 0, 30)),
		AxisValuation:     round1(valuationScore(m.PERatio, m.IndustryPE)),
		AxisDividendYield: round1(NormalizeLinear(dividendYield(m), 0, 5)),
		AxisMomentum:      round1(NormalizeLinear(m.Returns1Y, -50, 100)),
	}
}

// valuationScore rewards P/E close to the industry P/E, with a bonus for
// undervaluation. Loss-making companies (negative P/E) are floored at 20;
// a missing P/E or industry P/E scores a neutral 50.
func valuationScore(pe, industryPE float64) float64 {
	if industryPE <= 0 {
		if pe < 0 {
			return 20.0
		}
		return 50.0
	}
	if pe == 0 {
		return 50.0
	}

	deviation := math.Abs(pe-industryPE) / industryPE * 100
	score := 100 - deviation*2
	if score < 0 {
		score = 0
	}
	if pe < industryPE {
		score = math.Min(100, score*1.1)
	}
	if pe < 0 && score < 20 {
		score = 20.0
	}
	return score
}

// dividendYield prefers a precomputed yield and falls back to
// dividend/price when only the raw dividend figure is available.
func dividendYield(m *models.FundamentalMetrics) float64 {
	if m.DividendYield != 0 {
		return m.DividendYield
	}
	if m.Dividend > 0 && m.CurrentPrice > 0 {
		return m.Dividend / m.CurrentPrice * 100
	}
	return 0.0
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
