package scores

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/contra/internal/models"
)

func TestNormalizeLinear(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		min, max float64
		expected float64
	}{
		{"at minimum", 0, 0, 30, 0},
		{"below minimum clamps", -10, 0, 30, 0},
		{"at maximum", 30, 0, 30, 100},
		{"above maximum clamps", 45, 0, 30, 100},
		{"midpoint", 15, 0, 30, 50},
		{"negative range", -20, -20, 100, 0},
		{"nan is neutral", math.NaN(), 0, 30, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, NormalizeLinear(tt.value, tt.min, tt.max), 0.001)
		})
	}
}

func TestNormalizeLinearMonotonic(t *testing.T) {
	prev := -1.0
	for v := -30.0; v <= 110.0; v += 5.0 {
		score := NormalizeLinear(v, -20, 100)
		assert.GreaterOrEqual(t, score, prev, "score must not decrease at value=%v", v)
		prev = score
	}
}

func TestValuationScore(t *testing.T) {
	tests := []struct {
		name       string
		pe         float64
		industryPE float64
		expected   float64
	}{
		{"matches industry exactly", 20, 20, 100},
		{"undervalued gets bonus", 18, 20, 88}, // (100-20)*1.1
		{"overvalued penalized", 25, 20, 50},
		{"far above industry floors at zero", 60, 20, 0},
		{"no industry pe is neutral", 20, 0, 50},
		{"missing pe with industry pe is neutral", 0, 25, 50},
		{"loss-making without industry pe", -5, 0, 20},
		{"loss-making with industry pe floors at 20", -30, 20, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, valuationScore(tt.pe, tt.industryPE), 0.001)
		})
	}
}

func TestComputeAllAxesPresent(t *testing.T) {
	m := &models.FundamentalMetrics{
		Returns5Y:  40,
		ROE:        15,
		ROCE:       18,
		PERatio:    22,
		IndustryPE: 20,
		Returns1Y:  25,
	}

	got := Compute(m)
	require.Len(t, got, 6)
	for _, axis := range []string{AxisGrowth, AxisProfitability, AxisEfficiency, AxisValuation, AxisDividendYield, AxisMomentum} {
		assert.Contains(t, got, axis)
		assert.GreaterOrEqual(t, got[axis], 0.0)
		assert.LessOrEqual(t, got[axis], 100.0)
	}
	assert.InDelta(t, 50.0, got[AxisGrowth], 0.001)
	assert.InDelta(t, 50.0, got[AxisProfitability], 0.001)
	assert.InDelta(t, 60.0, got[AxisEfficiency], 0.001)
	assert.InDelta(t, 50.0, got[AxisMomentum], 0.001)
}

func TestComputeDividendYieldFallback(t *testing.T) {
	// Yield derived from dividend and price when no explicit yield is set.
	m := &models.FundamentalMetrics{Dividend: 10, CurrentPrice: 400}
	got := Compute(m)
	assert.InDelta(t, 50.0, got[AxisDividendYield], 0.001) // 2.5% of [0,5]

	// Explicit yield takes precedence.
	m.DividendYield = 5
	got = Compute(m)
	assert.InDelta(t, 100.0, got[AxisDividendYield], 0.001)
}

func TestComputeZeroMetrics(t *testing.T) {
	got := Compute(&models.FundamentalMetrics{})
	assert.InDelta(t, 16.7, got[AxisGrowth], 0.1)
	assert.InDelta(t, 0.0, got[AxisProfitability], 0.001)
	assert.InDelta(t, 50.0, got[AxisValuation], 0.001)
	assert.InDelta(t, 0.0, got[AxisDividendYield], 0.001)
	assert.InDelta(t, 33.3, got[AxisMomentum], 0.1)
}
