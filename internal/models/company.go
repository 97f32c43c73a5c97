// Package models defines the data structures shared across Contra
package models

// CompanyRecord is one row of the ticker dataset, immutable after load.
// Every numeric field defaults to 0.0 when the source value is absent or
// unparsable, so a genuine zero and a missing value are indistinguishable.
type CompanyRecord struct {
	Name          string  `json:"name"`
	CurrentPrice  float64 `json:"current_price"` // LTP column
	MarketCap     float64 `json:"market_cap"`
	PERatio       float64 `json:"pe_ratio"`
	IndustryPE    float64 `json:"industry_pe"`
	ROE           float64 `json:"roe"`
	ROCE          float64 `json:"roce"`
	EPS           float64 `json:"eps"`
	PBRatio       float64 `json:"pb_ratio"`
	Dividend      float64 `json:"dividend"`
	DividendYield float64 `json:"dividend_yield"`
	Returns1M     float64 `json:"returns_1m"`
	Returns3M     float64 `json:"returns_3m"`
	Returns1Y     float64 `json:"returns_1y"`
	Returns3Y     float64 `json:"returns_3y"`
	Returns5Y     float64 `json:"returns_5y"`
	DMA50         float64 `json:"fifty_dma"`
	DMA200        float64 `json:"two_hundred_dma"`
	RSI           float64 `json:"rsi"`
}
