package models

import "time"

// FundamentalMetrics combines tabular truth with LLM-extracted qualitative
// analysis. Quantitative fields always come from the ticker dataset and are
// never overwritten by LLM output; qualitative fields and the two computed
// ratios come from extraction.
type FundamentalMetrics struct {
	// Quantitative (ticker dataset)
	MarketCap     float64 `json:"market_cap"`
	PERatio       float64 `json:"pe_ratio"`
	IndustryPE    float64 `json:"industry_pe"`
	ROE           float64 `json:"roe"`
	ROCE          float64 `json:"roce"`
	EPS           float64 `json:"eps"`
	PBRatio       float64 `json:"pb_ratio"`
	Dividend      float64 `json:"dividend"`
	DividendYield float64 `json:"dividend_yield"`
	CurrentPrice  float64 `json:"current_price"`
	DebtToEquity  float64 `json:"debt_to_equity"` // LLM-estimated, absent from the dataset

	// Returns
	Returns1M float64 `json:"returns_1m"`
	Returns3M float64 `json:"returns_3m"`
	Returns1Y float64 `json:"returns_1y"`
	Returns3Y float64 `json:"returns_3y"`
	Returns5Y float64 `json:"returns_5y"`

	// Technicals
	DMA50  float64 `json:"fifty_dma"`
	DMA200 float64 `json:"two_hundred_dma"`
	RSI    float64 `json:"rsi"`

	// Qualitative (LLM extraction)
	Sector            string   `json:"sector"`
	HealthScore       int      `json:"health_score"` // 0..10
	Strengths         []string `json:"strengths"`
	Concerns          []string `json:"concerns"`
	ManagementOutlook string   `json:"management_outlook"`
	FuturePlans       string   `json:"future_plans"`

	// Computed locally from the raw figures below, never trusted from the LLM
	RevenueGrowth float64 `json:"revenue_growth"`
	ProfitMargin  float64 `json:"profit_margin"`

	// Raw figures used only for the growth/margin computation
	RevenueCurrent float64 `json:"revenue_current"`
	RevenuePrior   float64 `json:"revenue_prior"`
	ProfitCurrent  float64 `json:"profit_current"`
	ProfitPrior    float64 `json:"profit_prior"`

	// Six-axis 0-100 comparable scores (Growth, Profitability, Efficiency,
	// Valuation, Dividend Yield, Momentum)
	NormalizedScores map[string]float64 `json:"normalized_scores,omitempty"`
}

// Competitive position labels
const (
	PositionLeader  = "leader"
	PositionAverage = "average"
	PositionLaggard = "laggard"
)

// PeerComparison holds the assembled peer set and the comparative verdict.
// PeerNames preserves selection order: manually specified peers first, then
// automatically discovered ones. The target company is never its own peer and
// the set holds at most MaxPeers entries.
type PeerComparison struct {
	CompetitivePosition string                         `json:"competitive_position"`
	RelativeStrength    int                            `json:"relative_strength"` // 0..10
	PeerNames           []string                       `json:"peer_names"`
	PeerMetrics         map[string]*FundamentalMetrics `json:"peer_metrics"`
}

// MaxPeers caps the peer set size.
const MaxPeers = 5

// Signal types
const (
	SignalStrongBuy = "strong_buy"
	SignalBuy       = "buy"
	SignalHold      = "hold"
	SignalAvoid     = "avoid"
)

// Confidence labels
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// ContrarianSignal is the terminal recommendation for a job, immutable once
// produced.
type ContrarianSignal struct {
	SignalType         string   `json:"signal_type"`
	SignalStrength     int      `json:"signal_strength"` // 0..10
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

// IsBuyClass reports whether a signal type recommends buying.
func IsBuyClass(signalType string) bool {
	return signalType == SignalStrongBuy || signalType == SignalBuy
}

// AnalysisResult is the complete output of one analysis job.
type AnalysisResult struct {
	CompanyName  string              `json:"company_name"`
	AnalysisDate time.Time           `json:"analysis_date"`
	News         *NewsSentiment      `json:"news"`
	Fundamentals *FundamentalMetrics `json:"fundamentals"`
	Peers        *PeerComparison     `json:"peers"`
	Signal       *ContrarianSignal   `json:"signal"`
}
