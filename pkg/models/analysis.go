// Package models defines the shared data types exchanged between the
// datasource, analysis, and agent layers. All types are plain value records
// created fresh per request; nothing here carries cross-request state.
package models

import "time"

// Verdict is a trading recommendation issued by an analysis agent.
type Verdict string

const (
	VerdictBuy  Verdict = "BUY"
	VerdictSell Verdict = "SELL"
	VerdictHold Verdict = "HOLD"
)

// QuoteSnapshot holds the company-level fields fetched once per analysis
// request. Pointer fields are nil when the provider does not report them;
// the distinction between "absent" and "zero" is preserved here and only
// collapsed to 0 at prompt-rendering time.
type QuoteSnapshot struct {
	Ticker          string   `json:"ticker"`
	Name            string   `json:"name"`
	CurrentPrice    *float64 `json:"current_price,omitempty"`
	PreviousClose   *float64 `json:"previous_close,omitempty"`
	TargetMeanPrice *float64 `json:"target_mean_price,omitempty"`
	TrailingPE      *float64 `json:"trailing_pe,omitempty"`
	RevenueGrowth   *float64 `json:"revenue_growth,omitempty"` // YoY, percent
	ForwardEPS      *float64 `json:"forward_eps,omitempty"`
}

// Price returns the best available price: current price, falling back to the
// previous close, then to 0 when the provider reports neither.
func (q *QuoteSnapshot) Price() float64 {
	if q.CurrentPrice != nil {
		return *q.CurrentPrice
	}
	if q.PreviousClose != nil {
		return *q.PreviousClose
	}
	return 0
}

// OHLCV is a single daily price bar.
type OHLCV struct {
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    int64     `json:"volume"`
}

// IndicatorSnapshot holds the most recent row of indicator values for which
// every indicator has completed its warm-up period.
type IndicatorSnapshot struct {
	RSI14 float64 `json:"rsi_14"`
	EMA50 float64 `json:"ema_50"`
	ADX14 float64 `json:"adx_14"`
	Close float64 `json:"close"`
}

// FundamentalResult is the fundamental agent's output. CompanyName and Price
// are always populated; the remaining value fields mirror QuoteSnapshot's
// optionality and serialize as null when absent.
type FundamentalResult struct {
	CompanyName        string   `json:"company_name"`
	Price              float64  `json:"price"`
	AnalystPriceTarget *float64 `json:"analyst_price_target"`
	PERatio            *float64 `json:"pe_ratio"`
	RevenueGrowthYoY   *float64 `json:"revenue_growth_yoy"`
	ForwardEPS         *float64 `json:"forward_eps"`
	Recommendation     Verdict  `json:"recommendation"`
}

// TechnicalResult is the technical agent's output.
type TechnicalResult struct {
	RSI14          float64 `json:"rsi_14"`
	EMA50          float64 `json:"ema_50"`
	ADX14          float64 `json:"adx_14"`
	Price          float64 `json:"price"`
	Recommendation Verdict `json:"recommendation"`
}

// SentimentResult is the sentiment agent's output. All fields are required;
// a response missing any of them is rejected rather than defaulted.
type SentimentResult struct {
	SentimentSummary string  `json:"sentiment_summary"`
	Recommendation   Verdict `json:"recommendation"`
	Reasoning        string  `json:"reasoning"`
}

// FinalRecommendation is the synthesis agent's overall verdict.
type FinalRecommendation struct {
	OverallRecommendation string `json:"overall_recommendation"`
	OverallReasoning      string `json:"overall_reasoning"`
}

// StockAnalysis is the composite result for one ticker. It is assembled only
// after all four agents succeed; there is no partially-populated variant.
type StockAnalysis struct {
	Ticker              string              `json:"ticker"`
	Fundamental         FundamentalResult   `json:"fundamental"`
	Technical           TechnicalResult     `json:"technical"`
	Sentiment           SentimentResult     `json:"sentiment"`
	FinalRecommendation FinalRecommendation `json:"final_recommendation"`
}

// UndervaluedCandidate is one entry from the discovery agent's screen.
type UndervaluedCandidate struct {
	Ticker      string `json:"ticker"`
	CompanyName string `json:"company_name"`
	Reason      string `json:"reason"`
}

// NewsArticle is a single headline from a financial news feed.
type NewsArticle struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Source      string    `json:"source"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}
