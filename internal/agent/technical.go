package agent

import (
	"context"

	"github.com/quantfold/stocksense/internal/agent/prompts"
	"github.com/quantfold/stocksense/internal/analysis/technical"
	"github.com/quantfold/stocksense/internal/datasource"
	"github.com/quantfold/stocksense/internal/llm"
	"github.com/quantfold/stocksense/pkg/models"
)

// TechnicalAgent derives indicators from a year of daily bars and grades
// them. Missing or insufficient price history is a hard failure
// (datasource.ErrNoHistoricalData); a broken AI step only degrades the
// recommendation to HOLD.
type TechnicalAgent struct {
	client llm.Client
	market datasource.MarketData
}

// NewTechnicalAgent creates a technical analysis agent.
func NewTechnicalAgent(client llm.Client, market datasource.MarketData) *TechnicalAgent {
	return &TechnicalAgent{client: client, market: market}
}

// Analyze fetches the price history, computes the indicator snapshot, and
// asks the AI for a verdict. No AI call is made when the history is unusable.
func (a *TechnicalAgent) Analyze(ctx context.Context, ticker string) (models.TechnicalResult, error) {
	bars, err := a.market.GetDailyHistory(ctx, ticker)
	if err != nil {
		return models.TechnicalResult{}, err
	}

	ind, err := technical.LatestSnapshot(bars)
	if err != nil {
		return models.TechnicalResult{}, err
	}

	return models.TechnicalResult{
		RSI14:          ind.RSI14,
		EMA50:          ind.EMA50,
		ADX14:          ind.ADX14,
		Price:          ind.Close,
		Recommendation: askVerdict(ctx, a.client, "technical", prompts.Technical(ind)),
	}, nil
}
