package agent

import (
	"context"

	"github.com/quantfold/stocksense/internal/agent/prompts"
	"github.com/quantfold/stocksense/internal/llm"
	"github.com/quantfold/stocksense/pkg/models"
)

// FundamentalAgent grades a company's fundamentals. It never fails: a broken
// AI step leaves the recommendation at HOLD and the snapshot facts are
// carried through unchanged.
type FundamentalAgent struct {
	client llm.Client
}

// NewFundamentalAgent creates a fundamental analysis agent.
func NewFundamentalAgent(client llm.Client) *FundamentalAgent {
	return &FundamentalAgent{client: client}
}

// Analyze builds the fundamental result from an already-fetched snapshot.
func (a *FundamentalAgent) Analyze(ctx context.Context, snap *models.QuoteSnapshot) models.FundamentalResult {
	result := models.FundamentalResult{
		CompanyName:        snap.Name,
		Price:              snap.Price(),
		AnalystPriceTarget: snap.TargetMeanPrice,
		PERatio:            snap.TrailingPE,
		RevenueGrowthYoY:   snap.RevenueGrowth,
		ForwardEPS:         snap.ForwardEPS,
		Recommendation:     models.VerdictHold,
	}

	result.Recommendation = askVerdict(ctx, a.client, "fundamental", prompts.Fundamental(snap))
	return result
}
