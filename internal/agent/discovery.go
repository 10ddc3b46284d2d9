package agent

import (
	"context"
	"fmt"

	"github.com/quantfold/stocksense/internal/agent/prompts"
	"github.com/quantfold/stocksense/internal/llm"
	"github.com/quantfold/stocksense/pkg/models"
)

// DiscoveryAgent asks the AI to surface potentially undervalued US stocks.
// The list is AI-sourced opinion, not screened market data; callers should
// present it as such.
type DiscoveryAgent struct {
	client llm.Client
}

// NewDiscoveryAgent creates a discovery agent.
func NewDiscoveryAgent(client llm.Client) *DiscoveryAgent {
	return &DiscoveryAgent{client: client}
}

// Discover returns the AI's undervalued-stock candidates. Every candidate
// must carry a ticker, a company name, and a reason; a list with any
// incomplete entry is rejected as a whole.
func (a *DiscoveryAgent) Discover(ctx context.Context) ([]models.UndervaluedCandidate, error) {
	candidates, err := askStrict[[]models.UndervaluedCandidate](ctx, a.client, prompts.Discovery())
	if err != nil {
		return nil, err
	}
	for i, c := range candidates {
		if c.Ticker == "" || c.CompanyName == "" || c.Reason == "" {
			return nil, fmt.Errorf("%w: discovery candidate %d missing required fields", ErrInvalidAIResponse, i)
		}
	}
	return candidates, nil
}
