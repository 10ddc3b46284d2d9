package agent

import (
	"context"
	"fmt"

	"github.com/quantfold/stocksense/internal/agent/prompts"
	"github.com/quantfold/stocksense/internal/llm"
	"github.com/quantfold/stocksense/pkg/models"
)

// SentimentAgent asks the AI to summarize recent news and analyst sentiment
// for a company. Its output is free text plus a verdict, so there is no safe
// default: bad responses surface ErrInvalidAIResponse to the caller.
type SentimentAgent struct {
	client llm.Client
}

// NewSentimentAgent creates a sentiment analysis agent.
func NewSentimentAgent(client llm.Client) *SentimentAgent {
	return &SentimentAgent{client: client}
}

// Analyze runs the sentiment stage for the named company.
func (a *SentimentAgent) Analyze(ctx context.Context, companyName, ticker string) (models.SentimentResult, error) {
	result, err := askStrict[models.SentimentResult](ctx, a.client, prompts.Sentiment(companyName, ticker))
	if err != nil {
		return models.SentimentResult{}, err
	}
	if result.SentimentSummary == "" || result.Recommendation == "" || result.Reasoning == "" {
		return models.SentimentResult{}, fmt.Errorf("%w: sentiment response missing required fields", ErrInvalidAIResponse)
	}
	return result, nil
}
