package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/quantfold/stocksense/internal/agent/prompts"
	"github.com/quantfold/stocksense/internal/llm"
	"github.com/quantfold/stocksense/pkg/models"
)

// RecommendationAgent synthesizes the three stage reports into one overall
// verdict with reasoning. Like the sentiment agent it fails hard on bad AI
// output.
type RecommendationAgent struct {
	client llm.Client
}

// NewRecommendationAgent creates the final recommendation agent.
func NewRecommendationAgent(client llm.Client) *RecommendationAgent {
	return &RecommendationAgent{client: client}
}

// Synthesize combines the stage results into the final recommendation.
func (a *RecommendationAgent) Synthesize(ctx context.Context, fundamental models.FundamentalResult, technical models.TechnicalResult, sentiment models.SentimentResult) (models.FinalRecommendation, error) {
	fj, err := json.Marshal(fundamental)
	if err != nil {
		return models.FinalRecommendation{}, fmt.Errorf("marshal fundamental result: %w", err)
	}
	tj, err := json.Marshal(technical)
	if err != nil {
		return models.FinalRecommendation{}, fmt.Errorf("marshal technical result: %w", err)
	}
	sj, err := json.Marshal(sentiment)
	if err != nil {
		return models.FinalRecommendation{}, fmt.Errorf("marshal sentiment result: %w", err)
	}

	result, err := askStrict[models.FinalRecommendation](ctx, a.client, prompts.Final(string(fj), string(tj), string(sj)))
	if err != nil {
		return models.FinalRecommendation{}, err
	}
	if result.OverallRecommendation == "" || result.OverallReasoning == "" {
		return models.FinalRecommendation{}, fmt.Errorf("%w: final recommendation missing required fields", ErrInvalidAIResponse)
	}
	return result, nil
}
