// Package agent implements the four-stage stock analysis pipeline and the
// undervalued-stock discovery flow. Each agent is the same prompt, generate,
// parse pipeline specialized by its prompt template, its target JSON shape,
// and its fallback policy: the fundamental and technical agents silently
// default to HOLD when the AI step fails, while the sentiment, final
// recommendation, and discovery agents fail hard because their responses
// carry content that cannot be sensibly defaulted.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/quantfold/stocksense/internal/llm"
	"github.com/quantfold/stocksense/pkg/models"
)

// ErrInvalidAIResponse is returned when the AI's text did not decode to the
// expected JSON shape, for agents with no safe default.
var ErrInvalidAIResponse = errors.New("agent: invalid AI response")

// askStrict sends a prompt and decodes the cleaned response into T.
// Gateway errors propagate as-is; decode failures become ErrInvalidAIResponse.
func askStrict[T any](ctx context.Context, client llm.Client, prompt string) (T, error) {
	var v T
	raw, err := client.Generate(ctx, prompt)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return v, fmt.Errorf("%w: %v", ErrInvalidAIResponse, err)
	}
	return v, nil
}

// askVerdict sends a prompt expecting {"recommendation": "..."} and returns
// the verdict. Any failure (gateway error, undecodable JSON, a missing
// recommendation key) falls back to HOLD without surfacing an error.
func askVerdict(ctx context.Context, client llm.Client, agentName, prompt string) models.Verdict {
	raw, err := client.Generate(ctx, prompt)
	if err != nil {
		log.Printf("%s: AI call failed, defaulting to HOLD: %v", agentName, err)
		return models.VerdictHold
	}

	var resp struct {
		Recommendation models.Verdict `json:"recommendation"`
	}
	if err := json.Unmarshal([]byte(raw), &resp); err != nil || resp.Recommendation == "" {
		log.Printf("%s: unusable AI response %q, defaulting to HOLD", agentName, raw)
		return models.VerdictHold
	}
	return resp.Recommendation
}
