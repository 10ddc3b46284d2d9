// Package llm provides the generative-AI gateway used by the analysis agents.
// It implements a single-prompt client for Google's Gemini API: one prompt in,
// cleaned response text out. No retries, no caching — every call is
// independent and at-most-once.
package llm

import (
	"context"
	"errors"
)

// Common errors returned by the gateway.
var (
	// ErrNoAPIKey indicates the provider credential is not configured.
	ErrNoAPIKey = errors.New("llm: API key not configured")

	// ErrProviderDown indicates a transport-level failure talking to the
	// provider: timeout, connection error, or a non-2xx status.
	ErrProviderDown = errors.New("llm: provider unavailable")

	// ErrMalformedResponse indicates a 2xx response whose body lacks the
	// expected envelope (no candidates, no content parts).
	ErrMalformedResponse = errors.New("llm: malformed provider response")
)

// Client is the gateway contract the agents consume.
type Client interface {
	// Name returns the provider identifier (e.g., "gemini").
	Name() string

	// Generate sends a prompt as the sole message content and returns the
	// first candidate's text with any surrounding Markdown code fence removed.
	Generate(ctx context.Context, prompt string) (string, error)

	// Ping checks if the provider is reachable and the API key is valid.
	Ping(ctx context.Context) error
}
