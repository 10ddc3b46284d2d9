package agent

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quantfold/stocksense/internal/datasource"
	"github.com/quantfold/stocksense/internal/llm"
	"github.com/quantfold/stocksense/pkg/models"
)

// ── Test doubles ──

// scriptedClient routes every Generate call through a single function. The
// call counter is atomic because the orchestrator fans out concurrently.
type scriptedClient struct {
	generate func(prompt string) (string, error)
	calls    atomic.Int32
}

func (c *scriptedClient) Name() string { return "scripted" }

func (c *scriptedClient) Generate(ctx context.Context, prompt string) (string, error) {
	c.calls.Add(1)
	return c.generate(prompt)
}

func (c *scriptedClient) Ping(ctx context.Context) error { return nil }

// replyWith returns a client that answers every prompt with the same text.
func replyWith(text string) *scriptedClient {
	return &scriptedClient{generate: func(string) (string, error) { return text, nil }}
}

// failWith returns a client whose Generate always fails.
func failWith(err error) *scriptedClient {
	return &scriptedClient{generate: func(string) (string, error) { return "", err }}
}

// fakeMarket serves canned snapshots and histories per ticker.
type fakeMarket struct {
	snapshots map[string]*models.QuoteSnapshot
	histories map[string][]models.OHLCV
}

func (m *fakeMarket) Name() string { return "fake" }

func (m *fakeMarket) GetSnapshot(ctx context.Context, ticker string) (*models.QuoteSnapshot, error) {
	snap, ok := m.snapshots[ticker]
	if !ok {
		return nil, fmt.Errorf("%w: %s", datasource.ErrTickerNotFound, ticker)
	}
	return snap, nil
}

func (m *fakeMarket) GetDailyHistory(ctx context.Context, ticker string) ([]models.OHLCV, error) {
	bars, ok := m.histories[ticker]
	if !ok {
		return nil, fmt.Errorf("%w: %s", datasource.ErrNoHistoricalData, ticker)
	}
	return bars, nil
}

func f64(v float64) *float64 { return &v }

// yearOfBars builds a realistic year of daily candles.
func yearOfBars(n int) []models.OHLCV {
	bars := make([]models.OHLCV, n)
	base := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		c := 150 + 20*math.Sin(float64(i)/10) + float64(i)*0.05
		bars[i] = models.OHLCV{
			Timestamp: base.AddDate(0, 0, i),
			Open:      c - 1,
			High:      c + 2,
			Low:       c - 2,
			Close:     c,
			Volume:    50_000_000,
		}
	}
	return bars
}

func appleSnapshot() *models.QuoteSnapshot {
	return &models.QuoteSnapshot{
		Ticker:          "AAPL",
		Name:            "Apple Inc.",
		CurrentPrice:    f64(178.5),
		PreviousClose:   f64(177.2),
		TargetMeanPrice: f64(200.0),
		TrailingPE:      f64(28.1),
		RevenueGrowth:   f64(6.3),
		ForwardEPS:      f64(7.2),
	}
}

// ── Fundamental agent ──

func TestFundamentalAgentVerdict(t *testing.T) {
	a := NewFundamentalAgent(replyWith(`{"recommendation": "BUY"}`))

	result := a.Analyze(context.Background(), appleSnapshot())
	if result.Recommendation != models.VerdictBuy {
		t.Fatalf("Recommendation: got %q, want BUY", result.Recommendation)
	}
	if result.CompanyName != "Apple Inc." {
		t.Fatalf("CompanyName: got %q", result.CompanyName)
	}
	if result.Price != 178.5 {
		t.Fatalf("Price: got %f, want 178.5", result.Price)
	}
	if result.AnalystPriceTarget == nil || *result.AnalystPriceTarget != 200.0 {
		t.Fatalf("AnalystPriceTarget: got %v", result.AnalystPriceTarget)
	}
}

func TestFundamentalAgentHoldsOnGatewayFailure(t *testing.T) {
	a := NewFundamentalAgent(failWith(llm.ErrProviderDown))

	result := a.Analyze(context.Background(), appleSnapshot())
	if result.Recommendation != models.VerdictHold {
		t.Fatalf("Recommendation: got %q, want HOLD", result.Recommendation)
	}
	// The data part of the report survives the AI failure.
	if result.CompanyName != "Apple Inc." || result.Price != 178.5 {
		t.Fatalf("snapshot facts lost: %+v", result)
	}
}

func TestFundamentalAgentHoldsOnGarbage(t *testing.T) {
	tests := []string{
		"not json at all",
		`{"verdict": "BUY"}`, // wrong key
		`{}`,
	}
	for _, reply := range tests {
		a := NewFundamentalAgent(replyWith(reply))
		result := a.Analyze(context.Background(), appleSnapshot())
		if result.Recommendation != models.VerdictHold {
			t.Fatalf("reply %q: got %q, want HOLD", reply, result.Recommendation)
		}
	}
}

func TestFundamentalAgentPriceFallback(t *testing.T) {
	snap := appleSnapshot()
	snap.CurrentPrice = nil

	a := NewFundamentalAgent(replyWith(`{"recommendation": "HOLD"}`))
	result := a.Analyze(context.Background(), snap)
	if result.Price != 177.2 {
		t.Fatalf("Price should fall back to previous close, got %f", result.Price)
	}

	snap.PreviousClose = nil
	result = a.Analyze(context.Background(), snap)
	if result.Price != 0 {
		t.Fatalf("Price should fall back to 0, got %f", result.Price)
	}
}

// ── Technical agent ──

func TestTechnicalAgentVerdict(t *testing.T) {
	market := &fakeMarket{histories: map[string][]models.OHLCV{"AAPL": yearOfBars(252)}}
	a := NewTechnicalAgent(replyWith(`{"recommendation": "SELL"}`), market)

	result, err := a.Analyze(context.Background(), "AAPL")
	if err != nil {
		t.Fatal(err)
	}
	if result.Recommendation != models.VerdictSell {
		t.Fatalf("Recommendation: got %q, want SELL", result.Recommendation)
	}
	if result.RSI14 < 0 || result.RSI14 > 100 {
		t.Fatalf("RSI14 out of range: %f", result.RSI14)
	}
	if result.Price == 0 {
		t.Fatal("Price should carry the last close")
	}
}

func TestTechnicalAgentNoHistory(t *testing.T) {
	client := replyWith(`{"recommendation": "BUY"}`)
	market := &fakeMarket{histories: map[string][]models.OHLCV{}}
	a := NewTechnicalAgent(client, market)

	_, err := a.Analyze(context.Background(), "AAPL")
	if !errors.Is(err, datasource.ErrNoHistoricalData) {
		t.Fatalf("expected ErrNoHistoricalData, got: %v", err)
	}
	if client.calls.Load() != 0 {
		t.Fatalf("AI should not be called without history, got %d calls", client.calls.Load())
	}
}

func TestTechnicalAgentShortHistory(t *testing.T) {
	client := replyWith(`{"recommendation": "BUY"}`)
	market := &fakeMarket{histories: map[string][]models.OHLCV{"AAPL": yearOfBars(30)}}
	a := NewTechnicalAgent(client, market)

	_, err := a.Analyze(context.Background(), "AAPL")
	if !errors.Is(err, datasource.ErrNoHistoricalData) {
		t.Fatalf("expected ErrNoHistoricalData for 30 bars, got: %v", err)
	}
	if client.calls.Load() != 0 {
		t.Fatal("AI should not be called when indicators never warm up")
	}
}

func TestTechnicalAgentHoldsOnAIFailure(t *testing.T) {
	market := &fakeMarket{histories: map[string][]models.OHLCV{"AAPL": yearOfBars(252)}}
	a := NewTechnicalAgent(failWith(llm.ErrProviderDown), market)

	result, err := a.Analyze(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("AI failure should not fail the stage: %v", err)
	}
	if result.Recommendation != models.VerdictHold {
		t.Fatalf("Recommendation: got %q, want HOLD", result.Recommendation)
	}
}

// ── Sentiment agent ──

func TestSentimentAgent(t *testing.T) {
	a := NewSentimentAgent(replyWith(`{
		"sentiment_summary": "Broadly positive on services growth.",
		"recommendation": "BUY",
		"reasoning": "Analysts cite resilient demand."
	}`))

	result, err := a.Analyze(context.Background(), "Apple Inc.", "AAPL")
	if err != nil {
		t.Fatal(err)
	}
	if result.Recommendation != models.VerdictBuy {
		t.Fatalf("Recommendation: got %q", result.Recommendation)
	}
	if result.SentimentSummary == "" || result.Reasoning == "" {
		t.Fatalf("missing text fields: %+v", result)
	}
}

func TestSentimentAgentInvalidResponse(t *testing.T) {
	tests := []string{
		"not json",
		`{"sentiment_summary": "ok", "recommendation": "BUY"}`, // missing reasoning
		`{"recommendation": "BUY", "reasoning": "r"}`,          // missing summary
		`{}`,
	}
	for _, reply := range tests {
		a := NewSentimentAgent(replyWith(reply))
		_, err := a.Analyze(context.Background(), "Apple Inc.", "AAPL")
		if !errors.Is(err, ErrInvalidAIResponse) {
			t.Fatalf("reply %q: expected ErrInvalidAIResponse, got: %v", reply, err)
		}
	}
}

func TestSentimentAgentGatewayErrorPassesThrough(t *testing.T) {
	a := NewSentimentAgent(failWith(llm.ErrProviderDown))
	_, err := a.Analyze(context.Background(), "Apple Inc.", "AAPL")
	if !errors.Is(err, llm.ErrProviderDown) {
		t.Fatalf("expected ErrProviderDown, got: %v", err)
	}
	if errors.Is(err, ErrInvalidAIResponse) {
		t.Fatal("gateway errors must not be reclassified as invalid responses")
	}
}

// ── Recommendation agent ──

func TestRecommendationAgent(t *testing.T) {
	var seenPrompt string
	client := &scriptedClient{generate: func(prompt string) (string, error) {
		seenPrompt = prompt
		return `{"overall_recommendation": "BUY", "overall_reasoning": "All three agents align."}`, nil
	}}
	a := NewRecommendationAgent(client)

	fundamental := models.FundamentalResult{CompanyName: "Apple Inc.", Price: 178.5, Recommendation: models.VerdictBuy}
	technical := models.TechnicalResult{RSI14: 55, EMA50: 170, ADX14: 30, Price: 178.5, Recommendation: models.VerdictBuy}
	sentiment := models.SentimentResult{SentimentSummary: "positive", Recommendation: models.VerdictBuy, Reasoning: "demand"}

	final, err := a.Synthesize(context.Background(), fundamental, technical, sentiment)
	if err != nil {
		t.Fatal(err)
	}
	if final.OverallRecommendation != "BUY" {
		t.Fatalf("OverallRecommendation: got %q", final.OverallRecommendation)
	}
	// All three reports are serialized into the prompt.
	for _, fragment := range []string{`"company_name":"Apple Inc."`, `"rsi_14":55`, `"sentiment_summary":"positive"`} {
		if !strings.Contains(seenPrompt, fragment) {
			t.Fatalf("prompt missing %s:\n%s", fragment, seenPrompt)
		}
	}
}

func TestRecommendationAgentInvalidResponse(t *testing.T) {
	tests := []string{
		"not json",
		`{"overall_recommendation": "BUY"}`, // missing reasoning
		`{}`,
	}
	for _, reply := range tests {
		a := NewRecommendationAgent(replyWith(reply))
		_, err := a.Synthesize(context.Background(), models.FundamentalResult{}, models.TechnicalResult{}, models.SentimentResult{})
		if !errors.Is(err, ErrInvalidAIResponse) {
			t.Fatalf("reply %q: expected ErrInvalidAIResponse, got: %v", reply, err)
		}
	}
}

// ── Discovery agent ──

func TestDiscoveryAgent(t *testing.T) {
	a := NewDiscoveryAgent(replyWith(`[
		{"ticker": "INTC", "company_name": "Intel Corporation", "reason": "Trades below DCF fair value on foundry pessimism."},
		{"ticker": "PFE", "company_name": "Pfizer Inc.", "reason": "Cash flows durable relative to price."}
	]`))

	candidates, err := a.Discover(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 2 {
		t.Fatalf("got %d candidates, want 2", len(candidates))
	}
	if candidates[0].Ticker != "INTC" || candidates[1].CompanyName != "Pfizer Inc." {
		t.Fatalf("unexpected candidates: %+v", candidates)
	}
}

func TestDiscoveryAgentInvalidResponse(t *testing.T) {
	tests := []string{
		"not json",
		`{"ticker": "INTC"}`, // object, not array
		`[{"ticker": "INTC", "company_name": "Intel Corporation"}]`, // missing reason
		`[{"company_name": "Intel Corporation", "reason": "cheap"}]`, // missing ticker
	}
	for _, reply := range tests {
		a := NewDiscoveryAgent(replyWith(reply))
		_, err := a.Discover(context.Background())
		if !errors.Is(err, ErrInvalidAIResponse) {
			t.Fatalf("reply %q: expected ErrInvalidAIResponse, got: %v", reply, err)
		}
	}
}

func TestDiscoveryAgentEmptyList(t *testing.T) {
	a := NewDiscoveryAgent(replyWith(`[]`))
	candidates, err := a.Discover(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(candidates) != 0 {
		t.Fatalf("got %d candidates, want 0", len(candidates))
	}
}

// ── Orchestrator ──

// routingClient answers each prompt according to which template produced it.
func routingClient(t *testing.T) *scriptedClient {
	t.Helper()
	return &scriptedClient{generate: func(prompt string) (string, error) {
		switch {
		case strings.HasPrefix(prompt, "Based on the following fundamental data"):
			return `{"recommendation": "BUY"}`, nil
		case strings.HasPrefix(prompt, "Based on the following technical indicators"):
			return `{"recommendation": "HOLD"}`, nil
		case strings.HasPrefix(prompt, "Analyze market sentiment"):
			return `{"sentiment_summary": "Positive.", "recommendation": "BUY", "reasoning": "Strong demand."}`, nil
		case strings.HasPrefix(prompt, "Given the following reports"):
			return `{"overall_recommendation": "BUY", "overall_reasoning": "Two of three agents favor buying."}`, nil
		default:
			t.Errorf("unexpected prompt:\n%s", prompt)
			return "", fmt.Errorf("unexpected prompt")
		}
	}}
}

func newTestMarket() *fakeMarket {
	return &fakeMarket{
		snapshots: map[string]*models.QuoteSnapshot{"AAPL": appleSnapshot()},
		histories: map[string][]models.OHLCV{"AAPL": yearOfBars(252)},
	}
}

func TestOrchestratorAnalyze(t *testing.T) {
	orch := NewOrchestrator(routingClient(t), newTestMarket())

	analysis, err := orch.Analyze(context.Background(), "aapl")
	if err != nil {
		t.Fatal(err)
	}

	if analysis.Ticker != "AAPL" {
		t.Fatalf("Ticker: got %q, want AAPL", analysis.Ticker)
	}
	if analysis.Fundamental.Recommendation != models.VerdictBuy {
		t.Fatalf("Fundamental: got %q", analysis.Fundamental.Recommendation)
	}
	if analysis.Technical.Recommendation != models.VerdictHold {
		t.Fatalf("Technical: got %q", analysis.Technical.Recommendation)
	}
	if analysis.Sentiment.Recommendation != models.VerdictBuy {
		t.Fatalf("Sentiment: got %q", analysis.Sentiment.Recommendation)
	}
	if analysis.FinalRecommendation.OverallRecommendation != "BUY" {
		t.Fatalf("Final: got %q", analysis.FinalRecommendation.OverallRecommendation)
	}
	if analysis.Fundamental.CompanyName != "Apple Inc." {
		t.Fatalf("CompanyName: got %q", analysis.Fundamental.CompanyName)
	}
}

func TestOrchestratorUnknownTicker(t *testing.T) {
	client := routingClient(t)
	orch := NewOrchestrator(client, newTestMarket())

	_, err := orch.Analyze(context.Background(), "ZZZZ")
	if !errors.Is(err, datasource.ErrTickerNotFound) {
		t.Fatalf("expected ErrTickerNotFound, got: %v", err)
	}
	if client.calls.Load() != 0 {
		t.Fatalf("no AI calls expected for an unknown ticker, got %d", client.calls.Load())
	}
}

func TestOrchestratorNamelessTicker(t *testing.T) {
	market := newTestMarket()
	market.snapshots["GHST"] = &models.QuoteSnapshot{Ticker: "GHST"}

	client := routingClient(t)
	orch := NewOrchestrator(client, market)

	_, err := orch.Analyze(context.Background(), "GHST")
	if !errors.Is(err, datasource.ErrTickerNotFound) {
		t.Fatalf("expected ErrTickerNotFound for a nameless snapshot, got: %v", err)
	}
	if client.calls.Load() != 0 {
		t.Fatal("no AI calls expected for a nameless snapshot")
	}
}

func TestOrchestratorSentimentFailureAborts(t *testing.T) {
	client := &scriptedClient{generate: func(prompt string) (string, error) {
		if strings.HasPrefix(prompt, "Analyze market sentiment") {
			return "garbage", nil
		}
		return `{"recommendation": "BUY"}`, nil
	}}
	orch := NewOrchestrator(client, newTestMarket())

	_, err := orch.Analyze(context.Background(), "AAPL")
	if !errors.Is(err, ErrInvalidAIResponse) {
		t.Fatalf("expected ErrInvalidAIResponse, got: %v", err)
	}
}

func TestOrchestratorNoHistoryAborts(t *testing.T) {
	market := newTestMarket()
	delete(market.histories, "AAPL")

	orch := NewOrchestrator(routingClient(t), market)
	_, err := orch.Analyze(context.Background(), "AAPL")
	if !errors.Is(err, datasource.ErrNoHistoricalData) {
		t.Fatalf("expected ErrNoHistoricalData, got: %v", err)
	}
}
