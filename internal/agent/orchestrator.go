package agent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/quantfold/stocksense/internal/datasource"
	"github.com/quantfold/stocksense/internal/llm"
	"github.com/quantfold/stocksense/pkg/models"
)

// Orchestrator runs the full analysis pipeline for one ticker: resolve the
// quote snapshot, fan out the fundamental, technical, and sentiment stages,
// then synthesize the final recommendation from all three.
type Orchestrator struct {
	market datasource.MarketData

	fundamental    *FundamentalAgent
	technical      *TechnicalAgent
	sentiment      *SentimentAgent
	recommendation *RecommendationAgent
}

// NewOrchestrator wires the four stage agents against a shared gateway and
// market data source.
func NewOrchestrator(client llm.Client, market datasource.MarketData) *Orchestrator {
	return &Orchestrator{
		market:         market,
		fundamental:    NewFundamentalAgent(client),
		technical:      NewTechnicalAgent(client, market),
		sentiment:      NewSentimentAgent(client),
		recommendation: NewRecommendationAgent(client),
	}
}

// Analyze produces the complete four-part report for a ticker. The snapshot
// lookup doubles as ticker validation: an unresolvable or nameless symbol is
// rejected before any stage runs.
func (o *Orchestrator) Analyze(ctx context.Context, ticker string) (*models.StockAnalysis, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	log.Printf("orchestrator: starting analysis for %s", ticker)

	snap, err := o.market.GetSnapshot(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if snap.Name == "" {
		return nil, fmt.Errorf("%w: %s", datasource.ErrTickerNotFound, ticker)
	}

	var (
		fundamental models.FundamentalResult
		technical   models.TechnicalResult
		sentiment   models.SentimentResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fundamental = o.fundamental.Analyze(gctx, snap)
		return nil
	})
	g.Go(func() error {
		var err error
		technical, err = o.technical.Analyze(gctx, ticker)
		return err
	})
	g.Go(func() error {
		var err error
		sentiment, err = o.sentiment.Analyze(gctx, snap.Name, ticker)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	final, err := o.recommendation.Synthesize(ctx, fundamental, technical, sentiment)
	if err != nil {
		return nil, err
	}

	log.Printf("orchestrator: %s analysis complete (%s)", ticker, final.OverallRecommendation)
	return &models.StockAnalysis{
		Ticker:              ticker,
		Fundamental:         fundamental,
		Technical:           technical,
		Sentiment:           sentiment,
		FinalRecommendation: final,
	}, nil
}
