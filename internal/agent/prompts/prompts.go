// Package prompts renders the fixed prompt templates sent to the generative
// AI provider. The templates are deterministic: the same facts always produce
// the same prompt, and the requested JSON shape in each template is what the
// agent's parser expects back.
//
// Missing optional numerics render as 0 with two-decimal formatting. This is
// display-only; the nil-ness of the underlying snapshot fields is preserved
// in the data model.
package prompts

import (
	"fmt"

	"github.com/quantfold/stocksense/pkg/models"
)

// Fundamental renders the fundamental analysis prompt from a company snapshot.
func Fundamental(snap *models.QuoteSnapshot) string {
	return fmt.Sprintf(`Based on the following fundamental data for a stock:
- Current Price: $%.2f
- Analyst Price Target: $%.2f
- P/E Ratio: %.2f
- Revenue Growth (YoY): %.2f%%

A price below the analyst target, a low P/E ratio (<30), and strong revenue growth (>5%%) are generally positive signs.

Return a single valid JSON object with one key: "recommendation", with a value of "BUY", "SELL", or "HOLD".`,
		snap.Price(), orZero(snap.TargetMeanPrice), orZero(snap.TrailingPE), orZero(snap.RevenueGrowth))
}

// Technical renders the technical analysis prompt from an indicator snapshot.
func Technical(ind models.IndicatorSnapshot) string {
	return fmt.Sprintf(`Based on the following technical indicators for a stock, provide a recommendation.
- RSI (14-day): %.2f
- EMA (50-day): $%.2f
- ADX (14-day): %.2f
- Current Price: $%.2f

A high ADX (>25) indicates a strong trend. RSI > 70 is overbought, RSI < 30 is oversold. Price > EMA is bullish, Price < EMA is bearish.

Return a single valid JSON object with one key: "recommendation", with a value of "BUY", "SELL", or "HOLD".`,
		ind.RSI14, ind.EMA50, ind.ADX14, ind.Close)
}

// Sentiment renders the market sentiment prompt for a company.
func Sentiment(companyName, ticker string) string {
	return fmt.Sprintf(`Analyze market sentiment for "%s (%s)".
Return a valid JSON object with three string fields:
1. "sentiment_summary": A one-sentence summary of the general consensus.
2. "recommendation": Your sentiment-based verdict ("BUY", "SELL", or "HOLD").
3. "reasoning": A single sentence explaining the sentiment-based recommendation.`,
		companyName, ticker)
}

// Final renders the synthesis prompt from the three serialized agent reports.
func Final(fundamentalJSON, technicalJSON, sentimentJSON string) string {
	return fmt.Sprintf(`Given the following reports:
1. Fundamental: %s
2. Technical: %s
3. Sentiment: %s
Provide a final verdict. Return a valid JSON object with "overall_recommendation" and "overall_reasoning".`,
		fundamentalJSON, technicalJSON, sentimentJSON)
}

// Discovery renders the undervalued-stock screening prompt. It takes no
// per-ticker input.
func Discovery() string {
	return `List 5 random potentially undervalued stocks, selected primarily based on a discounted cash flow (DCF) model analysis.
For each, provide a valid JSON object with 'ticker', 'company_name', and a brief 'reason' explaining the DCF angle.
Return the response as a valid JSON array of these objects.`
}

// orZero collapses an absent optional to 0 for display.
func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
