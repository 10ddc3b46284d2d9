package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/quantfold/stocksense/pkg/models"
)

// YFinance implements the MarketData interface using the Yahoo Finance API.
type YFinance struct {
	baseURL string
}

// NewYFinance creates a new Yahoo Finance data source.
func NewYFinance() *YFinance {
	return &YFinance{
		baseURL: "https://query1.finance.yahoo.com",
	}
}

// Name returns the data source name.
func (y *YFinance) Name() string { return "Yahoo Finance" }

// --- Yahoo Finance API types ---

// yfNum is Yahoo's {raw, fmt} number wrapper. Raw is nil when the field is
// reported but empty, which Yahoo does for missing fundamentals.
type yfNum struct {
	Raw *float64 `json:"raw"`
	Fmt string   `json:"fmt"`
}

type yfSummaryResponse struct {
	QuoteSummary struct {
		Result []yfSummaryResult `json:"result"`
		Error  *yfError          `json:"error"`
	} `json:"quoteSummary"`
}

type yfSummaryResult struct {
	Price *struct {
		Symbol                     string `json:"symbol"`
		LongName                   string `json:"longName"`
		ShortName                  string `json:"shortName"`
		RegularMarketPrice         *yfNum `json:"regularMarketPrice"`
		RegularMarketPreviousClose *yfNum `json:"regularMarketPreviousClose"`
	} `json:"price"`
	SummaryDetail *struct {
		TrailingPE    *yfNum `json:"trailingPE"`
		PreviousClose *yfNum `json:"previousClose"`
	} `json:"summaryDetail"`
	FinancialData *struct {
		CurrentPrice    *yfNum `json:"currentPrice"`
		TargetMeanPrice *yfNum `json:"targetMeanPrice"`
		RevenueGrowth   *yfNum `json:"revenueGrowth"`
	} `json:"financialData"`
	DefaultKeyStatistics *struct {
		ForwardEPS *yfNum `json:"forwardEps"`
	} `json:"defaultKeyStatistics"`
}

type yfChartResponse struct {
	Chart struct {
		Result []yfChartResult `json:"result"`
		Error  *yfError        `json:"error"`
	} `json:"chart"`
}

type yfChartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []yfOHLCV `json:"quote"`
	} `json:"indicators"`
}

type yfOHLCV struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}

type yfError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// --- Public methods ---

// GetSnapshot returns the company snapshot for a ticker from the Yahoo
// Finance quoteSummary API. Optional fields stay nil when Yahoo omits them.
func (y *YFinance) GetSnapshot(ctx context.Context, ticker string) (*models.QuoteSnapshot, error) {
	symbol := strings.ToUpper(strings.TrimSpace(ticker))

	modules := "price,summaryDetail,financialData,defaultKeyStatistics"
	reqURL := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s",
		y.baseURL, url.PathEscape(symbol), modules)

	body, status, err := doGet(ctx, reqURL, map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		if status == 404 {
			return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
		}
		return nil, fmt.Errorf("yfinance snapshot %s: %w", symbol, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp yfSummaryResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse yfinance snapshot: %w", err)
	}

	if resp.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
	}

	r := resp.QuoteSummary.Result[0]
	snap := &models.QuoteSnapshot{Ticker: symbol}

	if r.Price != nil {
		snap.Name = coalesce(r.Price.LongName, r.Price.ShortName)
		snap.PreviousClose = rawOf(r.Price.RegularMarketPreviousClose)
	}
	if r.SummaryDetail != nil {
		snap.TrailingPE = rawOf(r.SummaryDetail.TrailingPE)
		if snap.PreviousClose == nil {
			snap.PreviousClose = rawOf(r.SummaryDetail.PreviousClose)
		}
	}
	if r.FinancialData != nil {
		snap.CurrentPrice = rawOf(r.FinancialData.CurrentPrice)
		snap.TargetMeanPrice = rawOf(r.FinancialData.TargetMeanPrice)
		snap.RevenueGrowth = growthPercent(rawOf(r.FinancialData.RevenueGrowth))
	}
	if r.DefaultKeyStatistics != nil {
		snap.ForwardEPS = rawOf(r.DefaultKeyStatistics.ForwardEPS)
	}
	if snap.CurrentPrice == nil && r.Price != nil {
		snap.CurrentPrice = rawOf(r.Price.RegularMarketPrice)
	}

	return snap, nil
}

// GetDailyHistory returns one trailing year of daily OHLCV bars from the
// Yahoo Finance chart API. Bars with null quote values are skipped.
func (y *YFinance) GetDailyHistory(ctx context.Context, ticker string) ([]models.OHLCV, error) {
	symbol := strings.ToUpper(strings.TrimSpace(ticker))

	reqURL := fmt.Sprintf("%s/v8/finance/chart/%s?range=1y&interval=1d",
		y.baseURL, url.PathEscape(symbol))

	body, status, err := doGet(ctx, reqURL, map[string]string{
		"Accept": "application/json",
	})
	if err != nil {
		if status == 404 {
			return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
		}
		return nil, fmt.Errorf("yfinance chart %s: %w", symbol, err)
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp yfChartResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse yfinance chart: %w", err)
	}

	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTickerNotFound, symbol)
	}

	return parseYFCandles(resp.Chart.Result[0]), nil
}

// --- Helpers ---

func parseYFCandles(result yfChartResult) []models.OHLCV {
	if len(result.Indicators.Quote) == 0 {
		return nil
	}

	q := result.Indicators.Quote[0]
	candles := make([]models.OHLCV, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		// Yahoo emits null rows for holidays and suspended sessions.
		if i >= len(q.Close) || q.Close[i] == nil {
			continue
		}
		c := models.OHLCV{
			Timestamp: time.Unix(ts, 0),
			Close:     *q.Close[i],
		}
		if i < len(q.Open) && q.Open[i] != nil {
			c.Open = *q.Open[i]
		}
		if i < len(q.High) && q.High[i] != nil {
			c.High = *q.High[i]
		}
		if i < len(q.Low) && q.Low[i] != nil {
			c.Low = *q.Low[i]
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			c.Volume = *q.Volume[i]
		}
		candles = append(candles, c)
	}
	return candles
}

func rawOf(n *yfNum) *float64 {
	if n == nil {
		return nil
	}
	return n.Raw
}

// growthPercent converts Yahoo's revenue growth ratio into a YoY percentage.
// A reported zero is treated the same as absent.
func growthPercent(raw *float64) *float64 {
	if raw == nil || *raw == 0 {
		return nil
	}
	pct := *raw * 100
	return &pct
}

func coalesce(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
