package datasource

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/quantfold/stocksense/pkg/models"
)

// News fetches recent headlines for a ticker from the Yahoo Finance RSS feed.
// Unlike the core market data calls, headlines are cached briefly and rate
// limited since the UI may poll them.
type News struct {
	feedURL string // format string taking the ticker symbol
	cache   *Cache
	limiter *RateLimiter
	parser  *gofeed.Parser
}

// NewsOption configures the news source.
type NewsOption func(*News)

// WithFeedURL overrides the RSS feed URL. The value must contain one %s verb
// for the ticker symbol.
func WithFeedURL(feedURL string) NewsOption {
	return func(n *News) { n.feedURL = feedURL }
}

// NewNews creates a news source backed by Yahoo Finance headline feeds.
func NewNews(opts ...NewsOption) *News {
	n := &News{
		feedURL: "https://feeds.finance.yahoo.com/rss/2.0/headline?s=%s&region=US&lang=en-US",
		cache:   NewCache(10 * time.Minute),
		limiter: NewRateLimiter(2, time.Second),
		parser:  gofeed.NewParser(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Name returns the data source name.
func (n *News) Name() string { return "Yahoo Finance News" }

// GetStockNews returns up to limit recent headlines for the given ticker.
func (n *News) GetStockNews(ctx context.Context, ticker string, limit int) ([]models.NewsArticle, error) {
	symbol := strings.ToUpper(strings.TrimSpace(ticker))

	cacheKey := fmt.Sprintf("news:%s:%d", symbol, limit)
	if cached, ok := n.cache.Get(cacheKey); ok {
		return cached.([]models.NewsArticle), nil
	}

	if err := n.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	feed, err := n.parser.ParseURLWithContext(fmt.Sprintf(n.feedURL, url.QueryEscape(symbol)), ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch news %s: %w", symbol, err)
	}

	articles := make([]models.NewsArticle, 0, len(feed.Items))
	for _, item := range feed.Items {
		a := models.NewsArticle{
			Title:   item.Title,
			Link:    item.Link,
			Source:  "Yahoo Finance",
			Summary: cleanHTML(item.Description),
		}
		if item.PublishedParsed != nil {
			a.PublishedAt = *item.PublishedParsed
		}
		articles = append(articles, a)
	}

	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}

	n.cache.Set(cacheKey, articles)
	return articles, nil
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.TrimSpace(doc.Text())
}
