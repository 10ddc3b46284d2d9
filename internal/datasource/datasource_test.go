package datasource

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// ── Cache ──

func TestCacheSetGet(t *testing.T) {
	c := NewCache(time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("empty cache should miss")
	}

	c.Set("key", "value")
	v, ok := c.Get("key")
	if !ok || v.(string) != "value" {
		t.Fatalf("got %v, %v", v, ok)
	}
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(10 * time.Millisecond)
	c.Set("key", 1)

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("key"); ok {
		t.Fatal("expired entry should miss")
	}
}

func TestCacheInvalidate(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Invalidate("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("invalidated entry should miss")
	}
	if _, ok := c.Get("b"); !ok {
		t.Fatal("other entries should survive")
	}

	c.Flush()
	if _, ok := c.Get("b"); ok {
		t.Fatal("flushed cache should miss")
	}
}

// ── RateLimiter ──

func TestRateLimiterBurst(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait %d: %v", i, err)
		}
	}
}

func TestRateLimiterBlocksThenCancels(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := rl.Wait(ctx)
	if err != context.DeadlineExceeded {
		t.Fatalf("expected DeadlineExceeded, got: %v", err)
	}
}

// ── News ──

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Yahoo! Finance: AAPL News</title>
    <item>
      <title>Apple unveils new chip lineup</title>
      <link>https://finance.yahoo.com/news/apple-chip</link>
      <description>&lt;p&gt;Apple announced its &lt;b&gt;next generation&lt;/b&gt; silicon.&lt;/p&gt;</description>
      <pubDate>Mon, 25 Aug 2025 13:00:00 +0000</pubDate>
    </item>
    <item>
      <title>Analysts raise Apple targets</title>
      <link>https://finance.yahoo.com/news/apple-targets</link>
      <description>Price targets move higher.</description>
      <pubDate>Sun, 24 Aug 2025 09:30:00 +0000</pubDate>
    </item>
  </channel>
</rss>`

func newNewsSource(serverURL string) *News {
	return NewNews(WithFeedURL(serverURL + "/rss?s=%s"))
}

func TestGetStockNews(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if got := r.URL.Query().Get("s"); got != "AAPL" {
			t.Fatalf("symbol query: got %q", got)
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, rssBody)
	}))
	defer server.Close()

	n := newNewsSource(server.URL)
	articles, err := n.GetStockNews(context.Background(), "aapl", 10)
	if err != nil {
		t.Fatal(err)
	}

	if len(articles) != 2 {
		t.Fatalf("got %d articles, want 2", len(articles))
	}
	if articles[0].Title != "Apple unveils new chip lineup" {
		t.Fatalf("Title: got %q", articles[0].Title)
	}
	if articles[0].Summary != "Apple announced its next generation silicon." {
		t.Fatalf("Summary not cleaned: %q", articles[0].Summary)
	}
	if articles[0].PublishedAt.IsZero() {
		t.Fatal("PublishedAt should be parsed")
	}

	// Second call is served from cache.
	if _, err := n.GetStockNews(context.Background(), "AAPL", 10); err != nil {
		t.Fatal(err)
	}
	if hits != 1 {
		t.Fatalf("feed fetched %d times, want 1 (cached)", hits)
	}
}

func TestGetStockNewsLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssBody)
	}))
	defer server.Close()

	n := newNewsSource(server.URL)
	articles, err := n.GetStockNews(context.Background(), "AAPL", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(articles) != 1 {
		t.Fatalf("got %d articles, want 1", len(articles))
	}
}

func TestGetStockNewsFeedError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	n := newNewsSource(server.URL)
	if _, err := n.GetStockNews(context.Background(), "AAPL", 10); err == nil {
		t.Fatal("expected an error from a failing feed")
	}
}

// ── cleanHTML ──

func TestCleanHTML(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"", ""},
		{"plain text", "plain text"},
		{"<p>hello <b>world</b></p>", "hello world"},
		{"  <div> spaced </div>  ", "spaced"},
	}
	for _, tc := range tests {
		if got := cleanHTML(tc.input); got != tc.want {
			t.Fatalf("cleanHTML(%q): got %q, want %q", tc.input, got, tc.want)
		}
	}
}
