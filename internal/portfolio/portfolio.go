// Package portfolio reads the watchlist of tickers from a plain text file,
// one symbol per line.
package portfolio

import (
	"bufio"
	"log"
	"os"
	"sort"
	"strings"
)

// DefaultPath is the watchlist file read when no path is configured.
const DefaultPath = "portfolio.txt"

// defaultTickers is the watchlist served when the file is missing, empty,
// or unreadable.
var defaultTickers = []string{"AAPL", "GOOGL", "MSFT", "NVDA", "TSLA"}

// Load reads tickers from the file at path, de-duplicates, uppercases, and
// sorts them. Any problem falls back to the default watchlist rather than
// failing the caller.
func Load(path string) []string {
	if path == "" {
		path = DefaultPath
	}

	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("portfolio: reading %s: %v", path, err)
		}
		return Default()
	}
	defer f.Close()

	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		ticker := strings.ToUpper(strings.TrimSpace(scanner.Text()))
		if ticker == "" {
			continue
		}
		seen[ticker] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("portfolio: reading %s: %v", path, err)
		return Default()
	}
	if len(seen) == 0 {
		return Default()
	}

	tickers := make([]string, 0, len(seen))
	for t := range seen {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)
	return tickers
}

// Default returns the sorted built-in watchlist.
func Default() []string {
	out := make([]string, len(defaultTickers))
	copy(out, defaultTickers)
	sort.Strings(out)
	return out
}
