// Package api provides the HTTP REST API server for StockSense.
//
// It exposes endpoints for full stock analysis, the portfolio watchlist,
// undervalued-stock discovery, ticker news, and simulated trade orders.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/quantfold/stocksense/internal/agent"
	"github.com/quantfold/stocksense/internal/config"
	"github.com/quantfold/stocksense/internal/datasource"
	"github.com/quantfold/stocksense/internal/llm"
	"github.com/quantfold/stocksense/internal/portfolio"
)

// Version is set at build time via -ldflags.
var Version = "dev"

// Server is the HTTP API server.
type Server struct {
	router chi.Router
	cfg    *config.Config
	orch   *agent.Orchestrator
	disc   *agent.DiscoveryAgent
	news   *datasource.News
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config) (*Server, error) {
	client, err := llm.NewGeminiClient(cfg.LLM.GeminiKey,
		llm.WithGeminiModel(cfg.LLM.Model))
	if err != nil {
		return nil, fmt.Errorf("AI setup failed: %w", err)
	}

	market := datasource.NewYFinance()

	srv := &Server{
		cfg:  cfg,
		orch: agent.NewOrchestrator(client, market),
		disc: agent.NewDiscoveryAgent(client),
		news: datasource.NewNews(),
	}

	srv.router = srv.buildRouter()
	return srv, nil
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe starts the HTTP server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	return httpSrv.Shutdown(ctx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		// Portfolio
		r.Get("/portfolio", s.handlePortfolio)

		// Analysis
		r.Get("/analyze/{ticker}", s.handleAnalyze)

		// Discovery
		r.Get("/undervalued-stocks", s.handleUndervaluedStocks)

		// News
		r.Get("/news/{ticker}", s.handleNews)

		// Trading (simulated)
		r.Post("/trade/buy", s.handleTradeBuy)
		r.Post("/trade/sell", s.handleTradeSell)
	})

	return r
}

// ============================================================
// Request / Response types
// ============================================================

// TradeRequest is the body for POST /api/trade/buy and /api/trade/sell.
type TradeRequest struct {
	Ticker string `json:"ticker"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": Version,
	})
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, portfolio.Load(s.cfg.Portfolio.Path))
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	if strings.TrimSpace(ticker) == "" {
		writeDetail(w, http.StatusBadRequest, "ticker is required")
		return
	}

	analysis, err := s.orch.Analyze(r.Context(), ticker)
	if err != nil {
		switch {
		case errors.Is(err, datasource.ErrTickerNotFound):
			writeDetail(w, http.StatusNotFound, fmt.Sprintf("Ticker symbol '%s' not found or invalid.", ticker))
		case errors.Is(err, datasource.ErrNoHistoricalData):
			writeDetail(w, http.StatusNotFound, fmt.Sprintf("No historical data available for ticker %s.", ticker))
		default:
			writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("An unexpected error occurred for ticker %s: %v", ticker, err))
		}
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleUndervaluedStocks(w http.ResponseWriter, r *http.Request) {
	candidates, err := s.disc.Discover(r.Context())
	if err != nil {
		if errors.Is(err, agent.ErrInvalidAIResponse) {
			writeDetail(w, http.StatusInternalServerError, "Invalid JSON response for undervalued stocks.")
			return
		}
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get undervalued stocks: %v", err))
		return
	}

	writeJSON(w, http.StatusOK, candidates)
}

func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	if strings.TrimSpace(ticker) == "" {
		writeDetail(w, http.StatusBadRequest, "ticker is required")
		return
	}

	limit := s.cfg.News.MaxArticles
	if limit <= 0 {
		limit = 10
	}

	articles, err := s.news.GetStockNews(r.Context(), strings.ToUpper(ticker), limit)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("Failed to fetch news for %s: %v", ticker, err))
		return
	}

	writeJSON(w, http.StatusOK, articles)
}

func (s *Server) handleTradeBuy(w http.ResponseWriter, r *http.Request) {
	s.handleTrade(w, r, "BUY")
}

func (s *Server) handleTradeSell(w http.ResponseWriter, r *http.Request) {
	s.handleTrade(w, r, "SELL")
}

// handleTrade queues a simulated order. No broker is wired; the endpoint
// only acknowledges receipt.
func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request, side string) {
	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Ticker == "" {
		writeDetail(w, http.StatusBadRequest, "ticker is required")
		return
	}

	log.Printf("Received %s request for %s", side, req.Ticker)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Your %s order for %s has been queued.", side, req.Ticker),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write JSON response: %v", err)
	}
}

func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}
