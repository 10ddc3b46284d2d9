// StockSense — AI Multi-Agent Stock Screener
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quantfold/stocksense/api"
	"github.com/quantfold/stocksense/internal/agent"
	"github.com/quantfold/stocksense/internal/config"
	"github.com/quantfold/stocksense/internal/datasource"
	"github.com/quantfold/stocksense/internal/llm"
	"github.com/quantfold/stocksense/internal/portfolio"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "stocksense",
	Short: "StockSense — AI Multi-Agent Stock Screener",
	Long: `StockSense
A Go-based multi-agent AI system for US stock analysis, combining
fundamental, technical, and sentiment agents into a single overall
recommendation, plus AI-driven undervalued-stock discovery.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(portfolioCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

// newOrchestrator builds the analysis pipeline from the loaded config.
func newOrchestrator() (*agent.Orchestrator, error) {
	client, err := llm.NewGeminiClient(cfg.LLM.GeminiKey,
		llm.WithGeminiModel(cfg.LLM.Model))
	if err != nil {
		return nil, err
	}
	return agent.NewOrchestrator(client, datasource.NewYFinance()), nil
}

// printJSON renders a value as indented JSON on stdout.
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("StockSense %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Analyze Command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [ticker]",
	Short: "Run full AI analysis on a stock",
	Long:  "Run the fundamental, technical, and sentiment agents on a ticker and print the combined report as JSON.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ticker := strings.ToUpper(strings.TrimSpace(args[0]))
		orch, err := newOrchestrator()
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "🔍 Analyzing %s...\n", ticker)
		analysis, err := orch.Analyze(cmd.Context(), ticker)
		if err != nil {
			return fmt.Errorf("analysis failed for %s: %w", ticker, err)
		}
		return printJSON(analysis)
	},
}

// --- Discover Command ---

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List potentially undervalued stocks",
	Long:  "Ask the AI for potentially undervalued stocks (DCF angle) and print them as JSON.",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := llm.NewGeminiClient(cfg.LLM.GeminiKey,
			llm.WithGeminiModel(cfg.LLM.Model))
		if err != nil {
			return err
		}

		fmt.Fprintln(os.Stderr, "🔎 Searching for undervalued stocks...")
		candidates, err := agent.NewDiscoveryAgent(client).Discover(cmd.Context())
		if err != nil {
			return fmt.Errorf("discovery failed: %w", err)
		}
		return printJSON(candidates)
	},
}

// --- Portfolio Command ---

var portfolioCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Print the portfolio watchlist",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, ticker := range portfolio.Load(cfg.Portfolio.Path) {
			fmt.Println(ticker)
		}
		return nil
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		api.Version = version

		srv, err := api.NewServer(cfg)
		if err != nil {
			return err
		}

		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("🌐 Starting StockSense API server on %s\n", addr)
		return srv.ListenAndServe(addr)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  StockSense — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Println()

		// Config summary
		fmt.Println("  Configuration:")
		fmt.Printf("    Model:         %s\n", cfg.LLM.Model)
		fmt.Printf("    API Server:    %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Printf("    Portfolio:     %s\n", cfg.Portfolio.Path)
		fmt.Println()

		// API keys status
		fmt.Println("  API Keys:")
		keys := config.CheckAPIKeys(cfg)
		for _, k := range keys {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
