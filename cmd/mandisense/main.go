// MandiSense: market price and profit intelligence for agricultural sellers
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seenimoa/mandisense/api"
	"github.com/seenimoa/mandisense/internal/config"
	"github.com/seenimoa/mandisense/internal/logger"
	"github.com/seenimoa/mandisense/pkg/utils"
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
	err := rootCmd.Execute()
	logger.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "mandisense",
	Short: "MandiSense: mandi price and profit intelligence",
	Long: `MandiSense ranks nearby mandis by net price after transport, labels
short-term price trends, projects wholesale indices and compares selling
now with storing for one or two weeks.`,
	SilenceUsage: true,
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

		if level, _ := cmd.Flags().GetString("log-level"); level != "" {
			cfg.Logging.Level = level
		}
		if err := logger.Init(cfg.Logging); err != nil {
			return fmt.Errorf("failed to init logging: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(trendCmd)
	rootCmd.AddCommand(forecastCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)

	api.Version = version
}

// printJSON writes v indented to stdout.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("MandiSense %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		now := utils.NowIST()
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  MandiSense System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Mandi Status:  %s\n", utils.MandiStatusAt(now))
		fmt.Printf("  Time (IST):    %s\n", utils.FormatDateTimeIST(now))
		fmt.Println()

		// Config summary
		fmt.Println("  Configuration:")
		fmt.Printf("    Transport:     %s per km\n", utils.FormatINR(cfg.Engine.TransportRatePerKm))
		fmt.Printf("    Storage:       %s per unit per week\n", utils.FormatINR(cfg.Engine.StorageRatePerUnitPerWeek))
		fmt.Printf("    Distance:      %s\n", cfg.Engine.DistanceModel)
		fmt.Printf("    Seed File:     %s\n", cfg.Catalog.SeedFile)
		fmt.Printf("    SQLite:        %s\n", orNone(cfg.Catalog.SQLitePath))
		fmt.Printf("    Weather API:   %s\n", orNone(cfg.Weather.BaseURL))
		fmt.Printf("    Index API:     %s\n", orNone(cfg.Index.BaseURL))
		fmt.Printf("    Digest:        %v (%s)\n", cfg.Digest.Enabled, cfg.Digest.Cron)
		fmt.Printf("    API Server:    %s\n", cfg.Addr())
		fmt.Println()

		// API keys status
		fmt.Println("  API Keys:")
		for _, k := range config.CheckAPIKeys(cfg) {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}
		fmt.Println()

		// Catalog summary
		app, err := newApp(cmd.Context())
		if err != nil {
			fmt.Printf("  Catalog:       ❌ %v\n", err)
		} else {
			defer app.Close()
			commodities, _ := app.advisor.Commodities(cmd.Context())
			markets, _ := app.advisor.Markets(cmd.Context())
			fmt.Printf("  Catalog:       %d commodities, %d markets (%s)\n", len(commodities), len(markets), app.source)
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
