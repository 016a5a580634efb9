package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/seenimoa/mandisense/internal/advisor"
	"github.com/seenimoa/mandisense/pkg/models"
	"github.com/seenimoa/mandisense/pkg/utils"
)

// asOfFlag reads --as-of, defaulting to now in IST.
func asOfFlag(cmd *cobra.Command) (time.Time, error) {
	raw, _ := cmd.Flags().GetString("as-of")
	t, err := utils.ParseAsOf(raw)
	if err != nil {
		return time.Time{}, err
	}
	if t.IsZero() {
		t = utils.NowIST()
	}
	return t, nil
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("json", false, "print the result as JSON")
	cmd.Flags().String("as-of", "", "as-of time (RFC3339 or YYYY-MM-DD, default now)")
}

// --- Compare Command ---

var compareCmd = &cobra.Command{
	Use:   "compare [commodity]",
	Short: "Rank nearby mandis by net price after transport",
	Example: `  mandisense compare wheat --lat 29.68 --lon 76.99
  mandisense compare chana --lat 23.18 --lon 75.78 --radius 80 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lat, _ := cmd.Flags().GetFloat64("lat")
		lon, _ := cmd.Flags().GetFloat64("lon")
		radius, _ := cmd.Flags().GetFloat64("radius")
		asJSON, _ := cmd.Flags().GetBool("json")
		asOf, err := asOfFlag(cmd)
		if err != nil {
			return err
		}

		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		res, err := app.advisor.CompareMarkets(cmd.Context(), advisor.CompareRequest{
			Commodity: args[0],
			Latitude:  lat,
			Longitude: lon,
			RadiusKm:  radius,
			AsOf:      asOf,
		})
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(res)
		}

		fmt.Printf("🌾 %s, support price %s per %s\n\n",
			utils.CommodityDisplayName(res.Commodity), utils.FormatINR(res.SupportPrice), res.Unit)
		fmt.Printf("  %-3s %-22s %9s %12s %11s %12s\n", "#", "Mandi", "Dist km", "Price", "Transport", "Net")
		for i, m := range res.Markets {
			fmt.Printf("  %-3d %-22s %9.2f %12s %11s %12s\n", i+1, m.Name, m.DistanceKm,
				utils.FormatINR(m.Price), utils.FormatINR(m.TransportCost), utils.FormatINR(m.NetPrice))
		}
		fmt.Printf("\n  Spread: %s (%s)\n", utils.FormatINR(res.PriceSpread), utils.FormatPct(res.SpreadPercent))
		if res.BelowSupport {
			fmt.Println("  ⚠️  Best net price is below the support price")
		}
		fmt.Printf("  👉 %s\n", res.Recommendation)
		return nil
	},
}

func init() {
	compareCmd.Flags().Float64("lat", 0, "seller latitude")
	compareCmd.Flags().Float64("lon", 0, "seller longitude")
	compareCmd.Flags().Float64("radius", 0, "search radius in km (0 = unbounded)")
	_ = compareCmd.MarkFlagRequired("lat")
	_ = compareCmd.MarkFlagRequired("lon")
	addCommonFlags(compareCmd)
}

// --- Trend Command ---

var trendCmd = &cobra.Command{
	Use:   "trend [commodity]",
	Short: "Classify the 7-day price trend at a mandi",
	Example: `  mandisense trend wheat --market KNL
  mandisense trend wheat --market "Test Mandi" --history 2600,2580,2560,2540,2520,2500,2400`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		market, _ := cmd.Flags().GetString("market")
		history, _ := cmd.Flags().GetFloat64Slice("history")
		asJSON, _ := cmd.Flags().GetBool("json")
		asOf, err := asOfFlag(cmd)
		if err != nil {
			return err
		}

		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		// A market argument is tried as an id first, then as a name.
		req := advisor.TrendRequest{MarketID: market, Commodity: args[0], History: history, AsOf: asOf}
		res, err := app.advisor.ClassifyTrend(cmd.Context(), req)
		if models.ErrorCode(err) == models.CodeNotFound && len(history) == 0 {
			req.MarketID, req.MarketName = "", market
			res, err = app.advisor.ClassifyTrend(cmd.Context(), req)
		}
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(res)
		}

		arrow := map[models.Direction]string{
			models.DirectionRising:  "📈",
			models.DirectionFalling: "📉",
			models.DirectionStable:  "➡️",
		}[res.Direction]
		fmt.Printf("%s %s at %s: %s (%s over %d days)\n", arrow,
			utils.CommodityDisplayName(res.Commodity), res.MarketName, res.Direction,
			utils.FormatPct(res.PercentChange), res.Points)
		fmt.Printf("  First %s → Last %s | High %s | Low %s | Avg %s\n",
			utils.FormatINR(res.FirstPrice), utils.FormatINR(res.LastPrice),
			utils.FormatINR(res.HighPrice), utils.FormatINR(res.LowPrice), utils.FormatINR(res.AveragePrice))
		fmt.Printf("  👉 %s\n", res.Recommendation)
		return nil
	},
}

func init() {
	trendCmd.Flags().String("market", "", "market id or name")
	trendCmd.Flags().Float64Slice("history", nil, "comma-separated prices, oldest first (default: stored history)")
	addCommonFlags(trendCmd)
}

// --- Forecast Command ---

var forecastCmd = &cobra.Command{
	Use:     "forecast [commodity]",
	Short:   "Project the wholesale price index 7, 14 or 30 days ahead",
	Example: `  mandisense forecast wheat --days 14`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		asJSON, _ := cmd.Flags().GetBool("json")
		asOf, err := asOfFlag(cmd)
		if err != nil {
			return err
		}

		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		res, err := app.advisor.ForecastIndex(cmd.Context(), advisor.ForecastRequest{
			Commodity: args[0],
			DaysAhead: days,
			AsOf:      asOf,
		})
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(res)
		}

		fmt.Printf("🔮 %s index, %d days ahead\n", utils.CommodityDisplayName(args[0]), res.DaysAhead)
		fmt.Printf("  Current:    %.1f\n", res.CurrentValue)
		fmt.Printf("  Predicted:  %.1f (%s)", res.PredictedValue, utils.FormatPct(res.PercentChange))
		if !res.TargetDate.IsZero() {
			fmt.Printf(" on %s", utils.FormatDateIST(res.TargetDate))
		}
		fmt.Println()
		fmt.Printf("  Direction:  %s\n", res.Direction)
		fmt.Printf("  Confidence: %s (variance %.2f over %d points)\n", res.Confidence, res.Variance, res.Points)
		return nil
	},
}

func init() {
	forecastCmd.Flags().Int("days", 7, "horizon in days: 7, 14 or 30")
	addCommonFlags(forecastCmd)
}

// --- Plan Command ---

var planCmd = &cobra.Command{
	Use:   "plan [commodity]",
	Short: "Compare selling now with waiting 7 or 14 days",
	Example: `  mandisense plan wheat --qty 10 --price 2420 --weather LOW
  mandisense plan gram --qty 25 --price 5600 --lat 23.18 --lon 75.78`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		qty, _ := cmd.Flags().GetFloat64("qty")
		price, _ := cmd.Flags().GetFloat64("price")
		level, _ := cmd.Flags().GetString("weather")
		lat, _ := cmd.Flags().GetFloat64("lat")
		lon, _ := cmd.Flags().GetFloat64("lon")
		asJSON, _ := cmd.Flags().GetBool("json")
		asOf, err := asOfFlag(cmd)
		if err != nil {
			return err
		}

		req := advisor.PlanRequest{
			Commodity:    args[0],
			Quantity:     qty,
			CurrentPrice: price,
			Latitude:     lat,
			Longitude:    lon,
			AsOf:         asOf,
		}
		if level != "" {
			req.WeatherRisk = &models.WeatherRisk{Level: models.RiskLevel(strings.ToUpper(level))}
		}

		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		res, err := app.advisor.PlanProfitScenarios(cmd.Context(), req)
		if err != nil {
			return err
		}
		if asJSON {
			return printJSON(res)
		}

		fmt.Printf("💰 %s %s at %s\n\n", utils.FormatQuantity(res.Quantity, res.Unit),
			utils.CommodityDisplayName(res.Commodity), utils.FormatINR(res.CurrentPrice))
		fmt.Printf("  %-14s %12s %14s %10s %14s  %s\n", "Scenario", "Price", "Revenue", "Costs", "Net", "Confidence")
		for _, sc := range res.Scenarios {
			fmt.Printf("  %-14s %12s %14s %10s %14s  %s\n", sc.Label, utils.FormatINR(sc.PricePerUnit),
				utils.FormatINR(sc.Revenue), utils.FormatINR(sc.StorageCost), utils.FormatINR(sc.NetProfit), sc.Confidence)
		}
		fmt.Printf("\n  Weather: %s (%s)\n", res.Weather.Level, res.Weather.Source)
		fmt.Printf("  👉 %s: %s\n", res.Recommendation.Label, res.Recommendation.Reason)
		if res.ID != "" {
			fmt.Printf("  Recorded as %s\n", res.ID)
		}
		return nil
	},
}

func init() {
	planCmd.Flags().Float64("qty", 0, "quantity in the commodity's unit")
	planCmd.Flags().Float64("price", 0, "current price per unit")
	planCmd.Flags().String("weather", "", "weather risk LOW, MEDIUM or HIGH (default: ask the weather source)")
	planCmd.Flags().Float64("lat", 0, "seller latitude for the weather lookup")
	planCmd.Flags().Float64("lon", 0, "seller longitude for the weather lookup")
	_ = planCmd.MarkFlagRequired("qty")
	_ = planCmd.MarkFlagRequired("price")
	addCommonFlags(planCmd)
}
