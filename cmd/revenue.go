package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"invoicedesk/internal/aggregate"
	"invoicedesk/internal/backend"
	"invoicedesk/internal/config"
	"invoicedesk/internal/logger"
)

var revenueCmd = &cobra.Command{
	Use:   "revenue",
	Short: "Show revenue by month and quarter, or by day for one month",
	Long: `Show invoiced revenue per centre.

Without --month, prints all twelve months of --year with GKP, LKO and combined
revenue, followed by the quarterly totals. With --month, prints revenue per
calendar day of that month.

Required environment variables (unless --input is used):
  BACKEND_URL, GKP_API_TOKEN, LKO_API_TOKEN`,
	Example: `  # Monthly and quarterly revenue for 2024
  invoicedesk revenue --year 2024

  # Daily revenue for Lucknow in May 2024
  invoicedesk revenue --month 2024-05 --centre lko`,
	RunE: runRevenue,
}

func init() {
	rootCmd.AddCommand(revenueCmd)

	revenueCmd.Flags().Int("year", time.Now().Year(), "Year to report on")
	revenueCmd.Flags().String("month", "", "Report one month by day (format: YYYY-MM)")
	revenueCmd.Flags().Bool("json", false, "Print JSON instead of a table")
}

func runRevenue(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("revenue")

	year, _ := cmd.Flags().GetInt("year")
	monthStr, _ := cmd.Flags().GetString("month")
	asJSON, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx := context.Background()

	if monthStr != "" {
		y, m, err := parseMonth(monthStr, time.Now())
		if err != nil {
			return err
		}
		invoices, err := loadInvoices(ctx, cmd, cfg, backend.MonthRange(y, m))
		if err != nil {
			return err
		}
		daily := aggregate.RevenueByDay(invoices)

		log.Info().
			Str("month", monthStr).
			Int("invoices", len(invoices)).
			Int("days", len(daily)).
			Msg("Daily revenue computed")

		if asJSON {
			return writeJSON(os.Stdout, daily)
		}
		fmt.Printf("Revenue by day, %s %d\n", m, y)
		for _, d := range daily {
			fmt.Printf("  %2d  %12s\n", d.Day, d.Revenue.StringFixed(2))
		}
		return nil
	}

	invoices, err := loadInvoices(ctx, cmd, cfg, backend.YearRange(year))
	if err != nil {
		return err
	}
	monthly := aggregate.RevenueByMonth(invoices, year)
	quarterly := aggregate.RevenueByQuarter(monthly)
	summary := aggregate.Summarize(invoices)

	log.Info().
		Int("year", year).
		Int("invoices", len(invoices)).
		Str("total", summary.Total.StringFixed(2)).
		Msg("Yearly revenue computed")

	if asJSON {
		return writeJSON(os.Stdout, map[string]any{
			"summary":   summary,
			"monthly":   monthly,
			"quarterly": quarterly,
		})
	}

	fmt.Printf("Revenue %d\n", year)
	fmt.Printf("  %-8s %12s %12s %12s\n", "Month", "GKP", "LKO", "Combined")
	for _, m := range monthly {
		fmt.Printf("  %-8s %12s %12s %12s\n", m.Label, m.GKP.StringFixed(2), m.LKO.StringFixed(2), m.Combined.StringFixed(2))
	}
	fmt.Println()
	for _, q := range quarterly {
		fmt.Printf("  %-8s %12s %12s %12s\n", q.Label, q.GKP.StringFixed(2), q.LKO.StringFixed(2), q.Combined.StringFixed(2))
	}
	fmt.Printf("\nInvoices: %d  Paid: %s  Pending: %s\n", summary.Count, summary.PaidTotal.StringFixed(2), summary.PendingTotal.StringFixed(2))
	return nil
}
