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
	"invoicedesk/internal/export"
	"invoicedesk/internal/logger"
)

var latePayersCmd = &cobra.Command{
	Use:   "late-payers",
	Short: "List customers with outstanding balances, most overdue first",
	Long: `List customers (child and centre) whose pending balance is above zero,
sorted by days since their last invoice.

The list can be written to an .xlsx workbook with --xlsx and appended to the
Google Sheet in GOOGLE_SHEET_URL with --sheet.

Required environment variables (unless --input is used):
  BACKEND_URL, GKP_API_TOKEN, LKO_API_TOKEN
For --sheet:
  GOOGLE_SHEET_URL and GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS`,
	Example: `  # Late payers over the last 12 months
  invoicedesk late-payers

  # Gorakhpur only, exported to a workbook
  invoicedesk late-payers --centre gkp --xlsx late-payers.xlsx`,
	RunE: runLatePayers,
}

func init() {
	rootCmd.AddCommand(latePayersCmd)

	latePayersCmd.Flags().Int("months", 12, "Number of months to look back, including the current one")
	latePayersCmd.Flags().String("xlsx", "", "Write the list to this .xlsx file")
	latePayersCmd.Flags().Bool("sheet", false, "Append the list to the configured Google Sheet")
	latePayersCmd.Flags().Bool("json", false, "Print JSON instead of a table")
}

func runLatePayers(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("late-payers")

	months, _ := cmd.Flags().GetInt("months")
	xlsxPath, _ := cmd.Flags().GetString("xlsx")
	toSheet, _ := cmd.Flags().GetBool("sheet")
	asJSON, _ := cmd.Flags().GetBool("json")

	if months <= 0 {
		return fmt.Errorf("months must be positive")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if toSheet {
		if err := cfg.RequireSheets(); err != nil {
			return err
		}
	}

	ctx := context.Background()
	now := time.Now()

	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)
	invoices, err := loadInvoices(ctx, cmd, cfg, backend.MonthsRange(first.Year(), first.Month(), months))
	if err != nil {
		return err
	}

	latePayers := aggregate.LatePayingCustomers(aggregate.CustomerInsights(invoices), now)

	log.Info().
		Int("invoices", len(invoices)).
		Int("late_payers", len(latePayers)).
		Msg("Late payers computed")

	table := export.LatePayerTable(latePayers)

	if xlsxPath != "" {
		f, err := os.Create(xlsxPath)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", xlsxPath, err)
		}
		defer f.Close()
		if err := export.WriteXLSX(f, cfg.GoogleSheetWorksheet, table); err != nil {
			return err
		}
		log.Info().Str("file", xlsxPath).Msg("Late payers written to workbook")
	}

	if toSheet {
		exporter, err := export.NewSheetsExporter(ctx, cfg.GoogleSheetURL)
		if err != nil {
			return fmt.Errorf("failed to initialize Google Sheets service: %w", err)
		}
		if err := exporter.Append(ctx, cfg.GoogleSheetWorksheet, table); err != nil {
			return err
		}
	}

	if asJSON {
		return writeJSON(os.Stdout, latePayers)
	}

	fmt.Printf("%d late payers\n", len(latePayers))
	for _, lp := range latePayers {
		fmt.Printf("  %-40s %-4s %12s  %4d days  %s\n",
			lp.Name, lp.Centre, lp.TotalPending.StringFixed(2), lp.OverdueDays, lp.Phone)
	}
	return nil
}
