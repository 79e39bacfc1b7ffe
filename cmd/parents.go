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
	"invoicedesk/internal/guardian"
	"invoicedesk/internal/logger"
)

var parentsCmd = &cobra.Command{
	Use:   "parents",
	Short: "Group a month's invoices by parent",
	Long: `Group the invoices of one month by parent. Parents are identified by
father's name and phone number, so two parents sharing both are merged.`,
	Example: `  # Parents with pending invoices this month
  invoicedesk parents --pending

  # All parents in Lucknow for April 2024
  invoicedesk parents --month 2024-04 --centre lko`,
	RunE: runParents,
}

func init() {
	rootCmd.AddCommand(parentsCmd)

	parentsCmd.Flags().String("month", "", "Month to load (format: YYYY-MM, default: current month)")
	parentsCmd.Flags().Bool("pending", false, "Only include pending invoices")
	parentsCmd.Flags().Bool("json", false, "Print JSON instead of a list")
}

func runParents(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("parents")

	monthStr, _ := cmd.Flags().GetString("month")
	pendingOnly, _ := cmd.Flags().GetBool("pending")
	asJSON, _ := cmd.Flags().GetBool("json")

	year, month, err := parseMonth(monthStr, time.Now())
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	invoices, err := loadInvoices(context.Background(), cmd, cfg, backend.MonthRange(year, month))
	if err != nil {
		return err
	}
	if pendingOnly {
		invoices = aggregate.FilterPending(invoices)
	}

	grouper := guardian.NewGrouper(nil)
	parents := grouper.GroupByParent(invoices)
	byParent := grouper.InvoicesByParent(invoices)

	log.Info().
		Int("invoices", len(invoices)).
		Int("parents", len(parents)).
		Msg("Invoices grouped by parent")

	if asJSON {
		return writeJSON(os.Stdout, parents)
	}

	for _, p := range parents {
		total := aggregate.Summarize(byParent[p.ID])
		fmt.Printf("%s (%s, %s) - %d invoices, pending %s\n",
			p.Name, p.Phone, p.Centre, total.Count, total.PendingTotal.StringFixed(2))
		for _, c := range p.Children {
			fmt.Printf("    %s\n", c.FullNameWithCaseID)
		}
	}
	return nil
}
