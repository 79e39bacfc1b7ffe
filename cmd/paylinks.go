package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"invoicedesk/internal/config"
	"invoicedesk/internal/logger"
	"invoicedesk/internal/status"
)

var paylinksCmd = &cobra.Command{
	Use:   "paylinks",
	Short: "Generate payment links for pending invoices",
	Long: `Generate one hosted payment link per pending invoice of the month.

Links are requested one invoice at a time. An invoice whose link fails is
reported and skipped; the rest of the batch continues. Links created earlier
in the session (or found in Redis when REDIS_ADDR is set) are reused until
they expire.

Required environment variables:
  PAYMENT_GATEWAY_KEY_ID, PAYMENT_GATEWAY_KEY_SECRET
  BACKEND_URL, GKP_API_TOKEN, LKO_API_TOKEN (unless --input is used)`,
	Example: `  # Links for every pending invoice this month
  invoicedesk paylinks

  # Two specific invoices with a corrected phone number
  invoicedesk paylinks --invoice INV-101 --invoice INV-102 --overrides payers.json`,
	RunE: runPaylinks,
}

func init() {
	rootCmd.AddCommand(paylinksCmd)

	addSelectionFlags(paylinksCmd)
	paylinksCmd.Flags().Bool("json", false, "Print JSON instead of a list")
}

func runPaylinks(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("paylinks")

	asJSON, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	overrides, err := readOverrides(cmd)
	if err != nil {
		return err
	}

	ctx := context.Background()

	orch, closeStore, err := newOrchestrator(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	invoices, err := selectPending(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	if len(invoices) == 0 {
		log.Info().Msg("No pending invoices selected")
		fmt.Println("No pending invoices selected.")
		return nil
	}

	tracker := status.NewTracker()
	result := orch.Generate(ctx, invoices, overrides, tracker)

	if asJSON {
		return writeJSON(os.Stdout, map[string]any{
			"result":   result,
			"statuses": tracker.Snapshot(),
		})
	}

	for _, inv := range invoices {
		url, ok := result.Links[inv.ID]
		if !ok {
			continue
		}
		amount, _ := result.AmountFor(inv.ID)
		fmt.Printf("  %-20s %10s  %s\n", inv.InvoiceNo, amount.StringFixed(2), url)
	}
	for _, f := range result.Failures {
		fmt.Printf("  %-20s FAILED: %s\n", f.InvoiceNo, f.Message)
	}
	fmt.Printf("\n%d links generated (%d reused), %d failed\n", len(result.Links), result.Reused, len(result.Failures))
	return nil
}
