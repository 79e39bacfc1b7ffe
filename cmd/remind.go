package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"invoicedesk/internal/config"
	"invoicedesk/internal/export"
	"invoicedesk/internal/guardian"
	"invoicedesk/internal/logger"
	"invoicedesk/internal/pipeline"
	"invoicedesk/internal/reminder"
	"invoicedesk/pkg/models"
)

const reminderLogWorksheet = "Reminder_Log"

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Send WhatsApp fee reminders for pending invoices",
	Long: `Generate payment links for the selected pending invoices, group them by
parent and send one WhatsApp reminder per child.

When WHATSAPP_API_URL and WHATSAPP_API_KEY are set, reminders are sent as
template messages through the messaging API. Otherwise one WhatsApp Web link
per child is opened in the browser (or printed with --print-links), spaced by
REMINDER_STAGGER.

Required environment variables:
  PAYMENT_GATEWAY_KEY_ID, PAYMENT_GATEWAY_KEY_SECRET
  BACKEND_URL, GKP_API_TOKEN, LKO_API_TOKEN (unless --input is used)`,
	Example: `  # Preview this month's reminders without calling any gateway
  invoicedesk remind --dry-run

  # Send reminders for Lucknow and log the run to Google Sheets
  invoicedesk remind --centre lko --sheet-log`,
	RunE: runRemind,
}

func init() {
	rootCmd.AddCommand(remindCmd)

	addSelectionFlags(remindCmd)
	remindCmd.Flags().Bool("dry-run", false, "Print the reminders without generating links or sending")
	remindCmd.Flags().Bool("print-links", false, "Print WhatsApp Web links instead of opening the browser")
	remindCmd.Flags().Bool("sheet-log", false, "Append the run to the Reminder_Log worksheet of GOOGLE_SHEET_URL")
	remindCmd.Flags().Bool("json", false, "Print the run summary as JSON")
}

func runRemind(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("remind")

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	printLinks, _ := cmd.Flags().GetBool("print-links")
	sheetLog, _ := cmd.Flags().GetBool("sheet-log")
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

	invoices, err := selectPending(ctx, cmd, cfg)
	if err != nil {
		return err
	}
	if len(invoices) == 0 {
		log.Info().Msg("No pending invoices selected")
		fmt.Println("No pending invoices selected.")
		return nil
	}

	if dryRun {
		return previewReminders(invoices, asJSON)
	}

	if sheetLog {
		if err := cfg.RequireSheets(); err != nil {
			return err
		}
	}

	orch, closeStore, err := newOrchestrator(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var opener reminder.Opener = reminder.BrowserOpener{}
	if printLinks {
		opener = reminder.WriterOpener{W: os.Stdout}
	}
	messenger := reminder.NewHTTPMessenger(cfg.WhatsAppAPIURL, cfg.WhatsAppAPIKey, cfg.WhatsAppTemplateID, nil)
	dispatcher := reminder.NewDispatcher(messenger, opener, cfg.ReminderStagger)

	log.Info().
		Int("invoices", len(invoices)).
		Str("mode", string(dispatcher.Mode())).
		Msg("Starting reminder run")

	summary := pipeline.New(orch, dispatcher, nil).Run(ctx, invoices, overrides)

	if sheetLog {
		exporter, err := export.NewSheetsExporter(ctx, cfg.GoogleSheetURL)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize Google Sheets service, run not logged")
		} else {
			table := export.DispatchTable(summary.BatchID, summary.Records, summary.Reminders, time.Now())
			if err := exporter.Append(ctx, reminderLogWorksheet, table); err != nil {
				log.Warn().Err(err).Msg("Failed to log reminder run to Google Sheets")
			}
		}
	}

	if asJSON {
		return writeJSON(os.Stdout, summary)
	}

	for _, f := range summary.LinkFailures {
		fmt.Printf("  link failed  %-20s %s\n", f.InvoiceNo, f.Message)
	}
	for _, st := range summary.Reminders {
		line := fmt.Sprintf("  %-10s %s", st.Status, st.Label)
		if st.Error != "" {
			line += ": " + st.Error
		}
		fmt.Println(line)
	}
	if summary.DispatchError != "" {
		fmt.Printf("\nReminder delivery failed: %s\n", summary.DispatchError)
	}
	fmt.Printf("\n%d links, %d link failures, %d reminders sent, %d failed (%s)\n",
		len(summary.Links), len(summary.LinkFailures), summary.Sent, summary.Failed, summary.Mode)
	return nil
}

// previewReminders prints what a run would send, with the fallback text in
// place of payment links.
func previewReminders(invoices []models.Invoice, asJSON bool) error {
	grouper := guardian.NewGrouper(nil)
	byParent := grouper.InvoicesByParent(invoices)

	var batches []reminder.ParentBatch
	for _, parent := range grouper.GroupByParent(invoices) {
		batches = append(batches, reminder.ParentBatch{Parent: parent, Invoices: byParent[parent.ID]})
	}
	records := reminder.PrepareReminderData(batches, time.Now())

	if asJSON {
		return writeJSON(os.Stdout, records)
	}
	for _, r := range records {
		fmt.Printf("To %s (%s) for %s, %s due %s\n", r.ParentName, r.Phone, r.ChildName, r.Amount.StringFixed(2), r.DueDate)
		fmt.Printf("  %s\n", reminder.WhatsAppURL(r))
	}
	fmt.Printf("\n%d reminders would be sent\n", len(records))
	return nil
}
