package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"invoicedesk/internal/backend"
	"invoicedesk/internal/config"
	"invoicedesk/internal/logger"
	"invoicedesk/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the yearly progress report as a static HTML page",
	Long: `Build a progress report for one year: revenue by month and quarter per
centre, the late payer list, and a short commentary per section written by
the OpenAI model in OPENAI_MODEL.

Without OPENAI_API_KEY the report is still written, with placeholder text in
place of the commentary.`,
	Example: `  # Report for 2024 written to report-2024.html
  invoicedesk report --year 2024 --output report-2024.html`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().Int("year", time.Now().Year(), "Year to report on")
	reportCmd.Flags().StringP("output", "o", "", "Output file (default: progress-report-<year>.html)")
}

func runReport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("report")

	year, _ := cmd.Flags().GetInt("year")
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = fmt.Sprintf("progress-report-%d.html", year)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	var generator report.TextGenerator
	if err := cfg.RequireLLM(); err != nil {
		log.Warn().Err(err).Msg("Commentary disabled")
	} else {
		generator = report.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	}

	ctx := context.Background()
	invoices, err := loadInvoices(ctx, cmd, cfg, backend.YearRange(year))
	if err != nil {
		return err
	}

	r := report.NewBuilder(generator).Build(ctx, invoices, year)

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", output, err)
	}
	defer f.Close()

	if err := report.Render(f, r); err != nil {
		return err
	}

	log.Info().
		Str("report_id", r.ID).
		Str("file", output).
		Msg("Progress report written")
	fmt.Printf("Report written to %s\n", output)
	return nil
}
