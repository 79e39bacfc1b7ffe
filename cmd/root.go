package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"invoicedesk/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "invoicedesk",
	Short: "Invoicedesk - invoice and parent communication desk for the therapy centres",
	Long: `Invoicedesk reports revenue and outstanding fees across the Gorakhpur (gkp)
and Lucknow (lko) centres, generates payment links for pending invoices and
sends fee reminders to parents over WhatsApp.

Invoices are fetched from the invoice backend for each centre, or read from a
JSON file with --input.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("Invoicedesk executed")

		fmt.Println("Welcome to Invoicedesk!")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("centre", "all", "Centre to report on (gkp, lko or all)")
	rootCmd.PersistentFlags().String("input", "", "Read invoices from a JSON file instead of the backend")
}
