package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"invoicedesk/internal/aggregate"
	"invoicedesk/internal/backend"
	"invoicedesk/internal/config"
	"invoicedesk/internal/logger"
	"invoicedesk/internal/paylink"
	"invoicedesk/pkg/models"
)

// selectedCentres resolves the --centre flag.
func selectedCentres(cmd *cobra.Command) ([]models.Centre, error) {
	value, _ := cmd.Flags().GetString("centre")
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "all":
		return models.Centres, nil
	case string(models.CentreGKP):
		return []models.Centre{models.CentreGKP}, nil
	case string(models.CentreLKO):
		return []models.Centre{models.CentreLKO}, nil
	default:
		return nil, fmt.Errorf("unknown centre %q (use gkp, lko or all)", value)
	}
}

// parseMonth parses YYYY-MM, defaulting to the current month.
func parseMonth(value string, now time.Time) (int, time.Month, error) {
	if value == "" {
		return now.Year(), now.Month(), nil
	}
	t, err := time.Parse("2006-01", value)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month format. Use YYYY-MM: %w", err)
	}
	return t.Year(), t.Month(), nil
}

// loadInvoices reads invoices from --input, or fetches the selected centres
// for r from the backend. A centre that fails to load is logged and skipped.
func loadInvoices(ctx context.Context, cmd *cobra.Command, cfg *config.Config, r backend.Range) ([]models.Invoice, error) {
	const op = "loadInvoices"
	log := logger.WithComponent("invoices")

	centres, err := selectedCentres(cmd)
	if err != nil {
		return nil, err
	}

	if input, _ := cmd.Flags().GetString("input"); input != "" {
		data, err := os.ReadFile(input)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to read input file: %w", op, err)
		}
		var invoices []models.Invoice
		if err := json.Unmarshal(data, &invoices); err != nil {
			return nil, fmt.Errorf("%s: failed to parse input file: %w", op, err)
		}

		var selected []models.Invoice
		for _, inv := range invoices {
			for _, c := range centres {
				if inv.Centre == c || (inv.Centre == "" && len(centres) == len(models.Centres)) {
					selected = append(selected, inv)
					break
				}
			}
		}
		log.Info().
			Str("file", input).
			Int("invoices", len(selected)).
			Msg("Loaded invoices from file")
		return selected, nil
	}

	if err := cfg.RequireBackend(centres...); err != nil {
		return nil, err
	}

	client := backend.NewClient(cfg.BackendURL, cfg.CentreTokens, nil)
	invoices, failed := backend.FetchCentres(ctx, client, centres, r)
	for centre, err := range failed {
		log.Warn().
			Err(err).
			Str("centre", string(centre)).
			Msg("Centre could not be loaded, continuing without it")
	}
	if len(failed) == len(centres) {
		return nil, fmt.Errorf("%s: no centre could be loaded", op)
	}
	return invoices, nil
}

// openLinkStore returns a Redis store when REDIS_ADDR is set and reachable,
// otherwise an in-memory one.
func openLinkStore(ctx context.Context, cfg *config.Config) (paylink.Store, func()) {
	log := logger.WithComponent("paylink-store")
	if cfg.RedisAddr != "" {
		store, err := paylink.NewRedisStore(ctx, cfg.RedisAddr)
		if err == nil {
			log.Info().Str("addr", cfg.RedisAddr).Msg("Using Redis payment link store")
			return store, func() { _ = store.Close() }
		}
		log.Warn().Err(err).Msg("Redis unavailable, using in-memory payment link store")
	}
	return paylink.NewMemoryStore(), func() {}
}

// newOrchestrator wires the payment gateway from configuration.
func newOrchestrator(ctx context.Context, cfg *config.Config) (*paylink.Orchestrator, func(), error) {
	if err := cfg.RequirePaymentGateway(); err != nil {
		return nil, nil, err
	}
	gateway, err := paylink.NewHTTPGateway(cfg.PaymentGatewayURL, cfg.PaymentGatewayKeyID, cfg.PaymentGatewayKeySecret, nil)
	if err != nil {
		return nil, nil, err
	}
	store, closeStore := openLinkStore(ctx, cfg)
	orch := paylink.NewOrchestrator(gateway, store, paylink.Settings{
		Currency:          cfg.Currency,
		Expiry:            cfg.PaymentLinkExpiry,
		FillerPhone:       cfg.FillerPhone,
		FillerEmail:       cfg.FillerEmail,
		RequestsPerSecond: cfg.PaymentGatewayRPS,
	})
	return orch, closeStore, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// selectPending loads one month, keeps pending invoices and, when ids are
// given, only those (matched by id or invoice number).
func selectPending(ctx context.Context, cmd *cobra.Command, cfg *config.Config) ([]models.Invoice, error) {
	monthStr, _ := cmd.Flags().GetString("month")
	ids, _ := cmd.Flags().GetStringSlice("invoice")

	year, month, err := parseMonth(monthStr, time.Now())
	if err != nil {
		return nil, err
	}
	invoices, err := loadInvoices(ctx, cmd, cfg, backend.MonthRange(year, month))
	if err != nil {
		return nil, err
	}
	invoices = aggregate.FilterPending(invoices)
	if len(ids) > 0 {
		invoices = aggregate.FilterIDs(invoices, ids)
	}
	return invoices, nil
}

// readOverrides loads per-invoice payer details, keyed by invoice id.
func readOverrides(cmd *cobra.Command) (map[string]paylink.CustomerOverride, error) {
	path, _ := cmd.Flags().GetString("overrides")
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read overrides file: %w", err)
	}
	var overrides map[string]paylink.CustomerOverride
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse overrides file: %w", err)
	}
	return overrides, nil
}

func addSelectionFlags(cmd *cobra.Command) {
	cmd.Flags().String("month", "", "Month to load (format: YYYY-MM, default: current month)")
	cmd.Flags().StringSlice("invoice", nil, "Only these invoice ids or numbers (repeatable)")
	cmd.Flags().String("overrides", "", `JSON file of payer details per invoice id: {"<id>": {"name": "", "phone": "", "email": ""}}`)
}
