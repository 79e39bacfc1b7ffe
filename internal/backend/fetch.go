package backend

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"invoicedesk/internal/logger"
	"invoicedesk/pkg/models"
)

const isoMillis = "2006-01-02T15:04:05.000Z"

// Range is a half-open [Start, End) interval of UTC midnights.
type Range struct {
	Start time.Time
	End   time.Time
}

// MonthRange covers one calendar month.
func MonthRange(year int, month time.Month) Range {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Range{Start: start, End: start.AddDate(0, 1, 0)}
}

// MonthsRange covers n calendar months starting at year/month.
func MonthsRange(year int, month time.Month, n int) Range {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Range{Start: start, End: start.AddDate(0, n, 0)}
}

// YearRange covers one calendar year.
func YearRange(year int) Range {
	return MonthsRange(year, time.January, 12)
}

// StartISO formats Start the way the backend expects.
func (r Range) StartISO() string {
	return r.Start.UTC().Format(isoMillis)
}

// EndISO formats End the way the backend expects.
func (r Range) EndISO() string {
	return r.End.UTC().Format(isoMillis)
}

// FetchCentres fetches every centre concurrently and merges the results once
// all fetches have finished. A failing centre contributes no invoices; its
// error is reported in the returned map instead of failing the whole fetch.
// The merged slice lists centres in the order given.
func FetchCentres(ctx context.Context, src InvoiceSource, centres []models.Centre, r Range) ([]models.Invoice, map[models.Centre]error) {
	log := logger.WithComponent("backend-fanout")

	results := make([][]models.Invoice, len(centres))
	errs := make([]error, len(centres))

	var g errgroup.Group
	for i, centre := range centres {
		g.Go(func() error {
			invoices, err := src.FetchInvoices(ctx, centre, r)
			if err != nil {
				errs[i] = err
				return nil
			}
			results[i] = invoices
			return nil
		})
	}
	_ = g.Wait()

	var merged []models.Invoice
	failures := make(map[models.Centre]error)
	for i, centre := range centres {
		if errs[i] != nil {
			log.Warn().
				Err(errs[i]).
				Str("centre", string(centre)).
				Msg("Centre fetch failed, continuing without its invoices")
			failures[centre] = errs[i]
			continue
		}
		merged = append(merged, results[i]...)
	}

	log.Info().
		Int("centres", len(centres)).
		Int("failed_centres", len(failures)).
		Int("invoices", len(merged)).
		Msg("Multi-centre fetch completed")

	return merged, failures
}
