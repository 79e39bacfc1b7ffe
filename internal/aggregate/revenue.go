// Package aggregate derives dashboard views from a flat list of invoices:
// revenue by day, month and quarter, per-customer payment insights and the
// late-payer list. Everything here is a pure transform over its input.
package aggregate

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"invoicedesk/pkg/models"
)

// DayRevenue is the revenue booked on one calendar day of the month.
type DayRevenue struct {
	Day     int             `json:"day"`
	Revenue decimal.Decimal `json:"revenue"`
}

// MonthRevenue is one month of revenue split by centre. Combined also
// includes invoices whose centre is neither GKP nor LKO.
type MonthRevenue struct {
	Year     int             `json:"year"`
	Month    time.Month      `json:"month"`
	Label    string          `json:"label"`
	GKP      decimal.Decimal `json:"gkp"`
	LKO      decimal.Decimal `json:"lko"`
	Combined decimal.Decimal `json:"combined"`
}

// QuarterRevenue sums three consecutive months.
type QuarterRevenue struct {
	Year     int             `json:"year"`
	Quarter  int             `json:"quarter"`
	Label    string          `json:"label"`
	GKP      decimal.Decimal `json:"gkp"`
	LKO      decimal.Decimal `json:"lko"`
	Combined decimal.Decimal `json:"combined"`
}

// Summary holds headline counts and totals for a batch of invoices.
type Summary struct {
	Count        int             `json:"count"`
	PaidCount    int             `json:"paidCount"`
	PendingCount int             `json:"pendingCount"`
	Total        decimal.Decimal `json:"total"`
	PaidTotal    decimal.Decimal `json:"paidTotal"`
	PendingTotal decimal.Decimal `json:"pendingTotal"`
}

// RevenueByDay groups invoices by day of month of their invoice date and
// returns the sums in ascending day order. Invoices with an unparseable date
// are skipped.
func RevenueByDay(invoices []models.Invoice) []DayRevenue {
	byDay := make(map[int]decimal.Decimal)
	for i := range invoices {
		t, ok := invoices[i].InvoiceTime()
		if !ok {
			continue
		}
		byDay[t.Day()] = byDay[t.Day()].Add(invoices[i].Total)
	}

	result := make([]DayRevenue, 0, len(byDay))
	for day, revenue := range byDay {
		result = append(result, DayRevenue{Day: day, Revenue: revenue})
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Day < result[j].Day
	})
	return result
}

// RevenueByMonth returns exactly twelve entries, January to December, for the
// given year. Months without invoices are zero-filled.
func RevenueByMonth(invoices []models.Invoice, year int) []MonthRevenue {
	months := make([]MonthRevenue, 12)
	for m := range months {
		month := time.Month(m + 1)
		months[m] = MonthRevenue{
			Year:     year,
			Month:    month,
			Label:    month.String()[:3],
			GKP:      decimal.Zero,
			LKO:      decimal.Zero,
			Combined: decimal.Zero,
		}
	}

	for i := range invoices {
		t, ok := invoices[i].InvoiceTime()
		if !ok || t.Year() != year {
			continue
		}
		entry := &months[t.Month()-1]
		total := invoices[i].Total
		switch invoices[i].Centre {
		case models.CentreGKP:
			entry.GKP = entry.GKP.Add(total)
		case models.CentreLKO:
			entry.LKO = entry.LKO.Add(total)
		}
		entry.Combined = entry.Combined.Add(total)
	}
	return months
}

// RevenueByQuarter folds monthly data into quarters labelled "Q1 2024".
// Quarters appear in the order their first month appears.
func RevenueByQuarter(monthly []MonthRevenue) []QuarterRevenue {
	type quarterKey struct{ year, quarter int }

	var order []quarterKey
	byKey := make(map[quarterKey]*QuarterRevenue)
	for _, m := range monthly {
		key := quarterKey{year: m.Year, quarter: (int(m.Month)-1)/3 + 1}
		q, ok := byKey[key]
		if !ok {
			q = &QuarterRevenue{
				Year:     key.year,
				Quarter:  key.quarter,
				Label:    fmt.Sprintf("Q%d %d", key.quarter, key.year),
				GKP:      decimal.Zero,
				LKO:      decimal.Zero,
				Combined: decimal.Zero,
			}
			byKey[key] = q
			order = append(order, key)
		}
		q.GKP = q.GKP.Add(m.GKP)
		q.LKO = q.LKO.Add(m.LKO)
		q.Combined = q.Combined.Add(m.Combined)
	}

	result := make([]QuarterRevenue, 0, len(order))
	for _, key := range order {
		result = append(result, *byKey[key])
	}
	return result
}

// Summarize counts invoices by payment state and sums their totals.
func Summarize(invoices []models.Invoice) Summary {
	s := Summary{Total: decimal.Zero, PaidTotal: decimal.Zero, PendingTotal: decimal.Zero}
	for i := range invoices {
		inv := &invoices[i]
		s.Count++
		s.Total = s.Total.Add(inv.Total)
		switch {
		case inv.IsPaid():
			s.PaidCount++
			s.PaidTotal = s.PaidTotal.Add(inv.Total)
		case inv.IsPending():
			s.PendingCount++
			s.PendingTotal = s.PendingTotal.Add(inv.Total)
		}
	}
	return s
}

// FilterPending keeps invoices that still expect a payment.
func FilterPending(invoices []models.Invoice) []models.Invoice {
	var pending []models.Invoice
	for i := range invoices {
		if invoices[i].IsPending() {
			pending = append(pending, invoices[i])
		}
	}
	return pending
}

// FilterCentre keeps invoices of one centre. An empty centre keeps all.
func FilterCentre(invoices []models.Invoice, centre models.Centre) []models.Invoice {
	if centre == "" {
		return invoices
	}
	var kept []models.Invoice
	for i := range invoices {
		if invoices[i].Centre == centre {
			kept = append(kept, invoices[i])
		}
	}
	return kept
}

// FilterIDs keeps invoices whose id or invoice number is listed. An empty
// list keeps all.
func FilterIDs(invoices []models.Invoice, ids []string) []models.Invoice {
	if len(ids) == 0 {
		return invoices
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var kept []models.Invoice
	for i := range invoices {
		if wanted[invoices[i].ID] || wanted[invoices[i].InvoiceNo] {
			kept = append(kept, invoices[i])
		}
	}
	return kept
}
