package aggregate

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"invoicedesk/pkg/models"
)

// CustomerAggregate is the payment history of one child at one centre.
type CustomerAggregate struct {
	Key          string                       `json:"key"`
	Name         string                       `json:"name"`
	Centre       models.Centre                `json:"centre"`
	FatherName   string                       `json:"fatherName,omitempty"`
	Phone        string                       `json:"phone,omitempty"`
	Email        string                       `json:"email,omitempty"`
	TotalPaid    decimal.Decimal              `json:"totalPaid"`
	TotalPending decimal.Decimal              `json:"totalPending"`
	InvoiceCount int                          `json:"invoiceCount"`
	PaidCount    int                          `json:"paidCount"`
	PendingCount int                          `json:"pendingCount"`
	StatusCounts map[models.InvoiceStatus]int `json:"statusCounts"`

	// Zero when no invoice of that kind carried a parseable date.
	LastPaymentDate time.Time `json:"lastPaymentDate"`
	LastInvoiceDate time.Time `json:"lastInvoiceDate"`
}

// LatePayer is a customer with an outstanding balance.
type LatePayer struct {
	CustomerAggregate
	OverdueDays int `json:"overdueDays"`
}

// CustomerKey identifies a customer as "<fullNameWithCaseId>_<centre>".
func CustomerKey(child *models.ChildRef, centre models.Centre) string {
	return child.FullNameWithCaseID + "_" + string(centre)
}

// CustomerInsights aggregates invoices per customer key. Invoices without
// child data cannot be attributed and are skipped.
func CustomerInsights(invoices []models.Invoice) map[string]*CustomerAggregate {
	insights := make(map[string]*CustomerAggregate)

	for i := range invoices {
		inv := &invoices[i]
		if inv.Child == nil {
			continue
		}

		key := CustomerKey(inv.Child, inv.Centre)
		agg, ok := insights[key]
		if !ok {
			agg = &CustomerAggregate{
				Key:          key,
				Name:         inv.Child.FullNameWithCaseID,
				Centre:       inv.Centre,
				FatherName:   inv.Child.FatherName,
				Phone:        inv.Child.Phone,
				Email:        inv.Child.Email,
				TotalPaid:    decimal.Zero,
				TotalPending: decimal.Zero,
				StatusCounts: make(map[models.InvoiceStatus]int),
			}
			insights[key] = agg
		}

		agg.InvoiceCount++
		agg.StatusCounts[inv.InvoiceStatus]++

		date, dated := inv.InvoiceTime()
		if dated && date.After(agg.LastInvoiceDate) {
			agg.LastInvoiceDate = date
		}

		switch {
		case inv.IsPaid():
			agg.PaidCount++
			agg.TotalPaid = agg.TotalPaid.Add(inv.Total)
			if dated && date.After(agg.LastPaymentDate) {
				agg.LastPaymentDate = date
			}
		case inv.IsPending():
			agg.PendingCount++
			agg.TotalPending = agg.TotalPending.Add(inv.Total)
		}
	}

	return insights
}

// LatePayingCustomers returns customers with a positive pending balance,
// most overdue first. Overdue days count whole days since the customer's
// last invoice, never negative; a customer without a parseable invoice date
// is 0 days overdue.
func LatePayingCustomers(insights map[string]*CustomerAggregate, now time.Time) []LatePayer {
	var late []LatePayer
	for _, agg := range insights {
		if !agg.TotalPending.IsPositive() {
			continue
		}
		late = append(late, LatePayer{
			CustomerAggregate: *agg,
			OverdueDays:       OverdueDays(agg.LastInvoiceDate, now),
		})
	}

	sort.Slice(late, func(i, j int) bool {
		if late[i].OverdueDays != late[j].OverdueDays {
			return late[i].OverdueDays > late[j].OverdueDays
		}
		if c := late[i].TotalPending.Cmp(late[j].TotalPending); c != 0 {
			return c > 0
		}
		return late[i].Key < late[j].Key
	})
	return late
}

// OverdueDays is floor((now - since) / 24h) clamped at zero.
func OverdueDays(since, now time.Time) int {
	if since.IsZero() {
		return 0
	}
	days := math.Floor(now.Sub(since).Hours() / 24)
	if days < 0 {
		return 0
	}
	return int(days)
}
