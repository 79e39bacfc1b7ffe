// Package export writes late payer lists and reminder dispatch logs to
// spreadsheet files and Google Sheets.
package export

import (
	"time"

	"invoicedesk/internal/aggregate"
	"invoicedesk/pkg/models"
)

// Table is a header row plus data rows, in the cell types both writers accept.
type Table struct {
	Headers []string
	Rows    [][]interface{}
}

// LatePayerTable lays out late payers one per row.
func LatePayerTable(latePayers []aggregate.LatePayer) Table {
	t := Table{Headers: []string{
		"Child", "Centre", "Father", "Phone", "Email", "Pending", "Paid",
		"Pending invoices", "Last invoice", "Days overdue",
	}}
	for _, lp := range latePayers {
		pending, _ := lp.TotalPending.Float64()
		paid, _ := lp.TotalPaid.Float64()
		t.Rows = append(t.Rows, []interface{}{
			lp.Name,
			string(lp.Centre),
			lp.FatherName,
			lp.Phone,
			lp.Email,
			pending,
			paid,
			lp.PendingCount,
			formatDate(lp.LastInvoiceDate),
			lp.OverdueDays,
		})
	}
	return t
}

// DispatchTable lays out one reminder run, one row per record. statuses are
// matched to records by record id.
func DispatchTable(batchID string, records []models.ReminderRecord, statuses []models.ProcessingStatus, at time.Time) Table {
	byID := make(map[string]models.ProcessingStatus, len(statuses))
	for _, st := range statuses {
		byID[st.ID] = st
	}

	t := Table{Headers: []string{
		"Batch", "Child", "Parent", "Phone", "Amount", "Payment link",
		"Due date", "Status", "Error", "Processed",
	}}
	for _, r := range records {
		amount, _ := r.Amount.Float64()
		st := byID[r.ID]
		t.Rows = append(t.Rows, []interface{}{
			batchID,
			r.ChildName,
			r.ParentName,
			r.Phone,
			amount,
			r.PaymentLink,
			r.DueDate,
			string(st.Status),
			st.Error,
			at.Format("2006-01-02 15:04:05"),
		})
	}
	return t
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
