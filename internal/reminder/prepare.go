// Package reminder turns pending invoices into per-child payment reminders
// and delivers them over WhatsApp, either through a messaging API or by
// opening WhatsApp Web deep links.
package reminder

import (
	"time"

	"github.com/shopspring/decimal"
	"invoicedesk/pkg/models"
)

// FallbackPaymentLink is sent when no link could be generated for a child.
const FallbackPaymentLink = "Please contact the centre for payment details"

// ParentBatch is one guardian with their pending invoices and the payment
// links generated for them (invoice id -> short URL).
type ParentBatch struct {
	Parent   models.Parent
	Invoices []models.Invoice
	Links    map[string]string
}

// PrepareReminderData builds one record per (parent, child) pair. A
// record's amount is the sum of that child's invoices only, and its link is
// the first link available among them in invoice order.
func PrepareReminderData(batches []ParentBatch, now time.Time) []models.ReminderRecord {
	dueDate := DueDate(now)

	var records []models.ReminderRecord
	for _, batch := range batches {
		type childGroup struct {
			child    *models.ChildRef
			invoices []models.Invoice
		}

		var order []string
		groups := make(map[string]*childGroup)
		for i := range batch.Invoices {
			inv := batch.Invoices[i]
			if inv.Child == nil {
				continue
			}
			g, ok := groups[inv.Child.ID]
			if !ok {
				g = &childGroup{child: inv.Child}
				groups[inv.Child.ID] = g
				order = append(order, inv.Child.ID)
			}
			g.invoices = append(g.invoices, inv)
		}

		for _, childID := range order {
			g := groups[childID]

			amount := decimal.Zero
			link := ""
			ids := make([]string, 0, len(g.invoices))
			for _, inv := range g.invoices {
				amount = amount.Add(inv.Total)
				ids = append(ids, inv.ID)
				if link == "" {
					link = batch.Links[inv.ID]
				}
			}
			if link == "" {
				link = FallbackPaymentLink
			}

			records = append(records, models.ReminderRecord{
				ID:          RecordID(batch.Parent.ID, childID),
				ChildID:     childID,
				Phone:       batch.Parent.Phone,
				ParentName:  batch.Parent.Name,
				ChildName:   g.child.FullNameWithCaseID,
				PaymentLink: link,
				Amount:      amount,
				DueDate:     dueDate,
				InvoiceIDs:  ids,
			})
		}
	}
	return records
}

// RecordID keys one (parent, child) reminder.
func RecordID(parentID, childID string) string {
	return parentID + "/" + childID
}

// DueDate is the 10th of the month after now, as a long date.
func DueDate(now time.Time) string {
	due := time.Date(now.Year(), now.Month()+1, 10, 0, 0, 0, 0, now.Location())
	return due.Format("2 January 2006")
}
