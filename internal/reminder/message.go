package reminder

import (
	"net/url"
	"strings"
	"text/template"

	"invoicedesk/internal/normalize"
	"invoicedesk/pkg/models"
)

var messageTemplate = template.Must(template.New("reminder").Parse(
	`Dear {{.ParentName}},

This is a gentle reminder that the fee for {{.ChildName}} is pending.
Please complete the payment using the link below:
{{.PaymentLink}}

Kindly ensure the payment is made by the 9th of the month to avoid a late fee.

Thank you.`))

// MessageText renders the plain-text reminder for one record.
func MessageText(record models.ReminderRecord) string {
	var b strings.Builder
	// Execute can only fail on writer errors, which strings.Builder never returns.
	_ = messageTemplate.Execute(&b, record)
	return b.String()
}

// WhatsAppURL builds the wa.me deep link carrying the reminder text.
func WhatsAppURL(record models.ReminderRecord) string {
	return "https://wa.me/" + normalize.E164Digits(record.Phone) + "?text=" + encodeComponent(MessageText(record))
}

// encodeComponent escapes like encodeURIComponent: spaces become %20, not +.
func encodeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
