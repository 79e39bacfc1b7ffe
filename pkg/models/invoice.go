package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the lifecycle state reported by the invoice backend.
type InvoiceStatus string

const (
	StatusPaid      InvoiceStatus = "PAID"
	StatusDraft     InvoiceStatus = "DRAFT"
	StatusPending   InvoiceStatus = "PENDING"
	StatusOpen      InvoiceStatus = "OPEN"
	StatusOverdue   InvoiceStatus = "OVERDUE"
	StatusCancelled InvoiceStatus = "CANCELLED"
	StatusVoid      InvoiceStatus = "VOID"
)

// Centre identifies a therapy centre.
type Centre string

const (
	CentreGKP Centre = "gkp" // Gorakhpur
	CentreLKO Centre = "lko" // Lucknow
)

// Centres lists the centres the dashboard reports on.
var Centres = []Centre{CentreGKP, CentreLKO}

// Invoice is an immutable snapshot fetched from the invoice backend.
type Invoice struct {
	// Core identifiers
	ID        string `json:"id"`
	InvoiceNo string `json:"invoiceNo"`

	// Amounts
	Total decimal.Decimal `json:"total"`

	// Status
	InvoiceStatus InvoiceStatus `json:"invoiceStatus"`

	// Dates are kept as received; use InvoiceTime/CreatedTime to parse them.
	InvoiceDate string `json:"invoiceDate"`
	CreatedAt   string `json:"createdAt"`

	// Relations
	Child  *ChildRef `json:"child,omitempty"`
	Centre Centre    `json:"centre,omitempty"`
}

// ChildRef is the denormalized child subset embedded in an invoice.
type ChildRef struct {
	ID                 string `json:"id"`
	FullNameWithCaseID string `json:"fullNameWithCaseId"`
	FatherName         string `json:"fatherName,omitempty"`
	Phone              string `json:"phone,omitempty"`
	Email              string `json:"email,omitempty"`
	IsActive           bool   `json:"isActive"`
}

// IsPaid reports whether the invoice has been settled.
func (i *Invoice) IsPaid() bool {
	return strings.EqualFold(string(i.InvoiceStatus), string(StatusPaid))
}

// IsPending reports whether the invoice still expects a payment.
// Cancelled and void invoices are neither paid nor pending.
func (i *Invoice) IsPending() bool {
	switch InvoiceStatus(strings.ToUpper(string(i.InvoiceStatus))) {
	case StatusPaid, StatusCancelled, StatusVoid:
		return false
	default:
		return true
	}
}

// InvoiceTime parses InvoiceDate. The second return is false when the date is
// missing or malformed.
func (i *Invoice) InvoiceTime() (time.Time, bool) {
	return ParseTimestamp(i.InvoiceDate)
}

// CreatedTime parses CreatedAt.
func (i *Invoice) CreatedTime() (time.Time, bool) {
	return ParseTimestamp(i.CreatedAt)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp accepts the date formats the backend has been seen to emit.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
