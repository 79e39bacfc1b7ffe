package models

import (
	"github.com/shopspring/decimal"
)

// Parent is a guardian reconstructed from invoice child data. It is never
// persisted; ID is a synthetic guardian key.
type Parent struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Phone    string  `json:"phone"`
	Email    string  `json:"email,omitempty"`
	Children []Child `json:"children"`
	Centre   Centre  `json:"centre"`
}

// Child is the per-parent view of a child.
type Child struct {
	ID                 string `json:"id"`
	FullNameWithCaseID string `json:"fullNameWithCaseId"`
	IsActive           bool   `json:"isActive"`
}

// HasChild reports whether a child with the given id is already listed.
func (p *Parent) HasChild(id string) bool {
	for _, c := range p.Children {
		if c.ID == id {
			return true
		}
	}
	return false
}

// PaymentLinkCustomer is the customer block of a payment link.
type PaymentLinkCustomer struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Email   string `json:"email"`
}

// PaymentLink is created by the payment gateway, one per invoice.
type PaymentLink struct {
	ID          string              `json:"id"`
	ShortURL    string              `json:"short_url"`
	Amount      int64               `json:"amount"` // minor units (paise)
	Currency    string              `json:"currency,omitempty"`
	Customer    PaymentLinkCustomer `json:"customer"`
	ExpireBy    int64               `json:"expire_by"`
	ReferenceID string              `json:"reference_id"`
	Notes       map[string]string   `json:"notes,omitempty"`
	Status      string              `json:"status,omitempty"`
}

// ReminderRecord is one outgoing reminder for one child of one parent.
type ReminderRecord struct {
	// ID is "<parent id>/<child id>"; it keys the record's dispatch status.
	// A child split across two guardians gets one record per guardian.
	ID          string          `json:"id"`
	ChildID     string          `json:"childId"`
	Phone       string          `json:"phone"`
	ParentName  string          `json:"parentName"`
	ChildName   string          `json:"childName"`
	PaymentLink string          `json:"paymentLink"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     string          `json:"dueDate"`
	InvoiceIDs  []string        `json:"invoiceIds"`
}

// ProcessingState is the per-item status surfaced to the operator.
type ProcessingState string

const (
	StatePending         ProcessingState = "pending"
	StateProcessing      ProcessingState = "processing"
	StateGeneratingLink  ProcessingState = "generating_link"
	StateLinkGenerated   ProcessingState = "link_generated"
	StateSendingWhatsApp ProcessingState = "sending_whatsapp"
	StateCompleted       ProcessingState = "completed"
	StateSent            ProcessingState = "sent"
	StateFailed          ProcessingState = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s ProcessingState) Terminal() bool {
	switch s {
	case StateCompleted, StateSent, StateFailed:
		return true
	}
	return false
}

// ProcessingStatus tracks one batch item.
type ProcessingStatus struct {
	ID     string          `json:"id"`
	Label  string          `json:"label"`
	Status ProcessingState `json:"status"`
	Error  string          `json:"error,omitempty"`
}
