package models

import (
	"testing"
	"time"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in     string
		want   time.Time
		wantOK bool
	}{
		{"2024-01-05", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), true},
		{"2024-01-05T10:30:00Z", time.Date(2024, 1, 5, 10, 30, 0, 0, time.UTC), true},
		{"2024-01-05T10:30:00.123Z", time.Date(2024, 1, 5, 10, 30, 0, 123000000, time.UTC), true},
		{"2024-01-05 10:30:00", time.Date(2024, 1, 5, 10, 30, 0, 0, time.UTC), true},
		{" 2024-01-05 ", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"05/01/2024", time.Time{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseTimestamp(tt.in)
		if ok != tt.wantOK || !got.Equal(tt.want) {
			t.Errorf("ParseTimestamp(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestInvoiceStatusPredicates(t *testing.T) {
	tests := []struct {
		status        InvoiceStatus
		paid, pending bool
	}{
		{StatusPaid, true, false},
		{"paid", true, false},
		{StatusPending, false, true},
		{StatusDraft, false, true},
		{StatusOverdue, false, true},
		{StatusCancelled, false, false},
		{"void", false, false},
	}
	for _, tt := range tests {
		inv := Invoice{InvoiceStatus: tt.status}
		if inv.IsPaid() != tt.paid || inv.IsPending() != tt.pending {
			t.Errorf("%s: IsPaid=%v IsPending=%v, want %v %v", tt.status, inv.IsPaid(), inv.IsPending(), tt.paid, tt.pending)
		}
	}
}

func TestProcessingStateTerminal(t *testing.T) {
	for _, s := range []ProcessingState{StateCompleted, StateSent, StateFailed} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	for _, s := range []ProcessingState{StatePending, StateProcessing, StateGeneratingLink, StateLinkGenerated, StateSendingWhatsApp} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
}
