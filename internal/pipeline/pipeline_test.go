package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"invoicedesk/internal/paylink"
	"invoicedesk/internal/reminder"
	"invoicedesk/internal/status"
	"invoicedesk/pkg/models"
)

type stubGateway struct {
	fail map[string]bool
}

func (g stubGateway) CreatePaymentLink(_ context.Context, req paylink.CreateRequest) (*models.PaymentLink, error) {
	no := req.Notes["invoice_no"]
	if g.fail[no] {
		return nil, &paylink.GatewayError{StatusCode: 500}
	}
	return &models.PaymentLink{ID: "plink_" + no, ShortURL: "https://rzp.io/i/" + no, ExpireBy: req.ExpireBy}, nil
}

func (stubGateway) FindByReference(context.Context, string) (*models.PaymentLink, error) {
	return nil, nil
}

type stubSender struct {
	records []models.ReminderRecord
	failIDs map[string]bool
	err     error
}

func (s *stubSender) Dispatch(_ context.Context, records []models.ReminderRecord, tracker *status.Tracker) (*reminder.DispatchResult, error) {
	s.records = records
	result := &reminder.DispatchResult{Mode: reminder.ModeAPI}
	for _, r := range records {
		tracker.Add(r.ID, r.ChildName)
		_ = tracker.Transition(r.ID, models.StateProcessing, "")
		if s.err != nil || s.failIDs[r.ID] {
			_ = tracker.Transition(r.ID, models.StateFailed, "undeliverable")
			result.Failed++
			continue
		}
		_ = tracker.Transition(r.ID, models.StateSent, "")
		result.Sent++
	}
	return result, s.err
}

func inv(id, childID, father, phone, total string) models.Invoice {
	return models.Invoice{
		ID:            id,
		InvoiceNo:     "INV-" + id,
		Total:         decimal.RequireFromString(total),
		InvoiceStatus: models.StatusPending,
		Centre:        models.CentreLKO,
		Child:         &models.ChildRef{ID: childID, FullNameWithCaseID: "Child " + childID, FatherName: father, Phone: phone},
	}
}

func settings() paylink.Settings {
	return paylink.Settings{Currency: "INR", Expiry: 24 * time.Hour, FillerPhone: "9999999999", FillerEmail: "noreply@example.com"}
}

func TestRunEndToEnd(t *testing.T) {
	invoices := []models.Invoice{
		inv("1", "c1", "Ramesh", "9000000001", "1000"),
		inv("2", "c2", "Ramesh", "9000000001", "400"),
		inv("3", "c1", "Ramesh", "9000000001", "200"),
		inv("4", "c3", "Suresh", "9000000002", "700"),
	}
	orch := paylink.NewOrchestrator(stubGateway{fail: map[string]bool{"INV-4": true}}, paylink.NewMemoryStore(), settings())
	sender := &stubSender{failIDs: map[string]bool{reminder.RecordID("Ramesh_9000000001", "c2"): true}}

	summary := New(orch, sender, nil).Run(context.Background(), invoices, nil)

	if len(summary.Links) != 3 || len(summary.LinkFailures) != 1 || summary.LinkFailures[0].InvoiceID != "4" {
		t.Fatalf("links = %v failures = %+v", summary.Links, summary.LinkFailures)
	}
	if len(summary.Records) != 3 {
		t.Fatalf("records = %d, want 3 (one per child)", len(summary.Records))
	}
	if !summary.Records[0].Amount.Equal(decimal.NewFromInt(1200)) {
		t.Errorf("c1 amount = %s, want 1200", summary.Records[0].Amount)
	}
	if summary.Records[2].PaymentLink != reminder.FallbackPaymentLink {
		t.Errorf("c3 link = %q, want fallback", summary.Records[2].PaymentLink)
	}
	if summary.Sent != 2 || summary.Failed != 1 {
		t.Errorf("sent=%d failed=%d", summary.Sent, summary.Failed)
	}

	want := map[string]models.ProcessingState{
		"1": models.StateCompleted,
		"2": models.StateFailed,
		"3": models.StateCompleted,
		"4": models.StateFailed,
	}
	for _, st := range summary.Statuses {
		if st.Status != want[st.ID] {
			t.Errorf("invoice %s status = %s, want %s", st.ID, st.Status, want[st.ID])
		}
	}
	if summary.Statuses[1].Error != "undeliverable" {
		t.Errorf("invoice 2 error = %q", summary.Statuses[1].Error)
	}
}

func TestRunKeepsSplitChildRecordsApart(t *testing.T) {
	invoices := []models.Invoice{
		inv("1", "c1", "Ramesh", "9000000001", "1000"),
		inv("2", "c1", "Ramesh Kumar", "9000000009", "800"),
	}
	orch := paylink.NewOrchestrator(stubGateway{}, nil, settings())
	sender := &stubSender{failIDs: map[string]bool{reminder.RecordID("Ramesh Kumar_9000000009", "c1"): true}}

	summary := New(orch, sender, nil).Run(context.Background(), invoices, nil)

	if len(summary.Records) != 2 || summary.Records[0].ID == summary.Records[1].ID {
		t.Fatalf("records = %+v", summary.Records)
	}
	if summary.Sent != 1 || summary.Failed != 1 || len(summary.Reminders) != 2 {
		t.Fatalf("sent=%d failed=%d reminders=%d", summary.Sent, summary.Failed, len(summary.Reminders))
	}
	if summary.Statuses[0].Status != models.StateCompleted || summary.Statuses[1].Status != models.StateFailed {
		t.Errorf("statuses = %+v", summary.Statuses)
	}
}

func TestRunReportsWholeBatchFailure(t *testing.T) {
	orch := paylink.NewOrchestrator(stubGateway{}, nil, settings())
	sender := &stubSender{err: errors.New("messaging API down")}

	summary := New(orch, sender, nil).Run(context.Background(), []models.Invoice{inv("1", "c1", "A", "9000000001", "10")}, nil)

	if summary.DispatchError != "messaging API down" || summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.Statuses[0].Status != models.StateFailed {
		t.Errorf("status = %s", summary.Statuses[0].Status)
	}
}
