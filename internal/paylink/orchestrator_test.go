package paylink

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"invoicedesk/internal/status"
	"invoicedesk/pkg/models"
)

type fakeGateway struct {
	mu       sync.Mutex
	requests []CreateRequest
	failFor  map[string]error
	existing map[string]*models.PaymentLink
	findErr  error
}

func (f *fakeGateway) CreatePaymentLink(_ context.Context, req CreateRequest) (*models.PaymentLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if err := f.failFor[req.Notes["invoice_no"]]; err != nil {
		return nil, err
	}
	return &models.PaymentLink{
		ID:          "plink_" + req.Notes["invoice_no"],
		ShortURL:    "https://rzp.io/i/" + req.Notes["invoice_no"],
		Amount:      req.Amount,
		ReferenceID: req.ReferenceID,
		ExpireBy:    req.ExpireBy,
	}, nil
}

func (f *fakeGateway) FindByReference(_ context.Context, invoiceNo string) (*models.PaymentLink, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.existing[invoiceNo], nil
}

func testSettings() Settings {
	return Settings{
		Currency:    "INR",
		Expiry:      30 * 24 * time.Hour,
		FillerPhone: "9999999999",
		FillerEmail: "noreply@example.com",
	}
}

func pendingInvoice(id, total string) models.Invoice {
	return models.Invoice{
		ID:            id,
		InvoiceNo:     "INV-" + id,
		Total:         decimal.RequireFromString(total),
		InvoiceStatus: models.StatusPending,
		Centre:        models.CentreGKP,
		Child: &models.ChildRef{
			ID:                 "child-" + id,
			FullNameWithCaseID: "Child " + id,
			FatherName:         "Father " + id,
			Phone:              "+919800000000",
		},
	}
}

func TestGenerateToleratesSingleFailure(t *testing.T) {
	gw := &fakeGateway{failFor: map[string]error{
		"INV-2": &GatewayError{Op: "CreatePaymentLink", StatusCode: http.StatusUnauthorized},
	}}
	tracker := status.NewTracker()
	invoices := []models.Invoice{pendingInvoice("1", "1500"), pendingInvoice("2", "900"), pendingInvoice("3", "700")}

	result := NewOrchestrator(gw, nil, testSettings()).Generate(context.Background(), invoices, nil, tracker)

	if len(result.Links) != 2 {
		t.Fatalf("Links = %v, want 2 entries", result.Links)
	}
	if _, ok := result.Links["2"]; ok {
		t.Error("failed invoice present in Links")
	}
	if result.Links["1"] == "" || result.Links["3"] == "" {
		t.Errorf("Links = %v, want entries for 1 and 3", result.Links)
	}
	if len(result.Failures) != 1 || result.Failures[0].InvoiceID != "2" {
		t.Fatalf("Failures = %+v, want invoice 2", result.Failures)
	}
	if !strings.HasPrefix(result.Failures[0].Message, "Authentication failed") {
		t.Errorf("failure message = %q", result.Failures[0].Message)
	}
	if len(gw.requests) != 3 {
		t.Errorf("gateway called %d times, want 3", len(gw.requests))
	}

	for id, want := range map[string]models.ProcessingState{
		"1": models.StateLinkGenerated,
		"2": models.StateFailed,
		"3": models.StateLinkGenerated,
	} {
		got, _ := tracker.Get(id)
		if got.Status != want {
			t.Errorf("status[%s] = %s, want %s", id, got.Status, want)
		}
	}
}

func TestGenerateProcessesSequentiallyInOrder(t *testing.T) {
	gw := &fakeGateway{}
	invoices := []models.Invoice{pendingInvoice("a", "1"), pendingInvoice("b", "2"), pendingInvoice("c", "3")}

	NewOrchestrator(gw, nil, testSettings()).Generate(context.Background(), invoices, nil, nil)

	for i, want := range []string{"INV-a", "INV-b", "INV-c"} {
		if gw.requests[i].Notes["invoice_no"] != want {
			t.Errorf("request %d = %s, want %s", i, gw.requests[i].Notes["invoice_no"], want)
		}
	}
}

func TestGenerateReusesStoredLinks(t *testing.T) {
	gw := &fakeGateway{}
	store := NewMemoryStore()
	o := NewOrchestrator(gw, store, testSettings())
	invoices := []models.Invoice{pendingInvoice("1", "100")}

	first := o.Generate(context.Background(), invoices, nil, nil)
	second := o.Generate(context.Background(), invoices, nil, nil)

	if len(gw.requests) != 1 {
		t.Errorf("gateway called %d times, want 1", len(gw.requests))
	}
	if second.Reused != 1 || second.Links["1"] != first.Links["1"] {
		t.Errorf("second run = %+v, want reused link %s", second, first.Links["1"])
	}
}

func TestGenerateReusesGatewayLinkAfterStoreMiss(t *testing.T) {
	live := &models.PaymentLink{
		ID:          "plink_old",
		ShortURL:    "https://rzp.io/i/old",
		Amount:      150050,
		ReferenceID: "INV-1_1700000000000",
		ExpireBy:    time.Now().Add(time.Hour).Unix(),
	}
	gw := &fakeGateway{existing: map[string]*models.PaymentLink{"INV-1": live}}
	store := NewMemoryStore()
	invoices := []models.Invoice{pendingInvoice("1", "1500.50"), pendingInvoice("2", "200")}

	result := NewOrchestrator(gw, store, testSettings()).Generate(context.Background(), invoices, nil, nil)

	if len(gw.requests) != 1 || gw.requests[0].Notes["invoice_no"] != "INV-2" {
		t.Fatalf("create requests = %+v, want only INV-2", gw.requests)
	}
	if result.Reused != 1 || result.Links["1"] != live.ShortURL {
		t.Errorf("result = %+v, want reused %s", result, live.ShortURL)
	}
	if stored, _ := store.Get(context.Background(), "INV-1"); stored == nil || stored.ID != "plink_old" {
		t.Errorf("stored = %+v, want gateway link remembered", stored)
	}
	amount, ok := result.AmountFor("1")
	if !ok || amount.StringFixed(2) != "1500.50" {
		t.Errorf("AmountFor = %s, %v, want 1500.50", amount, ok)
	}
}

func TestGenerateIgnoresStaleGatewayLinks(t *testing.T) {
	gw := &fakeGateway{
		existing: map[string]*models.PaymentLink{
			"INV-1": {ShortURL: "https://rzp.io/i/expired", Amount: 10000, ExpireBy: time.Now().Add(-time.Hour).Unix()},
			"INV-2": {ShortURL: "https://rzp.io/i/other", Amount: 999, ExpireBy: time.Now().Add(time.Hour).Unix()},
		},
	}
	invoices := []models.Invoice{pendingInvoice("1", "100"), pendingInvoice("2", "200")}

	result := NewOrchestrator(gw, nil, testSettings()).Generate(context.Background(), invoices, nil, nil)

	if len(gw.requests) != 2 || result.Reused != 0 {
		t.Errorf("requests = %d reused = %d, want 2 new links", len(gw.requests), result.Reused)
	}
}

func TestGenerateCreatesLinkWhenLookupFails(t *testing.T) {
	gw := &fakeGateway{findErr: &GatewayError{Op: "FindByReference", StatusCode: http.StatusBadGateway}}

	result := NewOrchestrator(gw, nil, testSettings()).Generate(context.Background(), []models.Invoice{pendingInvoice("1", "100")}, nil, nil)

	if len(gw.requests) != 1 || len(result.Failures) != 0 || result.Links["1"] == "" {
		t.Errorf("result = %+v, want a fresh link", result)
	}
}

func TestAmountForUnknownInvoice(t *testing.T) {
	r := &Result{Details: map[string]models.PaymentLink{}}
	if amount, ok := r.AmountFor("missing"); ok || !amount.IsZero() {
		t.Errorf("AmountFor = %s, %v", amount, ok)
	}
}

func TestGenerateSkipsExpiredStoredLinks(t *testing.T) {
	gw := &fakeGateway{}
	store := NewMemoryStore()
	_ = store.Put(context.Background(), "INV-1", &models.PaymentLink{ShortURL: "https://old", ExpireBy: 1})

	result := NewOrchestrator(gw, store, testSettings()).Generate(context.Background(), []models.Invoice{pendingInvoice("1", "100")}, nil, nil)

	if result.Reused != 0 || result.Links["1"] == "https://old" {
		t.Errorf("expired link reused: %+v", result)
	}
}

func TestBuildRequest(t *testing.T) {
	o := NewOrchestrator(&fakeGateway{}, nil, testSettings())
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	o.now = func() time.Time { return fixed }

	inv := pendingInvoice("7", "0")
	inv.Child.Phone = ""
	req := o.BuildRequest(inv, CustomerOverride{Email: "parent@example.com"})

	if req.Amount != 100 {
		t.Errorf("Amount = %d, want 100 (floored to one rupee)", req.Amount)
	}
	if req.Customer.Contact != "9999999999" {
		t.Errorf("Contact = %q, want filler", req.Customer.Contact)
	}
	if req.Customer.Email != "parent@example.com" || req.Customer.Name != "Father 7" {
		t.Errorf("Customer = %+v", req.Customer)
	}
	if req.ReferenceID != "INV-7_1714557600000" {
		t.Errorf("ReferenceID = %q", req.ReferenceID)
	}
	if req.ExpireBy != fixed.Add(30*24*time.Hour).Unix() {
		t.Errorf("ExpireBy = %d", req.ExpireBy)
	}
	if !req.Notify.SMS || !req.Notify.Email {
		t.Error("notify flags not set")
	}

	override := o.BuildRequest(pendingInvoice("8", "1234.5"), CustomerOverride{Name: "Guardian", Phone: "919811111111"})
	if override.Customer.Name != "Guardian" || override.Customer.Contact != "9811111111" || override.Amount != 123450 {
		t.Errorf("override request = %+v", override)
	}
}

func TestGenerateCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := NewOrchestrator(&fakeGateway{}, nil, testSettings()).Generate(ctx, []models.Invoice{pendingInvoice("1", "10")}, nil, nil)
	if len(result.Links) != 0 || len(result.Failures) != 1 {
		t.Fatalf("result = %+v, want one failure", result)
	}
	if !errors.Is(result.Failures[0].Err, context.Canceled) {
		t.Errorf("failure err = %v", result.Failures[0].Err)
	}
}
