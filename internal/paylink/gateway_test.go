package paylink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"invoicedesk/pkg/models"
)

func validRequest() CreateRequest {
	return CreateRequest{
		Amount:      150000,
		Currency:    "INR",
		Customer:    Customer{Name: "Amit", Contact: "9800000000", Email: "amit@example.com"},
		ReferenceID: "INV-1_1714557600000",
		ExpireBy:    time.Now().Add(time.Hour).Unix(),
		Notify:      Notify{SMS: true, Email: true},
		Notes:       map[string]string{"invoice_no": "INV-1"},
	}
}

func TestHTTPGatewayCreatePaymentLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Method != http.MethodPost || r.URL.Path != "/payment_links" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		var req CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(models.PaymentLink{
			ID:          "plink_1",
			ShortURL:    "https://rzp.io/i/abc",
			Amount:      req.Amount,
			ReferenceID: req.ReferenceID,
			Customer:    models.PaymentLinkCustomer{Name: req.Customer.Name},
		})
	}))
	defer srv.Close()

	gw, err := NewHTTPGateway(srv.URL, "key", "secret", srv.Client())
	if err != nil {
		t.Fatal(err)
	}

	link, err := gw.CreatePaymentLink(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("CreatePaymentLink() error = %v", err)
	}
	if link.ShortURL != "https://rzp.io/i/abc" || link.Amount != 150000 {
		t.Errorf("link = %+v", link)
	}

	bad, _ := NewHTTPGateway(srv.URL, "key", "wrong", srv.Client())
	_, err = bad.CreatePaymentLink(context.Background(), validRequest())
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) || gwErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("err = %v, want 401 GatewayError", err)
	}
	if msg := DescribeError(err); !strings.HasPrefix(msg, "Authentication failed") {
		t.Errorf("DescribeError = %q", msg)
	}
}

func TestHTTPGatewayValidatesLocally(t *testing.T) {
	gw, _ := NewHTTPGateway("http://127.0.0.1:0", "key", "secret", nil)

	req := validRequest()
	req.Customer.Email = "not-an-email"
	if _, err := gw.CreatePaymentLink(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("err = %v, want ErrInvalidRequest", err)
	}

	req = validRequest()
	req.Amount = 0
	if _, err := gw.CreatePaymentLink(context.Background(), req); !errors.Is(err, ErrInvalidRequest) {
		t.Errorf("zero amount err = %v, want ErrInvalidRequest", err)
	}
}

func TestNewHTTPGatewayRequiresCredentials(t *testing.T) {
	if _, err := NewHTTPGateway("https://api.example", "", "secret", nil); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("err = %v, want ErrMissingCredentials", err)
	}
}

func TestHTTPGatewayFindByReference(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ref := r.URL.Query().Get("reference_id")
		w.Write([]byte(`{"payment_links":[{"id":"plink_9","short_url":"https://rzp.io/i/x","reference_id":"` + ref + `"}]}`))
	}))
	defer srv.Close()

	gw, _ := NewHTTPGateway(srv.URL, "key", "secret", srv.Client())
	link, err := gw.FindByReference(context.Background(), "INV-9_1")
	if err != nil || link == nil || link.ID != "plink_9" {
		t.Fatalf("FindByReference = %+v, %v", link, err)
	}
}

func TestHTTPGatewayFindByReferenceMatchesInvoice(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("reference_id")
		w.Write([]byte(`{"payment_links":[
			{"id":"plink_1","short_url":"https://rzp.io/i/a","reference_id":"INV-10_1","status":"created"},
			{"id":"plink_2","short_url":"https://rzp.io/i/b","reference_id":"INV-1_1","status":"cancelled"},
			{"id":"plink_3","short_url":"https://rzp.io/i/c","reference_id":"0_1","notes":{"invoice_no":"INV-1"},"status":"created"}
		]}`))
	}))
	defer srv.Close()

	gw, _ := NewHTTPGateway(srv.URL, "key", "secret", srv.Client())
	link, err := gw.FindByReference(context.Background(), "INV-1")
	if err != nil || link == nil || link.ID != "plink_3" {
		t.Fatalf("FindByReference = %+v, %v, want plink_3", link, err)
	}
	if query != "INV-1" {
		t.Errorf("reference_id query = %q", query)
	}

	if link, err := gw.FindByReference(context.Background(), "INV-2"); err != nil || link != nil {
		t.Errorf("FindByReference(INV-2) = %+v, %v, want nil", link, err)
	}
}

func TestDescribeError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"forbidden", &GatewayError{StatusCode: 403}, "Access denied"},
		{"not found", &GatewayError{StatusCode: 404}, "Payment gateway endpoint not found"},
		{"server", &GatewayError{StatusCode: 502}, "Payment gateway server error"},
		{"bad request", &GatewayError{StatusCode: 400, Description: "amount too low"}, "Payment gateway rejected the request: amount too low"},
		{"timeout", context.DeadlineExceeded, "Payment gateway request timed out"},
		{"invalid request", fmt.Errorf("linkFor: INV-1: %w", fmt.Errorf("paylink: %w: %v", ErrInvalidRequest, "amount too small")), "invalid payment link request: amount too small"},
		{"network", errors.New("connection refused"), "Network error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DescribeError(tt.err); !strings.HasPrefix(got, tt.want) {
				t.Errorf("DescribeError = %q, want prefix %q", got, tt.want)
			}
		})
	}
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	store, err := NewRedisStore(ctx, mr.Addr())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if link, err := store.Get(ctx, "INV-1"); err != nil || link != nil {
		t.Fatalf("Get on empty store = %+v, %v", link, err)
	}

	expireBy := time.Now().Add(time.Hour).Unix()
	if err := store.Put(ctx, "INV-1", &models.PaymentLink{ID: "plink_1", ShortURL: "https://rzp.io/i/1", ExpireBy: expireBy}); err != nil {
		t.Fatal(err)
	}
	link, err := store.Get(ctx, "INV-1")
	if err != nil || link == nil || link.ShortURL != "https://rzp.io/i/1" {
		t.Fatalf("Get = %+v, %v", link, err)
	}
	if ttl := mr.TTL("paylink:INV-1"); ttl <= 0 || ttl > time.Hour {
		t.Errorf("TTL = %v, want within an hour", ttl)
	}

	mr.FastForward(2 * time.Hour)
	if link, _ := store.Get(ctx, "INV-1"); link != nil {
		t.Error("link still present after expiry")
	}
}
