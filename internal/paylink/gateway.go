package paylink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"invoicedesk/internal/logger"
	"invoicedesk/pkg/models"
)

// Gateway creates and looks up hosted payment links.
type Gateway interface {
	CreatePaymentLink(ctx context.Context, req CreateRequest) (*models.PaymentLink, error)
	FindByReference(ctx context.Context, invoiceNo string) (*models.PaymentLink, error)
}

// Customer is the payer block of a link request.
type Customer struct {
	Name    string `json:"name" validate:"required"`
	Contact string `json:"contact" validate:"required,numeric,min=10,max=12"`
	Email   string `json:"email" validate:"required,email"`
}

// Notify selects the gateway's own notifications.
type Notify struct {
	SMS   bool `json:"sms"`
	Email bool `json:"email"`
}

// CreateRequest is the gateway payload for one payment link. Amount is in
// minor units.
type CreateRequest struct {
	Amount         int64             `json:"amount" validate:"gt=0"`
	Currency       string            `json:"currency" validate:"required,len=3"`
	Description    string            `json:"description,omitempty"`
	Customer       Customer          `json:"customer"`
	ReferenceID    string            `json:"reference_id" validate:"required,max=40"`
	ExpireBy       int64             `json:"expire_by" validate:"gt=0"`
	Notify         Notify            `json:"notify"`
	ReminderEnable bool              `json:"reminder_enable"`
	Notes          map[string]string `json:"notes,omitempty"`
}

// HTTPGateway is a basic-auth JSON client for a Razorpay-style payment link API.
type HTTPGateway struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
	validate   *validator.Validate
	log        zerolog.Logger
}

type gatewayErrorBody struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// NewHTTPGateway creates a gateway client. It fails fast when credentials
// are missing so no request is attempted.
func NewHTTPGateway(baseURL, keyID, keySecret string, httpClient *http.Client) (*HTTPGateway, error) {
	if keyID == "" || keySecret == "" {
		return nil, ErrMissingCredentials
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPGateway{
		baseURL:    baseURL,
		keyID:      keyID,
		keySecret:  keySecret,
		httpClient: httpClient,
		validate:   validator.New(),
		log:        logger.WithComponent("paylink-gateway"),
	}, nil
}

// CreatePaymentLink validates req and creates the link.
func (g *HTTPGateway) CreatePaymentLink(ctx context.Context, req CreateRequest) (*models.PaymentLink, error) {
	const op = "CreatePaymentLink"

	if err := g.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("paylink: %w: %v", ErrInvalidRequest, err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to marshal request: %w", op, err)
	}

	var link models.PaymentLink
	if err := g.do(ctx, op, http.MethodPost, "/payment_links", bytes.NewReader(body), &link); err != nil {
		return nil, err
	}
	if link.ShortURL == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyLink)
	}

	g.log.Debug().
		Str("link_id", link.ID).
		Str("reference_id", link.ReferenceID).
		Int64("amount", link.Amount).
		Msg("Payment link created")

	return &link, nil
}

// FindByReference returns a live link created for an invoice number, or nil
// when the gateway has none. A link matches when its reference id is the
// invoice number, optionally followed by "_<run>", or when its notes carry
// the invoice number. Cancelled and expired links never match.
func (g *HTTPGateway) FindByReference(ctx context.Context, invoiceNo string) (*models.PaymentLink, error) {
	const op = "FindByReference"

	var page struct {
		PaymentLinks []models.PaymentLink `json:"payment_links"`
	}
	path := "/payment_links?reference_id=" + url.QueryEscape(invoiceNo)
	if err := g.do(ctx, op, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	for i := range page.PaymentLinks {
		link := &page.PaymentLinks[i]
		if link.Status == "cancelled" || link.Status == "expired" {
			continue
		}
		if link.ReferenceID == invoiceNo ||
			strings.HasPrefix(link.ReferenceID, invoiceNo+"_") ||
			link.Notes["invoice_no"] == invoiceNo {
			return link, nil
		}
	}
	return nil, nil
}

func (g *HTTPGateway) do(ctx context.Context, op, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.SetBasicAuth(g.keyID, g.keySecret)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		gwErr := &GatewayError{Op: op, StatusCode: resp.StatusCode}
		var errBody gatewayErrorBody
		if raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096)); readErr == nil && json.Unmarshal(raw, &errBody) == nil {
			gwErr.Code = errBody.Error.Code
			gwErr.Description = errBody.Error.Description
		}
		return gwErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}
	return nil
}
