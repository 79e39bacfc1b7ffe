// Package backend talks to the hosted GraphQL backend that owns invoices and
// child records. Each centre has its own bearer token.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"invoicedesk/internal/logger"
	"invoicedesk/pkg/models"
)

const invoicesQuery = `query Invoices($startDate: String!, $endDate: String!) {
  invoices(where: { invoiceDate: { gte: $startDate, lt: $endDate } }) {
    id
    invoiceNo
    total
    invoiceStatus
    invoiceDate
    createdAt
    child {
      id
      fullNameWithCaseId
      fatherName
      phone
      email
      isActive
    }
  }
}`

// InvoiceSource fetches the invoices of one centre for a date range.
type InvoiceSource interface {
	FetchInvoices(ctx context.Context, centre models.Centre, r Range) ([]models.Invoice, error)
}

// Client is the HTTP implementation of InvoiceSource.
type Client struct {
	endpoint   string
	tokens     map[models.Centre]string
	httpClient *http.Client
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLResponse struct {
	Data struct {
		Invoices []models.Invoice `json:"invoices"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// NewClient creates a backend client. A nil httpClient gets a 30 second
// timeout client.
func NewClient(endpoint string, tokens map[models.Centre]string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		endpoint:   endpoint,
		tokens:     tokens,
		httpClient: httpClient,
	}
}

// FetchInvoices returns the centre's invoices dated within r. Every returned
// invoice is stamped with the centre.
func (c *Client) FetchInvoices(ctx context.Context, centre models.Centre, r Range) ([]models.Invoice, error) {
	const op = "FetchInvoices"

	token := c.tokens[centre]
	if token == "" {
		return nil, &FetchError{Op: op, Centre: string(centre), Err: ErrUnknownCentre}
	}

	body, err := json.Marshal(graphQLRequest{
		Query: invoicesQuery,
		Variables: map[string]any{
			"startDate": r.StartISO(),
			"endDate":   r.EndISO(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to marshal query: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	log := logger.WithCentre("backend", string(centre))
	log.Debug().
		Str("start", r.StartISO()).
		Str("end", r.EndISO()).
		Msg("Querying invoices")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &FetchError{Op: op, Centre: string(centre), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &FetchError{Op: op, Centre: string(centre), StatusCode: resp.StatusCode, Err: ErrUnauthorized}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &FetchError{
			Op:         op,
			Centre:     string(centre),
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected response: %s", strings.TrimSpace(string(snippet))),
		}
	}

	var decoded graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &FetchError{Op: op, Centre: string(centre), Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if len(decoded.Errors) > 0 {
		messages := make([]string, 0, len(decoded.Errors))
		for _, e := range decoded.Errors {
			messages = append(messages, e.Message)
		}
		return nil, &FetchError{
			Op:     op,
			Centre: string(centre),
			Err:    fmt.Errorf("%w: %s", ErrQueryFailed, strings.Join(messages, "; ")),
		}
	}

	invoices := decoded.Data.Invoices
	for i := range invoices {
		invoices[i].Centre = centre
	}

	log.Info().
		Int("invoices", len(invoices)).
		Msg("Invoices fetched")

	return invoices, nil
}
