package reminder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"invoicedesk/internal/logger"
	"invoicedesk/internal/normalize"
	"invoicedesk/pkg/models"
)

// ErrNotConfigured is returned when the messaging API is used without a key.
var ErrNotConfigured = errors.New("WhatsApp messaging API is not configured")

// Messenger sends template reminders through a hosted WhatsApp API.
type Messenger interface {
	// Configured reports whether an API key is present.
	Configured() bool
	// SendBulk sends every record. Individual recipient failures are reported
	// in the result, not as an error.
	SendBulk(ctx context.Context, records []models.ReminderRecord) (*BulkResult, error)
}

// RecipientError is one failed recipient. Reference is the record id.
type RecipientError struct {
	Reference string `json:"reference"`
	Phone     string `json:"phone"`
	Error     string `json:"error"`
}

// BulkResult is the gateway's summary of a bulk send.
type BulkResult struct {
	Success int              `json:"success"`
	Failed  int              `json:"failed"`
	Errors  []RecipientError `json:"errors"`
}

// TemplateMessage is one message of a bulk request.
type TemplateMessage struct {
	Reference  string            `json:"reference" validate:"required"`
	Phone      string            `json:"phone" validate:"required,numeric,len=12"`
	TemplateID string            `json:"templateId" validate:"required"`
	Parameters map[string]string `json:"parameters"`
}

type bulkRequest struct {
	Messages []TemplateMessage `json:"messages" validate:"dive"`
}

// HTTPMessenger is the HTTP client for the messaging gateway.
type HTTPMessenger struct {
	baseURL    string
	apiKey     string
	templateID string
	httpClient *http.Client
	validate   *validator.Validate
	log        zerolog.Logger
}

// NewHTTPMessenger creates a messaging client. An empty apiKey yields a
// client that reports itself unconfigured.
func NewHTTPMessenger(baseURL, apiKey, templateID string, httpClient *http.Client) *HTTPMessenger {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPMessenger{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		templateID: templateID,
		httpClient: httpClient,
		validate:   validator.New(),
		log:        logger.WithComponent("whatsapp-api"),
	}
}

// Configured implements Messenger.
func (m *HTTPMessenger) Configured() bool {
	return m.apiKey != "" && m.baseURL != ""
}

// BuildMessage maps a record onto the reminder template parameters.
func (m *HTTPMessenger) BuildMessage(record models.ReminderRecord) TemplateMessage {
	return TemplateMessage{
		Reference:  record.ID,
		Phone:      normalize.E164Digits(record.Phone),
		TemplateID: m.templateID,
		Parameters: map[string]string{
			"parent_name":  record.ParentName,
			"child_name":   record.ChildName,
			"amount":       record.Amount.StringFixed(2),
			"payment_link": record.PaymentLink,
			"due_date":     record.DueDate,
		},
	}
}

// SendBulk implements Messenger. Records that fail local validation are
// reported as recipient errors and never sent.
func (m *HTTPMessenger) SendBulk(ctx context.Context, records []models.ReminderRecord) (*BulkResult, error) {
	const op = "SendBulk"

	if !m.Configured() {
		return nil, ErrNotConfigured
	}

	result := &BulkResult{}
	var req bulkRequest
	for _, record := range records {
		msg := m.BuildMessage(record)
		if err := m.validate.Struct(msg); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, RecipientError{
				Reference: record.ID,
				Phone:     record.Phone,
				Error:     fmt.Sprintf("invalid recipient: %v", err),
			})
			continue
		}
		req.Messages = append(req.Messages, msg)
	}
	if len(req.Messages) == 0 {
		return result, nil
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to marshal request: %w", op, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/messages/bulk", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create request: %w", op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)

	m.log.Info().Int("messages", len(req.Messages)).Msg("Sending bulk WhatsApp reminders")

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s: messaging API returned %s: %s", op, resp.Status, strings.TrimSpace(string(snippet)))
	}

	var sent BulkResult
	if err := json.NewDecoder(resp.Body).Decode(&sent); err != nil {
		return nil, fmt.Errorf("%s: failed to decode response: %w", op, err)
	}

	result.Success += sent.Success
	result.Failed += sent.Failed
	result.Errors = append(result.Errors, sent.Errors...)

	m.log.Info().
		Int("success", result.Success).
		Int("failed", result.Failed).
		Msg("Bulk WhatsApp send finished")

	return result, nil
}
