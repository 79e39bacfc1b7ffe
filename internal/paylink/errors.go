package paylink

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Common payment link errors
var (
	// ErrMissingCredentials is returned when the gateway key id or secret is empty.
	ErrMissingCredentials = errors.New("missing payment gateway credentials")

	// ErrInvalidRequest is returned when a link request fails local validation.
	ErrInvalidRequest = errors.New("invalid payment link request")

	// ErrEmptyLink is returned when the gateway answers without a short URL.
	ErrEmptyLink = errors.New("payment gateway returned no short URL")
)

// GatewayError carries a non-2xx answer from the payment gateway.
type GatewayError struct {
	// Op is the operation that failed (e.g., "CreatePaymentLink").
	Op string

	// StatusCode is the HTTP status returned by the gateway.
	StatusCode int

	// Code and Description come from the gateway's error body, when present.
	Code        string
	Description string
}

// Error implements the error interface.
func (e *GatewayError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("paylink: %s failed (status %d): %s", e.Op, e.StatusCode, e.Description)
	}
	return fmt.Sprintf("paylink: %s failed (status %d)", e.Op, e.StatusCode)
}

// DescribeError turns a link generation failure into a message an operator
// can act on.
func DescribeError(err error) string {
	if err == nil {
		return ""
	}

	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		switch {
		case gwErr.StatusCode == http.StatusUnauthorized:
			return "Authentication failed: check the payment gateway key id and secret"
		case gwErr.StatusCode == http.StatusForbidden:
			return "Access denied: the payment gateway account cannot create payment links"
		case gwErr.StatusCode == http.StatusNotFound:
			return "Payment gateway endpoint not found: check PAYMENT_GATEWAY_URL"
		case gwErr.StatusCode >= http.StatusInternalServerError:
			return "Payment gateway server error: try again later"
		case gwErr.Description != "":
			return "Payment gateway rejected the request: " + gwErr.Description
		}
		return fmt.Sprintf("Payment gateway error (status %d)", gwErr.StatusCode)
	}

	switch {
	case errors.Is(err, ErrMissingCredentials):
		return "Payment gateway is not configured: set PAYMENT_GATEWAY_KEY_ID and PAYMENT_GATEWAY_KEY_SECRET"
	case errors.Is(err, ErrInvalidRequest):
		return innermost(err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return "Payment gateway request timed out"
	case errors.Is(err, context.Canceled):
		return "Payment link generation was cancelled"
	}
	return "Network error: " + err.Error()
}

// innermost drops the operation prefixes callers wrap around a paylink error.
func innermost(msg string) string {
	const marker = "paylink: "
	if i := strings.LastIndex(msg, marker); i >= 0 {
		return msg[i+len(marker):]
	}
	return msg
}
