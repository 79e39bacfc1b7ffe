// Package paylink generates hosted payment links for pending invoices.
//
// Links are requested one invoice at a time through a single-worker queue so
// the gateway's rate limiter is never stressed. A failing invoice is
// recorded and skipped; the rest of the batch always runs.
package paylink

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"invoicedesk/internal/logger"
	"invoicedesk/internal/normalize"
	"invoicedesk/internal/queue"
	"invoicedesk/internal/status"
	"invoicedesk/pkg/models"
)

// Settings controls how link requests are built.
type Settings struct {
	Currency    string
	Expiry      time.Duration
	FillerPhone string
	FillerEmail string
	// RequestsPerSecond caps gateway calls; zero means no cap beyond sequencing.
	RequestsPerSecond float64
}

// CustomerOverride replaces the payer details taken from the invoice.
type CustomerOverride struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Failure describes one invoice whose link could not be generated.
type Failure struct {
	InvoiceID string `json:"invoiceId"`
	InvoiceNo string `json:"invoiceNo"`
	Message   string `json:"message"`
	Err       error  `json:"-"`
}

// Result of one batch. Links maps invoice id to short URL and contains only
// invoices that succeeded.
type Result struct {
	BatchID        string                        `json:"batchId"`
	Links          map[string]string             `json:"links"`
	Details        map[string]models.PaymentLink `json:"-"`
	Failures       []Failure                     `json:"failures"`
	Reused         int                           `json:"reused"`
	ProcessingTime time.Duration                 `json:"processingTime"`
}

// AmountFor returns the amount payable through an invoice's link in rupees,
// as the gateway recorded it.
func (r *Result) AmountFor(invoiceID string) (decimal.Decimal, bool) {
	link, ok := r.Details[invoiceID]
	if !ok {
		return decimal.Zero, false
	}
	return normalize.FromMinorUnits(link.Amount), true
}

// Orchestrator runs link generation batches.
type Orchestrator struct {
	gateway  Gateway
	store    Store
	settings Settings
	now      func() time.Time
	log      zerolog.Logger
}

// NewOrchestrator wires a gateway and an optional store (nil disables reuse).
func NewOrchestrator(gateway Gateway, store Store, settings Settings) *Orchestrator {
	return &Orchestrator{
		gateway:  gateway,
		store:    store,
		settings: settings,
		now:      time.Now,
		log:      logger.WithComponent("paylink"),
	}
}

// Generate requests one link per invoice, sequentially. Progress is reported
// to tracker under each invoice id; tracker may be nil.
func (o *Orchestrator) Generate(ctx context.Context, invoices []models.Invoice, overrides map[string]CustomerOverride, tracker *status.Tracker) *Result {
	startTime := o.now()
	result := &Result{
		BatchID: uuid.NewString(),
		Links:   make(map[string]string),
		Details: make(map[string]models.PaymentLink),
	}
	log := logger.WithBatch("paylink", result.BatchID)

	log.Info().
		Int("invoices", len(invoices)).
		Float64("rps", o.settings.RequestsPerSecond).
		Msg("Starting payment link generation")

	var mu sync.Mutex
	tasks := make([]queue.Task, len(invoices))
	for i := range invoices {
		inv := invoices[i]
		tracker.Add(inv.ID, inv.InvoiceNo)

		tasks[i] = func(ctx context.Context) error {
			_ = tracker.Transition(inv.ID, models.StateGeneratingLink, "")

			link, reused, err := o.linkFor(ctx, inv, overrides[inv.ID])

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failure := Failure{
					InvoiceID: inv.ID,
					InvoiceNo: inv.InvoiceNo,
					Message:   DescribeError(err),
					Err:       err,
				}
				result.Failures = append(result.Failures, failure)
				_ = tracker.Transition(inv.ID, models.StateFailed, failure.Message)
				log.Warn().
					Err(err).
					Str("invoice_no", inv.InvoiceNo).
					Msg("Payment link generation failed, continuing with next invoice")
				return err
			}

			result.Links[inv.ID] = link.ShortURL
			result.Details[inv.ID] = *link
			if reused {
				result.Reused++
			}
			_ = tracker.Transition(inv.ID, models.StateLinkGenerated, "")
			log.Info().
				Str("invoice_no", inv.InvoiceNo).
				Str("short_url", link.ShortURL).
				Bool("reused", reused).
				Msg("Payment link ready")
			return nil
		}
	}

	q := queue.New("paylink", queue.WithWorkers(1), queue.WithRateLimit(o.settings.RequestsPerSecond))
	q.Run(ctx, tasks)

	// Tasks that never ran (cancelled context) are failures too.
	mu.Lock()
	for i := range invoices {
		id := invoices[i].ID
		if _, ok := result.Links[id]; ok || hasFailure(result.Failures, id) {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = fmt.Errorf("link generation did not run")
		}
		failure := Failure{
			InvoiceID: id,
			InvoiceNo: invoices[i].InvoiceNo,
			Message:   DescribeError(err),
			Err:       err,
		}
		result.Failures = append(result.Failures, failure)
		_ = tracker.Transition(id, models.StateFailed, failure.Message)
	}
	mu.Unlock()

	result.ProcessingTime = o.now().Sub(startTime)

	log.Info().
		Int("total_invoices", len(invoices)).
		Int("links", len(result.Links)).
		Int("reused", result.Reused).
		Int("failed", len(result.Failures)).
		Dur("processing_time", result.ProcessingTime).
		Msg("Payment link generation completed")

	return result
}

func (o *Orchestrator) linkFor(ctx context.Context, inv models.Invoice, override CustomerOverride) (*models.PaymentLink, bool, error) {
	const op = "linkFor"

	invoiceNo := inv.InvoiceNo
	if invoiceNo == "" {
		invoiceNo = inv.ID
	}

	if o.store != nil {
		existing, err := o.store.Get(ctx, invoiceNo)
		if err != nil {
			o.log.Warn().Err(err).Str("invoice_no", invoiceNo).Msg("Link store lookup failed, creating a new link")
		} else if existing != nil && !o.expired(existing) {
			return existing, true, nil
		}
	}

	req := o.BuildRequest(inv, override)

	existing, err := o.gateway.FindByReference(ctx, invoiceNo)
	if err != nil {
		o.log.Warn().Err(err).Str("invoice_no", invoiceNo).Msg("Gateway link lookup failed, creating a new link")
	} else if existing != nil && existing.ShortURL != "" && existing.Amount == req.Amount && !o.expired(existing) {
		o.remember(ctx, invoiceNo, existing)
		return existing, true, nil
	}

	link, err := o.gateway.CreatePaymentLink(ctx, req)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %s: %w", op, invoiceNo, err)
	}
	o.remember(ctx, invoiceNo, link)
	return link, false, nil
}

func (o *Orchestrator) remember(ctx context.Context, invoiceNo string, link *models.PaymentLink) {
	if o.store == nil {
		return
	}
	if err := o.store.Put(ctx, invoiceNo, link); err != nil {
		o.log.Warn().Err(err).Str("invoice_no", invoiceNo).Msg("Failed to remember payment link")
	}
}

// BuildRequest derives the gateway payload for one invoice.
func (o *Orchestrator) BuildRequest(inv models.Invoice, override CustomerOverride) CreateRequest {
	now := o.now()

	var childName, fatherName, phone, email string
	if inv.Child != nil {
		childName = inv.Child.FullNameWithCaseID
		fatherName = inv.Child.FatherName
		phone = inv.Child.Phone
		email = inv.Child.Email
	}

	name := firstNonEmpty(override.Name, fatherName, childName, "Customer")
	phone = normalize.PhoneOr(firstNonEmpty(override.Phone, phone), o.settings.FillerPhone)
	email = normalize.EmailOr(firstNonEmpty(override.Email, email), o.settings.FillerEmail)

	invoiceNo := firstNonEmpty(inv.InvoiceNo, inv.ID)
	amount := normalize.PaymentAmount(inv.Total)

	description := "Invoice " + invoiceNo
	if childName != "" {
		description = fmt.Sprintf("Fee for %s - Invoice %s", childName, invoiceNo)
	}

	return CreateRequest{
		Amount:         normalize.MinorUnits(amount),
		Currency:       firstNonEmpty(o.settings.Currency, "INR"),
		Description:    description,
		Customer:       Customer{Name: name, Contact: phone, Email: email},
		ReferenceID:    ReferenceID(invoiceNo, now),
		ExpireBy:       now.Add(o.settings.Expiry).Unix(),
		Notify:         Notify{SMS: true, Email: true},
		ReminderEnable: true,
		Notes: map[string]string{
			"invoice_no": invoiceNo,
			"invoice_id": inv.ID,
			"centre":     string(inv.Centre),
			"child_name": childName,
		},
	}
}

// ReferenceID makes a per-run reference so repeated runs for one invoice do
// not collide at the gateway.
func ReferenceID(invoiceNo string, at time.Time) string {
	ref := invoiceNo + "_" + strconv.FormatInt(at.UnixMilli(), 10)
	if len(ref) > 40 {
		ref = ref[len(ref)-40:]
	}
	return ref
}

func (o *Orchestrator) expired(link *models.PaymentLink) bool {
	return link.ExpireBy > 0 && o.now().Unix() >= link.ExpireBy
}

func hasFailure(failures []Failure, invoiceID string) bool {
	for _, f := range failures {
		if f.InvoiceID == invoiceID {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
