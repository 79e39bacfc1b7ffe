// Package pipeline runs the "send payment reminders" flow end to end:
// payment links for the selected invoices, guardian grouping, one reminder
// per child, and delivery.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"invoicedesk/internal/guardian"
	"invoicedesk/internal/logger"
	"invoicedesk/internal/paylink"
	"invoicedesk/internal/reminder"
	"invoicedesk/internal/status"
	"invoicedesk/pkg/models"
)

// LinkGenerator is satisfied by *paylink.Orchestrator.
type LinkGenerator interface {
	Generate(ctx context.Context, invoices []models.Invoice, overrides map[string]paylink.CustomerOverride, tracker *status.Tracker) *paylink.Result
}

// ReminderSender is satisfied by *reminder.Dispatcher.
type ReminderSender interface {
	Dispatch(ctx context.Context, records []models.ReminderRecord, tracker *status.Tracker) (*reminder.DispatchResult, error)
}

// Summary is what the operator sees after a run. Statuses are per invoice;
// Reminders are per child record.
type Summary struct {
	BatchID        string                    `json:"batchId"`
	Links          map[string]string         `json:"links"`
	LinkFailures   []paylink.Failure         `json:"linkFailures"`
	Records        []models.ReminderRecord   `json:"records"`
	Mode           reminder.Mode             `json:"mode"`
	Sent           int                       `json:"sent"`
	Failed         int                       `json:"failed"`
	DispatchError  string                    `json:"dispatchError,omitempty"`
	Statuses       []models.ProcessingStatus `json:"statuses"`
	Reminders      []models.ProcessingStatus `json:"reminders"`
	ProcessingTime time.Duration             `json:"processingTime"`
}

// Pipeline wires the stages together.
type Pipeline struct {
	links   LinkGenerator
	sender  ReminderSender
	grouper *guardian.Grouper
	now     func() time.Time
}

// New creates a pipeline. A nil grouper uses the name+phone heuristic.
func New(links LinkGenerator, sender ReminderSender, grouper *guardian.Grouper) *Pipeline {
	if grouper == nil {
		grouper = guardian.NewGrouper(nil)
	}
	return &Pipeline{
		links:   links,
		sender:  sender,
		grouper: grouper,
		now:     time.Now,
	}
}

// Run processes the selected invoices. Item failures are recorded in the
// summary; a run never aborts part way.
func (p *Pipeline) Run(ctx context.Context, invoices []models.Invoice, overrides map[string]paylink.CustomerOverride) *Summary {
	startTime := p.now()
	summary := &Summary{BatchID: uuid.NewString()}
	log := logger.WithBatch("pipeline", summary.BatchID)

	log.Info().Int("invoices", len(invoices)).Msg("Starting reminder pipeline")

	tracker := status.NewTracker()
	linkResult := p.links.Generate(ctx, invoices, overrides, tracker)
	summary.Links = linkResult.Links
	summary.LinkFailures = linkResult.Failures

	parents := p.grouper.GroupByParent(invoices)
	byParent := p.grouper.InvoicesByParent(invoices)

	batches := make([]reminder.ParentBatch, 0, len(parents))
	for _, parent := range parents {
		batches = append(batches, reminder.ParentBatch{
			Parent:   parent,
			Invoices: byParent[parent.ID],
			Links:    linkResult.Links,
		})
	}
	summary.Records = reminder.PrepareReminderData(batches, p.now())

	for _, record := range summary.Records {
		for _, id := range record.InvoiceIDs {
			_ = tracker.Transition(id, models.StateSendingWhatsApp, "")
		}
	}

	reminders := status.NewTracker()
	dispatch, err := p.sender.Dispatch(ctx, summary.Records, reminders)
	if err != nil {
		summary.DispatchError = err.Error()
		log.Warn().Err(err).Msg("Reminder delivery failed for the whole batch")
	}
	if dispatch != nil {
		summary.Mode = dispatch.Mode
		summary.Sent = dispatch.Sent
		summary.Failed = dispatch.Failed
	}

	for _, record := range summary.Records {
		st, _ := reminders.Get(record.ID)
		for _, id := range record.InvoiceIDs {
			switch st.Status {
			case models.StateSent:
				_ = tracker.Transition(id, models.StateCompleted, "")
			case models.StateFailed:
				_ = tracker.Transition(id, models.StateFailed, st.Error)
			}
		}
	}

	summary.Statuses = tracker.Snapshot()
	summary.Reminders = reminders.Snapshot()
	summary.ProcessingTime = p.now().Sub(startTime)

	log.Info().
		Int("links", len(summary.Links)).
		Int("link_failures", len(summary.LinkFailures)).
		Int("reminders", len(summary.Records)).
		Int("sent", summary.Sent).
		Int("failed", summary.Failed).
		Dur("processing_time", summary.ProcessingTime).
		Msg("Reminder pipeline completed")

	return summary
}
