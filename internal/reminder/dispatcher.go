package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"invoicedesk/internal/logger"
	"invoicedesk/internal/normalize"
	"invoicedesk/internal/queue"
	"invoicedesk/internal/status"
	"invoicedesk/pkg/models"
)

// Mode is the delivery path a dispatch used.
type Mode string

const (
	// ModeAPI sends template messages through the messaging API.
	ModeAPI Mode = "api"
	// ModeWeb opens one WhatsApp Web deep link per record.
	ModeWeb Mode = "web"
)

// DispatchResult summarises one dispatch.
type DispatchResult struct {
	BatchID  string                    `json:"batchId"`
	Mode     Mode                      `json:"mode"`
	Sent     int                       `json:"sent"`
	Failed   int                       `json:"failed"`
	Statuses []models.ProcessingStatus `json:"statuses"`
}

// Dispatcher delivers reminder records.
type Dispatcher struct {
	messenger Messenger
	opener    Opener
	stagger   time.Duration
	log       zerolog.Logger
}

// NewDispatcher wires the delivery paths. messenger may be nil; the web path
// is used whenever it is missing or unconfigured.
func NewDispatcher(messenger Messenger, opener Opener, stagger time.Duration) *Dispatcher {
	if opener == nil {
		opener = BrowserOpener{}
	}
	return &Dispatcher{
		messenger: messenger,
		opener:    opener,
		stagger:   stagger,
		log:       logger.WithComponent("reminder"),
	}
}

// Mode reports which path Dispatch will take.
func (d *Dispatcher) Mode() Mode {
	if d.messenger != nil && d.messenger.Configured() {
		return ModeAPI
	}
	return ModeWeb
}

// Dispatch sends every record and reports progress to tracker under each
// record id. tracker may be nil. The returned error is set only when the
// API path failed as a whole; per-recipient failures are in the result.
func (d *Dispatcher) Dispatch(ctx context.Context, records []models.ReminderRecord, tracker *status.Tracker) (*DispatchResult, error) {
	if tracker == nil {
		tracker = status.NewTracker()
	}
	result := &DispatchResult{BatchID: uuid.NewString(), Mode: d.Mode()}
	log := d.log.With().Str("batch_id", result.BatchID).Str("mode", string(result.Mode)).Logger()

	for _, r := range records {
		tracker.Add(r.ID, r.ChildName)
	}

	log.Info().Int("records", len(records)).Msg("Dispatching reminders")

	var err error
	if result.Mode == ModeAPI {
		err = d.sendAPI(ctx, records, tracker)
	} else {
		d.sendWeb(ctx, records, tracker)
	}

	for _, r := range records {
		st, _ := tracker.Get(r.ID)
		switch st.Status {
		case models.StateSent:
			result.Sent++
		case models.StateFailed:
			result.Failed++
		}
		result.Statuses = append(result.Statuses, st)
	}

	log.Info().
		Int("sent", result.Sent).
		Int("failed", result.Failed).
		Msg("Reminder dispatch finished")

	return result, err
}

func (d *Dispatcher) sendAPI(ctx context.Context, records []models.ReminderRecord, tracker *status.Tracker) error {
	const op = "sendAPI"

	for _, r := range records {
		_ = tracker.Transition(r.ID, models.StateProcessing, "")
	}

	bulk, err := d.messenger.SendBulk(ctx, records)
	if err != nil {
		for _, r := range records {
			_ = tracker.Transition(r.ID, models.StateFailed, err.Error())
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	byRef := make(map[string]string)
	byPhone := make(map[string]string)
	for _, e := range bulk.Errors {
		if e.Reference != "" {
			byRef[e.Reference] = e.Error
			continue
		}
		byPhone[normalize.Phone(e.Phone)] = e.Error
	}

	for _, r := range records {
		msg, failed := byRef[r.ID]
		if !failed {
			msg, failed = byPhone[normalize.Phone(r.Phone)]
		}
		if failed {
			_ = tracker.Transition(r.ID, models.StateFailed, msg)
			continue
		}
		_ = tracker.Transition(r.ID, models.StateSent, "")
	}
	return nil
}

func (d *Dispatcher) sendWeb(ctx context.Context, records []models.ReminderRecord, tracker *status.Tracker) {
	tasks := make([]queue.Task, len(records))
	for i := range records {
		r := records[i]
		tasks[i] = func(ctx context.Context) error {
			_ = tracker.Transition(r.ID, models.StateProcessing, "")
			if err := d.opener.Open(WhatsAppURL(r)); err != nil {
				_ = tracker.Fail(r.ID, err)
				return err
			}
			_ = tracker.Transition(r.ID, models.StateSent, "")
			return nil
		}
	}

	q := queue.New("whatsapp-web", queue.WithWorkers(1), queue.WithSpacing(d.stagger))
	errs := q.Run(ctx, tasks)

	for i, err := range errs {
		if err != nil {
			// no-op when the task already recorded its own failure
			_ = tracker.Fail(records[i].ID, err)
		}
	}
}
