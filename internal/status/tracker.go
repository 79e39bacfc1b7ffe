// Package status tracks per-item progress of a batch, keyed by a stable
// record id (an invoice id or a child id) rather than by position.
package status

import (
	"errors"
	"fmt"
	"sync"

	"invoicedesk/pkg/models"
)

var (
	// ErrUnknownItem is returned when transitioning an id that was never added.
	ErrUnknownItem = errors.New("unknown batch item")

	// ErrTerminal is returned when transitioning an item that already finished.
	ErrTerminal = errors.New("batch item already finished")
)

// Tracker is safe for concurrent use. A nil *Tracker ignores all calls, so
// callers that do not need progress can pass nil.
type Tracker struct {
	mu    sync.Mutex
	order []string
	items map[string]*models.ProcessingStatus
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{items: make(map[string]*models.ProcessingStatus)}
}

// Add registers an item in the pending state. Adding an existing id is a no-op.
func (t *Tracker) Add(id, label string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.items[id]; ok {
		return
	}
	t.items[id] = &models.ProcessingStatus{ID: id, Label: label, Status: models.StatePending}
	t.order = append(t.order, id)
}

// Transition moves an item to a new state. Finished items never change.
func (t *Tracker) Transition(id string, to models.ProcessingState, message string) error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	item, ok := t.items[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	if item.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrTerminal, id, item.Status)
	}
	item.Status = to
	item.Error = message
	return nil
}

// Fail marks an item failed with the error's message.
func (t *Tracker) Fail(id string, err error) error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return t.Transition(id, models.StateFailed, msg)
}

// Get returns a copy of one item.
func (t *Tracker) Get(id string) (models.ProcessingStatus, bool) {
	if t == nil {
		return models.ProcessingStatus{}, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	item, ok := t.items[id]
	if !ok {
		return models.ProcessingStatus{}, false
	}
	return *item, true
}

// Snapshot returns copies of all items in the order they were added.
func (t *Tracker) Snapshot() []models.ProcessingStatus {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]models.ProcessingStatus, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.items[id])
	}
	return out
}

// Counts tallies items per state.
func (t *Tracker) Counts() map[models.ProcessingState]int {
	counts := make(map[models.ProcessingState]int)
	for _, item := range t.Snapshot() {
		counts[item.Status]++
	}
	return counts
}
