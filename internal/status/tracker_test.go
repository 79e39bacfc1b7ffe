package status

import (
	"errors"
	"testing"

	"invoicedesk/pkg/models"
)

func TestTrackerLifecycle(t *testing.T) {
	tr := NewTracker()
	tr.Add("inv-2", "INV-2")
	tr.Add("inv-1", "INV-1")
	tr.Add("inv-2", "duplicate")

	if err := tr.Transition("inv-1", models.StateProcessing, ""); err != nil {
		t.Fatal(err)
	}
	if err := tr.Transition("inv-1", models.StateSent, ""); err != nil {
		t.Fatal(err)
	}
	if err := tr.Transition("inv-1", models.StateFailed, "late"); !errors.Is(err, ErrTerminal) {
		t.Errorf("transition after sent: err = %v, want ErrTerminal", err)
	}
	if err := tr.Fail("inv-2", errors.New("gateway down")); err != nil {
		t.Fatal(err)
	}
	if err := tr.Transition("missing", models.StateSent, ""); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("unknown id: err = %v, want ErrUnknownItem", err)
	}

	snap := tr.Snapshot()
	if len(snap) != 2 || snap[0].ID != "inv-2" || snap[1].ID != "inv-1" {
		t.Fatalf("snapshot order = %+v", snap)
	}
	if snap[0].Label != "INV-2" || snap[0].Error != "gateway down" {
		t.Errorf("inv-2 = %+v", snap[0])
	}

	counts := tr.Counts()
	if counts[models.StateSent] != 1 || counts[models.StateFailed] != 1 {
		t.Errorf("counts = %v", counts)
	}
}

func TestNilTrackerIsInert(t *testing.T) {
	var tr *Tracker
	tr.Add("x", "x")
	if err := tr.Transition("x", models.StateSent, ""); err != nil {
		t.Errorf("nil Transition = %v", err)
	}
	if _, ok := tr.Get("x"); ok {
		t.Error("nil Get found an item")
	}
	if len(tr.Snapshot()) != 0 {
		t.Error("nil Snapshot not empty")
	}
}
