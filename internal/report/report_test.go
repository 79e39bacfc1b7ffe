package report

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"invoicedesk/pkg/models"
)

type fakeGenerator struct {
	prompts []string
	fail    bool
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.fail {
		return "", errors.New("rate limited")
	}
	return "Revenue <grew> steadily.", nil
}

func sampleInvoices() []models.Invoice {
	child := &models.ChildRef{ID: "c1", FullNameWithCaseID: "Aarav (C-1)"}
	return []models.Invoice{
		{ID: "1", Total: decimal.NewFromInt(500), InvoiceStatus: models.StatusPaid, InvoiceDate: "2024-01-05", Centre: models.CentreGKP, Child: child},
		{ID: "2", Total: decimal.NewFromInt(700), InvoiceStatus: models.StatusPending, InvoiceDate: "2024-02-10", Centre: models.CentreLKO, Child: child},
	}
}

func TestBuildAndRender(t *testing.T) {
	gen := &fakeGenerator{}
	b := NewBuilder(gen)
	b.now = func() time.Time { return time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC) }

	r := b.Build(context.Background(), sampleInvoices(), 2024)

	if len(r.Monthly) != 12 || len(r.Quarterly) != 4 {
		t.Fatalf("monthly=%d quarterly=%d", len(r.Monthly), len(r.Quarterly))
	}
	if len(r.LatePayers) != 1 || r.LatePayers[0].OverdueDays != 20 {
		t.Fatalf("late payers = %+v", r.LatePayers)
	}
	if len(gen.prompts) != 3 || !strings.Contains(gen.prompts[0], "DATA:") {
		t.Fatalf("prompts = %d", len(gen.prompts))
	}
	for _, s := range r.Sections {
		if !s.Generated {
			t.Errorf("section %q not generated", s.Title)
		}
	}

	var buf strings.Builder
	if err := Render(&buf, r); err != nil {
		t.Fatal(err)
	}
	html := buf.String()
	for _, want := range []string{"Progress report 2024", "<td>Jan</td><td>500.00</td>", "Aarav (C-1)", "Revenue &lt;grew&gt; steadily."} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered report missing %q", want)
		}
	}
}

func TestBuildDegradesOnGeneratorFailure(t *testing.T) {
	r := NewBuilder(&fakeGenerator{fail: true}).Build(context.Background(), sampleInvoices(), 2024)
	for _, s := range r.Sections {
		if s.Generated || s.Insight == "" {
			t.Errorf("section %q = %+v, want placeholder", s.Title, s)
		}
	}
}

func TestBuildWithoutGenerator(t *testing.T) {
	r := NewBuilder(nil).Build(context.Background(), nil, 2024)
	if len(r.Sections) != 3 || r.Sections[0].Generated {
		t.Fatalf("sections = %+v", r.Sections)
	}
	if len(r.LatePayers) != 0 {
		t.Errorf("late payers = %v", r.LatePayers)
	}
}
