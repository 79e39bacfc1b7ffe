// Package report builds the static HTML progress report: revenue by month
// and quarter, late payers, and a short generated commentary per section.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"invoicedesk/internal/aggregate"
	"invoicedesk/internal/logger"
	"invoicedesk/pkg/models"
)

// DefaultLatePayerLimit caps the late payer table.
const DefaultLatePayerLimit = 20

// Section is one commentary block.
type Section struct {
	Title   string
	Insight string
	// Generated is false when Insight is a placeholder.
	Generated bool
}

// Report is the data behind one rendered document.
type Report struct {
	ID          string
	Year        int
	GeneratedAt time.Time
	Summary     aggregate.Summary
	Monthly     []aggregate.MonthRevenue
	Quarterly   []aggregate.QuarterRevenue
	LatePayers  []aggregate.LatePayer
	Sections    []Section
}

// Builder assembles reports.
type Builder struct {
	generator      TextGenerator
	latePayerLimit int
	now            func() time.Time
	log            zerolog.Logger
}

// NewBuilder creates a builder. generator may be nil, in which case every
// section carries placeholder text.
func NewBuilder(generator TextGenerator) *Builder {
	return &Builder{
		generator:      generator,
		latePayerLimit: DefaultLatePayerLimit,
		now:            time.Now,
		log:            logger.WithComponent("report"),
	}
}

// Build aggregates invoices for year and asks for commentary. Generator
// failures never fail the report.
func (b *Builder) Build(ctx context.Context, invoices []models.Invoice, year int) *Report {
	startTime := time.Now()
	now := b.now()

	monthly := aggregate.RevenueByMonth(invoices, year)
	latePayers := aggregate.LatePayingCustomers(aggregate.CustomerInsights(invoices), now)
	if len(latePayers) > b.latePayerLimit {
		latePayers = latePayers[:b.latePayerLimit]
	}

	r := &Report{
		ID:          uuid.NewString(),
		Year:        year,
		GeneratedAt: now,
		Summary:     aggregate.Summarize(invoices),
		Monthly:     monthly,
		Quarterly:   aggregate.RevenueByQuarter(monthly),
		LatePayers:  latePayers,
	}

	b.log.Info().
		Str("report_id", r.ID).
		Int("year", year).
		Int("invoices", len(invoices)).
		Int("late_payers", len(latePayers)).
		Msg("Building progress report")

	r.Sections = []Section{
		b.section(ctx, "Monthly revenue", "Summarise the monthly revenue trend for both centres and point out the strongest and weakest months.", monthly),
		b.section(ctx, "Quarterly performance", "Compare the quarters and the two centres. Mention any quarter that stands out.", r.Quarterly),
		b.section(ctx, "Outstanding payments", "Describe the outstanding payments. Mention how long the oldest balances have been open and the total still pending.", latePayers),
	}

	b.log.Info().
		Str("report_id", r.ID).
		Dur("processing_time", time.Since(startTime)).
		Msg("Progress report built")

	return r
}

func (b *Builder) section(ctx context.Context, title, instruction string, data any) Section {
	s := Section{Title: title}
	if b.generator == nil {
		s.Insight = "Automated commentary is not configured for this report."
		return s
	}

	payload, err := json.Marshal(data)
	if err != nil {
		s.Insight = "Commentary unavailable for this section."
		b.log.Warn().Err(err).Str("section", title).Msg("Failed to encode section data")
		return s
	}

	prompt := fmt.Sprintf("%s Amounts are in Indian rupees. GKP is Gorakhpur and LKO is Lucknow.\n\nDATA:\n%s", instruction, payload)
	text, err := b.generator.Generate(ctx, prompt)
	if err != nil || text == "" {
		s.Insight = "Commentary unavailable for this section."
		b.log.Warn().Err(err).Str("section", title).Msg("Insight generation failed, using placeholder")
		return s
	}

	s.Insight = text
	s.Generated = true
	return s
}

var pageTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"money": func(d decimal.Decimal) string { return d.StringFixed(2) },
	"date": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return t.Format("02 Jan 2006")
	},
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Progress report {{.Year}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; color: #222; }
table { border-collapse: collapse; margin-bottom: 1.5rem; }
th, td { border: 1px solid #ccc; padding: 4px 10px; text-align: right; }
th:first-child, td:first-child { text-align: left; }
.insight { background: #f5f7fa; padding: 0.75rem 1rem; }
</style>
</head>
<body>
<h1>Progress report {{.Year}}</h1>
<p>Generated {{date .GeneratedAt}}. {{.Summary.Count}} invoices, {{money .Summary.Total}} invoiced, {{money .Summary.PaidTotal}} paid, {{money .Summary.PendingTotal}} pending.</p>

<h2>Monthly revenue</h2>
<table>
<tr><th>Month</th><th>GKP</th><th>LKO</th><th>Combined</th></tr>
{{range .Monthly}}<tr><td>{{.Label}}</td><td>{{money .GKP}}</td><td>{{money .LKO}}</td><td>{{money .Combined}}</td></tr>
{{end}}</table>

<h2>Quarterly revenue</h2>
<table>
<tr><th>Quarter</th><th>GKP</th><th>LKO</th><th>Combined</th></tr>
{{range .Quarterly}}<tr><td>{{.Label}}</td><td>{{money .GKP}}</td><td>{{money .LKO}}</td><td>{{money .Combined}}</td></tr>
{{end}}</table>

<h2>Late payers</h2>
{{if .LatePayers}}<table>
<tr><th>Child</th><th>Centre</th><th>Pending</th><th>Last invoice</th><th>Days overdue</th></tr>
{{range .LatePayers}}<tr><td>{{.Name}}</td><td>{{.Centre}}</td><td>{{money .TotalPending}}</td><td>{{date .LastInvoiceDate}}</td><td>{{.OverdueDays}}</td></tr>
{{end}}</table>{{else}}<p>No outstanding payments.</p>{{end}}

{{range .Sections}}<h2>{{.Title}}</h2>
<p class="insight">{{.Insight}}</p>
{{end}}</body>
</html>
`))

// Render writes r as a self-contained HTML document.
func Render(w io.Writer, r *Report) error {
	const op = "Render"
	if err := pageTemplate.Execute(w, r); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
