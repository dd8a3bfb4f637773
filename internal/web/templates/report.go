// Package templates holds the HTML components of the quality report.
package templates

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/bankquality/internal/core"
)

// Metric is one labelled count in a report section.
type Metric struct {
	Label string
	Value int
	Link  string // optional link to the offending rows
}

// StatsRow is the cleaning outcome for one table.
type StatsRow struct {
	Table      string
	RowsIn     int
	RowsOut    int
	Duplicates int
	Nulled     string // "column=n, ..." sorted by column
}

// ReportData is everything the report page renders.
type ReportData struct {
	RunID       string
	ProcessedAt time.Time
	Quality     []Metric
	Diagnostics []Metric
	Stats       []StatsRow
}

// NewReportData flattens a run result for rendering. When issueBase is not
// empty, validator counts link to issueBase + "/" + check.
func NewReportData(runID string, res core.Result, issueBase string) ReportData {
	link := func(check string) string {
		if issueBase == "" {
			return ""
		}
		return issueBase + "/" + check
	}

	r, d := res.Report, res.Diagnostics
	data := ReportData{
		RunID:       runID,
		ProcessedAt: res.ProcessedAt,
		Quality: []Metric{
			{Label: "Duplicate customers", Value: r.DuplicateCustomers},
			{Label: "Duplicate accounts", Value: r.DuplicateAccounts},
			{Label: "Duplicate transactions", Value: r.DuplicateTransactions},
			{Label: "Invalid account links", Value: r.InvalidAccountLinks, Link: link(core.CheckOrphanAccounts)},
			{Label: "Invalid transaction links", Value: r.InvalidTransactionLinks, Link: link(core.CheckOrphanTransactions)},
			{Label: "Future transactions", Value: r.FutureTransactions, Link: link(core.CheckFutureTransactions)},
			{Label: "Sign inconsistencies", Value: r.SignInconsistencies, Link: link(core.CheckSignTypeViolations)},
		},
		Diagnostics: []Metric{
			{Label: "Extreme outliers", Value: d.ExtremeOutliers, Link: link(core.CheckExtremeOutliers)},
			{Label: "High risk alerts", Value: d.HighRiskAlerts},
			{Label: "Balance mismatches", Value: d.BalanceMismatches, Link: link(core.CheckBalanceMismatches)},
			{Label: "Invalid signup dates", Value: d.InvalidSignupDates, Link: link(core.CheckInvalidSignupDates)},
			{Label: "Invalid opened dates", Value: d.InvalidOpenedDates, Link: link(core.CheckInvalidOpenedDates)},
			{Label: "Invalid transaction dates", Value: d.InvalidTransactionDates, Link: link(core.CheckInvalidTransactionDates)},
			{Label: "Invalid account status", Value: d.InvalidAccountStatus, Link: link(core.CheckInvalidAccountStatus)},
			{Label: "Invalid risk segment", Value: d.InvalidRiskSegment, Link: link(core.CheckInvalidRiskSegment)},
			{Label: "Invalid account type", Value: d.InvalidAccountType, Link: link(core.CheckInvalidAccountType)},
			{Label: "Invalid transaction type", Value: d.InvalidTransactionType, Link: link(core.CheckInvalidTransactionType)},
			{Label: "Small transactions", Value: d.SmallTransactions},
			{Label: "Medium transactions", Value: d.MediumTransactions},
			{Label: "Large transactions", Value: d.LargeTransactions},
			{Label: "Unknown size transactions", Value: d.UnknownTransactions},
		},
	}

	for _, s := range res.CleanStats {
		data.Stats = append(data.Stats, StatsRow{
			Table:      s.Table,
			RowsIn:     s.RowsIn,
			RowsOut:    s.RowsOut,
			Duplicates: s.Duplicates,
			Nulled:     formatNulled(s.Nulled),
		})
	}
	return data
}

func formatNulled(nulled map[string]int) string {
	cols := make([]string, 0, len(nulled))
	for c := range nulled {
		cols = append(cols, c)
	}
	sort.Strings(cols)

	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += c + "=" + strconv.Itoa(nulled[c])
	}
	return out
}

// Report renders the full report page.
func Report(data ReportData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		ew := &errWriter{w: w}

		ew.print(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>Data quality report</title>`)
		ew.print(`<style>body{font-family:sans-serif;margin:2rem}table{border-collapse:collapse;margin-bottom:2rem}` +
			`td,th{border:1px solid #ccc;padding:.3rem .6rem;text-align:left}td.n{text-align:right}.bad{color:#b00}</style>`)
		ew.print(`</head><body><h1>Data quality report</h1>`)
		ew.printf(`<p>Run <code>%s</code> processed %s</p>`,
			templ.EscapeString(data.RunID), templ.EscapeString(data.ProcessedAt.Format(time.RFC3339)))

		if ew.err != nil {
			return ew.err
		}
		if err := metricTable("Quality report", data.Quality).Render(ctx, w); err != nil {
			return err
		}
		if err := metricTable("Diagnostics", data.Diagnostics).Render(ctx, w); err != nil {
			return err
		}
		if err := statsTable(data.Stats).Render(ctx, w); err != nil {
			return err
		}

		ew.print(`</body></html>`)
		return ew.err
	})
}

func metricTable(title string, metrics []Metric) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		ew := &errWriter{w: w}
		ew.printf(`<h2>%s</h2><table><tr><th>Check</th><th>Count</th></tr>`, templ.EscapeString(title))
		for _, m := range metrics {
			label := templ.EscapeString(m.Label)
			if m.Link != "" && m.Value > 0 {
				label = fmt.Sprintf(`<a href="%s">%s</a>`, templ.EscapeString(m.Link), label)
			}
			class := "n"
			if m.Value > 0 && m.Link != "" {
				class = "n bad"
			}
			ew.printf(`<tr><td>%s</td><td class="%s">%d</td></tr>`, label, class, m.Value)
		}
		ew.print(`</table>`)
		return ew.err
	})
}

func statsTable(rows []StatsRow) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		ew := &errWriter{w: w}
		ew.print(`<h2>Cleaning</h2><table><tr><th>Table</th><th>Rows in</th><th>Rows out</th><th>Duplicates</th><th>Nulled values</th></tr>`)
		for _, r := range rows {
			ew.printf(`<tr><td>%s</td><td class="n">%d</td><td class="n">%d</td><td class="n">%d</td><td>%s</td></tr>`,
				templ.EscapeString(r.Table), r.RowsIn, r.RowsOut, r.Duplicates, templ.EscapeString(r.Nulled))
		}
		ew.print(`</table>`)
		return ew.err
	})
}

// ErrorAlert renders a user-facing error message.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div class="bad" role="alert"><strong>%s</strong> %s <small>(Code: %s)</small></div>`,
			templ.EscapeString(message), templ.EscapeString(action), templ.EscapeString(code))
		return err
	})
}

// errWriter keeps the first write error so markup can be emitted without
// checking every call.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) print(s string) {
	if e.err == nil {
		_, e.err = io.WriteString(e.w, s)
	}
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err == nil {
		_, e.err = fmt.Fprintf(e.w, format, args...)
	}
}
