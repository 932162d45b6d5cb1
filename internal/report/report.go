// Package report collects the per-expense outcome of a sync run. Lines are
// append-only: the engine writes them and never reads them back.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
)

// Line is one row of run output, one per processed expense. Every expense
// yields a line, including anomalies, ignored entries and failures.
type Line struct {
	Description string
	Date        time.Time
	Total       decimal.Decimal
	Paid        decimal.Decimal
	Owed        decimal.Decimal
	Case        string
	Bucket      string
	LegsWritten int
	Detail      string

	failed bool
}

// AddFailure records a per-leg or per-expense failure on the line.
func (l *Line) AddFailure(err error) {
	l.failed = true
	if l.Detail != "" {
		l.Detail += "; "
	}
	l.Detail += err.Error()
}

// Failed reports whether any failure was recorded.
func (l Line) Failed() bool { return l.failed }

// Report is the ordered result of one run.
type Report struct {
	RunID   string
	Started time.Time
	lines   []Line
}

func New() *Report {
	return &Report{RunID: uuid.NewString(), Started: time.Now()}
}

// Append adds a line. Lines are immutable once appended.
func (r *Report) Append(l Line) { r.lines = append(r.lines, l) }

// Lines returns the appended lines in processing order.
func (r *Report) Lines() []Line { return r.lines }

// Summary aggregates the run.
type Summary struct {
	Processed   int
	LegsWritten int
	Failures    int
}

func (r *Report) Summary() Summary {
	s := Summary{Processed: len(r.lines)}
	for i := range r.lines {
		s.LegsWritten += r.lines[i].LegsWritten
		if r.lines[i].failed {
			s.Failures++
		}
	}
	return s
}

// Render writes the run as a table followed by a one-line summary.
func (r *Report) Render(w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Date", "Description", "Total", "Paid", "Owed", "Case", "Bucket", "Legs", "Detail"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	for _, l := range r.lines {
		table.Append([]string{
			l.Date.Format("2006-01-02"),
			l.Description,
			l.Total.StringFixed(2),
			l.Paid.StringFixed(2),
			l.Owed.StringFixed(2),
			l.Case,
			l.Bucket,
			fmt.Sprintf("%d", l.LegsWritten),
			l.Detail,
		})
	}
	table.Render()

	s := r.Summary()
	fmt.Fprintf(w, "\n%d expenses processed, %d legs written, %d failures\n", s.Processed, s.LegsWritten, s.Failures)
}
