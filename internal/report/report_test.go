package report

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestAddFailureAccumulates(t *testing.T) {
	t.Parallel()

	var l Line
	require.False(t, l.Failed())

	l.AddFailure(errors.New("insert outgoing transfer leg: disk full"))
	l.AddFailure(errors.New("categorize leg: disk full"))
	require.True(t, l.Failed())
	require.Equal(t, "insert outgoing transfer leg: disk full; categorize leg: disk full", l.Detail)
}

func TestSummaryCounts(t *testing.T) {
	t.Parallel()

	r := New()
	r.Append(Line{LegsWritten: 3})
	r.Append(Line{LegsWritten: 1})
	failed := Line{}
	failed.AddFailure(errors.New("boom"))
	r.Append(failed)

	s := r.Summary()
	require.Equal(t, 3, s.Processed)
	require.Equal(t, 4, s.LegsWritten)
	require.Equal(t, 1, s.Failures)
}

func TestRenderTable(t *testing.T) {
	t.Parallel()

	r := New()
	r.Append(Line{
		Description: "groceries",
		Date:        time.Date(2026, 2, 10, 18, 30, 0, 0, time.UTC),
		Total:       decimal.RequireFromString("60"),
		Paid:        decimal.RequireFromString("50"),
		Owed:        decimal.RequireFromString("10"),
		Case:        "i paid",
		Bucket:      "Groceries",
		LegsWritten: 3,
	})

	var sb strings.Builder
	r.Render(&sb)
	out := sb.String()
	require.Contains(t, out, "2026-02-10")
	require.Contains(t, out, "groceries")
	require.Contains(t, out, "60.00")
	require.Contains(t, out, "i paid")
	require.Contains(t, out, "Groceries")
	require.Contains(t, out, "1 expenses processed, 3 legs written, 0 failures")
}
