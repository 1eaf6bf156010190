package sources

import (
	"testing"
	"time"

	"sales-reconciliation-service/internal/models"
)

func TestResolveMonthPrefersDirectField(t *testing.T) {
	row := LegacyRow{MonthText: "2025-09-01", YearMonth: "2025-10"}

	m, name, ok := ResolveMonth(row, DefaultCandidates())
	if !ok {
		t.Fatal("expected resolution")
	}
	if name != "month_text" {
		t.Errorf("candidate = %s, want month_text", name)
	}
	if m != (models.Month{Year: 2025, Mon: time.September}) {
		t.Errorf("month = %v, want 2025-09", m)
	}
}

func TestResolveMonthSkipsMalformedEarlierCandidate(t *testing.T) {
	// A malformed direct month field must not crash and must fall
	// through to the valid year-month string.
	row := LegacyRow{MonthText: "09/2025 garbage", YearMonth: "2025-09"}

	m, name, ok := ResolveMonth(row, DefaultCandidates())
	if !ok {
		t.Fatal("expected resolution via later candidate")
	}
	if name != "year_month" {
		t.Errorf("candidate = %s, want year_month", name)
	}
	if m != (models.Month{Year: 2025, Mon: time.September}) {
		t.Errorf("month = %v, want 2025-09", m)
	}
}

func TestResolveMonthYearMonthSpellings(t *testing.T) {
	for _, s := range []string{"2025-09", "2025/09", "202509"} {
		m, _, ok := ResolveMonth(LegacyRow{YearMonth: s}, DefaultCandidates())
		if !ok {
			t.Errorf("ResolveMonth failed for year-month %q", s)
			continue
		}
		if m != (models.Month{Year: 2025, Mon: time.September}) {
			t.Errorf("year-month %q = %v, want 2025-09", s, m)
		}
	}
}

func TestResolveMonthFallsBackToTimestamp(t *testing.T) {
	ts := time.Date(2025, time.December, 24, 18, 30, 0, 0, time.UTC)
	row := LegacyRow{MonthText: "", YearMonth: "bogus", RecordedAt: &ts}

	m, name, ok := ResolveMonth(row, DefaultCandidates())
	if !ok {
		t.Fatal("expected timestamp fallback")
	}
	if name != "recorded_at" {
		t.Errorf("candidate = %s, want recorded_at", name)
	}
	if m != (models.Month{Year: 2025, Mon: time.December}) {
		t.Errorf("month = %v, want 2025-12", m)
	}
}

func TestResolveMonthAllCandidatesFail(t *testing.T) {
	_, _, ok := ResolveMonth(LegacyRow{MonthText: "junk", YearMonth: "also junk"}, DefaultCandidates())
	if ok {
		t.Error("expected resolution failure when every candidate misses")
	}
}

func TestResolveMonthOrderIsStablePerRow(t *testing.T) {
	// The same ordered list applies to every row: a row where both the
	// direct field and the year-month parse must always pick the direct
	// field, regardless of other rows in the batch.
	rows := []LegacyRow{
		{MonthText: "2025-09-01", YearMonth: "2026-01"},
		{MonthText: "", YearMonth: "2026-01"},
		{MonthText: "2025-09-01", YearMonth: "2026-01"},
	}
	wantNames := []string{"month_text", "year_month", "month_text"}
	for i, row := range rows {
		_, name, ok := ResolveMonth(row, DefaultCandidates())
		if !ok || name != wantNames[i] {
			t.Errorf("row %d resolved via %q (ok=%v), want %q", i, name, ok, wantNames[i])
		}
	}
}
