package models

import (
	"testing"
	"time"

	"sales-reconciliation-service/internal/channel"

	"github.com/shopspring/decimal"
)

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2025-09-01")
	if err != nil {
		t.Fatalf("ParseMonth failed: %v", err)
	}
	if m.Year != 2025 || m.Mon != time.September {
		t.Errorf("ParseMonth = %v, want 2025-09", m)
	}
}

func TestParseMonthRejectsNonFirstOfMonth(t *testing.T) {
	if _, err := ParseMonth("2025-09-15"); err == nil {
		t.Error("expected error for mid-month date")
	}
	if _, err := ParseMonth("2025-09"); err == nil {
		t.Error("expected error for year-month shorthand")
	}
	if _, err := ParseMonth("not-a-date"); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestMonthOrdering(t *testing.T) {
	sep := Month{2025, time.September}
	oct := Month{2025, time.October}
	jan := Month{2026, time.January}

	if !sep.Before(oct) {
		t.Error("September 2025 must precede October 2025")
	}
	if !oct.Before(jan) {
		t.Error("October 2025 must precede January 2026")
	}
	if sep.Next() != oct {
		t.Errorf("sep.Next() = %v, want %v", sep.Next(), oct)
	}
	if (Month{2025, time.December}).Next() != jan {
		t.Error("December.Next() must roll the year")
	}
}

func TestAmountsMonthTotal(t *testing.T) {
	sep := Month{2025, time.September}
	oct := Month{2025, time.October}
	amounts := Amounts{
		{sep, channel.Web}:   decimal.NewFromInt(100),
		{sep, channel.Store}: decimal.NewFromInt(50),
		{oct, channel.Web}:   decimal.NewFromInt(999),
	}

	if got := amounts.MonthTotal(sep); !got.Equal(decimal.NewFromInt(150)) {
		t.Errorf("MonthTotal(sep) = %s, want 150", got)
	}
	if got := amounts.MonthTotal(Month{2025, time.November}); !got.IsZero() {
		t.Errorf("MonthTotal(empty month) = %s, want 0", got)
	}
}

func TestMonthlyFactValidate(t *testing.T) {
	fact := &MonthlyFact{
		Month:   Month{2025, time.September},
		Channel: channel.Web,
		Amount:  decimal.NewFromInt(100),
		Source:  SourceActuals,
	}
	if err := fact.Validate(); err != nil {
		t.Errorf("valid fact rejected: %v", err)
	}

	bad := &MonthlyFact{Channel: channel.Web, Source: SourceActuals}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for zero month")
	}

	bad = &MonthlyFact{Month: Month{2025, time.September}, Channel: "MAIL", Source: SourceActuals}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for channel outside the taxonomy")
	}
}
