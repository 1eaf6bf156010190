package sources

import (
	"strings"
	"time"

	"sales-reconciliation-service/internal/models"
)

// LegacyRow is one raw row of a legacy source before its effective month
// is resolved. The month candidates come back as-is from the store; any of
// them may be empty or malformed on a given row.
type LegacyRow struct {
	ChannelLabel string
	MonthText    string
	YearMonth    string
	RecordedAt   *time.Time
	Amount       int64
}

// Candidate is one named resolver for the effective month of a legacy
// row. Resolvers are pure: raw row in, month or nothing out.
type Candidate struct {
	Name    string
	Resolve func(row LegacyRow) (models.Month, bool)
}

// DefaultCandidates returns the candidate resolvers in their fixed
// priority order. Every row tries the same list in the same order, first
// valid month wins; a malformed earlier candidate is skipped, never an
// error. The ordering is the explicit fallback policy for the schema
// drift accumulated in the legacy tables.
func DefaultCandidates() []Candidate {
	return []Candidate{
		{Name: "month_text", Resolve: resolveMonthText},
		{Name: "year_month", Resolve: resolveYearMonth},
		{Name: "recorded_at", Resolve: resolveRecordedAt},
	}
}

// ResolveMonth resolves the effective month of a legacy row by trying the
// candidates in order. It returns the month, the name of the candidate
// that produced it, and whether any candidate succeeded.
func ResolveMonth(row LegacyRow, candidates []Candidate) (models.Month, string, bool) {
	for _, c := range candidates {
		if m, ok := c.Resolve(row); ok {
			return m, c.Name, true
		}
	}
	return models.Month{}, "", false
}

// resolveMonthText parses a direct first-of-month date string
// ("2025-09-01"). Oldest rows carry this column; newer writers left it
// empty or wrote junk into it.
func resolveMonthText(row LegacyRow) (models.Month, bool) {
	s := strings.TrimSpace(row.MonthText)
	if s == "" {
		return models.Month{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return models.Month{}, false
	}
	return models.MonthOf(t), true
}

// yearMonthFormats are the year-month spellings the legacy writers used.
var yearMonthFormats = []string{"2006-01", "2006/01", "200601"}

// resolveYearMonth parses a year-month string as the first of that month.
func resolveYearMonth(row LegacyRow) (models.Month, bool) {
	s := strings.TrimSpace(row.YearMonth)
	if s == "" {
		return models.Month{}, false
	}
	for _, format := range yearMonthFormats {
		if t, err := time.Parse(format, s); err == nil {
			return models.MonthOf(t), true
		}
	}
	return models.Month{}, false
}

// resolveRecordedAt truncates the row timestamp to its calendar month.
func resolveRecordedAt(row LegacyRow) (models.Month, bool) {
	if row.RecordedAt == nil || row.RecordedAt.IsZero() {
		return models.Month{}, false
	}
	return models.MonthOf(*row.RecordedAt), true
}
