// Package models defines the common shapes every reconciliation component
// operates on: the month key, per-source monthly facts, resolved unified
// facts and diff records.
//
// All heterogeneous source rows are converted into these shapes at the
// aggregator boundary; nothing downstream ever sees a raw source schema.
// Amounts are whole-yen values carried as decimals.
package models

import (
	"fmt"
	"strings"
	"time"

	"sales-reconciliation-service/internal/channel"

	"github.com/shopspring/decimal"
)

// SourceID identifies one upstream sales aggregate pipeline.
type SourceID string

const (
	// SourceActuals is the hand-confirmed actuals table, highest priority.
	SourceActuals SourceID = "actuals"
	// SourceFinal is the month-close finalization pipeline.
	SourceFinal SourceID = "final"
	// SourceComputed is the automated computation pipeline.
	SourceComputed SourceID = "computed"
	// SourceUnified is the separately materialized unified table. It is
	// never part of the precedence chain; it is reconciled against it.
	SourceUnified SourceID = "unified"
	// SourceLegacyDaily is the legacy daily sales table with drifted
	// date columns, folded into the computed tier.
	SourceLegacyDaily SourceID = "legacy_daily"

	// ProvenanceNone marks a unified fact no source had a row for.
	ProvenanceNone SourceID = "none"
)

// String returns the string representation of the source identifier.
func (s SourceID) String() string {
	return string(s)
}

// Month is a calendar month used as the time key of every fact. It is a
// value type so it can key maps directly without time.Time's location and
// monotonic-clock pitfalls.
type Month struct {
	Year int
	Mon  time.Month
}

// MonthOf truncates a timestamp to its calendar month.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Mon: t.Month()}
}

// ParseMonth parses an ISO first-of-month date ("2025-09-01"). Any other
// day of month, or any other format, is rejected: callers supplying months
// must be exact, not silently rounded.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	if t.Day() != 1 {
		return Month{}, fmt.Errorf("invalid month %q: must be a first-of-month date", s)
	}
	return MonthOf(t), nil
}

// Time returns the first-of-month instant in UTC.
func (m Month) Time() time.Time {
	return time.Date(m.Year, m.Mon, 1, 0, 0, 0, 0, time.UTC)
}

// Next returns the following calendar month.
func (m Month) Next() Month {
	return MonthOf(m.Time().AddDate(0, 1, 0))
}

// Before reports whether m precedes other.
func (m Month) Before(other Month) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Mon < other.Mon
}

// IsZero reports whether the month is the zero value.
func (m Month) IsZero() bool {
	return m.Year == 0 && m.Mon == 0
}

// String returns the ISO first-of-month form, e.g. "2025-09-01".
func (m Month) String() string {
	return m.Time().Format("2006-01-02")
}

// MarshalText encodes the month in its ISO first-of-month form. Months
// key JSON maps, so they marshal as text rather than objects.
func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText parses the ISO first-of-month form.
func (m *Month) UnmarshalText(data []byte) error {
	parsed, err := ParseMonth(string(data))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Key addresses one cell of a month-by-channel pivot.
type Key struct {
	Month   Month
	Channel channel.Code
}

// MarshalText encodes the key as "month/channel" so pivot maps keyed by
// Key can be serialized.
func (k Key) MarshalText() ([]byte, error) {
	return []byte(k.Month.String() + "/" + k.Channel.String()), nil
}

// UnmarshalText parses the "month/channel" form.
func (k *Key) UnmarshalText(data []byte) error {
	month, label, found := strings.Cut(string(data), "/")
	if !found {
		return fmt.Errorf("invalid pivot key %q", data)
	}
	m, err := ParseMonth(month)
	if err != nil {
		return err
	}
	k.Month = m
	k.Channel = channel.Code(label)
	return nil
}

// Amounts is a sparse month-by-channel pivot of summed amounts.
type Amounts map[Key]decimal.Decimal

// MonthTotal sums every channel amount for the given month.
func (a Amounts) MonthTotal(m Month) decimal.Decimal {
	total := decimal.Zero
	for key, amount := range a {
		if key.Month == m {
			total = total.Add(amount)
		}
	}
	return total
}

// MonthlyFact is one per-source aggregated (month, channel) amount.
type MonthlyFact struct {
	Month   Month           `json:"month"`
	Channel channel.Code    `json:"channel"`
	Amount  decimal.Decimal `json:"amount"`
	Source  SourceID        `json:"source"`
}

// Validate performs basic validation on the MonthlyFact.
func (f *MonthlyFact) Validate() error {
	if f.Month.IsZero() {
		return fmt.Errorf("monthly fact month cannot be zero")
	}
	if !f.Channel.IsValid() {
		return fmt.Errorf("invalid channel code: %s", f.Channel)
	}
	if f.Source == "" {
		return fmt.Errorf("monthly fact source cannot be empty")
	}
	return nil
}

// UnifiedFact is the single resolved amount for one (month, channel) cell,
// tagged with the source the precedence chain selected. Provenance is
// ProvenanceNone when no source held the cell; the amount is then zero.
type UnifiedFact struct {
	Month      Month           `json:"month"`
	Channel    channel.Code    `json:"channel"`
	Amount     decimal.Decimal `json:"amount"`
	Provenance SourceID        `json:"provenance"`
}

// DiffTotalChannel is the pseudo-channel of the per-month TOTAL diff row.
const DiffTotalChannel = "TOTAL"

// DiffRecord is one non-zero delta between two pivots. Channel is either a
// canonical channel code or DiffTotalChannel for the month-total row; zero
// deltas are never materialized.
type DiffRecord struct {
	Month   Month           `json:"month"`
	Channel string          `json:"channel"`
	Delta   decimal.Decimal `json:"delta"`
}

// String returns a compact representation for logs and console reports.
func (d DiffRecord) String() string {
	return fmt.Sprintf("%s %s %s", d.Month, d.Channel, d.Delta.String())
}

// MonthDiscrepancy is one month whose resolved channel sum disagrees with
// the independently stored month total. Discrepancy is signed:
// channel sum minus stated total.
type MonthDiscrepancy struct {
	Month       Month           `json:"month"`
	ChannelSum  decimal.Decimal `json:"channel_sum"`
	StatedTotal decimal.Decimal `json:"stated_total"`
	Discrepancy decimal.Decimal `json:"discrepancy"`
}

// UnclassifiedLabel records one raw channel label that normalized to OTHER,
// kept for operator review with its month span and running sum. This is a
// data-quality signal, not an error: reporting continues while it is
// surfaced alongside diffs.
type UnclassifiedLabel struct {
	Source    SourceID        `json:"source"`
	RawLabel  string          `json:"raw_label"`
	FirstSeen Month           `json:"first_seen"`
	LastSeen  Month           `json:"last_seen"`
	Total     decimal.Decimal `json:"total"`
	Rows      int             `json:"rows"`
}
