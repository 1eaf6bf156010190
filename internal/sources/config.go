// Package sources fetches and aggregates the independently computed
// monthly sales tables into per-source month-by-channel pivots.
//
// Each upstream pipeline writes its own table with its own schema; a
// SourceConfig describes one of them, and the aggregator converts its rows
// into the common pivot shape at this boundary. Legacy tables whose
// effective month is spread across drifted columns go through the
// candidate resolvers in probe.go.
package sources

import (
	"fmt"

	"sales-reconciliation-service/internal/models"
)

// SourceConfig describes one upstream sales aggregate table. Configs are
// fixed wiring owned by the service, not user input.
type SourceConfig struct {
	ID            models.SourceID
	Table         string
	ChannelColumn string
	AmountColumn  string

	// MonthColumn is the single effective-month date column of a modern
	// source. Empty for legacy sources.
	MonthColumn string

	// Legacy marks a source whose effective month must be probed from
	// the candidate columns below.
	Legacy           bool
	MonthTextColumn  string
	YearMonthColumn  string
	RecordedAtColumn string
}

// Validate validates the source configuration.
func (c *SourceConfig) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("source id is required")
	}
	if c.Table == "" {
		return fmt.Errorf("source %s: table is required", c.ID)
	}
	if c.ChannelColumn == "" || c.AmountColumn == "" {
		return fmt.Errorf("source %s: channel and amount columns are required", c.ID)
	}
	if c.Legacy {
		if c.MonthTextColumn == "" && c.YearMonthColumn == "" && c.RecordedAtColumn == "" {
			return fmt.Errorf("source %s: legacy source needs at least one month candidate column", c.ID)
		}
	} else if c.MonthColumn == "" {
		return fmt.Errorf("source %s: month column is required", c.ID)
	}
	return nil
}

// ChainConfigs returns the precedence chain sources in priority order:
// actuals beats final beats computed beats the legacy daily rollup. The
// order is configuration, never inferred from the data.
func ChainConfigs() []SourceConfig {
	return []SourceConfig{
		{
			ID:            models.SourceActuals,
			Table:         "sales_actuals",
			ChannelColumn: "channel_label",
			AmountColumn:  "amount_yen",
			MonthColumn:   "sales_month",
		},
		{
			ID:            models.SourceFinal,
			Table:         "sales_final",
			ChannelColumn: "channel_label",
			AmountColumn:  "amount_yen",
			MonthColumn:   "closing_month",
		},
		{
			ID:            models.SourceComputed,
			Table:         "sales_computed",
			ChannelColumn: "channel_label",
			AmountColumn:  "amount_yen",
			MonthColumn:   "computed_month",
		},
		{
			ID:               models.SourceLegacyDaily,
			Table:            "legacy_daily_sales",
			ChannelColumn:    "channel",
			AmountColumn:     "amount",
			Legacy:           true,
			MonthTextColumn:  "sales_month",
			YearMonthColumn:  "year_month",
			RecordedAtColumn: "recorded_at",
		},
	}
}

// UnifiedConfig returns the separately materialized unified table. It is
// fetched for staleness diffing only and is never part of the chain.
func UnifiedConfig() SourceConfig {
	return SourceConfig{
		ID:            models.SourceUnified,
		Table:         "sales_unified",
		ChannelColumn: "channel_label",
		AmountColumn:  "amount_yen",
		MonthColumn:   "sales_month",
	}
}
