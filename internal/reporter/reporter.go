// Package reporter turns reconciliation results into the read-only
// report surfaces: month-by-channel pivots, summary KPIs, diff listings
// and the OTHER-label audit, rendered to the console, JSON or an xlsx
// workbook.
//
// Everything here is a presentational reduction over an already verified
// recon.Result; no reconciliation logic lives in this package.
package reporter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"sales-reconciliation-service/internal/channel"
	"sales-reconciliation-service/internal/fiscal"
	"sales-reconciliation-service/internal/models"
	"sales-reconciliation-service/internal/recon"

	"github.com/shopspring/decimal"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatXLSX    OutputFormat = "xlsx"
)

// IsValid checks if the output format is supported.
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatXLSX:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation.
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// OnlyNonZero keeps diff listings sparse. When false, the grid is
	// padded with explicit zero rows so every cell is visible.
	OnlyNonZero bool `json:"only_non_zero"`

	// Month restricts the report to one window month when non-zero.
	Month models.Month `json:"month,omitempty"`
}

// DefaultReportConfig returns a default report configuration.
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:      FormatConsole,
		OnlyNonZero: true,
	}
}

// Validate validates the report configuration.
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	return nil
}

// Generator renders reconciliation results in the configured format.
type Generator struct {
	config *ReportConfig
}

// NewGenerator creates a report generator.
func NewGenerator(config *ReportConfig) (*Generator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}
	return &Generator{config: config}, nil
}

// Payload is the fully reduced report: what every output format renders.
type Payload struct {
	Window            fiscal.Window              `json:"window"`
	Rows              []PivotRow                 `json:"rows"`
	KPIs              []KPIRow                   `json:"kpis"`
	StoredUnifiedDiff []models.DiffRecord        `json:"stored_unified_diff"`
	PipelineDiff      []models.DiffRecord        `json:"pipeline_diff"`
	Unclassified      []models.UnclassifiedLabel `json:"unclassified"`
}

// PivotRow is one month of the pivot: per-channel amounts with their
// provenance, plus the row total.
type PivotRow struct {
	Month      models.Month               `json:"month"`
	Amounts    map[string]decimal.Decimal `json:"amounts"`
	Provenance map[string]string          `json:"provenance"`
	Total      decimal.Decimal            `json:"total"`
}

// BuildPayload reduces a run result under the report configuration.
func (g *Generator) BuildPayload(result *recon.Result) (*Payload, error) {
	if result == nil {
		return nil, fmt.Errorf("reconciliation result cannot be nil")
	}

	months := result.Window.Months[:]
	if !g.config.Month.IsZero() {
		if !result.Window.Contains(g.config.Month) {
			return nil, fmt.Errorf("month %s is outside window %s", g.config.Month, result.Window.Label)
		}
		months = []models.Month{g.config.Month}
	}

	payload := &Payload{
		Window:            result.Window,
		Rows:              buildPivotRows(result, months),
		KPIs:              BuildKPIs(result),
		StoredUnifiedDiff: g.shapeDiffs(result.Window, result.StoredUnifiedDiff),
		PipelineDiff:      g.shapeDiffs(result.Window, result.PipelineDiff),
		Unclassified:      result.Unclassified,
	}
	return payload, nil
}

// Generate renders the result to the writer in the configured format.
func (g *Generator) Generate(result *recon.Result, writer io.Writer) error {
	payload, err := g.BuildPayload(result)
	if err != nil {
		return err
	}

	switch g.config.Format {
	case FormatJSON:
		enc := json.NewEncoder(writer)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	case FormatXLSX:
		return writeWorkbook(payload, writer)
	default:
		return writeConsole(payload, writer)
	}
}

func buildPivotRows(result *recon.Result, months []models.Month) []PivotRow {
	rows := make([]PivotRow, 0, len(months))
	for _, m := range months {
		row := PivotRow{
			Month:      m,
			Amounts:    make(map[string]decimal.Decimal, len(channel.All())),
			Provenance: make(map[string]string, len(channel.All())),
			Total:      decimal.Zero,
		}
		for _, code := range channel.All() {
			fact := result.Resolved.Facts[models.Key{Month: m, Channel: code}]
			row.Amounts[code.String()] = fact.Amount
			row.Provenance[code.String()] = fact.Provenance.String()
			row.Total = row.Total.Add(fact.Amount)
		}
		rows = append(rows, row)
	}
	return rows
}

// shapeDiffs applies the month restriction and, when zero rows were
// requested, pads the listing to the full month-by-channel grid.
func (g *Generator) shapeDiffs(window fiscal.Window, records []models.DiffRecord) []models.DiffRecord {
	if !g.config.OnlyNonZero {
		records = recon.ExpandDiffs(window, records)
	}
	if g.config.Month.IsZero() {
		return records
	}
	var out []models.DiffRecord
	for _, r := range records {
		if r.Month == g.config.Month {
			out = append(out, r)
		}
	}
	return out
}

func writeConsole(p *Payload, w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Fiscal window %s (%s .. %s)\n\n", p.Window.Label, p.Window.Start, p.Window.End)

	codes := channel.All()
	fmt.Fprintf(&b, "%-12s", "MONTH")
	for _, code := range codes {
		fmt.Fprintf(&b, "%14s", code)
	}
	fmt.Fprintf(&b, "%14s\n", "TOTAL")
	for _, row := range p.Rows {
		fmt.Fprintf(&b, "%-12s", row.Month)
		for _, code := range codes {
			fmt.Fprintf(&b, "%14s", row.Amounts[code.String()])
		}
		fmt.Fprintf(&b, "%14s\n", row.Total)
	}

	b.WriteString("\nKPIs\n")
	fmt.Fprintf(&b, "%-12s%14s%14s%14s%14s%14s\n", "MONTH", "TOTAL", "MOM", "YTD", "TARGET", "ACHIEVED%")
	for _, k := range p.KPIs {
		mom := "-"
		if k.MonthOverMonth != nil {
			mom = k.MonthOverMonth.String()
		}
		achieved := "-"
		if k.Achievement != nil {
			achieved = k.Achievement.StringFixed(1)
		}
		fmt.Fprintf(&b, "%-12s%14s%14s%14s%14s%14s\n", k.Month, k.Total, mom, k.YearToDate, k.Target, achieved)
	}

	writeDiffSection(&b, "Stored unified vs fresh resolution", p.StoredUnifiedDiff)
	writeDiffSection(&b, "Final vs computed pipelines", p.PipelineDiff)

	b.WriteString("\nUnclassified channel labels\n")
	if len(p.Unclassified) == 0 {
		b.WriteString("  none\n")
	}
	for _, u := range p.Unclassified {
		fmt.Fprintf(&b, "  [%s] %q  %s .. %s  total %s (%d rows)\n",
			u.Source, u.RawLabel, u.FirstSeen, u.LastSeen, u.Total, u.Rows)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeDiffSection(b *strings.Builder, title string, records []models.DiffRecord) {
	fmt.Fprintf(b, "\n%s\n", title)
	if len(records) == 0 {
		b.WriteString("  in agreement\n")
		return
	}
	for _, r := range records {
		fmt.Fprintf(b, "  %-12s%-11s%14s\n", r.Month, r.Channel, r.Delta)
	}
}
