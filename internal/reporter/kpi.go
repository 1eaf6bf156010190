package reporter

import (
	"sales-reconciliation-service/internal/models"
	"sales-reconciliation-service/internal/recon"

	"github.com/shopspring/decimal"
)

// KPIRow carries the derived per-month indicators shown on the
// dashboard: month total, month-over-month delta, fiscal year-to-date
// and achievement against the sales target.
type KPIRow struct {
	Month models.Month    `json:"month"`
	Total decimal.Decimal `json:"total"`

	// MonthOverMonth is nil for the first window month, where no prior
	// month exists to compare against.
	MonthOverMonth *decimal.Decimal `json:"month_over_month,omitempty"`

	YearToDate decimal.Decimal `json:"year_to_date"`
	Target     decimal.Decimal `json:"target"`

	// Achievement is Total/Target as a percentage, nil when no target
	// is set for the month.
	Achievement *decimal.Decimal `json:"achievement_pct,omitempty"`
}

var hundred = decimal.NewFromInt(100)

// BuildKPIs derives the KPI rows from a run result, one per window
// month in fiscal order.
func BuildKPIs(result *recon.Result) []KPIRow {
	sums := result.Resolved.MonthChannelSums()

	rows := make([]KPIRow, 0, len(result.Window.Months))
	ytd := decimal.Zero
	var prev decimal.Decimal
	for i, m := range result.Window.Months {
		total := sums[m]
		ytd = ytd.Add(total)

		row := KPIRow{
			Month:      m,
			Total:      total,
			YearToDate: ytd,
		}
		if i > 0 {
			mom := total.Sub(prev)
			row.MonthOverMonth = &mom
		}
		if target, ok := result.Targets[m]; ok {
			row.Target = target
			if !target.IsZero() {
				pct := total.Div(target).Mul(hundred)
				row.Achievement = &pct
			}
		}

		rows = append(rows, row)
		prev = total
	}
	return rows
}
