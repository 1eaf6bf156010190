package recon

import (
	"errors"
	"fmt"
	"strings"

	"sales-reconciliation-service/internal/models"
	"sales-reconciliation-service/internal/unifier"
	apperrors "sales-reconciliation-service/pkg/errors"

	"github.com/shopspring/decimal"
)

// ConsistencyError reports every window month whose resolved channel sum
// disagrees with the independently stated month total. All offending
// months are collected before the error is raised, so operators see the
// full extent of the inconsistency in one pass.
type ConsistencyError struct {
	WindowLabel   string                    `json:"window"`
	Discrepancies []models.MonthDiscrepancy `json:"discrepancies"`
}

// Error implements the error interface.
func (e *ConsistencyError) Error() string {
	parts := make([]string, 0, len(e.Discrepancies))
	for _, d := range e.Discrepancies {
		parts = append(parts, fmt.Sprintf("%s: %s", d.Month, d.Discrepancy))
	}
	return fmt.Sprintf("%s channel sums disagree with stated totals in %d month(s): %s",
		e.WindowLabel, len(e.Discrepancies), strings.Join(parts, ", "))
}

// AssertChannelSums verifies, for every window month, that the resolved
// per-channel amounts re-sum to the stated month total. Amounts are whole
// yen, so the comparison is exact. Months absent from the stated totals
// count as zero: a month holding resolved volume with no stated total is
// a violation, an empty future month is not.
//
// On any mismatch it returns a reconciliation-classified error wrapping a
// ConsistencyError that lists every offending month with its signed
// discrepancy (channel sum minus stated total). This check runs before a
// run's result is handed to any presentation layer.
func AssertChannelSums(resolved *unifier.UnifiedPivot, stated map[models.Month]decimal.Decimal) error {
	sums := resolved.MonthChannelSums()

	var discrepancies []models.MonthDiscrepancy
	for _, m := range resolved.Window.Months {
		sum := sums[m]
		total := stated[m]
		if sum.Equal(total) {
			continue
		}
		discrepancies = append(discrepancies, models.MonthDiscrepancy{
			Month:       m,
			ChannelSum:  sum,
			StatedTotal: total,
			Discrepancy: sum.Sub(total),
		})
	}

	if len(discrepancies) == 0 {
		return nil
	}

	consistency := &ConsistencyError{
		WindowLabel:   resolved.Window.Label,
		Discrepancies: discrepancies,
	}
	return apperrors.ReconciliationError(apperrors.CodeChannelSumMismatch, "invariant_check", consistency).
		WithContext("window", resolved.Window.Label).
		WithContext("offending_months", len(discrepancies))
}

// AsConsistencyError extracts the structured discrepancy detail from an
// error chain.
func AsConsistencyError(err error) (*ConsistencyError, bool) {
	var ce *ConsistencyError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
