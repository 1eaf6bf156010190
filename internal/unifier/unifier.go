// Package unifier resolves the per-source pivots into one provenance-
// tagged month-by-channel grid using the fixed source precedence.
package unifier

import (
	"sales-reconciliation-service/internal/channel"
	"sales-reconciliation-service/internal/fiscal"
	"sales-reconciliation-service/internal/models"
	"sales-reconciliation-service/internal/sources"

	"github.com/shopspring/decimal"
)

// UnifiedPivot is the resolved grid: exactly one UnifiedFact per (window
// month, channel) cell, including zero/none cells, so downstream pivots
// and diffs are total over the window.
type UnifiedPivot struct {
	Window fiscal.Window                  `json:"window"`
	Facts  map[models.Key]models.UnifiedFact `json:"facts"`
}

// Resolve merges the pivots, which must be in priority order (highest
// first), into the unified grid. For each cell the first pivot holding it
// wins and stamps its provenance; cells no pivot holds get amount zero
// and provenance "none". Resolution is pure and deterministic: output
// depends only on the pivot contents and the declared orders, never on
// map iteration.
func Resolve(window fiscal.Window, pivotsByPriority []*sources.Pivot) *UnifiedPivot {
	unified := &UnifiedPivot{
		Window: window,
		Facts:  make(map[models.Key]models.UnifiedFact, 12*len(channel.All())),
	}

	for _, m := range window.Months {
		for _, code := range channel.All() {
			key := models.Key{Month: m, Channel: code}
			fact := models.UnifiedFact{
				Month:      m,
				Channel:    code,
				Amount:     decimal.Zero,
				Provenance: models.ProvenanceNone,
			}
			for _, pivot := range pivotsByPriority {
				if amount, ok := pivot.Amounts[key]; ok {
					fact.Amount = amount
					fact.Provenance = pivot.Source
					break
				}
			}
			unified.Facts[key] = fact
		}
	}

	return unified
}

// Amounts flattens the grid back into a sparse amounts map holding only
// non-zero cells, the shape the diff engine consumes.
func (u *UnifiedPivot) Amounts() models.Amounts {
	amounts := make(models.Amounts)
	for key, fact := range u.Facts {
		if !fact.Amount.IsZero() {
			amounts[key] = fact.Amount
		}
	}
	return amounts
}

// MonthChannelSums re-sums the resolved amounts per month across
// channels, the left side of the consistency invariant.
func (u *UnifiedPivot) MonthChannelSums() map[models.Month]decimal.Decimal {
	sums := make(map[models.Month]decimal.Decimal, len(u.Window.Months))
	for _, m := range u.Window.Months {
		total := decimal.Zero
		for _, code := range channel.All() {
			total = total.Add(u.Facts[models.Key{Month: m, Channel: code}].Amount)
		}
		sums[m] = total
	}
	return sums
}

// OrderedFacts returns the grid in its deterministic reporting order:
// window month order, then declared channel order. Two runs over
// identical inputs produce identical slices.
func (u *UnifiedPivot) OrderedFacts() []models.UnifiedFact {
	out := make([]models.UnifiedFact, 0, len(u.Facts))
	for _, m := range u.Window.Months {
		for _, code := range channel.All() {
			out = append(out, u.Facts[models.Key{Month: m, Channel: code}])
		}
	}
	return out
}
