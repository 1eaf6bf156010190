// Package recon is the reconciliation core: it diffs independently
// computed pivots, asserts the channel-sum invariant, and orchestrates a
// full fail-closed reconciliation run over the source tables.
package recon

import (
	"sort"

	"sales-reconciliation-service/internal/channel"
	"sales-reconciliation-service/internal/fiscal"
	"sales-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

// Diff compares two sparse pivots and returns only the non-zero deltas,
// computed as a minus b with absent cells treated as zero. For every
// month whose totals disagree, one additional TOTAL record is emitted
// after that month's channel records. Zero diffs are implicit, never
// materialized.
func Diff(a, b models.Amounts) []models.DiffRecord {
	type monthSet map[models.Month]struct{}

	months := make(monthSet)
	keys := make(map[models.Key]struct{}, len(a)+len(b))
	for key := range a {
		keys[key] = struct{}{}
		months[key.Month] = struct{}{}
	}
	for key := range b {
		keys[key] = struct{}{}
		months[key.Month] = struct{}{}
	}

	var records []models.DiffRecord
	for key := range keys {
		delta := a[key].Sub(b[key])
		if delta.IsZero() {
			continue
		}
		records = append(records, models.DiffRecord{
			Month:   key.Month,
			Channel: key.Channel.String(),
			Delta:   delta,
		})
	}

	for m := range months {
		delta := a.MonthTotal(m).Sub(b.MonthTotal(m))
		if delta.IsZero() {
			continue
		}
		records = append(records, models.DiffRecord{
			Month:   m,
			Channel: models.DiffTotalChannel,
			Delta:   delta,
		})
	}

	sortDiffs(records)
	return records
}

// channelRank orders diff rows within a month: declared channel order
// first, TOTAL always last.
func channelRank(ch string) int {
	for i, code := range channel.All() {
		if ch == code.String() {
			return i
		}
	}
	return len(channel.All())
}

// sortDiffs fixes the output order (month, then channel rank) so diff
// lists are reproducible regardless of map iteration.
func sortDiffs(records []models.DiffRecord) {
	sort.Slice(records, func(i, j int) bool {
		if records[i].Month != records[j].Month {
			return records[i].Month.Before(records[j].Month)
		}
		return channelRank(records[i].Channel) < channelRank(records[j].Channel)
	})
}

// ExpandDiffs pads a sparse diff list to the full month-by-channel grid
// of the window, materializing explicit zero rows (and a zero TOTAL row
// per month) for every cell the sparse list omits. Used when a caller
// asks to see zero diffs.
func ExpandDiffs(window fiscal.Window, records []models.DiffRecord) []models.DiffRecord {
	present := make(map[models.Month]map[string]decimal.Decimal, len(window.Months))
	for _, r := range records {
		byChannel := present[r.Month]
		if byChannel == nil {
			byChannel = make(map[string]decimal.Decimal)
			present[r.Month] = byChannel
		}
		byChannel[r.Channel] = r.Delta
	}

	expanded := make([]models.DiffRecord, 0, len(window.Months)*(len(channel.All())+1))
	for _, m := range window.Months {
		for _, code := range channel.All() {
			expanded = append(expanded, models.DiffRecord{
				Month:   m,
				Channel: code.String(),
				Delta:   present[m][code.String()],
			})
		}
		expanded = append(expanded, models.DiffRecord{
			Month:   m,
			Channel: models.DiffTotalChannel,
			Delta:   present[m][models.DiffTotalChannel],
		})
	}
	return expanded
}

// SumDeltas returns the net of a diff list, a convenience for summary
// reporting.
func SumDeltas(records []models.DiffRecord) decimal.Decimal {
	net := decimal.Zero
	for _, r := range records {
		if r.Channel == models.DiffTotalChannel {
			continue
		}
		net = net.Add(r.Delta)
	}
	return net
}
