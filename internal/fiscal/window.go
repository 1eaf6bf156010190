// Package fiscal derives fiscal-year month windows from a reference date.
//
// The fiscal year in this domain starts in August; a window is always the
// 12 consecutive calendar months from its start, labeled after the
// calendar year the fiscal year ends in. The calculator is pure: the
// reference date is a parameter, never read from a wall clock, so windows
// are fully reproducible in tests.
package fiscal

import (
	"fmt"
	"time"

	"sales-reconciliation-service/internal/models"
)

// DefaultStartMonth is the fiscal-year start month of this domain.
const DefaultStartMonth = time.August

// Window is one fiscal year's 12-month span. Start is inclusive, End is
// the exclusive first-of-month upper bound, Months holds the 12 ordered
// first-of-month keys in [Start, End).
type Window struct {
	Label  string           `json:"label"`
	Start  models.Month     `json:"start"`
	End    models.Month     `json:"end"`
	Months [12]models.Month `json:"months"`
}

// WindowFor computes the fiscal window containing the reference date for a
// fiscal year starting in startMonth. A reference date on the start month
// itself belongs to the fiscal year beginning that month, not the prior
// one.
func WindowFor(ref time.Time, startMonth time.Month) Window {
	startYear := ref.Year()
	if ref.Month() < startMonth {
		startYear--
	}

	w := Window{
		Start: models.Month{Year: startYear, Mon: startMonth},
	}
	m := w.Start
	for i := 0; i < 12; i++ {
		w.Months[i] = m
		m = m.Next()
	}
	w.End = m
	w.Label = fmt.Sprintf("FY%02d", w.End.Year%100)
	return w
}

// CurrentWindow is a convenience for callers at the process boundary; core
// computation always goes through WindowFor with an explicit reference
// date.
func CurrentWindow(now time.Time) Window {
	return WindowFor(now, DefaultStartMonth)
}

// Contains reports whether the month falls inside [Start, End).
func (w Window) Contains(m models.Month) bool {
	return !m.Before(w.Start) && m.Before(w.End)
}

// MonthsThrough returns the window months up to and including the given
// month, used for year-to-date reductions. An out-of-window month yields
// the full window.
func (w Window) MonthsThrough(m models.Month) []models.Month {
	var out []models.Month
	for _, wm := range w.Months {
		out = append(out, wm)
		if wm == m {
			break
		}
	}
	return out
}
