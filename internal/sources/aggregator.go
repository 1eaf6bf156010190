package sources

import (
	"context"
	"fmt"
	"sort"

	"sales-reconciliation-service/internal/channel"
	"sales-reconciliation-service/internal/fiscal"
	"sales-reconciliation-service/internal/models"
	"sales-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
)

// Pivot is one source's aggregated month-by-channel amounts plus the
// audit trail of raw labels that fell into OTHER.
type Pivot struct {
	Source       models.SourceID            `json:"source"`
	Amounts      models.Amounts             `json:"amounts"`
	Unclassified []models.UnclassifiedLabel `json:"unclassified,omitempty"`

	// SkippedRows counts legacy rows no candidate could resolve a month
	// for. They are excluded from the pivot and logged.
	SkippedRows int `json:"skipped_rows,omitempty"`
}

// Aggregator turns one source's rows into a Pivot. Independent sources
// can be aggregated concurrently; the aggregator itself holds no mutable
// state across calls.
type Aggregator struct {
	store      Store
	candidates []Candidate
	log        logger.Logger
}

// NewAggregator creates an aggregator over the injected store handle.
func NewAggregator(store Store, log logger.Logger) (*Aggregator, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Aggregator{
		store:      store,
		candidates: DefaultCandidates(),
		log:        log.WithComponent("aggregator"),
	}, nil
}

// Aggregate fetches one source and groups its rows into (month,
// normalized channel) sums within the window. Zero or absent amounts
// never create pivot keys; raw labels that normalize to OTHER are
// retained with their month span and running sum for the audit surface.
func (a *Aggregator) Aggregate(ctx context.Context, cfg SourceConfig, window fiscal.Window) (*Pivot, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid source config: %w", err)
	}

	log := a.log.WithSource(cfg.ID.String())

	pivot := &Pivot{
		Source:  cfg.ID,
		Amounts: make(models.Amounts),
	}
	audit := newLabelAudit(cfg.ID)

	if cfg.Legacy {
		rows, err := a.store.FetchLegacyRows(ctx, cfg, window)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			month, _, ok := ResolveMonth(row, a.candidates)
			if !ok {
				pivot.SkippedRows++
				continue
			}
			if !window.Contains(month) {
				continue
			}
			a.accumulate(pivot, audit, month, row.ChannelLabel, row.Amount)
		}
		if pivot.SkippedRows > 0 {
			log.WithField("skipped_rows", pivot.SkippedRows).
				Warn("legacy rows with no resolvable month were excluded")
		}
	} else {
		rows, err := a.store.FetchMonthlyRows(ctx, cfg, window)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if !window.Contains(row.Month) {
				continue
			}
			a.accumulate(pivot, audit, row.Month, row.ChannelLabel, row.Amount)
		}
	}

	pivot.Unclassified = audit.labels()

	log.WithFields(logger.Fields{
		"cells":        len(pivot.Amounts),
		"unclassified": len(pivot.Unclassified),
	}).Debug("source aggregated")

	return pivot, nil
}

func (a *Aggregator) accumulate(pivot *Pivot, audit *labelAudit, month models.Month, rawLabel string, amount int64) {
	code := channel.Normalize(rawLabel)
	if code == channel.Other {
		audit.record(rawLabel, month, amount)
	}

	key := models.Key{Month: month, Channel: code}
	if amount == 0 {
		// Zero contributes nothing; keep the cell only if it exists.
		return
	}
	pivot.Amounts[key] = pivot.Amounts[key].Add(decimal.NewFromInt(amount))
}

// labelAudit tracks the raw labels a source normalized to OTHER.
type labelAudit struct {
	source models.SourceID
	seen   map[string]*models.UnclassifiedLabel
}

func newLabelAudit(source models.SourceID) *labelAudit {
	return &labelAudit{source: source, seen: make(map[string]*models.UnclassifiedLabel)}
}

func (la *labelAudit) record(rawLabel string, month models.Month, amount int64) {
	entry, ok := la.seen[rawLabel]
	if !ok {
		entry = &models.UnclassifiedLabel{
			Source:    la.source,
			RawLabel:  rawLabel,
			FirstSeen: month,
			LastSeen:  month,
			Total:     decimal.Zero,
		}
		la.seen[rawLabel] = entry
	}
	if month.Before(entry.FirstSeen) {
		entry.FirstSeen = month
	}
	if entry.LastSeen.Before(month) {
		entry.LastSeen = month
	}
	entry.Total = entry.Total.Add(decimal.NewFromInt(amount))
	entry.Rows++
}

// labels returns the audit entries sorted by raw label so output is
// reproducible regardless of row order.
func (la *labelAudit) labels() []models.UnclassifiedLabel {
	if len(la.seen) == 0 {
		return nil
	}
	out := make([]models.UnclassifiedLabel, 0, len(la.seen))
	for _, entry := range la.seen {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RawLabel < out[j].RawLabel })
	return out
}
