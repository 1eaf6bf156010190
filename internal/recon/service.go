package recon

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"sales-reconciliation-service/internal/fiscal"
	"sales-reconciliation-service/internal/models"
	"sales-reconciliation-service/internal/sources"
	"sales-reconciliation-service/internal/unifier"
	apperrors "sales-reconciliation-service/pkg/errors"
	"sales-reconciliation-service/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc/pool"
)

// Config holds configuration options for the reconciliation service.
type Config struct {
	// FiscalStartMonth is the month the fiscal year begins in.
	FiscalStartMonth time.Month

	// QueryTimeout bounds one full concurrent fetch phase.
	QueryTimeout time.Duration
}

// DefaultConfig returns the default service configuration.
func DefaultConfig() *Config {
	return &Config{
		FiscalStartMonth: fiscal.DefaultStartMonth,
		QueryTimeout:     30 * time.Second,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.FiscalStartMonth < time.January || c.FiscalStartMonth > time.December {
		return fmt.Errorf("fiscal start month must be 1..12, got %d", c.FiscalStartMonth)
	}
	if c.QueryTimeout <= 0 {
		return fmt.Errorf("query timeout must be positive, got %s", c.QueryTimeout)
	}
	return nil
}

// Service runs request-scoped reconciliations. It holds no mutable state
// across runs: every result is recomputed from current store contents and
// the caller-supplied reference date.
type Service struct {
	aggregator *sources.Aggregator
	store      sources.Store
	chain      []sources.SourceConfig
	unifiedCfg sources.SourceConfig
	config     *Config
	log        logger.Logger
}

// Result is one complete reconciliation run. It is a pure function of the
// source tables and the reference date: unchanged inputs reproduce it
// exactly.
type Result struct {
	Window fiscal.Window `json:"window"`

	// Resolved is the precedence-resolved, provenance-tagged grid.
	Resolved *unifier.UnifiedPivot `json:"resolved"`

	// SourcePivots are the per-source inputs in priority order.
	SourcePivots []*sources.Pivot `json:"source_pivots,omitempty"`

	// StoredUnifiedDiff is stored unified table minus fresh resolution;
	// non-empty means the materialized table is stale.
	StoredUnifiedDiff []models.DiffRecord `json:"stored_unified_diff,omitempty"`

	// PipelineDiff is final minus computed, the divergence between the
	// two computation pipelines that are expected to agree.
	PipelineDiff []models.DiffRecord `json:"pipeline_diff,omitempty"`

	// Unclassified aggregates every source's OTHER-label audit. It is
	// attached to every result regardless of whether diffs exist.
	Unclassified []models.UnclassifiedLabel `json:"unclassified,omitempty"`

	// MonthTotals are the stated totals the invariant was checked
	// against; Targets feed the achievement report.
	MonthTotals map[models.Month]decimal.Decimal `json:"month_totals"`
	Targets     map[models.Month]decimal.Decimal `json:"targets"`
}

// NewService creates a reconciliation service over the injected store.
func NewService(store sources.Store, config *Config, log logger.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	aggregator, err := sources.NewAggregator(store, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create aggregator: %w", err)
	}

	return &Service{
		aggregator: aggregator,
		store:      store,
		chain:      sources.ChainConfigs(),
		unifiedCfg: sources.UnifiedConfig(),
		config:     config,
		log:        log.WithComponent("recon_service"),
	}, nil
}

// Run performs one complete reconciliation for the fiscal window
// containing the reference date: concurrent source aggregation behind a
// join barrier, precedence resolution, the channel-sum invariant check,
// and the standing diffs. Any source failure aborts the whole run with an
// error naming the source; partial results are never unified.
func (s *Service) Run(ctx context.Context, ref time.Time) (*Result, error) {
	window := fiscal.WindowFor(ref, s.config.FiscalStartMonth)
	log := s.log.WithField("window", window.Label)
	log.Info("starting reconciliation run")

	ctx, cancel := context.WithTimeout(ctx, s.config.QueryTimeout)
	defer cancel()

	var (
		chainPivots = make([]*sources.Pivot, len(s.chain))
		storedPivot *sources.Pivot
		monthTotals map[models.Month]decimal.Decimal
		targets     map[models.Month]decimal.Decimal
	)

	// Join barrier: all fetches complete or the first failure cancels
	// the rest and aborts the run.
	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()

	for i, cfg := range s.chain {
		i, cfg := i, cfg
		p.Go(func(ctx context.Context) error {
			pivot, err := s.aggregator.Aggregate(ctx, cfg, window)
			if err != nil {
				return sourceError(cfg.ID.String(), err)
			}
			chainPivots[i] = pivot
			return nil
		})
	}
	p.Go(func(ctx context.Context) error {
		pivot, err := s.aggregator.Aggregate(ctx, s.unifiedCfg, window)
		if err != nil {
			return sourceError(s.unifiedCfg.ID.String(), err)
		}
		storedPivot = pivot
		return nil
	})
	p.Go(func(ctx context.Context) error {
		totals, err := s.store.FetchMonthTotals(ctx, window)
		if err != nil {
			return sourceError("month_totals", err)
		}
		monthTotals = totals
		return nil
	})
	p.Go(func(ctx context.Context) error {
		t, err := s.store.FetchTargets(ctx, window)
		if err != nil {
			return sourceError("targets", err)
		}
		targets = t
		return nil
	})

	if err := p.Wait(); err != nil {
		log.WithError(err).Error("reconciliation run aborted")
		return nil, err
	}

	resolved := unifier.Resolve(window, chainPivots)

	// The invariant gates everything downstream: a result that fails it
	// never reaches a presentation layer.
	if err := AssertChannelSums(resolved, monthTotals); err != nil {
		log.WithError(err).Error("channel-sum invariant violated")
		return nil, err
	}

	result := &Result{
		Window:            window,
		Resolved:          resolved,
		SourcePivots:      chainPivots,
		StoredUnifiedDiff: Diff(storedPivot.Amounts, resolved.Amounts()),
		PipelineDiff:      Diff(pivotAmounts(chainPivots, models.SourceFinal), pivotAmounts(chainPivots, models.SourceComputed)),
		Unclassified:      collectUnclassified(append(chainPivots, storedPivot)),
		MonthTotals:       monthTotals,
		Targets:           targets,
	}

	log.WithFields(logger.Fields{
		"stored_unified_diffs": len(result.StoredUnifiedDiff),
		"pipeline_diffs":       len(result.PipelineDiff),
		"unclassified_labels":  len(result.Unclassified),
	}).Info("reconciliation run completed")

	return result, nil
}

// sourceError classifies a fetch failure, distinguishing timeouts from
// plain query failures, and tags the failed source.
func sourceError(source string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.SourceError(apperrors.CodeSourceTimeout, source, err)
	}
	return apperrors.SourceError(apperrors.CodeQueryFailed, source, err)
}

func pivotAmounts(pivots []*sources.Pivot, id models.SourceID) models.Amounts {
	for _, p := range pivots {
		if p != nil && p.Source == id {
			return p.Amounts
		}
	}
	return models.Amounts{}
}

// collectUnclassified merges the per-source audits into one list ordered
// by source then raw label.
func collectUnclassified(pivots []*sources.Pivot) []models.UnclassifiedLabel {
	var out []models.UnclassifiedLabel
	for _, p := range pivots {
		if p != nil {
			out = append(out, p.Unclassified...)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].RawLabel < out[j].RawLabel
	})
	return out
}
