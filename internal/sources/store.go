package sources

import (
	"context"
	"fmt"
	"time"

	"sales-reconciliation-service/internal/fiscal"
	"sales-reconciliation-service/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// MonthlyRow is one SQL-aggregated (month, raw channel) amount from a
// modern source. Amounts are whole yen.
type MonthlyRow struct {
	Month        models.Month
	ChannelLabel string
	Amount       int64
}

// Store is the read-only storage collaborator the engine reconciles over.
// It is injected into every aggregator; there is no process-wide implicit
// connection state. The engine never writes through it.
type Store interface {
	// FetchMonthlyRows returns a modern source's rows grouped by
	// (effective month, raw channel label) within the window.
	FetchMonthlyRows(ctx context.Context, cfg SourceConfig, window fiscal.Window) ([]MonthlyRow, error)

	// FetchLegacyRows returns a legacy source's raw rows with their
	// month candidate columns intact; the caller probes and
	// window-filters them.
	FetchLegacyRows(ctx context.Context, cfg SourceConfig, window fiscal.Window) ([]LegacyRow, error)

	// FetchMonthTotals returns the independently stated per-month
	// totals the invariant checker verifies against.
	FetchMonthTotals(ctx context.Context, window fiscal.Window) (map[models.Month]decimal.Decimal, error)

	// FetchTargets returns the per-month sales targets for the
	// achievement report.
	FetchTargets(ctx context.Context, window fiscal.Window) (map[models.Month]decimal.Decimal, error)
}

// DB is the slice of a pgx pool the store needs. *pgxpool.Pool satisfies
// it.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore reads the source tables over pgx.
type PostgresStore struct {
	db DB
}

// NewPostgresStore creates a store on an injected connection pool.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// FetchMonthlyRows range-filters and groups a modern source in SQL.
// Identifiers are interpolated from code-owned SourceConfigs, never from
// caller input; the window bounds travel as parameters.
func (s *PostgresStore) FetchMonthlyRows(ctx context.Context, cfg SourceConfig, window fiscal.Window) ([]MonthlyRow, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Legacy {
		return nil, fmt.Errorf("source %s is legacy, use FetchLegacyRows", cfg.ID)
	}

	query := fmt.Sprintf(
		`SELECT %s::date, %s, COALESCE(SUM(%s), 0)::bigint
		 FROM %s
		 WHERE %s >= $1 AND %s < $2
		 GROUP BY 1, 2`,
		cfg.MonthColumn, cfg.ChannelColumn, cfg.AmountColumn,
		cfg.Table, cfg.MonthColumn, cfg.MonthColumn,
	)

	rows, err := s.db.Query(ctx, query, window.Start.Time(), window.End.Time())
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", cfg.Table, err)
	}
	defer rows.Close()

	var out []MonthlyRow
	for rows.Next() {
		var (
			month time.Time
			row   MonthlyRow
		)
		if err := rows.Scan(&month, &row.ChannelLabel, &row.Amount); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", cfg.Table, err)
		}
		row.Month = models.MonthOf(month)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", cfg.Table, err)
	}
	return out, nil
}

// FetchLegacyRows fetches a legacy source's rows with every month
// candidate column. No SQL month filter: the drifted schemas have no
// single trustworthy date column, so the effective month is probed and
// window-filtered in Go.
func (s *PostgresStore) FetchLegacyRows(ctx context.Context, cfg SourceConfig, window fiscal.Window) ([]LegacyRow, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.Legacy {
		return nil, fmt.Errorf("source %s is not legacy, use FetchMonthlyRows", cfg.ID)
	}

	query := fmt.Sprintf(
		`SELECT %s, COALESCE(%s, ''), COALESCE(%s, ''), %s, COALESCE(%s, 0)::bigint
		 FROM %s`,
		cfg.ChannelColumn, cfg.MonthTextColumn, cfg.YearMonthColumn,
		cfg.RecordedAtColumn, cfg.AmountColumn, cfg.Table,
	)

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", cfg.Table, err)
	}
	defer rows.Close()

	var out []LegacyRow
	for rows.Next() {
		var row LegacyRow
		if err := rows.Scan(&row.ChannelLabel, &row.MonthText, &row.YearMonth, &row.RecordedAt, &row.Amount); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", cfg.Table, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s rows: %w", cfg.Table, err)
	}
	return out, nil
}

// FetchMonthTotals reads the stated per-month totals table.
func (s *PostgresStore) FetchMonthTotals(ctx context.Context, window fiscal.Window) (map[models.Month]decimal.Decimal, error) {
	return s.fetchMonthAmounts(ctx, window,
		`SELECT total_month::date, total_amount_yen::bigint
		 FROM sales_month_totals
		 WHERE total_month >= $1 AND total_month < $2`)
}

// FetchTargets reads the per-month sales targets table.
func (s *PostgresStore) FetchTargets(ctx context.Context, window fiscal.Window) (map[models.Month]decimal.Decimal, error) {
	return s.fetchMonthAmounts(ctx, window,
		`SELECT target_month::date, target_amount_yen::bigint
		 FROM sales_targets
		 WHERE target_month >= $1 AND target_month < $2`)
}

func (s *PostgresStore) fetchMonthAmounts(ctx context.Context, window fiscal.Window, query string) (map[models.Month]decimal.Decimal, error) {
	rows, err := s.db.Query(ctx, query, window.Start.Time(), window.End.Time())
	if err != nil {
		return nil, fmt.Errorf("query month amounts: %w", err)
	}
	defer rows.Close()

	out := make(map[models.Month]decimal.Decimal)
	for rows.Next() {
		var (
			month  time.Time
			amount int64
		)
		if err := rows.Scan(&month, &amount); err != nil {
			return nil, fmt.Errorf("scan month amount: %w", err)
		}
		out[models.MonthOf(month)] = decimal.NewFromInt(amount)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate month amounts: %w", err)
	}
	return out, nil
}
