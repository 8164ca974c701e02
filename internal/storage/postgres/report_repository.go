package postgres

import (
	"context"
	"time"

	"github.com/cimillas/furniture-backoffice/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ReportRepository runs the aggregate reads behind the dashboard.
type ReportRepository struct {
	conn
}

func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{conn: conn{pool: pool}}
}

func (r *ReportRepository) CountByState(ctx context.Context, state domain.State) (int, error) {
	var n int
	if err := r.queryRow(ctx, `SELECT COUNT(*) FROM orders WHERE state = $1`, state).Scan(&n); err != nil {
		return 0, wrap("count orders", err)
	}
	return n, nil
}

// SumTotals sums total_cost over orders in states created in [from, to).
func (r *ReportRepository) SumTotals(ctx context.Context, states []domain.State, from, to time.Time) (decimal.Decimal, error) {
	names := make([]string, len(states))
	for i, s := range states {
		names[i] = string(s)
	}

	const query = `
SELECT COALESCE(SUM(total_cost), 0)
FROM orders
WHERE state = ANY($1::text[])
  AND created_at >= $2
  AND created_at < $3`

	var sum decimal.Decimal
	if err := r.queryRow(ctx, query, names, from, to).Scan(&sum); err != nil {
		return decimal.Zero, wrap("sum order totals", err)
	}
	return sum, nil
}
