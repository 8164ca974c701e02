package app

import (
	"context"
	"fmt"

	"github.com/cimillas/furniture-backoffice/internal/clock"
	"github.com/cimillas/furniture-backoffice/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ReportService computes dashboard figures. The three figures come from
// independent reads and may disagree under concurrent writes.
type ReportService struct {
	repo  ReportRepository
	clock clock.Clock
}

func NewReportService(repo ReportRepository, clk clock.Clock) *ReportService {
	return &ReportService{repo: repo, clock: clk}
}

func (s *ReportService) DashboardSnapshot(ctx context.Context) (domain.Dashboard, error) {
	ctx, span := tracer.Start(ctx, "ReportService.DashboardSnapshot")
	defer span.End()

	now := s.clock.Now()
	monthStart, nextMonth := clock.MonthBounds(now)

	var (
		pending, inProgress int
		revenue             decimal.Decimal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.repo.CountByState(gctx, domain.StatePending)
		if err != nil {
			return fmt.Errorf("count pending: %w", err)
		}
		pending = n
		return nil
	})
	g.Go(func() error {
		n, err := s.repo.CountByState(gctx, domain.StateInProgress)
		if err != nil {
			return fmt.Errorf("count in progress: %w", err)
		}
		inProgress = n
		return nil
	})
	g.Go(func() error {
		sum, err := s.repo.SumTotals(gctx, domain.RevenueStates(), monthStart, nextMonth)
		if err != nil {
			return fmt.Errorf("sum month revenue: %w", err)
		}
		revenue = sum
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.Dashboard{}, err
	}

	return domain.Dashboard{
		PendingCount:    pending,
		InProgressCount: inProgress,
		MonthRevenue:    revenue,
		MonthStart:      monthStart,
		GeneratedAt:     now,
	}, nil
}
