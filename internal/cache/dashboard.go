package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/cimillas/furniture-backoffice/internal/domain"
	"github.com/shopspring/decimal"
)

// DashboardSource produces a fresh dashboard snapshot.
type DashboardSource interface {
	DashboardSnapshot(ctx context.Context) (domain.Dashboard, error)
}

// DashboardCache serves snapshots from the cache for up to ttl. Cache errors
// never fail the request; the source is used instead.
type DashboardCache struct {
	source DashboardSource
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func NewDashboardCache(source DashboardSource, cache Cache, ttl time.Duration, now func() time.Time, logger *slog.Logger) *DashboardCache {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &DashboardCache{source: source, cache: cache, ttl: ttl, logger: logger, now: now}
}

type cachedDashboard struct {
	PendingCount    int             `json:"pending_count"`
	InProgressCount int             `json:"in_progress_count"`
	MonthRevenue    decimal.Decimal `json:"month_revenue"`
	MonthStart      time.Time       `json:"month_start"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

func (c *DashboardCache) DashboardSnapshot(ctx context.Context) (domain.Dashboard, error) {
	// Keyed by month so a rollover never serves last month's revenue.
	key := c.cache.GenerateKey("dashboard", c.now().Format("2006-01"))

	raw, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.WarnContext(ctx, "dashboard cache read failed", "error", err)
	}
	if raw != "" {
		var cached cachedDashboard
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			return domain.Dashboard(cached), nil
		}
		c.logger.WarnContext(ctx, "dashboard cache entry unreadable", "key", key)
	}

	dash, err := c.source.DashboardSnapshot(ctx)
	if err != nil {
		return domain.Dashboard{}, err
	}

	payload, err := json.Marshal(cachedDashboard(dash))
	if err != nil {
		return dash, nil
	}
	if err := c.cache.Set(ctx, key, payload, c.ttl); err != nil {
		c.logger.WarnContext(ctx, "dashboard cache write failed", "error", err)
	}
	return dash, nil
}
