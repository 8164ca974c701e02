package http

import (
	"context"
	"net/http"
	"time"

	"github.com/cimillas/furniture-backoffice/internal/domain"
	"github.com/shopspring/decimal"
)

type DashboardService interface {
	DashboardSnapshot(ctx context.Context) (domain.Dashboard, error)
}

// HandleDashboard returns the reporting snapshot.
func HandleDashboard(svc DashboardService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dash, err := svc.DashboardSnapshot(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, dashboardResponse{
			PendingCount:    dash.PendingCount,
			InProgressCount: dash.InProgressCount,
			MonthRevenue:    dash.MonthRevenue,
			MonthStart:      dash.MonthStart,
			GeneratedAt:     dash.GeneratedAt,
		})
	}
}

type dashboardResponse struct {
	PendingCount    int             `json:"pending_count"`
	InProgressCount int             `json:"in_progress_count"`
	MonthRevenue    decimal.Decimal `json:"month_revenue"`
	MonthStart      time.Time       `json:"month_start"`
	GeneratedAt     time.Time       `json:"generated_at"`
}
