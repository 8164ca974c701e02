package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Dashboard is the reporting snapshot shown on the back-office home page.
type Dashboard struct {
	PendingCount    int
	InProgressCount int
	MonthRevenue    decimal.Decimal
	MonthStart      time.Time
	GeneratedAt     time.Time
}
