package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a customer engagement tracked through the lifecycle states.
type Order struct {
	ID                string
	ClientID          int64
	State             State
	TotalCost         decimal.Decimal
	Deposit           decimal.Decimal
	Description       string
	EstimatedDelivery *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time

	Lines   []LineItem
	History []HistoryEntry
}

// LineItem is one product entry. UnitPrice is a snapshot taken at creation.
type LineItem struct {
	ID            string
	OrderID       string
	ProductID     int64
	Quantity      int
	UnitPrice     decimal.Decimal
	Total         decimal.Decimal
	Specification string
}

// HistoryEntry records a state the order moved into. Entries are append-only.
type HistoryEntry struct {
	ID        string
	OrderID   string
	State     State
	CreatedAt time.Time
}

// LinesTotal sums the totals of all lines.
func (o Order) LinesTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.Lines {
		total = total.Add(line.Total)
	}
	return total
}

// LastHistory returns the most recent history entry.
func (o Order) LastHistory() (HistoryEntry, bool) {
	if len(o.History) == 0 {
		return HistoryEntry{}, false
	}
	return o.History[len(o.History)-1], true
}

// OrderFilter narrows ListOrders. Nil fields are ignored; the rest combine with AND.
type OrderFilter struct {
	State       *State
	ClientID    *int64
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// OrderPatch carries the descriptive fields an update may change.
type OrderPatch struct {
	Description       Optional[string]
	Deposit           Optional[decimal.Decimal]
	EstimatedDelivery Optional[*time.Time]
}

func (p OrderPatch) Empty() bool {
	return !p.Description.Set && !p.Deposit.Set && !p.EstimatedDelivery.Set
}

// Apply copies the present fields onto o.
func (p OrderPatch) Apply(o *Order) {
	if p.Description.Set {
		o.Description = p.Description.Value
	}
	if p.Deposit.Set {
		o.Deposit = p.Deposit.Value
	}
	if p.EstimatedDelivery.Set {
		o.EstimatedDelivery = p.EstimatedDelivery.Value
	}
}
