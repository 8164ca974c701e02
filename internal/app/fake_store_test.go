package app

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/cimillas/furniture-backoffice/internal/domain"
	"github.com/cimillas/furniture-backoffice/internal/events"
	"github.com/shopspring/decimal"
)

type fakeTxKey struct{}

// fakeStore is an in-memory order store. WithTx holds a single lock for the
// whole transaction and restores the previous contents when fn fails.
type fakeStore struct {
	mu      sync.Mutex
	orders  map[string]domain.Order
	lines   map[string][]domain.LineItem
	history map[string][]domain.HistoryEntry
	surveys map[string]domain.Survey
	events  []events.Event

	failAppendHistory error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:  make(map[string]domain.Order),
		lines:   make(map[string][]domain.LineItem),
		history: make(map[string][]domain.HistoryEntry),
		surveys: make(map[string]domain.Survey),
	}
}

func (f *fakeStore) lock(ctx context.Context) func() {
	if ctx.Value(fakeTxKey{}) != nil {
		return func() {}
	}
	f.mu.Lock()
	return f.mu.Unlock
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(fakeTxKey{}) != nil {
		return fn(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	snapshot := f.clone()
	if err := fn(context.WithValue(ctx, fakeTxKey{}, true)); err != nil {
		f.restore(snapshot)
		return err
	}
	return nil
}

func (f *fakeStore) clone() *fakeStore {
	c := newFakeStore()
	for k, v := range f.orders {
		c.orders[k] = v
	}
	for k, v := range f.lines {
		c.lines[k] = append([]domain.LineItem(nil), v...)
	}
	for k, v := range f.history {
		c.history[k] = append([]domain.HistoryEntry(nil), v...)
	}
	for k, v := range f.surveys {
		c.surveys[k] = v
	}
	c.events = append([]events.Event(nil), f.events...)
	return c
}

func (f *fakeStore) restore(c *fakeStore) {
	f.orders, f.lines, f.history, f.surveys, f.events = c.orders, c.lines, c.history, c.surveys, c.events
}

func (f *fakeStore) CreateOrder(ctx context.Context, order domain.Order) error {
	defer f.lock(ctx)()
	f.addOrderLines(order)
	order.Lines, order.History = nil, nil
	f.orders[order.ID] = order
	return nil
}

func (f *fakeStore) addOrderLines(order domain.Order) {
	f.lines[order.ID] = append(f.lines[order.ID], order.Lines...)
}

func (f *fakeStore) AppendHistory(ctx context.Context, entry domain.HistoryEntry) error {
	defer f.lock(ctx)()
	if f.failAppendHistory != nil {
		return f.failAppendHistory
	}
	f.history[entry.OrderID] = append(f.history[entry.OrderID], entry)
	return nil
}

func (f *fakeStore) hydrate(o domain.Order) domain.Order {
	o.Lines = append([]domain.LineItem(nil), f.lines[o.ID]...)
	o.History = append([]domain.HistoryEntry(nil), f.history[o.ID]...)
	return o
}

func (f *fakeStore) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	defer f.lock(ctx)()
	o, ok := f.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return f.hydrate(o), nil
}

func (f *fakeStore) GetOrderForUpdate(ctx context.Context, orderID string) (domain.Order, error) {
	defer f.lock(ctx)()
	o, ok := f.orders[orderID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeStore) UpdateOrderState(ctx context.Context, orderID string, state domain.State, at time.Time) error {
	defer f.lock(ctx)()
	o, ok := f.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.State = state
	o.UpdatedAt = at
	f.orders[orderID] = o
	return nil
}

func (f *fakeStore) UpdateOrderFields(ctx context.Context, order domain.Order) error {
	defer f.lock(ctx)()
	o, ok := f.orders[order.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Description = order.Description
	o.Deposit = order.Deposit
	o.EstimatedDelivery = order.EstimatedDelivery
	o.UpdatedAt = order.UpdatedAt
	f.orders[order.ID] = o
	return nil
}

func (f *fakeStore) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	defer f.lock(ctx)()
	var out []domain.Order
	for _, o := range f.orders {
		if filter.State != nil && o.State != *filter.State {
			continue
		}
		if filter.ClientID != nil && o.ClientID != *filter.ClientID {
			continue
		}
		if filter.CreatedFrom != nil && o.CreatedAt.Before(*filter.CreatedFrom) {
			continue
		}
		if filter.CreatedTo != nil && o.CreatedAt.After(*filter.CreatedTo) {
			continue
		}
		out = append(out, f.hydrate(o))
	}
	sortNewestFirst(out)
	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func sortNewestFirst(orders []domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID > orders[j].ID
		}
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}

func (f *fakeStore) Enqueue(ctx context.Context, event events.Event) error {
	defer f.lock(ctx)()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeStore) GetSurveyByOrder(ctx context.Context, orderID string) (*domain.Survey, error) {
	defer f.lock(ctx)()
	for _, s := range f.surveys {
		if s.OrderID == orderID {
			s := s
			return &s, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetSurvey(ctx context.Context, surveyID string) (domain.Survey, error) {
	defer f.lock(ctx)()
	s, ok := f.surveys[surveyID]
	if !ok {
		return domain.Survey{}, domain.ErrSurveyNotFound
	}
	return s, nil
}

func (f *fakeStore) GetSurveyForUpdate(ctx context.Context, surveyID string) (domain.Survey, error) {
	return f.GetSurvey(ctx, surveyID)
}

func (f *fakeStore) CreateSurvey(ctx context.Context, survey domain.Survey) error {
	defer f.lock(ctx)()
	for _, s := range f.surveys {
		if s.OrderID == survey.OrderID {
			return domain.ErrSurveyAlreadyExists
		}
	}
	f.surveys[survey.ID] = survey
	return nil
}

func (f *fakeStore) UpdateSurvey(ctx context.Context, survey domain.Survey) error {
	defer f.lock(ctx)()
	if _, ok := f.surveys[survey.ID]; !ok {
		return domain.ErrSurveyNotFound
	}
	f.surveys[survey.ID] = survey
	return nil
}

func (f *fakeStore) ListDeliveredWithoutSurvey(ctx context.Context) ([]domain.Order, error) {
	defer f.lock(ctx)()
	surveyed := make(map[string]bool)
	for _, s := range f.surveys {
		surveyed[s.OrderID] = true
	}
	var out []domain.Order
	for _, o := range f.orders {
		if o.State == domain.StateDelivered && !surveyed[o.ID] {
			out = append(out, f.hydrate(o))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (f *fakeStore) CountByState(ctx context.Context, state domain.State) (int, error) {
	defer f.lock(ctx)()
	n := 0
	for _, o := range f.orders {
		if o.State == state {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) SumTotals(ctx context.Context, states []domain.State, from, to time.Time) (decimal.Decimal, error) {
	defer f.lock(ctx)()
	sum := decimal.Zero
	for _, o := range f.orders {
		if o.CreatedAt.Before(from) || !o.CreatedAt.Before(to) {
			continue
		}
		for _, s := range states {
			if o.State == s {
				sum = sum.Add(o.TotalCost)
				break
			}
		}
	}
	return sum, nil
}

// seedOrder stores an order directly, bypassing the service.
func (f *fakeStore) seedOrder(o domain.Order) domain.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[o.ID] = o
	f.addOrderLines(o)
	f.history[o.ID] = append(f.history[o.ID], domain.HistoryEntry{
		ID: o.ID + "-h0", OrderID: o.ID, State: o.State, CreatedAt: o.CreatedAt,
	})
	return o
}

func (f *fakeStore) orderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

type fakeDirectory struct {
	clients map[int64]domain.Client
	err     error
	block   bool
}

func (d *fakeDirectory) GetClient(ctx context.Context, id int64) (domain.Client, error) {
	if d.block {
		<-ctx.Done()
		return domain.Client{}, ctx.Err()
	}
	if d.err != nil {
		return domain.Client{}, d.err
	}
	c, ok := d.clients[id]
	if !ok {
		return domain.Client{}, domain.ErrClientNotFound
	}
	return c, nil
}

type fakeCatalog struct {
	products map[int64]domain.Product
}

func (c *fakeCatalog) GetProduct(_ context.Context, id int64) (domain.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{clients: map[int64]domain.Client{
		10: {ID: 10, Role: domain.RoleClient},
		11: {ID: 11, Role: domain.RoleClient},
		20: {ID: 20, Role: "seller"},
	}}
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{products: map[int64]domain.Product{
		5: {ID: 5, Name: "Sofa", Active: true, SalePrice: decimal.NewFromInt(1000)},
		6: {ID: 6, Name: "Bookshelf", Active: true, SalePrice: decimal.RequireFromString("350.50")},
		9: {ID: 9, Name: "Discontinued lamp", Active: false, SalePrice: decimal.NewFromInt(80)},
	}}
}

var errDiskFull = errors.New("disk full")

type countingRecorder struct {
	mu          sync.Mutex
	created     int
	transitions int
	surveys     int
}

func (r *countingRecorder) OrderCreated(domain.State) {
	r.mu.Lock()
	r.created++
	r.mu.Unlock()
}

func (r *countingRecorder) OrderTransitioned(_, _ domain.State) {
	r.mu.Lock()
	r.transitions++
	r.mu.Unlock()
}

func (r *countingRecorder) SurveyCreated() {
	r.mu.Lock()
	r.surveys++
	r.mu.Unlock()
}
