package app

import (
	"context"
	"time"

	"github.com/cimillas/furniture-backoffice/internal/domain"
	"github.com/cimillas/furniture-backoffice/internal/events"
	"github.com/shopspring/decimal"
)

// Directory resolves clients. Implementations return domain.ErrClientNotFound
// for unknown ids; any other error means the directory is unavailable.
type Directory interface {
	GetClient(ctx context.Context, id int64) (domain.Client, error)
}

type OrderRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateOrder(ctx context.Context, order domain.Order) error
	AppendHistory(ctx context.Context, entry domain.HistoryEntry) error
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	GetOrderForUpdate(ctx context.Context, orderID string) (domain.Order, error)
	UpdateOrderState(ctx context.Context, orderID string, state domain.State, at time.Time) error
	UpdateOrderFields(ctx context.Context, order domain.Order) error
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
}

type SurveyRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetOrderForUpdate(ctx context.Context, orderID string) (domain.Order, error)
	GetSurveyByOrder(ctx context.Context, orderID string) (*domain.Survey, error)
	GetSurvey(ctx context.Context, surveyID string) (domain.Survey, error)
	GetSurveyForUpdate(ctx context.Context, surveyID string) (domain.Survey, error)
	CreateSurvey(ctx context.Context, survey domain.Survey) error
	UpdateSurvey(ctx context.Context, survey domain.Survey) error
	ListDeliveredWithoutSurvey(ctx context.Context) ([]domain.Order, error)
}

type ReportRepository interface {
	CountByState(ctx context.Context, state domain.State) (int, error)
	SumTotals(ctx context.Context, states []domain.State, from, to time.Time) (decimal.Decimal, error)
}

// Outbox stores events in the caller's transaction for later relay.
type Outbox interface {
	Enqueue(ctx context.Context, event events.Event) error
}

// Recorder receives lifecycle counters.
type Recorder interface {
	OrderCreated(state domain.State)
	OrderTransitioned(from, to domain.State)
	SurveyCreated()
}

type noopOutbox struct{}

func (noopOutbox) Enqueue(context.Context, events.Event) error { return nil }

type noopRecorder struct{}

func (noopRecorder) OrderCreated(domain.State)               {}
func (noopRecorder) OrderTransitioned(from, to domain.State) {}
func (noopRecorder) SurveyCreated()                          {}
