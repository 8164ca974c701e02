package app

import (
	"context"
	"fmt"
	"time"

	"github.com/cimillas/furniture-backoffice/internal/clock"
	"github.com/cimillas/furniture-backoffice/internal/domain"
	"github.com/cimillas/furniture-backoffice/internal/events"
	"github.com/cimillas/furniture-backoffice/internal/pricing"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("github.com/cimillas/furniture-backoffice/internal/app")

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

type OrderService struct {
	repo      OrderRepository
	directory Directory
	pricer    *pricing.Calculator
	clock     clock.Clock
	settings
}

func NewOrderService(repo OrderRepository, directory Directory, catalog pricing.Catalog, clk clock.Clock, opts ...Option) *OrderService {
	return &OrderService{
		repo:      repo,
		directory: directory,
		pricer:    pricing.NewCalculator(catalog),
		clock:     clk,
		settings:  applyOptions(opts),
	}
}

type CreateOrderInput struct {
	ClientID          int64
	Lines             []pricing.LineRequest
	InitialState      domain.State
	Deposit           *decimal.Decimal
	Description       string
	EstimatedDelivery *time.Time
}

// CreateOrder validates the client, prices the lines and stores the order with
// its lines and initial history entry in one transaction.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.CreateOrder")
	defer span.End()

	state := domain.DefaultInitialState
	if in.InitialState != "" {
		if !in.InitialState.Valid() {
			return domain.Order{}, domain.ErrInvalidState
		}
		if !in.InitialState.CanStart() {
			return domain.Order{}, domain.ErrInvalidInitialState
		}
		state = in.InitialState
	}
	deposit := decimal.Zero
	if in.Deposit != nil {
		deposit = *in.Deposit
	}
	if err := domain.CheckDeposit(deposit); err != nil {
		return domain.Order{}, err
	}
	if len(in.Lines) == 0 {
		return domain.Order{}, domain.ErrEmptyOrder
	}

	quote, err := s.resolve(ctx, in.ClientID, in.Lines)
	if err != nil {
		return domain.Order{}, err
	}
	if s.depositCap && deposit.GreaterThan(quote.Total) {
		return domain.Order{}, domain.ErrDepositExceedsTotal
	}

	now := s.now()
	order := domain.Order{
		ID:                newID(),
		ClientID:          in.ClientID,
		State:             state,
		TotalCost:         quote.Total,
		Deposit:           deposit,
		Description:       in.Description,
		EstimatedDelivery: in.EstimatedDelivery,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	for _, line := range quote.Lines {
		line.ID = newID()
		line.OrderID = order.ID
		order.Lines = append(order.Lines, line)
	}
	order.History = []domain.HistoryEntry{{
		ID:        newID(),
		OrderID:   order.ID,
		State:     state,
		CreatedAt: now,
	}}

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.CreateOrder(txCtx, order); err != nil {
			return err
		}
		if err := s.repo.AppendHistory(txCtx, order.History[0]); err != nil {
			return err
		}
		return s.outbox.Enqueue(txCtx, events.OrderCreated(order))
	})
	if err != nil {
		s.logFailure(ctx, "create order", err)
		return domain.Order{}, err
	}

	span.SetAttributes(attribute.String("order.id", order.ID))
	s.recorder.OrderCreated(state)
	s.logger.InfoContext(ctx, "order created",
		"order_id", order.ID,
		"client_id", order.ClientID,
		"state", order.State,
		"total_cost", order.TotalCost.String(),
	)
	return order, nil
}

// resolve runs the directory and catalog lookups before any write.
func (s *OrderService) resolve(ctx context.Context, clientID int64, lines []pricing.LineRequest) (pricing.Quote, error) {
	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()

	client, err := s.directory.GetClient(gctx, clientID)
	if err != nil {
		if _, ok := domain.AsError(err); ok {
			return pricing.Quote{}, err
		}
		return pricing.Quote{}, fmt.Errorf("%w: client %d: %w", domain.ErrDependencyUnavailable, clientID, err)
	}
	if client.Role != domain.RoleClient {
		return pricing.Quote{}, domain.ErrInvalidRole
	}
	return s.pricer.Calculate(gctx, lines)
}

// TransitionState moves the order to newState and appends one history entry.
// The order row stays locked for the duration of the transaction, so concurrent
// transitions of the same order are applied one after the other.
func (s *OrderService) TransitionState(ctx context.Context, orderID string, newState domain.State) (domain.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.TransitionState")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID), attribute.String("order.state", string(newState)))

	if !newState.Valid() {
		return domain.Order{}, domain.ErrInvalidState
	}

	var (
		result domain.Order
		from   domain.State
	)
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		current, err := s.repo.GetOrderForUpdate(txCtx, orderID)
		if err != nil {
			return err
		}
		from = current.State
		if err := domain.CheckTransition(s.policy, from, newState); err != nil {
			return err
		}

		now := s.now()
		if err := s.repo.UpdateOrderState(txCtx, orderID, newState, now); err != nil {
			return err
		}
		entry := domain.HistoryEntry{
			ID:        newID(),
			OrderID:   orderID,
			State:     newState,
			CreatedAt: now,
		}
		if err := s.repo.AppendHistory(txCtx, entry); err != nil {
			return err
		}
		if err := s.outbox.Enqueue(txCtx, events.OrderStateChanged(orderID, from, newState, now)); err != nil {
			return err
		}

		result, err = s.repo.GetOrder(txCtx, orderID)
		return err
	})
	if err != nil {
		s.logFailure(ctx, "transition order", err)
		return domain.Order{}, err
	}

	s.recorder.OrderTransitioned(from, newState)
	s.logger.InfoContext(ctx, "order state changed", "order_id", orderID, "from", from, "to", newState)
	return result, nil
}

// CancelOrder is TransitionState to cancelled. Orders are never deleted.
func (s *OrderService) CancelOrder(ctx context.Context, orderID string) (domain.Order, error) {
	return s.TransitionState(ctx, orderID, domain.StateCancelled)
}

// UpdateOrderFields changes descriptive fields only. State, total and lines are
// never touched.
func (s *OrderService) UpdateOrderFields(ctx context.Context, orderID string, patch domain.OrderPatch) (domain.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.UpdateOrderFields")
	defer span.End()

	if patch.Deposit.Set {
		if err := domain.CheckDeposit(patch.Deposit.Value); err != nil {
			return domain.Order{}, err
		}
	}
	if patch.Empty() {
		return s.GetOrder(ctx, orderID)
	}

	var result domain.Order
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		order, err := s.repo.GetOrderForUpdate(txCtx, orderID)
		if err != nil {
			return err
		}
		patch.Apply(&order)
		if s.depositCap && order.Deposit.GreaterThan(order.TotalCost) {
			return domain.ErrDepositExceedsTotal
		}
		order.UpdatedAt = s.now()
		if err := s.repo.UpdateOrderFields(txCtx, order); err != nil {
			return err
		}
		if err := s.outbox.Enqueue(txCtx, events.OrderUpdated(order)); err != nil {
			return err
		}
		result, err = s.repo.GetOrder(txCtx, orderID)
		return err
	})
	if err != nil {
		s.logFailure(ctx, "update order", err)
		return domain.Order{}, err
	}
	return result, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		s.logFailure(ctx, "get order", err)
		return domain.Order{}, err
	}
	return order, nil
}

// ListOrders returns matching orders newest first.
func (s *OrderService) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	if filter.State != nil && !filter.State.Valid() {
		return nil, domain.ErrInvalidState
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultListLimit
	case filter.Limit > maxListLimit:
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	orders, err := s.repo.ListOrders(ctx, filter)
	if err != nil {
		s.logFailure(ctx, "list orders", err)
		return nil, err
	}
	return orders, nil
}

// now truncates to the storage precision so returned values match reads.
func (s *OrderService) now() time.Time {
	return s.clock.Now().Truncate(time.Microsecond)
}

func (s settings) logFailure(ctx context.Context, op string, err error) {
	if domain.KindOf(err) != domain.KindInternal {
		return
	}
	s.logger.ErrorContext(ctx, op+" failed", "error", err)
}
