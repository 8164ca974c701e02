package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cimillas/furniture-backoffice/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	orderColumns = `id, client_id, state, total_cost, deposit, description, estimated_delivery, created_at, updated_at`

	fkOrderClient = "orders_client_id_fkey"
	fkLineProduct = "order_lines_product_id_fkey"
)

type OrderRepository struct {
	conn
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{conn: conn{pool: pool}}
}

func (r *OrderRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// CreateOrder inserts the order row and its lines. History is appended
// separately through AppendHistory.
func (r *OrderRepository) CreateOrder(ctx context.Context, order domain.Order) error {
	const stmt = `
INSERT INTO orders (` + orderColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.exec(ctx, stmt,
		order.ID, order.ClientID, order.State, order.TotalCost, order.Deposit,
		order.Description, order.EstimatedDelivery, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err, fkOrderClient) {
			return domain.ErrClientNotFound
		}
		return wrap("create order", err)
	}

	const lineStmt = `
INSERT INTO order_lines (id, order_id, product_id, quantity, unit_price, total, specification)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, line := range order.Lines {
		_, err := r.exec(ctx, lineStmt,
			line.ID, order.ID, line.ProductID, line.Quantity, line.UnitPrice, line.Total, line.Specification,
		)
		if err != nil {
			if isForeignKeyViolation(err, fkLineProduct) {
				return domain.ErrProductNotFound
			}
			return wrap("create order line", err)
		}
	}
	return nil
}

func (r *OrderRepository) AppendHistory(ctx context.Context, entry domain.HistoryEntry) error {
	const stmt = `
INSERT INTO order_history (id, order_id, state, created_at)
VALUES ($1, $2, $3, $4)`

	_, err := r.exec(ctx, stmt, entry.ID, entry.OrderID, entry.State, entry.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err, "") {
			return domain.ErrOrderNotFound
		}
		return wrap("append history", err)
	}
	return nil
}

// GetOrder returns the order with its lines and full history.
func (r *OrderRepository) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	return getOrder(ctx, r.conn, orderID)
}

// GetOrderForUpdate locks the order row until the surrounding transaction
// ends. Lines and history are not loaded.
func (r *OrderRepository) GetOrderForUpdate(ctx context.Context, orderID string) (domain.Order, error) {
	return getOrderForUpdate(ctx, r.conn, orderID)
}

func (r *OrderRepository) UpdateOrderState(ctx context.Context, orderID string, state domain.State, at time.Time) error {
	const stmt = `UPDATE orders SET state = $2, updated_at = $3 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, orderID, state, at)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrOrderNotFound
		}
		return wrap("update order state", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *OrderRepository) UpdateOrderFields(ctx context.Context, order domain.Order) error {
	const stmt = `
UPDATE orders
SET description = $2, deposit = $3, estimated_delivery = $4, updated_at = $5
WHERE id = $1`

	tag, err := r.exec(ctx, stmt, order.ID, order.Description, order.Deposit, order.EstimatedDelivery, order.UpdatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrOrderNotFound
		}
		return wrap("update order fields", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// ListOrders applies the filter with AND semantics, newest first.
func (r *OrderRepository) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.State != nil {
		add("state = $%d", *filter.State)
	}
	if filter.ClientID != nil {
		add("client_id = $%d", *filter.ClientID)
	}
	if filter.CreatedFrom != nil {
		add("created_at >= $%d", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		add("created_at <= $%d", *filter.CreatedTo)
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + orderColumns + " FROM orders")
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	sb.WriteString(" ORDER BY created_at DESC, id DESC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	return listOrders(ctx, r.conn, "list orders", sb.String(), args...)
}

func getOrder(ctx context.Context, c conn, orderID string) (domain.Order, error) {
	order, err := scanOrder(c.queryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if err != nil {
		return domain.Order{}, mapOrderLookup("get order", err)
	}
	orders := []domain.Order{order}
	if err := hydrate(ctx, c, orders); err != nil {
		return domain.Order{}, err
	}
	return orders[0], nil
}

func getOrderForUpdate(ctx context.Context, c conn, orderID string) (domain.Order, error) {
	order, err := scanOrder(c.queryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, orderID))
	if err != nil {
		return domain.Order{}, mapOrderLookup("lock order", err)
	}
	return order, nil
}

// mapOrderLookup treats a malformed id like a missing row: no order can have it.
func mapOrderLookup(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
		return domain.ErrOrderNotFound
	}
	return wrap(op, err)
}

func listOrders(ctx context.Context, c conn, op, query string, args ...any) ([]domain.Order, error) {
	rows, err := c.query(ctx, query, args...)
	if err != nil {
		return nil, wrap(op, err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}
	if rows.Err() != nil {
		return nil, wrap(op, rows.Err())
	}
	if err := hydrate(ctx, c, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	var state string
	err := row.Scan(&o.ID, &o.ClientID, &state, &o.TotalCost, &o.Deposit,
		&o.Description, &o.EstimatedDelivery, &o.CreatedAt, &o.UpdatedAt)
	o.State = domain.State(state)
	return o, err
}

// hydrate loads lines and history for every order in two queries.
func hydrate(ctx context.Context, c conn, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := c.query(ctx, `
SELECT id, order_id, product_id, quantity, unit_price, total, specification
FROM order_lines
WHERE order_id = ANY($1::uuid[])
ORDER BY seq`, ids)
	if err != nil {
		return wrap("load order lines", err)
	}
	for rows.Next() {
		var l domain.LineItem
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Quantity, &l.UnitPrice, &l.Total, &l.Specification); err != nil {
			rows.Close()
			return fmt.Errorf("scan order line: %w", err)
		}
		i := index[l.OrderID]
		orders[i].Lines = append(orders[i].Lines, l)
	}
	rows.Close()
	if rows.Err() != nil {
		return wrap("load order lines", rows.Err())
	}

	rows, err = c.query(ctx, `
SELECT id, order_id, state, created_at
FROM order_history
WHERE order_id = ANY($1::uuid[])
ORDER BY seq`, ids)
	if err != nil {
		return wrap("load order history", err)
	}
	defer rows.Close()
	for rows.Next() {
		var h domain.HistoryEntry
		var state string
		if err := rows.Scan(&h.ID, &h.OrderID, &state, &h.CreatedAt); err != nil {
			return fmt.Errorf("scan history entry: %w", err)
		}
		h.State = domain.State(state)
		i := index[h.OrderID]
		orders[i].History = append(orders[i].History, h)
	}
	if rows.Err() != nil {
		return wrap("load order history", rows.Err())
	}
	return nil
}
