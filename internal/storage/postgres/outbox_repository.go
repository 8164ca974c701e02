package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cimillas/furniture-backoffice/internal/events"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OutboxRepository stores lifecycle events next to the state change that
// produced them and hands them to the relay.
type OutboxRepository struct {
	conn
}

func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{conn: conn{pool: pool}}
}

func (r *OutboxRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// Enqueue joins the transaction in ctx when there is one.
func (r *OutboxRepository) Enqueue(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	const stmt = `
INSERT INTO outbox (event_id, event_type, event_key, payload, created_at)
VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.exec(ctx, stmt, event.EventID, event.Type, event.OrderID, payload, event.OccurredAt); err != nil {
		return wrap("enqueue event", err)
	}
	return nil
}

// FetchPending returns unsent events in insertion order. Inside a transaction
// the rows stay locked and rows locked by another relay are skipped.
func (r *OutboxRepository) FetchPending(ctx context.Context, limit int) ([]events.Record, error) {
	const query = `
SELECT id, event_id, event_type, event_key, payload, created_at
FROM outbox
WHERE sent_at IS NULL
ORDER BY id
LIMIT $1
FOR UPDATE SKIP LOCKED`

	rows, err := r.query(ctx, query, limit)
	if err != nil {
		return nil, wrap("fetch pending events", err)
	}
	defer rows.Close()

	var out []events.Record
	for rows.Next() {
		var rec events.Record
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.Type, &rec.Key, &rec.Payload, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		out = append(out, rec)
	}
	if rows.Err() != nil {
		return nil, wrap("fetch pending events", rows.Err())
	}
	return out, nil
}

func (r *OutboxRepository) MarkSent(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := r.exec(ctx, `UPDATE outbox SET sent_at = NOW() WHERE id = ANY($1)`, ids); err != nil {
		return wrap("mark events sent", err)
	}
	return nil
}
