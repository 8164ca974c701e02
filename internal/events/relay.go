package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Source reads and acknowledges pending outbox records.
type Source interface {
	FetchPending(ctx context.Context, limit int) ([]Record, error)
	MarkSent(ctx context.Context, ids []int64) error
}

// Transactor is implemented by sources that can hold their row locks across
// a whole batch. The relay then publishes and acknowledges inside one
// transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Sink interface {
	Publish(ctx context.Context, records []Record) error
}

// Relay moves outbox records to a sink. Delivery is at-least-once: a crash
// between Publish and MarkSent republishes the batch.
type Relay struct {
	source    Source
	sink      Sink
	batchSize int
	interval  time.Duration
	logger    *slog.Logger
}

func NewRelay(source Source, sink Sink, batchSize int, interval time.Duration, logger *slog.Logger) *Relay {
	if batchSize <= 0 {
		batchSize = 100
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{source: source, sink: sink, batchSize: batchSize, interval: interval, logger: logger}
}

// RunOnce relays a single batch and reports how many records were sent.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	var sent int
	err := r.inTx(ctx, func(ctx context.Context) error {
		records, err := r.source.FetchPending(ctx, r.batchSize)
		if err != nil {
			return fmt.Errorf("fetch pending: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		if err := r.sink.Publish(ctx, records); err != nil {
			return fmt.Errorf("publish: %w", err)
		}
		ids := make([]int64, 0, len(records))
		for _, rec := range records {
			ids = append(ids, rec.ID)
		}
		if err := r.source.MarkSent(ctx, ids); err != nil {
			return fmt.Errorf("mark sent: %w", err)
		}
		sent = len(records)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return sent, nil
}

func (r *Relay) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx, ok := r.source.(Transactor); ok {
		return tx.WithTx(ctx, fn)
	}
	return fn(ctx)
}

// Run relays until ctx is done. A full batch is followed immediately by the
// next one; otherwise the relay waits for the poll interval.
func (r *Relay) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		n, err := r.RunOnce(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			r.logger.ErrorContext(ctx, "outbox relay failed", "error", err)
		}
		if n > 0 {
			r.logger.InfoContext(ctx, "outbox relayed", "count", n)
		}

		wait := r.interval
		if n == r.batchSize {
			wait = 0
		}
		timer.Reset(wait)
	}
}
