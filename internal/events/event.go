// Package events defines order lifecycle events and relays them from the
// outbox table to Kafka.
package events

import (
	"encoding/json"
	"time"

	"github.com/cimillas/furniture-backoffice/internal/domain"
	"github.com/google/uuid"
)

const (
	TypeOrderCreated      = "order.created"
	TypeOrderStateChanged = "order.state_changed"
	TypeOrderUpdated      = "order.updated"
	TypeSurveyCreated     = "survey.created"
)

// Event is the envelope stored in the outbox and published to consumers.
type Event struct {
	EventID    string         `json:"event_id"`
	Type       string         `json:"type"`
	OrderID    string         `json:"order_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload"`
}

// Record is a stored outbox row.
type Record struct {
	ID        int64
	EventID   string
	Type      string
	Key       string
	Payload   json.RawMessage
	CreatedAt time.Time
	SentAt    *time.Time
}

func newEvent(eventType, orderID string, at time.Time, payload map[string]any) Event {
	return Event{
		EventID:    uuid.NewString(),
		Type:       eventType,
		OrderID:    orderID,
		OccurredAt: at.UTC(),
		Payload:    payload,
	}
}

func OrderCreated(o domain.Order) Event {
	return newEvent(TypeOrderCreated, o.ID, o.CreatedAt, map[string]any{
		"client_id":  o.ClientID,
		"state":      o.State,
		"total_cost": o.TotalCost.String(),
		"deposit":    o.Deposit.String(),
		"lines":      len(o.Lines),
	})
}

func OrderStateChanged(orderID string, from, to domain.State, at time.Time) Event {
	return newEvent(TypeOrderStateChanged, orderID, at, map[string]any{
		"from": from,
		"to":   to,
	})
}

func OrderUpdated(o domain.Order) Event {
	payload := map[string]any{
		"deposit":     o.Deposit.String(),
		"description": o.Description,
	}
	if o.EstimatedDelivery != nil {
		payload["estimated_delivery"] = o.EstimatedDelivery.Format(time.DateOnly)
	}
	return newEvent(TypeOrderUpdated, o.ID, o.UpdatedAt, payload)
}

func SurveyCreated(s domain.Survey) Event {
	return newEvent(TypeSurveyCreated, s.OrderID, s.CreatedAt, map[string]any{
		"survey_id":       s.ID,
		"order_score":     s.OrderScore,
		"deliverer_score": s.DelivererScore,
	})
}
