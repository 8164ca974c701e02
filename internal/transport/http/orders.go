package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cimillas/furniture-backoffice/internal/app"
	"github.com/cimillas/furniture-backoffice/internal/domain"
	"github.com/cimillas/furniture-backoffice/internal/pricing"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

// OrderService is the order surface the HTTP layer needs.
type OrderService interface {
	CreateOrder(ctx context.Context, in app.CreateOrderInput) (domain.Order, error)
	TransitionState(ctx context.Context, orderID string, newState domain.State) (domain.Order, error)
	CancelOrder(ctx context.Context, orderID string) (domain.Order, error)
	UpdateOrderFields(ctx context.Context, orderID string, patch domain.OrderPatch) (domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (domain.Order, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error)
}

type orderHandlers struct {
	svc OrderService
	loc *time.Location
}

func (h orderHandlers) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	in, err := req.toInput(h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeMissingRequiredField, err.Error())
		return
	}

	order, err := h.svc.CreateOrder(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newOrderResponse(order))
}

func (h orderHandlers) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseOrderFilter(r, h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidQuery, err.Error())
		return
	}
	orders, err := h.svc.ListOrders(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, newOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h orderHandlers) get(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

func (h orderHandlers) update(w http.ResponseWriter, r *http.Request) {
	fields, err := decodePatch(r, "description", "deposit", "estimated_delivery")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, err.Error())
		return
	}
	patch, err := orderPatchFrom(fields, h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, err.Error())
		return
	}

	order, err := h.svc.UpdateOrderFields(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

func (h orderHandlers) transition(w http.ResponseWriter, r *http.Request) {
	var req transitionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}
	if req.State == "" {
		writeError(w, http.StatusBadRequest, codeMissingRequiredField, "state is required")
		return
	}

	order, err := h.svc.TransitionState(r.Context(), chi.URLParam(r, "id"), domain.State(req.State))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

func (h orderHandlers) cancel(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.CancelOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

type createOrderRequest struct {
	ClientID          int64             `json:"client_id"`
	InitialState      string            `json:"initial_state"`
	Deposit           *decimal.Decimal  `json:"deposit"`
	Description       string            `json:"description"`
	EstimatedDelivery string            `json:"estimated_delivery"`
	Lines             []lineItemRequest `json:"lines"`
}

type lineItemRequest struct {
	ProductID     int64            `json:"product_id"`
	Quantity      *int             `json:"quantity"`
	UnitPrice     *decimal.Decimal `json:"unit_price"`
	Specification string           `json:"specification"`
}

func (r createOrderRequest) toInput(loc *time.Location) (app.CreateOrderInput, error) {
	if r.ClientID <= 0 {
		return app.CreateOrderInput{}, errRequired("client_id")
	}
	in := app.CreateOrderInput{
		ClientID:     r.ClientID,
		InitialState: domain.State(r.InitialState),
		Deposit:      r.Deposit,
		Description:  r.Description,
		Lines:        make([]pricing.LineRequest, 0, len(r.Lines)),
	}
	if r.EstimatedDelivery != "" {
		eta, err := parseTime(r.EstimatedDelivery, loc, false)
		if err != nil {
			return app.CreateOrderInput{}, err
		}
		in.EstimatedDelivery = &eta
	}
	for _, line := range r.Lines {
		if line.ProductID <= 0 {
			return app.CreateOrderInput{}, errRequired("lines[].product_id")
		}
		in.Lines = append(in.Lines, pricing.LineRequest{
			ProductID:     line.ProductID,
			Quantity:      line.Quantity,
			UnitPrice:     line.UnitPrice,
			Specification: line.Specification,
		})
	}
	return in, nil
}

type transitionRequest struct {
	State string `json:"state"`
}

func orderPatchFrom(fields map[string]json.RawMessage, loc *time.Location) (domain.OrderPatch, error) {
	var patch domain.OrderPatch
	if raw, ok := fields["description"]; ok {
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return patch, errField("description")
		}
		patch.Description = domain.Some(v)
	}
	if raw, ok := fields["deposit"]; ok {
		var v decimal.Decimal
		if isNull(raw) || json.Unmarshal(raw, &v) != nil {
			return patch, errField("deposit")
		}
		patch.Deposit = domain.Some(v)
	}
	if raw, ok := fields["estimated_delivery"]; ok {
		if isNull(raw) {
			patch.EstimatedDelivery = domain.Some[*time.Time](nil)
		} else {
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return patch, errField("estimated_delivery")
			}
			eta, err := parseTime(s, loc, false)
			if err != nil {
				return patch, errField("estimated_delivery")
			}
			patch.EstimatedDelivery = domain.Some(&eta)
		}
	}
	return patch, nil
}

func parseOrderFilter(r *http.Request, loc *time.Location) (domain.OrderFilter, error) {
	q := r.URL.Query()
	var filter domain.OrderFilter

	if v := q.Get("state"); v != "" {
		state, err := domain.ParseState(v)
		if err != nil {
			return filter, err
		}
		filter.State = &state
	}
	if v := q.Get("client_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filter, errField("client_id")
		}
		filter.ClientID = &id
	}
	if v := q.Get("created_from"); v != "" {
		t, err := parseTime(v, loc, false)
		if err != nil {
			return filter, err
		}
		filter.CreatedFrom = &t
	}
	if v := q.Get("created_to"); v != "" {
		t, err := parseTime(v, loc, true)
		if err != nil {
			return filter, err
		}
		filter.CreatedTo = &t
	}
	for key, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, errField(key)
		}
		*dst = n
	}
	return filter, nil
}

type orderResponse struct {
	ID                string            `json:"id"`
	ClientID          int64             `json:"client_id"`
	State             string            `json:"state"`
	TotalCost         decimal.Decimal   `json:"total_cost"`
	Deposit           decimal.Decimal   `json:"deposit"`
	Description       string            `json:"description"`
	EstimatedDelivery *time.Time        `json:"estimated_delivery"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	Lines             []lineResponse    `json:"lines"`
	History           []historyResponse `json:"history"`
}

type lineResponse struct {
	ID            string          `json:"id"`
	ProductID     int64           `json:"product_id"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Total         decimal.Decimal `json:"total"`
	Specification string          `json:"specification"`
}

type historyResponse struct {
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

func newOrderResponse(o domain.Order) orderResponse {
	resp := orderResponse{
		ID:                o.ID,
		ClientID:          o.ClientID,
		State:             string(o.State),
		TotalCost:         o.TotalCost,
		Deposit:           o.Deposit,
		Description:       o.Description,
		EstimatedDelivery: o.EstimatedDelivery,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
		Lines:             make([]lineResponse, 0, len(o.Lines)),
		History:           make([]historyResponse, 0, len(o.History)),
	}
	for _, l := range o.Lines {
		resp.Lines = append(resp.Lines, lineResponse{
			ID:            l.ID,
			ProductID:     l.ProductID,
			Quantity:      l.Quantity,
			UnitPrice:     l.UnitPrice,
			Total:         l.Total,
			Specification: l.Specification,
		})
	}
	for _, h := range o.History {
		resp.History = append(resp.History, historyResponse{State: string(h.State), CreatedAt: h.CreatedAt})
	}
	return resp
}
