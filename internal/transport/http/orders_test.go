package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cimillas/furniture-backoffice/internal/app"
	"github.com/cimillas/furniture-backoffice/internal/domain"
	"github.com/shopspring/decimal"
)

type stubOrderService struct {
	order domain.Order
	err   error

	gotCreate app.CreateOrderInput
	gotFilter domain.OrderFilter
	gotPatch  domain.OrderPatch
	gotState  domain.State
	gotID     string
	cancelled bool
}

func (s *stubOrderService) CreateOrder(_ context.Context, in app.CreateOrderInput) (domain.Order, error) {
	s.gotCreate = in
	return s.order, s.err
}

func (s *stubOrderService) TransitionState(_ context.Context, id string, state domain.State) (domain.Order, error) {
	s.gotID, s.gotState = id, state
	return s.order, s.err
}

func (s *stubOrderService) CancelOrder(_ context.Context, id string) (domain.Order, error) {
	s.gotID, s.cancelled = id, true
	return s.order, s.err
}

func (s *stubOrderService) UpdateOrderFields(_ context.Context, id string, patch domain.OrderPatch) (domain.Order, error) {
	s.gotID, s.gotPatch = id, patch
	return s.order, s.err
}

func (s *stubOrderService) GetOrder(_ context.Context, id string) (domain.Order, error) {
	s.gotID = id
	return s.order, s.err
}

func (s *stubOrderService) ListOrders(_ context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	s.gotFilter = filter
	if s.err != nil {
		return nil, s.err
	}
	return []domain.Order{s.order}, nil
}

func sampleOrder() domain.Order {
	at := time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC)
	return domain.Order{
		ID:        "order-1",
		ClientID:  10,
		State:     domain.StatePending,
		TotalCost: decimal.NewFromInt(2000),
		Deposit:   decimal.Zero,
		CreatedAt: at,
		UpdatedAt: at,
		Lines: []domain.LineItem{{
			ID: "line-1", OrderID: "order-1", ProductID: 5, Quantity: 2,
			UnitPrice: decimal.NewFromInt(1000), Total: decimal.NewFromInt(2000),
		}},
		History: []domain.HistoryEntry{{ID: "h-1", OrderID: "order-1", State: domain.StatePending, CreatedAt: at}},
	}
}

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Buffer
	if body == "" {
		reader = &bytes.Buffer{}
	} else {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleCreateOrder(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		body           string
		serviceErr     error
		expectedStatus int
		expectedCode   string
		expectedSubstr string
	}{
		{
			name:           "success",
			body:           `{"client_id":10,"lines":[{"product_id":5,"quantity":2}]}`,
			expectedStatus: http.StatusCreated,
			expectedSubstr: `"total_cost":"2000"`,
		},
		{
			name:           "invalid json",
			body:           `{"client_id":`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   codeInvalidRequestBody,
		},
		{
			name:           "unknown field",
			body:           `{"client_id":10,"discount":5}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   codeInvalidRequestBody,
		},
		{
			name:           "missing client",
			body:           `{"lines":[{"product_id":5}]}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   codeMissingRequiredField,
		},
		{
			name:           "empty order",
			body:           `{"client_id":10,"lines":[]}`,
			serviceErr:     domain.ErrEmptyOrder,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "empty_order",
		},
		{
			name:           "client not found",
			body:           `{"client_id":99,"lines":[{"product_id":5}]}`,
			serviceErr:     domain.ErrClientNotFound,
			expectedStatus: http.StatusNotFound,
			expectedCode:   "client_not_found",
		},
		{
			name:           "inactive product",
			body:           `{"client_id":10,"lines":[{"product_id":9}]}`,
			serviceErr:     fmt.Errorf("line 0: %w", domain.ErrProductInactive),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "product_inactive",
			expectedSubstr: "line 0",
		},
		{
			name:           "amount out of range",
			body:           `{"client_id":10,"lines":[{"product_id":5,"quantity":2000000000}]}`,
			serviceErr:     fmt.Errorf("line 0: %w", domain.ErrAmountOutOfRange),
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "amount_out_of_range",
		},
		{
			name:           "directory down",
			body:           `{"client_id":10,"lines":[{"product_id":5}]}`,
			serviceErr:     fmt.Errorf("%w: dial tcp: refused", domain.ErrDependencyUnavailable),
			expectedStatus: http.StatusServiceUnavailable,
			expectedCode:   "dependency_unavailable",
		},
		{
			name:           "internal error",
			body:           `{"client_id":10,"lines":[{"product_id":5}]}`,
			serviceErr:     errors.New("disk full"),
			expectedStatus: http.StatusInternalServerError,
			expectedCode:   codeInternalError,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubOrderService{order: sampleOrder(), err: tt.serviceErr}
			router := NewRouter(Deps{Orders: svc})

			rec := serve(t, router, http.MethodPost, "/orders", tt.body)

			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d (%s)", tt.expectedStatus, rec.Code, rec.Body.String())
			}
			body := rec.Body.String()
			if tt.expectedCode != "" {
				var resp errorResponse
				if err := json.Unmarshal([]byte(body), &resp); err != nil {
					t.Fatalf("decode error body: %v", err)
				}
				if resp.Code != tt.expectedCode {
					t.Fatalf("expected code %q, got %q", tt.expectedCode, resp.Code)
				}
			}
			if tt.expectedSubstr != "" && !strings.Contains(body, tt.expectedSubstr) {
				t.Fatalf("expected response to contain %q, got %q", tt.expectedSubstr, body)
			}
			if strings.Contains(body, "disk full") || strings.Contains(body, "refused") {
				t.Fatalf("internal details leaked: %q", body)
			}
		})
	}
}

func TestHandleCreateOrder_MapsInput(t *testing.T) {
	t.Parallel()

	svc := &stubOrderService{order: sampleOrder()}
	router := NewRouter(Deps{Orders: svc})

	body := `{"client_id":10,"initial_state":"quote","deposit":"150.50","estimated_delivery":"2025-02-14",
		"lines":[{"product_id":5,"quantity":3,"unit_price":"99.99","specification":"oak"},{"product_id":6}]}`
	rec := serve(t, router, http.MethodPost, "/orders", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	in := svc.gotCreate
	if in.ClientID != 10 || in.InitialState != domain.StateQuote {
		t.Fatalf("unexpected input: %+v", in)
	}
	if in.Deposit == nil || !in.Deposit.Equal(decimal.RequireFromString("150.50")) {
		t.Fatalf("unexpected deposit: %v", in.Deposit)
	}
	if in.EstimatedDelivery == nil || !in.EstimatedDelivery.Equal(time.Date(2025, 2, 14, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected estimated delivery: %v", in.EstimatedDelivery)
	}
	if len(in.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(in.Lines))
	}
	if *in.Lines[0].Quantity != 3 || !in.Lines[0].UnitPrice.Equal(decimal.RequireFromString("99.99")) || in.Lines[0].Specification != "oak" {
		t.Fatalf("unexpected first line: %+v", in.Lines[0])
	}
	if in.Lines[1].Quantity != nil || in.Lines[1].UnitPrice != nil {
		t.Fatalf("expected catalog defaults for second line: %+v", in.Lines[1])
	}
}

func TestHandleListOrders(t *testing.T) {
	t.Parallel()

	t.Run("parses filters", func(t *testing.T) {
		t.Parallel()
		svc := &stubOrderService{order: sampleOrder()}
		router := NewRouter(Deps{Orders: svc})

		rec := serve(t, router, http.MethodGet, "/orders?state=pending&client_id=10&created_from=2025-01-01&created_to=2025-01-31&limit=20&offset=40", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
		}
		f := svc.gotFilter
		if f.State == nil || *f.State != domain.StatePending || f.ClientID == nil || *f.ClientID != 10 {
			t.Fatalf("unexpected filter: %+v", f)
		}
		if !f.CreatedFrom.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
			t.Fatalf("unexpected created_from: %v", f.CreatedFrom)
		}
		if !f.CreatedTo.Equal(time.Date(2025, 1, 31, 23, 59, 59, 999999000, time.UTC)) {
			t.Fatalf("expected created_to to cover the whole day, got %v", f.CreatedTo)
		}
		if f.Limit != 20 || f.Offset != 40 {
			t.Fatalf("unexpected paging: %+v", f)
		}

		var resp []orderResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(resp) != 1 || resp[0].ID != "order-1" || len(resp[0].Lines) != 1 || len(resp[0].History) != 1 {
			t.Fatalf("unexpected response: %+v", resp)
		}
	})

	for _, query := range []string{"state=lost", "client_id=abc", "created_from=yesterday", "limit=-1"} {
		query := query
		t.Run("rejects "+query, func(t *testing.T) {
			t.Parallel()
			router := NewRouter(Deps{Orders: &stubOrderService{}})
			rec := serve(t, router, http.MethodGet, "/orders?"+query, "")
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestHandleGetOrder(t *testing.T) {
	t.Parallel()

	svc := &stubOrderService{order: sampleOrder()}
	rec := serve(t, NewRouter(Deps{Orders: svc}), http.MethodGet, "/orders/order-1", "")
	if rec.Code != http.StatusOK || svc.gotID != "order-1" {
		t.Fatalf("expected 200 for order-1, got %d (id %q)", rec.Code, svc.gotID)
	}

	missing := &stubOrderService{err: domain.ErrOrderNotFound}
	rec = serve(t, NewRouter(Deps{Orders: missing}), http.MethodGet, "/orders/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleTransitionAndCancel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		path           string
		body           string
		serviceErr     error
		expectedStatus int
	}{
		{name: "transition", path: "/orders/order-1/state", body: `{"state":"in_progress"}`, expectedStatus: http.StatusOK},
		{name: "missing state", path: "/orders/order-1/state", body: `{}`, expectedStatus: http.StatusBadRequest},
		{name: "invalid state", path: "/orders/order-1/state", body: `{"state":"archived"}`, serviceErr: domain.ErrInvalidState, expectedStatus: http.StatusBadRequest},
		{name: "not allowed", path: "/orders/order-1/state", body: `{"state":"pending"}`, serviceErr: domain.ErrInvalidTransition, expectedStatus: http.StatusBadRequest},
		{name: "lock conflict", path: "/orders/order-1/state", body: `{"state":"paid"}`, serviceErr: domain.ErrConcurrentUpdate, expectedStatus: http.StatusConflict},
		{name: "cancel", path: "/orders/order-1/cancel", expectedStatus: http.StatusOK},
		{name: "cancel missing", path: "/orders/nope/cancel", serviceErr: domain.ErrOrderNotFound, expectedStatus: http.StatusNotFound},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := &stubOrderService{order: sampleOrder(), err: tt.serviceErr}
			rec := serve(t, NewRouter(Deps{Orders: svc}), http.MethodPost, tt.path, tt.body)
			if rec.Code != tt.expectedStatus {
				t.Fatalf("expected status %d, got %d (%s)", tt.expectedStatus, rec.Code, rec.Body.String())
			}
		})
	}

	svc := &stubOrderService{order: sampleOrder()}
	serve(t, NewRouter(Deps{Orders: svc}), http.MethodPost, "/orders/order-7/state", `{"state":"delivered"}`)
	if svc.gotID != "order-7" || svc.gotState != domain.StateDelivered {
		t.Fatalf("unexpected transition call: %q %q", svc.gotID, svc.gotState)
	}
}

func TestHandleUpdateOrder(t *testing.T) {
	t.Parallel()

	t.Run("partial patch", func(t *testing.T) {
		t.Parallel()
		svc := &stubOrderService{order: sampleOrder()}
		rec := serve(t, NewRouter(Deps{Orders: svc}), http.MethodPatch, "/orders/order-1",
			`{"deposit":"200","estimated_delivery":null}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
		}
		p := svc.gotPatch
		if p.Description.Set {
			t.Fatalf("description must stay unset")
		}
		if !p.Deposit.Set || !p.Deposit.Value.Equal(decimal.NewFromInt(200)) {
			t.Fatalf("unexpected deposit patch: %+v", p.Deposit)
		}
		if !p.EstimatedDelivery.Set || p.EstimatedDelivery.Value != nil {
			t.Fatalf("expected explicit null to clear estimated delivery: %+v", p.EstimatedDelivery)
		}
	})

	for _, body := range []string{`{"state":"paid"}`, `{"deposit":null}`, `{"description":5}`, `[]`} {
		body := body
		t.Run("rejects "+body, func(t *testing.T) {
			t.Parallel()
			rec := serve(t, NewRouter(Deps{Orders: &stubOrderService{}}), http.MethodPatch, "/orders/order-1", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})
	}
}
