// Package pricing turns requested order lines into priced line items.
package pricing

import (
	"context"
	"fmt"

	"github.com/cimillas/furniture-backoffice/internal/domain"
	"github.com/shopspring/decimal"
)

// Catalog resolves products. Implementations return domain.ErrProductNotFound
// for unknown ids; any other error is treated as the catalog being unavailable.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (domain.Product, error)
}

// LineRequest is a requested line. Nil fields take catalog defaults.
type LineRequest struct {
	ProductID     int64
	Quantity      *int
	UnitPrice     *decimal.Decimal
	Specification string
}

// Quote is the priced result of a set of line requests.
type Quote struct {
	Lines []domain.LineItem
	Total decimal.Decimal
}

type Calculator struct {
	catalog Catalog
}

func NewCalculator(catalog Catalog) *Calculator {
	return &Calculator{catalog: catalog}
}

// Calculate prices every line and sums the order total. It stops at the first
// failing line and has no side effects. Prices must be whole cents and every
// amount must fit the money columns.
func (c *Calculator) Calculate(ctx context.Context, lines []LineRequest) (Quote, error) {
	if len(lines) == 0 {
		return Quote{}, domain.ErrEmptyOrder
	}

	products := make(map[int64]domain.Product, len(lines))
	quote := Quote{
		Lines: make([]domain.LineItem, 0, len(lines)),
		Total: decimal.Zero,
	}

	for i, req := range lines {
		quantity := 1
		if req.Quantity != nil {
			quantity = *req.Quantity
		}
		if quantity < 1 || quantity > domain.MaxQuantity {
			return Quote{}, fmt.Errorf("line %d: %w", i, domain.ErrInvalidQuantity)
		}
		if req.UnitPrice != nil && !validPrice(*req.UnitPrice) {
			return Quote{}, fmt.Errorf("line %d: %w", i, domain.ErrInvalidPrice)
		}

		product, ok := products[req.ProductID]
		if !ok {
			p, err := c.lookup(ctx, req.ProductID)
			if err != nil {
				return Quote{}, fmt.Errorf("line %d: %w", i, err)
			}
			product = p
			products[req.ProductID] = p
		}
		if !product.Active {
			return Quote{}, fmt.Errorf("line %d: %w", i, domain.ErrProductInactive)
		}

		unitPrice := product.SalePrice
		if req.UnitPrice != nil {
			unitPrice = *req.UnitPrice
		}
		if !validPrice(unitPrice) {
			return Quote{}, fmt.Errorf("line %d: %w", i, domain.ErrInvalidPrice)
		}
		lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
		if err := domain.CheckAmount(lineTotal); err != nil {
			return Quote{}, fmt.Errorf("line %d: %w", i, err)
		}

		quote.Lines = append(quote.Lines, domain.LineItem{
			ProductID:     req.ProductID,
			Quantity:      quantity,
			UnitPrice:     unitPrice,
			Total:         lineTotal,
			Specification: req.Specification,
		})
		quote.Total = quote.Total.Add(lineTotal)
	}
	if err := domain.CheckAmount(quote.Total); err != nil {
		return Quote{}, fmt.Errorf("order total: %w", err)
	}
	return quote, nil
}

// validPrice accepts non-negative whole-cent amounts.
func validPrice(d decimal.Decimal) bool {
	return !d.IsNegative() && domain.CentExact(d)
}

func (c *Calculator) lookup(ctx context.Context, id int64) (domain.Product, error) {
	p, err := c.catalog.GetProduct(ctx, id)
	if err != nil {
		if _, ok := domain.AsError(err); ok {
			return domain.Product{}, err
		}
		return domain.Product{}, fmt.Errorf("%w: product %d: %w", domain.ErrDependencyUnavailable, id, err)
	}
	return p, nil
}
