package postgres

import (
	"context"
	"errors"

	"github.com/cimillas/furniture-backoffice/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserDirectory resolves order clients from the users table.
type UserDirectory struct {
	conn
}

func NewUserDirectory(pool *pgxpool.Pool) *UserDirectory {
	return &UserDirectory{conn: conn{pool: pool}}
}

func (d *UserDirectory) GetClient(ctx context.Context, id int64) (domain.Client, error) {
	var c domain.Client
	err := d.queryRow(ctx, `SELECT id, role FROM users WHERE id = $1`, id).Scan(&c.ID, &c.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Client{}, domain.ErrClientNotFound
		}
		return domain.Client{}, wrap("get client", err)
	}
	return c, nil
}

// ProductCatalog resolves products and their current sale price.
type ProductCatalog struct {
	conn
}

func NewProductCatalog(pool *pgxpool.Pool) *ProductCatalog {
	return &ProductCatalog{conn: conn{pool: pool}}
}

func (c *ProductCatalog) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	var p domain.Product
	err := c.queryRow(ctx, `SELECT id, name, active, sale_price FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Active, &p.SalePrice)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, wrap("get product", err)
	}
	return p, nil
}
