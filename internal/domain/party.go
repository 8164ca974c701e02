package domain

import "github.com/shopspring/decimal"

// RoleClient is the directory role allowed to place orders.
const RoleClient = "client"

// Client is the directory view of a user who may own orders.
type Client struct {
	ID   int64
	Role string
}

// Product is the catalog view used for pricing.
type Product struct {
	ID        int64
	Name      string
	Active    bool
	SalePrice decimal.Decimal
}
