package postgres

import (
	"context"
	"testing"

	"github.com/cimillas/furniture-backoffice/internal/domain"
	"github.com/cimillas/furniture-backoffice/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestGateways(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	clientID := testutil.InsertUser(t, ctx, pool, domain.RoleClient)
	sellerID := testutil.InsertUser(t, ctx, pool, "seller")
	productID := testutil.InsertProduct(t, ctx, pool, "Bookshelf", "350.50", false)

	directory := NewUserDirectory(pool)
	client, err := directory.GetClient(ctx, clientID)
	require.NoError(t, err)
	require.Equal(t, domain.RoleClient, client.Role)

	seller, err := directory.GetClient(ctx, sellerID)
	require.NoError(t, err)
	require.Equal(t, "seller", seller.Role)

	_, err = directory.GetClient(ctx, sellerID+100)
	require.ErrorIs(t, err, domain.ErrClientNotFound)

	catalog := NewProductCatalog(pool)
	product, err := catalog.GetProduct(ctx, productID)
	require.NoError(t, err)
	require.Equal(t, "Bookshelf", product.Name)
	require.False(t, product.Active)
	require.True(t, product.SalePrice.Equal(decimal.RequireFromString("350.50")))

	_, err = catalog.GetProduct(ctx, productID+100)
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}
