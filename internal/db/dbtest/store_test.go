package dbtest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ecofor-market/internal/db"
	"github.com/noah-isme/ecofor-market/internal/money"
)

func TestExecTxRollsBackOnError(t *testing.T) {
	store := New()
	p := store.SeedProduct(db.Product{Name: "Toalla", Price: money.FromInt(1190), Stock: 10, Active: true})

	boom := errors.New("boom")
	err := store.ExecTx(context.Background(), func(q db.Querier) error {
		if _, err := q.DecrementStock(context.Background(), p.ID, 4); err != nil {
			return err
		}
		if _, err := q.CreateOrder(context.Background(), db.CreateOrderParams{AccountID: 1, Estado: db.EstadoPagado}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 10, store.Stock(p.ID))
	require.Empty(t, store.Orders())
}

func TestDecrementStockFloorsAtZero(t *testing.T) {
	store := New()
	p := store.SeedProduct(db.Product{Name: "Cloro", Stock: 3})
	got, err := store.DecrementStock(context.Background(), p.ID, 5)
	require.NoError(t, err)
	require.Zero(t, got.Stock)
}

func TestDeleteProductReferenced(t *testing.T) {
	store := New()
	ctx := context.Background()
	p := store.SeedProduct(db.Product{Name: "Guantes", Stock: 0})
	o, err := store.CreateOrder(ctx, db.CreateOrderParams{AccountID: 1, Estado: db.EstadoPagado})
	require.NoError(t, err)
	_, err = store.CreateOrderItem(ctx, db.CreateOrderItemParams{OrderID: o.ID, ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)

	require.ErrorIs(t, store.DeleteProduct(ctx, p.ID), db.ErrReferenced)
	require.True(t, db.IsNotFound(store.DeleteProduct(ctx, 999)))
}

func TestFailOnInjectsErrors(t *testing.T) {
	store := New()
	boom := errors.New("down")
	store.FailOn("ListProducts", boom)
	_, err := store.ListProducts(context.Background(), db.ListProductsParams{})
	require.ErrorIs(t, err, boom)
	store.FailOn("ListProducts", nil)
	_, err = store.ListProducts(context.Background(), db.ListProductsParams{})
	require.NoError(t, err)
}
