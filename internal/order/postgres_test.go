package order_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ecofor-market/internal/account"
	"github.com/noah-isme/ecofor-market/internal/audit"
	"github.com/noah-isme/ecofor-market/internal/cart"
	"github.com/noah-isme/ecofor-market/internal/db"
	"github.com/noah-isme/ecofor-market/internal/events"
	"github.com/noah-isme/ecofor-market/internal/money"
	"github.com/noah-isme/ecofor-market/internal/order"
)

func postgresStore(t *testing.T) (*pgxpool.Pool, *db.SQLStore) {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	require.NoError(t, db.MigrateUp(url))
	pool, err := pgxpool.New(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool, db.NewStore(pool)
}

// Buyers contend for the same two rows; each transaction locks them in id
// order, so no checkout deadlocks and the shared stock is sold exactly once.
func TestPostgresConcurrentCheckoutLocksRows(t *testing.T) {
	pool, store := postgresStore(t)
	ctx := context.Background()
	q := db.New(pool)

	suffix := uuid.NewString()[:8]
	row, err := q.CreateAccount(ctx, db.CreateAccountParams{
		Username:     "buyer-" + suffix,
		Email:        "buyer-" + suffix + "@example.cl",
		PasswordHash: "x",
		Tier:         db.TierRetail,
		Roles:        []string{},
	})
	require.NoError(t, err)
	buyer := account.FromRow(row)

	var products []db.Product
	for _, name := range []string{"Toalla interfoliada ", "Cloro gel "} {
		p, err := q.CreateProduct(ctx, db.CreateProductParams{
			Name:     name + suffix,
			Price:    money.FromInt(1190),
			Stock:    10,
			Category: "limpiadores",
			Active:   true,
		})
		require.NoError(t, err)
		products = append(products, p)
	}

	svc := &order.Service{Store: store, Events: &events.Bus{Store: store}, Audit: audit.Recorder{Enabled: true}}

	const buyers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		sold = map[int64]int{}
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := &cart.Cart{}
			for j := range products {
				if err := c.Add(products[(i+j)%len(products)], 3); err != nil {
					t.Error(err)
					return
				}
			}
			res, err := svc.Checkout(ctx, c, buyer)
			if errors.Is(err, order.ErrNothingFulfilled) {
				return
			}
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			for _, it := range res.Items {
				sold[it.ProductID] += it.Quantity
			}
		}(i)
	}
	wg.Wait()

	for _, p := range products {
		require.Equal(t, 10, sold[p.ID])
		got, err := q.GetProduct(ctx, p.ID)
		require.NoError(t, err)
		require.Zero(t, got.Stock)
	}
}
